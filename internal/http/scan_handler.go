package http

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/example/inventory-tracker/internal/application"
	"github.com/example/inventory-tracker/internal/scan"
)

// maxImageBytes bounds uploaded scan images.
const maxImageBytes = 10 << 20

var errMissingBarcode = errors.New("barcode parameter required")

type barcodeResolver interface {
	Resolve(ctx context.Context, barcode string) (application.Resolution, error)
}

// ScanHandler serves barcode resolution and upload-mode image scanning.
type ScanHandler struct {
	resolver  barcodeResolver
	decoder   scan.Decoder
	responder responder
	logger    *slog.Logger
}

func NewScanHandler(resolver barcodeResolver, decoder scan.Decoder, logger *slog.Logger) *ScanHandler {
	base := defaultLogger(logger)
	return &ScanHandler{resolver: resolver, decoder: decoder, responder: newResponder(base), logger: base}
}

func (h *ScanHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ScanHandler", operation, attrs...)
}

// Resolve looks up the barcode supplied as a query parameter and reports
// whether it names a room or an equipment item.
func (h *ScanHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.resolver == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	barcode := strings.TrimSpace(r.URL.Query().Get("barcode"))
	if barcode == "" {
		h.log(r.Context(), "Resolve", "error_kind", "bad_request").ErrorContext(r.Context(), "missing barcode parameter")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingBarcode)
		return
	}

	h.resolveAndRespond(w, r, barcode)
}

// ScanImage decodes a barcode from an uploaded image via an upload-mode scan
// session, then resolves the decoded string.
func (h *ScanHandler) ScanImage(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.resolver == nil || h.decoder == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "ScanImage")

	img, _, err := image.Decode(io.LimitReader(r.Body, maxImageBytes))
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to decode uploaded image", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, fmt.Errorf("unreadable image: %w", err))
		return
	}

	session := scan.NewSession(nil, h.decoder, h.logger)
	barcode, err := session.ScanImage(r.Context(), img)
	if err != nil {
		var capErr *scan.CaptureError
		if errors.As(err, &capErr) {
			logger.With("classification", string(capErr.Reason)).InfoContext(r.Context(), "image scan failed")
			h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
				ErrorCode: string(capErr.Reason),
				Message:   captureGuidance(capErr.Reason),
			})
			return
		}
		logger.ErrorContext(r.Context(), "image scan failed", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, err)
		return
	}

	logger.With("barcode", barcode).InfoContext(r.Context(), "barcode decoded from image")
	h.resolveAndRespond(w, r, barcode)
}

func (h *ScanHandler) resolveAndRespond(w http.ResponseWriter, r *http.Request, barcode string) {
	logger := h.log(r.Context(), "Resolve", "barcode", barcode)

	resolution, err := h.resolver.Resolve(r.Context(), barcode)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			logger.InfoContext(r.Context(), "barcode not found")
			h.responder.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{
				Message: fmt.Sprintf("No room or equipment found with barcode: %s", barcode),
			})
			return
		}
		logger.ErrorContext(r.Context(), "barcode resolution failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("kind", string(resolution.Kind)).InfoContext(r.Context(), "barcode resolved")

	switch resolution.Kind {
	case application.ResolvedRoom:
		h.responder.writeJSON(r.Context(), w, http.StatusOK, scanResponse{
			Type: string(application.ResolvedRoom),
			Data: toRoomDTO(*resolution.Room),
		})
	case application.ResolvedEquipment:
		h.responder.writeJSON(r.Context(), w, http.StatusOK, scanResponse{
			Type: string(application.ResolvedEquipment),
			Data: toEquipmentDTO(*resolution.Equipment),
		})
	default:
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, fmt.Errorf("unknown resolution kind %q", resolution.Kind))
	}
}

// captureGuidance maps a failure classification to the user-facing message.
func captureGuidance(reason scan.FailureReason) string {
	switch reason {
	case scan.FailurePermissionDenied:
		return "Camera access denied. Please allow camera permissions and try again."
	case scan.FailureNoDevice:
		return "No camera found on this device."
	case scan.FailureDeviceBusy:
		return "Camera is already in use by another application."
	case scan.FailureNotFound:
		return "No barcode detected. Ensure the barcode is clearly visible, well lit, and fills most of the image."
	case scan.FailureDecodeError:
		return "Failed to scan barcode from image. Please try again with a different image."
	}
	return "Scan failed. Please try again."
}

type scanResponse struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
