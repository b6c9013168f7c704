// Package scan models barcode acquisition as an explicit state machine,
// independent of what the decoded string later resolves to.
//
// A session moves Idle → Requesting → Active → (Decoded | Cancelled | Failed)
// in camera mode, or Idle → UploadPending → (Decoded | Failed) in upload
// mode. Terminal states carry either the decoded string or a failure
// classification and return to Idle via Reset.
package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
)

// State identifies a scan session phase.
type State int

const (
	// StateIdle means no acquisition is in progress.
	StateIdle State = iota
	// StateRequesting means capture device permission was asked but not yet answered.
	StateRequesting
	// StateActive means the device is granted and decode attempts are looping.
	StateActive
	// StateUploadPending means a single submitted image is being decoded.
	StateUploadPending
	// StateDecoded is the terminal success state carrying the decoded string.
	StateDecoded
	// StateCancelled is the terminal user-initiated stop state.
	StateCancelled
	// StateFailed is the terminal error state carrying a failure classification.
	StateFailed
)

// String returns a stable label for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateActive:
		return "active"
	case StateUploadPending:
		return "upload-pending"
	case StateDecoded:
		return "decoded"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// FailureReason classifies a failed session for caller-facing guidance.
type FailureReason string

const (
	// FailurePermissionDenied means the capture device permission was refused.
	FailurePermissionDenied FailureReason = "permission-denied"
	// FailureNoDevice means no capture device is present.
	FailureNoDevice FailureReason = "no-device"
	// FailureDeviceBusy means the capture device is held by another consumer.
	FailureDeviceBusy FailureReason = "device-busy"
	// FailureNotFound means the submitted image contains no readable barcode.
	FailureNotFound FailureReason = "not-found"
	// FailureDecodeError means decoding faulted for another reason.
	FailureDecodeError FailureReason = "decode-error"
)

var (
	// ErrPermissionDenied is reported by capture devices when access is refused.
	ErrPermissionDenied = errors.New("scan: capture permission denied")
	// ErrNoDevice is reported when no capture device exists.
	ErrNoDevice = errors.New("scan: no capture device")
	// ErrDeviceBusy is reported when the capture device is already in use.
	ErrDeviceBusy = errors.New("scan: capture device busy")
	// ErrNoBarcode is reported by decoders when a frame or image holds no
	// readable barcode.
	ErrNoBarcode = errors.New("scan: no barcode found")
	// ErrCancelled is returned when the session is stopped by the caller.
	ErrCancelled = errors.New("scan: cancelled")
	// ErrInvalidTransition is returned when an acquisition is started while
	// another one is still running.
	ErrInvalidTransition = errors.New("scan: invalid transition")
)

// CaptureError carries the failure classification out of a scan attempt.
type CaptureError struct {
	Reason FailureReason
	Err    error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("scan: capture failed (%s)", e.Reason)
	}
	return fmt.Sprintf("scan: capture failed (%s): %v", e.Reason, e.Err)
}

// Unwrap exposes the underlying device or decoder error.
func (e *CaptureError) Unwrap() error {
	return e.Err
}

// CaptureDevice is the camera collaborator. Acquire asks for the device
// (surfacing ErrPermissionDenied, ErrNoDevice, or ErrDeviceBusy), NextFrame
// blocks until a live frame is available, and Release returns exclusive
// hardware access. Release is invoked exactly once per successful Acquire.
type CaptureDevice interface {
	Acquire(ctx context.Context) error
	NextFrame(ctx context.Context) (image.Image, error)
	Release() error
}

// Decoder turns a single frame or still image into a decoded barcode string,
// reporting ErrNoBarcode when nothing is readable.
type Decoder interface {
	Decode(img image.Image) (string, error)
}

// Session manages the transient state of acquiring one barcode string.
// Methods are safe for concurrent use; Cancel may be called from another
// goroutine while ScanCamera runs.
type Session struct {
	mu      sync.Mutex
	state   State
	held    bool
	decoded string
	reason  FailureReason

	device  CaptureDevice
	decoder Decoder
	logger  *slog.Logger
}

// NewSession constructs an idle session over the given device and decoder.
// The device may be nil when only upload mode is used.
func NewSession(device CaptureDevice, decoder Decoder, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{state: StateIdle, device: device, decoder: decoder, logger: logger}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the decoded string when the session reached Decoded.
func (s *Session) Result() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDecoded {
		return "", false
	}
	return s.decoded, true
}

// Failure returns the failure classification when the session reached Failed.
func (s *Session) Failure() (FailureReason, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateFailed {
		return "", false
	}
	return s.reason, true
}

// ScanCamera runs the camera branch: request the device, then loop decode
// attempts over live frames until one yields a string, the caller cancels,
// or the device fails. The device is released on every exit path.
func (s *Session) ScanCamera(ctx context.Context) (string, error) {
	if s.device == nil {
		return "", &CaptureError{Reason: FailureNoDevice, Err: ErrNoDevice}
	}
	if s.decoder == nil {
		return "", fmt.Errorf("scan: decoder not configured")
	}

	if err := s.begin(StateRequesting); err != nil {
		return "", err
	}

	if err := s.device.Acquire(ctx); err != nil {
		reason := classifyAcquireError(err)
		if !s.fail(reason) {
			return "", ErrCancelled
		}
		s.logger.Warn("capture device acquisition failed", "reason", string(reason), "error", err)
		return "", &CaptureError{Reason: reason, Err: err}
	}

	s.mu.Lock()
	if s.state != StateRequesting {
		// Cancelled between Acquire returning and the state advancing.
		s.held = true
		s.releaseLocked()
		s.mu.Unlock()
		return "", ErrCancelled
	}
	s.held = true
	s.state = StateActive
	s.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			s.cancelInternal()
			return "", ErrCancelled
		}
		if s.State() != StateActive {
			return "", ErrCancelled
		}

		frame, err := s.device.NextFrame(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || s.State() != StateActive {
				s.cancelInternal()
				return "", ErrCancelled
			}
			if !s.fail(FailureDecodeError) {
				return "", ErrCancelled
			}
			return "", &CaptureError{Reason: FailureDecodeError, Err: err}
		}

		text, err := s.decoder.Decode(frame)
		if err != nil {
			if errors.Is(err, ErrNoBarcode) {
				continue
			}
			if !s.fail(FailureDecodeError) {
				return "", ErrCancelled
			}
			return "", &CaptureError{Reason: FailureDecodeError, Err: err}
		}

		s.mu.Lock()
		if s.state != StateActive {
			s.releaseLocked()
			s.mu.Unlock()
			return "", ErrCancelled
		}
		s.state = StateDecoded
		s.decoded = text
		s.releaseLocked()
		s.mu.Unlock()
		s.logger.Info("barcode decoded from camera", "state", StateDecoded.String())
		return text, nil
	}
}

// ScanImage runs the upload branch: a single decode attempt against the
// submitted image.
func (s *Session) ScanImage(_ context.Context, img image.Image) (string, error) {
	if s.decoder == nil {
		return "", fmt.Errorf("scan: decoder not configured")
	}

	if err := s.begin(StateUploadPending); err != nil {
		return "", err
	}

	text, err := s.decoder.Decode(img)
	if err != nil {
		reason := FailureDecodeError
		if errors.Is(err, ErrNoBarcode) {
			reason = FailureNotFound
		}
		s.fail(reason)
		return "", &CaptureError{Reason: reason, Err: err}
	}

	s.mu.Lock()
	s.state = StateDecoded
	s.decoded = text
	s.mu.Unlock()
	return text, nil
}

// Cancel stops an in-flight camera acquisition. It is a no-op outside the
// Requesting and Active states.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRequesting && s.state != StateActive {
		return
	}
	s.state = StateCancelled
	s.releaseLocked()
}

// Reset returns a terminal session to Idle so a new acquisition can start.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateDecoded, StateCancelled, StateFailed:
		s.state = StateIdle
		s.decoded = ""
		s.reason = ""
	}
}

// Close releases any held capture device and returns the session to Idle.
// Safe to call from any state, any number of times.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
	s.state = StateIdle
	s.decoded = ""
	s.reason = ""
	return nil
}

// begin moves Idle (or any terminal state, implicitly reset) into the given
// starting state.
func (s *Session) begin(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateIdle, StateDecoded, StateCancelled, StateFailed:
		s.state = next
		s.decoded = ""
		s.reason = ""
		return nil
	}
	return fmt.Errorf("%w: cannot start while %s", ErrInvalidTransition, s.state)
}

// fail marks the session Failed and releases any held device. A cancel that
// landed first wins: the session stays Cancelled and fail reports false.
func (s *Session) fail(reason FailureReason) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
	if s.state == StateCancelled {
		return false
	}
	s.state = StateFailed
	s.reason = reason
	return true
}

func (s *Session) cancelInternal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRequesting || s.state == StateActive {
		s.state = StateCancelled
	}
	s.releaseLocked()
}

// releaseLocked returns the device at most once per acquisition. Callers hold s.mu.
func (s *Session) releaseLocked() {
	if !s.held {
		return
	}
	s.held = false
	if err := s.device.Release(); err != nil {
		s.logger.Warn("failed to release capture device", "error", err)
	}
}

func classifyAcquireError(err error) FailureReason {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return FailurePermissionDenied
	case errors.Is(err, ErrNoDevice):
		return FailureNoDevice
	case errors.Is(err, ErrDeviceBusy):
		return FailureDeviceBusy
	}
	return FailureDecodeError
}
