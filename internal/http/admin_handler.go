package http

import (
	"context"
	"log/slog"
	"net/http"
)

// Migrator applies the storage schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// AdminHandler serves operational endpoints, currently schema initialization.
type AdminHandler struct {
	migrator  Migrator
	responder responder
	logger    *slog.Logger
}

func NewAdminHandler(migrator Migrator, logger *slog.Logger) *AdminHandler {
	base := defaultLogger(logger)
	return &AdminHandler{migrator: migrator, responder: newResponder(base), logger: base}
}

// InitSchema creates or upgrades the database schema. Safe to repeat.
func (h *AdminHandler) InitSchema(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.migrator == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := handlerLogger(r.Context(), h.logger, "AdminHandler", "InitSchema")

	if err := h.migrator.Migrate(r.Context()); err != nil {
		logger.ErrorContext(r.Context(), "schema initialization failed", "error", err)
		h.responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, errorResponse{
			Message: "inventory store is unavailable, try again later",
		})
		return
	}

	logger.InfoContext(r.Context(), "schema initialized")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "initialized"})
}
