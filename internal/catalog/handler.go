package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

// Lister is the read side of the catalog served over HTTP.
type Lister interface {
	ListAll(ctx context.Context) ([]domain.MenuItem, error)
}

type Handler struct {
	menu   Lister
	logger *slog.Logger
}

func NewHandler(menu Lister, logger *slog.Logger) *Handler {
	return &Handler{
		menu:   menu,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.menu.ListAll(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list menu", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.DebugContext(r.Context(), "menu listed", "count", len(items))
	h.writeJSON(w, http.StatusOK, items)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
