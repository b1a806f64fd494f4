package broadcast

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

const (
	SSEEventName     = "order_updated"
	DefaultHeartbeat = 25 * time.Second
)

// StreamHandler streams every lifecycle event of the admin scope as
// server-sent events.
type StreamHandler struct {
	hub       *Hub
	logger    *slog.Logger
	heartbeat time.Duration
}

func NewStreamHandler(hub *Hub, logger *slog.Logger, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &StreamHandler{hub: hub, logger: logger, heartbeat: heartbeat}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", sse.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sub := h.hub.Subscribe(AdminScope, DefaultBuffer)
	defer sub.Close()

	if _, err := io.WriteString(w, ": connected\n\n"); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := io.WriteString(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			err := sse.Encode(w, sse.Event{
				Event: SSEEventName,
				Data:  domain.EnvelopeOf(evt),
			})
			if err != nil {
				h.logger.Debug("sse client gone", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}
