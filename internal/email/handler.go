package email

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

const defaultOutboxSize = 100

// Message is the notification payload accepted by the relay.
type Message struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=255"`
	Body    string `json:"body" validate:"required"`
}

type sentMessage struct {
	Message
	SentAt time.Time `json:"sent_at"`
}

// Handler is a development mail relay: it accepts messages, logs them and
// keeps the most recent ones for inspection.
type Handler struct {
	logger   *slog.Logger
	validate *validator.Validate

	mu     sync.Mutex
	outbox []sentMessage
	size   int
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		validate: validator.New(),
		size:     defaultOutboxSize,
	}
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(msg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			h.writeError(w, http.StatusUnprocessableEntity, "invalid "+fieldErrs[0].Field())
			return
		}
		h.writeError(w, http.StatusUnprocessableEntity, "invalid message")
		return
	}

	h.mu.Lock()
	h.outbox = append(h.outbox, sentMessage{Message: msg, SentAt: time.Now().UTC()})
	if len(h.outbox) > h.size {
		h.outbox = h.outbox[len(h.outbox)-h.size:]
	}
	h.mu.Unlock()

	h.logger.InfoContext(r.Context(), "email sent", "to", msg.To, "subject", msg.Subject)

	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
}

// HandleList returns the retained messages, oldest first.
func (h *Handler) HandleList(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	out := append([]sentMessage{}, h.outbox...)
	h.mu.Unlock()

	h.writeJSON(w, http.StatusOK, out)
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
