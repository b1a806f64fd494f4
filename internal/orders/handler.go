package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255
)

type Handler struct {
	service       *Service
	logger        *slog.Logger
	createTimeout time.Duration
}

func NewHandler(service *Service, logger *slog.Logger, createTimeout time.Duration) *Handler {
	return &Handler{
		service:       service,
		logger:        logger,
		createTimeout: createTimeout,
	}
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if err := validateRequest(req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLength {
		h.writeServiceError(w, r, domain.NewValidationError(IdempotencyKeyHeader, "must be at most 255 characters"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.createTimeout)
	defer cancel()

	order, replayed, err := h.service.Create(ctx, key, req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
		w.Header().Set(ReplayedHeader, "true")
	}

	h.writeJSON(w, status, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "bad_request", "missing order id")
		return
	}

	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))

	orders, err := h.service.List(r.Context(), email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleListAdmin(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := DefaultPageLimit
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeServiceError(w, r, domain.NewValidationError("limit", "must be an integer"))
			return
		}
		limit = n
	}

	page, err := h.service.ListAdmin(r.Context(), limit, query.Get("cursor"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, page)
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "bad_request", "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if err := validateRequest(req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		h.writeServiceError(w, r, domain.NewValidationError("status",
			"must be one of RECEIVED, PREPARING, OUT_FOR_DELIVERY, DELIVERED"))
		return
	}

	order, err := h.service.AdvanceStatus(r.Context(), id, status, SourceAPI)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type errorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "validation failed",
			Code:   "validation_error",
			Fields: validationErr.Fields,
		})
	case errors.Is(err, domain.ErrInvalidCursor):
		h.writeError(w, http.StatusBadRequest, "invalid_cursor", "invalid cursor")
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.WarnContext(r.Context(), "request timed out", "path", r.URL.Path)
		h.writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "error", err, "path", r.URL.Path)
		h.writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, errorResponse{Error: message, Code: code})
}
