package email

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_HandleSend(t *testing.T) {
	t.Run("accepts and retains a message", func(t *testing.T) {
		h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))

		req := httptest.NewRequest(http.MethodPost, "/send",
			strings.NewReader(`{"to":"ada@example.com","subject":"Order received","body":"Thanks"}`))
		rec := httptest.NewRecorder()
		h.HandleSend(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		h.HandleList(rec, httptest.NewRequest(http.MethodGet, "/messages", nil))

		var got []sentMessage
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if len(got) != 1 || got[0].To != "ada@example.com" {
			t.Errorf("unexpected outbox: %+v", got)
		}
	})

	t.Run("rejects an invalid recipient", func(t *testing.T) {
		h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))

		req := httptest.NewRequest(http.MethodPost, "/send",
			strings.NewReader(`{"to":"nobody","subject":"x","body":"y"}`))
		rec := httptest.NewRecorder()
		h.HandleSend(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected status 422, got %d", rec.Code)
		}
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))

		rec := httptest.NewRecorder()
		h.HandleSend(rec, httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(`{`)))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("keeps only the most recent messages", func(t *testing.T) {
		h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
		h.size = 2

		for _, subject := range []string{"one", "two", "three"} {
			req := httptest.NewRequest(http.MethodPost, "/send",
				strings.NewReader(`{"to":"ada@example.com","subject":"`+subject+`","body":"b"}`))
			h.HandleSend(httptest.NewRecorder(), req)
		}

		if len(h.outbox) != 2 || h.outbox[0].Subject != "two" {
			t.Errorf("unexpected outbox: %+v", h.outbox)
		}
	})
}
