package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
	"github.com/joao-fontenele/orderflow-realtime/internal/email"
	"github.com/joao-fontenele/orderflow-realtime/internal/messaging"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleOrder(status domain.OrderStatus) *domain.Order {
	return &domain.Order{
		ID:          "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		Customer:    domain.Customer{Name: "Ada", Email: "ada@example.com"},
		Status:      status,
		TotalAmount: 3097,
		Items: []domain.OrderLine{
			{Quantity: 2, UnitPrice: 1299},
			{Quantity: 1, UnitPrice: 499},
		},
	}
}

func payload(t *testing.T, evt domain.Event) []byte {
	t.Helper()
	data, err := json.Marshal(domain.EnvelopeOf(evt))
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	return data
}

func TestCompose(t *testing.T) {
	n, ok := Compose(domain.OrderCreated{Order: sampleOrder(domain.OrderStatusReceived)})
	if !ok {
		t.Fatal("expected a notification for a created order")
	}
	if n.To != "ada@example.com" || n.Subject != "Order received: #7C9E6679" {
		t.Errorf("unexpected notification: %+v", n)
	}
	if !strings.Contains(n.Body, "3 item(s)") || !strings.Contains(n.Body, "$30.97") {
		t.Errorf("unexpected body: %s", n.Body)
	}

	n, ok = Compose(domain.OrderStatusChanged{Order: sampleOrder(domain.OrderStatusOutForDelivery), Previous: domain.OrderStatusPreparing})
	if !ok || !strings.HasPrefix(n.Subject, "Your order is on its way") {
		t.Errorf("unexpected notification: %+v (ok=%v)", n, ok)
	}

	noEmail := sampleOrder(domain.OrderStatusReceived)
	noEmail.Email = ""
	if _, ok := Compose(domain.OrderCreated{Order: noEmail}); ok {
		t.Error("expected no notification without an email")
	}
}

func TestHandler_Handle(t *testing.T) {
	t.Run("delivers to the relay", func(t *testing.T) {
		relay := email.NewHandler(testLogger())
		mux := http.NewServeMux()
		mux.HandleFunc("POST /send", relay.HandleSend)
		mux.HandleFunc("GET /messages", relay.HandleList)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		h := NewHandler(srv.URL+"/", srv.Client(), testLogger())
		evt := domain.OrderStatusChanged{Order: sampleOrder(domain.OrderStatusDelivered), Previous: domain.OrderStatusOutForDelivery}

		if err := h.Handle(context.Background(), payload(t, evt)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		resp, err := srv.Client().Get(srv.URL + "/messages")
		if err != nil {
			t.Fatalf("failed to list messages: %v", err)
		}
		defer func() { _ = resp.Body.Close() }()
		var sent []Notification
		_ = json.NewDecoder(resp.Body).Decode(&sent)
		if len(sent) != 1 || !strings.HasPrefix(sent[0].Subject, "Your order has been delivered") {
			t.Errorf("unexpected relay outbox: %+v", sent)
		}
	})

	t.Run("malformed payload is skipped", func(t *testing.T) {
		h := NewHandler("", http.DefaultClient, testLogger())

		if err := h.Handle(context.Background(), []byte(`{"type":"order_created"}`)); !errors.Is(err, messaging.ErrSkip) {
			t.Errorf("expected ErrSkip, got %v", err)
		}
	})

	t.Run("without relay only logs", func(t *testing.T) {
		h := NewHandler("", http.DefaultClient, testLogger())

		if err := h.Handle(context.Background(), payload(t, domain.OrderCreated{Order: sampleOrder(domain.OrderStatusReceived)})); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("relay outage is retried, rejection is skipped", func(t *testing.T) {
		status := http.StatusServiceUnavailable
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		defer srv.Close()

		h := NewHandler(srv.URL, srv.Client(), testLogger())
		data := payload(t, domain.OrderCreated{Order: sampleOrder(domain.OrderStatusReceived)})

		err := h.Handle(context.Background(), data)
		if err == nil || errors.Is(err, messaging.ErrSkip) {
			t.Errorf("expected a retryable error, got %v", err)
		}

		status = http.StatusUnprocessableEntity
		if err := h.Handle(context.Background(), data); !errors.Is(err, messaging.ErrSkip) {
			t.Errorf("expected ErrSkip, got %v", err)
		}
	})
}
