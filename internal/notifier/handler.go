package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
	"github.com/joao-fontenele/orderflow-realtime/internal/messaging"
)

// Notification is the customer-facing message for one lifecycle event.
type Notification struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Handler turns lifecycle events from the topic into customer notifications.
// Without a relay URL notifications are only logged.
type Handler struct {
	relayURL   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHandler(relayURL string, client *http.Client, logger *slog.Logger) *Handler {
	return &Handler{
		relayURL:   strings.TrimRight(relayURL, "/"),
		httpClient: client,
		logger:     logger,
	}
}

func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	evt, err := domain.DecodeEvent(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", messaging.ErrSkip, err)
	}

	n, ok := Compose(evt)
	if !ok {
		h.logger.DebugContext(ctx, "no notification for event",
			"order_id", evt.OrderSnapshot().ID,
			"type", evt.Type(),
		)
		return nil
	}

	if h.relayURL == "" {
		h.logger.InfoContext(ctx, "notification composed", "to", n.To, "subject", n.Subject)
		return nil
	}

	if err := h.send(ctx, n); err != nil {
		return fmt.Errorf("send notification for order %s: %w", evt.OrderSnapshot().ID, err)
	}

	h.logger.InfoContext(ctx, "notification sent", "order_id", evt.OrderSnapshot().ID, "type", evt.Type())
	return nil
}

func (h *Handler) send(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.relayURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The relay will reject this message on every retry.
		return fmt.Errorf("%w: mail relay returned status %d", messaging.ErrSkip, resp.StatusCode)
	default:
		return fmt.Errorf("mail relay returned status %d", resp.StatusCode)
	}
}

// Compose builds the notification for evt. ok is false when the event does
// not warrant one, e.g. the order has no email.
func Compose(evt domain.Event) (Notification, bool) {
	order := evt.OrderSnapshot()
	if order == nil || order.Email == "" {
		return Notification{}, false
	}

	greeting := "Hi"
	if order.Name != "" {
		greeting = "Hi " + order.Name
	}
	ref := shortID(order.ID)

	switch e := evt.(type) {
	case domain.OrderCreated:
		return Notification{
			To:      order.Email,
			Subject: "Order received: " + ref,
			Body: fmt.Sprintf("%s, we received your order %s with %d item(s) totalling %s.",
				greeting, ref, itemCount(order.Items), formatCents(order.TotalAmount)),
		}, true
	case domain.OrderStatusChanged:
		var subject, line string
		switch e.Order.Status {
		case domain.OrderStatusPreparing:
			subject, line = "Your order is being prepared", "the kitchen has started on your order"
		case domain.OrderStatusOutForDelivery:
			subject, line = "Your order is on its way", "your order is out for delivery"
		case domain.OrderStatusDelivered:
			subject, line = "Your order has been delivered", "your order was delivered. Enjoy your meal"
		default:
			return Notification{}, false
		}
		return Notification{
			To:      order.Email,
			Subject: subject + " (" + ref + ")",
			Body:    fmt.Sprintf("%s, %s.", greeting, line),
		}, true
	default:
		return Notification{}, false
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return "#" + strings.ToUpper(id[:8])
	}
	return "#" + strings.ToUpper(id)
}

func itemCount(lines []domain.OrderLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
