package broadcast

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

func TestStreamHandler(t *testing.T) {
	hub := NewHub(discardLogger())
	srv := httptest.NewServer(NewStreamHandler(hub, discardLogger(), 20*time.Millisecond))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("expected text/event-stream, got %s", ct)
	}

	for hub.Count(AdminScope) == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("stream never subscribed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	hub.Publish(domain.OrderCreated{Order: &domain.Order{ID: "x", Status: domain.OrderStatusReceived}})

	reader := bufio.NewReader(resp.Body)
	var sawHeartbeat, sawEvent, sawData bool
	for !(sawEvent && sawData && sawHeartbeat) {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("stream ended early: %v (event=%v data=%v heartbeat=%v)", err, sawEvent, sawData, sawHeartbeat)
		}
		switch {
		case strings.HasPrefix(line, ": heartbeat"):
			sawHeartbeat = true
		case strings.HasPrefix(line, "event:") && strings.Contains(line, SSEEventName):
			sawEvent = true
		case strings.HasPrefix(line, "data:") && strings.Contains(line, `"order_created"`):
			sawData = true
		}
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for hub.Count(AdminScope) != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Count(AdminScope) != 0 {
		t.Error("expected subscription to be released after disconnect")
	}
}
