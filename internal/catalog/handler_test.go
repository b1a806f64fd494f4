package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

type failingLister struct{}

func (failingLister) ListAll(context.Context) ([]domain.MenuItem, error) {
	return nil, errors.New("boom")
}

func TestHandler_HandleList(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("lists menu sorted by name", func(t *testing.T) {
		handler := NewHandler(NewMemoryCatalog(DemoMenu), logger)

		rec := httptest.NewRecorder()
		handler.HandleList(rec, httptest.NewRequest(http.MethodGet, "/menu", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		var items []domain.MenuItem
		if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(items) != len(DemoMenu) {
			t.Fatalf("expected %d items, got %d", len(DemoMenu), len(items))
		}
		if items[0].Name != "Caesar Salad" {
			t.Errorf("expected Caesar Salad first, got %s", items[0].Name)
		}
	})

	t.Run("returns 500 when catalog fails", func(t *testing.T) {
		handler := NewHandler(failingLister{}, logger)

		rec := httptest.NewRecorder()
		handler.HandleList(rec, httptest.NewRequest(http.MethodGet, "/menu", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
	})
}

func TestMemoryCatalog_FindByIDs(t *testing.T) {
	c := NewMemoryCatalog(DemoMenu)

	found, err := c.FindByIDs(context.Background(), []string{DemoMenu[0].ID, "missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 item, got %d", len(found))
	}
	if found[DemoMenu[0].ID].Price != 1299 {
		t.Errorf("expected price 1299, got %d", found[DemoMenu[0].ID].Price)
	}
}
