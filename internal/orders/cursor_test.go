package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

func TestCursor_RoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 123456000, time.UTC)
	c := Cursor{UpdatedAt: at, ID: "7c9e6679-7425-40de-944b-e07fc1f90ae7"}

	got, err := DecodeCursor(EncodeCursor(c))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.UpdatedAt.Equal(at) || got.ID != c.ID {
		t.Errorf("expected %+v, got %+v", c, got)
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"not base64":   "%%%",
		"not json":     EncodeRaw("nope"),
		"missing id":   EncodeRaw(`{"u":"2026-01-01T00:00:00Z"}`),
		"bad time":     EncodeRaw(`{"u":"yesterday","i":"x"}`),
		"missing time": EncodeRaw(`{"i":"x"}`),
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeCursor(token); !errors.Is(err, domain.ErrInvalidCursor) {
				t.Errorf("expected ErrInvalidCursor, got %v", err)
			}
		})
	}
}

func TestCursor_Before(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Cursor{UpdatedAt: at, ID: "b"}

	tests := []struct {
		name  string
		order domain.Order
		want  bool
	}{
		{"older", domain.Order{ID: "z", UpdatedAt: at.Add(-time.Second)}, true},
		{"newer", domain.Order{ID: "a", UpdatedAt: at.Add(time.Second)}, false},
		{"same time lower id", domain.Order{ID: "a", UpdatedAt: at}, true},
		{"same time same id", domain.Order{ID: "b", UpdatedAt: at}, false},
		{"same time higher id", domain.Order{ID: "c", UpdatedAt: at}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Before(tt.order); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
