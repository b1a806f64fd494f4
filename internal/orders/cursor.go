package orders

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joao-fontenele/orderflow-realtime/internal/domain"
)

// Cursor is the resume position of the admin listing, which is sorted by
// (updated_at DESC, id DESC). It points at the last item already returned.
type Cursor struct {
	UpdatedAt time.Time
	ID        string
}

type cursorPayload struct {
	UpdatedAt string `json:"u"`
	ID        string `json:"i"`
}

// EncodeCursor renders c as an opaque URL-safe token.
func EncodeCursor(c Cursor) string {
	data, _ := json.Marshal(cursorPayload{
		UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339Nano),
		ID:        c.ID,
	})
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a token produced by EncodeCursor. Any malformed token
// yields an error wrapping domain.ErrInvalidCursor.
func DecodeCursor(token string) (Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Cursor{}, fmt.Errorf("%w: empty token", domain.ErrInvalidCursor)
	}

	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", domain.ErrInvalidCursor, err)
	}

	var p cursorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", domain.ErrInvalidCursor, err)
	}
	if p.ID == "" {
		return Cursor{}, fmt.Errorf("%w: missing id", domain.ErrInvalidCursor)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, p.UpdatedAt)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", domain.ErrInvalidCursor, err)
	}

	return Cursor{UpdatedAt: updatedAt, ID: p.ID}, nil
}

// CursorOf returns the cursor positioned at order.
func CursorOf(order domain.Order) Cursor {
	return Cursor{UpdatedAt: order.UpdatedAt, ID: order.ID}
}

// Before reports whether order sorts strictly after the cursor position in
// (updated_at DESC, id DESC) order.
func (c Cursor) Before(order domain.Order) bool {
	if order.UpdatedAt.Before(c.UpdatedAt) {
		return true
	}
	return order.UpdatedAt.Equal(c.UpdatedAt) && order.ID < c.ID
}
