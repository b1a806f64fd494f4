package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAdminGate_Require(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := NewAdminGate("admin", "s3cret", logger)

	protected := gate.Require(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		id       string
		password string
		want     int
	}{
		{"valid credentials", "admin", "s3cret", http.StatusNoContent},
		{"wrong password", "admin", "nope", http.StatusUnauthorized},
		{"wrong id", "root", "s3cret", http.StatusUnauthorized},
		{"missing headers", "", "", http.StatusUnauthorized},
		{"password prefix", "admin", "s3c", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/orders/abc/status", nil)
			if tt.id != "" {
				req.Header.Set(AdminIDHeader, tt.id)
			}
			if tt.password != "" {
				req.Header.Set(AdminPasswordHeader, tt.password)
			}
			rec := httptest.NewRecorder()

			protected(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"code":"unauthorized"`) {
				t.Errorf("unexpected body: %s", rec.Body.String())
			}
		})
	}
}
