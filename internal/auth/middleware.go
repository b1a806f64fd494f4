package auth

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
)

const (
	AdminIDHeader       = "X-Admin-Id"
	AdminPasswordHeader = "X-Admin-Password"
)

// AdminGate only lets requests carrying the configured admin credentials
// through.
type AdminGate struct {
	id       []byte
	password []byte
	logger   *slog.Logger
}

func NewAdminGate(id, password string, logger *slog.Logger) *AdminGate {
	return &AdminGate{id: []byte(id), password: []byte(password), logger: logger}
}

func (g *AdminGate) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.authorized(r) {
			g.logger.WarnContext(r.Context(), "admin credentials rejected", "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "admin credentials required",
				"code":  "unauthorized",
			})
			return
		}
		next(w, r)
	}
}

func (g *AdminGate) authorized(r *http.Request) bool {
	id := []byte(r.Header.Get(AdminIDHeader))
	password := []byte(r.Header.Get(AdminPasswordHeader))

	// Evaluate both so the response time does not reveal which one failed.
	idOK := subtle.ConstantTimeCompare(id, g.id)
	passwordOK := subtle.ConstantTimeCompare(password, g.password)
	return idOK&passwordOK == 1
}
