package admin

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/platforma-dev/keepalive/log"
)

// AuthMiddleware checks the bearer token of admin requests against a bcrypt hash.
type AuthMiddleware struct {
	tokenHash []byte
}

// NewAuthMiddleware returns a middleware for tokenHash. An empty hash lets every request through.
func NewAuthMiddleware(tokenHash string) *AuthMiddleware {
	return &AuthMiddleware{tokenHash: []byte(tokenHash)}
}

// Wrap rejects requests without a matching "Authorization: Bearer" token with 401.
func (m *AuthMiddleware) Wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.tokenHash) == 0 {
			h.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="keepalive"`)
			writeError(r.Context(), w, http.StatusUnauthorized, errUnauthorized)
			return
		}

		if err := bcrypt.CompareHashAndPassword(m.tokenHash, []byte(token)); err != nil {
			log.WarnContext(r.Context(), "rejected admin request", "path", r.URL.Path, "addr", r.RemoteAddr)
			writeError(r.Context(), w, http.StatusUnauthorized, errUnauthorized)
			return
		}

		h.ServeHTTP(w, r)
	})
}

// HashToken returns the bcrypt hash of token for the admin configuration.
func HashToken(token string) (string, error) {
	if token == "" {
		return "", errEmptyToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}

	return string(hash), nil
}
