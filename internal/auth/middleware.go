package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-admin/internal/common"
)

// Middleware attaches token claims to the request context.
type Middleware struct {
	Issuer *Issuer
	Logger zerolog.Logger
}

// Attach records the subject and role of a valid bearer token. Requests with
// a missing or invalid token pass through unchanged.
func (m Middleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || m.Issuer == nil {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := m.Issuer.Parse(token)
		if err != nil {
			m.Logger.Debug().Err(err).Msg("auth_token_ignored")
			next.ServeHTTP(w, r)
			return
		}
		ctx := common.WithUserID(r.Context(), claims.Subject)
		ctx = common.WithRole(ctx, string(claims.Role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
