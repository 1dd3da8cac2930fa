package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/toko-admin/internal/common"
)

// ConsoleUserHeader names the console operator a token is issued for.
const ConsoleUserHeader = "X-Console-User"

const defaultSubject = "console"

// Handler exposes the token endpoint.
type Handler struct {
	Issuer *Issuer
}

type tokenResponse struct {
	Token     string    `json:"token"`
	Role      Role      `json:"role"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// GenerateToken handles GET /api/v1.0/generateToken?role=admin|superadmin.
func (h *Handler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Issuer == nil {
		common.NotConfigured(w, "token issuer")
		return
	}
	role, err := ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		common.WriteError(w, common.BadRequest("role", "role must be admin or superadmin", err))
		return
	}
	subject := strings.TrimSpace(r.Header.Get(ConsoleUserHeader))
	if subject == "" {
		subject = defaultSubject
	}
	token, expiresAt, err := h.Issuer.Issue(subject, role)
	if err != nil {
		common.WriteError(w, common.Internal(err))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	common.JSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		Role:      role,
		Subject:   subject,
		ExpiresAt: expiresAt.UTC(),
	})
}
