// Package auth issues console tokens and attaches their claims to requests.
// It never rejects a request: routes stay reachable without a token.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/toko-admin/internal/common"
)

const (
	roleClaim       = "role"
	defaultTokenTTL = 12 * time.Hour
)

// Role is the console role carried by a token.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// ParseRole accepts admin or superadmin case-insensitively. Empty is admin.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "admin":
		return RoleAdmin, nil
	case "superadmin":
		return RoleSuperadmin, nil
	default:
		return "", fmt.Errorf("auth: unknown role %q", s)
	}
}

// Config configures the Issuer.
type Config struct {
	Secret    string
	TTL       time.Duration
	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

// Claims are the attributes read back from a verified token.
type Claims struct {
	Subject   string
	Role      Role
	ExpiresAt time.Time
}

// Issuer signs and verifies HS256 console tokens.
type Issuer struct {
	secret    []byte
	ttl       time.Duration
	issuer    string
	audience  string
	clockSkew time.Duration
	signer    jwa.SignatureAlgorithm
	validator TokenValidator
	now       func() time.Time
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth: secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = 30 * time.Second
	}
	return &Issuer{
		secret:    []byte(cfg.Secret),
		ttl:       ttl,
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		clockSkew: skew,
		signer:    jwa.HS256,
		validator: TokenValidator{
			Issuer:    cfg.Issuer,
			Audience:  cfg.Audience,
			ClockSkew: skew,
			Algorithm: jwa.HS256,
		},
		now: time.Now,
	}, nil
}

// WithNow overrides the clock, for tests.
func (i *Issuer) WithNow(now func() time.Time) {
	if now != nil {
		i.now = now
	}
}

// Issue signs a token for subject with role.
func (i *Issuer) Issue(subject string, role Role) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)
	builder := jwt.NewBuilder().
		Subject(subject).
		IssuedAt(now).
		NotBefore(now.Add(-i.clockSkew)).
		Expiration(expiresAt).
		Claim(roleClaim, string(role))
	if i.issuer != "" {
		builder = builder.Issuer(i.issuer)
	}
	if i.audience != "" {
		builder = builder.Audience([]string{i.audience})
	}
	token, err := builder.Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(i.signer, i.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

// Parse verifies token and returns its claims.
func (i *Issuer) Parse(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if algorithm != i.signer {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, i.secret), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := i.validator.Validate(parsed, algorithm, i.now()); err != nil {
		return Claims{}, common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	role, _ := roleOf(parsed)
	return Claims{Subject: parsed.Subject(), Role: role, ExpiresAt: parsed.Expiration()}, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) != 1 {
		return "", errors.New("auth: token must carry exactly one signature")
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	alg := headers.Algorithm()
	switch alg {
	case "":
		return "", errors.New("auth: token missing algorithm")
	case jwa.NoSignature:
		return "", errors.New("auth: token uses none algorithm")
	}
	return alg, nil
}
