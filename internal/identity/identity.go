// Package identity issues and verifies the bearer tokens that carry the
// acting user's id and role.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zulandar/tracewell/internal/config"
	"github.com/zulandar/tracewell/internal/role"
)

var (
	// ErrMissingToken means the request carried no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken means the token failed signature, expiry or claim checks.
	ErrInvalidToken = errors.New("invalid token")
)

// Authenticator signs and verifies HS256 tokens with claims sub (user id)
// and role.
type Authenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// New creates an Authenticator from auth settings.
func New(cfg config.AuthConfig) *Authenticator {
	return &Authenticator{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
		now:    time.Now,
	}
}

// Issue signs a token for actor. A zero ttl uses the configured default.
func (a *Authenticator) Issue(actor role.Actor, ttl time.Duration) (string, error) {
	if actor.Anonymous() {
		return "", fmt.Errorf("identity: issue: subject is required")
	}
	if !actor.Role.Valid() {
		return "", fmt.Errorf("identity: issue: %q: %w", actor.Role, role.ErrUnknownRole)
	}
	if ttl <= 0 {
		ttl = a.ttl
	}
	now := a.now()
	claims := jwt.MapClaims{
		"sub":  actor.ID,
		"role": string(actor.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	if a.issuer != "" {
		claims["iss"] = a.issuer
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("identity: sign: %w", err)
	}
	return signed, nil
}

// Verify checks the token and resolves the actor. A role claim outside the
// known set yields role.ErrUnknownRole rather than a roleless actor.
func (a *Authenticator) Verify(token string) (role.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return role.Actor{}, fmt.Errorf("identity: %w", ErrInvalidToken)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return role.Actor{}, fmt.Errorf("identity: %w", ErrInvalidToken)
	}

	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return role.Actor{}, fmt.Errorf("identity: no subject: %w", ErrInvalidToken)
	}
	raw, _ := claims["role"].(string)
	r, err := role.Parse(raw)
	if err != nil {
		return role.Actor{}, fmt.Errorf("identity: %w", err)
	}
	return role.Actor{ID: sub, Role: r}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("identity: malformed authorization header: %w", ErrInvalidToken)
	}
	return strings.TrimSpace(parts[1]), nil
}
