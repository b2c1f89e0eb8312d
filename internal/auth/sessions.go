// Package auth gates the admin surface behind a single password and issues
// short-lived HS256 session tokens for it. Deployments without a configured
// password run open, which matches local development.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = 12 * time.Hour

var (
	// ErrInvalidPassword indicates a failed admin login attempt.
	ErrInvalidPassword = errors.New("auth: invalid password")
	// ErrInvalidSessionToken indicates a token that fails validation.
	ErrInvalidSessionToken = errors.New("auth: invalid session token")
	// ErrAuthDisabled indicates a login attempt against an open deployment.
	ErrAuthDisabled = errors.New("auth: no admin password configured")

	errMissingSigningSecret = errors.New("auth: signing secret required when password is set")
)

// ManagerConfig configures the admin session manager.
type ManagerConfig struct {
	AdminPassword string
	SigningSecret []byte
	Issuer        string
	TokenTTL      time.Duration
	Clock         func() time.Time
}

// Manager checks the admin password and issues/validates session JWTs.
type Manager struct {
	password      string
	signingSecret []byte
	issuer        string
	tokenTTL      time.Duration
	clock         func() time.Time
}

// NewManager constructs a Manager. An empty password disables authentication.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if strings.TrimSpace(cfg.AdminPassword) != "" && len(cfg.SigningSecret) == 0 {
		return nil, errMissingSigningSecret
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "showcase-api"
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		password:      cfg.AdminPassword,
		signingSecret: cfg.SigningSecret,
		issuer:        issuer,
		tokenTTL:      ttl,
		clock:         clock,
	}, nil
}

// Enabled reports whether logins are required for the admin surface.
func (m *Manager) Enabled() bool {
	return m.password != ""
}

// Login checks the password in constant time and issues a session token with
// its lifetime in seconds.
func (m *Manager) Login(password string) (string, int64, error) {
	if !m.Enabled() {
		return "", 0, ErrAuthDisabled
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(m.password)) != 1 {
		return "", 0, ErrInvalidPassword
	}

	now := m.clock().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		Issuer:    m.issuer,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signingSecret)
	if err != nil {
		return "", 0, fmt.Errorf("auth: sign session token: %w", err)
	}
	return signed, int64(m.tokenTTL.Seconds()), nil
}

// ValidateToken verifies a session token and returns its subject.
func (m *Manager) ValidateToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method", ErrInvalidSessionToken)
		}
		return m.signingSecret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(func() time.Time { return m.clock().UTC() }))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidSessionToken
	}
	return claims.Subject, nil
}
