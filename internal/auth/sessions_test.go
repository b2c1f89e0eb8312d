package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T, clock func() time.Time) *Manager {
	t.Helper()
	manager, err := NewManager(ManagerConfig{
		AdminPassword: "correct horse",
		SigningSecret: []byte("test-secret"),
		TokenTTL:      time.Hour,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return manager
}

func TestNewManagerRequiresSecretWithPassword(t *testing.T) {
	if _, err := NewManager(ManagerConfig{AdminPassword: "pw"}); err == nil {
		t.Fatalf("expected error when password set without signing secret")
	}
}

func TestManagerDisabledWithoutPassword(t *testing.T) {
	manager, err := NewManager(ManagerConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if manager.Enabled() {
		t.Fatalf("expected auth disabled")
	}
	if _, _, err := manager.Login("anything"); !errors.Is(err, ErrAuthDisabled) {
		t.Fatalf("expected auth disabled error, got %v", err)
	}
}

func TestLoginIssuesValidatableToken(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	manager := newTestManager(t, func() time.Time { return now })

	token, expiresIn, err := manager.Login("correct horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expiresIn != 3600 {
		t.Fatalf("expected 3600s lifetime, got %d", expiresIn)
	}

	subject, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "admin" {
		t.Fatalf("expected admin subject, got %q", subject)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	manager := newTestManager(t, nil)

	if _, _, err := manager.Login("wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected invalid password error, got %v", err)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	manager := newTestManager(t, func() time.Time { return now })

	token, _, err := manager.Login("correct horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := manager.ValidateToken(token); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	manager := newTestManager(t, nil)
	if _, err := manager.ValidateToken("not.a.jwt"); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}
