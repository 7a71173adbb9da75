package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundtrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	token, err := tm.Issue("u1", "alice")
	if err != nil {
		t.Fatalf("issuing: %v", err)
	}

	userID, username, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("verifying: %v", err)
	}
	if userID != "u1" || username != "alice" {
		t.Fatalf("claims = (%q, %q), want (u1, alice)", userID, username)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", time.Hour).Issue("u1", "alice")
	if err != nil {
		t.Fatalf("issuing: %v", err)
	}

	if _, _, err := NewTokenManager("secret-b", time.Hour).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenExpired(t *testing.T) {
	tm := NewTokenManager("secret", -time.Minute)

	token, err := tm.Issue("u1", "alice")
	if err != nil {
		t.Fatalf("issuing: %v", err)
	}
	if _, _, err := tm.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for an expired token, got %v", err)
	}
}

func TestTokenGarbage(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	if _, _, err := tm.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
