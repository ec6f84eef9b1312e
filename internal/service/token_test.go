package service

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestIssueAndVerify(t *testing.T) {
	s := NewTokenService("test-secret", time.Hour, zap.NewNop())

	token, expiresAt, err := s.Issue(42)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}
	if remaining := time.Until(expiresAt); remaining < 59*time.Minute || remaining > time.Hour {
		t.Errorf("unexpected expiry %v from now", remaining)
	}

	userID, ok := s.Verify(token)
	if !ok {
		t.Fatal("Verify() = false for freshly issued token")
	}
	if userID != 42 {
		t.Errorf("Verify() user id = %d, want 42", userID)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	// TTL well past the clock-skew leeway so the token is already expired.
	s := NewTokenService("test-secret", -5*time.Minute, zap.NewNop())

	token, _, err := s.Issue(42)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, ok := s.Verify(token); ok {
		t.Error("Verify() = true for expired token, want false")
	}
}

func TestVerifyWithinLeeway(t *testing.T) {
	// Expired ten seconds ago, inside the 30s leeway: still accepted.
	s := NewTokenService("test-secret", -10*time.Second, zap.NewNop())

	token, _, err := s.Issue(7)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, ok := s.Verify(token); !ok {
		t.Error("Verify() = false for token inside leeway, want true")
	}
}

func TestVerifyRejectsInvalidTokens(t *testing.T) {
	s := NewTokenService("test-secret", time.Hour, zap.NewNop())
	other := NewTokenService("different-secret", time.Hour, zap.NewNop())

	forged, _, err := other.Issue(42)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"garbage token", "not-a-jwt"},
		{"wrong segment count", "a.b"},
		{"wrong secret", forged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := s.Verify(tt.token); ok {
				t.Error("Verify() = true, want false")
			}
		})
	}
}
