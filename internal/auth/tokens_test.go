package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueVerifyRoundtrip(t *testing.T) {
	m, err := NewManager("secret", time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m.Issue(5, "ada", []string{"user", "artist"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, userID, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != 5 || claims.Username != "ada" {
		t.Fatalf("unexpected claims: id=%d username=%q", userID, claims.Username)
	}
	if len(claims.Roles) != 2 || claims.Roles[1] != "artist" {
		t.Fatalf("unexpected roles: %v", claims.Roles)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer, _ := NewManager("secret-a", time.Hour)
	verifier, _ := NewManager("secret-b", time.Hour)

	token, err := issuer.Issue(5, "ada", nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	m := &Manager{secret: []byte("secret"), ttl: -time.Minute}

	token, err := m.Issue(5, "ada", nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	m, _ := NewManager("secret", time.Hour)

	if _, _, err := m.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager("", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
