package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashVerify(t *testing.T) {
	a := NewBcryptAuthenticator(bcrypt.MinCost)
	hash, err := a.Hash("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter2" {
		t.Fatal("hash must not equal the password")
	}
	if err := a.Verify(hash, "hunter2"); err != nil {
		t.Errorf("expected match, got %v", err)
	}
	if err := a.Verify(hash, "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestNewBcryptAuthenticator_DefaultCost(t *testing.T) {
	if a := NewBcryptAuthenticator(0); a.Cost != bcrypt.DefaultCost {
		t.Errorf("expected default cost %d, got %d", bcrypt.DefaultCost, a.Cost)
	}
}

func TestTokens_RoundTrip(t *testing.T) {
	tok := NewTokens("papertrade", []byte("secret"), time.Hour)
	signed, err := tok.Sign("user-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sub, err := tok.Parse(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sub != "user-1" {
		t.Errorf("expected subject user-1, got %s", sub)
	}
}

func TestTokens_Expired(t *testing.T) {
	tok := NewTokens("papertrade", []byte("secret"), time.Minute)
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tok.now = func() time.Time { return issued }
	signed, err := tok.Sign("user-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tok.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := tok.Parse(signed); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for expired token, got %v", err)
	}
}

func TestTokens_Rejects(t *testing.T) {
	tok := NewTokens("papertrade", []byte("secret"), time.Hour)

	other := NewTokens("someone-else", []byte("secret"), time.Hour)
	wrongIssuer, _ := other.Sign("user-1")

	forged := NewTokens("papertrade", []byte("not-the-secret"), time.Hour)
	wrongKey, _ := forged.Sign("user-1")

	for name, raw := range map[string]string{
		"wrong issuer": wrongIssuer,
		"wrong key":    wrongKey,
		"garbage":      "not.a.token",
		"empty":        "",
	} {
		if _, err := tok.Parse(raw); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("%s: expected ErrUnauthorized, got %v", name, err)
		}
	}
}
