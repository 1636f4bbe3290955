// Package auth provides user signup/login, the Authenticator capability
// used to hash and verify passwords, and signed session tokens.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUnauthorized is returned on bad credentials or an invalid token.
	ErrUnauthorized = errors.New("auth: invalid credentials")
)

// Authenticator hashes and verifies passwords.
type Authenticator interface {
	Hash(password string) (string, error)
	// Verify returns ErrUnauthorized when password does not match hash.
	Verify(hash, password string) error
}

// BcryptAuthenticator implements Authenticator with bcrypt.
type BcryptAuthenticator struct {
	Cost int
}

// NewBcryptAuthenticator uses bcrypt.DefaultCost when cost is 0.
func NewBcryptAuthenticator(cost int) *BcryptAuthenticator {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptAuthenticator{Cost: cost}
}

func (a *BcryptAuthenticator) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (a *BcryptAuthenticator) Verify(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrUnauthorized
	}
	return nil
}

// Tokens issues and parses HS256 session tokens whose subject is a user ID.
type Tokens struct {
	issuer string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token issuer.
func NewTokens(issuer string, secret []byte, ttl time.Duration) *Tokens {
	return &Tokens{issuer: issuer, secret: secret, ttl: ttl, now: time.Now}
}

// Sign returns a token for userID.
func (t *Tokens) Sign(userID string) (string, error) {
	now := t.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(t.secret)
}

// Parse validates token and returns its subject.
func (t *Tokens) Parse(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithTimeFunc(t.now))
	if err != nil {
		return "", ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}
