// Package auth verifies the identity token a client presents in its
// handshake line.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"castle-wars/internal/config"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid identity token")

// Identity is who a verified token speaks for.
type Identity struct {
	Subject string
	Name    string // Display name claim, may be empty
	Guest   bool   // No secret configured; the token was not checked
}

// Claims is the token payload.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 identity tokens. With no secret configured every
// non-empty token is accepted as a guest identity.
type Verifier struct {
	secret      []byte
	issuer      string
	adminSecret []byte
}

// NewVerifier creates a verifier from the auth config.
func NewVerifier(cfg config.AuthConfig) *Verifier {
	v := &Verifier{issuer: cfg.Issuer}
	if cfg.JWTSecret != "" {
		v.secret = []byte(cfg.JWTSecret)
	}
	if cfg.AdminSecret != "" {
		v.adminSecret = []byte(cfg.AdminSecret)
	}
	return v
}

// GuestMode reports whether tokens are accepted unchecked.
func (v *Verifier) GuestMode() bool { return len(v.secret) == 0 }

// Verify checks token and returns its identity.
func (v *Verifier) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	if v.GuestMode() {
		return Identity{Subject: "guest:" + token, Guest: true}, nil
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Identity{Subject: claims.Subject, Name: claims.Name}, nil
}

// Issue signs a token for subject. Used by tooling and tests.
func (v *Verifier) Issue(subject, name string, ttl time.Duration) (string, error) {
	if v.GuestMode() {
		return "", errors.New("no secret configured")
	}
	now := time.Now()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// AdminEnabled reports whether an admin secret is configured.
func (v *Verifier) AdminEnabled() bool { return len(v.adminSecret) > 0 }

// CheckAdmin compares a bearer secret in constant time.
func (v *Verifier) CheckAdmin(bearer string) bool {
	if !v.AdminEnabled() {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(bearer), v.adminSecret) == 1
}
