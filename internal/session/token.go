package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for tokens that fail signature or claim checks.
	ErrInvalidToken = errors.New("invalid identity token")
	// ErrUnauthorizedEmail is returned when the token's email is not allowed to sign in.
	ErrUnauthorizedEmail = errors.New("unauthorized email")
)

// Claims is the identity token payload.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticator turns identity tokens into identities. Only emails in the
// allow list may sign in; an empty list allows everyone.
type Authenticator struct {
	key     []byte
	allowed map[string]struct{}
}

// NewAuthenticator returns an authenticator using the HMAC secret.
func NewAuthenticator(secret string, allowedEmails []string) (*Authenticator, error) {
	if secret == "" {
		return nil, fmt.Errorf("empty auth secret")
	}
	a := &Authenticator{key: []byte(secret), allowed: make(map[string]struct{})}
	for _, e := range allowedEmails {
		if e = normalizeEmail(e); e != "" {
			a.allowed[e] = struct{}{}
		}
	}
	return a, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Allowed reports whether email may sign in.
func (a *Authenticator) Allowed(email string) bool {
	if len(a.allowed) == 0 {
		return true
	}
	_, ok := a.allowed[normalizeEmail(email)]
	return ok
}

// Issue signs a token for uid and email valid for ttl.
func (a *Authenticator) Issue(uid, email string, ttl time.Duration) (string, error) {
	if uid == "" {
		return "", fmt.Errorf("empty uid")
	}
	email = normalizeEmail(email)
	if !a.Allowed(email) {
		return "", ErrUnauthorizedEmail
	}
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify parses token and returns the identity it carries.
func (a *Authenticator) Verify(token string) (Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if !a.Allowed(claims.Email) {
		return Identity{}, ErrUnauthorizedEmail
	}
	return Identity{UID: claims.Subject, Email: normalizeEmail(claims.Email)}, nil
}
