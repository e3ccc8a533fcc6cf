// Package auth verifies and mints the bearer tokens that carry a caller's
// identity, and moves that identity through gRPC contexts.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matheus3301/parley/internal/chat"
)

// Claims are the identity-provider claims parley understands.
type Claims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens issued by a trusted issuer.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier creates a verifier for tokens signed with secret. An empty
// issuer accepts any issuer.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Verify parses a token and returns the identity it asserts.
func (v *Verifier) Verify(token string) (*chat.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("verify token: missing subject")
	}
	return &chat.Identity{
		Subject:    claims.Subject,
		Name:       claims.Name,
		Email:      claims.Email,
		PictureURL: claims.Picture,
	}, nil
}

// Mint issues a token for id valid for ttl from now.
func Mint(secret, issuer string, id chat.Identity, ttl time.Duration, now time.Time) (string, error) {
	if id.Subject == "" {
		return "", errors.New("mint token: subject is required")
	}
	claims := Claims{
		Name:    id.Name,
		Email:   id.Email,
		Picture: id.PictureURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
