package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bookhub/pkg/utils"
)

// TokenService issues and validates the bearer tokens that gate the
// destructive history endpoints. Search and streaming stay public, so
// claims stay minimal: a stable subject for the delete handler plus the
// username for display.
type TokenService struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
}

func NewTokenService(cfg utils.AuthConfig) TokenService {
	return TokenService{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		lifetime: cfg.JWTDuration,
	}
}

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID is the token subject.
func (c *Claims) UserID() string { return c.Subject }

// Issue signs a token for the user and reports when it expires.
func (ts TokenService) Issue(u *User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ts.lifetime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue token: %w", err)
	}
	return signed, exp, nil
}

// Parse checks signature, issuer, and expiry in one pass; tokens from
// another issuer sharing the secret are rejected.
func (ts TokenService) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return ts.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ts.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}
