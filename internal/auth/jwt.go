package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/faciam-dev/guidecms/internal/domain/capability"
)

// JWT handles token generation and validation.
type JWT struct {
	secret []byte
	exp    time.Duration
	now    func() time.Time
}

// Claims are the access token claims. Roles travel with the token so
// requests do not hit the users table.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// Principal converts the claims to the request principal.
func (c *Claims) Principal() capability.Principal {
	return capability.Principal{Subject: c.Subject, Roles: c.Roles}
}

// NewJWT returns a new JWT handler.
func NewJWT(secret string, exp time.Duration) *JWT {
	if exp <= 0 {
		exp = time.Hour
	}
	return &JWT{secret: []byte(secret), exp: exp, now: time.Now}
}

// TTL returns the lifetime of generated tokens.
func (j *JWT) TTL() time.Duration { return j.exp }

// Generate creates a signed token for subject and returns its expiry.
func (j *JWT) Generate(subject string, roles []string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("empty subject")
	}
	now := j.now()
	exp := now.Add(j.exp)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Roles: roles,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

// Validate parses and validates the token returning its claims.
func (j *JWT) Validate(tok string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
