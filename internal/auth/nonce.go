package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidNonce is returned for missing, expired or mismatched
// anti-forgery tokens.
var ErrInvalidNonce = errors.New("invalid nonce")

// Nonces issues short lived anti-forgery tokens bound to an action name and
// a subject. Admin forms embed one per action.
type Nonces struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type nonceClaims struct {
	jwt.RegisteredClaims
	Action string `json:"act"`
}

// NewNonces returns an issuer. ttl defaults to 12 hours.
func NewNonces(secret string, ttl time.Duration) *Nonces {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Nonces{secret: []byte("nonce:" + secret), ttl: ttl, now: time.Now}
}

// Issue returns a token for action on behalf of subject.
func (n *Nonces) Issue(action, subject string) (string, error) {
	now := n.now()
	c := nonceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(n.ttl)),
		},
		Action: action,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(n.secret)
}

// Verify checks that tok was issued for action and subject and has not
// expired.
func (n *Nonces) Verify(tok, action, subject string) error {
	if tok == "" {
		return ErrInvalidNonce
	}
	var c nonceClaims
	parsed, err := jwt.ParseWithClaims(tok, &c, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return n.secret, nil
	}, jwt.WithTimeFunc(n.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidNonce, err)
	}
	if c.Action != action || c.Subject != subject {
		return ErrInvalidNonce
	}
	return nil
}
