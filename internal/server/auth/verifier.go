// Package auth verifies identity-provider tokens: RS256 JWTs whose signing
// keys are published as a JWKS document (AWS Cognito user pools).
package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/workout/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure other than an unknown key.
var ErrInvalidToken = fmt.Errorf("%w: invalid token", common.ErrAuthentication)

// Identity is what a verified token asserts about its bearer.
type Identity struct {
	Subject string
	// Email is empty when the token carries no email claim.
	Email string
}

// Claims are the token claims read by the verifier.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	TokenUse string `json:"token_use,omitempty"`
}

// KeyProvider resolves a key id to a verification key. *KeySet implements it.
type KeyProvider interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

type Verifier struct {
	keys     KeyProvider
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

type VerifierOption func(*Verifier)

// WithLeeway tolerates small clock skew on exp/nbf/iat.
func WithLeeway(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.leeway = d }
}

func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier builds a verifier accepting tokens issued by issuer for audience.
func NewVerifier(keys KeyProvider, issuer, audience string, opts ...VerifierOption) *Verifier {
	v := &Verifier{keys: keys, issuer: issuer, audience: audience, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks signature, expiry, audience and issuer, then returns the
// token's subject and email. Failures are ErrKeyNotFound or ErrInvalidToken,
// except a key-set fetch failure, which is common.ErrInfrastructure.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("token header has no kid")
			}
			return v.keys.Key(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInfrastructure):
			return nil, err
		case errors.Is(err, ErrKeyNotFound):
			return nil, ErrKeyNotFound
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}

	return &Identity{Subject: claims.Subject, Email: claims.Email}, nil
}
