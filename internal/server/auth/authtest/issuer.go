// Package authtest runs a throwaway identity provider for tests: an RSA
// signing key, a JWKS endpoint on httptest, and a token minter.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const Audience = "test-client-id"

// Issuer is a fake identity provider.
type Issuer struct {
	Server *httptest.Server
	// URL is the issuer ("iss") value; the JWKS lives under it.
	URL string

	mu      sync.Mutex
	keys    map[string]*rsa.PrivateKey
	current string
	hits    atomic.Int64
	fail    atomic.Bool
}

// NewIssuer starts a provider with one key, "kid-1". It is closed when the
// test ends.
func NewIssuer(t testing.TB) *Issuer {
	t.Helper()
	is := &Issuer{keys: map[string]*rsa.PrivateKey{}}
	is.AddKey(t, "kid-1")

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", is.serveJWKS)
	is.Server = httptest.NewServer(mux)
	is.URL = is.Server.URL
	t.Cleanup(is.Server.Close)
	return is
}

// JWKSURL is the key-set endpoint.
func (is *Issuer) JWKSURL() string { return is.URL + "/.well-known/jwks.json" }

// Hits reports how many times the JWKS endpoint was fetched.
func (is *Issuer) Hits() int64 { return is.hits.Load() }

// SetFailing makes the JWKS endpoint answer 503.
func (is *Issuer) SetFailing(fail bool) { is.fail.Store(fail) }

// AddKey generates a key, publishes it and makes it the signing key.
func (is *Issuer) AddKey(t testing.TB, kid string) {
	t.Helper()
	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	is.mu.Lock()
	defer is.mu.Unlock()
	is.keys[kid] = pk
	is.current = kid
}

// Token mints a valid ID token for sub. An empty email omits the claim.
func (is *Issuer) Token(t testing.TB, sub, email string) string {
	t.Helper()
	return is.Sign(t, is.Claims(sub, email), "")
}

// Claims returns the claims Token would use, for tests that need to tweak them.
func (is *Issuer) Claims(sub, email string) jwt.MapClaims {
	now := time.Now()
	c := jwt.MapClaims{
		"sub":       sub,
		"iss":       is.URL,
		"aud":       Audience,
		"token_use": "id",
		"iat":       now.Unix(),
		"exp":       now.Add(time.Hour).Unix(),
	}
	if email != "" {
		c["email"] = email
	}
	return c
}

// Sign signs claims with RS256 using the key kid, or the current key when kid
// is empty. A kid that was never added signs with the current key but keeps
// the requested header, which is how tests produce unknown-kid tokens.
func (is *Issuer) Sign(t testing.TB, claims jwt.Claims, kid string) string {
	t.Helper()
	is.mu.Lock()
	if kid == "" {
		kid = is.current
	}
	pk, ok := is.keys[kid]
	if !ok {
		pk = is.keys[is.current]
	}
	is.mu.Unlock()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(pk)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func (is *Issuer) serveJWKS(w http.ResponseWriter, _ *http.Request) {
	is.hits.Add(1)
	if is.fail.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	is.mu.Lock()
	keys := make([]map[string]string, 0, len(is.keys))
	for kid, pk := range is.keys {
		keys = append(keys, map[string]string{
			"kid": kid,
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pk.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pk.E)).Bytes()),
		})
	}
	is.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"keys": keys})
}
