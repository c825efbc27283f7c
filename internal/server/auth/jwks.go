package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/workout/internal/common"
	"github.com/dmitrijs2005/workout/internal/logging"
	"golang.org/x/sync/singleflight"
)

// ErrKeyNotFound means no key in the provider's set matches the token's kid,
// even after a refresh.
var ErrKeyNotFound = fmt.Errorf("%w: key not found", common.ErrAuthentication)

// KeySet caches the identity provider's RSA signing keys.
//
// The set is fetched on first use and again once it is older than maxAge.
// A lookup for an unknown kid triggers one refresh, but never more often than
// minRefresh, so a stream of tokens with made-up kids cannot hammer the
// provider. Concurrent refreshes share a single HTTP request; lookups that hit
// a fresh cache never wait for one.
type KeySet struct {
	url        string
	client     *http.Client
	maxAge     time.Duration
	minRefresh time.Duration
	now        func() time.Time
	logger     logging.Logger

	group singleflight.Group

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

type KeySetOption func(*KeySet)

func WithHTTPClient(c *http.Client) KeySetOption {
	return func(k *KeySet) { k.client = c }
}

// WithMaxAge sets how long a fetched set is trusted. Zero disables expiry.
func WithMaxAge(d time.Duration) KeySetOption {
	return func(k *KeySet) { k.maxAge = d }
}

func WithMinRefreshInterval(d time.Duration) KeySetOption {
	return func(k *KeySet) { k.minRefresh = d }
}

func WithLogger(l logging.Logger) KeySetOption {
	return func(k *KeySet) { k.logger = l }
}

func WithClock(now func() time.Time) KeySetOption {
	return func(k *KeySet) { k.now = now }
}

// NewKeySet returns a KeySet that loads keys from the JWKS document at url.
func NewKeySet(url string, opts ...KeySetOption) *KeySet {
	k := &KeySet{
		url:        url,
		client:     &http.Client{Timeout: 5 * time.Second},
		maxAge:     12 * time.Hour,
		minRefresh: time.Minute,
		now:        time.Now,
		logger:     logging.Nop{},
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Key returns the public key with the given kid.
func (k *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	key, fetchedAt, found := k.lookup(kid)

	stale := fetchedAt.IsZero() || (k.maxAge > 0 && k.now().Sub(fetchedAt) >= k.maxAge)
	if found && !stale {
		return key, nil
	}
	if !found && !stale && k.now().Sub(fetchedAt) < k.minRefresh {
		return nil, ErrKeyNotFound
	}

	if err := k.refresh(ctx); err != nil {
		if fetchedAt.IsZero() {
			return nil, err
		}
		// keep answering from the previous set while the provider is unreachable
		k.logger.Warn(ctx, "jwks refresh failed, using cached keys", "kid", kid, "error", err)
		if found {
			return key, nil
		}
		return nil, ErrKeyNotFound
	}

	key, _, found = k.lookup(kid)
	if !found {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

func (k *KeySet) lookup(kid string) (*rsa.PublicKey, time.Time, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.keys[kid]
	return key, k.fetchedAt, ok
}

func (k *KeySet) refresh(ctx context.Context) error {
	// The fetch is shared by every waiting caller, so it must not be cut short
	// by whichever request happened to start it.
	ctx = context.WithoutCancel(ctx)

	_, err, _ := k.group.Do(k.url, func() (any, error) {
		keys, err := k.fetch(ctx)
		if err != nil {
			return nil, err
		}
		k.mu.Lock()
		k.keys = keys
		k.fetchedAt = k.now()
		k.mu.Unlock()
		return nil, nil
	})
	return err
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (k *KeySet) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: jwks request: %v", common.ErrInfrastructure, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch jwks: %v", common.ErrInfrastructure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: fetch jwks: %s: %s", common.ErrInfrastructure, resp.Status, string(b))
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode jwks: %v", common.ErrInfrastructure, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, j := range doc.Keys {
		if j.Kty != "RSA" || j.Kid == "" || (j.Use != "" && j.Use != "sig") {
			continue
		}
		pub, err := j.rsaPublicKey()
		if err != nil {
			continue
		}
		keys[j.Kid] = pub
	}
	return keys, nil
}

func (j jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	if len(nb) == 0 || len(eb) == 0 || len(eb) > 4 {
		return nil, errors.New("malformed rsa key")
	}

	e := new(big.Int).SetBytes(eb)
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(e.Int64())}, nil
}
