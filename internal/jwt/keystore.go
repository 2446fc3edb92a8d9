// Package jwt holds the tenant signing keystore used for JWT access
// tokens and ID tokens.
package jwt

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoActiveKey = errors.New("no active signing key for tenant")
	ErrKeyNotFound = errors.New("signing key not found")
)

// SigningKey is one asymmetric key of a tenant's key set.
type SigningKey struct {
	TenantID string
	KID      string
	Alg      string // "EdDSA"
	Private  crypto.PrivateKey
	Public   crypto.PublicKey
}

// Keystore keeps per-tenant signing keys. Populated once at startup,
// read-only afterwards; safe for concurrent reads.
type Keystore struct {
	mu       sync.RWMutex
	byTenant map[string][]SigningKey
	active   map[string]string // tenant -> active KID
}

func NewKeystore() *Keystore {
	return &Keystore{
		byTenant: make(map[string][]SigningKey),
		active:   make(map[string]string),
	}
}

// Add registers a key for its tenant. The first key added for a tenant
// becomes active unless markActive is set on a later one.
func (k *Keystore) Add(key SigningKey, markActive bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.byTenant[key.TenantID] = append(k.byTenant[key.TenantID], key)
	if markActive || k.active[key.TenantID] == "" {
		k.active[key.TenantID] = key.KID
	}
}

// ActiveForTenant returns the tenant's active signing key.
func (k *Keystore) ActiveForTenant(tenant string) (*SigningKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	kid, ok := k.active[tenant]
	if !ok {
		return nil, ErrNoActiveKey
	}
	for _, key := range k.byTenant[tenant] {
		if key.KID == kid {
			return &key, nil
		}
	}
	return nil, ErrNoActiveKey
}

// KeyByKID returns the tenant key with the given KID (active or retiring).
func (k *Keystore) KeyByKID(tenant, kid string) (*SigningKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	for _, key := range k.byTenant[tenant] {
		if key.KID == kid {
			return &key, nil
		}
	}
	return nil, ErrKeyNotFound
}

// Keyfunc returns a jwt.Keyfunc resolving the public key by the token's
// kid header within the tenant's key set.
func (k *Keystore) Keyfunc(tenant string) jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("kid_missing")
		}
		key, err := k.KeyByKID(tenant, kid)
		if err != nil {
			return nil, err
		}
		return key.Public, nil
	}
}

// SigningMethodForAlg maps a key algorithm to its jwt signing method.
func SigningMethodForAlg(alg string) (jwtv5.SigningMethod, error) {
	switch alg {
	case "EdDSA":
		return jwtv5.SigningMethodEdDSA, nil
	case "RS256":
		return jwtv5.SigningMethodRS256, nil
	case "ES256":
		return jwtv5.SigningMethodES256, nil
	default:
		return nil, fmt.Errorf("unsupported signing alg %q", alg)
	}
}

// Ed25519SigningKeyFromSeed derives a tenant key from a base64url raw
// 32-byte seed, the form the configuration file carries.
func Ed25519SigningKeyFromSeed(tenant, kid, seedB64 string) (SigningKey, error) {
	seed, err := base64.RawURLEncoding.DecodeString(seedB64)
	if err != nil {
		return SigningKey{}, fmt.Errorf("decode seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return SigningKey{}, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return SigningKey{
		TenantID: tenant,
		KID:      kid,
		Alg:      "EdDSA",
		Private:  priv,
		Public:   priv.Public(),
	}, nil
}

// NewEd25519SigningKey generates a fresh Ed25519 key for a tenant.
func NewEd25519SigningKey(tenant, kid string) (SigningKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return SigningKey{}, err
	}
	return SigningKey{
		TenantID: tenant,
		KID:      kid,
		Alg:      "EdDSA",
		Private:  priv,
		Public:   pub,
	}, nil
}
