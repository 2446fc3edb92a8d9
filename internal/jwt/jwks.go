package jwt

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// JWK is the subset of RFC 7517 this server reads and publishes.
type JWK struct {
	KID string `json:"kid"`
	Kty string `json:"kty"`
	Crv string `json:"crv,omitempty"`
	Alg string `json:"alg,omitempty"`
	Use string `json:"use,omitempty"`
	X   string `json:"x,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
}

// JWKS is a JSON Web Key Set.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWKSJSON serializes the tenant's public keys as a JWKS document.
func (k *Keystore) JWKSJSON(tenant string) ([]byte, error) {
	k.mu.RLock()
	keys := k.byTenant[tenant]
	k.mu.RUnlock()

	set := JWKS{Keys: make([]JWK, 0, len(keys))}
	for _, key := range keys {
		jwk, err := publicJWK(key)
		if err != nil {
			continue
		}
		set.Keys = append(set.Keys, jwk)
	}
	return json.Marshal(set)
}

func publicJWK(key SigningKey) (JWK, error) {
	switch pub := key.Public.(type) {
	case ed25519.PublicKey:
		return JWK{
			KID: key.KID,
			Kty: "OKP",
			Crv: "Ed25519",
			Alg: key.Alg,
			Use: "sig",
			X:   base64.RawURLEncoding.EncodeToString(pub),
		}, nil
	case *rsa.PublicKey:
		return JWK{
			KID: key.KID,
			Kty: "RSA",
			Alg: key.Alg,
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}, nil
	default:
		return JWK{}, fmt.Errorf("unsupported public key type %T", key.Public)
	}
}

// ParseJWKS decodes a JWKS document into public keys keyed by KID.
// Used to verify private_key_jwt client assertions against the keys a
// client registered. Unsupported key types are skipped.
func ParseJWKS(raw string) (map[string]crypto.PublicKey, error) {
	if raw == "" {
		return nil, errors.New("empty jwks")
	}
	var set JWKS
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, fmt.Errorf("parse jwks: %w", err)
	}

	out := make(map[string]crypto.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		pub, err := publicKeyFromJWK(jwk)
		if err != nil {
			continue
		}
		out[jwk.KID] = pub
	}
	if len(out) == 0 {
		return nil, errors.New("jwks has no usable keys")
	}
	return out, nil
}

func publicKeyFromJWK(jwk JWK) (crypto.PublicKey, error) {
	switch jwk.Kty {
	case "OKP":
		if jwk.Crv != "Ed25519" {
			return nil, fmt.Errorf("unsupported OKP curve %q", jwk.Crv)
		}
		x, err := base64.RawURLEncoding.DecodeString(jwk.X)
		if err != nil || len(x) != ed25519.PublicKeySize {
			return nil, errors.New("invalid OKP x")
		}
		return ed25519.PublicKey(x), nil
	case "RSA":
		n, err := base64.RawURLEncoding.DecodeString(jwk.N)
		if err != nil {
			return nil, errors.New("invalid RSA n")
		}
		e, err := base64.RawURLEncoding.DecodeString(jwk.E)
		if err != nil {
			return nil, errors.New("invalid RSA e")
		}
		return &rsa.PublicKey{
			N: new(big.Int).SetBytes(n),
			E: int(new(big.Int).SetBytes(e).Int64()),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported kty %q", jwk.Kty)
	}
}
