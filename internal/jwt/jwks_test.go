package jwt

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestJWKSRoundTrip(t *testing.T) {
	key, err := NewEd25519SigningKey("acme", "k1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	keys := NewKeystore()
	keys.Add(key, true)

	doc, err := keys.JWKSJSON("acme")
	if err != nil {
		t.Fatalf("jwks json: %v", err)
	}

	var set JWKS
	if err := json.Unmarshal(doc, &set); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(set.Keys) != 1 {
		t.Fatalf("keys = %d", len(set.Keys))
	}
	jwk := set.Keys[0]
	if jwk.KID != "k1" || jwk.Kty != "OKP" || jwk.Crv != "Ed25519" || jwk.Use != "sig" {
		t.Fatalf("jwk = %+v", jwk)
	}

	parsed, err := ParseJWKS(string(doc))
	if err != nil {
		t.Fatalf("parse jwks: %v", err)
	}
	pub, ok := parsed["k1"].(ed25519.PublicKey)
	if !ok {
		t.Fatalf("parsed key type %T", parsed["k1"])
	}
	if !pub.Equal(key.Public.(ed25519.PublicKey)) {
		t.Fatal("public key did not survive the round trip")
	}
}

func TestParseJWKSRejectsUnusable(t *testing.T) {
	cases := []string{
		"",
		"{not json",
		`{"keys":[]}`,
		`{"keys":[{"kid":"k1","kty":"EC","crv":"P-256"}]}`,
	}
	for _, raw := range cases {
		if _, err := ParseJWKS(raw); err == nil {
			t.Fatalf("jwks %q accepted", raw)
		}
	}
}

func TestKeystoreSeedDerivationIsDeterministic(t *testing.T) {
	seed := base64.RawURLEncoding.EncodeToString(make([]byte, ed25519.SeedSize))

	a, err := Ed25519SigningKeyFromSeed("acme", "k1", seed)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b, err := Ed25519SigningKeyFromSeed("acme", "k1", seed)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !a.Public.(ed25519.PublicKey).Equal(b.Public.(ed25519.PublicKey)) {
		t.Fatal("same seed produced different keys")
	}

	if _, err := Ed25519SigningKeyFromSeed("acme", "k1", "dG9vLXNob3J0"); err == nil {
		t.Fatal("short seed accepted")
	}
}

func TestKeystoreActiveAndKIDLookup(t *testing.T) {
	k1, _ := NewEd25519SigningKey("acme", "k1")
	k2, _ := NewEd25519SigningKey("acme", "k2")

	keys := NewKeystore()
	keys.Add(k1, false)
	keys.Add(k2, true)

	active, err := keys.ActiveForTenant("acme")
	if err != nil || active.KID != "k2" {
		t.Fatalf("active = %v, err = %v", active, err)
	}
	// Retiring keys stay resolvable by KID for verification.
	old, err := keys.KeyByKID("acme", "k1")
	if err != nil || old.KID != "k1" {
		t.Fatalf("kid lookup = %v, err = %v", old, err)
	}
	if _, err := keys.ActiveForTenant("ghost"); err == nil {
		t.Fatal("unknown tenant has an active key")
	}
}
