package token

import (
	"crypto/x509"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	jwtx "github.com/dropDatabas3/tokengate/internal/jwt"
)

func testKeystore(t *testing.T, tenant string) *jwtx.Keystore {
	t.Helper()
	key, err := jwtx.NewEd25519SigningKey(tenant, "test-key-1")
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keys := jwtx.NewKeystore()
	keys.Add(key, true)
	return keys
}

func testServerConfig(tenant string) *repository.AuthorizationServerConfig {
	return &repository.AuthorizationServerConfig{
		TenantID:             tenant,
		TokenIssuer:          "https://issuer.example/" + tenant,
		AccessTokenDuration:  3600,
		RefreshTokenDuration: 86400,
	}
}

func testGrant(tenant string) repository.AuthorizationGrant {
	return repository.AuthorizationGrant{
		TenantID: tenant,
		Subject:  "user-1",
		ClientID: "client-1",
		Scopes:   []string{"openid", "profile"},
	}
}

func TestAccessTokenCreateUsesServerDuration(t *testing.T) {
	issuer := NewAccessTokenIssuer(testKeystore(t, "acme"), nil)

	at, err := issuer.Create(testGrant("acme"), testServerConfig("acme"),
		&repository.ClientConfig{TenantID: "acme", ClientID: "client-1"}, ClientCredentials{ClientID: "client-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if at.ExpiresIn != time.Hour {
		t.Fatalf("expires_in = %v, want 1h", at.ExpiresIn)
	}
	if !at.Entity.IsJWT() {
		t.Fatalf("entity kind = %v, want jwt", at.Entity.Kind)
	}
}

func TestAccessTokenCreateClientDurationOverride(t *testing.T) {
	issuer := NewAccessTokenIssuer(testKeystore(t, "acme"), nil)
	client := &repository.ClientConfig{TenantID: "acme", ClientID: "client-1", AccessTokenDuration: 60}

	at, err := issuer.Create(testGrant("acme"), testServerConfig("acme"), client, ClientCredentials{ClientID: "client-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if at.ExpiresIn != time.Minute {
		t.Fatalf("expires_in = %v, want 1m", at.ExpiresIn)
	}
	if got := at.ExpiresAt.Sub(at.CreatedAt); got != time.Minute {
		t.Fatalf("expires_at - created_at = %v, want 1m", got)
	}
}

func TestAccessTokenIdentifierType(t *testing.T) {
	issuer := NewAccessTokenIssuer(testKeystore(t, "acme"), nil)
	server := testServerConfig("acme")
	server.AccessTokenType = repository.AccessTokenTypeIdentifier

	at, err := issuer.Create(testGrant("acme"), server,
		&repository.ClientConfig{TenantID: "acme", ClientID: "client-1"}, ClientCredentials{ClientID: "client-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if at.Entity.Kind != EntityKindOpaque {
		t.Fatalf("entity kind = %v, want opaque", at.Entity.Kind)
	}
	// 24 random bytes encode to 32 base64url characters.
	if len(at.Entity.Value) != 32 {
		t.Fatalf("opaque value length = %d, want 32", len(at.Entity.Value))
	}
}

func TestAccessTokenJWTClaims(t *testing.T) {
	keys := testKeystore(t, "acme")
	issuer := NewAccessTokenIssuer(keys, nil)
	grant := testGrant("acme")
	grant.CustomProperties = map[string]any{"department": "billing"}

	at, err := issuer.Create(grant, testServerConfig("acme"),
		&repository.ClientConfig{TenantID: "acme", ClientID: "client-1"}, ClientCredentials{ClientID: "client-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	parsed, err := jwtv5.Parse(at.Entity.Value, keys.Keyfunc("acme"),
		jwtv5.WithValidMethods([]string{"EdDSA"}))
	if err != nil {
		t.Fatalf("parse signed token: %v", err)
	}
	if typ := parsed.Header["typ"]; typ != "at+jwt" {
		t.Fatalf("typ header = %v, want at+jwt", typ)
	}
	claims := parsed.Claims.(jwtv5.MapClaims)
	if claims["iss"] != "https://issuer.example/acme" {
		t.Fatalf("iss = %v", claims["iss"])
	}
	if claims["sub"] != "user-1" {
		t.Fatalf("sub = %v", claims["sub"])
	}
	if claims["client_id"] != "client-1" {
		t.Fatalf("client_id = %v", claims["client_id"])
	}
	if claims["scope"] != "openid profile" {
		t.Fatalf("scope = %v", claims["scope"])
	}
	if claims["department"] != "billing" {
		t.Fatalf("custom claim department = %v", claims["department"])
	}
	if _, ok := claims["cnf"]; ok {
		t.Fatal("cnf present without sender constraining")
	}
}

func TestAccessTokenRefreshPreserveKeepsExpiry(t *testing.T) {
	issuer := NewAccessTokenIssuer(testKeystore(t, "acme"), nil)
	server := testServerConfig("acme")
	server.AccessTokenStrategy = repository.TokenStrategyPreserve
	client := &repository.ClientConfig{TenantID: "acme", ClientID: "client-1"}
	creds := ClientCredentials{ClientID: "client-1"}

	old, err := issuer.Create(testGrant("acme"), server, client, creds)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	issuer.now = func() time.Time { return old.CreatedAt.Add(30 * time.Minute) }
	renewed, err := issuer.Refresh(old, old.Grant, server, client, creds)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !renewed.ExpiresAt.Equal(old.ExpiresAt) {
		t.Fatalf("preserve strategy changed expiry: old %v, renewed %v", old.ExpiresAt, renewed.ExpiresAt)
	}
}

func TestAccessTokenRefreshExtendsRecomputesExpiry(t *testing.T) {
	issuer := NewAccessTokenIssuer(testKeystore(t, "acme"), nil)
	server := testServerConfig("acme")
	client := &repository.ClientConfig{TenantID: "acme", ClientID: "client-1"}
	creds := ClientCredentials{ClientID: "client-1"}

	old, err := issuer.Create(testGrant("acme"), server, client, creds)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	later := old.CreatedAt.Add(30 * time.Minute)
	issuer.now = func() time.Time { return later }
	renewed, err := issuer.Refresh(old, old.Grant, server, client, creds)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	want := later.Add(time.Hour)
	if !renewed.ExpiresAt.Equal(want) {
		t.Fatalf("extends strategy expiry = %v, want %v", renewed.ExpiresAt, want)
	}
}

func TestSenderConstraintRequiresAllThreeGates(t *testing.T) {
	cert := &x509.Certificate{Raw: []byte("der-bytes")}

	cases := []struct {
		name       string
		authMethod string
		serverFlag bool
		clientFlag bool
		wantBound  bool
	}{
		{"all gates open", repository.AuthMethodTLSClientAuth, true, true, true},
		{"self-signed variant", repository.AuthMethodSelfSignedTLSClientAuth, true, true, true},
		{"no mtls auth", repository.AuthMethodClientSecretBasic, true, true, false},
		{"server flag off", repository.AuthMethodTLSClientAuth, false, true, false},
		{"client flag off", repository.AuthMethodTLSClientAuth, true, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := testServerConfig("acme")
			server.TLSClientCertificateBoundAccessTokens = tc.serverFlag
			client := &repository.ClientConfig{
				TenantID:                              "acme",
				ClientID:                              "client-1",
				TLSClientCertificateBoundAccessTokens: tc.clientFlag,
			}
			creds := ClientCredentials{
				ClientID:          "client-1",
				AuthMethod:        tc.authMethod,
				ClientCertificate: cert,
			}

			got := senderConstraintThumbprint(server, client, creds)
			if got.Exists() != tc.wantBound {
				t.Fatalf("bound = %v, want %v", got.Exists(), tc.wantBound)
			}
			if tc.wantBound && got != CalculateThumbprint(cert) {
				t.Fatalf("thumbprint mismatch")
			}
		})
	}
}

func TestRefreshTokenIssuerStrategies(t *testing.T) {
	issuer := NewRefreshTokenIssuer()
	server := testServerConfig("acme")
	client := &repository.ClientConfig{TenantID: "acme", ClientID: "client-1"}

	old, err := issuer.Create(server, client)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !old.Exists() {
		t.Fatal("created refresh token is empty")
	}

	rotated, err := issuer.Refresh(old, server, client)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.Entity == old.Entity {
		t.Fatal("extends strategy must rotate the token value")
	}

	server.RefreshTokenStrategy = repository.TokenStrategyPreserve
	kept, err := issuer.Refresh(old, server, client)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if kept.Entity != old.Entity || !kept.ExpiresAt.Equal(old.ExpiresAt) {
		t.Fatal("preserve strategy must re-attach the original token")
	}
}
