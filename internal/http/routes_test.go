package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dropDatabas3/tokengate/internal/cache"
	"github.com/dropDatabas3/tokengate/internal/clientauth"
	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	oauthctrl "github.com/dropDatabas3/tokengate/internal/http/controllers/oauth"
	oidcctrl "github.com/dropDatabas3/tokengate/internal/http/controllers/oidc"
	jwtx "github.com/dropDatabas3/tokengate/internal/jwt"
	"github.com/dropDatabas3/tokengate/internal/store/memory"
	"github.com/dropDatabas3/tokengate/internal/token"
)

func testHandler(t *testing.T) http.Handler {
	t.Helper()

	key, err := jwtx.NewEd25519SigningKey("acme", "k1")
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keys := jwtx.NewKeystore()
	keys.Add(key, true)

	configs := memory.NewConfigStore()
	configs.Load(
		[]repository.AuthorizationServerConfig{{
			TenantID:             "acme",
			TokenIssuer:          "https://issuer.example/acme",
			AccessTokenDuration:  3600,
			RefreshTokenDuration: 86400,
			ScopesSupported:      []string{"read", "write"},
		}},
		[]repository.ClientConfig{{
			TenantID:                "acme",
			ClientID:                "svc",
			ClientSecret:            "s3cret",
			TokenEndpointAuthMethod: repository.AuthMethodClientSecretBasic,
			Scopes:                  []string{"read", "write"},
		}},
	)

	grants := memory.NewGrantStore(cache.NewMemory("test"))
	tokens := memory.NewTokenStore()
	authenticator := clientauth.NewResolver(configs)

	dispatcher := token.NewDispatcher(token.DispatcherDeps{
		ServerConfigs: configs,
		ClientConfigs: configs.Clients(),
		Tokens:        tokens,
		Requests:      grants,
		CodeGrants:    grants.CodeGrants(),
		Granted:       grants.Granted(),
		Authenticator: authenticator,
		AccessIssuer:  token.NewAccessTokenIssuer(keys, nil),
		RefreshIssuer: token.NewRefreshTokenIssuer(),
		IDIssuer:      token.NewIDTokenIssuer(keys),
	})
	protocol := token.NewProtocol(
		dispatcher,
		token.NewIntrospectionHandler(tokens, configs.Clients(), authenticator, nil),
		token.NewRevocationHandler(tokens, configs.Clients(), authenticator, nil),
	)

	return NewRouter(RouterDeps{
		OAuth: &oauthctrl.Controllers{
			Token:      oauthctrl.NewTokenController(protocol),
			Introspect: oauthctrl.NewIntrospectController(protocol),
			Revoke:     oauthctrl.NewRevokeController(protocol),
		},
		Discovery: oidcctrl.NewDiscoveryController(configs),
		JWKS:      oidcctrl.NewJWKSController(keys),
	})
}

func postForm(t *testing.T, handler http.Handler, path string, form url.Values, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func svcAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte("svc:s3cret"))
}

func TestTokenEndpoint(t *testing.T) {
	handler := testHandler(t)

	rec := postForm(t, handler, "/acme/v1/tokens",
		url.Values{"grant_type": {"client_credentials"}, "scope": {"read"}}, svcAuth())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("Cache-Control = %q, want no-store", cc)
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
		Scope       string `json:"scope"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AccessToken == "" || resp.TokenType != "Bearer" || resp.ExpiresIn != 3600 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Scope != "read" {
		t.Fatalf("scope = %q", resp.Scope)
	}
}

func TestTokenEndpointErrorShape(t *testing.T) {
	handler := testHandler(t)

	badAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("svc:wrong"))
	rec := postForm(t, handler, "/acme/v1/tokens",
		url.Values{"grant_type": {"client_credentials"}}, badAuth)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "invalid_client" {
		t.Fatalf("error = %q", resp.Error)
	}
}

func TestIntrospectionAndRevocationFlow(t *testing.T) {
	handler := testHandler(t)

	issue := postForm(t, handler, "/acme/v1/tokens",
		url.Values{"grant_type": {"client_credentials"}}, svcAuth())
	if issue.Code != http.StatusOK {
		t.Fatalf("issue status = %d", issue.Code)
	}
	var issued struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(issue.Body.Bytes(), &issued); err != nil {
		t.Fatalf("decode: %v", err)
	}

	inspect := postForm(t, handler, "/acme/v1/tokens/introspection",
		url.Values{"token": {issued.AccessToken}}, svcAuth())
	if inspect.Code != http.StatusOK {
		t.Fatalf("introspect status = %d", inspect.Code)
	}
	var state map[string]any
	if err := json.Unmarshal(inspect.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state["active"] != true || state["client_id"] != "svc" {
		t.Fatalf("introspection = %v", state)
	}

	revoke := postForm(t, handler, "/acme/v1/tokens/revocation",
		url.Values{"token": {issued.AccessToken}}, svcAuth())
	if revoke.Code != http.StatusOK {
		t.Fatalf("revoke status = %d", revoke.Code)
	}

	after := postForm(t, handler, "/acme/v1/tokens/introspection",
		url.Values{"token": {issued.AccessToken}}, svcAuth())
	var afterState map[string]any
	if err := json.Unmarshal(after.Body.Bytes(), &afterState); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if afterState["active"] != false || len(afterState) != 1 {
		t.Fatalf("post-revocation introspection = %v, want bare inactive", afterState)
	}
}

func TestRevocationRequiresClientAuthentication(t *testing.T) {
	handler := testHandler(t)

	issue := postForm(t, handler, "/acme/v1/tokens",
		url.Values{"grant_type": {"client_credentials"}}, svcAuth())
	if issue.Code != http.StatusOK {
		t.Fatalf("issue status = %d", issue.Code)
	}
	var issued struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(issue.Body.Bytes(), &issued); err != nil {
		t.Fatalf("decode: %v", err)
	}

	revoke := postForm(t, handler, "/acme/v1/tokens/revocation",
		url.Values{"token": {issued.AccessToken}}, "")
	if revoke.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated revoke status = %d, want 401", revoke.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(revoke.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "invalid_client" {
		t.Fatalf("error = %q", resp.Error)
	}

	// The token must survive the rejected call.
	inspect := postForm(t, handler, "/acme/v1/tokens/introspection",
		url.Values{"token": {issued.AccessToken}}, svcAuth())
	var state map[string]any
	if err := json.Unmarshal(inspect.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state["active"] != true {
		t.Fatalf("introspection after rejected revoke = %v, want active", state)
	}
}

func TestIntrospectionRequiresClientAuthentication(t *testing.T) {
	handler := testHandler(t)

	rec := postForm(t, handler, "/acme/v1/tokens/introspection",
		url.Values{"token": {"whatever"}}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated introspection status = %d, want 401", rec.Code)
	}
}

func TestDiscoveryDocument(t *testing.T) {
	handler := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/acme/.well-known/oauth-authorization-server", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var doc struct {
		Issuer        string   `json:"issuer"`
		TokenEndpoint string   `json:"token_endpoint"`
		JWKSURI       string   `json:"jwks_uri"`
		Scopes        []string `json:"scopes_supported"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Issuer != "https://issuer.example/acme" {
		t.Fatalf("issuer = %q", doc.Issuer)
	}
	if !strings.HasSuffix(doc.TokenEndpoint, "/v1/tokens") {
		t.Fatalf("token_endpoint = %q", doc.TokenEndpoint)
	}
	if !strings.HasSuffix(doc.JWKSURI, "/v1/jwks") {
		t.Fatalf("jwks_uri = %q", doc.JWKSURI)
	}
}

func TestJWKSEndpoint(t *testing.T) {
	handler := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/acme/v1/jwks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var set struct {
		Keys []map[string]any `json:"keys"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &set); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(set.Keys) != 1 || set.Keys[0]["kid"] != "k1" {
		t.Fatalf("jwks = %v", set.Keys)
	}
}

func TestHealthz(t *testing.T) {
	handler := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
