// Package oidc contains the discovery and JWKS controllers.
package oidc

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
)

// DiscoveryController serves the authorization server metadata
// documents (RFC 8414 and the OpenID Connect alias).
type DiscoveryController struct {
	serverConfigs repository.AuthorizationServerConfigQueryRepository
}

func NewDiscoveryController(serverConfigs repository.AuthorizationServerConfigQueryRepository) *DiscoveryController {
	return &DiscoveryController{serverConfigs: serverConfigs}
}

// metadata is the published subset of server metadata.
type metadata struct {
	Issuer                                string   `json:"issuer"`
	TokenEndpoint                         string   `json:"token_endpoint"`
	IntrospectionEndpoint                 string   `json:"introspection_endpoint"`
	RevocationEndpoint                    string   `json:"revocation_endpoint"`
	JWKSURI                               string   `json:"jwks_uri"`
	ScopesSupported                       []string `json:"scopes_supported,omitempty"`
	GrantTypesSupported                   []string `json:"grant_types_supported"`
	TokenEndpointAuthMethodsSupported     []string `json:"token_endpoint_auth_methods_supported"`
	ResponseTypesSupported                []string `json:"response_types_supported"`
	IDTokenSigningAlgValuesSupported      []string `json:"id_token_signing_alg_values_supported"`
	TLSClientCertificateBoundAccessTokens bool     `json:"tls_client_certificate_bound_access_tokens"`
}

func (c *DiscoveryController) Discovery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oidc.discovery"))

	tenantID := chi.URLParam(r, "tenant")
	cfg, err := c.serverConfigs.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Error("server config lookup failed", logger.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	issuer := cfg.TokenIssuer
	doc := metadata{
		Issuer:                issuer,
		TokenEndpoint:         issuer + "/v1/tokens",
		IntrospectionEndpoint: issuer + "/v1/tokens/introspection",
		RevocationEndpoint:    issuer + "/v1/tokens/revocation",
		JWKSURI:               issuer + "/v1/jwks",
		ScopesSupported:       cfg.ScopesSupported,
		GrantTypesSupported: []string{
			"authorization_code", "refresh_token", "client_credentials", "password",
		},
		TokenEndpointAuthMethodsSupported: []string{
			repository.AuthMethodClientSecretBasic,
			repository.AuthMethodClientSecretPost,
			repository.AuthMethodPrivateKeyJWT,
			repository.AuthMethodTLSClientAuth,
			repository.AuthMethodSelfSignedTLSClientAuth,
			repository.AuthMethodNone,
		},
		ResponseTypesSupported:                []string{"code"},
		IDTokenSigningAlgValuesSupported:      []string{"EdDSA", "RS256", "ES256"},
		TLSClientCertificateBoundAccessTokens: cfg.TLSClientCertificateBoundAccessTokens,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_ = json.NewEncoder(w).Encode(doc)
}
