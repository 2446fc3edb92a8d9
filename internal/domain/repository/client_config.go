package repository

import (
	"context"
	"strings"
)

// Client authentication methods at the token endpoint.
const (
	AuthMethodNone                    = "none"
	AuthMethodClientSecretBasic       = "client_secret_basic"
	AuthMethodClientSecretPost        = "client_secret_post"
	AuthMethodPrivateKeyJWT           = "private_key_jwt"
	AuthMethodTLSClientAuth           = "tls_client_auth"
	AuthMethodSelfSignedTLSClientAuth = "self_signed_tls_client_auth"
)

// ClientConfig is a registered OAuth client. Read-only after startup.
type ClientConfig struct {
	TenantID   string `yaml:"tenant_id" json:"tenant_id"`
	ClientID   string `yaml:"client_id" json:"client_id"`
	ClientName string `yaml:"client_name" json:"client_name"`

	// ClientSecret is the registered secret for client_secret_basic/post.
	ClientSecret string `yaml:"client_secret" json:"client_secret"`

	// TokenEndpointAuthMethod is one of the AuthMethod constants.
	TokenEndpointAuthMethod string `yaml:"token_endpoint_auth_method" json:"token_endpoint_auth_method"`

	// GrantTypes allowed for this client. Empty allows all.
	GrantTypes []string `yaml:"grant_types" json:"grant_types"`

	// Scopes the client may request. Empty allows none explicitly
	// beyond what a grant already carries.
	Scopes []string `yaml:"scopes" json:"scopes"`

	// JWKS holds the client's public keys (JWKS JSON) for
	// private_key_jwt assertion verification.
	JWKS string `yaml:"jwks" json:"jwks"`

	// TLSClientAuthSubjectDN is the expected certificate subject for
	// tls_client_auth.
	TLSClientAuthSubjectDN string `yaml:"tls_client_auth_subject_dn" json:"tls_client_auth_subject_dn"`

	// TLSClientCertificateBoundAccessTokens opts this client into
	// sender-constrained tokens; effective only with the server flag.
	TLSClientCertificateBoundAccessTokens bool `yaml:"tls_client_certificate_bound_access_tokens" json:"tls_client_certificate_bound_access_tokens"`

	// Duration overrides in seconds; 0 falls back to the server default.
	AccessTokenDuration  int64 `yaml:"access_token_duration" json:"access_token_duration"`
	RefreshTokenDuration int64 `yaml:"refresh_token_duration" json:"refresh_token_duration"`
	IDTokenDuration      int64 `yaml:"id_token_duration" json:"id_token_duration"`
}

func (c *ClientConfig) HasAccessTokenDuration() bool { return c.AccessTokenDuration > 0 }

func (c *ClientConfig) HasRefreshTokenDuration() bool { return c.RefreshTokenDuration > 0 }

// IsConfidential reports whether the client must authenticate.
func (c *ClientConfig) IsConfidential() bool {
	return c.TokenEndpointAuthMethod != AuthMethodNone
}

// IsGrantTypeAllowed checks the per-client grant type allow-list.
// An empty list allows every grant type.
func (c *ClientConfig) IsGrantTypeAllowed(grantType string) bool {
	if len(c.GrantTypes) == 0 {
		return true
	}
	for _, g := range c.GrantTypes {
		if strings.EqualFold(g, grantType) {
			return true
		}
	}
	return false
}

// IsScopeAllowed checks a single scope against the registered list.
func (c *ClientConfig) IsScopeAllowed(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ClientConfigQueryRepository resolves registered clients.
type ClientConfigQueryRepository interface {
	// Get returns the client registered under the tenant.
	// Returns ErrNotFound for unknown clients.
	Get(ctx context.Context, tenantID, clientID string) (*ClientConfig, error)
}
