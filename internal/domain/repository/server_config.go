package repository

import "context"

// Token representation styles.
const (
	AccessTokenTypeIdentifier = "identifier"
	AccessTokenTypeJWT        = "jwt"
)

// Expiry strategies applied on refresh.
const (
	TokenStrategyExtends  = "extends"
	TokenStrategyPreserve = "preserve"
)

// AuthorizationServerConfig is the per-tenant authorization server
// configuration. Read-only after startup.
type AuthorizationServerConfig struct {
	TenantID    string `yaml:"tenant_id" json:"tenant_id"`
	TokenIssuer string `yaml:"token_issuer" json:"token_issuer"`

	// Durations in seconds.
	AccessTokenDuration  int64 `yaml:"access_token_duration" json:"access_token_duration"`
	RefreshTokenDuration int64 `yaml:"refresh_token_duration" json:"refresh_token_duration"`
	IDTokenDuration      int64 `yaml:"id_token_duration" json:"id_token_duration"`

	// AccessTokenType selects the representation: "identifier" (opaque
	// random string) or "jwt" (signed, self-contained). Default: jwt.
	AccessTokenType string `yaml:"access_token_type" json:"access_token_type"`

	// AccessTokenStrategy controls access token expiry on refresh:
	// "extends" recomputes from now, "preserve" carries the prior expiry.
	AccessTokenStrategy string `yaml:"access_token_strategy" json:"access_token_strategy"`

	// RefreshTokenStrategy controls rotation: "extends" issues a new
	// refresh token with fresh expiry, "preserve" re-attaches the old one.
	RefreshTokenStrategy string `yaml:"refresh_token_strategy" json:"refresh_token_strategy"`

	// TLSClientCertificateBoundAccessTokens enables RFC 8705 sender
	// constraining server-wide. The client flag must also be set.
	TLSClientCertificateBoundAccessTokens bool `yaml:"tls_client_certificate_bound_access_tokens" json:"tls_client_certificate_bound_access_tokens"`

	// TokenSignedKeyID is the KID of the tenant signing key used for
	// JWT access tokens and ID tokens.
	TokenSignedKeyID string `yaml:"token_signed_key_id" json:"token_signed_key_id"`

	ScopesSupported []string `yaml:"scopes_supported" json:"scopes_supported"`

	// Verifiable-credential nonce issuance.
	CNonceEnabled  bool  `yaml:"c_nonce_enabled" json:"c_nonce_enabled"`
	CNonceDuration int64 `yaml:"c_nonce_duration" json:"c_nonce_duration"`
}

func (c *AuthorizationServerConfig) IsIdentifierAccessTokenType() bool {
	return c.AccessTokenType == AccessTokenTypeIdentifier
}

// IsExtendsAccessTokenStrategy defaults to extends when unset.
func (c *AuthorizationServerConfig) IsExtendsAccessTokenStrategy() bool {
	return c.AccessTokenStrategy != TokenStrategyPreserve
}

// IsExtendsRefreshTokenStrategy defaults to extends when unset.
func (c *AuthorizationServerConfig) IsExtendsRefreshTokenStrategy() bool {
	return c.RefreshTokenStrategy != TokenStrategyPreserve
}

// AuthorizationServerConfigQueryRepository resolves per-tenant server
// configuration.
type AuthorizationServerConfigQueryRepository interface {
	// Get returns the configuration for a tenant.
	// Returns ErrNotFound for unknown tenants.
	Get(ctx context.Context, tenantID string) (*AuthorizationServerConfig, error)
}
