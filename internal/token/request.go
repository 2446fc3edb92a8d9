package token

import (
	"crypto/x509"
	"net/url"
	"strings"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	"github.com/dropDatabas3/tokengate/internal/events"
)

// TokenRequest is one inbound token endpoint request: the form
// parameters plus transport-level client authentication material.
type TokenRequest struct {
	TenantID string

	// Params are the form-encoded request parameters.
	Params url.Values

	// AuthorizationHeader is the raw Authorization header value, used
	// for client_secret_basic.
	AuthorizationHeader string

	// ClientCertificate is the verified mTLS certificate, when present.
	ClientCertificate *x509.Certificate

	// Attributes carry caller metadata for eventing.
	Attributes events.RequestAttributes
}

func (r *TokenRequest) param(key string) string {
	return strings.TrimSpace(r.Params.Get(key))
}

func (r *TokenRequest) GrantType() GrantType { return GrantType(r.param("grant_type")) }

func (r *TokenRequest) Code() string { return r.param("code") }

func (r *TokenRequest) RefreshTokenValue() string { return r.param("refresh_token") }

func (r *TokenRequest) Scope() string { return r.param("scope") }

func (r *TokenRequest) Username() string { return r.param("username") }

func (r *TokenRequest) Password() string { return r.param("password") }

func (r *TokenRequest) ClientSecret() string { return r.param("client_secret") }

func (r *TokenRequest) ClientAssertion() string { return r.param("client_assertion") }

func (r *TokenRequest) ClientAssertionType() string { return r.param("client_assertion_type") }

// ClientID resolves the requesting client: the form parameter first,
// then the basic auth username.
func (r *TokenRequest) ClientID() string {
	if id := r.param("client_id"); id != "" {
		return id
	}
	if user, _, ok := ParseBasicAuth(r.AuthorizationHeader); ok {
		return user
	}
	return ""
}

// HasClientCertificate mirrors the exists-check style of the credential
// value object.
func (r *TokenRequest) HasClientCertificate() bool { return r.ClientCertificate != nil }

// TokenRequestContext is the validated, client-authenticated state a
// grant service works from.
type TokenRequestContext struct {
	Request      *TokenRequest
	ServerConfig *repository.AuthorizationServerConfig
	ClientConfig *repository.ClientConfig
	Credentials  ClientCredentials
}

func (c *TokenRequestContext) TenantID() string { return c.ServerConfig.TenantID }
