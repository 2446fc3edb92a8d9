package token

import (
	"crypto/x509"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
)

// GrantType is the OAuth2 flow category of a token request.
type GrantType string

const (
	GrantTypeAuthorizationCode GrantType = "authorization_code"
	GrantTypeRefreshToken      GrantType = "refresh_token"
	GrantTypeClientCredentials GrantType = "client_credentials"
	GrantTypePassword          GrantType = "password"
)

// ClientCredentials is the immutable result of client authentication at
// the token endpoint. Every optional part has an explicit exists-check
// so downstream code never branches on nil directly.
type ClientCredentials struct {
	ClientID string

	// AuthMethod is one of the repository.AuthMethod* constants.
	AuthMethod string

	ClientSecret      string
	ClientAssertion   string
	ClientCertificate *x509.Certificate
}

func (c ClientCredentials) HasSecret() bool { return c.ClientSecret != "" }

func (c ClientCredentials) HasAssertion() bool { return c.ClientAssertion != "" }

func (c ClientCredentials) HasCertificate() bool { return c.ClientCertificate != nil }

// IsTLSClientAuthOrSelfSignedTLSClientAuth reports whether the client
// authenticated with one of the two mTLS variants. This is the first of
// the three gates for sender-constrained token binding.
func (c ClientCredentials) IsTLSClientAuthOrSelfSignedTLSClientAuth() bool {
	return c.AuthMethod == repository.AuthMethodTLSClientAuth ||
		c.AuthMethod == repository.AuthMethodSelfSignedTLSClientAuth
}
