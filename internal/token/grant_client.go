package token

import (
	"context"
	"strings"
	"time"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
)

// clientCredentialsGrantService issues machine-to-machine tokens
// (RFC 6749 §4.4). The grant is synthesized on the spot: no subject,
// no refresh token.
type clientCredentialsGrantService struct {
	accessIssuer *AccessTokenIssuer
	now          func() time.Time
}

func (s *clientCredentialsGrantService) GrantType() GrantType {
	return GrantTypeClientCredentials
}

func (s *clientCredentialsGrantService) Create(ctx context.Context, tc *TokenRequestContext) (*OAuthToken, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("token.grant.client_credentials"))

	if !tc.ClientConfig.IsConfidential() {
		log.Warn("client_credentials requires a confidential client")
		return nil, NewOAuthError(ErrCodeUnauthorizedClient, "public clients cannot use this grant type")
	}

	scopes, err := resolveRequestedScopes(tc.Request.Scope(), tc.ClientConfig)
	if err != nil {
		return nil, err
	}

	grant := repository.AuthorizationGrant{
		TenantID: tc.TenantID(),
		ClientID: tc.Credentials.ClientID,
		Scopes:   scopes,
	}

	accessToken, err := s.accessIssuer.Create(grant, tc.ServerConfig, tc.ClientConfig, tc.Credentials)
	if err != nil {
		return nil, err
	}

	oauthToken := &OAuthToken{
		ID:          NewOAuthTokenID(),
		AccessToken: accessToken,
	}
	attachCNonce(oauthToken, tc.ServerConfig)
	return oauthToken, nil
}

// resolveRequestedScopes validates a requested scope string against the
// client registration. Empty request falls back to every registered
// scope.
func resolveRequestedScopes(scope string, clientConfig *repository.ClientConfig) ([]string, error) {
	if scope == "" {
		return clientConfig.Scopes, nil
	}
	requested := strings.Fields(scope)
	for _, s := range requested {
		if !clientConfig.IsScopeAllowed(s) {
			return nil, NewOAuthError(ErrCodeInvalidScope, "requested scope is not allowed")
		}
	}
	return requested, nil
}
