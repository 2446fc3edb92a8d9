package token

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
)

// ErrUserAuthenticationFailed is returned by a delegate when the
// resource owner credentials do not check out.
var ErrUserAuthenticationFailed = errors.New("user authentication failed")

// GrantUser is the resource owner a delegate authenticated.
type GrantUser struct {
	Subject string
	Name    string
	Email   string
}

func (u GrantUser) Exists() bool { return u.Subject != "" }

// PasswordCredentialsGrantDelegate looks up and authenticates a
// resource owner for the password grant. User storage and credential
// verification live outside the engine.
type PasswordCredentialsGrantDelegate interface {
	Authenticate(ctx context.Context, tenantID, username, password string) (GrantUser, error)
}

// passwordGrantService handles grant_type=password (RFC 6749 §4.3),
// delegating user authentication to an external collaborator.
type passwordGrantService struct {
	delegate      PasswordCredentialsGrantDelegate
	accessIssuer  *AccessTokenIssuer
	refreshIssuer *RefreshTokenIssuer
	now           func() time.Time
}

func (s *passwordGrantService) GrantType() GrantType {
	return GrantTypePassword
}

func (s *passwordGrantService) Create(ctx context.Context, tc *TokenRequestContext) (*OAuthToken, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("token.grant.password"))

	username := tc.Request.Username()
	password := tc.Request.Password()
	if username == "" || password == "" {
		return nil, NewOAuthError(ErrCodeInvalidRequest, "username and password are required")
	}

	user, err := s.delegate.Authenticate(ctx, tc.TenantID(), username, password)
	if err != nil {
		if errors.Is(err, ErrUserAuthenticationFailed) {
			log.Warn("resource owner authentication failed")
			return nil, NewOAuthError(ErrCodeInvalidGrant, "resource owner authentication failed")
		}
		return nil, err
	}
	if !user.Exists() {
		return nil, NewOAuthError(ErrCodeInvalidGrant, "resource owner authentication failed")
	}

	scopes, err := resolveRequestedScopes(tc.Request.Scope(), tc.ClientConfig)
	if err != nil {
		return nil, err
	}

	grant := repository.AuthorizationGrant{
		TenantID: tc.TenantID(),
		Subject:  user.Subject,
		ClientID: tc.Credentials.ClientID,
		Scopes:   scopes,
	}

	accessToken, err := s.accessIssuer.Create(grant, tc.ServerConfig, tc.ClientConfig, tc.Credentials)
	if err != nil {
		return nil, err
	}

	var refreshToken RefreshToken
	if tc.ClientConfig.IsGrantTypeAllowed(string(GrantTypeRefreshToken)) {
		refreshToken, err = s.refreshIssuer.Create(tc.ServerConfig, tc.ClientConfig)
		if err != nil {
			return nil, err
		}
	}

	return &OAuthToken{
		ID:           NewOAuthTokenID(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
