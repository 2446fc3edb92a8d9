package token

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
)

// refreshTokenGrantService exchanges a presented refresh token for a
// brand-new aggregate (RFC 6749 §6). The old aggregate is never mutated
// in place. Under the extends strategy the old refresh token is claimed
// single-use through the repository, which is the only defense against
// two racing refreshes both succeeding.
type refreshTokenGrantService struct {
	tokens        OAuthTokenRepository
	accessIssuer  *AccessTokenIssuer
	refreshIssuer *RefreshTokenIssuer
	now           func() time.Time
}

func (s *refreshTokenGrantService) GrantType() GrantType {
	return GrantTypeRefreshToken
}

func (s *refreshTokenGrantService) Create(ctx context.Context, tc *TokenRequestContext) (*OAuthToken, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("token.grant.refresh_token"))

	presented := tc.Request.RefreshTokenValue()
	if presented == "" {
		return nil, NewOAuthError(ErrCodeInvalidRequest, "refresh_token is required")
	}

	old, err := s.tokens.FindByRefreshToken(ctx, tc.TenantID(), presented)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("refresh token not found")
			return nil, NewOAuthError(ErrCodeInvalidGrant, "refresh token is invalid")
		}
		return nil, err
	}
	if old.RefreshToken.IsExpired(s.now().UTC()) {
		log.Warn("refresh token expired")
		return nil, NewOAuthError(ErrCodeInvalidGrant, "refresh token is expired")
	}
	if old.ClientID() != tc.Credentials.ClientID {
		log.Warn("refresh token client mismatch")
		return nil, NewOAuthError(ErrCodeInvalidGrant, "refresh token was issued to another client")
	}

	accessToken, err := s.accessIssuer.Refresh(
		old.AccessToken, old.AccessToken.Grant, tc.ServerConfig, tc.ClientConfig, tc.Credentials)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.refreshIssuer.Refresh(old.RefreshToken, tc.ServerConfig, tc.ClientConfig)
	if err != nil {
		return nil, err
	}

	// Rotation invalidates the old aggregate in storage. The preserve
	// strategy re-attaches the same value, so the old aggregate must
	// stay resolvable and is left untouched.
	if refreshToken.Entity != old.RefreshToken.Entity {
		if err := s.tokens.Consume(ctx, tc.TenantID(), old.ID); err != nil {
			if errors.Is(err, repository.ErrAlreadyConsumed) || errors.Is(err, repository.ErrNotFound) {
				log.Warn("concurrent refresh detected", logger.TokenID(old.ID.String()))
				return nil, NewOAuthError(ErrCodeInvalidGrant, "refresh token was already used")
			}
			return nil, err
		}
	}

	return &OAuthToken{
		ID:           NewOAuthTokenID(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
