package token

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
	tokens "github.com/dropDatabas3/tokengate/internal/security/token"
)

// authorizationCodeGrantService redeems an authorization code for a
// token aggregate (RFC 6749 §4.1.3). Codes are single-use; a replay
// fails with invalid_grant no matter how the first attempt ended.
type authorizationCodeGrantService struct {
	requests      repository.AuthorizationRequestRepository
	codeGrants    repository.AuthorizationCodeGrantRepository
	granted       repository.AuthorizationGrantedRepository
	accessIssuer  *AccessTokenIssuer
	refreshIssuer *RefreshTokenIssuer
	idIssuer      *IDTokenIssuer
	now           func() time.Time
}

func (s *authorizationCodeGrantService) GrantType() GrantType {
	return GrantTypeAuthorizationCode
}

func (s *authorizationCodeGrantService) Create(ctx context.Context, tc *TokenRequestContext) (*OAuthToken, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("token.grant.authorization_code"))

	code := tc.Request.Code()
	if code == "" {
		return nil, NewOAuthError(ErrCodeInvalidRequest, "code is required")
	}

	codeGrant, err := s.codeGrants.Find(ctx, tc.TenantID(), code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("authorization code not found")
			return nil, NewOAuthError(ErrCodeInvalidGrant, "authorization code is invalid")
		}
		return nil, err
	}
	if !codeGrant.Exists() {
		return nil, NewOAuthError(ErrCodeInvalidGrant, "authorization code is invalid")
	}
	if codeGrant.IsExpired(s.now().UTC()) {
		log.Warn("authorization code expired")
		return nil, NewOAuthError(ErrCodeInvalidGrant, "authorization code is expired")
	}
	if codeGrant.Grant.ClientID != tc.Credentials.ClientID {
		log.Warn("authorization code client mismatch")
		return nil, NewOAuthError(ErrCodeInvalidGrant, "authorization code was issued to another client")
	}

	// Single-use claim. The loser of a replay race lands here too.
	if err := s.codeGrants.Consume(ctx, tc.TenantID(), code); err != nil {
		if errors.Is(err, repository.ErrAlreadyConsumed) || errors.Is(err, repository.ErrNotFound) {
			log.Warn("authorization code replay detected")
			return nil, NewOAuthError(ErrCodeInvalidGrant, "authorization code was already used")
		}
		return nil, err
	}

	grant := codeGrant.Grant

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

	idToken, err := s.issueIDToken(ctx, tc, grant, accessToken, codeGrant)
	if err != nil {
		return nil, err
	}

	oauthToken := &OAuthToken{
		ID:           NewOAuthTokenID(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IDToken:      idToken,
	}
	attachCNonce(oauthToken, tc.ServerConfig)

	s.registerGranted(ctx, grant)

	return oauthToken, nil
}

// issueIDToken signs an ID token when the grant carries the openid
// scope, pulling nonce and auth_time from the stored authorization
// request.
func (s *authorizationCodeGrantService) issueIDToken(
	ctx context.Context,
	tc *TokenRequestContext,
	grant repository.AuthorizationGrant,
	accessToken AccessToken,
	codeGrant *repository.AuthorizationCodeGrant,
) (string, error) {
	if !grant.HasScope("openid") || !grant.HasSubject() {
		return "", nil
	}

	idCtx := IDTokenContext{}
	if codeGrant.AuthorizationRequestID != "" {
		if authReq, err := s.requests.Find(ctx, tc.TenantID(), codeGrant.AuthorizationRequestID); err == nil {
			idCtx.Nonce = authReq.Nonce
			idCtx.AuthTime = authReq.AuthTime
		}
	}
	return s.idIssuer.Issue(grant, tc.ServerConfig, tc.ClientConfig, accessToken, idCtx)
}

// registerGranted updates the standing grant record. Best effort: the
// issued token is already consistent without it.
func (s *authorizationCodeGrantService) registerGranted(ctx context.Context, grant repository.AuthorizationGrant) {
	existing, err := s.granted.Find(ctx, grant.TenantID, grant.ClientID, grant.Subject)
	now := time.Now().UTC()
	if err != nil || existing == nil {
		_ = s.granted.Save(ctx, &repository.AuthorizationGranted{
			ID:        uuid.NewString(),
			Grant:     grant,
			GrantedAt: now,
			UpdatedAt: now,
		})
		return
	}
	existing.Grant = mergeGrantScopes(existing.Grant, grant)
	existing.UpdatedAt = now
	_ = s.granted.Save(ctx, existing)
}

// mergeGrantScopes unions the scopes of a re-issued grant.
func mergeGrantScopes(old, fresh repository.AuthorizationGrant) repository.AuthorizationGrant {
	seen := map[string]bool{}
	merged := make([]string, 0, len(old.Scopes)+len(fresh.Scopes))
	for _, s := range append(append([]string{}, old.Scopes...), fresh.Scopes...) {
		if !seen[s] {
			seen[s] = true
			merged = append(merged, s)
		}
	}
	fresh.Scopes = merged
	return fresh
}

// attachCNonce rides a verifiable-credential nonce on the aggregate
// when the tenant enables it.
func attachCNonce(t *OAuthToken, serverConfig *repository.AuthorizationServerConfig) {
	if !serverConfig.CNonceEnabled {
		return
	}
	nonce, err := tokens.GenerateOpaqueToken(16)
	if err != nil {
		return
	}
	duration := serverConfig.CNonceDuration
	if duration <= 0 {
		duration = 300
	}
	t.CNonce = nonce
	t.CNonceExpiresIn = duration
}
