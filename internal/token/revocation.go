package token

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	"github.com/dropDatabas3/tokengate/internal/events"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
)

// RevocationRequest carries a revocation call (RFC 7009). The hint is
// accepted but never trusted: both indexes are always consulted.
// Request holds the form and the caller's authentication material.
type RevocationRequest struct {
	Request       *TokenRequest
	Token         string
	TokenTypeHint string
}

// RevocationHandler invalidates a token aggregate. Revocation is
// idempotent: unknown and already-revoked tokens succeed silently so
// the endpoint cannot be used as a validity oracle.
type RevocationHandler struct {
	tokens        OAuthTokenRepository
	clients       repository.ClientConfigQueryRepository
	authenticator ClientAuthenticator
	publisher     events.Publisher
	now           func() time.Time
}

func NewRevocationHandler(
	tokens OAuthTokenRepository,
	clients repository.ClientConfigQueryRepository,
	authenticator ClientAuthenticator,
	publisher events.Publisher,
) *RevocationHandler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &RevocationHandler{
		tokens:        tokens,
		clients:       clients,
		authenticator: authenticator,
		publisher:     publisher,
		now:           time.Now,
	}
}

func (h *RevocationHandler) Handle(ctx context.Context, req *RevocationRequest) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("token.revoke"))

	credentials, err := authenticateEndpointClient(ctx, h.clients, h.authenticator, req.Request)
	if err != nil {
		log.Warn("revocation caller rejected", logger.Err(err))
		return err
	}

	if req.Token == "" {
		return NewOAuthError(ErrCodeInvalidRequest, "token is required")
	}

	tenantID := req.Request.TenantID
	oauthToken, err := h.find(ctx, tenantID, req.Token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Debug("token not found, nothing to revoke")
			return nil
		}
		return err
	}

	// A client may only revoke its own tokens (RFC 7009 §2.1). Acting
	// as if the token does not exist keeps the endpoint quiet.
	if oauthToken.ClientID() != credentials.ClientID {
		log.Warn("revocation client mismatch", logger.ClientID(credentials.ClientID))
		return nil
	}

	if err := h.tokens.Revoke(ctx, tenantID, oauthToken.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	log.Info("token revoked",
		logger.TenantID(tenantID),
		logger.ClientID(oauthToken.ClientID()),
		logger.TokenID(oauthToken.ID.String()),
	)
	h.publisher.Publish(ctx, events.SecurityEvent{
		Type:       events.TypeTokenRevoked,
		TenantID:   tenantID,
		ClientID:   oauthToken.ClientID(),
		Subject:    oauthToken.Subject(),
		TokenID:    oauthToken.ID.String(),
		OccurredAt: h.now().UTC(),
		Attributes: req.Request.Attributes,
	})
	return nil
}

func (h *RevocationHandler) find(ctx context.Context, tenantID, presented string) (*OAuthToken, error) {
	t, err := h.tokens.FindByAccessToken(ctx, tenantID, presented)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return h.tokens.FindByRefreshToken(ctx, tenantID, presented)
}
