package token

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	"github.com/dropDatabas3/tokengate/internal/events"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
)

// IntrospectionRequest carries the presented token value (RFC 7662).
// Request holds the form and the caller's authentication material; the
// endpoint is authenticated, so unauthenticated calls never learn
// token state.
type IntrospectionRequest struct {
	Request       *TokenRequest
	Token         string
	TokenTypeHint string
}

// IntrospectionResult reports active/claims or inactive. Inactive
// results never carry claims: unknown, expired and revoked all collapse
// to the same shape so callers cannot probe token state.
type IntrospectionResult struct {
	Active   bool
	Contents map[string]any
}

// inactiveResult is the single inactive shape (RFC 7662 §2.2).
func inactiveResult() *IntrospectionResult {
	return &IntrospectionResult{Active: false, Contents: map[string]any{"active": false}}
}

// IntrospectionHandler resolves a presented token and reports its state.
type IntrospectionHandler struct {
	tokens        OAuthTokenRepository
	clients       repository.ClientConfigQueryRepository
	authenticator ClientAuthenticator
	publisher     events.Publisher
	now           func() time.Time
}

func NewIntrospectionHandler(
	tokens OAuthTokenRepository,
	clients repository.ClientConfigQueryRepository,
	authenticator ClientAuthenticator,
	publisher events.Publisher,
) *IntrospectionHandler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &IntrospectionHandler{
		tokens:        tokens,
		clients:       clients,
		authenticator: authenticator,
		publisher:     publisher,
		now:           time.Now,
	}
}

// Handle never treats "not found" as an error: that is the defined
// inactive outcome. Only authentication and infrastructure failures
// surface as errors.
func (h *IntrospectionHandler) Handle(ctx context.Context, req *IntrospectionRequest) (*IntrospectionResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("token.introspect"))

	credentials, err := authenticateEndpointClient(ctx, h.clients, h.authenticator, req.Request)
	if err != nil {
		log.Warn("introspection caller rejected", logger.Err(err))
		return nil, err
	}

	tenantID := req.Request.TenantID
	if req.Token == "" {
		return inactiveResult(), nil
	}

	oauthToken, err := h.find(ctx, tenantID, req.Token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Debug("token not found")
			return inactiveResult(), nil
		}
		return nil, err
	}

	if oauthToken.IsExpired(h.now().UTC()) {
		log.Debug("token expired", logger.TokenID(oauthToken.ID.String()))
		return inactiveResult(), nil
	}

	h.publisher.Publish(ctx, events.SecurityEvent{
		Type:       events.TypeTokenIntrospected,
		TenantID:   tenantID,
		ClientID:   credentials.ClientID,
		Subject:    oauthToken.Subject(),
		TokenID:    oauthToken.ID.String(),
		Attributes: req.Request.Attributes,
		OccurredAt: h.now().UTC(),
	})

	return &IntrospectionResult{
		Active:   true,
		Contents: h.contents(oauthToken),
	}, nil
}

// find tries the access token index first, then the refresh index.
func (h *IntrospectionHandler) find(ctx context.Context, tenantID, presented string) (*OAuthToken, error) {
	t, err := h.tokens.FindByAccessToken(ctx, tenantID, presented)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return h.tokens.FindByRefreshToken(ctx, tenantID, presented)
}

// contents derives the claim subset from the stored grant.
func (h *IntrospectionHandler) contents(t *OAuthToken) map[string]any {
	contents := map[string]any{
		"active":     true,
		"iss":        t.Issuer(),
		"client_id":  t.ClientID(),
		"scope":      t.AccessToken.Grant.ScopeString(),
		"token_type": string(t.AccessToken.Type),
		"iat":        t.AccessToken.CreatedAt.Unix(),
		"exp":        t.AccessToken.ExpiresAt.Unix(),
	}
	if t.Subject() != "" {
		contents["sub"] = t.Subject()
	}
	if t.AccessToken.IsSenderConstrained() {
		contents["cnf"] = map[string]any{"x5t#S256": t.AccessToken.Thumbprint.String()}
	}
	if t.AccessToken.Grant.HasAuthorizationDetails() {
		contents["authorization_details"] = t.AccessToken.Grant.AuthorizationDetails
	}
	return contents
}

// authenticateEndpointClient resolves and authenticates the client
// calling the introspection or revocation endpoint, the same way the
// token endpoint does (RFC 7662 §2.1, RFC 7009 §2.1). Failures always
// collapse to invalid_client.
func authenticateEndpointClient(
	ctx context.Context,
	clients repository.ClientConfigQueryRepository,
	authenticator ClientAuthenticator,
	req *TokenRequest,
) (ClientCredentials, error) {
	clientID := req.ClientID()
	if clientID == "" {
		return ClientCredentials{}, NewOAuthError(ErrCodeInvalidClient, "client identification is required")
	}
	client, err := clients.Get(ctx, req.TenantID, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ClientCredentials{}, NewOAuthError(ErrCodeInvalidClient, "client authentication failed")
		}
		return ClientCredentials{}, err
	}
	credentials, err := authenticator.Authenticate(ctx, req, client)
	if err != nil {
		if _, ok := AsOAuthError(err); ok {
			return ClientCredentials{}, err
		}
		return ClientCredentials{}, NewOAuthError(ErrCodeInvalidClient, "client authentication failed")
	}
	return credentials, nil
}
