package token

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	"github.com/dropDatabas3/tokengate/internal/events"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
)

// GrantService produces an OAuthToken from a validated, client-
// authenticated request. One implementation per grant type.
type GrantService interface {
	GrantType() GrantType
	Create(ctx context.Context, tc *TokenRequestContext) (*OAuthToken, error)
}

// ClientAuthenticator verifies client identity and yields the immutable
// ClientCredentials the issuers bind against.
type ClientAuthenticator interface {
	Authenticate(ctx context.Context, req *TokenRequest, client *repository.ClientConfig) (ClientCredentials, error)
}

// DispatcherDeps wires the collaborators of the token request pipeline.
type DispatcherDeps struct {
	ServerConfigs repository.AuthorizationServerConfigQueryRepository
	ClientConfigs repository.ClientConfigQueryRepository
	Tokens        OAuthTokenRepository
	Requests      repository.AuthorizationRequestRepository
	CodeGrants    repository.AuthorizationCodeGrantRepository
	Granted       repository.AuthorizationGrantedRepository

	Authenticator ClientAuthenticator
	AccessIssuer  *AccessTokenIssuer
	RefreshIssuer *RefreshTokenIssuer
	IDIssuer      *IDTokenIssuer

	// PasswordDelegate authenticates resource owners for the password
	// grant. Optional; the grant fails as unsupported without it.
	PasswordDelegate PasswordCredentialsGrantDelegate

	Publisher events.Publisher
}

// Dispatcher validates a token request, authenticates the client,
// routes by grant type, persists the issued aggregate and emits the
// security event. Each request runs synchronously; any step failure
// aborts without partial persistence.
type Dispatcher struct {
	serverConfigs repository.AuthorizationServerConfigQueryRepository
	clientConfigs repository.ClientConfigQueryRepository
	tokens        OAuthTokenRepository
	authenticator ClientAuthenticator
	services      map[GrantType]GrantService
	publisher     events.Publisher
}

// NewDispatcher builds the grant registry: built-in services first,
// then the externally supplied extension grants. Extensions cannot
// shadow a built-in grant type. The registry is never mutated after
// construction and is safe for concurrent reads.
func NewDispatcher(deps DispatcherDeps, extensions ...GrantService) *Dispatcher {
	services := map[GrantType]GrantService{}

	builtins := []GrantService{
		&authorizationCodeGrantService{
			requests:      deps.Requests,
			codeGrants:    deps.CodeGrants,
			granted:       deps.Granted,
			accessIssuer:  deps.AccessIssuer,
			refreshIssuer: deps.RefreshIssuer,
			idIssuer:      deps.IDIssuer,
			now:           time.Now,
		},
		&refreshTokenGrantService{
			tokens:        deps.Tokens,
			accessIssuer:  deps.AccessIssuer,
			refreshIssuer: deps.RefreshIssuer,
			now:           time.Now,
		},
		&clientCredentialsGrantService{
			accessIssuer: deps.AccessIssuer,
			now:          time.Now,
		},
	}
	if deps.PasswordDelegate != nil {
		builtins = append(builtins, &passwordGrantService{
			delegate:      deps.PasswordDelegate,
			accessIssuer:  deps.AccessIssuer,
			refreshIssuer: deps.RefreshIssuer,
			now:           time.Now,
		})
	}
	for _, s := range builtins {
		services[s.GrantType()] = s
	}
	for _, s := range extensions {
		if _, exists := services[s.GrantType()]; exists {
			continue
		}
		services[s.GrantType()] = s
	}

	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &Dispatcher{
		serverConfigs: deps.ServerConfigs,
		clientConfigs: deps.ClientConfigs,
		tokens:        deps.Tokens,
		authenticator: deps.Authenticator,
		services:      services,
		publisher:     publisher,
	}
}

// Dispatch runs the pipeline: received -> client-authenticated ->
// grant-resolved -> issued -> persisted -> published.
func (d *Dispatcher) Dispatch(ctx context.Context, req *TokenRequest) (*OAuthToken, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("token.dispatch"),
		logger.TenantID(req.TenantID),
		logger.GrantType(string(req.GrantType())),
	)

	grantType := req.GrantType()
	if grantType == "" {
		return nil, NewOAuthError(ErrCodeInvalidRequest, "grant_type is required")
	}
	service, ok := d.services[grantType]
	if !ok {
		return nil, NewOAuthError(ErrCodeUnsupportedGrantType, "unsupported grant type")
	}

	serverConfig, err := d.serverConfigs.Get(ctx, req.TenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewOAuthError(ErrCodeInvalidRequest, "unknown tenant")
		}
		return nil, err
	}

	clientID := req.ClientID()
	if clientID == "" {
		return nil, NewOAuthError(ErrCodeInvalidClient, "client identification is required")
	}
	clientConfig, err := d.clientConfigs.Get(ctx, req.TenantID, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("client not found", logger.ClientID(clientID))
			return nil, NewOAuthError(ErrCodeInvalidClient, "client authentication failed")
		}
		return nil, err
	}

	credentials, err := d.authenticator.Authenticate(ctx, req, clientConfig)
	if err != nil {
		log.Warn("client authentication failed", logger.ClientID(clientID), logger.Err(err))
		if _, ok := AsOAuthError(err); ok {
			return nil, err
		}
		return nil, NewOAuthError(ErrCodeInvalidClient, "client authentication failed")
	}

	if !clientConfig.IsGrantTypeAllowed(string(grantType)) {
		return nil, NewOAuthError(ErrCodeUnauthorizedClient, "client is not authorized for this grant type")
	}

	tc := &TokenRequestContext{
		Request:      req,
		ServerConfig: serverConfig,
		ClientConfig: clientConfig,
		Credentials:  credentials,
	}

	oauthToken, err := service.Create(ctx, tc)
	if err != nil {
		return nil, err
	}

	if err := d.tokens.Register(ctx, oauthToken); err != nil {
		return nil, err
	}

	eventType := events.TypeTokenIssued
	if grantType == GrantTypeRefreshToken {
		eventType = events.TypeTokenRefreshed
	}
	d.publisher.Publish(ctx, events.SecurityEvent{
		Type:       eventType,
		TenantID:   req.TenantID,
		ClientID:   clientID,
		Subject:    oauthToken.Subject(),
		GrantType:  string(grantType),
		TokenID:    oauthToken.ID.String(),
		Attributes: req.Attributes,
		OccurredAt: time.Now().UTC(),
	})

	log.Info("token issued",
		logger.ClientID(clientID),
		logger.TokenID(oauthToken.ID.String()),
	)
	return oauthToken, nil
}
