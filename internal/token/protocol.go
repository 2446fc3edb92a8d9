package token

import (
	"context"
	"net/http"

	"github.com/dropDatabas3/tokengate/internal/observability/logger"
)

// TokenResponse is the wire shape of a successful token request
// (RFC 6749 §5.1, plus c_nonce and authorization_details extensions).
type TokenResponse struct {
	AccessToken          string           `json:"access_token"`
	TokenType            string           `json:"token_type"`
	ExpiresIn            int64            `json:"expires_in"`
	RefreshToken         string           `json:"refresh_token,omitempty"`
	Scope                string           `json:"scope,omitempty"`
	IDToken              string           `json:"id_token,omitempty"`
	AuthorizationDetails []map[string]any `json:"authorization_details,omitempty"`
	CNonce               string           `json:"c_nonce,omitempty"`
	CNonceExpiresIn      int64            `json:"c_nonce_expires_in,omitempty"`
}

// ErrorResponse is the wire shape of a failed token request (RFC 6749 §5.2).
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Protocol is the single entry point the transport layer talks to. It
// translates engine outcomes into wire shapes plus HTTP status codes so
// controllers stay free of OAuth error taxonomy.
type Protocol struct {
	dispatcher    *Dispatcher
	introspection *IntrospectionHandler
	revocation    *RevocationHandler
}

func NewProtocol(dispatcher *Dispatcher, introspection *IntrospectionHandler, revocation *RevocationHandler) *Protocol {
	return &Protocol{
		dispatcher:    dispatcher,
		introspection: introspection,
		revocation:    revocation,
	}
}

// Request handles POST /token. The returned status is the HTTP code the
// body should be written with.
func (p *Protocol) Request(ctx context.Context, req *TokenRequest) (status int, body any) {
	oauthToken, err := p.dispatcher.Dispatch(ctx, req)
	if err != nil {
		return p.errorResponse(ctx, err)
	}
	return http.StatusOK, responseFrom(oauthToken)
}

// Inspect handles POST /introspect. Lookup misses and expired tokens
// are not errors: they answer active=false with 200.
func (p *Protocol) Inspect(ctx context.Context, req *IntrospectionRequest) (status int, body any) {
	result, err := p.introspection.Handle(ctx, req)
	if err != nil {
		return p.errorResponse(ctx, err)
	}
	return http.StatusOK, result.Contents
}

// Revoke handles POST /revoke. Success is an empty 200 regardless of
// whether anything was actually revoked.
func (p *Protocol) Revoke(ctx context.Context, req *RevocationRequest) (status int, body any) {
	if err := p.revocation.Handle(ctx, req); err != nil {
		return p.errorResponse(ctx, err)
	}
	return http.StatusOK, nil
}

// errorResponse classifies an engine error into status + body. OAuth
// errors pass through verbatim; configuration defects and unexpected
// failures collapse to an opaque server_error.
func (p *Protocol) errorResponse(ctx context.Context, err error) (int, any) {
	if oe, ok := AsOAuthError(err); ok {
		return statusFor(oe.Code), &ErrorResponse{Error: oe.Code, ErrorDescription: oe.Description}
	}

	log := logger.From(ctx).With(logger.Layer("protocol"))
	if IsConfigurationError(err) {
		log.Error("tenant configuration is invalid", logger.Err(err))
	} else {
		log.Error("token operation failed", logger.Err(err))
	}
	return http.StatusInternalServerError, &ErrorResponse{Error: ErrCodeServerError}
}

// statusFor maps an OAuth error code to its HTTP status (RFC 6749 §5.2:
// invalid_client is 401, everything else client-side is 400).
func statusFor(code string) int {
	switch code {
	case ErrCodeInvalidClient:
		return http.StatusUnauthorized
	case ErrCodeServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// responseFrom flattens the aggregate into the wire shape.
func responseFrom(t *OAuthToken) *TokenResponse {
	resp := &TokenResponse{
		AccessToken: t.AccessToken.Entity.Value,
		TokenType:   string(t.AccessToken.Type),
		ExpiresIn:   int64(t.AccessToken.ExpiresIn.Seconds()),
		Scope:       t.AccessToken.Grant.ScopeString(),
		IDToken:     t.IDToken,
	}
	if t.HasRefreshToken() {
		resp.RefreshToken = t.RefreshToken.Entity
	}
	if t.AccessToken.Grant.HasAuthorizationDetails() {
		resp.AuthorizationDetails = t.AccessToken.Grant.AuthorizationDetails
	}
	if t.HasCNonce() {
		resp.CNonce = t.CNonce
		resp.CNonceExpiresIn = t.CNonceExpiresIn
	}
	return resp
}
