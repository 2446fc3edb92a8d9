package oauth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/tokengate/internal/metrics"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
	"github.com/dropDatabas3/tokengate/internal/token"
)

// TokenController handles POST /{tenant}/v1/tokens.
type TokenController struct {
	protocol *token.Protocol
}

func NewTokenController(p *token.Protocol) *TokenController {
	return &TokenController{protocol: p}
}

func (c *TokenController) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.token"))

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		log.Warn("failed to parse form", logger.Err(err))
		writeJSON(w, http.StatusBadRequest, &token.ErrorResponse{
			Error:            token.ErrCodeInvalidRequest,
			ErrorDescription: "invalid form data",
		})
		return
	}

	req := &token.TokenRequest{
		TenantID:            chi.URLParam(r, "tenant"),
		Params:              r.PostForm,
		AuthorizationHeader: r.Header.Get("Authorization"),
		ClientCertificate:   peerCertificate(r),
		Attributes:          requestAttributes(r),
	}

	status, body := c.protocol.Request(ctx, req)
	metrics.RecordTokenRequest(string(req.GrantType()), tokenResult(status, body))
	writeJSON(w, status, body)
}

func tokenResult(status int, body any) string {
	if status == http.StatusOK {
		return "issued"
	}
	if resp, ok := body.(*token.ErrorResponse); ok {
		return resp.Error
	}
	return "server_error"
}
