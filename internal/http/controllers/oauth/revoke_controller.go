package oauth

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/tokengate/internal/metrics"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
	"github.com/dropDatabas3/tokengate/internal/token"
)

// RevokeController handles POST /{tenant}/v1/tokens/revocation.
type RevokeController struct {
	protocol *token.Protocol
}

func NewRevokeController(p *token.Protocol) *RevokeController {
	return &RevokeController{protocol: p}
}

func (c *RevokeController) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.revoke"))

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		log.Warn("failed to parse form", logger.Err(err))
		writeJSON(w, http.StatusBadRequest, &token.ErrorResponse{
			Error:            token.ErrCodeInvalidRequest,
			ErrorDescription: "invalid form data",
		})
		return
	}

	req := &token.RevocationRequest{
		Request: &token.TokenRequest{
			TenantID:            chi.URLParam(r, "tenant"),
			Params:              r.PostForm,
			AuthorizationHeader: r.Header.Get("Authorization"),
			ClientCertificate:   peerCertificate(r),
			Attributes:          requestAttributes(r),
		},
		Token:         strings.TrimSpace(r.PostForm.Get("token")),
		TokenTypeHint: strings.TrimSpace(r.PostForm.Get("token_type_hint")),
	}

	status, body := c.protocol.Revoke(ctx, req)
	if status == http.StatusOK {
		metrics.RecordRevocation("ok")
	} else {
		metrics.RecordRevocation("error")
	}
	writeJSON(w, status, body)
}
