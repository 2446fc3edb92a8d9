package oauth

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/tokengate/internal/metrics"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
	"github.com/dropDatabas3/tokengate/internal/token"
)

// IntrospectController handles POST /{tenant}/v1/tokens/introspection.
type IntrospectController struct {
	protocol *token.Protocol
}

func NewIntrospectController(p *token.Protocol) *IntrospectController {
	return &IntrospectController{protocol: p}
}

func (c *IntrospectController) Introspect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.introspect"))

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		log.Warn("failed to parse form", logger.Err(err))
		writeJSON(w, http.StatusBadRequest, &token.ErrorResponse{
			Error:            token.ErrCodeInvalidRequest,
			ErrorDescription: "invalid form data",
		})
		return
	}

	req := &token.IntrospectionRequest{
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

	status, body := c.protocol.Inspect(ctx, req)
	metrics.RecordIntrospection(introspectResult(status, body))
	writeJSON(w, status, body)
}

func introspectResult(status int, body any) string {
	if status != http.StatusOK {
		return "server_error"
	}
	if contents, ok := body.(map[string]any); ok {
		if active, _ := contents["active"].(bool); active {
			return "active"
		}
	}
	return "inactive"
}
