package oidc

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	jwtx "github.com/dropDatabas3/tokengate/internal/jwt"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
)

// JWKSController publishes the tenant's public signing keys.
type JWKSController struct {
	keys *jwtx.Keystore
}

func NewJWKSController(keys *jwtx.Keystore) *JWKSController {
	return &JWKSController{keys: keys}
}

func (c *JWKSController) JWKS(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("oidc.jwks"))

	tenantID := chi.URLParam(r, "tenant")
	doc, err := c.keys.JWKSJSON(tenantID)
	if err != nil {
		log.Error("jwks serialization failed", logger.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(doc)
}
