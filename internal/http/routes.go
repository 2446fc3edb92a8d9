// Package http wires the transport layer: router, middlewares and
// server lifecycle.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	oauthctrl "github.com/dropDatabas3/tokengate/internal/http/controllers/oauth"
	oidcctrl "github.com/dropDatabas3/tokengate/internal/http/controllers/oidc"
	mw "github.com/dropDatabas3/tokengate/internal/http/middlewares"
	"github.com/dropDatabas3/tokengate/internal/metrics"
)

// RouterDeps carries the controllers the router mounts.
type RouterDeps struct {
	OAuth     *oauthctrl.Controllers
	Discovery *oidcctrl.DiscoveryController
	JWKS      *oidcctrl.JWKSController

	// Metrics is the /metrics handler; nil disables the route.
	Metrics http.Handler
}

// NewRouter builds the full handler tree. Tenant-scoped routes live
// under /{tenant}; token endpoints always answer with no-store headers.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/{tenant}", func(r chi.Router) {
		if deps.Discovery != nil {
			r.Get("/.well-known/oauth-authorization-server", deps.Discovery.Discovery)
			r.Get("/.well-known/openid-configuration", deps.Discovery.Discovery)
		}
		if deps.JWKS != nil {
			r.Get("/v1/jwks", deps.JWKS.JWKS)
		}

		r.Group(func(r chi.Router) {
			r.Use(mw.WithNoStore())
			r.Post("/v1/tokens", deps.OAuth.Token.Token)
			r.Post("/v1/tokens/introspection", deps.OAuth.Introspect.Introspect)
			r.Post("/v1/tokens/revocation", deps.OAuth.Revoke.Revoke)
		})
	})

	return mw.Chain(r,
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithRecover(),
		metrics.WithHTTP,
	)
}
