// Package app assembles the process: configuration in, running HTTP
// server out. All cross-package wiring lives here so main stays thin.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/tokengate/internal/cache"
	"github.com/dropDatabas3/tokengate/internal/clientauth"
	"github.com/dropDatabas3/tokengate/internal/config"
	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	"github.com/dropDatabas3/tokengate/internal/events"
	httpx "github.com/dropDatabas3/tokengate/internal/http"
	oauthctrl "github.com/dropDatabas3/tokengate/internal/http/controllers/oauth"
	oidcctrl "github.com/dropDatabas3/tokengate/internal/http/controllers/oidc"
	jwtx "github.com/dropDatabas3/tokengate/internal/jwt"
	"github.com/dropDatabas3/tokengate/internal/metrics"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
	"github.com/dropDatabas3/tokengate/internal/store/memory"
	"github.com/dropDatabas3/tokengate/internal/store/pg"
	"github.com/dropDatabas3/tokengate/internal/token"
)

// App is the assembled process. Close releases backend resources.
type App struct {
	Server *httpx.Server

	cache cache.Client
	pg    *pg.Store
}

// repos bundles the persistence ports the engine consumes; filled by
// the memory or postgres assembly.
type repos struct {
	serverConfigs repository.AuthorizationServerConfigQueryRepository
	clientConfigs repository.ClientConfigQueryRepository
	requests      repository.AuthorizationRequestRepository
	codeGrants    repository.AuthorizationCodeGrantRepository
	granted       repository.AuthorizationGrantedRepository
	tokens        token.OAuthTokenRepository
}

// New wires the whole service from configuration.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "tokengate",
	})
	log := logger.L().With(logger.Layer("app"))

	keys, err := buildKeystore(cfg)
	if err != nil {
		return nil, err
	}

	cacheClient, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	app := &App{cache: cacheClient}

	var r repos
	switch cfg.Storage.Driver {
	case "postgres":
		r, err = app.buildPostgres(ctx, cfg)
	default:
		r, err = app.buildMemory(cfg, cacheClient)
	}
	if err != nil {
		app.Close()
		return nil, err
	}

	users := memory.NewUserStore()
	loadUsers(users, cfg)

	publisher := events.NewLogPublisher()
	authenticator := clientauth.NewResolver(r.serverConfigs)
	accessIssuer := token.NewAccessTokenIssuer(keys, nil)
	refreshIssuer := token.NewRefreshTokenIssuer()
	idIssuer := token.NewIDTokenIssuer(keys)

	dispatcher := token.NewDispatcher(token.DispatcherDeps{
		ServerConfigs:    r.serverConfigs,
		ClientConfigs:    r.clientConfigs,
		Tokens:           r.tokens,
		Requests:         r.requests,
		CodeGrants:       r.codeGrants,
		Granted:          r.granted,
		Authenticator:    authenticator,
		AccessIssuer:     accessIssuer,
		RefreshIssuer:    refreshIssuer,
		IDIssuer:         idIssuer,
		PasswordDelegate: users,
		Publisher:        publisher,
	})

	protocol := token.NewProtocol(
		dispatcher,
		token.NewIntrospectionHandler(r.tokens, r.clientConfigs, authenticator, publisher),
		token.NewRevocationHandler(r.tokens, r.clientConfigs, authenticator, publisher),
	)

	metricsHandler, err := metrics.Register(metrics.Config{
		Registry: prometheus.DefaultRegisterer,
		Pool:     app.poolFunc(),
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	router := httpx.NewRouter(httpx.RouterDeps{
		OAuth: &oauthctrl.Controllers{
			Token:      oauthctrl.NewTokenController(protocol),
			Introspect: oauthctrl.NewIntrospectController(protocol),
			Revoke:     oauthctrl.NewRevokeController(protocol),
		},
		Discovery: oidcctrl.NewDiscoveryController(r.serverConfigs),
		JWKS:      oidcctrl.NewJWKSController(keys),
		Metrics:   metricsHandler,
	})

	app.Server = httpx.NewServer(cfg.Server.Addr, router)

	log.Info("application assembled",
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Driver),
		logger.Int("tenants", len(cfg.Tenants)),
	)
	return app, nil
}

// Close releases the cache connection and the database pool.
func (a *App) Close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.pg != nil {
		a.pg.Close()
	}
}

func (a *App) poolFunc() func() *pgxpool.Pool {
	if a.pg == nil {
		return nil
	}
	return a.pg.Pool
}

func (a *App) buildMemory(cfg *config.Config, cacheClient cache.Client) (repos, error) {
	configs := memory.NewConfigStore()
	servers := make([]repository.AuthorizationServerConfig, 0, len(cfg.Tenants))
	clients := make([]repository.ClientConfig, 0)
	for _, t := range cfg.Tenants {
		servers = append(servers, t.Server)
		clients = append(clients, t.Clients...)
	}
	configs.Load(servers, clients)

	grants := memory.NewGrantStore(cacheClient)
	return repos{
		serverConfigs: configs,
		clientConfigs: configs.Clients(),
		requests:      grants,
		codeGrants:    grants.CodeGrants(),
		granted:       grants.Granted(),
		tokens:        memory.NewTokenStore(),
	}, nil
}

func (a *App) buildPostgres(ctx context.Context, cfg *config.Config) (repos, error) {
	store, err := pg.New(ctx, pg.Config{
		DSN:             cfg.Storage.Postgres.DSN,
		MaxConns:        cfg.Storage.Postgres.MaxConns,
		MinConns:        cfg.Storage.Postgres.MinConns,
		ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return repos{}, fmt.Errorf("postgres: %w", err)
	}
	a.pg = store

	if cfg.Storage.Postgres.Migrate {
		if err := store.Migrate(ctx); err != nil {
			return repos{}, fmt.Errorf("migrate: %w", err)
		}
	}

	// Tenant and client registrations from the config file are pushed
	// into the database on startup so both drivers share one source of
	// truth for bootstrap.
	serverRepo := store.ServerConfigs()
	clientRepo := store.ClientConfigs()
	for i := range cfg.Tenants {
		t := &cfg.Tenants[i]
		if err := serverRepo.Save(ctx, &t.Server); err != nil {
			return repos{}, fmt.Errorf("seed tenant %s: %w", t.Server.TenantID, err)
		}
		for j := range t.Clients {
			if err := clientRepo.Save(ctx, &t.Clients[j]); err != nil {
				return repos{}, fmt.Errorf("seed client %s: %w", t.Clients[j].ClientID, err)
			}
		}
	}

	grants := store.Grants()
	return repos{
		serverConfigs: serverRepo,
		clientConfigs: clientRepo,
		requests:      grants,
		codeGrants:    grants.CodeGrants(),
		granted:       grants.Granted(),
		tokens:        store.Tokens(),
	}, nil
}

func buildKeystore(cfg *config.Config) (*jwtx.Keystore, error) {
	keys := jwtx.NewKeystore()
	for _, t := range cfg.Tenants {
		tenantID := t.Server.TenantID
		kid := t.SigningKey.KID
		if kid == "" {
			kid = tenantID + "-1"
		}

		var (
			key jwtx.SigningKey
			err error
		)
		if t.SigningKey.Seed != "" {
			key, err = jwtx.Ed25519SigningKeyFromSeed(tenantID, kid, t.SigningKey.Seed)
		} else {
			// No configured seed: ephemeral key, tokens do not survive
			// a restart. Fine for dev, logged so it is never a surprise
			// in prod.
			key, err = jwtx.NewEd25519SigningKey(tenantID, kid)
			logger.L().Warn("tenant has no configured signing seed, generated an ephemeral key",
				logger.TenantID(tenantID))
		}
		if err != nil {
			return nil, fmt.Errorf("tenant %s signing key: %w", tenantID, err)
		}
		keys.Add(key, t.Server.TokenSignedKeyID == kid)
	}
	return keys, nil
}

func loadUsers(store *memory.UserStore, cfg *config.Config) {
	for _, t := range cfg.Tenants {
		for _, u := range t.Users {
			store.Load([]memory.User{{
				TenantID:     t.Server.TenantID,
				Subject:      u.Subject,
				Username:     u.Username,
				PasswordHash: u.PasswordHash,
			}})
		}
	}
}
