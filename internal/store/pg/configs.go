package pg

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
)

// ServerConfigRepository resolves tenant authorization server settings.
type ServerConfigRepository struct{ store *Store }

func (s *Store) ServerConfigs() *ServerConfigRepository { return &ServerConfigRepository{store: s} }

func (r *ServerConfigRepository) Get(ctx context.Context, tenantID string) (*repository.AuthorizationServerConfig, error) {
	const q = `SELECT payload FROM authorization_server_configs WHERE tenant_id=$1`
	var payload []byte
	if err := r.store.pool.QueryRow(ctx, q, tenantID).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var cfg repository.AuthorizationServerConfig
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save upserts a tenant configuration, used by seeding tools.
func (r *ServerConfigRepository) Save(ctx context.Context, cfg *repository.AuthorizationServerConfig) error {
	const q = `
		INSERT INTO authorization_server_configs (tenant_id, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (tenant_id) DO UPDATE SET payload=EXCLUDED.payload, updated_at=NOW()`
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = r.store.pool.Exec(ctx, q, cfg.TenantID, payload)
	return err
}

// ClientConfigRepository resolves registered clients.
type ClientConfigRepository struct{ store *Store }

func (s *Store) ClientConfigs() *ClientConfigRepository { return &ClientConfigRepository{store: s} }

func (r *ClientConfigRepository) Get(ctx context.Context, tenantID, clientID string) (*repository.ClientConfig, error) {
	const q = `SELECT payload FROM client_configs WHERE tenant_id=$1 AND client_id=$2`
	var payload []byte
	if err := r.store.pool.QueryRow(ctx, q, tenantID, clientID).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var cfg repository.ClientConfig
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save upserts a client registration.
func (r *ClientConfigRepository) Save(ctx context.Context, cfg *repository.ClientConfig) error {
	const q = `
		INSERT INTO client_configs (tenant_id, client_id, payload, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tenant_id, client_id) DO UPDATE SET payload=EXCLUDED.payload, updated_at=NOW()`
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = r.store.pool.Exec(ctx, q, cfg.TenantID, cfg.ClientID, payload)
	return err
}
