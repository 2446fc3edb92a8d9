package pg

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
)

// GrantRepository implements the authorization request, code grant and
// standing consent repositories.
type GrantRepository struct{ store *Store }

func (s *Store) Grants() *GrantRepository { return &GrantRepository{store: s} }

func (r *GrantRepository) Find(ctx context.Context, tenantID, id string) (*repository.AuthorizationRequest, error) {
	const q = `SELECT payload FROM authorization_requests WHERE tenant_id=$1 AND id=$2`
	var payload []byte
	if err := r.store.pool.QueryRow(ctx, q, tenantID, id).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var req repository.AuthorizationRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// CodeGrants returns the code grant view.
func (r *GrantRepository) CodeGrants() *CodeGrantRepository { return &CodeGrantRepository{store: r.store} }

// Granted returns the standing consent view.
func (r *GrantRepository) Granted() *GrantedRepository { return &GrantedRepository{store: r.store} }

// CodeGrantRepository implements repository.AuthorizationCodeGrantRepository.
type CodeGrantRepository struct{ store *Store }

// Register stores an issued code grant.
func (r *CodeGrantRepository) Register(ctx context.Context, grant *repository.AuthorizationCodeGrant) error {
	const q = `
		INSERT INTO authorization_code_grants (tenant_id, code, payload, expires_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())`
	payload, err := json.Marshal(grant)
	if err != nil {
		return err
	}
	_, err = r.store.pool.Exec(ctx, q, grant.Grant.TenantID, grant.Code, payload, grant.ExpiresAt)
	return err
}

func (r *CodeGrantRepository) Find(ctx context.Context, tenantID, code string) (*repository.AuthorizationCodeGrant, error) {
	const q = `
		SELECT payload FROM authorization_code_grants
		WHERE tenant_id=$1 AND code=$2 AND consumed_at IS NULL`
	var payload []byte
	if err := r.store.pool.QueryRow(ctx, q, tenantID, code).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var grant repository.AuthorizationCodeGrant
	if err := json.Unmarshal(payload, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// Consume claims the code. The conditional UPDATE decides the race.
func (r *CodeGrantRepository) Consume(ctx context.Context, tenantID, code string) error {
	const q = `
		UPDATE authorization_code_grants SET consumed_at=NOW()
		WHERE tenant_id=$1 AND code=$2 AND consumed_at IS NULL`
	ct, err := r.store.pool.Exec(ctx, q, tenantID, code)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	const probe = `SELECT 1 FROM authorization_code_grants WHERE tenant_id=$1 AND code=$2`
	var one int
	if err := r.store.pool.QueryRow(ctx, probe, tenantID, code).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}
	return repository.ErrAlreadyConsumed
}

// GrantedRepository implements repository.AuthorizationGrantedRepository.
type GrantedRepository struct{ store *Store }

func (r *GrantedRepository) Find(ctx context.Context, tenantID, clientID, subject string) (*repository.AuthorizationGranted, error) {
	const q = `
		SELECT payload FROM authorization_granted
		WHERE tenant_id=$1 AND client_id=$2 AND subject=$3`
	var payload []byte
	if err := r.store.pool.QueryRow(ctx, q, tenantID, clientID, subject).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var granted repository.AuthorizationGranted
	if err := json.Unmarshal(payload, &granted); err != nil {
		return nil, err
	}
	return &granted, nil
}

func (r *GrantedRepository) Save(ctx context.Context, granted *repository.AuthorizationGranted) error {
	const q = `
		INSERT INTO authorization_granted (tenant_id, client_id, subject, payload, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (tenant_id, client_id, subject) DO UPDATE SET payload=EXCLUDED.payload, updated_at=NOW()`
	payload, err := json.Marshal(granted)
	if err != nil {
		return err
	}
	g := granted.Grant
	_, err = r.store.pool.Exec(ctx, q, g.TenantID, g.ClientID, g.Subject, payload)
	return err
}
