package pg

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	tokens "github.com/dropDatabas3/tokengate/internal/security/token"
	"github.com/dropDatabas3/tokengate/internal/token"
)

// TokenRepository implements token.OAuthTokenRepository. The aggregate
// travels as a JSONB payload; lookups go through hash columns so raw
// token values never touch the database.
type TokenRepository struct{ store *Store }

func (s *Store) Tokens() *TokenRepository { return &TokenRepository{store: s} }

func (r *TokenRepository) Register(ctx context.Context, t *token.OAuthToken) error {
	const q = `
		INSERT INTO oauth_tokens (id, tenant_id, access_token_hash, refresh_token_hash, payload, expires_at, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NOW())`

	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	var refreshHash string
	if t.HasRefreshToken() {
		refreshHash = tokens.SHA256Base64URL(t.RefreshToken.Entity)
	}
	_, err = r.store.pool.Exec(ctx, q,
		t.ID.String(),
		t.TenantID(),
		tokens.SHA256Base64URL(t.AccessToken.Entity.Value),
		refreshHash,
		payload,
		t.ExpiresAt(),
	)
	return err
}

func (r *TokenRepository) FindByID(ctx context.Context, tenantID string, id token.OAuthTokenID) (*token.OAuthToken, error) {
	const q = `
		SELECT payload FROM oauth_tokens
		WHERE tenant_id=$1 AND id=$2 AND status='active'`
	return r.scanOne(r.store.pool.QueryRow(ctx, q, tenantID, id.String()))
}

func (r *TokenRepository) FindByAccessToken(ctx context.Context, tenantID, accessToken string) (*token.OAuthToken, error) {
	const q = `
		SELECT payload FROM oauth_tokens
		WHERE tenant_id=$1 AND access_token_hash=$2 AND status='active'`
	return r.scanOne(r.store.pool.QueryRow(ctx, q, tenantID, tokens.SHA256Base64URL(accessToken)))
}

func (r *TokenRepository) FindByRefreshToken(ctx context.Context, tenantID, refreshToken string) (*token.OAuthToken, error) {
	// A preserved refresh token value recurs across rotations, so the
	// hash can match several active rows; the newest one wins.
	const q = `
		SELECT payload FROM oauth_tokens
		WHERE tenant_id=$1 AND refresh_token_hash=$2 AND status='active'
		ORDER BY created_at DESC LIMIT 1`
	return r.scanOne(r.store.pool.QueryRow(ctx, q, tenantID, tokens.SHA256Base64URL(refreshToken)))
}

// Consume flips the aggregate to consumed. The conditional UPDATE is
// the arbiter for racing refreshes: exactly one statement matches.
func (r *TokenRepository) Consume(ctx context.Context, tenantID string, id token.OAuthTokenID) error {
	const q = `
		UPDATE oauth_tokens SET status='consumed'
		WHERE tenant_id=$1 AND id=$2 AND status='active'`
	ct, err := r.store.pool.Exec(ctx, q, tenantID, id.String())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	const probe = `SELECT status FROM oauth_tokens WHERE tenant_id=$1 AND id=$2`
	var status string
	if err := r.store.pool.QueryRow(ctx, probe, tenantID, id.String()).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}
	if status == "consumed" {
		return repository.ErrAlreadyConsumed
	}
	return repository.ErrNotFound
}

func (r *TokenRepository) Revoke(ctx context.Context, tenantID string, id token.OAuthTokenID) error {
	const q = `
		UPDATE oauth_tokens SET status='revoked'
		WHERE tenant_id=$1 AND id=$2`
	ct, err := r.store.pool.Exec(ctx, q, tenantID, id.String())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TokenRepository) scanOne(row pgx.Row) (*token.OAuthToken, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var t token.OAuthToken
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
