package token

import "context"

// OAuthTokenRepository persists issued aggregates and resolves them by
// identifier or by presented raw token value (introspection/revocation
// lookup path). Implementations index by SHA-256 hash of the raw value.
//
// Revocation is a repository-side state transition: a revoked aggregate
// is no longer resolvable through the Find methods.
type OAuthTokenRepository interface {
	// Register stores a freshly issued aggregate.
	Register(ctx context.Context, t *OAuthToken) error

	FindByID(ctx context.Context, tenantID string, id OAuthTokenID) (*OAuthToken, error)

	// FindByAccessToken resolves by the presented access token value.
	// Returns repository.ErrNotFound for unknown or revoked tokens.
	FindByAccessToken(ctx context.Context, tenantID, accessToken string) (*OAuthToken, error)

	// FindByRefreshToken resolves by the presented refresh token value.
	FindByRefreshToken(ctx context.Context, tenantID, refreshToken string) (*OAuthToken, error)

	// Consume claims an aggregate whose refresh token is being rotated.
	// Single-use: exactly one racing refresh wins; the loser gets
	// repository.ErrAlreadyConsumed.
	Consume(ctx context.Context, tenantID string, id OAuthTokenID) error

	// Revoke marks the aggregate inactive. Idempotent.
	Revoke(ctx context.Context, tenantID string, id OAuthTokenID) error
}
