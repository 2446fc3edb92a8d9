package memory

import (
	"context"
	"sync"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	tokens "github.com/dropDatabas3/tokengate/internal/security/token"
	"github.com/dropDatabas3/tokengate/internal/token"
)

type tokenState int

const (
	tokenActive tokenState = iota
	tokenConsumed
	tokenRevoked
)

type tokenRecord struct {
	token *token.OAuthToken
	state tokenState
}

// TokenStore implements token.OAuthTokenRepository. Raw token values are
// never stored: lookups go through SHA-256 hash indexes.
type TokenStore struct {
	mu      sync.Mutex
	byID    map[string]*tokenRecord
	access  map[string]string // access hash -> id key
	refresh map[string]string // refresh hash -> id key
}

func NewTokenStore() *TokenStore {
	return &TokenStore{
		byID:    map[string]*tokenRecord{},
		access:  map[string]string{},
		refresh: map[string]string{},
	}
}

func idKey(tenantID string, id token.OAuthTokenID) string { return tenantID + "|" + id.String() }

func hashKey(tenantID, raw string) string {
	return tenantID + "|" + tokens.SHA256Base64URL(raw)
}

func (s *TokenStore) Register(ctx context.Context, t *token.OAuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := idKey(t.TenantID(), t.ID)
	s.byID[key] = &tokenRecord{token: t, state: tokenActive}
	s.access[hashKey(t.TenantID(), t.AccessToken.Entity.Value)] = key
	if t.HasRefreshToken() {
		s.refresh[hashKey(t.TenantID(), t.RefreshToken.Entity)] = key
	}
	return nil
}

func (s *TokenStore) FindByID(ctx context.Context, tenantID string, id token.OAuthTokenID) (*token.OAuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked(idKey(tenantID, id))
}

func (s *TokenStore) FindByAccessToken(ctx context.Context, tenantID, accessToken string) (*token.OAuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.access[hashKey(tenantID, accessToken)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.activeLocked(key)
}

func (s *TokenStore) FindByRefreshToken(ctx context.Context, tenantID, refreshToken string) (*token.OAuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.refresh[hashKey(tenantID, refreshToken)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.activeLocked(key)
}

func (s *TokenStore) Consume(ctx context.Context, tenantID string, id token.OAuthTokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[idKey(tenantID, id)]
	if !ok || rec.state == tokenRevoked {
		return repository.ErrNotFound
	}
	if rec.state == tokenConsumed {
		return repository.ErrAlreadyConsumed
	}
	rec.state = tokenConsumed
	return nil
}

func (s *TokenStore) Revoke(ctx context.Context, tenantID string, id token.OAuthTokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[idKey(tenantID, id)]
	if !ok {
		return repository.ErrNotFound
	}
	rec.state = tokenRevoked
	return nil
}

// activeLocked resolves a record key to a live aggregate. Consumed and
// revoked aggregates read as not found.
func (s *TokenStore) activeLocked(key string) (*token.OAuthToken, error) {
	rec, ok := s.byID[key]
	if !ok || rec.state != tokenActive {
		return nil, repository.ErrNotFound
	}
	return rec.token, nil
}
