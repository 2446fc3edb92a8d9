package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	"github.com/dropDatabas3/tokengate/internal/token"
)

func newAggregate(tenant, access, refresh string) *token.OAuthToken {
	now := time.Now().UTC()
	return &token.OAuthToken{
		ID: token.NewOAuthTokenID(),
		AccessToken: token.AccessToken{
			TenantID:  tenant,
			Type:      token.TokenTypeBearer,
			Entity:    token.NewOpaqueEntity(access),
			Grant:     repository.AuthorizationGrant{TenantID: tenant, ClientID: "svc"},
			CreatedAt: now,
			ExpiresIn: time.Hour,
			ExpiresAt: now.Add(time.Hour),
		},
		RefreshToken: token.RefreshToken{Entity: refresh, CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour)},
	}
}

func TestTokenStoreFindByRawValues(t *testing.T) {
	store := NewTokenStore()
	agg := newAggregate("acme", "access-1", "refresh-1")
	if err := store.Register(context.Background(), agg); err != nil {
		t.Fatalf("register: %v", err)
	}

	byAccess, err := store.FindByAccessToken(context.Background(), "acme", "access-1")
	if err != nil || byAccess.ID != agg.ID {
		t.Fatalf("find by access: %v", err)
	}
	byRefresh, err := store.FindByRefreshToken(context.Background(), "acme", "refresh-1")
	if err != nil || byRefresh.ID != agg.ID {
		t.Fatalf("find by refresh: %v", err)
	}

	// Lookups are tenant-scoped.
	if _, err := store.FindByAccessToken(context.Background(), "other", "access-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("cross-tenant lookup err = %v, want ErrNotFound", err)
	}
}

func TestTokenStoreRevokeHidesAggregate(t *testing.T) {
	store := NewTokenStore()
	agg := newAggregate("acme", "access-1", "refresh-1")
	if err := store.Register(context.Background(), agg); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := store.Revoke(context.Background(), "acme", agg.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := store.FindByAccessToken(context.Background(), "acme", "access-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("revoked token still resolvable: %v", err)
	}
	if _, err := store.FindByRefreshToken(context.Background(), "acme", "refresh-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("revoked refresh still resolvable: %v", err)
	}
	// Consuming a revoked aggregate reads as not found, not as replay.
	if err := store.Consume(context.Background(), "acme", agg.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("consume after revoke err = %v, want ErrNotFound", err)
	}
}

func TestTokenStoreConsumeIsSingleUse(t *testing.T) {
	store := NewTokenStore()
	agg := newAggregate("acme", "access-1", "refresh-1")
	if err := store.Register(context.Background(), agg); err != nil {
		t.Fatalf("register: %v", err)
	}

	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Consume(context.Background(), "acme", agg.ID)
		}(i)
	}
	wg.Wait()

	wins, replays := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, repository.ErrAlreadyConsumed):
			replays++
		default:
			t.Fatalf("unexpected consume error: %v", err)
		}
	}
	if wins != 1 || replays != racers-1 {
		t.Fatalf("wins = %d, replays = %d; want 1 / %d", wins, replays, racers-1)
	}
}
