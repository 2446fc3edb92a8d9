package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dropDatabas3/tokengate/internal/cache"
	"github.com/dropDatabas3/tokengate/internal/domain/repository"
)

func newCodeGrant(code string) *repository.AuthorizationCodeGrant {
	return &repository.AuthorizationCodeGrant{
		Code: code,
		Grant: repository.AuthorizationGrant{
			TenantID: "acme",
			Subject:  "user-1",
			ClientID: "svc",
			Scopes:   []string{"openid"},
		},
		ExpiresAt: time.Now().UTC().Add(5 * time.Minute),
	}
}

func TestCodeGrantRoundTrip(t *testing.T) {
	store := NewGrantStore(cache.NewMemory("test")).CodeGrants()
	ctx := context.Background()

	if err := store.Register(ctx, newCodeGrant("code-1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	found, err := store.Find(ctx, "acme", "code-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Grant.Subject != "user-1" || len(found.Grant.Scopes) != 1 {
		t.Fatalf("grant round trip lost data: %+v", found.Grant)
	}

	if _, err := store.Find(ctx, "acme", "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown code err = %v, want ErrNotFound", err)
	}
	if _, err := store.Find(ctx, "other", "code-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("cross-tenant code err = %v, want ErrNotFound", err)
	}
}

func TestCodeGrantConsumeOnce(t *testing.T) {
	store := NewGrantStore(cache.NewMemory("test")).CodeGrants()
	ctx := context.Background()

	if err := store.Register(ctx, newCodeGrant("code-1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := store.Consume(ctx, "acme", "code-1"); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if err := store.Consume(ctx, "acme", "code-1"); !errors.Is(err, repository.ErrAlreadyConsumed) {
		t.Fatalf("second consume err = %v, want ErrAlreadyConsumed", err)
	}
	if _, err := store.Find(ctx, "acme", "code-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("consumed code still resolvable: %v", err)
	}
	if err := store.Consume(ctx, "acme", "never-issued"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown code consume err = %v, want ErrNotFound", err)
	}
}

func TestGrantedStoreUpsert(t *testing.T) {
	store := NewGrantStore(cache.NewMemory("test")).Granted()
	ctx := context.Background()

	granted := &repository.AuthorizationGranted{
		ID: "g-1",
		Grant: repository.AuthorizationGrant{
			TenantID: "acme", ClientID: "svc", Subject: "user-1",
			Scopes: []string{"openid"},
		},
		GrantedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := store.Save(ctx, granted); err != nil {
		t.Fatalf("save: %v", err)
	}
	found, err := store.Find(ctx, "acme", "svc", "user-1")
	if err != nil || found.ID != "g-1" {
		t.Fatalf("find: %v", err)
	}
	if _, err := store.Find(ctx, "acme", "svc", "someone-else"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown subject err = %v, want ErrNotFound", err)
	}
}
