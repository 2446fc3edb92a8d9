package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dropDatabas3/tokengate/internal/cache"
	"github.com/dropDatabas3/tokengate/internal/domain/repository"
)

// GrantStore holds authorization requests, code grants and standing
// consent records. Code grants live in the cache with a TTL matching
// their expiry; the consume path is serialized so exactly one redeemer
// wins.
type GrantStore struct {
	cache cache.Client

	mu       sync.Mutex
	requests map[string]*repository.AuthorizationRequest
	granted  map[string]*repository.AuthorizationGranted
	consumed map[string]time.Time
	now      func() time.Time
}

func NewGrantStore(c cache.Client) *GrantStore {
	return &GrantStore{
		cache:    c,
		requests: map[string]*repository.AuthorizationRequest{},
		granted:  map[string]*repository.AuthorizationGranted{},
		consumed: map[string]time.Time{},
		now:      time.Now,
	}
}

func codeKey(tenantID, code string) string { return "authcode:" + tenantID + ":" + code }

func grantedKey(tenantID, clientID, subject string) string {
	return tenantID + "|" + clientID + "|" + subject
}

// RegisterRequest stores an authorization request for later ID token
// enrichment.
func (s *GrantStore) RegisterRequest(req *repository.AuthorizationRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.TenantID+"|"+req.ID] = req
}

func (s *GrantStore) Find(ctx context.Context, tenantID, id string) (*repository.AuthorizationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[tenantID+"|"+id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return req, nil
}

// CodeGrants returns the code grant view of this store.
func (s *GrantStore) CodeGrants() *CodeGrantStore { return &CodeGrantStore{parent: s} }

// Granted returns the standing consent view of this store.
func (s *GrantStore) Granted() *GrantedStore { return &GrantedStore{parent: s} }

// CodeGrantStore implements repository.AuthorizationCodeGrantRepository.
type CodeGrantStore struct {
	parent *GrantStore
}

// Register stores a code grant until its expiry.
func (s *CodeGrantStore) Register(ctx context.Context, grant *repository.AuthorizationCodeGrant) error {
	raw, err := json.Marshal(grant)
	if err != nil {
		return err
	}
	ttl := time.Until(grant.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	return s.parent.cache.Set(ctx, codeKey(grant.Grant.TenantID, grant.Code), string(raw), ttl)
}

func (s *CodeGrantStore) Find(ctx context.Context, tenantID, code string) (*repository.AuthorizationCodeGrant, error) {
	raw, err := s.parent.cache.Get(ctx, codeKey(tenantID, code))
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var grant repository.AuthorizationCodeGrant
	if err := json.Unmarshal([]byte(raw), &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// Consume claims the code. The consumed marker outlives the cache entry
// so a replay after eviction still fails deterministically.
func (s *CodeGrantStore) Consume(ctx context.Context, tenantID, code string) error {
	key := codeKey(tenantID, code)

	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()

	if _, done := s.parent.consumed[key]; done {
		return repository.ErrAlreadyConsumed
	}
	ok, err := s.parent.cache.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotFound
	}
	if err := s.parent.cache.Delete(ctx, key); err != nil {
		return err
	}
	s.parent.consumed[key] = s.parent.now().UTC()
	return nil
}

// GrantedStore implements repository.AuthorizationGrantedRepository.
type GrantedStore struct {
	parent *GrantStore
}

func (s *GrantedStore) Find(ctx context.Context, tenantID, clientID, subject string) (*repository.AuthorizationGranted, error) {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	granted, ok := s.parent.granted[grantedKey(tenantID, clientID, subject)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return granted, nil
}

func (s *GrantedStore) Save(ctx context.Context, granted *repository.AuthorizationGranted) error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	g := granted.Grant
	s.parent.granted[grantedKey(g.TenantID, g.ClientID, g.Subject)] = granted
	return nil
}
