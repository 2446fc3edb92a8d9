// Package memory implements every repository on in-process state. It is
// the default backend for development, tests and single-node setups.
package memory

import (
	"context"
	"sync"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
)

// ConfigStore serves tenant and client registrations loaded at startup.
// Read-only after Load; safe for concurrent reads.
type ConfigStore struct {
	mu      sync.RWMutex
	servers map[string]*repository.AuthorizationServerConfig
	clients map[string]*repository.ClientConfig
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		servers: map[string]*repository.AuthorizationServerConfig{},
		clients: map[string]*repository.ClientConfig{},
	}
}

func clientKey(tenantID, clientID string) string { return tenantID + "|" + clientID }

// Load registers tenant and client configurations, replacing earlier
// entries with the same identity.
func (s *ConfigStore) Load(servers []repository.AuthorizationServerConfig, clients []repository.ClientConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range servers {
		cfg := servers[i]
		s.servers[cfg.TenantID] = &cfg
	}
	for i := range clients {
		cfg := clients[i]
		s.clients[clientKey(cfg.TenantID, cfg.ClientID)] = &cfg
	}
}

func (s *ConfigStore) Get(ctx context.Context, tenantID string) (*repository.AuthorizationServerConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.servers[tenantID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cfg, nil
}

// Clients returns a view implementing the client query repository.
func (s *ConfigStore) Clients() *ClientConfigStore { return &ClientConfigStore{parent: s} }

// ClientConfigStore is the client-scoped view of a ConfigStore.
type ClientConfigStore struct {
	parent *ConfigStore
}

func (s *ClientConfigStore) Get(ctx context.Context, tenantID, clientID string) (*repository.ClientConfig, error) {
	s.parent.mu.RLock()
	defer s.parent.mu.RUnlock()
	cfg, ok := s.parent.clients[clientKey(tenantID, clientID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cfg, nil
}
