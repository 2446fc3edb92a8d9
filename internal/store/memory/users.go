package memory

import (
	"context"
	"sync"

	"github.com/dropDatabas3/tokengate/internal/security/password"
	"github.com/dropDatabas3/tokengate/internal/token"
)

// User is a resource owner record for the password grant.
type User struct {
	TenantID     string
	Subject      string
	Username     string
	Name         string
	Email        string
	PasswordHash string // argon2id PHC string
}

// UserStore implements token.PasswordCredentialsGrantDelegate against
// in-process user records.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewUserStore() *UserStore {
	return &UserStore{users: map[string]User{}}
}

func userKey(tenantID, username string) string { return tenantID + "|" + username }

// Add registers a user with a plaintext password, hashing it on the way in.
func (s *UserStore) Add(tenantID, subject, username, plainPassword string) error {
	hash, err := password.Hash(password.Default, plainPassword)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userKey(tenantID, username)] = User{
		TenantID:     tenantID,
		Subject:      subject,
		Username:     username,
		PasswordHash: hash,
	}
	return nil
}

// Load registers pre-hashed user records.
func (s *UserStore) Load(users []User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		s.users[userKey(u.TenantID, u.Username)] = u
	}
}

func (s *UserStore) Authenticate(ctx context.Context, tenantID, username, plain string) (token.GrantUser, error) {
	s.mu.RLock()
	u, ok := s.users[userKey(tenantID, username)]
	s.mu.RUnlock()

	if !ok || !password.Verify(plain, u.PasswordHash) {
		return token.GrantUser{}, token.ErrUserAuthenticationFailed
	}
	return token.GrantUser{
		Subject: u.Subject,
		Name:    u.Name,
		Email:   u.Email,
	}, nil
}
