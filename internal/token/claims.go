package token

import "github.com/dropDatabas3/tokengate/internal/domain/repository"

// CustomClaimsCreator contributes extra access token claims for a
// grant. Creators must be pure: same inputs, same output, no side
// effects.
type CustomClaimsCreator func(
	grant repository.AuthorizationGrant,
	serverConfig *repository.AuthorizationServerConfig,
	clientConfig *repository.ClientConfig,
	credentials ClientCredentials,
) map[string]any

// CustomClaimsRegistry is an ordered list of creators. Populated once
// at startup, read-only afterwards. Output is merged in registration
// order, later creators win on key collisions.
type CustomClaimsRegistry struct {
	creators []CustomClaimsCreator
}

func NewCustomClaimsRegistry(creators ...CustomClaimsCreator) *CustomClaimsRegistry {
	return &CustomClaimsRegistry{creators: creators}
}

func (r *CustomClaimsRegistry) Register(c CustomClaimsCreator) {
	r.creators = append(r.creators, c)
}

// Create merges all creator output for the grant.
func (r *CustomClaimsRegistry) Create(
	grant repository.AuthorizationGrant,
	serverConfig *repository.AuthorizationServerConfig,
	clientConfig *repository.ClientConfig,
	credentials ClientCredentials,
) map[string]any {
	if r == nil || len(r.creators) == 0 {
		return nil
	}
	merged := make(map[string]any)
	for _, create := range r.creators {
		for k, v := range create(grant, serverConfig, clientConfig, credentials) {
			merged[k] = v
		}
	}
	return merged
}

// GrantCustomPropertiesCreator copies the grant's custom properties
// into the token payload. Registered by default.
func GrantCustomPropertiesCreator(
	grant repository.AuthorizationGrant,
	_ *repository.AuthorizationServerConfig,
	_ *repository.ClientConfig,
	_ ClientCredentials,
) map[string]any {
	if len(grant.CustomProperties) == 0 {
		return nil
	}
	out := make(map[string]any, len(grant.CustomProperties))
	for k, v := range grant.CustomProperties {
		out[k] = v
	}
	return out
}
