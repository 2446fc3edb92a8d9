package repository

import (
	"context"
	"strings"
	"time"
)

// AuthorizationGrant is the immutable record of what a tenant's user (or
// the client itself, for client_credentials) granted to a client. It is
// produced upstream by the authorization flow and consumed read-only here.
type AuthorizationGrant struct {
	TenantID string `json:"tenant_id"`

	// Subject is empty for client_credentials grants.
	Subject string `json:"subject,omitempty"`

	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes"`

	CustomProperties     map[string]any   `json:"custom_properties,omitempty"`
	AuthorizationDetails []map[string]any `json:"authorization_details,omitempty"`
}

func (g AuthorizationGrant) HasSubject() bool { return g.Subject != "" }

func (g AuthorizationGrant) HasAuthorizationDetails() bool {
	return len(g.AuthorizationDetails) > 0
}

// ScopeString returns the scopes as a space-joined string.
func (g AuthorizationGrant) ScopeString() string { return strings.Join(g.Scopes, " ") }

func (g AuthorizationGrant) HasScope(scope string) bool {
	for _, s := range g.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// AuthorizationRequest is the front-channel request that produced an
// authorization code. Only the fields the token engine reads survive here.
type AuthorizationRequest struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	ClientID    string    `json:"client_id"`
	RedirectURI string    `json:"redirect_uri"`
	Nonce       string    `json:"nonce,omitempty"`
	AuthTime    time.Time `json:"auth_time"`
}

// AuthorizationCodeGrant binds an authorization code to the grant it
// will redeem. Single-use: Consume claims it exactly once.
type AuthorizationCodeGrant struct {
	Code                   string             `json:"code"`
	AuthorizationRequestID string             `json:"authorization_request_id"`
	Grant                  AuthorizationGrant `json:"grant"`
	ExpiresAt              time.Time          `json:"expires_at"`
}

func (g *AuthorizationCodeGrant) Exists() bool { return g != nil && g.Code != "" }

func (g *AuthorizationCodeGrant) IsExpired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}

// AuthorizationGranted is the long-lived record of a subject's standing
// consent for a client, updated on every issuance.
type AuthorizationGranted struct {
	ID        string             `json:"id"`
	Grant     AuthorizationGrant `json:"grant"`
	GrantedAt time.Time          `json:"granted_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// AuthorizationRequestRepository loads stored authorization requests.
type AuthorizationRequestRepository interface {
	Find(ctx context.Context, tenantID, id string) (*AuthorizationRequest, error)
}

// AuthorizationCodeGrantRepository loads and consumes authorization
// code grants.
type AuthorizationCodeGrantRepository interface {
	// Find returns the grant for a code. Returns ErrNotFound when the
	// code is unknown or already consumed.
	Find(ctx context.Context, tenantID, code string) (*AuthorizationCodeGrant, error)

	// Consume claims the code. Exactly one caller succeeds; later
	// attempts get ErrAlreadyConsumed (or ErrNotFound once evicted).
	Consume(ctx context.Context, tenantID, code string) error
}

// AuthorizationGrantedRepository manages standing grants.
type AuthorizationGrantedRepository interface {
	Find(ctx context.Context, tenantID, clientID, subject string) (*AuthorizationGranted, error)

	// Save registers or updates the standing grant.
	Save(ctx context.Context, granted *AuthorizationGranted) error
}
