package token

import (
	"time"

	"github.com/google/uuid"
)

// OAuthTokenID identifies one issuance transaction. Random, never reused.
type OAuthTokenID string

func NewOAuthTokenID() OAuthTokenID { return OAuthTokenID(uuid.NewString()) }

func (id OAuthTokenID) String() string { return string(id) }

// OAuthToken is the aggregate produced by one grant evaluation: the
// access token plus the optional refresh token, ID token and
// verifiable-credential nonce. Immutable after construction; a refresh
// produces a brand-new aggregate.
type OAuthToken struct {
	ID           OAuthTokenID
	AccessToken  AccessToken
	RefreshToken RefreshToken

	IDToken string

	CNonce          string
	CNonceExpiresIn int64
}

func (t *OAuthToken) TenantID() string { return t.AccessToken.TenantID }

func (t *OAuthToken) Issuer() string { return t.AccessToken.Issuer }

func (t *OAuthToken) Subject() string { return t.AccessToken.Grant.Subject }

func (t *OAuthToken) ClientID() string { return t.AccessToken.Grant.ClientID }

func (t *OAuthToken) Scopes() []string { return t.AccessToken.Grant.Scopes }

func (t *OAuthToken) HasRefreshToken() bool { return t.RefreshToken.Exists() }

func (t *OAuthToken) HasIDToken() bool { return t.IDToken != "" }

func (t *OAuthToken) HasCNonce() bool { return t.CNonce != "" }

// ExpiresAt is the aggregate's liveness horizon: the later of access
// and refresh expiry when a refresh token exists.
func (t *OAuthToken) ExpiresAt() time.Time {
	if t.HasRefreshToken() && t.RefreshToken.ExpiresAt.After(t.AccessToken.ExpiresAt) {
		return t.RefreshToken.ExpiresAt
	}
	return t.AccessToken.ExpiresAt
}

func (t *OAuthToken) IsExpired(now time.Time) bool { return now.After(t.ExpiresAt()) }
