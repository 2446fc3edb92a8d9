package token

import (
	"time"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
)

// TokenType is the access token usage scheme.
type TokenType string

const TokenTypeBearer TokenType = "Bearer"

// EntityKind distinguishes the two mutually exclusive access token
// representations.
type EntityKind string

const (
	EntityKindOpaque EntityKind = "opaque"
	EntityKindJWT    EntityKind = "jwt"
)

// AccessTokenEntity is the materialized token value: either an opaque
// random identifier or a signed compact JWT. The tagged Kind keeps both
// code paths explicit.
type AccessTokenEntity struct {
	Kind  EntityKind
	Value string
}

func NewOpaqueEntity(value string) AccessTokenEntity {
	return AccessTokenEntity{Kind: EntityKindOpaque, Value: value}
}

func NewJWTEntity(value string) AccessTokenEntity {
	return AccessTokenEntity{Kind: EntityKindJWT, Value: value}
}

func (e AccessTokenEntity) Exists() bool { return e.Value != "" }

func (e AccessTokenEntity) IsJWT() bool { return e.Kind == EntityKindJWT }

// AccessToken is one minted access token with its issuance bookkeeping.
type AccessToken struct {
	TenantID string
	Issuer   string
	Type     TokenType
	Entity   AccessTokenEntity

	// Grant is the authorization grant this token was minted from.
	Grant repository.AuthorizationGrant

	// Thumbprint is set only for sender-constrained tokens.
	Thumbprint CertThumbprint

	CreatedAt time.Time
	ExpiresIn time.Duration
	ExpiresAt time.Time
}

func (t AccessToken) Exists() bool { return t.Entity.Exists() }

func (t AccessToken) IsSenderConstrained() bool { return t.Thumbprint.Exists() }

func (t AccessToken) IsExpired(now time.Time) bool { return now.After(t.ExpiresAt) }
