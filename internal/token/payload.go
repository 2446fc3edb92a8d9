package token

import (
	"time"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
)

// payloadBuilder assembles the access token claim set. Claim slots with
// absent values are omitted entirely, never emitted as null.
type payloadBuilder struct {
	claims map[string]any
}

func newPayloadBuilder() *payloadBuilder {
	return &payloadBuilder{claims: make(map[string]any)}
}

func (b *payloadBuilder) addIssuer(iss string) {
	b.claims["iss"] = iss
}

// addSubject omits the claim for subject-less grants (client_credentials).
func (b *payloadBuilder) addSubject(sub string) {
	if sub != "" {
		b.claims["sub"] = sub
	}
}

func (b *payloadBuilder) addClientID(clientID string) {
	b.claims["client_id"] = clientID
}

func (b *payloadBuilder) addScopes(grant repository.AuthorizationGrant) {
	b.claims["scope"] = grant.ScopeString()
}

func (b *payloadBuilder) addAuthorizationDetails(grant repository.AuthorizationGrant) {
	if grant.HasAuthorizationDetails() {
		b.claims["authorization_details"] = grant.AuthorizationDetails
	}
}

func (b *payloadBuilder) addTimes(createdAt, expiresAt time.Time) {
	b.claims["iat"] = createdAt.Unix()
	b.claims["exp"] = expiresAt.Unix()
}

func (b *payloadBuilder) addJTI(jti string) {
	b.claims["jti"] = jti
}

// addCustomClaims merges plugin output verbatim.
func (b *payloadBuilder) addCustomClaims(custom map[string]any) {
	for k, v := range custom {
		b.claims[k] = v
	}
}

// addThumbprint embeds the RFC 8705 confirmation claim.
func (b *payloadBuilder) addThumbprint(thumbprint CertThumbprint) {
	if thumbprint.Exists() {
		b.claims["cnf"] = map[string]any{"x5t#S256": thumbprint.String()}
	}
}

func (b *payloadBuilder) build() map[string]any {
	return b.claims
}
