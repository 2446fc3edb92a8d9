package token

import (
	"time"

	"github.com/google/uuid"
	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	jwtx "github.com/dropDatabas3/tokengate/internal/jwt"
	tokens "github.com/dropDatabas3/tokengate/internal/security/token"
)

// opaqueAccessTokenBytes yields a 32-character base64url identifier.
const opaqueAccessTokenBytes = 24

// AccessTokenIssuer mints access tokens under tenant and client policy.
type AccessTokenIssuer struct {
	keys   *jwtx.Keystore
	claims *CustomClaimsRegistry
	now    func() time.Time
}

func NewAccessTokenIssuer(keys *jwtx.Keystore, claims *CustomClaimsRegistry) *AccessTokenIssuer {
	if claims == nil {
		claims = NewCustomClaimsRegistry(GrantCustomPropertiesCreator)
	}
	return &AccessTokenIssuer{keys: keys, claims: claims, now: time.Now}
}

// Create mints a fresh access token for an initial issuance.
func (i *AccessTokenIssuer) Create(
	grant repository.AuthorizationGrant,
	serverConfig *repository.AuthorizationServerConfig,
	clientConfig *repository.ClientConfig,
	credentials ClientCredentials,
) (AccessToken, error) {
	createdAt := i.now().UTC()

	duration := serverConfig.AccessTokenDuration
	if clientConfig.HasAccessTokenDuration() {
		duration = clientConfig.AccessTokenDuration
	}
	expiresIn := time.Duration(duration) * time.Second

	return i.issue(grant, serverConfig, clientConfig, credentials,
		createdAt, expiresIn, createdAt.Add(expiresIn))
}

// Refresh mints the renewed access token of a refresh_token grant.
// Under the preserve strategy the prior token's expiry is carried
// forward unchanged; extends recomputes it from now.
func (i *AccessTokenIssuer) Refresh(
	old AccessToken,
	grant repository.AuthorizationGrant,
	serverConfig *repository.AuthorizationServerConfig,
	clientConfig *repository.ClientConfig,
	credentials ClientCredentials,
) (AccessToken, error) {
	createdAt := i.now().UTC()

	if serverConfig.IsExtendsAccessTokenStrategy() {
		duration := serverConfig.AccessTokenDuration
		if clientConfig.HasAccessTokenDuration() {
			duration = clientConfig.AccessTokenDuration
		}
		expiresIn := time.Duration(duration) * time.Second
		return i.issue(grant, serverConfig, clientConfig, credentials,
			createdAt, expiresIn, createdAt.Add(expiresIn))
	}

	return i.issue(grant, serverConfig, clientConfig, credentials,
		createdAt, old.ExpiresIn, old.ExpiresAt)
}

func (i *AccessTokenIssuer) issue(
	grant repository.AuthorizationGrant,
	serverConfig *repository.AuthorizationServerConfig,
	clientConfig *repository.ClientConfig,
	credentials ClientCredentials,
	createdAt time.Time,
	expiresIn time.Duration,
	expiresAt time.Time,
) (AccessToken, error) {
	builder := newPayloadBuilder()
	builder.addIssuer(serverConfig.TokenIssuer)
	builder.addSubject(grant.Subject)
	builder.addClientID(grant.ClientID)
	builder.addScopes(grant)
	builder.addAuthorizationDetails(grant)
	builder.addTimes(createdAt, expiresAt)
	builder.addJTI(uuid.NewString())
	builder.addCustomClaims(i.claims.Create(grant, serverConfig, clientConfig, credentials))

	thumbprint := senderConstraintThumbprint(serverConfig, clientConfig, credentials)
	builder.addThumbprint(thumbprint)

	entity, err := i.materializeEntity(serverConfig, builder.build())
	if err != nil {
		return AccessToken{}, err
	}

	return AccessToken{
		TenantID:   grant.TenantID,
		Issuer:     serverConfig.TokenIssuer,
		Type:       TokenTypeBearer,
		Entity:     entity,
		Grant:      grant,
		Thumbprint: thumbprint,
		CreatedAt:  createdAt,
		ExpiresIn:  expiresIn,
		ExpiresAt:  expiresAt,
	}, nil
}

// materializeEntity picks the representation: identifier style discards
// the payload and emits a random opaque string; otherwise the payload
// is signed as a compact JWT with typ=at+jwt.
func (i *AccessTokenIssuer) materializeEntity(
	serverConfig *repository.AuthorizationServerConfig,
	payload map[string]any,
) (AccessTokenEntity, error) {
	if serverConfig.IsIdentifierAccessTokenType() {
		value, err := tokens.GenerateOpaqueToken(opaqueAccessTokenBytes)
		if err != nil {
			return AccessTokenEntity{}, err
		}
		return NewOpaqueEntity(value), nil
	}

	signed, err := i.sign(serverConfig, payload)
	if err != nil {
		return AccessTokenEntity{}, err
	}
	return NewJWTEntity(signed), nil
}

func (i *AccessTokenIssuer) sign(
	serverConfig *repository.AuthorizationServerConfig,
	payload map[string]any,
) (string, error) {
	key, err := i.signingKey(serverConfig)
	if err != nil {
		return "", NewConfigurationError("resolve signing key", err)
	}

	method, err := jwtx.SigningMethodForAlg(key.Alg)
	if err != nil {
		return "", NewConfigurationError("signing alg", err)
	}

	claims := jwtv5.MapClaims{}
	for k, v := range payload {
		claims[k] = v
	}
	tk := jwtv5.NewWithClaims(method, claims)
	tk.Header["kid"] = key.KID
	tk.Header["typ"] = "at+jwt"

	signed, err := tk.SignedString(key.Private)
	if err != nil {
		return "", NewConfigurationError("sign access token", err)
	}
	return signed, nil
}

func (i *AccessTokenIssuer) signingKey(serverConfig *repository.AuthorizationServerConfig) (*jwtx.SigningKey, error) {
	if serverConfig.TokenSignedKeyID != "" {
		return i.keys.KeyByKID(serverConfig.TenantID, serverConfig.TokenSignedKeyID)
	}
	return i.keys.ActiveForTenant(serverConfig.TenantID)
}
