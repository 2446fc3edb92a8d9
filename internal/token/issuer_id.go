package token

import (
	"crypto/sha256"
	"encoding/base64"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	jwtx "github.com/dropDatabas3/tokengate/internal/jwt"
)

// IDTokenIssuer signs OIDC ID tokens with the tenant key. Emitted only
// when the grant carries the openid scope.
type IDTokenIssuer struct {
	keys *jwtx.Keystore
	now  func() time.Time
}

func NewIDTokenIssuer(keys *jwtx.Keystore) *IDTokenIssuer {
	return &IDTokenIssuer{keys: keys, now: time.Now}
}

// IDTokenContext carries the front-channel leftovers an ID token needs.
type IDTokenContext struct {
	Nonce    string
	AuthTime time.Time
}

func (i *IDTokenIssuer) Issue(
	grant repository.AuthorizationGrant,
	serverConfig *repository.AuthorizationServerConfig,
	clientConfig *repository.ClientConfig,
	accessToken AccessToken,
	idCtx IDTokenContext,
) (string, error) {
	duration := serverConfig.IDTokenDuration
	if clientConfig.IDTokenDuration > 0 {
		duration = clientConfig.IDTokenDuration
	}
	if duration <= 0 {
		duration = serverConfig.AccessTokenDuration
	}

	now := i.now().UTC()
	claims := jwtv5.MapClaims{
		"iss": serverConfig.TokenIssuer,
		"sub": grant.Subject,
		"aud": grant.ClientID,
		"iat": now.Unix(),
		"exp": now.Add(time.Duration(duration) * time.Second).Unix(),
	}
	if accessToken.Exists() {
		claims["at_hash"] = atHash(accessToken.Entity.Value)
	}
	if idCtx.Nonce != "" {
		claims["nonce"] = idCtx.Nonce
	}
	if !idCtx.AuthTime.IsZero() {
		claims["auth_time"] = idCtx.AuthTime.Unix()
	}

	key, err := i.signingKey(serverConfig)
	if err != nil {
		return "", NewConfigurationError("resolve signing key", err)
	}
	method, err := jwtx.SigningMethodForAlg(key.Alg)
	if err != nil {
		return "", NewConfigurationError("signing alg", err)
	}

	tk := jwtv5.NewWithClaims(method, claims)
	tk.Header["kid"] = key.KID
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(key.Private)
	if err != nil {
		return "", NewConfigurationError("sign id token", err)
	}
	return signed, nil
}

func (i *IDTokenIssuer) signingKey(serverConfig *repository.AuthorizationServerConfig) (*jwtx.SigningKey, error) {
	if serverConfig.TokenSignedKeyID != "" {
		return i.keys.KeyByKID(serverConfig.TenantID, serverConfig.TokenSignedKeyID)
	}
	return i.keys.ActiveForTenant(serverConfig.TenantID)
}

// atHash is base64url of the left-most half of SHA-256(access_token).
func atHash(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return base64.RawURLEncoding.EncodeToString(sum[:len(sum)/2])
}
