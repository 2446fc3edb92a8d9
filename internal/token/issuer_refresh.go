package token

import (
	"time"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	tokens "github.com/dropDatabas3/tokengate/internal/security/token"
)

// opaqueRefreshTokenBytes yields a 24-character base64url token.
const opaqueRefreshTokenBytes = 18

// RefreshTokenIssuer generates opaque refresh tokens and applies the
// extend-vs-preserve expiry policy on refresh.
type RefreshTokenIssuer struct {
	now func() time.Time
}

func NewRefreshTokenIssuer() *RefreshTokenIssuer {
	return &RefreshTokenIssuer{now: time.Now}
}

// Create mints a fresh refresh token.
func (i *RefreshTokenIssuer) Create(
	serverConfig *repository.AuthorizationServerConfig,
	clientConfig *repository.ClientConfig,
) (RefreshToken, error) {
	value, err := tokens.GenerateOpaqueToken(opaqueRefreshTokenBytes)
	if err != nil {
		return RefreshToken{}, err
	}

	duration := serverConfig.RefreshTokenDuration
	if clientConfig.HasRefreshTokenDuration() {
		duration = clientConfig.RefreshTokenDuration
	}

	createdAt := i.now().UTC()
	return RefreshToken{
		Entity:    value,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(time.Duration(duration) * time.Second),
	}, nil
}

// Refresh applies the rotation policy: extends issues a brand-new token
// with fresh expiry; preserve re-attaches the original token, expiry
// untouched. Whether the old token is invalidated in storage is the
// repository's responsibility, triggered by the grant service.
func (i *RefreshTokenIssuer) Refresh(
	old RefreshToken,
	serverConfig *repository.AuthorizationServerConfig,
	clientConfig *repository.ClientConfig,
) (RefreshToken, error) {
	if serverConfig.IsExtendsRefreshTokenStrategy() {
		return i.Create(serverConfig, clientConfig)
	}
	return old, nil
}
