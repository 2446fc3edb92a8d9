// Package clientauth verifies client identity at the token, introspection
// and revocation endpoints. One resolver handles every registered
// token_endpoint_auth_method and yields the immutable credentials the
// token engine binds against.
package clientauth

import (
	"context"
	"crypto"
	"crypto/subtle"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
	jwtx "github.com/dropDatabas3/tokengate/internal/jwt"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
	"github.com/dropDatabas3/tokengate/internal/token"
)

// JWTBearerClientAssertionType is the assertion type for private_key_jwt
// (RFC 7523 §2.2).
const JWTBearerClientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

// assertionMaxLifetime caps how far in the future a client assertion may
// claim to expire. Oversized lifetimes defeat the point of per-request
// assertions.
const assertionMaxLifetime = 10 * time.Minute

// Resolver authenticates clients against their registration. The
// registration decides the method; the request must satisfy exactly
// that method, so a client registered for private_key_jwt cannot fall
// back to a leaked secret.
type Resolver struct {
	serverConfigs repository.AuthorizationServerConfigQueryRepository
	now           func() time.Time
}

func NewResolver(serverConfigs repository.AuthorizationServerConfigQueryRepository) *Resolver {
	return &Resolver{serverConfigs: serverConfigs, now: time.Now}
}

var errAuthFailed = token.NewOAuthError(token.ErrCodeInvalidClient, "client authentication failed")

// Authenticate implements token.ClientAuthenticator.
func (r *Resolver) Authenticate(ctx context.Context, req *token.TokenRequest, client *repository.ClientConfig) (token.ClientCredentials, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Op("clientauth.authenticate"),
		logger.ClientID(client.ClientID),
	)

	switch client.TokenEndpointAuthMethod {
	case repository.AuthMethodNone:
		return token.ClientCredentials{
			ClientID:   client.ClientID,
			AuthMethod: repository.AuthMethodNone,
		}, nil

	case repository.AuthMethodClientSecretBasic:
		user, secret, ok := token.ParseBasicAuth(req.AuthorizationHeader)
		if !ok || user != client.ClientID {
			log.Warn("basic credentials missing or mismatched")
			return token.ClientCredentials{}, errAuthFailed
		}
		if !secretsEqual(secret, client.ClientSecret) {
			log.Warn("client secret mismatch")
			return token.ClientCredentials{}, errAuthFailed
		}
		return token.ClientCredentials{
			ClientID:     client.ClientID,
			AuthMethod:   repository.AuthMethodClientSecretBasic,
			ClientSecret: secret,
		}, nil

	case repository.AuthMethodClientSecretPost:
		secret := req.ClientSecret()
		if secret == "" || !secretsEqual(secret, client.ClientSecret) {
			log.Warn("client secret mismatch")
			return token.ClientCredentials{}, errAuthFailed
		}
		return token.ClientCredentials{
			ClientID:     client.ClientID,
			AuthMethod:   repository.AuthMethodClientSecretPost,
			ClientSecret: secret,
		}, nil

	case repository.AuthMethodPrivateKeyJWT:
		if err := r.verifyClientAssertion(ctx, req, client); err != nil {
			log.Warn("client assertion rejected", logger.Err(err))
			return token.ClientCredentials{}, errAuthFailed
		}
		return token.ClientCredentials{
			ClientID:        client.ClientID,
			AuthMethod:      repository.AuthMethodPrivateKeyJWT,
			ClientAssertion: req.ClientAssertion(),
		}, nil

	case repository.AuthMethodTLSClientAuth:
		if !req.HasClientCertificate() {
			log.Warn("client certificate missing")
			return token.ClientCredentials{}, errAuthFailed
		}
		if client.TLSClientAuthSubjectDN != "" &&
			req.ClientCertificate.Subject.String() != client.TLSClientAuthSubjectDN {
			log.Warn("certificate subject mismatch")
			return token.ClientCredentials{}, errAuthFailed
		}
		return token.ClientCredentials{
			ClientID:          client.ClientID,
			AuthMethod:        repository.AuthMethodTLSClientAuth,
			ClientCertificate: req.ClientCertificate,
		}, nil

	case repository.AuthMethodSelfSignedTLSClientAuth:
		if !req.HasClientCertificate() {
			log.Warn("client certificate missing")
			return token.ClientCredentials{}, errAuthFailed
		}
		return token.ClientCredentials{
			ClientID:          client.ClientID,
			AuthMethod:        repository.AuthMethodSelfSignedTLSClientAuth,
			ClientCertificate: req.ClientCertificate,
		}, nil

	default:
		log.Error("unknown token_endpoint_auth_method", logger.Err(fmt.Errorf("method %q", client.TokenEndpointAuthMethod)))
		return token.ClientCredentials{}, errAuthFailed
	}
}

// verifyClientAssertion validates a private_key_jwt assertion: correct
// assertion type, signature against the client's registered JWKS,
// iss == sub == client_id, audience matching the tenant issuer, and a
// bounded expiry.
func (r *Resolver) verifyClientAssertion(ctx context.Context, req *token.TokenRequest, client *repository.ClientConfig) error {
	if req.ClientAssertionType() != JWTBearerClientAssertionType {
		return fmt.Errorf("unexpected client_assertion_type %q", req.ClientAssertionType())
	}
	assertion := req.ClientAssertion()
	if assertion == "" {
		return fmt.Errorf("client_assertion is required")
	}

	keys, err := jwtx.ParseJWKS(client.JWKS)
	if err != nil {
		return fmt.Errorf("client jwks: %w", err)
	}

	serverConfig, err := r.serverConfigs.Get(ctx, req.TenantID)
	if err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	claims := jwtlib.MapClaims{}
	parsed, err := jwtlib.ParseWithClaims(assertion, claims, assertionKeyfunc(keys),
		jwtlib.WithValidMethods([]string{"EdDSA", "RS256", "ES256"}),
		jwtlib.WithIssuer(client.ClientID),
		jwtlib.WithSubject(client.ClientID),
		jwtlib.WithAudience(serverConfig.TokenIssuer),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("parse assertion: %w", err)
	}
	if !parsed.Valid {
		return fmt.Errorf("assertion is invalid")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fmt.Errorf("assertion exp missing")
	}
	if exp.Time.After(r.now().UTC().Add(assertionMaxLifetime)) {
		return fmt.Errorf("assertion lifetime too long")
	}
	return nil
}

// assertionKeyfunc selects the verification key by kid, falling back to
// the single registered key when the header has none.
func assertionKeyfunc(keys map[string]crypto.PublicKey) jwtlib.Keyfunc {
	return func(t *jwtlib.Token) (any, error) {
		if kid, ok := t.Header["kid"].(string); ok && kid != "" {
			if key, ok := keys[kid]; ok {
				return key, nil
			}
			return nil, fmt.Errorf("no registered key for kid %q", kid)
		}
		if len(keys) == 1 {
			for _, key := range keys {
				return key, nil
			}
		}
		return nil, fmt.Errorf("assertion header has no kid")
	}
}

// secretsEqual compares secrets in constant time.
func secretsEqual(presented, registered string) bool {
	if registered == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(registered)) == 1
}
