package token

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
)

// CertThumbprint is the RFC 8705 x5t#S256 sender-constraint thumbprint:
// base64url(SHA-256(DER certificate)), no padding. Empty means the
// token is not sender-constrained.
type CertThumbprint string

func (t CertThumbprint) Exists() bool { return t != "" }

func (t CertThumbprint) String() string { return string(t) }

// CalculateThumbprint hashes the verified client certificate.
func CalculateThumbprint(cert *x509.Certificate) CertThumbprint {
	if cert == nil {
		return ""
	}
	sum := sha256.Sum256(cert.Raw)
	return CertThumbprint(base64.RawURLEncoding.EncodeToString(sum[:]))
}

// senderConstraintThumbprint decides whether the token being minted must
// be bound to the client certificate. Binding applies iff the client
// authenticated via mTLS AND the server enables TLS-bound tokens AND the
// client opted in. Deterministic, no side effects beyond the hash.
func senderConstraintThumbprint(
	serverConfig *repository.AuthorizationServerConfig,
	clientConfig *repository.ClientConfig,
	credentials ClientCredentials,
) CertThumbprint {
	if credentials.IsTLSClientAuthOrSelfSignedTLSClientAuth() &&
		serverConfig.TLSClientCertificateBoundAccessTokens &&
		clientConfig.TLSClientCertificateBoundAccessTokens {
		return CalculateThumbprint(credentials.ClientCertificate)
	}
	return ""
}
