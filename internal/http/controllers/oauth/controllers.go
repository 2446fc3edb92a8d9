// Package oauth contains the controllers for the token, introspection
// and revocation endpoints.
package oauth

import (
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/tokengate/internal/events"
)

// Controllers groups the oauth endpoint controllers.
type Controllers struct {
	Token      *TokenController
	Introspect *IntrospectController
	Revoke     *RevokeController
}

const maxFormBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func requestAttributes(r *http.Request) events.RequestAttributes {
	return events.RequestAttributes{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}

// peerCertificate extracts the client certificate: the TLS connection
// first, then the url-escaped PEM header a terminating proxy forwards.
func peerCertificate(r *http.Request) *x509.Certificate {
	if r.TLS != nil && len(r.TLS.PeerCertificates) > 0 {
		return r.TLS.PeerCertificates[0]
	}
	raw := r.Header.Get("X-Client-Cert")
	if raw == "" {
		return nil
	}
	if unescaped, err := url.QueryUnescape(raw); err == nil {
		raw = unescaped
	}
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return nil
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil
	}
	return cert
}
