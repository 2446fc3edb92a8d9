package token

import (
	"encoding/base64"
	"net/url"
	"strings"
)

// ParseBasicAuth decodes an HTTP Basic Authorization header into the
// client id and secret. Both parts are form-urldecoded per RFC 6749
// Appendix B.
func ParseBasicAuth(header string) (clientID, clientSecret string, ok bool) {
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	user, pass, found := strings.Cut(string(decoded), ":")
	if !found {
		return "", "", false
	}
	if u, err := url.QueryUnescape(user); err == nil {
		user = u
	}
	if p, err := url.QueryUnescape(pass); err == nil {
		pass = p
	}
	return user, pass, true
}
