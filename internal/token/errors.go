package token

import (
	"errors"
	"fmt"
)

// OAuth error codes surfaced to callers (RFC 6749 §5.2).
const (
	ErrCodeInvalidRequest       = "invalid_request"
	ErrCodeInvalidClient        = "invalid_client"
	ErrCodeInvalidGrant         = "invalid_grant"
	ErrCodeUnauthorizedClient   = "unauthorized_client"
	ErrCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrCodeInvalidScope         = "invalid_scope"
	ErrCodeServerError          = "server_error"
)

// OAuthError is a protocol error: it maps directly to a structured
// OAuth error response and never leaks internals.
type OAuthError struct {
	Code        string
	Description string
}

func (e *OAuthError) Error() string {
	return e.Code + ": " + e.Description
}

func NewOAuthError(code, description string) *OAuthError {
	return &OAuthError{Code: code, Description: description}
}

// AsOAuthError unwraps err into an OAuthError if it is one.
func AsOAuthError(err error) (*OAuthError, bool) {
	var oe *OAuthError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

// ConfigurationError marks a tenant/server misconfiguration (missing or
// invalid signing keys, malformed JWKS). Fatal for the request, never
// retried, reported to the caller only as server_error.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration invalid: %s: %v", e.Msg, e.Err)
	}
	return "configuration invalid: " + e.Msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func NewConfigurationError(msg string, err error) *ConfigurationError {
	return &ConfigurationError{Msg: msg, Err: err}
}

// IsConfigurationError reports whether err is a configuration defect.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
