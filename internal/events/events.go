// Package events defines the security event contract for token
// lifecycle operations. Publication is fire-and-forget: a failing sink
// must never fail the request that produced the event.
package events

import (
	"context"
	"time"
)

// Event types emitted by the token engine.
const (
	TypeTokenIssued       = "token_issued"
	TypeTokenRefreshed    = "token_refreshed"
	TypeTokenIntrospected = "token_introspected"
	TypeTokenRevoked      = "token_revoked"
)

// RequestAttributes carry caller metadata for eventing.
type RequestAttributes struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// SecurityEvent is one token lifecycle occurrence.
type SecurityEvent struct {
	Type       string            `json:"type"`
	TenantID   string            `json:"tenant_id"`
	ClientID   string            `json:"client_id,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	GrantType  string            `json:"grant_type,omitempty"`
	TokenID    string            `json:"token_id,omitempty"`
	Attributes RequestAttributes `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Publisher receives security events. Implementations must not block
// the caller on sink latency and must swallow sink errors.
type Publisher interface {
	Publish(ctx context.Context, event SecurityEvent)
}
