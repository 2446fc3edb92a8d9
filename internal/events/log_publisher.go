package events

import (
	"context"

	"github.com/dropDatabas3/tokengate/internal/observability/logger"
)

// LogPublisher writes security events to the structured log. It is the
// default sink; deployments can swap in a queue-backed publisher.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher { return &LogPublisher{} }

func (p *LogPublisher) Publish(ctx context.Context, event SecurityEvent) {
	logger.From(ctx).Info("security event",
		logger.String("event", event.Type),
		logger.TenantID(event.TenantID),
		logger.ClientID(event.ClientID),
		logger.Subject(event.Subject),
		logger.GrantType(event.GrantType),
		logger.TokenID(event.TokenID),
		logger.ClientIP(event.Attributes.IP),
		logger.UserAgent(event.Attributes.UserAgent),
	)
}

// NopPublisher drops every event. Used in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, SecurityEvent) {}
