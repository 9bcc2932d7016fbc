package memory

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/logger"
)

// NoopPublisher stands in for RabbitMQ in dev; events only reach the log.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) PublishUserRegistered(ctx context.Context, evt auth.UserEvent) error {
	return logUserEvent(ctx, "user registered", evt)
}

func (p *NoopPublisher) PublishUserSignedIn(ctx context.Context, evt auth.UserEvent) error {
	return logUserEvent(ctx, "user signed in", evt)
}

func (p *NoopPublisher) PublishUserSignedOut(ctx context.Context, evt auth.UserEvent) error {
	return logUserEvent(ctx, "user signed out", evt)
}

func (p *NoopPublisher) PublishPasswordResetRequested(ctx context.Context, evt auth.PasswordResetEvent) error {
	logger.WithCtx(ctx).Debug().
		Str("publisher", "noop").
		Time("at", evt.At).
		Msg("password reset requested")
	return nil
}

func logUserEvent(ctx context.Context, msg string, evt auth.UserEvent) error {
	logger.WithCtx(ctx).Debug().
		Str("publisher", "noop").
		Str("user_id", evt.UserID).
		Str("provider", evt.Provider).
		Msg(msg)
	return nil
}
