package events

import (
	"context"
	"log/slog"
)

// Exchange is the topic exchange ledger events are published to.
const Exchange = "ledger_events"

// Routing keys for ledger lifecycle events.
const (
	KeyDepositCompleted  = "deposit.completed"
	KeyTransferCompleted = "transfer.completed"
)

// Publisher delivers ledger events to downstream systems. Publishing is
// best-effort: failures are logged by callers, never surfaced to the user.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// LogPublisher writes events to the structured logger. Used when no broker
// is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher constructs a logging event publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish writes the event to the logger.
func (p *LogPublisher) Publish(_ context.Context, routingKey string, payload any) error {
	if p == nil || p.logger == nil {
		return nil
	}
	p.logger.Info("ledger event", "routing_key", routingKey, "payload", payload)
	return nil
}
