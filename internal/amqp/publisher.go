package amqp

import (
	"context"
	"fmt"
	"time"

	"spendwise/internal/events"
	"spendwise/internal/log"
)

// Sender is the part of Client a Publisher needs.
type Sender interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Publisher forwards bus events to the broker. Failures are logged and
// never reach the publishing side of the bus.
type Publisher struct {
	sender Sender
	logger *log.Logger
}

var _ events.Observer = (*Publisher)(nil)

func NewPublisher(sender Sender, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default(log.ComponentAMQP)
	}
	return &Publisher{sender: sender, logger: logger.WithComponent(log.ComponentAMQP)}
}

// Notify implements events.Observer
func (p *Publisher) Notify(ctx context.Context, e events.Event) {
	msg := NewEventMessage(e)
	body, err := msg.ToJSON()
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to marshal event", "kind", msg.Kind, log.FieldError, err)
		return
	}
	if err := p.sender.Publish(ctx, msg.RoutingKey(), body); err != nil {
		p.logger.WarnContext(ctx, "Failed to publish event", "kind", msg.Kind, log.FieldError, err)
	}
}

// Connect dials the broker, retrying with exponential backoff up to attempts
// times.
func Connect(ctx context.Context, url, exchange string, attempts int, logger *log.Logger) (*Client, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		c, err := NewClient(url, exchange, logger)
		if err == nil {
			return c, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}

		wait := exponentialBackoff(i)
		if logger != nil {
			logger.WarnContext(ctx, "AMQP connection failed, retrying",
				"attempt", i+1, "wait", wait.String(), log.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("connect after %d attempts: %w", attempts, lastErr)
}
