package broker

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Options struct {
	Attempts   int
	RetryDelay time.Duration
}

var DefaultOptions = Options{Attempts: 5, RetryDelay: 5 * time.Second}

// Connect dials RabbitMQ, retrying while the broker is still starting up.
func Connect(ctx context.Context, url string, opts Options, logger *zap.Logger) (*amqp.Connection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}

	var err error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		var conn *amqp.Connection
		if conn, err = amqp.Dial(url); err == nil {
			logger.Info("connected to rabbitmq")
			return conn, nil
		}
		if attempt == opts.Attempts {
			break
		}
		logger.Warn("failed to connect to rabbitmq, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", opts.RetryDelay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}

	return nil, fmt.Errorf("could not connect to rabbitmq after %d attempts: %w", opts.Attempts, err)
}

// OpenQueue opens a channel and declares a durable queue on it.
func OpenQueue(conn *amqp.Connection, queue string) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return ch, nil
}
