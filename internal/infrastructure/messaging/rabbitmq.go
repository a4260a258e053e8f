// Package messaging forwards integration events to RabbitMQ.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/crm/backend/internal/infrastructure/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends a message body to the configured exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}

// NewPublisher connects to RabbitMQ when the broker is enabled and returns a
// log-only publisher otherwise.
func NewPublisher(cfg config.BrokerConfig, logger *zap.Logger) (Publisher, error) {
	if !cfg.Enabled {
		return NewLogPublisher(logger), nil
	}
	return NewRabbitMQPublisher(cfg.URL, cfg.Exchange, logger)
}

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher publishes persistent JSON messages to a durable topic
// exchange. amqp channels are not safe for concurrent use, so publishes are
// serialized.
type RabbitMQPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	logger   *zap.Logger
}

func NewRabbitMQPublisher(url, exchange string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	if exchange == "" {
		return nil, errors.New("broker exchange is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	logger.Info("connected to RabbitMQ", zap.String("exchange", exchange))
	return &RabbitMQPublisher{conn: conn, ch: ch, exchange: exchange, logger: logger}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s/%s: %w", p.exchange, routingKey, err)
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	chErr := p.ch.Close()
	if p.conn == nil {
		return chErr
	}
	return errors.Join(chErr, p.conn.Close())
}

// LogPublisher writes messages to the log instead of a broker.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, routingKey string, body []byte) error {
	p.logger.Info("broker disabled, message not sent",
		zap.String("routing_key", routingKey),
		zap.ByteString("body", body),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

var (
	_ Publisher = (*RabbitMQPublisher)(nil)
	_ Publisher = (*LogPublisher)(nil)
)
