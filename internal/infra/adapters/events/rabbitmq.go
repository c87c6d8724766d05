package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"subscription-billing/internal/domain/ports/adapter"
)

// DefaultExchange is the topic exchange lifecycle events are published to.
const DefaultExchange = "billing.events"

var _ adapter.EventPublisher = (*RabbitMQPublisher)(nil)

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher publishes JSON envelopes to a durable topic exchange.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  publishChannel
	exchange string
	log      *zerolog.Logger
	now      func() time.Time
	mu       sync.Mutex
}

// Envelope wraps every payload so consumers can dedupe on ID.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

func NewRabbitMQPublisher(url, exchange string, logger *zerolog.Logger) (*RabbitMQPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
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
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	l := logger.With().Str("component", "events").Str("exchange", exchange).Logger()
	l.Info().Msg("RabbitMQ publisher connected")
	return &RabbitMQPublisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		log:      &l,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := encode(routingKey, payload, p.now())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now(),
			Type:         routingKey,
			Body:         body,
		},
	)
	if err != nil {
		p.log.Error().Err(err).Str("routing_key", routingKey).Msg("failed to publish message")
		return err
	}
	p.log.Debug().Str("routing_key", routingKey).Int("size", len(body)).Msg("message published")
	return nil
}

func encode(routingKey string, payload any, at time.Time) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", routingKey, err)
	}
	return json.Marshal(Envelope{ID: uuid.NewString(), Type: routingKey, OccurredAt: at, Data: data})
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn().Err(err).Msg("error closing channel")
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

var _ adapter.EventPublisher = (*NoopPublisher)(nil)

// NoopPublisher logs events when no broker is configured.
type NoopPublisher struct {
	log *zerolog.Logger
}

func NewNoopPublisher(logger *zerolog.Logger) *NoopPublisher {
	l := logger.With().Str("component", "events").Logger()
	return &NoopPublisher{log: &l}
}

func (p *NoopPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.log.Debug().Str("routing_key", routingKey).Msg("noop publish")
	return nil
}

func (p *NoopPublisher) Close() error { return nil }
