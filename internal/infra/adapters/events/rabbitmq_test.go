//go:build !integration

package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subscription-billing/internal/domain/ports/adapter"
)

type recordingChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
	closed        bool
}

func (c *recordingChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return c.err
}

func (c *recordingChannel) Close() error { c.closed = true; return nil }

func TestRabbitMQPublisher_Publish(t *testing.T) {
	log := zerolog.Nop()
	at := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	t.Run("should wrap the payload in a persistent json envelope", func(t *testing.T) {
		ch := &recordingChannel{}
		p := &RabbitMQPublisher{channel: ch, exchange: DefaultExchange, log: &log, now: func() time.Time { return at }}

		require.NoError(t, p.Publish(context.Background(), adapter.EventInvoicePaid, map[string]string{"invoice_id": "i1"}))
		assert.Equal(t, "billing.events", ch.exchange)
		assert.Equal(t, "invoice.paid", ch.key)
		assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
		assert.Equal(t, "application/json", ch.msg.ContentType)

		var env Envelope
		require.NoError(t, json.Unmarshal(ch.msg.Body, &env))
		assert.NotEmpty(t, env.ID)
		assert.Equal(t, "invoice.paid", env.Type)
		assert.True(t, env.OccurredAt.Equal(at))
		assert.JSONEq(t, `{"invoice_id":"i1"}`, string(env.Data))
	})

	t.Run("should return broker errors to the caller", func(t *testing.T) {
		ch := &recordingChannel{err: errors.New("channel closed")}
		p := &RabbitMQPublisher{channel: ch, exchange: DefaultExchange, log: &log, now: time.Now}
		assert.Error(t, p.Publish(context.Background(), adapter.EventInvoiceCreated, struct{}{}))
	})

	t.Run("should reject unencodable payloads before publishing", func(t *testing.T) {
		ch := &recordingChannel{}
		p := &RabbitMQPublisher{channel: ch, exchange: DefaultExchange, log: &log, now: time.Now}
		assert.Error(t, p.Publish(context.Background(), adapter.EventInvoiceCreated, make(chan int)))
		assert.Empty(t, ch.key)
	})

	t.Run("should close the channel", func(t *testing.T) {
		ch := &recordingChannel{}
		p := &RabbitMQPublisher{channel: ch, log: &log}
		require.NoError(t, p.Close())
		assert.True(t, ch.closed)
	})
}
