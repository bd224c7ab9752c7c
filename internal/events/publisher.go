// Package events publishes domain events to a RabbitMQ topic exchange.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	appID          = "rally-backend"
	publishTimeout = 5 * time.Second
)

// Publisher delivers one event under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// NewPublisher dials RabbitMQ and declares the exchange. When amqpURL is empty
// or the broker is unreachable a publisher that only logs is returned.
func NewPublisher(amqpURL, exchange string, logger *slog.Logger) Publisher {
	if amqpURL == "" {
		logger.Info("rabbitmq disabled, using noop", slog.String("reason", "empty amqp url"))
		return noopPublisher{logger: logger}
	}

	p, err := dialExchange(amqpURL, exchange)
	if err != nil {
		logger.Warn("rabbitmq disabled, using noop", slog.Any("error", err))
		return noopPublisher{logger: logger}
	}

	logger.Info("rabbitmq connected", slog.String("exchange", exchange))
	return p
}

func dialExchange(amqpURL, exchange string) (*amqpPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	return &amqpPublisher{conn: conn, ch: ch, exchange: exchange, now: time.Now}, nil
}

type amqpPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	now      func() time.Time
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	msg, err := buildPublishing(routingKey, event, p.now())
	if err != nil {
		return err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishTimeout)
		defer cancel()
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

// buildPublishing encodes event as a persistent JSON message. Envelopes also
// carry their metadata as AMQP properties and headers so consumers can route
// and dedupe without decoding the body.
func buildPublishing(routingKey string, event any, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode %s: %w", routingKey, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    now.UTC(),
		Type:         routingKey,
		AppId:        appID,
		Body:         body,
	}

	env, ok := event.(Envelope)
	if !ok {
		return msg, nil
	}
	msg.Type = env.EventType
	msg.CorrelationId = env.RequestID
	msg.Headers = amqp.Table{
		"schema_version": int32(env.SchemaVersion),
		"environment":    env.Environment,
	}
	if env.UserID != nil {
		msg.Headers["user_id"] = *env.UserID
	}
	return msg, nil
}

func (p *amqpPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type noopPublisher struct {
	logger *slog.Logger
}

func (p noopPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	if p.logger != nil {
		p.logger.Debug("noop publish", slog.String("routing_key", routingKey))
	}
	return nil
}

func (noopPublisher) Close() error {
	return nil
}

// Mode reports "amqp" or "noop" for startup logging.
func Mode(p Publisher) string {
	if _, ok := p.(*amqpPublisher); ok {
		return "amqp"
	}
	return "noop"
}
