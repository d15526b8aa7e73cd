package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher delivers one serialized event under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
	Close() error
}

// RabbitMQPublisher publishes JSON messages to a durable topic exchange.
type RabbitMQPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      zerolog.Logger
}

// NewRabbitMQPublisher dials url and declares exchange.
func NewRabbitMQPublisher(url, exchange string, log zerolog.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Dial: amqp.DefaultDial(10 * time.Second),
		Properties: amqp.Table{
			"connection_name": "paycore_publisher",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	p := &RabbitMQPublisher{
		conn:     conn,
		exchange: exchange,
		log:      log.With().Str("component", "rabbitmq_publisher").Logger(),
	}
	if err := p.openChannel(); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

func (p *RabbitMQPublisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	); err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	p.channel = ch
	return nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, body interface{}) error {
	bytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Timestamp:    time.Now(),
		Body:         bytes,
		DeliveryMode: amqp.Persistent,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
	if err != nil {
		// One retry on a fresh channel; a closed channel is the usual cause.
		p.log.Warn().Err(err).Str("routing_key", routingKey).Msg("publish failed, reopening channel")
		if cerr := p.openChannel(); cerr != nil {
			return fmt.Errorf("failed to publish message: %w", err)
		}
		if err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg); err != nil {
			return fmt.Errorf("failed to publish message: %w", err)
		}
	}

	p.log.Debug().Str("routing_key", routingKey).Msg("event published")
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn().Err(err).Msg("failed to close channel")
		}
	}
	return p.conn.Close()
}

// LogPublisher writes events to the log. It stands in when no broker is
// reachable.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("component", "log_publisher").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, routingKey string, body interface{}) error {
	p.log.Info().Str("routing_key", routingKey).Interface("event", body).Msg("event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
