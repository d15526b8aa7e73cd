// Command audit_worker consumes transfer events from RabbitMQ and stores them
// in MongoDB.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paycore/internal/audit"
	"paycore/internal/config"
	applogger "paycore/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	bindingKey  = "transfer.#"
	consumerTag = "paycore_audit_worker"
	saveTimeout = 5 * time.Second
)

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		bootLog := applogger.New("info", true)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := applogger.New(cfg.LogLevel, cfg.LogPretty || !cfg.IsProduction()).
		With().Str("component", "audit_worker").Logger()

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create mongodb client")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to disconnect mongodb")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := mongoClient.Ping(ctx, nil); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("mongodb unreachable")
	}
	repo := audit.NewMongoRepository(mongoClient, cfg.MongoDatabase)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to ensure audit indexes")
	}
	cancel()
	log.Info().Str("database", cfg.MongoDatabase).Msg("mongodb connected")

	conn, err := amqp.DialConfig(cfg.AMQPURL, amqp.Config{
		Properties: amqp.Table{"connection_name": "paycore_audit_worker"},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to rabbitmq")
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close rabbitmq connection")
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open channel")
	}
	defer func() {
		if err := ch.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close channel")
		}
	}()

	msgs, err := subscribe(ch, cfg.EventExchange, cfg.AuditQueue)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up consumer")
	}

	notifyClose := ch.NotifyClose(make(chan *amqp.Error, 1))
	handler := audit.NewHandler(repo)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	log.Info().Str("queue", cfg.AuditQueue).Str("binding", bindingKey).Msg("worker started")
	for {
		select {
		case <-stop:
			log.Info().Msg("shutting down worker")
			if err := ch.Cancel(consumerTag, false); err != nil {
				log.Warn().Err(err).Msg("failed to cancel consumer")
			}
			return
		case amqpErr := <-notifyClose:
			// Exit so the supervisor restarts the worker with a fresh connection.
			log.Error().Interface("amqp_error", amqpErr).Msg("rabbitmq channel closed")
			os.Exit(1)
		case d, ok := <-msgs:
			if !ok {
				log.Error().Msg("delivery channel closed")
				os.Exit(1)
			}
			settle(d, handler, log)
		}
	}
}

// subscribe declares the exchange and queue, binds them and starts a
// manual-ack consumer taking one message at a time.
func subscribe(ch *amqp.Channel, exchange, queue string) (<-chan amqp.Delivery, error) {
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return nil, err
	}
	if err := ch.QueueBind(q.Name, bindingKey, exchange, false, nil); err != nil {
		return nil, err
	}
	return ch.Consume(q.Name, consumerTag, false, false, false, false, nil)
}

func settle(d amqp.Delivery, handler *audit.Handler, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	outcome, err := handler.Handle(ctx, d.Body)
	switch outcome {
	case audit.Discard:
		log.Warn().Err(err).Str("routing_key", d.RoutingKey).Msg("discarding malformed event")
		if err := d.Nack(false, false); err != nil {
			log.Error().Err(err).Msg("failed to nack message")
		}
	case audit.Requeue:
		log.Error().Err(err).Str("routing_key", d.RoutingKey).Msg("failed to store event, requeueing")
		if err := d.Nack(false, true); err != nil {
			log.Error().Err(err).Msg("failed to nack message")
		}
	default:
		if err := d.Ack(false); err != nil {
			log.Error().Err(err).Msg("failed to ack message")
			return
		}
		log.Debug().Str("routing_key", d.RoutingKey).Msg("event stored")
	}
}
