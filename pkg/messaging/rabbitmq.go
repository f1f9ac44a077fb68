package messaging

import (
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/medflow/idscan/pkg/config"
	"github.com/medflow/idscan/pkg/logger"
)

// RabbitMQ holds the broker connection and the single channel events are published on.
// The service only publishes, so there is no reconnect loop: a lost connection
// shows up as "down" in Health and publish calls fail until restart.
type RabbitMQ struct {
	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	lastErr error
	logger  *logger.Logger
}

// New dials the broker described by cfg
func New(cfg *config.RabbitMQConfig, log *logger.Logger) (*RabbitMQ, error) {
	log = log.WithComponent("rabbitmq")

	amqpCfg := amqp.Config{
		Heartbeat:  cfg.Heartbeat,
		Properties: amqp.NewConnectionProperties(),
	}
	if cfg.ConnectionName != "" {
		amqpCfg.Properties.SetClientConnectionName(cfg.ConnectionName)
	}

	conn, err := amqp.DialConfig(cfg.URL, amqpCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	r := &RabbitMQ{conn: conn, channel: ch, logger: log}
	go r.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))

	log.Info().Str("connection_name", cfg.ConnectionName).Msg("connected to RabbitMQ")
	return r, nil
}

// watch records why the connection went away
func (r *RabbitMQ) watch(closed <-chan *amqp.Error) {
	amqpErr, ok := <-closed
	if !ok || amqpErr == nil {
		return
	}
	r.mu.Lock()
	r.lastErr = amqpErr
	r.mu.Unlock()
	r.logger.Error().Err(amqpErr).Msg("RabbitMQ connection lost")
}

// Channel returns the publishing channel
func (r *RabbitMQ) Channel() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

// Close closes channel and connection
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel != nil && !r.channel.IsClosed() {
		if err := r.channel.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to close channel")
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}

	r.logger.Info().Msg("RabbitMQ connection closed")
	return nil
}

// Health reports "up" while the connection is open
func (r *RabbitMQ) Health() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.conn != nil && !r.conn.IsClosed() {
		return map[string]string{"status": "up"}
	}

	status := map[string]string{"status": "down", "error": "connection closed"}
	if r.lastErr != nil {
		status["error"] = r.lastErr.Error()
	}
	return status
}

// DeclareExchange declares a durable topic exchange
func (r *RabbitMQ) DeclareExchange(name string) error {
	return r.Channel().ExchangeDeclare(
		name,    // name
		"topic", // type
		true,    // durable
		false,   // auto-deleted
		false,   // internal
		false,   // no-wait
		nil,     // arguments
	)
}
