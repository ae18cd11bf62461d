// Package broker owns the AMQP side of the gateway: topology declaration,
// request publishing, and the reply listener.
package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/linkedout/api-gateway/internal/config"
	"github.com/linkedout/api-gateway/internal/pkg/logger"
)

// ErrUnavailable wraps any publish rejected by the broker. The bridge maps
// it to 503.
var ErrUnavailable = errors.New("broker unavailable")

// Broker holds the AMQP connection, the publish channel, and the declared
// topology: one durable direct exchange for services and one non-durable,
// instance-unique reply queue bound to it by its own name.
type Broker struct {
	conn     *amqp.Connection
	exchange string

	// AMQP channels are not safe for concurrent publishing; the mutex
	// serialises access to pubCh.
	pubMu sync.Mutex
	pubCh *amqp.Channel

	replyQueue string
}

// Connect dials the broker and declares the gateway topology. instanceID
// makes the reply queue unique per replica so services always answer the
// replica that asked.
func Connect(cfg config.BrokerConfig, instanceID string) (*Broker, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.ServicesExchange, "direct", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", cfg.ServicesExchange, err)
	}

	queueName := replyQueueName(cfg.ReplyQueue, instanceID)
	if _, err := ch.QueueDeclare(queueName, false, true, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare reply queue %q: %w", queueName, err)
	}
	if err := ch.QueueBind(queueName, queueName, cfg.ServicesExchange, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("bind reply queue %q: %w", queueName, err)
	}

	logger.L().Info("broker connected",
		zap.String("exchange", cfg.ServicesExchange),
		zap.String("reply_queue", queueName))

	return &Broker{
		conn:       conn,
		exchange:   cfg.ServicesExchange,
		pubCh:      ch,
		replyQueue: queueName,
	}, nil
}

// replyQueueName weaves the instance id into the configured base name so the
// default "gateway.reply" becomes "gateway.<instance-id>.reply".
func replyQueueName(base, instanceID string) string {
	if stem, ok := strings.CutSuffix(base, ".reply"); ok {
		return stem + "." + instanceID + ".reply"
	}
	return base + "." + instanceID
}

// Publish sends one request envelope to the services exchange. The reply
// queue name rides along as the ReplyTo property so the answering service
// knows where to respond.
func (b *Broker) Publish(ctx context.Context, routingKey, correlationID string, body []byte) error {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	err := b.pubCh.PublishWithContext(ctx, b.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: correlationID,
		ReplyTo:       b.replyQueue,
		Headers:       amqp.Table{"correlationId": correlationID},
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ReplyQueue returns the instance-unique reply queue name.
func (b *Broker) ReplyQueue() string { return b.replyQueue }

// Close tears down the connection and all channels.
func (b *Broker) Close() {
	if err := b.conn.Close(); err != nil {
		logger.L().Warn("broker close", zap.Error(err))
	}
}
