package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alitto/pond/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/linkedout/api-gateway/internal/correlation"
	"github.com/linkedout/api-gateway/internal/domain"
	"github.com/linkedout/api-gateway/internal/metrics"
	"github.com/linkedout/api-gateway/internal/pkg/logger"
)

// Listener drains the gateway reply queue and hands each reply to the
// correlation registry. Deliveries are acknowledged unconditionally: the
// gateway has no retry duty for replies, so a reply that cannot be used is
// logged and dropped.
type Listener struct {
	broker   *Broker
	registry *correlation.Registry
	metrics  *metrics.Metrics
	workers  int
	pool     pond.Pool
}

// NewListener creates a reply listener with the given worker count.
func NewListener(b *Broker, registry *correlation.Registry, m *metrics.Metrics, workers int) *Listener {
	return &Listener{
		broker:   b,
		registry: registry,
		metrics:  m,
		workers:  workers,
	}
}

// Start opens a dedicated consume channel and dispatches deliveries onto the
// worker pool until ctx is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	ch, err := l.broker.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consume channel: %w", err)
	}
	if err := ch.Qos(l.workers*2, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(l.broker.replyQueue, "gateway-reply-listener", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume %q: %w", l.broker.replyQueue, err)
	}

	l.pool = pond.NewPool(l.workers)

	go func() {
		defer func() {
			l.pool.StopAndWait()
			_ = ch.Close()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				l.pool.Submit(func() { l.handle(d) })
			}
		}
	}()

	logger.L().Info("reply listener started",
		zap.String("queue", l.broker.replyQueue),
		zap.Int("workers", l.workers))
	return nil
}

// handle processes one reply delivery and acknowledges it regardless of the
// outcome.
func (l *Listener) handle(d amqp.Delivery) {
	defer func() {
		if err := d.Ack(false); err != nil {
			logger.L().Warn("ack reply", zap.Error(err))
		}
	}()

	id := d.CorrelationId
	if id == "" {
		if v, ok := d.Headers[domain.CorrelationIDHeader].(string); ok {
			id = v
		}
	}
	if id == "" {
		logger.L().Error("reply without correlation id; dropping",
			zap.Int("body_bytes", len(d.Body)))
		return
	}

	var env domain.ResponseEnvelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		logger.L().Error("malformed reply payload; dropping",
			zap.String("correlation_id", id),
			zap.Error(err))
		return
	}
	if env.CorrelationID == "" {
		env.CorrelationID = id
	}

	switch l.registry.Complete(id, env) {
	case correlation.Delivered:
	case correlation.Orphan:
		l.metrics.OrphanReplies.Inc()
		logger.L().Warn("orphan reply dropped", zap.String("correlation_id", id))
	case correlation.LateCompletion:
		l.metrics.LateCompletions.Inc()
		logger.L().Debug("late reply dropped", zap.String("correlation_id", id))
	}
}
