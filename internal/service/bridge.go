// Package service implements the HTTP-to-broker bridge: every routed
// request is encoded into an envelope, published with its routing key, and
// answered from the correlated reply.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/linkedout/api-gateway/internal/config"
	"github.com/linkedout/api-gateway/internal/correlation"
	"github.com/linkedout/api-gateway/internal/domain"
	"github.com/linkedout/api-gateway/internal/metrics"
	"github.com/linkedout/api-gateway/internal/pkg/response"
	"github.com/linkedout/api-gateway/internal/server/middleware"
)

// Publisher is the broker surface the bridge depends on. *broker.Broker
// satisfies it; tests substitute fakes.
type Publisher interface {
	Publish(ctx context.Context, routingKey, correlationID string, body []byte) error
	ReplyQueue() string
}

// Bridge converts HTTP requests into broker messages and correlated replies
// into HTTP responses. One instance serves all routes.
type Bridge struct {
	publisher Publisher
	registry  *correlation.Registry
	metrics   *metrics.Metrics

	timeout      time.Duration
	maxBodyBytes int64
}

// NewBridge creates a bridge bounded by the request configuration.
func NewBridge(publisher Publisher, registry *correlation.Registry, m *metrics.Metrics, cfg config.RequestConfig) *Bridge {
	return &Bridge{
		publisher:    publisher,
		registry:     registry,
		metrics:      m,
		timeout:      time.Duration(cfg.TimeoutMs) * time.Millisecond,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// ProcessRequest runs the full round trip for one HTTP request against the
// service selected by routingKey.
func (b *Bridge) ProcessRequest(c *gin.Context, routingKey string) {
	log := middleware.Log(c)

	body, err := b.readBody(c)
	if err != nil {
		response.WriteError(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", b.maxBodyBytes))
		return
	}

	env := domain.NewRequestEnvelope(c.Request, body, middleware.PrincipalFrom(c))
	payload, err := json.Marshal(env)
	if err != nil {
		log.Error("encode request envelope", zap.Error(err))
		response.WriteError(c, http.StatusInternalServerError, "failed to encode request")
		return
	}

	correlationID := middleware.CorrelationIDFrom(c)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	deadline := time.Now().Add(b.timeout)
	slot, err := b.registry.Register(correlationID, deadline)
	switch {
	case errors.Is(err, correlation.ErrDuplicateCorrelation):
		log.Error("duplicate correlation id", zap.String("correlation_id", correlationID))
		response.WriteError(c, http.StatusInternalServerError, "duplicate correlation id")
		return
	case errors.Is(err, correlation.ErrRegistryFull):
		response.WriteError(c, http.StatusServiceUnavailable, "too many requests in flight")
		return
	case err != nil:
		log.Error("register slot", zap.Error(err))
		response.WriteError(c, http.StatusInternalServerError, "failed to register request")
		return
	}

	if err := b.publisher.Publish(c.Request.Context(), routingKey, correlationID, payload); err != nil {
		// Fail fast: no slot is left behind for a request that never reached
		// the exchange.
		b.registry.Remove(correlationID)
		b.metrics.PublishFailures.Inc()
		log.Error("publish request", zap.String("routing_key", routingKey), zap.Error(err))
		response.WriteError(c, http.StatusServiceUnavailable, "message broker unavailable")
		return
	}
	b.metrics.Published.Inc()
	log.Debug("request published",
		zap.String("routing_key", routingKey),
		zap.String("reply_to", b.publisher.ReplyQueue()))

	reply, err := b.registry.Await(c.Request.Context(), slot)
	switch {
	case errors.Is(err, correlation.ErrTimedOut):
		b.metrics.UpstreamTimeouts.Inc()
		log.Warn("upstream timeout",
			zap.String("routing_key", routingKey),
			zap.Duration("timeout", b.timeout))
		response.WriteError(c, http.StatusGatewayTimeout, "upstream timeout")
		return
	case errors.Is(err, correlation.ErrCancelled):
		// Client went away; there is nobody to write to.
		log.Debug("request cancelled by client")
		c.Abort()
		return
	case err != nil:
		log.Error("await reply", zap.Error(err))
		response.WriteError(c, http.StatusInternalServerError, "failed awaiting reply")
		return
	}

	writeReply(c, reply)
}

// readBody buffers the full request body, bounded by the configured cap.
func (b *Bridge) readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, b.maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > b.maxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", b.maxBodyBytes)
	}
	return body, nil
}

// writeReply translates a service reply into the client response: status
// clamped to a valid code, non-hop-by-hop headers copied through, body
// wrapped in the standard envelope.
func writeReply(c *gin.Context, reply domain.ResponseEnvelope) {
	status := reply.StatusCode
	if status < 100 || status > 599 {
		status = http.StatusBadGateway
	}

	for name, value := range reply.Headers {
		if domain.IsHopByHop(name) {
			continue
		}
		// The wrapped body is re-serialised, so the original length no
		// longer applies.
		if http.CanonicalHeaderKey(name) == "Content-Length" {
			continue
		}
		c.Header(name, value)
	}
	if reply.Header("Content-Type") == "" {
		c.Header("Content-Type", "application/json")
	}

	if status >= 200 && status < 300 {
		c.JSON(status, response.Success(status, parseBody(reply.Body)))
		return
	}
	c.JSON(status, response.Error(status, reply.Body))
}

// parseBody embeds a JSON reply body as-is and anything else as a string.
func parseBody(body string) any {
	if body == "" {
		return nil
	}
	if gjson.Valid(body) {
		return json.RawMessage(body)
	}
	return body
}
