// Package domain holds the wire types shared between the gateway and the
// downstream services, plus the header policy applied when translating
// between HTTP and broker messages.
package domain

import (
	"net/http"
	"net/url"
	"strings"
)

// CorrelationIDHeader carries the per-request id on HTTP requests, HTTP
// responses and broker message headers alike.
const CorrelationIDHeader = "correlationId"

// AuthPrincipal is the identity extracted from a validated bearer token.
// It lives on the request context and rides to the service inside the
// request envelope.
type AuthPrincipal struct {
	AccountID string   `json:"accountId"`
	Email     string   `json:"email,omitempty"`
	Name      string   `json:"name,omitempty"`
	Roles     []string `json:"roles"`
}

// RequestEnvelope is the message published to a service for one HTTP request.
// The correlation id and reply queue travel out-of-band as broker message
// properties, not in the payload.
type RequestEnvelope struct {
	Path        string            `json:"path"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers"`
	QueryParams map[string]string `json:"queryParams"`
	Body        string            `json:"body"`
	Principal   *AuthPrincipal    `json:"principal,omitempty"`
}

// ResponseEnvelope is the message a service publishes back to the gateway
// reply queue.
type ResponseEnvelope struct {
	CorrelationID string            `json:"correlationId"`
	StatusCode    int               `json:"statusCode"`
	Headers       map[string]string `json:"headers"`
	Body          string            `json:"body"`
}

// Header returns the named header with case-insensitive matching. Envelope
// headers are written by foreign services, so canonical casing cannot be
// assumed on read.
func (e *ResponseEnvelope) Header(name string) string {
	if v, ok := e.Headers[name]; ok {
		return v
	}
	for k, v := range e.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// NewRequestEnvelope builds the envelope for an inbound HTTP request.
// Multi-valued headers are joined with ", "; multi-valued query parameters
// collapse to their first value.
func NewRequestEnvelope(r *http.Request, body []byte, principal *AuthPrincipal) RequestEnvelope {
	return RequestEnvelope{
		Path:        r.URL.Path,
		Method:      r.Method,
		Headers:     joinHeaders(r.Header),
		QueryParams: firstQueryValues(r.URL.Query()),
		Body:        string(body),
		Principal:   principal,
	}
}

func joinHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func firstQueryValues(q url.Values) map[string]string {
	out := make(map[string]string, len(q))
	for name, values := range q {
		if len(values) > 0 {
			out[name] = values[0]
		}
	}
	return out
}
