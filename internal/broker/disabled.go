package broker

import "context"

// Disabled is the publisher used when broker.enabled is false. Every publish
// fails with ErrUnavailable, so proxied routes answer 503 while the local
// endpoints keep working.
type Disabled struct{}

// Publish always reports the broker as unavailable.
func (Disabled) Publish(context.Context, string, string, []byte) error {
	return ErrUnavailable
}

// ReplyQueue returns an empty name; nothing is ever published.
func (Disabled) ReplyQueue() string { return "" }
