// Package bridge wraps the cross-instance pub/sub channel (C2). It treats
// the message bus as a typed channel of Envelopes; origin-instance
// suppression is centralized here so callers can never forget the tag.
package bridge

import (
	"context"

	"letshare-server/internal/model"
)

// Handler receives envelopes from peer instances. The bridge has already
// dropped self-echoes by the time Handler is invoked.
type Handler func(env *model.Envelope)

// Bridge is the cross-instance fan-out channel. Publish stamps the local
// instance id; Subscribe registers a Handler for every peer envelope.
// A Bridge implementation must be safe to call Publish concurrently with
// its own delivery of incoming envelopes.
type Bridge interface {
	Publish(ctx context.Context, event string, data any, room string) error
	Subscribe(handler Handler)
	// Degraded reports whether the bus is unreachable; Publish/Subscribe
	// remain safe no-ops in that mode (spec §4.2, §9 "degraded mode").
	Degraded() bool
	Close() error
}
