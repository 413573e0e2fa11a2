package bridge

import "context"

// NoopBridge is the degraded single-instance mode: every operation is a
// no-op and the service remains functional for same-instance clients
// (spec §4.2). Kept as its own type, not a nil Bridge, so callers never
// need a nil check.
type NoopBridge struct{}

func NewNoop() *NoopBridge { return &NoopBridge{} }

func (n *NoopBridge) Publish(ctx context.Context, event string, data any, room string) error {
	return nil
}

func (n *NoopBridge) Subscribe(handler Handler) {}

func (n *NoopBridge) Degraded() bool { return true }

func (n *NoopBridge) Close() error { return nil }
