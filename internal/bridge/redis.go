package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"letshare-server/internal/model"
)

// Channel is the single pub/sub channel carrying envelopes as UTF-8 JSON
// (spec §6 "Pub/sub wire format").
const Channel = "socket-broadcast"

const (
	backoffUnit    = 100 * time.Millisecond
	backoffCap     = 3 * time.Second
	maxRetries     = 10
)

// RedisConfig selects either a single endpoint or a sentinel-discovered
// high-availability group, per spec §4.2.
type RedisConfig struct {
	Mode           string // "standalone" | "sentinel"
	Addr           string
	Password       string
	SentinelAddr   string
	SentinelMaster string
}

// RedisBridge maintains two independent connections to the bus: one for
// publish, one for subscribe, because a connection in subscribe mode
// disallows other commands (spec §4.2).
type RedisBridge struct {
	instanceID string

	pub *redis.Client
	sub *redis.Client

	mu       sync.Mutex
	handlers []Handler
	degraded bool

	cancel context.CancelFunc
}

// NewRedis dials both connections and starts the subscribe loop. It never
// returns an error for an unreachable bus: per spec §7 "Bus unavailable"
// is a degraded-mode condition, logged once, not a fatal boot error. Use
// Degraded() to observe the outcome.
func NewRedis(cfg RedisConfig, instanceID string) *RedisBridge {
	ctx, cancel := context.WithCancel(context.Background())
	b := &RedisBridge{
		instanceID: instanceID,
		pub:        newClient(cfg),
		sub:        newClient(cfg),
		cancel:     cancel,
	}

	if err := b.pub.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("bridge: bus unreachable at boot, starting in degraded mode")
		b.mu.Lock()
		b.degraded = true
		b.mu.Unlock()
	}

	go b.subscribeLoop(ctx)
	return b
}

func newClient(cfg RedisConfig) *redis.Client {
	if cfg.Mode == "sentinel" {
		return redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    cfg.SentinelMaster,
			SentinelAddrs: []string{cfg.SentinelAddr},
			Password:      cfg.Password,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	})
}

func (b *RedisBridge) Publish(ctx context.Context, event string, data any, room string) error {
	env, err := model.NewEnvelope(event, data, room, b.instanceID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if b.isDegraded() {
		return nil
	}
	if err := b.pub.Publish(ctx, Channel, payload).Err(); err != nil {
		logrus.WithError(err).Warn("bridge: publish failed")
		return nil
	}
	return nil
}

func (b *RedisBridge) Subscribe(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

func (b *RedisBridge) Degraded() bool {
	return b.isDegraded()
}

func (b *RedisBridge) isDegraded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.degraded
}

func (b *RedisBridge) setDegraded(v bool) {
	b.mu.Lock()
	b.degraded = v
	b.mu.Unlock()
}

func (b *RedisBridge) Close() error {
	b.cancel()
	_ = b.pub.Close()
	return b.sub.Close()
}

// subscribeLoop owns the dedicated subscribe connection. On disconnect it
// reconnects with capped exponential backoff (100ms * retry, max 3s),
// abandoning to degraded mode after maxRetries consecutive failures and
// periodically attempting recovery thereafter (spec §9 "recover when the
// bus returns").
func (b *RedisBridge) subscribeLoop(ctx context.Context) {
	retry := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pubsub := b.sub.Subscribe(ctx, Channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			retry++
			if retry >= maxRetries {
				b.setDegraded(true)
				logrus.Warn("bridge: giving up reconnecting, remaining in degraded mode")
				time.Sleep(backoffCap)
				retry = 0
				continue
			}
			wait := backoffUnit * time.Duration(retry)
			if wait > backoffCap {
				wait = backoffCap
			}
			time.Sleep(wait)
			continue
		}

		retry = 0
		b.setDegraded(false)
		ch := pubsub.Channel()
		b.drain(ctx, ch)
		_ = pubsub.Close()
	}
}

func (b *RedisBridge) drain(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.deliver(msg.Payload)
		}
	}
}

func (b *RedisBridge) deliver(payload string) {
	var env model.Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		logrus.WithError(err).Warn("bridge: dropping undecodable envelope")
		return
	}
	// Self-echo suppression: the critical invariant of spec §5.
	if env.OriginInstanceID == b.instanceID {
		return
	}

	b.mu.Lock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, h := range handlers {
		h(&env)
	}
}
