// Package inbox implements the per-user durable notification inbox (C7):
// a bounded, TTL'd ordered set plus a separate unread counter, storage
// layout grounded on EthanQC-IM's presence repository (JSON-marshalled
// value, TTL refreshed on every write, redis.Nil as the not-found
// sentinel) generalized from a plain key to a Redis ZSET for the ordered,
// bounded retention spec §4.6 requires.
package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"letshare-server/internal/model"
)

const (
	DefaultMax = 50
	DefaultTTL = 24 * time.Hour
)

// Notifier is the narrow slice of the hub this package depends on,
// keeping inbox decoupled from the registry/room engine.
type Notifier interface {
	BroadcastToUser(userID int64, event string, data any)
}

type Inbox struct {
	client   redis.UniversalClient
	notifier Notifier
	max      int
	ttl      time.Duration
}

func New(client redis.UniversalClient, notifier Notifier, max int, ttl time.Duration) *Inbox {
	if max <= 0 {
		max = DefaultMax
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Inbox{client: client, notifier: notifier, max: max, ttl: ttl}
}

func notificationsKey(userID int64) string { return fmt.Sprintf("ui:notifications:%d", userID) }
func unreadKey(userID int64) string        { return fmt.Sprintf("ui:notifications:unread:%d", userID) }

// Create writes the new notification, trims overflow, bumps the unread
// counter, and dispatches notification:new to the owner's sockets. A
// store failure is logged and returns the error; callers treat the
// socket path as independent (spec §7 "Inbox store unavailable").
func (b *Inbox) Create(ctx context.Context, userID int64, n model.Notification) (model.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAtMs == 0 {
		n.CreatedAtMs = time.Now().UnixMilli()
	}
	n.CreatedAt = time.UnixMilli(n.CreatedAtMs).UTC().Format(time.RFC3339)

	raw, err := json.Marshal(n)
	if err != nil {
		return n, err
	}

	key := notificationsKey(userID)
	pipe := b.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(n.CreatedAtMs), Member: raw})
	pipe.Expire(ctx, key, b.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(err).Warn("inbox: create failed")
		return n, err
	}

	if card, err := b.client.ZCard(ctx, key).Result(); err == nil && int(card) > b.max {
		overflow := int(card) - b.max
		b.client.ZRemRangeByRank(ctx, key, 0, int64(overflow-1))
	}

	uKey := unreadKey(userID)
	upipe := b.client.TxPipeline()
	upipe.Incr(ctx, uKey)
	upipe.Expire(ctx, uKey, b.ttl)
	if _, err := upipe.Exec(ctx); err != nil {
		logrus.WithError(err).Warn("inbox: unread counter update failed")
	}

	if b.notifier != nil {
		b.notifier.BroadcastToUser(userID, "notification:new", n)
	}
	return n, nil
}

// List returns notifications in descending rank (newest first), skipping
// any undecodable entries (spec §4.6: "Stateless").
func (b *Inbox) List(ctx context.Context, userID int64, limit, offset int) ([]model.Notification, error) {
	key := notificationsKey(userID)
	start := int64(offset)
	stop := int64(offset + limit - 1)
	if limit <= 0 {
		stop = -1
	}
	members, err := b.client.ZRevRange(ctx, key, start, stop).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	out := make([]model.Notification, 0, len(members))
	for _, m := range members {
		var n model.Notification
		if err := json.Unmarshal([]byte(m), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// UnreadCount reads the counter; absent or non-numeric resolves to 0.
func (b *Inbox) UnreadCount(ctx context.Context, userID int64) int {
	n, err := b.client.Get(ctx, unreadKey(userID)).Int()
	if err != nil {
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}

// MarkRead locates the notification by id, and if currently unread,
// removes and reinserts it with read=true at the same rank, then
// decrements the counter (never below zero) and emits notification:read.
// Calling it twice on the same id is idempotent (spec §8 round-trips).
func (b *Inbox) MarkRead(ctx context.Context, userID int64, notificationID string) error {
	key := notificationsKey(userID)
	members, scores, err := b.scanWithScores(ctx, key)
	if err != nil {
		return err
	}

	for i, n := range members {
		if n.ID != notificationID {
			continue
		}
		if n.Read {
			return nil
		}
		raw, err := json.Marshal(n)
		if err != nil {
			return err
		}
		n.Read = true
		newRaw, err := json.Marshal(n)
		if err != nil {
			return err
		}

		pipe := b.client.TxPipeline()
		pipe.ZRem(ctx, key, raw)
		pipe.ZAdd(ctx, key, redis.Z{Score: scores[i], Member: newRaw})
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}

		b.decrUnread(ctx, userID)
		if b.notifier != nil {
			b.notifier.BroadcastToUser(userID, "notification:read", n)
		}
		return nil
	}
	return nil
}

// MarkAllRead reinserts every entry as read=true at its original rank and
// zeroes the counter, emitting notification:all_read.
func (b *Inbox) MarkAllRead(ctx context.Context, userID int64) error {
	key := notificationsKey(userID)
	members, scores, err := b.scanWithScores(ctx, key)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}

	pipe := b.client.TxPipeline()
	pipe.Del(ctx, key)
	for i, n := range members {
		n.Read = true
		raw, err := json.Marshal(n)
		if err != nil {
			continue
		}
		pipe.ZAdd(ctx, key, redis.Z{Score: scores[i], Member: raw})
	}
	pipe.Expire(ctx, key, b.ttl)
	pipe.Set(ctx, unreadKey(userID), 0, b.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	if b.notifier != nil {
		b.notifier.BroadcastToUser(userID, "notification:all_read", nil)
	}
	return nil
}

// Delete removes a notification by value; if it was unread, decrements
// the counter. No socket event fires (spec §4.6 base contract).
func (b *Inbox) Delete(ctx context.Context, userID int64, notificationID string) error {
	key := notificationsKey(userID)
	members, _, err := b.scanWithScores(ctx, key)
	if err != nil {
		return err
	}
	for _, n := range members {
		if n.ID != notificationID {
			continue
		}
		raw, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if err := b.client.ZRem(ctx, key, raw).Err(); err != nil {
			return err
		}
		if !n.Read {
			b.decrUnread(ctx, userID)
		}
		return nil
	}
	return nil
}

// ClearAll deletes both keys and emits notification:cleared.
func (b *Inbox) ClearAll(ctx context.Context, userID int64) error {
	pipe := b.client.TxPipeline()
	pipe.Del(ctx, notificationsKey(userID))
	pipe.Del(ctx, unreadKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if b.notifier != nil {
		b.notifier.BroadcastToUser(userID, "notification:cleared", nil)
	}
	return nil
}

func (b *Inbox) decrUnread(ctx context.Context, userID int64) {
	key := unreadKey(userID)
	n, err := b.client.Decr(ctx, key).Result()
	if err != nil {
		return
	}
	if n < 0 {
		b.client.Set(ctx, key, 0, b.ttl)
	}
}

func (b *Inbox) scanWithScores(ctx context.Context, key string) ([]model.Notification, []float64, error) {
	zs, err := b.client.ZRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	members := make([]model.Notification, 0, len(zs))
	scores := make([]float64, 0, len(zs))
	for _, z := range zs {
		s, ok := z.Member.(string)
		if !ok {
			continue
		}
		var n model.Notification
		if err := json.Unmarshal([]byte(s), &n); err != nil {
			continue
		}
		members = append(members, n)
		scores = append(scores, z.Score)
	}
	return members, scores, nil
}
