// Package push implements the Web Push dispatcher (C8): per-user (and
// per-master) subscription sets held as Redis hash field maps, with a
// companion ordering set for oldest-evicted bounding, plus send/prune
// against the vendor endpoints via github.com/imjasonh/webpush.
package push

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"letshare-server/internal/model"
)

// FormatID renders a numeric user id as the string id the subscription
// store keys expect.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

const (
	DefaultMaxDevices = 5
)

// Namespace distinguishes the three identity spaces spec §4.7 calls out:
// user subscriptions, master subscriptions (external identifier), and
// director subscriptions (which reuse the user namespace — directors are
// users too, just with a different role).
type Namespace string

const (
	NamespaceUser   Namespace = "push:subscriptions"
	NamespaceMaster Namespace = "push:master:subscriptions"
)

func subsKey(ns Namespace, id string) string  { return fmt.Sprintf("%s:%s", ns, id) }
func orderKey(ns Namespace, id string) string { return fmt.Sprintf("%s:order:%s", ns, id) }
func prefsKey(id string) string               { return fmt.Sprintf("push:preferences:%s", id) }

// HashEndpoint derives the stable short digest used as the hash field key
// (spec §3: "endpointHash is a stable short digest of the vendor endpoint
// URL").
func HashEndpoint(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	return hex.EncodeToString(sum[:])[:16]
}

type Store struct {
	client      redis.UniversalClient
	maxDevices  int
}

func NewStore(client redis.UniversalClient, maxDevices int) *Store {
	if maxDevices <= 0 {
		maxDevices = DefaultMaxDevices
	}
	return &Store{client: client, maxDevices: maxDevices}
}

// Subscribe stores or replaces the subscription for this endpoint
// (subscribing the same endpoint twice leaves exactly one entry, spec §8
// round-trips), evicting the oldest-entered subscription when the bound
// is exceeded.
func (s *Store) Subscribe(ctx context.Context, ns Namespace, id string, sub model.PushSubscription) error {
	sub.EndpointHash = HashEndpoint(sub.Endpoint)
	raw, err := json.Marshal(sub)
	if err != nil {
		return err
	}

	key := subsKey(ns, id)
	ordKey := orderKey(ns, id)
	now := float64(time.Now().UnixNano())

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, sub.EndpointHash, raw)
	pipe.ZAdd(ctx, ordKey, redis.Z{Score: now, Member: sub.EndpointHash})
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	return s.evictOverflow(ctx, ns, id)
}

func (s *Store) evictOverflow(ctx context.Context, ns Namespace, id string) error {
	ordKey := orderKey(ns, id)
	card, err := s.client.ZCard(ctx, ordKey).Result()
	if err != nil || int(card) <= s.maxDevices {
		return nil
	}
	overflow := int(card) - s.maxDevices
	oldest, err := s.client.ZRange(ctx, ordKey, 0, int64(overflow-1)).Result()
	if err != nil || len(oldest) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	pipe.HDel(ctx, subsKey(ns, id), oldest...)
	pipe.ZRem(ctx, ordKey, toAny(oldest)...)
	_, err = pipe.Exec(ctx)
	return err
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Unsubscribe removes a single subscription by endpoint.
func (s *Store) Unsubscribe(ctx context.Context, ns Namespace, id, endpoint string) error {
	hash := HashEndpoint(endpoint)
	key := subsKey(ns, id)
	ordKey := orderKey(ns, id)
	pipe := s.client.TxPipeline()
	pipe.HDel(ctx, key, hash)
	pipe.ZRem(ctx, ordKey, hash)
	_, err := pipe.Exec(ctx)
	return err
}

// Prune removes a subscription identified by its hash directly — used
// after a vendor 404/410 response (spec §4.7).
func (s *Store) Prune(ctx context.Context, ns Namespace, id, endpointHash string) error {
	key := subsKey(ns, id)
	ordKey := orderKey(ns, id)
	pipe := s.client.TxPipeline()
	pipe.HDel(ctx, key, endpointHash)
	pipe.ZRem(ctx, ordKey, endpointHash)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns every subscription currently stored for id.
func (s *Store) List(ctx context.Context, ns Namespace, id string) ([]model.PushSubscription, error) {
	raws, err := s.client.HGetAll(ctx, subsKey(ns, id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	out := make([]model.PushSubscription, 0, len(raws))
	for _, raw := range raws {
		var sub model.PushSubscription
		if err := json.Unmarshal([]byte(raw), &sub); err != nil {
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

// Preferences reads the stored preferences, deriving Enabled from current
// subscription count (spec §3: "enabled is a derived field").
func (s *Store) Preferences(ctx context.Context, ns Namespace, id string) (model.PushPreferences, error) {
	var prefs model.PushPreferences
	raw, err := s.client.Get(ctx, prefsKey(id)).Result()
	if err != nil && err != redis.Nil {
		return prefs, err
	}
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &prefs)
	} else {
		prefs = model.PushPreferences{CallIncoming: true, CallMissed: true}
	}

	subs, err := s.List(ctx, ns, id)
	if err != nil {
		return prefs, err
	}
	prefs.Enabled = len(subs) > 0
	return prefs, nil
}

// SetPreferences stores the non-derived fields only.
func (s *Store) SetPreferences(ctx context.Context, id string, prefs model.PushPreferences) error {
	raw, err := json.Marshal(struct {
		CallIncoming bool `json:"callIncoming"`
		CallMissed   bool `json:"callMissed"`
	}{prefs.CallIncoming, prefs.CallMissed})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, prefsKey(id), raw, 0).Err()
}
