package push

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/imjasonh/webpush"
	"github.com/sirupsen/logrus"

	"letshare-server/internal/model"
)

// VAPIDKeys are the asymmetric key pair configured at boot (spec §4.7).
type VAPIDKeys struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// Dispatcher sends payloads to every subscription endpoint for an id,
// pruning subscriptions the vendor reports as permanently gone.
type Dispatcher struct {
	store *Store
	keys  VAPIDKeys
}

func NewDispatcher(store *Store, keys VAPIDKeys) *Dispatcher {
	return &Dispatcher{store: store, keys: keys}
}

// gated reports whether payload.Type respects the stored preference.
// type=="test" always bypasses preference checks; unknown types proceed
// by default (spec §4.7 type-to-preference gating).
func gated(payload model.PushPayload, prefs model.PushPreferences) bool {
	switch payload.Type {
	case "test":
		return true
	case "call_incoming":
		return prefs.CallIncoming
	case "call_missed":
		return prefs.CallMissed
	default:
		return true
	}
}

// Send dispatches payload to every subscription held under ns/id,
// respecting preference gating, and prunes any subscription the vendor
// reports gone. Failures other than 404/410 are logged and non-fatal —
// the fire-and-forget contract from spec §9.
func (d *Dispatcher) Send(ctx context.Context, ns Namespace, id string, payload model.PushPayload) {
	prefs, err := d.store.Preferences(ctx, ns, id)
	if err != nil {
		logrus.WithError(err).Warn("push: preference lookup failed, sending anyway")
	} else if !gated(payload, prefs) {
		return
	}

	subs, err := d.store.List(ctx, ns, id)
	if err != nil {
		logrus.WithError(err).Warn("push: subscription list failed")
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Warn("push: payload marshal failed")
		return
	}

	for _, sub := range subs {
		d.sendOne(ctx, ns, id, sub, body)
	}
}

func (d *Dispatcher) sendOne(ctx context.Context, ns Namespace, id string, sub model.PushSubscription, body []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}

	resp, err := webpush.SendNotification(ctx, body, wpSub, &webpush.Options{
		VAPIDPublicKey:  d.keys.PublicKey,
		VAPIDPrivateKey: d.keys.PrivateKey,
		Subscriber:      d.keys.Subject,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"namespace": ns, "id": id, "error": err}).
			Warn("push: send failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		if err := d.store.Prune(ctx, ns, id, sub.EndpointHash); err != nil {
			logrus.WithError(err).Warn("push: prune failed")
		}
		return
	}
	if resp.StatusCode >= 300 {
		logrus.WithFields(logrus.Fields{"namespace": ns, "id": id, "status": resp.StatusCode}).
			Warn("push: vendor returned non-success status")
	}
}
