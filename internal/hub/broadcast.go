package hub

import (
	"context"

	"letshare-server/internal/model"
)

// wireMessage is the frame shape delivered to clients: {event, data}.
type wireMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// BroadcastToRoom emits to every locally-held socket with room in its set,
// then publishes to the bridge for peer instances (spec §4.4).
func (h *Hub) BroadcastToRoom(ctx context.Context, room, event string, data any) error {
	h.broadcastToRoomLocal(ctx, room, event, data)
	return h.bridge.Publish(ctx, event, data, room)
}

func (h *Hub) broadcastToRoomLocal(ctx context.Context, room, event string, data any) {
	msg := wireMessage{Event: event, Data: data}
	for _, conn := range h.connectionsInRoom(room) {
		h.send(conn, msg)
	}
}

// BroadcastToAll emits to every authenticated socket locally, then
// publishes with no room on the bridge. Receivers suppress self-echoes
// via originInstanceId (spec §5's critical duplicate-suppression
// invariant).
func (h *Hub) BroadcastToAll(ctx context.Context, event string, data any) error {
	h.broadcastToAllLocal(event, data)
	return h.bridge.Publish(ctx, event, data, "")
}

func (h *Hub) broadcastToAllLocal(event string, data any) {
	msg := wireMessage{Event: event, Data: data}
	for _, conn := range h.authenticatedConnections() {
		h.send(conn, msg)
	}
}

// BroadcastToUser emits to every socket held by userId. This is local-only
// by design (spec §4.4): cross-instance per-user delivery is the inbox's
// job, not this path's.
func (h *Hub) BroadcastToUser(userID int64, event string, data any) {
	msg := wireMessage{Event: event, Data: data}
	for _, conn := range h.connectionsForUser(userID) {
		h.send(conn, msg)
	}
}

// onBridgeEnvelope re-emits a peer-originated envelope locally. The bridge
// has already dropped self-echoes before this is invoked.
func (h *Hub) onBridgeEnvelope(env *model.Envelope) {
	msg := wireMessage{Event: env.Event, Data: env.Data}
	if env.Room != "" {
		for _, conn := range h.connectionsInRoom(env.Room) {
			h.send(conn, msg)
		}
		return
	}
	for _, conn := range h.authenticatedConnections() {
		h.send(conn, msg)
	}
}
