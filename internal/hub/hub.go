// Package hub implements the connection registry, room engine, and
// authentication state machine (C3, C4, C5). They are designed together
// because they share the registry lock and the broadcast path.
package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"letshare-server/internal/bridge"
	"letshare-server/internal/model"
)

var ErrUnknownSocket = errors.New("unknown socket")

// Hub is the arena-plus-index registry from spec §9: bySocket is the
// arena, byUser the secondary index, replacing the linear-scan
// broadcastToUser found in earlier source variants with O(1) lookup.
type Hub struct {
	instanceID string
	authGrace  time.Duration
	bridge     bridge.Bridge

	mu       sync.RWMutex
	bySocket map[string]*model.Connection
	byUser   map[int64]map[string]struct{}

	sweepInterval time.Duration
	stopSweep     chan struct{}
}

func New(b bridge.Bridge, instanceID string, authGrace, sweepInterval time.Duration) *Hub {
	h := &Hub{
		instanceID:    instanceID,
		authGrace:     authGrace,
		bridge:        b,
		bySocket:      make(map[string]*model.Connection),
		byUser:        make(map[int64]map[string]struct{}),
		sweepInterval: sweepInterval,
		stopSweep:     make(chan struct{}),
	}
	b.Subscribe(h.onBridgeEnvelope)
	go h.sweepLoop()
	return h
}

// Accept registers a newly-handshaked socket in Pending state and arms its
// auth deadline timer (spec §4.3).
func (h *Hub) Accept(socketID string, sender model.Sender) *model.Connection {
	conn := model.NewConnection(socketID, sender, h.authGrace)
	h.mu.Lock()
	h.bySocket[socketID] = conn
	h.mu.Unlock()
	return conn
}

// AuthDeadlineWatcher blocks until either the connection authenticates or
// its grace period elapses, returning true if the deadline fired first.
// Callers run this in its own goroutine per connection; it never holds
// the registry lock across the sleep.
func AuthDeadlineWatcher(ctx context.Context, conn *model.Connection, grace time.Duration) bool {
	deadline, ok := conn.AuthDeadline()
	if !ok {
		return false
	}
	wait := time.Until(deadline)
	if wait < 0 {
		wait = 0
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return conn.State() == model.StatePending
	case <-ctx.Done():
		return false
	}
}

// Disconnect removes a socket, unwinding registry and byUser bookkeeping,
// and emits the scoped user:offline presence event when it was
// authenticated (spec §4.3).
func (h *Hub) Disconnect(socketID string) {
	h.mu.Lock()
	conn, ok := h.bySocket[socketID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.bySocket, socketID)
	prevState := conn.Terminate()
	user := conn.User()
	if prevState == model.StateAuthenticated && user != nil {
		h.unindexLocked(user.UserID, socketID)
	}
	h.mu.Unlock()

	_ = conn.Sender.Close()

	if prevState == model.StateAuthenticated && user != nil {
		h.emitPresence(context.Background(), "user:offline", *user)
	}
}

func (h *Hub) unindexLocked(userID int64, socketID string) {
	set, ok := h.byUser[userID]
	if !ok {
		return
	}
	delete(set, socketID)
	if len(set) == 0 {
		delete(h.byUser, userID)
	}
}

// connectionsInRoom snapshots the sockets currently holding room. Snapshot
// semantics satisfy spec §5: broadcasts see a consistent view without
// holding the lock during socket writes.
func (h *Hub) connectionsInRoom(room string) []*model.Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*model.Connection, 0)
	for _, c := range h.bySocket {
		if c.State() == model.StateAuthenticated && c.InRoom(room) {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) authenticatedConnections() []*model.Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*model.Connection, 0, len(h.bySocket))
	for _, c := range h.bySocket {
		if c.State() == model.StateAuthenticated {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) connectionsForUser(userID int64) []*model.Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set, ok := h.byUser[userID]
	if !ok {
		return nil
	}
	out := make([]*model.Connection, 0, len(set))
	for id := range set {
		if c, ok := h.bySocket[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Stats reports the counters surfaced at GET /stats/connections: all
// registered sockets (pending included) and distinct authenticated users.
func (h *Hub) Stats() (connections int, usersOnline int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.bySocket), len(h.byUser)
}

// RoomStats returns, for every room with at least one member, how many
// local sockets currently hold it.
func (h *Hub) RoomStats() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	counts := make(map[string]int)
	for _, c := range h.bySocket {
		if c.State() != model.StateAuthenticated {
			continue
		}
		for _, r := range c.Rooms() {
			counts[r]++
		}
	}
	return counts
}

func (h *Hub) send(conn *model.Connection, msg any) {
	if err := conn.Send(msg); err != nil {
		logrus.WithFields(logrus.Fields{"socket_id": conn.SocketID, "error": err}).
			Warn("hub: send failed, disconnecting")
		go h.Disconnect(conn.SocketID)
	}
}

func (h *Hub) Shutdown() {
	close(h.stopSweep)
	h.mu.Lock()
	ids := make([]string, 0, len(h.bySocket))
	for id := range h.bySocket {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.Disconnect(id)
	}
}
