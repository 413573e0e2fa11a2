package hub

import (
	"context"

	"letshare-server/internal/model"
)

// AuthResult is returned to the caller (the socket handler) so it can emit
// the "authenticated" frame with the effective room list (spec §4.3 step 4).
type AuthResult struct {
	User  model.AuthUser
	Rooms []string
}

// Authenticate runs the C5 guard: index the socket, auto-join role rooms,
// and emit the scoped presence event. Returns ErrUnknownSocket if the
// socket was already reaped (e.g. by a racing sweep or deadline timeout).
func (h *Hub) Authenticate(socketID string, user model.AuthUser) (*AuthResult, error) {
	h.mu.Lock()
	conn, ok := h.bySocket[socketID]
	if !ok {
		h.mu.Unlock()
		return nil, ErrUnknownSocket
	}
	if !conn.Authenticate(user) {
		h.mu.Unlock()
		return nil, ErrUnknownSocket
	}

	rooms := user.Role.AutoJoinRooms()
	for _, r := range rooms {
		conn.JoinRoom(r)
	}
	if h.byUser[user.UserID] == nil {
		h.byUser[user.UserID] = make(map[string]struct{})
	}
	h.byUser[user.UserID][socketID] = struct{}{}
	h.mu.Unlock()

	h.emitPresence(context.Background(), "user:online", user)

	return &AuthResult{User: user, Rooms: rooms}, nil
}

// emitPresence implements spec §4.3 step 5: scoped to "directors" always,
// and additionally to "operators" only when the subject's role is an
// operator synonym. Never broadcast to all, to avoid O(N^2) presence
// traffic during flash crowds.
func (h *Hub) emitPresence(ctx context.Context, event string, user model.AuthUser) {
	payload := map[string]any{"userId": user.UserID, "role": string(user.Role)}
	h.broadcastToRoomLocal(ctx, "directors", event, payload)
	if user.Role.IsOperator() {
		h.broadcastToRoomLocal(ctx, "operators", event, payload)
	}
}

// JoinRoom handles the client-initiated join-room message: validates the
// room name, enforces the ACL, then adds membership.
func (h *Hub) JoinRoom(socketID, room string) error {
	if err := ValidateRoomName(room); err != nil {
		return err
	}

	h.mu.RLock()
	conn, ok := h.bySocket[socketID]
	h.mu.RUnlock()
	if !ok || conn.State() != model.StateAuthenticated {
		return ErrUnknownSocket
	}

	user := conn.User()
	if err := checkJoinACL(*user, room); err != nil {
		return err
	}

	conn.JoinRoom(room)
	return nil
}

// LeaveRoom handles the client-initiated leave-room message.
func (h *Hub) LeaveRoom(socketID, room string) error {
	if err := ValidateRoomName(room); err != nil {
		return err
	}
	h.mu.RLock()
	conn, ok := h.bySocket[socketID]
	h.mu.RUnlock()
	if !ok || conn.State() != model.StateAuthenticated {
		return ErrUnknownSocket
	}
	conn.LeaveRoom(room)
	return nil
}
