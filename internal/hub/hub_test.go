package hub_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"letshare-server/internal/bridge"
	"letshare-server/internal/hub"
	"letshare-server/internal/model"
)

type fakeSender struct {
	sent    []any
	closed  bool
	failing bool
}

func (f *fakeSender) SendJSON(v any) error {
	if f.failing {
		return errors.New("send failed")
	}
	f.sent = append(f.sent, v)
	return nil
}
func (f *fakeSender) Ping() error { return nil }
func (f *fakeSender) Close() error {
	f.closed = true
	return nil
}

func newHub() *hub.Hub {
	return hub.New(bridge.NewNoop(), "test-instance", 20*time.Millisecond, time.Hour)
}

func TestAcceptAndAuthenticateIndexesUser(t *testing.T) {
	h := newHub()
	defer h.Shutdown()

	conn := h.Accept("sock-1", &fakeSender{})
	require.Equal(t, model.StatePending, conn.State())

	result, err := h.Authenticate("sock-1", model.AuthUser{UserID: 100, Role: model.RoleOperator})
	require.NoError(t, err)
	require.Contains(t, result.Rooms, "operator")
	require.Contains(t, result.Rooms, "operators")

	connections, usersOnline := h.Stats()
	require.Equal(t, 1, connections)
	require.Equal(t, 1, usersOnline)
}

func TestAuthenticateUnknownSocketFails(t *testing.T) {
	h := newHub()
	defer h.Shutdown()

	_, err := h.Authenticate("missing", model.AuthUser{UserID: 1, Role: model.RoleOperator})
	require.ErrorIs(t, err, hub.ErrUnknownSocket)
}

func TestDisconnectRemovesFromRegistryAndUserIndex(t *testing.T) {
	h := newHub()
	defer h.Shutdown()

	h.Accept("sock-2", &fakeSender{})
	_, err := h.Authenticate("sock-2", model.AuthUser{UserID: 200, Role: model.RoleDirector})
	require.NoError(t, err)

	h.Disconnect("sock-2")

	connections, usersOnline := h.Stats()
	require.Equal(t, 0, connections)
	require.Equal(t, 0, usersOnline)
}

func TestJoinRoomThenLeaveRoomIsIdempotent(t *testing.T) {
	h := newHub()
	defer h.Shutdown()

	h.Accept("sock-3", &fakeSender{})
	_, err := h.Authenticate("sock-3", model.AuthUser{UserID: 300, Role: model.RoleDirector})
	require.NoError(t, err)

	require.NoError(t, h.JoinRoom("sock-3", "city:Moscow"))
	require.NoError(t, h.JoinRoom("sock-3", "city:Moscow"))

	rooms := h.RoomStats()
	require.Equal(t, 1, rooms["city:Moscow"])

	require.NoError(t, h.LeaveRoom("sock-3", "city:Moscow"))
	require.NoError(t, h.LeaveRoom("sock-3", "city:Moscow"))

	rooms = h.RoomStats()
	require.Equal(t, 0, rooms["city:Moscow"])
}

func TestJoinRoomRejectsForbiddenRoom(t *testing.T) {
	h := newHub()
	defer h.Shutdown()

	h.Accept("sock-4", &fakeSender{})
	_, err := h.Authenticate("sock-4", model.AuthUser{UserID: 400, Role: model.RoleOperator})
	require.NoError(t, err)

	err = h.JoinRoom("sock-4", "directors")
	require.ErrorIs(t, err, hub.ErrForbiddenRoom)
}

func TestAuthDeadlineWatcherFiresWhenStillPending(t *testing.T) {
	h := newHub()
	defer h.Shutdown()

	conn := h.Accept("sock-5", &fakeSender{})
	expired := hub.AuthDeadlineWatcher(context.Background(), conn, 10*time.Millisecond)
	require.True(t, expired)
}

func TestAuthDeadlineWatcherDoesNotFireAfterAuth(t *testing.T) {
	h := newHub()
	defer h.Shutdown()

	conn := h.Accept("sock-6", &fakeSender{})
	_, err := h.Authenticate("sock-6", model.AuthUser{UserID: 600, Role: model.RoleOperator})
	require.NoError(t, err)

	expired := hub.AuthDeadlineWatcher(context.Background(), conn, 10*time.Millisecond)
	require.False(t, expired)
}
