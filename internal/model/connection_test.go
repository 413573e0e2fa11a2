package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"letshare-server/internal/model"
)

type fakeSender struct {
	sent   []any
	closed bool
	pingErr error
	sendErr error
}

func (f *fakeSender) SendJSON(v any) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, v)
	return nil
}
func (f *fakeSender) Ping() error { return f.pingErr }
func (f *fakeSender) Close() error {
	f.closed = true
	return nil
}

func TestConnectionAuthenticateTransitionsOnce(t *testing.T) {
	sender := &fakeSender{}
	conn := model.NewConnection("sock-1", sender, 10*time.Millisecond)
	require.Equal(t, model.StatePending, conn.State())

	user := model.AuthUser{UserID: 1, Role: model.RoleOperator}
	require.True(t, conn.Authenticate(user))
	require.Equal(t, model.StateAuthenticated, conn.State())
	require.Equal(t, &user, conn.User())

	// A second authentication attempt is rejected: the state machine never
	// re-enters Pending.
	require.False(t, conn.Authenticate(user))
}

func TestConnectionAuthDeadlineClearedOnAuth(t *testing.T) {
	conn := model.NewConnection("sock-2", &fakeSender{}, time.Minute)
	_, ok := conn.AuthDeadline()
	require.True(t, ok)

	conn.Authenticate(model.AuthUser{UserID: 2, Role: model.RoleDirector})
	_, ok = conn.AuthDeadline()
	require.False(t, ok)
}

func TestConnectionJoinLeaveRoomRoundTrip(t *testing.T) {
	conn := model.NewConnection("sock-3", &fakeSender{}, time.Minute)
	require.False(t, conn.InRoom("directors"))

	conn.JoinRoom("directors")
	require.True(t, conn.InRoom("directors"))

	conn.JoinRoom("directors")
	require.Len(t, conn.Rooms(), 1, "joining twice must not duplicate membership")

	conn.LeaveRoom("directors")
	require.False(t, conn.InRoom("directors"))

	// Leaving a room the connection never held is a no-op, not an error.
	conn.LeaveRoom("directors")
}

func TestConnectionTerminateReturnsPriorState(t *testing.T) {
	conn := model.NewConnection("sock-4", &fakeSender{}, time.Minute)
	conn.Authenticate(model.AuthUser{UserID: 4, Role: model.RoleOperator})

	prev := conn.Terminate()
	require.Equal(t, model.StateAuthenticated, prev)
	require.Equal(t, model.StateTerminated, conn.State())
}

func TestConnectionSendDelegatesToSenderAndPropagatesError(t *testing.T) {
	sender := &fakeSender{}
	conn := model.NewConnection("sock-5", sender, time.Minute)
	require.NoError(t, conn.Send(map[string]string{"event": "ping"}))
	require.Len(t, sender.sent, 1)

	failing := model.NewConnection("sock-6", &fakeSender{sendErr: errors.New("boom")}, time.Minute)
	require.Error(t, failing.Send(map[string]string{"event": "ping"}))
}
