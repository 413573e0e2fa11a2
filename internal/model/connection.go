package model

import (
	"sync"
	"time"
)

// ConnState is the explicit state of a socket's authentication lifecycle.
// Spec §9 warns against encoding Pending/Authenticated via nullability of
// the user field; State is checked instead, so "never index a pending
// connection" stays locally verifiable.
type ConnState int

const (
	StatePending ConnState = iota
	StateAuthenticated
	StateTerminated
)

func (s ConnState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthenticated:
		return "authenticated"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// AuthUser is the {userId, role} pair extracted from a verified token.
type AuthUser struct {
	UserID int64
	Role   Role
}

// Sender abstracts the underlying socket write so the hub package never
// imports gorilla/websocket directly; wsapi implements it.
type Sender interface {
	SendJSON(v any) error
	// Ping probes liveness without blocking on a full read cycle; used by
	// the registry's periodic sweep to reap sockets whose disconnect
	// callback never fired (spec §4.3).
	Ping() error
	Close() error
}

// Connection is one live bidirectional socket. Field access must go
// through the mutex: the registry mutates State/User/Rooms/AuthDeadline
// from multiple goroutines (accept, authenticate, join/leave, sweep).
type Connection struct {
	SocketID string
	Sender   Sender

	mu           sync.Mutex
	state        ConnState
	user         *AuthUser
	rooms        map[string]struct{}
	authDeadline time.Time
}

func NewConnection(socketID string, sender Sender, authGrace time.Duration) *Connection {
	return &Connection{
		SocketID:     socketID,
		Sender:       sender,
		state:        StatePending,
		rooms:        make(map[string]struct{}),
		authDeadline: time.Now().Add(authGrace),
	}
}

func (c *Connection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) User() *AuthUser {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *Connection) AuthDeadline() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authDeadline.IsZero() {
		return time.Time{}, false
	}
	return c.authDeadline, true
}

// Authenticate transitions Pending -> Authenticated, clears the deadline,
// and records the verified user. Returns false if the connection was not
// Pending (already authenticated or terminated by a concurrent sweep).
func (c *Connection) Authenticate(user AuthUser) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePending {
		return false
	}
	c.state = StateAuthenticated
	c.user = &user
	c.authDeadline = time.Time{}
	return true
}

// Terminate transitions to Terminated from any state. Returns the prior
// state so callers can decide whether registry bookkeeping is needed.
func (c *Connection) Terminate() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.state
	c.state = StateTerminated
	return prev
}

func (c *Connection) JoinRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[room] = struct{}{}
}

func (c *Connection) LeaveRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, room)
}

func (c *Connection) InRoom(room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rooms[room]
	return ok
}

func (c *Connection) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		out = append(out, r)
	}
	return out
}

func (c *Connection) Send(v any) error {
	return c.Sender.SendJSON(v)
}
