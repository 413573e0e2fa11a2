// Package wsapi is the gin-integrated websocket endpoint: it upgrades the
// HTTP connection, resolves the handshake token, and drives the hub's
// registry/room/auth operations from the client message protocol (spec §5).
package wsapi

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// socketSender wraps a gorilla/websocket.Conn so the hub can write without
// importing gorilla/websocket itself (model.Sender). gorilla forbids
// concurrent writers on one connection, so every write goes through mu;
// the hub's broadcast path and this socket's own ping ticker both call in.
type socketSender struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newSocketSender(conn *websocket.Conn) *socketSender {
	return &socketSender{conn: conn}
}

func (s *socketSender) SendJSON(v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Small frames (presence pings, ack frames) aren't worth the CPU cost of
	// deflate; only engage per-message compression above the threshold.
	s.conn.EnableWriteCompression(len(body) >= compressionThreshold)
	return s.conn.WriteMessage(websocket.TextMessage, body)
}

func (s *socketSender) Ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func (s *socketSender) Close() error {
	return s.conn.Close()
}
