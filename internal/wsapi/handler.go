package wsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"letshare-server/internal/authn"
	"letshare-server/internal/hub"
	"letshare-server/internal/model"
)

const (
	maxFrameBytes        = 1 << 20 // 1MB (spec §5)
	compressionThreshold = 1024    // 1KB
	pingInterval         = 25 * time.Second
	pingTimeout          = 60 * time.Second
	connectTimeout       = 45 * time.Second
	authGrace            = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// CORS is enforced by the HTTP middleware layer for the handshake
		// request; every origin is accepted here.
		return true
	},
	ReadBufferSize:    4096,
	WriteBufferSize:   4096,
	EnableCompression: true,
}

// clientMessage is the envelope every inbound client frame is parsed into
// (spec §5's client protocol: authenticate / join-room / leave-room / ping).
type clientMessage struct {
	Type  string          `json:"type"`
	Token string          `json:"token,omitempty"`
	Room  string          `json:"room,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type serverFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type Handler struct {
	hub      *hub.Hub
	verifier *authn.Verifier
}

func New(h *hub.Hub, verifier *authn.Verifier) *Handler {
	return &Handler{hub: h, verifier: verifier}
}

// ServeWS upgrades the request and drives one connection's lifecycle end
// to end: accept, optional query-token fast-auth, read loop, disconnect.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("wsapi: upgrade failed")
		return
	}

	conn.SetReadLimit(maxFrameBytes)

	socketID := uuid.New().String()
	sender := newSocketSender(conn)
	registered := h.hub.Accept(socketID, sender)

	logrus.WithField("socket_id", socketID).Info("wsapi: socket connected")

	_ = sender.SendJSON(serverFrame{Event: "connected", Data: gin.H{"socketId": socketID}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.watchAuthDeadline(ctx, registered, socketID)
	go h.pingLoop(ctx, sender, socketID)

	// Query-token fast path: a token on the handshake URL authenticates
	// immediately, without waiting for an "authenticate" message.
	if token := c.Query("token"); token != "" {
		h.authenticate(registered, socketID, authn.HandshakeSource{AuthQueryToken: token})
	}

	conn.SetReadDeadline(time.Now().Add(connectTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pingTimeout))
		return nil
	})

	h.readLoop(conn, registered, socketID)

	h.hub.Disconnect(socketID)
	logrus.WithField("socket_id", socketID).Info("wsapi: socket disconnected")
}

func (h *Handler) readLoop(conn *websocket.Conn, registered *model.Connection, socketID string) {
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("socket_id", socketID).WithError(err).Warn("wsapi: unexpected close")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pingTimeout))
		h.dispatch(registered, socketID, msg)
	}
}

func (h *Handler) dispatch(registered *model.Connection, socketID string, msg clientMessage) {
	switch msg.Type {
	case "authenticate":
		h.authenticate(registered, socketID, authn.HandshakeSource{AuthenticateMessageToken: msg.Token})
	case "join-room":
		if err := h.hub.JoinRoom(socketID, msg.Room); err != nil {
			h.sendError(registered, err)
			return
		}
		_ = registered.Send(serverFrame{Event: "joined-room", Data: gin.H{"room": msg.Room}})
	case "leave-room":
		if err := h.hub.LeaveRoom(socketID, msg.Room); err != nil {
			h.sendError(registered, err)
			return
		}
		_ = registered.Send(serverFrame{Event: "left-room", Data: gin.H{"room": msg.Room}})
	case "ping":
		_ = registered.Send(serverFrame{Event: "pong"})
	default:
		_ = registered.Send(serverFrame{Event: "error", Data: gin.H{"message": "unsupported message type"}})
	}
}

func (h *Handler) authenticate(registered *model.Connection, socketID string, src authn.HandshakeSource) {
	user, err := h.verifier.ResolveToken(src)
	if err != nil {
		_ = registered.Send(serverFrame{Event: "error", Data: gin.H{"message": "invalid token"}})
		return
	}

	result, err := h.hub.Authenticate(socketID, user)
	if err != nil {
		_ = registered.Send(serverFrame{Event: "error", Data: gin.H{"message": "authentication failed"}})
		return
	}

	_ = registered.Send(serverFrame{Event: "authenticated", Data: gin.H{
		"userId": result.User.UserID,
		"role":   string(result.User.Role),
		"rooms":  result.Rooms,
	}})
}

func (h *Handler) sendError(registered *model.Connection, err error) {
	_ = registered.Send(serverFrame{Event: "error", Data: gin.H{"message": err.Error()}})
}

func (h *Handler) watchAuthDeadline(ctx context.Context, registered *model.Connection, socketID string) {
	if hub.AuthDeadlineWatcher(ctx, registered, authGrace) {
		logrus.WithField("socket_id", socketID).Info("wsapi: auth grace expired, disconnecting")
		_ = registered.Send(serverFrame{Event: "error", Data: gin.H{"message": "authentication grace period exceeded"}})
		h.hub.Disconnect(socketID)
	}
}

func (h *Handler) pingLoop(ctx context.Context, sender *socketSender, socketID string) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sender.Ping(); err != nil {
				logrus.WithField("socket_id", socketID).WithError(err).Warn("wsapi: ping failed")
				return
			}
		}
	}
}
