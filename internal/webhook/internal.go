package webhook

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"letshare-server/internal/inbox"
	"letshare-server/internal/model"
	"letshare-server/internal/push"
)

// InternalHandlers backs the webhook-secret-protected
// /notifications/internal/* routes (spec §6). Unlike the public /broadcast
// routes (C6 proper), these write through the durable inbox (C7) and the
// Web Push dispatcher (C8), not just the live socket path.
type InternalHandlers struct {
	hub    Broadcaster
	box    *inbox.Inbox
	push   *push.Dispatcher
	master *push.Dispatcher
	secret string
}

func NewInternalHandlers(h Broadcaster, box *inbox.Inbox, userPush, masterPush *push.Dispatcher, secret string) *InternalHandlers {
	return &InternalHandlers{hub: h, box: box, push: userPush, master: masterPush, secret: secret}
}

func (h *InternalHandlers) requireSecret(c *gin.Context, token string) bool {
	if !checkSecret(h.secret, token) {
		c.AbortWithStatus(http.StatusUnauthorized)
		return false
	}
	return true
}

type createPayload struct {
	Token   string `json:"token"`
	UserID  int64  `json:"userId"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	OrderID *int64 `json:"orderId"`
	Data    any    `json:"data"`
}

// Create writes a single notification to one user's inbox and pushes it
// to both their live sockets and Web Push subscriptions.
func (h *InternalHandlers) Create(c *gin.Context) {
	var p createPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if !h.requireSecret(c, p.Token) {
		return
	}
	h.createOne(c.Request.Context(), p)
	c.Status(http.StatusOK)
}

func (h *InternalHandlers) createOne(ctx context.Context, p createPayload) {
	n := model.Notification{Type: p.Type, Title: p.Title, Message: p.Message, OrderID: p.OrderID}
	h.box.Create(ctx, p.UserID, n)
	if h.push != nil {
		h.push.Send(ctx, push.NamespaceUser, formatUserID(p.UserID), model.PushPayload{
			Title: p.Title, Body: p.Message, Type: p.Type, OrderID: p.OrderID,
		})
	}
}

type notifyUsersPayload struct {
	Token   string  `json:"token"`
	UserIDs []int64 `json:"userIds"`
	Type    string  `json:"type"`
	Title   string  `json:"title"`
	Message string  `json:"message"`
	OrderID *int64  `json:"orderId"`
}

// NotifyUsers fans a single notification body out to each listed user's
// inbox independently.
func (h *InternalHandlers) NotifyUsers(c *gin.Context) {
	var p notifyUsersPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if !h.requireSecret(c, p.Token) {
		return
	}
	ctx := c.Request.Context()
	for _, uid := range p.UserIDs {
		h.createOne(ctx, createPayload{UserID: uid, Type: p.Type, Title: p.Title, Message: p.Message, OrderID: p.OrderID})
	}
	c.Status(http.StatusOK)
}

type notifyRoomPayload struct {
	Token   string `json:"token"`
	Room    string `json:"room"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// NotifyRoom fans out to every socket currently holding a room. Room
// membership has no durable per-user list, so unlike Create/NotifyUsers
// this is live-socket-only — it does not write inbox entries for users
// who are not currently connected (a documented design decision, see
// DESIGN.md).
func (h *InternalHandlers) NotifyRoom(c *gin.Context) {
	var p notifyRoomPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if !h.requireSecret(c, p.Token) {
		return
	}
	_ = h.hub.BroadcastToRoom(c.Request.Context(), p.Room, "notification", map[string]string{
		"type": p.Type, "title": p.Title, "message": p.Message,
	})
	c.Status(http.StatusOK)
}

type operatorEventPayload struct {
	Token      string `json:"token"`
	OperatorID int64  `json:"operatorId"`
	Title      string `json:"title"`
	Message    string `json:"message"`
}

// OperatorCall and OperatorOrder create a single operator's notification
// typed call_incoming / order respectively, so Web Push preference gating
// (spec §4.7) applies.
func (h *InternalHandlers) OperatorCall(c *gin.Context) { h.operatorEvent(c, "call_incoming") }
func (h *InternalHandlers) OperatorOrder(c *gin.Context) { h.operatorEvent(c, "order") }

func (h *InternalHandlers) operatorEvent(c *gin.Context, eventType string) {
	var p operatorEventPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if !h.requireSecret(c, p.Token) {
		return
	}
	h.createOne(c.Request.Context(), createPayload{UserID: p.OperatorID, Type: eventType, Title: p.Title, Message: p.Message})
	c.Status(http.StatusOK)
}

type directorsCityPayload struct {
	Token   string `json:"token"`
	City    string `json:"city"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// DirectorsCity notifies directors scoped to a city room. Like NotifyRoom,
// this is live-socket-only: there is no durable "directors in city X"
// membership list to write inbox entries against.
func (h *InternalHandlers) DirectorsCity(c *gin.Context) {
	var p directorsCityPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if !h.requireSecret(c, p.Token) {
		return
	}
	_ = h.hub.BroadcastToRoom(c.Request.Context(), "city:"+p.City, "notification", map[string]string{
		"title": p.Title, "message": p.Message, "scope": "directors",
	})
	c.Status(http.StatusOK)
}

type masterPayload struct {
	Token    string `json:"token"`
	MasterID string `json:"masterId"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// Master pushes to the master Web Push namespace only. Per spec §9 Open
// Questions, mapping an external master id to an internal user id (and
// therefore writing an inbox entry) is explicitly out of scope here; this
// handler does not attempt it.
func (h *InternalHandlers) Master(c *gin.Context) {
	var p masterPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if !h.requireSecret(c, p.Token) {
		return
	}
	if h.master != nil {
		h.master.Send(c.Request.Context(), push.NamespaceMaster, p.MasterID, model.PushPayload{
			Title: p.Title, Body: p.Message, Type: "master",
		})
	}
	c.Status(http.StatusOK)
}

type systemPayload struct {
	Token   string `json:"token"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// System broadcasts to every authenticated socket. No inbox write: there
// is no per-user fan-out list for "everyone", durable or otherwise.
func (h *InternalHandlers) System(c *gin.Context) {
	var p systemPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if !h.requireSecret(c, p.Token) {
		return
	}
	_ = h.hub.BroadcastToAll(c.Request.Context(), "notification", map[string]string{
		"title": p.Title, "message": p.Message, "scope": "system",
	})
	c.Status(http.StatusOK)
}

func formatUserID(id int64) string {
	return push.FormatID(id)
}
