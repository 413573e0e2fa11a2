// Package webhook implements the HTTP ingress (C6): shared-secret
// authenticated publishes from external business services, translated
// into hub broadcasts.
package webhook

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"letshare-server/internal/hub"
	"letshare-server/internal/telegram"
)

type Broadcaster interface {
	BroadcastToRoom(ctx context.Context, room, event string, data any) error
	BroadcastToAll(ctx context.Context, event string, data any) error
	BroadcastToUser(userID int64, event string, data any)
}

type Handlers struct {
	hub      Broadcaster
	secret   string
	telegram *telegram.Relay
}

func NewHandlers(h *hub.Hub, secret string, relay *telegram.Relay) *Handlers {
	return &Handlers{hub: h, secret: secret, telegram: relay}
}

func (h *Handlers) requireSecret(c *gin.Context, token string) bool {
	if !checkSecret(h.secret, token) {
		c.AbortWithStatus(http.StatusUnauthorized)
		return false
	}
	return true
}

type callPayload struct {
	Token      string `json:"token"`
	Call       any    `json:"call"`
	OperatorID *int64 `json:"operatorId"`
}

// CallNew, CallUpdated, CallEnded broadcast call:* to the operators room
// and, when operatorId is present, additionally to operator:<operatorId>.
// The spec notes a simpler "broadcast to all" variant is also acceptable;
// this implementation chooses room-scoped delivery deterministically
// (spec §4.5).
func (h *Handlers) CallNew(c *gin.Context)     { h.handleCall(c, "call:new") }
func (h *Handlers) CallUpdated(c *gin.Context) { h.handleCall(c, "call:updated") }
func (h *Handlers) CallEnded(c *gin.Context)   { h.handleCall(c, "call:ended") }

func (h *Handlers) handleCall(c *gin.Context, event string) {
	var p callPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if !h.requireSecret(c, p.Token) {
		return
	}

	ctx := c.Request.Context()
	_ = h.hub.BroadcastToRoom(ctx, "operators", event, p.Call)
	if p.OperatorID != nil {
		_ = h.hub.BroadcastToRoom(ctx, roomForID("operator", *p.OperatorID), event, p.Call)
	}
	c.Status(http.StatusOK)
}

type orderPayload struct {
	Token    string `json:"token"`
	Order    any    `json:"order"`
	ID       *int64 `json:"id"`
	City     string `json:"city"`
	MasterID *int64 `json:"masterId"`
}

func (h *Handlers) OrderNew(c *gin.Context)     { h.handleOrder(c, "order:new", false) }
func (h *Handlers) OrderUpdated(c *gin.Context) { h.handleOrder(c, "order:updated", true) }

func (h *Handlers) handleOrder(c *gin.Context, event string, isUpdate bool) {
	var p orderPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if !h.requireSecret(c, p.Token) {
		return
	}

	ctx := c.Request.Context()
	_ = h.hub.BroadcastToRoom(ctx, "operators", event, p.Order)
	_ = h.hub.BroadcastToRoom(ctx, "directors", event, p.Order)
	if p.City != "" {
		_ = h.hub.BroadcastToRoom(ctx, "city:"+p.City, event, p.Order)
	}
	if p.MasterID != nil {
		_ = h.hub.BroadcastToRoom(ctx, roomForID("master", *p.MasterID), event, p.Order)
	}
	if isUpdate && p.ID != nil {
		_ = h.hub.BroadcastToRoom(ctx, roomForID("order", *p.ID), event, p.Order)
	}
	c.Status(http.StatusOK)
}

type notificationPayload struct {
	Token  string `json:"token"`
	UserID *int64 `json:"userId"`
	Rooms  []string `json:"rooms"`
	Data   any    `json:"data"`
}

// Notification routes by userId if set, else by rooms if non-empty, else
// broadcasts to all (spec §4.5).
func (h *Handlers) Notification(c *gin.Context) {
	var p notificationPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if !h.requireSecret(c, p.Token) {
		return
	}

	ctx := c.Request.Context()
	switch {
	case p.UserID != nil:
		h.hub.BroadcastToUser(*p.UserID, "notification", p.Data)
	case len(p.Rooms) > 0:
		for _, room := range p.Rooms {
			_ = h.hub.BroadcastToRoom(ctx, room, "notification", p.Data)
		}
	default:
		_ = h.hub.BroadcastToAll(ctx, "notification", p.Data)
	}
	c.Status(http.StatusOK)
}

type avitoPayload struct {
	Token string `json:"token"`
	Kind  string `json:"kind"` // "message" | "chat-update" | "notification"
	Data  any    `json:"data"`
	Text  string `json:"text"`
}

// AvitoEvent translates to one of avito-new-message / avito-chat-updated /
// avito-notification, broadcast to all; avito-new-message additionally
// fires the Telegram relay as a fire-and-forget side effect (spec §4.5).
func (h *Handlers) AvitoEvent(c *gin.Context) {
	var p avitoPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if !h.requireSecret(c, p.Token) {
		return
	}

	event := avitoEventName(p.Kind)
	ctx := c.Request.Context()
	_ = h.hub.BroadcastToAll(ctx, event, p.Data)

	if event == "avito-new-message" && h.telegram != nil {
		h.telegram.Notify(p.Text)
	}
	c.Status(http.StatusOK)
}

func avitoEventName(kind string) string {
	switch kind {
	case "chat-update":
		return "avito-chat-updated"
	case "notification":
		return "avito-notification"
	default:
		return "avito-new-message"
	}
}
