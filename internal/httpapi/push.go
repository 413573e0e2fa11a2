package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"letshare-server/internal/middleware"
	"letshare-server/internal/model"
	"letshare-server/internal/push"
)

type PushRoutes struct {
	store      *push.Store
	dispatcher *push.Dispatcher
}

func NewPushRoutes(store *push.Store, dispatcher *push.Dispatcher) *PushRoutes {
	return &PushRoutes{store: store, dispatcher: dispatcher}
}

func (p *PushRoutes) Register(rg *gin.RouterGroup) {
	rg.POST("/push/subscribe", p.subscribe)
	rg.POST("/push/unsubscribe", p.unsubscribe)
	rg.GET("/push/settings", p.getSettings)
	rg.PATCH("/push/settings", p.patchSettings)
	rg.POST("/push/test", p.test)

	rg.POST("/push/master/:masterId/subscribe", p.masterSubscribe)
	rg.POST("/push/master/:masterId/unsubscribe", p.masterUnsubscribe)
}

type subscribeRequest struct {
	Subscription model.PushSubscription `json:"subscription" binding:"required"`
}

func (p *PushRoutes) subscribe(c *gin.Context) {
	user, _ := middleware.UserFromContext(c)
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		return
	}
	if err := p.store.Subscribe(c.Request.Context(), push.NamespaceUser, push.FormatID(user.UserID), req.Subscription); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

func (p *PushRoutes) unsubscribe(c *gin.Context) {
	user, _ := middleware.UserFromContext(c)
	var req unsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		return
	}
	if err := p.store.Unsubscribe(c.Request.Context(), push.NamespaceUser, push.FormatID(user.UserID), req.Endpoint); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (p *PushRoutes) getSettings(c *gin.Context) {
	user, _ := middleware.UserFromContext(c)
	prefs, err := p.store.Preferences(c.Request.Context(), push.NamespaceUser, push.FormatID(user.UserID))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

type settingsPatch struct {
	CallIncoming *bool `json:"callIncoming"`
	CallMissed   *bool `json:"callMissed"`
}

func (p *PushRoutes) patchSettings(c *gin.Context) {
	user, _ := middleware.UserFromContext(c)
	id := push.FormatID(user.UserID)

	var patch settingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.Error(err)
		return
	}

	prefs, err := p.store.Preferences(c.Request.Context(), push.NamespaceUser, id)
	if err != nil {
		c.Error(err)
		return
	}
	if patch.CallIncoming != nil {
		prefs.CallIncoming = *patch.CallIncoming
	}
	if patch.CallMissed != nil {
		prefs.CallMissed = *patch.CallMissed
	}
	if err := p.store.SetPreferences(c.Request.Context(), id, prefs); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (p *PushRoutes) test(c *gin.Context) {
	user, _ := middleware.UserFromContext(c)
	payload := model.PushPayload{
		Title: "Test notification",
		Body:  "This is a test push notification.",
		Type:  "test",
	}
	p.dispatcher.Send(c.Request.Context(), push.NamespaceUser, push.FormatID(user.UserID), payload)
	c.Status(http.StatusAccepted)
}

// masterSubscribe/masterUnsubscribe manage the external master identity
// subscription namespace (spec §4.7); masterId is opaque and not mapped to
// an internal userId (spec §9 Open Question).
func (p *PushRoutes) masterSubscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		return
	}
	if err := p.store.Subscribe(c.Request.Context(), push.NamespaceMaster, c.Param("masterId"), req.Subscription); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (p *PushRoutes) masterUnsubscribe(c *gin.Context) {
	var req unsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		return
	}
	if err := p.store.Unsubscribe(c.Request.Context(), push.NamespaceMaster, c.Param("masterId"), req.Endpoint); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
