// Package httpapi exposes the REST surface under /api/v1: the notification
// inbox, registry/room stats, and push subscription management (spec §6).
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"letshare-server/internal/inbox"
	"letshare-server/internal/middleware"
	"letshare-server/internal/model"
)

type NotificationRoutes struct {
	inbox *inbox.Inbox
}

func NewNotificationRoutes(ib *inbox.Inbox) *NotificationRoutes {
	return &NotificationRoutes{inbox: ib}
}

func (n *NotificationRoutes) Register(rg *gin.RouterGroup) {
	rg.GET("/notifications", n.list)
	rg.GET("/notifications/unread-count", n.unreadCount)
	rg.POST("/notifications/read", n.markRead)
	rg.POST("/notifications/read-all", n.markAllRead)
	rg.DELETE("/notifications/:id", n.delete)
	rg.DELETE("/notifications", n.clearAll)
}

func (n *NotificationRoutes) list(c *gin.Context) {
	user, _ := middleware.UserFromContext(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := n.inbox.List(c.Request.Context(), user.UserID, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}
	if items == nil {
		items = []model.Notification{}
	}
	unreadCount := n.inbox.UnreadCount(c.Request.Context(), user.UserID)
	c.JSON(http.StatusOK, gin.H{"notifications": items, "unreadCount": unreadCount})
}

func (n *NotificationRoutes) unreadCount(c *gin.Context) {
	user, _ := middleware.UserFromContext(c)
	count := n.inbox.UnreadCount(c.Request.Context(), user.UserID)
	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}

type markReadRequest struct {
	NotificationID string `json:"notificationId"`
}

func (n *NotificationRoutes) markRead(c *gin.Context) {
	user, _ := middleware.UserFromContext(c)

	var body markReadRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	if err := n.inbox.MarkRead(c.Request.Context(), user.UserID, body.NotificationID); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (n *NotificationRoutes) markAllRead(c *gin.Context) {
	user, _ := middleware.UserFromContext(c)
	if err := n.inbox.MarkAllRead(c.Request.Context(), user.UserID); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (n *NotificationRoutes) delete(c *gin.Context) {
	user, _ := middleware.UserFromContext(c)
	if err := n.inbox.Delete(c.Request.Context(), user.UserID, c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (n *NotificationRoutes) clearAll(c *gin.Context) {
	user, _ := middleware.UserFromContext(c)
	if err := n.inbox.ClearAll(c.Request.Context(), user.UserID); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
