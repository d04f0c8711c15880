package handlers

import (
	"github.com/gin-gonic/gin"

	"knowledgehub/internal/middleware"
	"knowledgehub/internal/services"
	"knowledgehub/internal/utils"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user := middleware.CurrentIdentity(c)
	items, err := h.notifications.List(c.Request.Context(), user)
	if err != nil {
		RenderError(c, err)
		return
	}
	unread, err := h.notifications.UnreadCount(c.Request.Context(), user)
	if err != nil {
		RenderError(c, err)
		return
	}
	utils.Success(c, gin.H{"items": items, "unread": unread})
}

func (h *NotificationHandler) Read(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), middleware.CurrentIdentity(c), id); err != nil {
		RenderError(c, err)
		return
	}
	utils.Success(c, nil)
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), middleware.CurrentIdentity(c), id); err != nil {
		RenderError(c, err)
		return
	}
	utils.Success(c, nil)
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		RenderError(c, err)
		return
	}
	utils.Success(c, gin.H{"updated": n})
}
