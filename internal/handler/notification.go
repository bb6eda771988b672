package handler

import (
	"net/http"

	"github.com/civicdesk/api/internal/service"
	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notify *service.NotificationService
}

func NewNotificationHandler(notify *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notify: notify}
}

// List returns the caller's unexpired notifications, newest first.
// unread=true limits the page to unread ones.
func (h *NotificationHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	page, limit := pagination(c)
	unreadOnly := c.Query("unread") == "true"

	items, total, err := h.notify.List(c.Request.Context(), p, unreadOnly, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, items, page, limit, total)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	n, err := h.notify.UnreadCount(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, err := h.notify.MarkRead(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	updated, err := h.notify.MarkAllRead(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
