package handler

import (
	"net/http"

	"github.com/civicdesk/api/internal/service"
	"github.com/gin-gonic/gin"
)

const recentItems = 5

type CitizenHandler struct {
	users       *service.UserService
	reports     *service.ReportService
	emergencies *service.EmergencyService
	notify      *service.NotificationService
}

func NewCitizenHandler(users *service.UserService, reports *service.ReportService, emergencies *service.EmergencyService, notify *service.NotificationService) *CitizenHandler {
	return &CitizenHandler{users: users, reports: reports, emergencies: emergencies, notify: notify}
}

// Dashboard summarises the caller's own reports and emergencies.
func (h *CitizenHandler) Dashboard(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	reportCounts, err := h.reports.CountByStatus(ctx, p)
	if err != nil {
		respondError(c, err)
		return
	}
	emergencyCounts, err := h.emergencies.CountByStatus(ctx, p)
	if err != nil {
		respondError(c, err)
		return
	}
	recent, _, err := h.reports.List(ctx, p, service.ReportFilter{}, 1, recentItems)
	if err != nil {
		respondError(c, err)
		return
	}
	unread, err := h.notify.UnreadCount(ctx, p)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports":             reportCounts,
		"emergencies":         emergencyCounts,
		"recentReports":       recent,
		"unreadNotifications": unread,
	})
}

func (h *CitizenHandler) Profile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *CitizenHandler) UpdateProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req service.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), p, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
