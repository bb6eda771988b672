package handler

import (
	"net/http"
	"strconv"

	"github.com/civicdesk/api/internal/model"
	"github.com/civicdesk/api/internal/service"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	users    *service.UserService
	stats    *service.StatsService
	activity *service.ActivityService
}

func NewAdminHandler(users *service.UserService, stats *service.StatsService, activity *service.ActivityService) *AdminHandler {
	return &AdminHandler{users: users, stats: stats, activity: activity}
}

// GetStats returns dashboard statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	stats, err := h.stats.Collect(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListOfficers returns officer accounts with their departments.
func (h *AdminHandler) ListOfficers(c *gin.Context) {
	h.listUsers(c, model.RoleOfficer)
}

// ListUsers returns citizen accounts.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	h.listUsers(c, model.RoleCitizen)
}

func (h *AdminHandler) listUsers(c *gin.Context, role model.Role) {
	p, ok := principal(c)
	if !ok {
		return
	}
	page, limit := pagination(c)

	f := service.UserFilter{Role: role, Query: c.Query("q")}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "active must be true or false"})
			return
		}
		f.Active = &active
	}

	users, total, err := h.users.List(c.Request.Context(), p, f, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, users, page, limit, total)
}

func (h *AdminHandler) CreateOfficer(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req service.OfficerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email, password and name are required"})
		return
	}
	officer, err := h.users.CreateOfficer(c.Request.Context(), p, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, officer)
}

// SetOfficerDepartments replaces an officer's department assignments.
func (h *AdminHandler) SetOfficerDepartments(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		DepartmentIDs []int64 `json:"departmentIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	officer, err := h.users.SetOfficerDepartments(c.Request.Context(), p, id, req.DepartmentIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, officer)
}

func (h *AdminHandler) SetOfficerStatus(c *gin.Context) {
	h.setActive(c, model.RoleOfficer)
}

func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	h.setActive(c, model.RoleCitizen)
}

func (h *AdminHandler) setActive(c *gin.Context, role model.Role) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "active is required"})
		return
	}
	user, err := h.users.SetActive(c.Request.Context(), p, id, role, *req.Active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListActivity returns the audit trail filtered by actorId, action,
// entityType and entityId.
func (h *AdminHandler) ListActivity(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	actorID, ok := queryID(c, "actorId")
	if !ok {
		return
	}
	entityID, ok := queryID(c, "entityId")
	if !ok {
		return
	}
	page, limit := pagination(c)

	logs, total, err := h.activity.List(c.Request.Context(), p, service.ActivityFilter{
		ActorID:    actorID,
		Action:     c.Query("action"),
		EntityType: c.Query("entityType"),
		EntityID:   entityID,
	}, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, logs, page, limit, total)
}
