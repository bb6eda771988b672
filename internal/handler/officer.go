package handler

import (
	"net/http"

	"github.com/civicdesk/api/internal/model"
	"github.com/civicdesk/api/internal/service"
	"github.com/gin-gonic/gin"
)

type OfficerHandler struct {
	departments *service.DepartmentService
	reports     *service.ReportService
	emergencies *service.EmergencyService
}

func NewOfficerHandler(departments *service.DepartmentService, reports *service.ReportService, emergencies *service.EmergencyService) *OfficerHandler {
	return &OfficerHandler{departments: departments, reports: reports, emergencies: emergencies}
}

// Dashboard summarises the reports of the officer's departments, the
// officer's own queue and open emergencies.
func (h *OfficerHandler) Dashboard(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	depts, err := h.departments.ForOfficer(ctx, p)
	if err != nil {
		respondError(c, err)
		return
	}
	reportCounts, err := h.reports.CountByStatus(ctx, p)
	if err != nil {
		respondError(c, err)
		return
	}
	_, assigned, err := h.reports.List(ctx, p, service.ReportFilter{
		Status:     model.ReportInProgress,
		AssignedTo: p.UserID,
	}, 1, 1)
	if err != nil {
		respondError(c, err)
		return
	}
	emergencyCounts, err := h.emergencies.CountByStatus(ctx, p)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"departments":  depts,
		"reports":      reportCounts,
		"assignedOpen": assigned,
		"emergencies":  emergencyCounts,
	})
}

func (h *OfficerHandler) Departments(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	depts, err := h.departments.ForOfficer(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": depts})
}

// Assigned lists the reports assigned to the caller.
func (h *OfficerHandler) Assigned(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	page, limit := pagination(c)

	reports, total, err := h.reports.List(c.Request.Context(), p, service.ReportFilter{
		Status:     reportStatusFilter(c),
		AssignedTo: p.UserID,
	}, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, reports, page, limit, total)
}
