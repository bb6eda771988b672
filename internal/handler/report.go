package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/civicdesk/api/internal/media"
	"github.com/civicdesk/api/internal/middleware"
	"github.com/civicdesk/api/internal/model"
	"github.com/civicdesk/api/internal/service"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reports  *service.ReportService
	uploader *media.Uploader
}

func NewReportHandler(reports *service.ReportService, uploader *media.Uploader) *ReportHandler {
	return &ReportHandler{reports: reports, uploader: uploader}
}

// Create files a report from a multipart form.
func (h *ReportHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	deptID, err := strconv.ParseInt(c.PostForm("departmentId"), 10, 64)
	if err != nil || deptID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "departmentId is required"})
		return
	}
	loc, err := formLocation(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !p.IsCitizen() {
		respondError(c, service.ErrForbidden)
		return
	}

	upload, ok := storeMedia(c, h.uploader, "reports", p.UserID)
	if !ok {
		return
	}

	report, err := h.reports.Create(c.Request.Context(), p, service.CreateReportInput{
		Title:        c.PostForm("title"),
		Description:  c.PostForm("description"),
		DepartmentID: deptID,
		Location:     loc,
		Media:        upload.Media,
	})
	if err != nil {
		discardMedia(c, h.uploader, upload)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *ReportHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	deptID, ok := queryID(c, "departmentId")
	if !ok {
		return
	}
	page, limit := pagination(c)

	reports, total, err := h.reports.List(c.Request.Context(), p, service.ReportFilter{
		Status:       reportStatusFilter(c),
		DepartmentID: deptID,
	}, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, reports, page, limit, total)
}

func (h *ReportHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	report, err := h.reports.Get(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) History(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	history, err := h.reports.History(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": history})
}

// Transitions lists the statuses the report may move to next.
func (h *ReportHandler) Transitions(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	next, err := h.reports.Transitions(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": next})
}

func (h *ReportHandler) ChangeStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	report, err := h.reports.ChangeStatus(c.Request.Context(), p, id, model.ReportStatus(req.Status), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.RecordStatusTransition(model.EntityReport, previousStatus(report.History), string(report.Status))
	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) Reject(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	report, err := h.reports.Reject(c.Request.Context(), p, id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.RecordStatusTransition(model.EntityReport, previousStatus(report.History), string(report.Status))
	c.JSON(http.StatusOK, report)
}

// Assign hands the report to an officer of its department. Without an
// officerId the caller takes it.
func (h *ReportHandler) Assign(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		OfficerID int64 `json:"officerId"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	report, err := h.reports.Assign(c.Request.Context(), p, id, req.OfficerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.reports.Delete(c.Request.Context(), p, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "report deleted"})
}

func reportStatusFilter(c *gin.Context) model.ReportStatus {
	return model.ReportStatus(strings.TrimSpace(c.Query("status")))
}
