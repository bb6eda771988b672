package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/civicdesk/api/internal/model"
	"github.com/civicdesk/api/internal/service"
	"github.com/gin-gonic/gin"
)

type ExportHandler struct {
	reports *service.ReportService
	now     func() time.Time
}

func NewExportHandler(reports *service.ReportService) *ExportHandler {
	return &ExportHandler{reports: reports, now: time.Now}
}

// Export writes every report matching the status and departmentId filters
// as json, csv or markdown.
func (h *ExportHandler) Export(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	deptID, ok := queryID(c, "departmentId")
	if !ok {
		return
	}
	format := c.DefaultQuery("format", "json")
	switch format {
	case "json", "csv", "md", "markdown":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid format. Use json, csv, or md"})
		return
	}

	reports, err := h.reports.All(c.Request.Context(), p, service.ReportFilter{
		Status:       reportStatusFilter(c),
		DepartmentID: deptID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	name := "reports-" + h.now().UTC().Format("20060102-150405")
	switch format {
	case "json":
		h.exportJSON(c, name, reports)
	case "csv":
		h.exportCSV(c, name, reports)
	default:
		h.exportMarkdown(c, name, reports)
	}
}

func (h *ExportHandler) exportJSON(c *gin.Context, name string, reports []model.Report) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.json", name))
	c.JSON(http.StatusOK, gin.H{"data": reports, "totalCount": len(reports)})
}

func (h *ExportHandler) exportCSV(c *gin.Context, name string, reports []model.Report) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	writer.Write([]string{"ID", "Title", "Status", "Department", "Citizen", "Assigned Officer", "Latitude", "Longitude", "Address", "Rejection Reason", "Created At", "Updated At"})

	for _, r := range reports {
		assigned := ""
		if r.AssignedOfficerID != nil {
			assigned = strconv.FormatInt(*r.AssignedOfficerID, 10)
		}
		writer.Write([]string{
			strconv.FormatInt(r.ID, 10),
			r.Title,
			string(r.Status),
			departmentName(r),
			strconv.FormatInt(r.CitizenID, 10),
			assigned,
			strconv.FormatFloat(r.Location.Latitude, 'f', 6, 64),
			strconv.FormatFloat(r.Location.Longitude, 'f', 6, 64),
			r.Location.Address,
			r.RejectionReason,
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", name))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *ExportHandler) exportMarkdown(c *gin.Context, name string, reports []model.Report) {
	var buf bytes.Buffer

	buf.WriteString("# Civic issue reports\n\n")
	buf.WriteString(fmt.Sprintf("**Exported:** %s\n\n", h.now().Format("2006-01-02 15:04:05")))
	buf.WriteString(fmt.Sprintf("**Total:** %d\n\n", len(reports)))

	for _, r := range reports {
		buf.WriteString(fmt.Sprintf("## %d. %s\n\n", r.ID, r.Title))
		buf.WriteString(fmt.Sprintf("**Status:** %s\n\n", r.Status))
		buf.WriteString(fmt.Sprintf("**Department:** %s\n\n", departmentName(r)))
		if r.Location.Address != "" {
			buf.WriteString(fmt.Sprintf("**Address:** %s\n\n", r.Location.Address))
		}
		if r.RejectionReason != "" {
			buf.WriteString(fmt.Sprintf("**Rejection reason:** %s\n\n", r.RejectionReason))
		}
		if r.Description != "" {
			buf.WriteString(r.Description + "\n\n")
		}

		buf.WriteString("| Status | When | By | Note |\n|---|---|---|---|\n")
		for _, e := range r.History {
			buf.WriteString(fmt.Sprintf("| %s | %s | %d | %s |\n", e.Status, e.Timestamp.Format("2006-01-02 15:04"), e.UpdatedBy, e.Note))
		}
		buf.WriteString("\n---\n\n")
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.md", name))
	c.Data(http.StatusOK, "text/markdown", buf.Bytes())
}

func departmentName(r model.Report) string {
	if r.Department != nil {
		return r.Department.Name
	}
	return strconv.FormatInt(r.DepartmentID, 10)
}
