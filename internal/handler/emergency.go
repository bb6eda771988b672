package handler

import (
	"net/http"

	"github.com/civicdesk/api/internal/media"
	"github.com/civicdesk/api/internal/middleware"
	"github.com/civicdesk/api/internal/model"
	"github.com/civicdesk/api/internal/service"
	"github.com/gin-gonic/gin"
)

type EmergencyHandler struct {
	emergencies *service.EmergencyService
	uploader    *media.Uploader
}

func NewEmergencyHandler(emergencies *service.EmergencyService, uploader *media.Uploader) *EmergencyHandler {
	return &EmergencyHandler{emergencies: emergencies, uploader: uploader}
}

func (h *EmergencyHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
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

	upload, ok := storeMedia(c, h.uploader, "emergencies", p.UserID)
	if !ok {
		return
	}

	em, err := h.emergencies.Create(c.Request.Context(), p, service.CreateEmergencyInput{
		Type:          model.EmergencyType(c.PostForm("type")),
		Description:   c.PostForm("description"),
		ContactNumber: c.PostForm("contactNumber"),
		Location:      loc,
		Media:         upload.Media,
	})
	if err != nil {
		discardMedia(c, h.uploader, upload)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, em)
}

func (h *EmergencyHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	page, limit := pagination(c)

	items, total, err := h.emergencies.List(c.Request.Context(), p, service.EmergencyFilter{
		Status: model.EmergencyStatus(c.Query("status")),
		Type:   model.EmergencyType(c.Query("type")),
	}, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, items, page, limit, total)
}

func (h *EmergencyHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	em, err := h.emergencies.Get(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, em)
}

func (h *EmergencyHandler) ChangeStatus(c *gin.Context) {
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

	em, err := h.emergencies.ChangeStatus(c.Request.Context(), p, id, model.EmergencyStatus(req.Status), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.RecordStatusTransition(model.EntityEmergency, previousStatus(em.History), string(em.Status))
	c.JSON(http.StatusOK, em)
}
