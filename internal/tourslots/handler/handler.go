// Package handler exposes the tour slot endpoints.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"tourvisit_backend/internal/tourslots/domain"
	"tourvisit_backend/internal/tourslots/repository"
	"tourvisit_backend/internal/tourslots/service"
	"tourvisit_backend/internal/tourslots/transport"
	"tourvisit_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the tour slot endpoints.
type Handler struct {
	svc *service.Service
}

// New creates a tour slot handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublic mounts the visitor-facing routes.
func (h *Handler) RegisterPublic(rg *gin.RouterGroup) {
	rg.GET("/tour-slots", h.List)
	rg.GET("/tour-slots/:id", h.Get)
	rg.GET("/tour-slots/:id/availability", h.Availability)
}

// RegisterStaff mounts the staff routes.
func (h *Handler) RegisterStaff(rg *gin.RouterGroup) {
	rg.POST("/tour-slots/generate", h.Generate)
	rg.PUT("/tour-slots/:id/stage", h.SetStage)
	rg.DELETE("/tour-slots/:id", h.Delete)
}

// Generate handles POST /tour-slots/generate.
func (h *Handler) Generate(c *gin.Context) {
	var req transport.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	slots, err := h.svc.Generate(c.Request.Context(), service.GenerateInput{
		SiteID:       req.SiteID,
		ServiceID:    req.ServiceID,
		RangeStart:   req.RangeStart,
		RangeEnd:     req.RangeEnd,
		IntervalMin:  req.IntervalMin,
		MaxGuestSize: req.MaxGuestSize,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToSlotResponses(slots))
}

// List handles GET /tour-slots.
func (h *Handler) List(c *gin.Context) {
	siteID, err := uuid.Parse(c.Query("siteId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "siteId is required", nil)
		return
	}
	filter := repository.ListFilter{SiteID: siteID}

	if raw := c.Query("serviceId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid serviceId", nil)
			return
		}
		filter.ServiceID = &id
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid from timestamp", nil)
			return
		}
		filter.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid to timestamp", nil)
			return
		}
		filter.To = &t
	}
	if raw := c.Query("stage"); raw != "" {
		stage := domain.SlotStage(raw)
		if !domain.IsKnownSlotStage(stage) {
			httpkit.Error(c, http.StatusBadRequest, "unknown slot stage", nil)
			return
		}
		filter.Stage = &stage
	}

	slots, err := h.svc.List(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSlotResponses(slots))
}

// Get handles GET /tour-slots/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	slot, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSlotResponse(slot))
}

// Availability handles GET /tour-slots/:id/availability.
func (h *Handler) Availability(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	guests := 1
	if raw := c.Query("guests"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid guests value", nil)
			return
		}
		guests = parsed
	}

	availability, err := h.svc.CheckAvailability(c.Request.Context(), id, guests)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToAvailabilityResponse(availability))
}

// SetStage handles PUT /tour-slots/:id/stage.
func (h *Handler) SetStage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.SetStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	slot, err := h.svc.SetStage(c.Request.Context(), id, domain.SlotStage(req.Stage))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSlotResponse(slot))
}

// Delete handles DELETE /tour-slots/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}
