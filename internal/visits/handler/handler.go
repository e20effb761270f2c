// Package handler exposes the visit endpoints.
package handler

import (
	"net/http"

	"tourvisit_backend/internal/visits/domain"
	"tourvisit_backend/internal/visits/repository"
	"tourvisit_backend/internal/visits/service"
	"tourvisit_backend/internal/visits/transport"
	"tourvisit_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the visit endpoints.
type Handler struct {
	svc *service.Service
}

// New creates a visit handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublic mounts the visitor-facing routes.
func (h *Handler) RegisterPublic(rg *gin.RouterGroup) {
	rg.POST("/visits", h.Book)
	rg.GET("/visits/:id/pass", h.CheckInPass)
	rg.POST("/visits/:id/feedback", h.SubmitFeedback)
}

// RegisterStaff mounts the staff routes.
func (h *Handler) RegisterStaff(rg *gin.RouterGroup) {
	rg.GET("/visits", h.List)
	rg.GET("/visits/:id", h.Get)
	rg.PUT("/visits/:id", h.Update)
	rg.POST("/visits/:id/stage", h.ChangeStage)
	rg.GET("/visits/:id/history", h.History)
	rg.GET("/visits/:id/services", h.Services)
	rg.GET("/visits/:id/feedback", h.Feedback)
	rg.DELETE("/visits/:id", h.Delete)
}

// Book handles POST /visits.
func (h *Handler) Book(c *gin.Context) {
	var req transport.BookVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	in := service.BookInput{
		SiteID:        req.SiteID,
		VisitType:     domain.VisitType(req.VisitType),
		TourSlotID:    req.TourSlotID,
		ContactName:   req.ContactName,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		Purpose:       req.Purpose,
		TotalVisitors: req.TotalVisitors,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Notes:         req.Notes,
	}
	for _, svc := range req.Services {
		in.Services = append(in.Services, service.ServiceInput{
			ServiceType: svc.ServiceType,
			StartTime:   svc.StartTime,
			EndTime:     svc.EndTime,
			Notes:       svc.Notes,
		})
	}
	for _, a := range req.Assignments {
		in.Assignments = append(in.Assignments, service.AssignmentInput{
			PersonnelID: a.PersonnelID,
			RoleID:      a.RoleID,
		})
	}
	if identity := httpkit.GetIdentity(c); identity.IsAuthenticated() {
		actor := identity.PersonnelID()
		in.CreatedBy = &actor
	}

	visit, err := h.svc.Book(c.Request.Context(), in)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToVisitResponse(visit))
}

// Update handles PUT /visits/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	in := service.UpdateInput{
		ContactName:   req.ContactName,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		Purpose:       req.Purpose,
		TotalVisitors: req.TotalVisitors,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Notes:         req.Notes,
	}
	for _, svc := range req.Services {
		in.Services = append(in.Services, service.ServiceInput{
			ServiceType: svc.ServiceType,
			StartTime:   svc.StartTime,
			EndTime:     svc.EndTime,
			Notes:       svc.Notes,
		})
	}
	for _, a := range req.Assignments {
		in.Assignments = append(in.Assignments, service.AssignmentInput{
			PersonnelID: a.PersonnelID,
			RoleID:      a.RoleID,
		})
	}
	if identity := httpkit.GetIdentity(c); identity.IsAuthenticated() {
		actor := identity.PersonnelID()
		in.UpdatedBy = &actor
	}

	visit, err := h.svc.Update(c.Request.Context(), id, in)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToVisitResponse(visit))
}

// Get handles GET /visits/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	visit, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToVisitResponse(visit))
}

// List handles GET /visits with optional filters.
func (h *Handler) List(c *gin.Context) {
	var filter repository.ListFilter

	if raw := c.Query("siteId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid siteId", nil)
			return
		}
		filter.SiteID = &id
	}
	if raw := c.Query("stage"); raw != "" {
		stage := domain.Stage(raw)
		if !domain.IsKnownStage(stage) {
			httpkit.Error(c, http.StatusBadRequest, "unknown stage", nil)
			return
		}
		filter.Stage = &stage
	}
	if raw := c.Query("visitType"); raw != "" {
		vt := domain.VisitType(raw)
		if !domain.IsKnownVisitType(vt) {
			httpkit.Error(c, http.StatusBadRequest, "unknown visit type", nil)
			return
		}
		filter.VisitType = &vt
	}

	visits, err := h.svc.List(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.VisitResponse, 0, len(visits))
	for i := range visits {
		out = append(out, transport.ToVisitResponse(&visits[i]))
	}
	httpkit.OK(c, out)
}

// ChangeStage handles POST /visits/:id/stage.
func (h *Handler) ChangeStage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.ChangeStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	var actor *uuid.UUID
	if identity := httpkit.GetIdentity(c); identity.IsAuthenticated() {
		actorID := identity.PersonnelID()
		actor = &actorID
	}

	visit, err := h.svc.ChangeStage(c.Request.Context(), id, domain.Stage(req.Stage), req.Reason, actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToVisitResponse(visit))
}

// History handles GET /visits/:id/history.
func (h *Handler) History(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	entries, err := h.svc.History(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToStageHistoryResponse(entries))
}

// Services handles GET /visits/:id/services.
func (h *Handler) Services(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	services, err := h.svc.Services(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToServiceResponse(services))
}

// CheckInPass handles GET /visits/:id/pass and returns a PNG.
func (h *Handler) CheckInPass(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	png, err := h.svc.CheckInPass(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// SubmitFeedback handles POST /visits/:id/feedback.
func (h *Handler) SubmitFeedback(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	fb, err := h.svc.SubmitFeedback(c.Request.Context(), id, req.Rating, req.Comments)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FeedbackResponse{
		Rating:    fb.Rating,
		Comments:  fb.Comments,
		CreatedAt: fb.CreatedAt,
	})
}

// Feedback handles GET /visits/:id/feedback.
func (h *Handler) Feedback(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	fb, err := h.svc.Feedback(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FeedbackResponse{
		Rating:    fb.Rating,
		Comments:  fb.Comments,
		CreatedAt: fb.CreatedAt,
	})
}

// Delete handles DELETE /visits/:id.
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
