// Package handler exposes the personnel endpoints.
package handler

import (
	"net/http"

	"tourvisit_backend/internal/personnel/domain"
	"tourvisit_backend/internal/personnel/service"
	"tourvisit_backend/internal/personnel/transport"
	"tourvisit_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the personnel endpoints.
type Handler struct {
	svc *service.Service
}

// New creates a personnel handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the personnel routes on the group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/personnel", h.Create)
	rg.GET("/personnel", h.List)
	rg.GET("/personnel/:id", h.Get)
	rg.GET("/roles", h.ListRoles)
	rg.POST("/assignments", h.Assign)
	rg.GET("/assignments", h.ListByScope)
	rg.POST("/personnel/availability", h.Availability)
}

// Create handles POST /personnel.
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreatePersonnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	p, err := h.svc.Create(c.Request.Context(), service.CreateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToPersonnelResponse(p))
}

// Get handles GET /personnel/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPersonnelResponse(p))
}

// List handles GET /personnel.
func (h *Handler) List(c *gin.Context) {
	personnel, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.PersonnelResponse, 0, len(personnel))
	for i := range personnel {
		out = append(out, transport.ToPersonnelResponse(&personnel[i]))
	}
	httpkit.OK(c, out)
}

// ListRoles handles GET /roles.
func (h *Handler) ListRoles(c *gin.Context) {
	roles, err := h.svc.ListRoles(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]transport.RoleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, transport.RoleResponse{
			ID:                r.ID,
			Name:              r.Name,
			CheckAvailability: r.CheckAvailability,
		})
	}
	httpkit.OK(c, out)
}

// Assign handles POST /assignments.
func (h *Handler) Assign(c *gin.Context) {
	var req transport.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	batch := make([]domain.AssignmentRequest, 0, len(req.Assignments))
	for _, a := range req.Assignments {
		batch = append(batch, domain.AssignmentRequest{
			PersonnelID: a.PersonnelID,
			RoleID:      a.RoleID,
		})
	}

	err := h.svc.Assign(c.Request.Context(), service.AssignInput{
		Scope: domain.Scope{
			VisitID:        req.VisitID,
			VisitServiceID: req.VisitServiceID,
			TourSlotID:     req.TourSlotID,
		},
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Assignments: batch,
		Replace:     req.Replace,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusCreated)
}

// ListByScope handles GET /assignments with scope query parameters.
func (h *Handler) ListByScope(c *gin.Context) {
	scope := domain.Scope{}
	if raw := c.Query("visitId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid visitId", nil)
			return
		}
		scope.VisitID = &id
	}
	if raw := c.Query("visitServiceId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid visitServiceId", nil)
			return
		}
		scope.VisitServiceID = &id
	}
	if raw := c.Query("tourSlotId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid tourSlotId", nil)
			return
		}
		scope.TourSlotID = &id
	}

	assignments, err := h.svc.ListByScope(c.Request.Context(), scope)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToAssignmentResponses(assignments))
}

// Availability handles POST /personnel/availability.
func (h *Handler) Availability(c *gin.Context) {
	var req transport.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	conflicts, err := h.svc.Availability(c.Request.Context(), req.PersonnelIDs, req.StartTime, req.EndTime)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{
		"available": len(conflicts) == 0,
		"conflicts": conflicts,
	})
}
