// Package handler exposes the site endpoints.
package handler

import (
	"net/http"

	"tourvisit_backend/internal/sites/repository"
	"tourvisit_backend/internal/sites/service"
	"tourvisit_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves the site endpoints.
type Handler struct {
	svc *service.Service
}

// New creates a site handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the site routes on the group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/sites", h.List)
	rg.GET("/sites/:id", h.Get)
}

type siteResponse struct {
	ID                     uuid.UUID `json:"id"`
	Name                   string    `json:"name"`
	Timezone               string    `json:"timezone"`
	OpenMinute             int       `json:"openMinute"`
	CloseMinute            int       `json:"closeMinute"`
	SlotGranularityMinutes int       `json:"slotGranularityMinutes"`
}

func toResponse(s *repository.Site) siteResponse {
	return siteResponse{
		ID:                     s.ID,
		Name:                   s.Name,
		Timezone:               s.Timezone,
		OpenMinute:             s.OpenMinute,
		CloseMinute:            s.CloseMinute,
		SlotGranularityMinutes: s.SlotGranularityMinutes,
	}
}

// List handles GET /sites.
func (h *Handler) List(c *gin.Context) {
	sites, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	out := make([]siteResponse, 0, len(sites))
	for i := range sites {
		out = append(out, toResponse(&sites[i]))
	}
	httpkit.OK(c, out)
}

// Get handles GET /sites/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	site, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(site))
}
