// Package handler exposes the lookup endpoints.
package handler

import (
	"tourvisit_backend/internal/lookups/service"
	"tourvisit_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler serves the lookup endpoints.
type Handler struct {
	svc *service.Service
}

// New creates a lookup handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the lookup routes on the group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/lookups/:category", h.List)
}

// List handles GET /lookups/:category.
func (h *Handler) List(c *gin.Context) {
	values, err := h.svc.List(c.Request.Context(), c.Param("category"))
	if httpkit.HandleError(c, err) {
		return
	}
	if values == nil {
		values = []string{}
	}
	httpkit.OK(c, values)
}
