// Package router assembles the HTTP surface of the engine.
package router

import (
	"time"

	lookuphandler "tourvisit_backend/internal/lookups/handler"
	personnelhandler "tourvisit_backend/internal/personnel/handler"
	sitehandler "tourvisit_backend/internal/sites/handler"
	slothandler "tourvisit_backend/internal/tourslots/handler"
	visithandler "tourvisit_backend/internal/visits/handler"
	"tourvisit_backend/platform/config"
	"tourvisit_backend/platform/httpkit"
	"tourvisit_backend/platform/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Handlers bundles the module handlers the router mounts.
type Handlers struct {
	Visits    *visithandler.Handler
	TourSlots *slothandler.Handler
	Personnel *personnelhandler.Handler
	Sites     *sitehandler.Handler
	Lookups   *lookuphandler.Handler
}

// New builds the gin engine with middleware and all routes mounted.
// Visitor-facing routes (booking, availability, lookups) are open; staff
// routes require an access token from the identity provider.
func New(cfg *config.Config, log *logger.Logger, h Handlers) *gin.Engine {
	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpkit.RequestLogger(log))
	r.Use(httpkit.SecurityHeaders())
	r.Use(corsMiddleware(cfg))

	limiter := httpkit.NewIPRateLimiter(rate.Limit(20), 40, log)
	r.Use(limiter.RateLimit())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	public := r.Group("/api/v1")
	h.Sites.Register(public)
	h.Lookups.Register(public)
	h.TourSlots.RegisterPublic(public)
	h.Visits.RegisterPublic(public)

	staff := r.Group("/api/v1")
	staff.Use(httpkit.AuthRequired(cfg))
	h.Visits.RegisterStaff(staff)
	h.TourSlots.RegisterStaff(staff)
	h.Personnel.Register(staff)

	return r
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() || len(cfg.GetCORSOrigins()) == 0 {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.GetCORSOrigins()
	}
	return cors.New(corsConfig)
}
