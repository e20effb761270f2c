package scheduler

import (
	"context"
	"time"

	visitservice "tourvisit_backend/internal/visits/service"
	"tourvisit_backend/platform/config"
	"tourvisit_backend/platform/logger"
)

// Sweeper runs the periodic visit expiry sweep. It runs in-process next to
// the worker so stale visits are moved even when Redis is unavailable.
type Sweeper struct {
	visits    *visitservice.Service
	interval  time.Duration
	batchSize int
	log       *logger.Logger
}

// NewSweeper creates the sweeper from config.
func NewSweeper(cfg config.SweepConfig, visits *visitservice.Service, log *logger.Logger) *Sweeper {
	return &Sweeper{
		visits:    visits,
		interval:  cfg.GetSweepInterval(),
		batchSize: cfg.GetSweepBatchSize(),
		log:       log,
	}
}

// Run sweeps immediately and then on every tick until the context is
// cancelled. A failing pass is logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("visit expiry sweep started", "interval", s.interval, "batch_size", s.batchSize)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("visit expiry sweep stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if err := s.visits.SweepAllSites(ctx, s.batchSize); err != nil {
		s.log.Error("visit expiry sweep pass failed", "error", err)
	}
}
