package service

import (
	"context"

	domainevents "tourvisit_backend/internal/events"
	"tourvisit_backend/internal/visits/domain"
	"tourvisit_backend/internal/visits/repository"
	"tourvisit_backend/platform/db"
	"tourvisit_backend/platform/events"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

// SweepResult summarizes one sweep batch.
type SweepResult struct {
	Expired   int
	NoShow    int
	Completed int
	// More is true when the batch was full and another pass is needed.
	More bool
}

// Total returns the number of visits the batch moved.
func (r SweepResult) Total() int {
	return r.Expired + r.NoShow + r.Completed
}

// SweepSite moves the stale visits of one site to their sweep target stage,
// one batch at a time. Each visit is handled in its own transaction; a
// failure on one visit is logged and does not stop the batch.
func (s *Service) SweepSite(ctx context.Context, siteID uuid.UUID, batchSize int) (SweepResult, error) {
	var result SweepResult

	site, err := s.sites.Get(ctx, siteID)
	if err != nil {
		return result, err
	}
	now := s.sites.Now(site)

	stale, err := s.visits.ListStale(ctx, siteID, now, batchSize)
	if err != nil {
		return result, err
	}
	result.More = len(stale) == batchSize

	for _, visit := range stale {
		target, reason, ok := domain.SweepTarget(visit.VisitType, visit.Stage)
		if !ok {
			continue
		}
		if err := s.sweepOne(ctx, visit, target, reason); err != nil {
			s.log.Warn("sweep failed for visit, skipping",
				"visit_id", visit.ID, "stage", visit.Stage, "error", err)
			continue
		}
		switch target {
		case domain.StageExpired:
			result.Expired++
		case domain.StageNoShow:
			result.NoShow++
		case domain.StageCompleted:
			result.Completed++
		}

		s.bus.Publish(ctx, domainevents.VisitStageChanged{
			BaseEvent: events.NewBaseEvent(),
			VisitID:   visit.ID,
			SiteID:    visit.SiteID,
			VisitType: string(visit.VisitType),
			FromStage: string(visit.Stage),
			ToStage:   string(target),
			Reason:    reason,
		})
	}

	if result.Total() > 0 {
		s.log.SweepBatch(siteID, result.Expired, result.NoShow, result.Completed)
		s.bus.Publish(ctx, domainevents.VisitSwept{
			BaseEvent: events.NewBaseEvent(),
			SiteID:    siteID,
			Expired:   result.Expired,
			NoShow:    result.NoShow,
			Completed: result.Completed,
		})
	}

	return result, nil
}

func (s *Service) sweepOne(ctx context.Context, visit repository.Visit, target domain.Stage, reason string) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		visits := s.visits.WithTx(tx)
		if err := visits.UpdateStage(ctx, visit.ID, visit.Stage, target); err != nil {
			return err
		}
		if err := visits.InsertStageHistory(ctx, &repository.StageHistoryEntry{
			VisitID:   visit.ID,
			FromStage: visit.Stage,
			ToStage:   target,
			Reason:    reason,
		}); err != nil {
			return err
		}
		if target == domain.StageCompleted {
			if err := visits.EnsureFeedback(ctx, visit.ID); err != nil {
				return err
			}
		}
		if visit.TourSlotID != nil && releasesCapacity(target) {
			return s.recomputeSlotStage(ctx, tx, *visit.TourSlotID)
		}
		return nil
	})
}

// SweepAllSites sweeps every site concurrently until each site's backlog is
// drained. Site failures are collected by the errgroup; one broken site does
// not stop the others mid-batch.
func (s *Service) SweepAllSites(ctx context.Context, batchSize int) error {
	sites, err := s.sites.List(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, site := range sites {
		siteID := site.ID
		g.Go(func() error {
			for {
				result, err := s.SweepSite(ctx, siteID, batchSize)
				if err != nil {
					return err
				}
				if !result.More {
					return nil
				}
			}
		})
	}

	return g.Wait()
}
