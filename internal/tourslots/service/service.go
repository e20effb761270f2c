// Package service implements tour slot generation, availability checks and
// operator stage overrides.
package service

import (
	"context"
	"time"

	domainevents "tourvisit_backend/internal/events"
	personneldomain "tourvisit_backend/internal/personnel/domain"
	personnelrepo "tourvisit_backend/internal/personnel/repository"
	siteservice "tourvisit_backend/internal/sites/service"
	"tourvisit_backend/internal/tourslots/domain"
	"tourvisit_backend/internal/tourslots/repository"
	"tourvisit_backend/platform/apperr"
	"tourvisit_backend/platform/db"
	"tourvisit_backend/platform/events"
	"tourvisit_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service coordinates tour slots.
type Service struct {
	pool      *pgxpool.Pool
	slots     *repository.Repository
	personnel *personnelrepo.Repository
	sites     *siteservice.Service
	bus       events.Bus
	log       *logger.Logger
}

// New creates the tour slot service.
func New(
	pool *pgxpool.Pool,
	slots *repository.Repository,
	personnel *personnelrepo.Repository,
	sites *siteservice.Service,
	bus events.Bus,
	log *logger.Logger,
) *Service {
	return &Service{pool: pool, slots: slots, personnel: personnel, sites: sites, bus: bus, log: log}
}

// GenerateInput carries a slot generation request. RangeEnd is exclusive.
type GenerateInput struct {
	SiteID       uuid.UUID
	ServiceID    uuid.UUID
	RangeStart   time.Time
	RangeEnd     time.Time
	IntervalMin  int
	MaxGuestSize int
}

// Generate creates the slots for a date range. The whole batch is inserted
// in one transaction; a range overlapping already-generated slots is
// rejected so re-running a generation cannot double-book a day.
func (s *Service) Generate(ctx context.Context, in GenerateInput) ([]repository.TourSlot, error) {
	if in.MaxGuestSize <= 0 {
		return nil, apperr.Validation("max guest size must be positive")
	}

	site, err := s.sites.Get(ctx, in.SiteID)
	if err != nil {
		return nil, err
	}

	windows, err := domain.GenerateWindows(domain.GenerateParams{
		RangeStart:  in.RangeStart,
		RangeEnd:    in.RangeEnd,
		OpenMinute:  site.OpenMinute,
		CloseMinute: site.CloseMinute,
		IntervalMin: in.IntervalMin,
		Granularity: site.SlotGranularityMinutes,
		Location:    s.sites.Location(site),
	})
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, apperr.Validation("date range produces no slots inside the operating window")
	}

	slots := make([]repository.TourSlot, 0, len(windows))
	for _, w := range windows {
		slots = append(slots, repository.TourSlot{
			SiteID:       in.SiteID,
			ServiceID:    in.ServiceID,
			StartTime:    w.Start,
			EndTime:      w.End,
			MaxGuestSize: in.MaxGuestSize,
			Stage:        domain.SlotActive,
		})
	}

	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		txSlots := s.slots.WithTx(tx)
		overlapping, err := txSlots.HasOverlapping(ctx, in.SiteID, in.ServiceID,
			windows[0].Start, windows[len(windows)-1].End)
		if err != nil {
			return err
		}
		if overlapping {
			return apperr.Conflict("slots already exist in the requested range")
		}
		return txSlots.InsertBatch(ctx, slots)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("tour slots generated",
		"site_id", in.SiteID, "service_id", in.ServiceID, "count", len(slots))
	s.bus.Publish(ctx, domainevents.TourSlotsGenerated{
		BaseEvent:  events.NewBaseEvent(),
		SiteID:     in.SiteID,
		ServiceID:  in.ServiceID,
		RangeStart: windows[0].Start,
		RangeEnd:   windows[len(windows)-1].End,
		Count:      len(slots),
	})

	return slots, nil
}

// Availability reports the live occupancy of a slot.
type Availability struct {
	Slot       *repository.TourSlot
	Booked     int
	Remaining  int
	Violations []domain.Violation
}

// CheckAvailability recomputes a slot's occupancy and the violations a
// booking of requestedGuests would hit. Read-only; the booking path repeats
// the check under a row lock.
func (s *Service) CheckAvailability(ctx context.Context, slotID uuid.UUID, requestedGuests int) (*Availability, error) {
	if requestedGuests <= 0 {
		return nil, apperr.Validation("requested guests must be positive")
	}
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	booked, err := s.slots.BookedGuestSize(ctx, slot.ID)
	if err != nil {
		return nil, err
	}

	remaining := slot.MaxGuestSize - booked
	if remaining < 0 {
		remaining = 0
	}
	return &Availability{
		Slot:       slot,
		Booked:     booked,
		Remaining:  remaining,
		Violations: domain.CheckAvailability(slot.Stage, slot.MaxGuestSize, booked, requestedGuests),
	}, nil
}

// SetStage applies an operator stage override. A slot with booked guests
// cannot be deactivated; deactivating an empty slot retires its guide
// assignments so the guides become available again.
func (s *Service) SetStage(ctx context.Context, slotID uuid.UUID, stage domain.SlotStage) (*repository.TourSlot, error) {
	if !domain.IsKnownSlotStage(stage) {
		return nil, apperr.Validation("unknown slot stage " + string(stage))
	}

	var slot *repository.TourSlot
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		txSlots := s.slots.WithTx(tx)
		var err error
		slot, err = txSlots.GetByIDForUpdate(ctx, slotID)
		if err != nil {
			return err
		}
		if stage == domain.SlotInactive {
			booked, err := txSlots.BookedGuestSize(ctx, slot.ID)
			if err != nil {
				return err
			}
			if booked > 0 {
				return apperr.Conflict("slot has bookings and cannot be deactivated")
			}
		}
		if err := txSlots.UpdateStage(ctx, slot.ID, stage); err != nil {
			return err
		}
		if stage == domain.SlotInactive {
			return s.personnel.WithTx(tx).SoftDeleteByScope(ctx,
				personneldomain.Scope{TourSlotID: &slot.ID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slot.Stage = stage
	return slot, nil
}

// Get returns one slot.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*repository.TourSlot, error) {
	return s.slots.GetByID(ctx, id)
}

// List returns the slots matching the filter.
func (s *Service) List(ctx context.Context, f repository.ListFilter) ([]repository.TourSlot, error) {
	return s.slots.List(ctx, f)
}

// Delete soft-deletes a slot and retires its assignments.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.slots.WithTx(tx).SoftDelete(ctx, id); err != nil {
			return err
		}
		return s.personnel.WithTx(tx).SoftDeleteByScope(ctx,
			personneldomain.Scope{TourSlotID: &id})
	})
}
