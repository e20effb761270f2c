// Package service implements the scheduling orchestrator: booking, stage
// transitions, the expiry sweep and the supporting visit operations. All
// validation runs before anything is written, and every multi-row write
// happens inside one transaction.
package service

import (
	"context"
	"fmt"
	"time"

	domainevents "tourvisit_backend/internal/events"
	lookupservice "tourvisit_backend/internal/lookups/service"
	"tourvisit_backend/internal/notification"
	personneldomain "tourvisit_backend/internal/personnel/domain"
	personnelrepo "tourvisit_backend/internal/personnel/repository"
	siteservice "tourvisit_backend/internal/sites/service"
	slotdomain "tourvisit_backend/internal/tourslots/domain"
	slotrepo "tourvisit_backend/internal/tourslots/repository"
	"tourvisit_backend/internal/visits/domain"
	"tourvisit_backend/internal/visits/repository"
	"tourvisit_backend/platform/apperr"
	"tourvisit_backend/platform/db"
	"tourvisit_backend/platform/events"
	"tourvisit_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skip2/go-qrcode"
)

// Service coordinates visits across the slot, personnel and notification
// modules.
type Service struct {
	pool      *pgxpool.Pool
	visits    *repository.Repository
	slots     *slotrepo.Repository
	personnel *personnelrepo.Repository
	sites     *siteservice.Service
	lookups   *lookupservice.Service
	outbox    *notification.Outbox
	composer  notification.Composer
	bus       events.Bus
	log       *logger.Logger
}

// New creates the visit service.
func New(
	pool *pgxpool.Pool,
	visits *repository.Repository,
	slots *slotrepo.Repository,
	personnel *personnelrepo.Repository,
	sites *siteservice.Service,
	lookups *lookupservice.Service,
	outbox *notification.Outbox,
	composer notification.Composer,
	bus events.Bus,
	log *logger.Logger,
) *Service {
	return &Service{
		pool:      pool,
		visits:    visits,
		slots:     slots,
		personnel: personnel,
		sites:     sites,
		lookups:   lookups,
		outbox:    outbox,
		composer:  composer,
		bus:       bus,
		log:       log,
	}
}

// ServiceInput is one add-on activity requested with a booking.
type ServiceInput struct {
	ServiceType string
	StartTime   time.Time
	EndTime     time.Time
	Notes       string
}

// AssignmentInput is one requested personnel assignment.
type AssignmentInput struct {
	PersonnelID uuid.UUID
	RoleID      uuid.UUID
}

// BookInput carries a booking request.
type BookInput struct {
	SiteID        uuid.UUID
	VisitType     domain.VisitType
	TourSlotID    *uuid.UUID
	ContactName   string
	ContactEmail  string
	ContactPhone  string
	Purpose       string
	TotalVisitors int
	StartTime     time.Time
	EndTime       time.Time
	Notes         string
	Services      []ServiceInput
	Assignments   []AssignmentInput
	CreatedBy     *uuid.UUID
}

// Book validates and persists a booking. Validation failures reject the
// request before anything is written; the persistence steps share one
// transaction so a failure in any of them leaves no partial booking behind.
func (s *Service) Book(ctx context.Context, in BookInput) (*repository.Visit, error) {
	site, err := s.sites.Get(ctx, in.SiteID)
	if err != nil {
		return nil, err
	}

	if err := s.validateBooking(ctx, in); err != nil {
		s.log.BookingRejected(in.SiteID, string(in.VisitType), err.Error())
		return nil, err
	}

	entryStage := domain.StagePending
	if in.VisitType == domain.TypeTour {
		// Slot bookings are pre-approved by the published slot.
		entryStage = domain.StageAccepted
	}

	visit := &repository.Visit{
		SiteID:        in.SiteID,
		VisitType:     in.VisitType,
		Stage:         entryStage,
		TourSlotID:    in.TourSlotID,
		ContactName:   in.ContactName,
		ContactEmail:  in.ContactEmail,
		ContactPhone:  in.ContactPhone,
		Purpose:       in.Purpose,
		TotalVisitors: in.TotalVisitors,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		Notes:         in.Notes,
		CreatedBy:     in.CreatedBy,
	}

	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		visits := s.visits.WithTx(tx)
		slots := s.slots.WithTx(tx)
		personnel := s.personnel.WithTx(tx)

		if in.VisitType == domain.TypeTour {
			// The row lock serializes concurrent bookings on the slot so the
			// capacity check and the insert are atomic.
			slot, err := slots.GetByIDForUpdate(ctx, *in.TourSlotID)
			if err != nil {
				return err
			}
			if slot.SiteID != in.SiteID {
				return apperr.Validation("tour slot does not belong to the requested site")
			}
			booked, err := slots.BookedGuestSize(ctx, slot.ID)
			if err != nil {
				return err
			}
			if violations := slotdomain.CheckAvailability(slot.Stage, slot.MaxGuestSize, booked, in.TotalVisitors); len(violations) > 0 {
				return apperr.Conflict("tour slot cannot take this booking").WithDetails(violations)
			}

			visit.StartTime = slot.StartTime
			visit.EndTime = slot.EndTime
			if err := validateServiceWindows(in.Services, visit.StartTime, visit.EndTime); err != nil {
				return err
			}

			if err := visits.Create(ctx, visit); err != nil {
				return err
			}
			newStage := slotdomain.DeriveStage(slot.Stage, booked+in.TotalVisitors, slot.MaxGuestSize)
			if newStage != slot.Stage {
				if err := slots.UpdateStage(ctx, slot.ID, newStage); err != nil {
					return err
				}
			}
		} else {
			if err := visits.Create(ctx, visit); err != nil {
				return err
			}
		}

		if err := visits.InsertStageHistory(ctx, &repository.StageHistoryEntry{
			VisitID:   visit.ID,
			FromStage: visit.Stage,
			ToStage:   visit.Stage,
			Reason:    "created",
			ChangedBy: in.CreatedBy,
		}); err != nil {
			return err
		}

		if len(in.Services) > 0 {
			services := make([]repository.VisitService, 0, len(in.Services))
			for _, svc := range in.Services {
				services = append(services, repository.VisitService{
					VisitID:     visit.ID,
					ServiceType: svc.ServiceType,
					StartTime:   svc.StartTime,
					EndTime:     svc.EndTime,
					Notes:       svc.Notes,
				})
			}
			if err := visits.InsertServices(ctx, services); err != nil {
				return err
			}
		}

		if len(in.Assignments) > 0 {
			scope := personneldomain.Scope{VisitID: &visit.ID}
			if err := s.checkAndInsertAssignments(ctx, personnel, in.Assignments, scope, visit.StartTime, visit.EndTime); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, domainevents.VisitBooked{
		BaseEvent:     events.NewBaseEvent(),
		VisitID:       visit.ID,
		SiteID:        visit.SiteID,
		VisitType:     string(visit.VisitType),
		Stage:         string(visit.Stage),
		TourSlotID:    visit.TourSlotID,
		TotalVisitors: visit.TotalVisitors,
		Start:         visit.StartTime,
		End:           visit.EndTime,
	})

	if visit.ContactEmail != "" {
		msg := s.composer.BookingConfirmation(visit.ContactName, site.Name,
			string(visit.VisitType), visit.StartTime, visit.EndTime, visit.TotalVisitors)
		msg.Recipient = visit.ContactEmail
		if err := s.outbox.Enqueue(ctx, msg); err != nil {
			s.log.Warn("failed to enqueue booking confirmation", "visit_id", visit.ID, "error", err)
		}
	}

	return visit, nil
}

func (s *Service) validateBooking(ctx context.Context, in BookInput) error {
	if !domain.IsKnownVisitType(in.VisitType) {
		return apperr.Validation(fmt.Sprintf("unknown visit type %q", in.VisitType))
	}
	if in.TotalVisitors <= 0 {
		return apperr.Validation("total visitors must be positive")
	}
	if in.VisitType == domain.TypeTour {
		if in.TourSlotID == nil {
			return apperr.Validation("tour bookings require a tour slot")
		}
	} else {
		if in.TourSlotID != nil {
			return apperr.Validation("only tour bookings may reference a tour slot")
		}
		if !in.EndTime.After(in.StartTime) {
			return apperr.Validation("visit end must be after its start")
		}
	}

	if err := s.lookups.Validate(ctx, lookupservice.CategoryVisitPurpose, in.Purpose); err != nil {
		return err
	}
	for _, svc := range in.Services {
		if err := s.lookups.Validate(ctx, lookupservice.CategoryServiceType, svc.ServiceType); err != nil {
			return err
		}
	}
	if in.VisitType != domain.TypeTour {
		// Tour windows come from the slot; those are checked once the slot
		// row is locked.
		if err := validateServiceWindows(in.Services, in.StartTime, in.EndTime); err != nil {
			return err
		}
	}

	batch := make([]personneldomain.AssignmentRequest, 0, len(in.Assignments))
	for _, a := range in.Assignments {
		batch = append(batch, personneldomain.AssignmentRequest{PersonnelID: a.PersonnelID, RoleID: a.RoleID})
	}
	return personneldomain.ValidateBatch(batch)
}

// validateServiceWindows checks each add-on service window is well formed
// and nested inside the visit window.
func validateServiceWindows(services []ServiceInput, start, end time.Time) error {
	for _, svc := range services {
		if !svc.EndTime.After(svc.StartTime) {
			return apperr.Validation("service end must be after its start")
		}
		if svc.StartTime.Before(start) || svc.EndTime.After(end) {
			return apperr.Validation("service window must fall within the visit window")
		}
	}
	return nil
}

// checkAndInsertAssignments runs the conflict check for availability-checked
// roles and inserts the batch. Runs inside the caller's transaction.
func (s *Service) checkAndInsertAssignments(
	ctx context.Context,
	personnel *personnelrepo.Repository,
	inputs []AssignmentInput,
	scope personneldomain.Scope,
	start, end time.Time,
) error {
	roleIDs := make([]uuid.UUID, 0, len(inputs))
	batch := make([]personneldomain.AssignmentRequest, 0, len(inputs))
	for _, in := range inputs {
		roleIDs = append(roleIDs, in.RoleID)
		batch = append(batch, personneldomain.AssignmentRequest{PersonnelID: in.PersonnelID, RoleID: in.RoleID})
	}
	roles, err := personnel.GetRolesByIDs(ctx, roleIDs)
	if err != nil {
		return err
	}

	checkedRoles := make(map[uuid.UUID]bool, len(roles))
	for id, role := range roles {
		checkedRoles[id] = role.CheckAvailability
	}
	if dups := personneldomain.FindDuplicateRoles(batch, checkedRoles); len(dups) > 0 {
		return personneldomain.DuplicateRoleError(dups)
	}

	var checked []uuid.UUID
	for _, in := range inputs {
		if checkedRoles[in.RoleID] {
			checked = append(checked, in.PersonnelID)
		}
	}
	if len(checked) > 0 {
		busy, err := personnel.BusyIntervals(ctx, checked, start, end, scope)
		if err != nil {
			return err
		}
		if conflicts := personneldomain.FindConflicts(start, end, busy); len(conflicts) > 0 {
			return personneldomain.ConflictError(conflicts)
		}
	}

	assignments := make([]personnelrepo.Assignment, 0, len(inputs))
	for _, in := range inputs {
		assignments = append(assignments, personnelrepo.Assignment{
			PersonnelID:    in.PersonnelID,
			RoleID:         in.RoleID,
			VisitID:        scope.VisitID,
			VisitServiceID: scope.VisitServiceID,
			TourSlotID:     scope.TourSlotID,
			StartTime:      start,
			EndTime:        end,
		})
	}
	return personnel.InsertAssignments(ctx, assignments)
}

// UpdateInput carries an edit to an existing booking. Services and
// assignments replace the stored sets wholesale.
type UpdateInput struct {
	ContactName   string
	ContactEmail  string
	ContactPhone  string
	Purpose       string
	TotalVisitors int
	StartTime     time.Time
	EndTime       time.Time
	Notes         string
	Services      []ServiceInput
	Assignments   []AssignmentInput
	UpdatedBy     *uuid.UUID
}

// Update edits a booking that has not reached check-in yet. The same checks
// as Book apply: lookups and duplicate roles up front, slot capacity and
// personnel conflicts under the transaction.
func (s *Service) Update(ctx context.Context, visitID uuid.UUID, in UpdateInput) (*repository.Visit, error) {
	visit, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if visit.Stage != domain.StagePending && visit.Stage != domain.StageAccepted {
		return nil, apperr.Validation("only pending or accepted visits can be edited")
	}

	if in.TotalVisitors <= 0 {
		return nil, apperr.Validation("total visitors must be positive")
	}
	if visit.VisitType != domain.TypeTour && !in.EndTime.After(in.StartTime) {
		return nil, apperr.Validation("visit end must be after its start")
	}
	if err := s.lookups.Validate(ctx, lookupservice.CategoryVisitPurpose, in.Purpose); err != nil {
		return nil, err
	}
	for _, svc := range in.Services {
		if err := s.lookups.Validate(ctx, lookupservice.CategoryServiceType, svc.ServiceType); err != nil {
			return nil, err
		}
	}
	if visit.VisitType != domain.TypeTour {
		if err := validateServiceWindows(in.Services, in.StartTime, in.EndTime); err != nil {
			return nil, err
		}
	}
	batch := make([]personneldomain.AssignmentRequest, 0, len(in.Assignments))
	for _, a := range in.Assignments {
		batch = append(batch, personneldomain.AssignmentRequest{PersonnelID: a.PersonnelID, RoleID: a.RoleID})
	}
	if err := personneldomain.ValidateBatch(batch); err != nil {
		return nil, err
	}

	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		visits := s.visits.WithTx(tx)
		slots := s.slots.WithTx(tx)
		personnel := s.personnel.WithTx(tx)

		start, end := in.StartTime, in.EndTime
		if visit.VisitType == domain.TypeTour {
			slot, err := slots.GetByIDForUpdate(ctx, *visit.TourSlotID)
			if err != nil {
				return err
			}
			booked, err := slots.BookedGuestSize(ctx, slot.ID)
			if err != nil {
				return err
			}
			// The current sum includes this visit; the capacity check only
			// concerns the other bookings plus the new guest count.
			others := booked - visit.TotalVisitors
			if violations := slotdomain.CheckAvailability(slotdomain.SlotActive, slot.MaxGuestSize, others, in.TotalVisitors); len(violations) > 0 {
				return apperr.Conflict("tour slot cannot take this booking").WithDetails(violations)
			}
			start, end = slot.StartTime, slot.EndTime
			if err := validateServiceWindows(in.Services, start, end); err != nil {
				return err
			}
		}

		visit.ContactName = in.ContactName
		visit.ContactEmail = in.ContactEmail
		visit.ContactPhone = in.ContactPhone
		visit.Purpose = in.Purpose
		visit.TotalVisitors = in.TotalVisitors
		visit.StartTime = start
		visit.EndTime = end
		visit.Notes = in.Notes
		if err := visits.Update(ctx, visit); err != nil {
			return err
		}

		if err := visits.InsertStageHistory(ctx, &repository.StageHistoryEntry{
			VisitID:   visit.ID,
			FromStage: visit.Stage,
			ToStage:   visit.Stage,
			Reason:    "updated",
			ChangedBy: in.UpdatedBy,
		}); err != nil {
			return err
		}

		if err := visits.DeleteServices(ctx, visit.ID); err != nil {
			return err
		}
		if len(in.Services) > 0 {
			services := make([]repository.VisitService, 0, len(in.Services))
			for _, svc := range in.Services {
				services = append(services, repository.VisitService{
					VisitID:     visit.ID,
					ServiceType: svc.ServiceType,
					StartTime:   svc.StartTime,
					EndTime:     svc.EndTime,
					Notes:       svc.Notes,
				})
			}
			if err := visits.InsertServices(ctx, services); err != nil {
				return err
			}
		}

		scope := personneldomain.Scope{VisitID: &visit.ID}
		if err := personnel.SoftDeleteByScope(ctx, scope); err != nil {
			return err
		}
		if len(in.Assignments) > 0 {
			if err := s.checkAndInsertAssignments(ctx, personnel, in.Assignments, scope, visit.StartTime, visit.EndTime); err != nil {
				return err
			}
		}

		if visit.TourSlotID != nil {
			return s.recomputeSlotStage(ctx, tx, *visit.TourSlotID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("visit updated", "visit_id", visit.ID, "total_visitors", visit.TotalVisitors)
	return visit, nil
}

// ChangeStage moves a visit through the stage machine.
func (s *Service) ChangeStage(ctx context.Context, visitID uuid.UUID, target domain.Stage, reason string, actor *uuid.UUID) (*repository.Visit, error) {
	visit, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}
	site, err := s.sites.Get(ctx, visit.SiteID)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateTransition(domain.TransitionRequest{
		Current: visit.Stage,
		Target:  target,
		Type:    visit.VisitType,
		Start:   visit.StartTime,
		End:     visit.EndTime,
		Now:     s.sites.Now(site),
	}); err != nil {
		return nil, err
	}
	if target == visit.Stage {
		// Pending resubmission: nothing to persist.
		return visit, nil
	}

	from := visit.Stage
	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		visits := s.visits.WithTx(tx)
		if err := visits.UpdateStage(ctx, visit.ID, from, target); err != nil {
			return err
		}
		if err := visits.InsertStageHistory(ctx, &repository.StageHistoryEntry{
			VisitID:   visit.ID,
			FromStage: from,
			ToStage:   target,
			Reason:    reason,
			ChangedBy: actor,
		}); err != nil {
			return err
		}
		if target == domain.StageCompleted {
			// The empty record is what the visitor's feedback submission
			// later fills in.
			if err := visits.EnsureFeedback(ctx, visit.ID); err != nil {
				return err
			}
		}
		if visit.TourSlotID != nil && releasesCapacity(target) {
			return s.recomputeSlotStage(ctx, tx, *visit.TourSlotID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	visit.Stage = target
	s.log.StageChanged(visit.ID, string(from), string(target))
	s.bus.Publish(ctx, domainevents.VisitStageChanged{
		BaseEvent:   events.NewBaseEvent(),
		VisitID:     visit.ID,
		SiteID:      visit.SiteID,
		VisitType:   string(visit.VisitType),
		FromStage:   string(from),
		ToStage:     string(target),
		Reason:      reason,
		PersonnelID: actor,
	})

	if visit.ContactEmail != "" && notifiableTransition(target) {
		msg := s.composer.StageChanged(visit.ContactName, site.Name,
			string(from), string(target), reason, visit.StartTime)
		msg.Recipient = visit.ContactEmail
		if err := s.outbox.Enqueue(ctx, msg); err != nil {
			s.log.Warn("failed to enqueue stage notification", "visit_id", visit.ID, "error", err)
		}
	}

	return visit, nil
}

// releasesCapacity reports whether entering the stage frees the guests'
// seats on the referenced tour slot.
func releasesCapacity(stage domain.Stage) bool {
	switch stage {
	case domain.StageCancelled, domain.StageDeclined, domain.StageExpired:
		return true
	}
	return false
}

func notifiableTransition(stage domain.Stage) bool {
	switch stage {
	case domain.StageAccepted, domain.StageDeclined, domain.StageCancelled,
		domain.StageCompleted, domain.StageExpired:
		return true
	}
	return false
}

// recomputeSlotStage refreshes a slot's occupancy-derived stage inside the
// caller's transaction. INACTIVE is an operator override and stays put.
func (s *Service) recomputeSlotStage(ctx context.Context, tx pgx.Tx, slotID uuid.UUID) error {
	slots := s.slots.WithTx(tx)
	slot, err := slots.GetByIDForUpdate(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.Stage == slotdomain.SlotInactive {
		return nil
	}
	booked, err := slots.BookedGuestSize(ctx, slot.ID)
	if err != nil {
		return err
	}
	newStage := slotdomain.DeriveStage(slotdomain.SlotActive, booked, slot.MaxGuestSize)
	if newStage != slot.Stage {
		return slots.UpdateStage(ctx, slot.ID, newStage)
	}
	return nil
}

// Get returns one visit.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*repository.Visit, error) {
	return s.visits.GetByID(ctx, id)
}

// List returns visits matching the filter.
func (s *Service) List(ctx context.Context, f repository.ListFilter) ([]repository.Visit, error) {
	return s.visits.List(ctx, f)
}

// History returns a visit's stage history.
func (s *Service) History(ctx context.Context, visitID uuid.UUID) ([]repository.StageHistoryEntry, error) {
	if _, err := s.visits.GetByID(ctx, visitID); err != nil {
		return nil, err
	}
	return s.visits.ListStageHistory(ctx, visitID)
}

// Services returns the add-on services of a visit.
func (s *Service) Services(ctx context.Context, visitID uuid.UUID) ([]repository.VisitService, error) {
	if _, err := s.visits.GetByID(ctx, visitID); err != nil {
		return nil, err
	}
	return s.visits.ListServices(ctx, visitID)
}

// Delete soft-deletes a visit and retires its assignments.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	visit, err := s.visits.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.visits.WithTx(tx).SoftDelete(ctx, visit.ID); err != nil {
			return err
		}
		if err := s.personnel.WithTx(tx).SoftDeleteByScope(ctx, personneldomain.Scope{VisitID: &visit.ID}); err != nil {
			return err
		}
		if visit.TourSlotID != nil {
			return s.recomputeSlotStage(ctx, tx, *visit.TourSlotID)
		}
		return nil
	})
}

// SubmitFeedback records feedback for a finished visit.
func (s *Service) SubmitFeedback(ctx context.Context, visitID uuid.UUID, rating int, comments string) (*repository.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	visit, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if visit.Stage != domain.StageCompleted && visit.Stage != domain.StageClosed {
		return nil, apperr.Validation("feedback can only be submitted for completed visits")
	}

	fb := &repository.Feedback{VisitID: visitID, Rating: &rating, Comments: comments}
	if err := s.visits.UpsertFeedback(ctx, fb); err != nil {
		return nil, err
	}
	return fb, nil
}

// Feedback returns the feedback of a visit.
func (s *Service) Feedback(ctx context.Context, visitID uuid.UUID) (*repository.Feedback, error) {
	return s.visits.GetFeedback(ctx, visitID)
}

// CheckInPass renders the QR code presented at the entrance. Only visits
// that can still check in get a pass.
func (s *Service) CheckInPass(ctx context.Context, visitID uuid.UUID) ([]byte, error) {
	visit, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if visit.Stage != domain.StageAccepted && visit.Stage != domain.StageCheckIn {
		return nil, apperr.Validation("check-in pass is only available for accepted visits")
	}

	payload := fmt.Sprintf("tourvisit:%s:%s", visit.ID, visit.StartTime.UTC().Format(time.RFC3339))
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to render check-in pass", err)
	}
	return png, nil
}
