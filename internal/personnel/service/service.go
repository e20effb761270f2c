// Package service implements personnel management and assignment batches.
package service

import (
	"context"
	"time"

	domainevents "tourvisit_backend/internal/events"
	"tourvisit_backend/internal/personnel/domain"
	"tourvisit_backend/internal/personnel/repository"
	"tourvisit_backend/platform/apperr"
	"tourvisit_backend/platform/db"
	"tourvisit_backend/platform/events"
	"tourvisit_backend/platform/logger"
	"tourvisit_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nyaruka/phonenumbers"
)

// Service coordinates personnel and their assignments.
type Service struct {
	pool     *pgxpool.Pool
	repo     *repository.Repository
	bus      events.Bus
	log      *logger.Logger
	validate *validator.Validator
}

// New creates the personnel service.
func New(pool *pgxpool.Pool, repo *repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{pool: pool, repo: repo, bus: bus, log: log, validate: validator.New()}
}

// defaultPhoneRegion is used when a phone number has no country prefix.
const defaultPhoneRegion = "NL"

// CreateInput carries a new personnel member.
type CreateInput struct {
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Email     string `validate:"required,email"`
	Phone     string
}

// Create stores a personnel member with a normalized E.164 phone number.
func (s *Service) Create(ctx context.Context, in CreateInput) (*repository.Personnel, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	phone, err := normalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}

	p := &repository.Personnel{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     phone,
		Active:    true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func normalizePhone(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	parsed, err := phonenumbers.Parse(raw, defaultPhoneRegion)
	if err != nil {
		return "", apperr.Validation("invalid phone number")
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", apperr.Validation("invalid phone number")
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

// Get returns one personnel member.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*repository.Personnel, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns active personnel.
func (s *Service) List(ctx context.Context) ([]repository.Personnel, error) {
	return s.repo.List(ctx)
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]repository.Role, error) {
	return s.repo.ListRoles(ctx)
}

// AssignInput carries an assignment batch for one scope.
type AssignInput struct {
	Scope       domain.Scope
	StartTime   time.Time
	EndTime     time.Time
	Assignments []domain.AssignmentRequest
	// Replace retires the scope's existing assignments first.
	Replace bool
}

// Assign validates and stores an assignment batch. The duplicate-role check
// and the availability conflict check both run before anything is written;
// retiring old assignments and inserting the new batch share one
// transaction.
func (s *Service) Assign(ctx context.Context, in AssignInput) error {
	if err := in.Scope.Validate(); err != nil {
		return err
	}
	if len(in.Assignments) == 0 {
		return apperr.Validation("assignment batch is empty")
	}
	if !in.EndTime.After(in.StartTime) {
		return apperr.Validation("assignment end must be after its start")
	}
	if err := domain.ValidateBatch(in.Assignments); err != nil {
		return err
	}

	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		repo := s.repo.WithTx(tx)

		roleIDs := make([]uuid.UUID, 0, len(in.Assignments))
		for _, a := range in.Assignments {
			roleIDs = append(roleIDs, a.RoleID)
		}
		roles, err := repo.GetRolesByIDs(ctx, roleIDs)
		if err != nil {
			return err
		}

		checkedRoles := make(map[uuid.UUID]bool, len(roles))
		for id, role := range roles {
			checkedRoles[id] = role.CheckAvailability
		}
		if dups := domain.FindDuplicateRoles(in.Assignments, checkedRoles); len(dups) > 0 {
			return domain.DuplicateRoleError(dups)
		}

		var checked []uuid.UUID
		for _, a := range in.Assignments {
			if checkedRoles[a.RoleID] {
				checked = append(checked, a.PersonnelID)
			}
		}
		if len(checked) > 0 {
			busy, err := repo.BusyIntervals(ctx, checked, in.StartTime, in.EndTime, in.Scope)
			if err != nil {
				return err
			}
			if conflicts := domain.FindConflicts(in.StartTime, in.EndTime, busy); len(conflicts) > 0 {
				return domain.ConflictError(conflicts)
			}
		}

		if in.Replace {
			if err := repo.SoftDeleteByScope(ctx, in.Scope); err != nil {
				return err
			}
		}

		assignments := make([]repository.Assignment, 0, len(in.Assignments))
		for _, a := range in.Assignments {
			assignments = append(assignments, repository.Assignment{
				PersonnelID:    a.PersonnelID,
				RoleID:         a.RoleID,
				VisitID:        in.Scope.VisitID,
				VisitServiceID: in.Scope.VisitServiceID,
				TourSlotID:     in.Scope.TourSlotID,
				StartTime:      in.StartTime,
				EndTime:        in.EndTime,
			})
		}
		return repo.InsertAssignments(ctx, assignments)
	})
	if err != nil {
		return err
	}

	personnelIDs := make([]uuid.UUID, 0, len(in.Assignments))
	for _, a := range in.Assignments {
		personnelIDs = append(personnelIDs, a.PersonnelID)
	}
	s.bus.Publish(ctx, domainevents.PersonnelAssigned{
		BaseEvent:    events.NewBaseEvent(),
		PersonnelIDs: personnelIDs,
		VisitID:      in.Scope.VisitID,
		TourSlotID:   in.Scope.TourSlotID,
		Start:        in.StartTime,
		End:          in.EndTime,
	})

	return nil
}

// ListByScope returns the live assignments of a scope.
func (s *Service) ListByScope(ctx context.Context, scope domain.Scope) ([]repository.Assignment, error) {
	return s.repo.ListByScope(ctx, scope)
}

// Availability returns the commitments blocking the given personnel in the
// window, for roles with the availability check enabled.
func (s *Service) Availability(ctx context.Context, personnelIDs []uuid.UUID, start, end time.Time) ([]domain.Conflict, error) {
	if len(personnelIDs) == 0 {
		return nil, apperr.Validation("at least one personnel id is required")
	}
	if !end.After(start) {
		return nil, apperr.Validation("window end must be after its start")
	}
	busy, err := s.repo.BusyIntervals(ctx, personnelIDs, start, end, domain.Scope{})
	if err != nil {
		return nil, err
	}
	return domain.FindConflicts(start, end, busy), nil
}
