// Package repository provides data access for personnel, roles and
// assignments.
package repository

import (
	"context"
	"errors"
	"time"

	"tourvisit_backend/internal/personnel/domain"
	"tourvisit_backend/platform/apperr"
	"tourvisit_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Personnel is a staff member who can be assigned to visits and tours.
type Personnel struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role is a function a personnel member can perform on an assignment.
type Role struct {
	ID                uuid.UUID
	Name              string
	CheckAvailability bool
}

// Assignment binds a personnel member with a role to exactly one scope.
// Start and end are denormalized from the scope at insert time so the busy
// query never needs to join three tables.
type Assignment struct {
	ID             uuid.UUID
	PersonnelID    uuid.UUID
	RoleID         uuid.UUID
	VisitID        *uuid.UUID
	VisitServiceID *uuid.UUID
	TourSlotID     *uuid.UUID
	StartTime      time.Time
	EndTime        time.Time
	CreatedAt      time.Time
	DeletedAt      *time.Time
}

// Repository handles personnel persistence.
type Repository struct {
	q db.Querier
}

// New creates a personnel repository on the given querier, which may be a
// pool or an open transaction.
func New(q db.Querier) *Repository {
	return &Repository{q: q}
}

// WithTx returns a repository bound to the transaction.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{q: tx}
}

// GetByID fetches one personnel member.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Personnel, error) {
	var p Personnel
	err := r.q.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, phone, active, created_at, updated_at
		FROM personnel WHERE id = $1`, id).
		Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("personnel not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load personnel", err)
	}
	return &p, nil
}

// Create inserts a personnel member.
func (r *Repository) Create(ctx context.Context, p *Personnel) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO personnel (id, first_name, last_name, email, phone, active)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.FirstName, p.LastName, p.Email, p.Phone, p.Active)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to create personnel", err)
	}
	return nil
}

// List returns active personnel ordered by name.
func (r *Repository) List(ctx context.Context) ([]Personnel, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, first_name, last_name, email, phone, active, created_at, updated_at
		FROM personnel WHERE active = true ORDER BY last_name, first_name`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list personnel", err)
	}
	defer rows.Close()

	var out []Personnel
	for rows.Next() {
		var p Personnel
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone,
			&p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan personnel", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetRolesByIDs loads the referenced roles, keyed by ID. A missing role is a
// validation error since role IDs come from client input.
func (r *Repository) GetRolesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Role, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, name, check_availability FROM roles WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load roles", err)
	}
	defer rows.Close()

	roles := make(map[uuid.UUID]Role, len(ids))
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CheckAvailability); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan role", err)
		}
		roles[role.ID] = role
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load roles", err)
	}

	for _, id := range ids {
		if _, ok := roles[id]; !ok {
			return nil, apperr.Validation("unknown role " + id.String())
		}
	}
	return roles, nil
}

// ListRoles returns all roles.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, check_availability FROM roles ORDER BY name`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list roles", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CheckAvailability); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan role", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// InsertAssignments persists an assignment batch. Callers run it inside the
// booking transaction.
func (r *Repository) InsertAssignments(ctx context.Context, assignments []Assignment) error {
	for i := range assignments {
		if assignments[i].ID == uuid.Nil {
			assignments[i].ID = uuid.New()
		}
		a := assignments[i]
		_, err := r.q.Exec(ctx, `
			INSERT INTO personnel_assignments
				(id, personnel_id, role_id, visit_id, visit_service_id, tour_slot_id, start_time, end_time)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			a.ID, a.PersonnelID, a.RoleID, a.VisitID, a.VisitServiceID, a.TourSlotID, a.StartTime, a.EndTime)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to insert assignment", err)
		}
	}
	return nil
}

// SoftDeleteByScope retires all live assignments attached to the scope.
// Reassignment inserts fresh rows afterwards so history is preserved.
func (r *Repository) SoftDeleteByScope(ctx context.Context, scope domain.Scope) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	_, err := r.q.Exec(ctx, `
		UPDATE personnel_assignments SET deleted_at = now()
		WHERE deleted_at IS NULL
		  AND ($1::uuid IS NULL OR visit_id = $1)
		  AND ($2::uuid IS NULL OR visit_service_id = $2)
		  AND ($3::uuid IS NULL OR tour_slot_id = $3)`,
		scope.VisitID, scope.VisitServiceID, scope.TourSlotID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to retire assignments", err)
	}
	return nil
}

// ListByScope returns the live assignments of a scope.
func (r *Repository) ListByScope(ctx context.Context, scope domain.Scope) ([]Assignment, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, personnel_id, role_id, visit_id, visit_service_id, tour_slot_id,
		       start_time, end_time, created_at, deleted_at
		FROM personnel_assignments
		WHERE deleted_at IS NULL
		  AND ($1::uuid IS NULL OR visit_id = $1)
		  AND ($2::uuid IS NULL OR visit_service_id = $2)
		  AND ($3::uuid IS NULL OR tour_slot_id = $3)
		ORDER BY created_at`,
		scope.VisitID, scope.VisitServiceID, scope.TourSlotID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list assignments", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.PersonnelID, &a.RoleID, &a.VisitID, &a.VisitServiceID,
			&a.TourSlotID, &a.StartTime, &a.EndTime, &a.CreatedAt, &a.DeletedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan assignment", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// BusyIntervals returns the existing commitments of the given personnel that
// overlap [start, end] under the inclusive rule, considering only roles with
// the availability check enabled. The exclude scope drops the commitment
// being rescheduled so a visit never conflicts with itself.
func (r *Repository) BusyIntervals(ctx context.Context, personnelIDs []uuid.UUID, start, end time.Time, exclude domain.Scope) ([]domain.BusyInterval, error) {
	rows, err := r.q.Query(ctx, `
		SELECT a.personnel_id, a.start_time, a.end_time,
		       CASE
		           WHEN a.visit_id IS NOT NULL THEN 'visit ' || a.visit_id
		           WHEN a.visit_service_id IS NOT NULL THEN 'visit service ' || a.visit_service_id
		           ELSE 'tour slot ' || a.tour_slot_id
		       END
		FROM personnel_assignments a
		JOIN roles r ON r.id = a.role_id
		WHERE a.deleted_at IS NULL
		  AND r.check_availability = true
		  AND a.personnel_id = ANY($1)
		  AND a.start_time <= $3 AND a.end_time >= $2
		  AND ($4::uuid IS NULL OR a.visit_id IS DISTINCT FROM $4)
		  AND ($5::uuid IS NULL OR a.visit_service_id IS DISTINCT FROM $5)
		  AND ($6::uuid IS NULL OR a.tour_slot_id IS DISTINCT FROM $6)`,
		personnelIDs, start, end, exclude.VisitID, exclude.VisitServiceID, exclude.TourSlotID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load busy intervals", err)
	}
	defer rows.Close()

	var busy []domain.BusyInterval
	for rows.Next() {
		var b domain.BusyInterval
		if err := rows.Scan(&b.PersonnelID, &b.Start, &b.End, &b.Description); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan busy interval", err)
		}
		busy = append(busy, b)
	}
	return busy, rows.Err()
}
