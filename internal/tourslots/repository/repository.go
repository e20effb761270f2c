// Package repository provides data access for tour slots.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourvisit_backend/internal/tourslots/domain"
	"tourvisit_backend/platform/apperr"
	"tourvisit_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TourSlot is a bookable window of a guided offering at a site.
type TourSlot struct {
	ID           uuid.UUID
	SiteID       uuid.UUID
	ServiceID    uuid.UUID
	StartTime    time.Time
	EndTime      time.Time
	MaxGuestSize int
	Stage        domain.SlotStage
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Repository handles tour slot persistence.
type Repository struct {
	q db.Querier
}

// New creates a tour slot repository on the given querier, which may be a
// pool or an open transaction.
func New(q db.Querier) *Repository {
	return &Repository{q: q}
}

// WithTx returns a repository bound to the transaction.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{q: tx}
}

const slotColumns = `id, site_id, service_id, start_time, end_time, max_guest_size, stage, created_at, updated_at, deleted_at`

func scanSlot(row pgx.Row) (*TourSlot, error) {
	var s TourSlot
	err := row.Scan(&s.ID, &s.SiteID, &s.ServiceID, &s.StartTime, &s.EndTime,
		&s.MaxGuestSize, &s.Stage, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("tour slot not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load tour slot", err)
	}
	return &s, nil
}

// GetByID fetches one slot, excluding soft-deleted rows.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*TourSlot, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+slotColumns+` FROM tour_slots WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanSlot(row)
}

// GetByIDForUpdate fetches one slot and takes a row lock. Must run inside a
// transaction; concurrent bookings against the same slot serialize on it.
func (r *Repository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*TourSlot, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+slotColumns+` FROM tour_slots WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id)
	return scanSlot(row)
}

// BookedGuestSize recomputes the occupancy of a slot from the visits that
// reference it. Cancelled, declined and expired visits release their seats.
func (r *Repository) BookedGuestSize(ctx context.Context, slotID uuid.UUID) (int, error) {
	var booked int
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_visitors), 0)
		FROM visits
		WHERE tour_slot_id = $1
		  AND deleted_at IS NULL
		  AND stage NOT IN ('CANCELLED', 'DECLINED', 'EXPIRED')`, slotID).Scan(&booked)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to compute slot occupancy", err)
	}
	return booked, nil
}

// HasOverlapping reports whether any live slot of the same site and service
// overlaps the range. Generation refuses to double-generate over it.
func (r *Repository) HasOverlapping(ctx context.Context, siteID, serviceID uuid.UUID, start, end time.Time) (bool, error) {
	var found bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tour_slots
			WHERE site_id = $1 AND service_id = $2 AND deleted_at IS NULL
			  AND start_time <= $4 AND end_time >= $3
		)`, siteID, serviceID, start, end).Scan(&found)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to check for overlapping slots", err)
	}
	return found, nil
}

// InsertBatch persists a generated batch. Callers run it inside a
// transaction so the batch lands in full or not at all.
func (r *Repository) InsertBatch(ctx context.Context, slots []TourSlot) error {
	for i := range slots {
		if slots[i].ID == uuid.Nil {
			slots[i].ID = uuid.New()
		}
		_, err := r.q.Exec(ctx, `
			INSERT INTO tour_slots (id, site_id, service_id, start_time, end_time, max_guest_size, stage)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			slots[i].ID, slots[i].SiteID, slots[i].ServiceID,
			slots[i].StartTime, slots[i].EndTime, slots[i].MaxGuestSize, slots[i].Stage)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to insert tour slot", err)
		}
	}
	return nil
}

// UpdateStage stores a recomputed or operator-set stage.
func (r *Repository) UpdateStage(ctx context.Context, id uuid.UUID, stage domain.SlotStage) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE tour_slots SET stage = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id, stage)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update tour slot stage", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("tour slot not found")
	}
	return nil
}

// ListFilter narrows List results.
type ListFilter struct {
	SiteID    uuid.UUID
	ServiceID *uuid.UUID
	From      *time.Time
	To        *time.Time
	Stage     *domain.SlotStage
}

// List returns slots for a site ordered by start time.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]TourSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM tour_slots WHERE site_id = $1 AND deleted_at IS NULL`
	args := []any{f.SiteID}

	addFilter := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(` AND %s$%d`, clause, len(args))
	}

	if f.ServiceID != nil {
		addFilter(`service_id = `, *f.ServiceID)
	}
	if f.From != nil {
		addFilter(`end_time >= `, *f.From)
	}
	if f.To != nil {
		addFilter(`start_time <= `, *f.To)
	}
	if f.Stage != nil {
		addFilter(`stage = `, *f.Stage)
	}
	query += ` ORDER BY start_time`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list tour slots", err)
	}
	defer rows.Close()

	var slots []TourSlot
	for rows.Next() {
		var s TourSlot
		if err := rows.Scan(&s.ID, &s.SiteID, &s.ServiceID, &s.StartTime, &s.EndTime,
			&s.MaxGuestSize, &s.Stage, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan tour slot", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// SoftDelete hides a slot from listings and availability checks.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE tour_slots SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete tour slot", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("tour slot not found")
	}
	return nil
}
