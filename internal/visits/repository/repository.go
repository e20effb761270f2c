// Package repository provides data access for visits, their stage history,
// attached services and feedback.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourvisit_backend/internal/visits/domain"
	"tourvisit_backend/platform/apperr"
	"tourvisit_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Visit is a scheduled visit or tour booking.
type Visit struct {
	ID            uuid.UUID
	SiteID        uuid.UUID
	VisitType     domain.VisitType
	Stage         domain.Stage
	TourSlotID    *uuid.UUID
	ContactName   string
	ContactEmail  string
	ContactPhone  string
	Purpose       string
	TotalVisitors int
	StartTime     time.Time
	EndTime       time.Time
	Notes         string
	CreatedBy     *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// StageHistoryEntry records one accepted stage transition.
type StageHistoryEntry struct {
	ID        uuid.UUID
	VisitID   uuid.UUID
	FromStage domain.Stage
	ToStage   domain.Stage
	Reason    string
	ChangedBy *uuid.UUID
	CreatedAt time.Time
}

// VisitService is an add-on activity inside a visit with its own window.
type VisitService struct {
	ID          uuid.UUID
	VisitID     uuid.UUID
	ServiceType string
	StartTime   time.Time
	EndTime     time.Time
	Notes       string
}

// Feedback is the post-visit feedback record. Rating is nil until the
// visitor submits.
type Feedback struct {
	ID        uuid.UUID
	VisitID   uuid.UUID
	Rating    *int
	Comments  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository handles visit persistence.
type Repository struct {
	q db.Querier
}

// New creates a visit repository on the given querier, which may be a pool
// or an open transaction.
func New(q db.Querier) *Repository {
	return &Repository{q: q}
}

// WithTx returns a repository bound to the transaction.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{q: tx}
}

const visitColumns = `id, site_id, visit_type, stage, tour_slot_id, contact_name, contact_email,
	contact_phone, purpose, total_visitors, start_time, end_time, notes, created_by,
	created_at, updated_at, deleted_at`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.SiteID, &v.VisitType, &v.Stage, &v.TourSlotID, &v.ContactName,
		&v.ContactEmail, &v.ContactPhone, &v.Purpose, &v.TotalVisitors, &v.StartTime,
		&v.EndTime, &v.Notes, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt, &v.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("visit not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load visit", err)
	}
	return &v, nil
}

// Create inserts a visit.
func (r *Repository) Create(ctx context.Context, v *Visit) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO visits (id, site_id, visit_type, stage, tour_slot_id, contact_name,
			contact_email, contact_phone, purpose, total_visitors, start_time, end_time,
			notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		v.ID, v.SiteID, v.VisitType, v.Stage, v.TourSlotID, v.ContactName, v.ContactEmail,
		v.ContactPhone, v.Purpose, v.TotalVisitors, v.StartTime, v.EndTime, v.Notes, v.CreatedBy)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to create visit", err)
	}
	return nil
}

// GetByID fetches one visit, excluding soft-deleted rows.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanVisit(row)
}

// Update rewrites the editable fields of a visit.
func (r *Repository) Update(ctx context.Context, v *Visit) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE visits SET contact_name = $2, contact_email = $3, contact_phone = $4,
			purpose = $5, total_visitors = $6, start_time = $7, end_time = $8,
			notes = $9, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`,
		v.ID, v.ContactName, v.ContactEmail, v.ContactPhone, v.Purpose,
		v.TotalVisitors, v.StartTime, v.EndTime, v.Notes)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update visit", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("visit not found")
	}
	return nil
}

// UpdateStage moves a visit to a new stage, guarded by the expected current
// stage so two concurrent transitions cannot both win.
func (r *Repository) UpdateStage(ctx context.Context, id uuid.UUID, from, to domain.Stage) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE visits SET stage = $3, updated_at = now()
		WHERE id = $1 AND stage = $2 AND deleted_at IS NULL`, id, from, to)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update visit stage", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("visit stage changed concurrently")
	}
	return nil
}

// InsertStageHistory appends one history entry.
func (r *Repository) InsertStageHistory(ctx context.Context, e *StageHistoryEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO visit_stage_history (id, visit_id, from_stage, to_stage, reason, changed_by)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.VisitID, e.FromStage, e.ToStage, e.Reason, e.ChangedBy)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to insert stage history", err)
	}
	return nil
}

// ListStageHistory returns a visit's history oldest first.
func (r *Repository) ListStageHistory(ctx context.Context, visitID uuid.UUID) ([]StageHistoryEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, visit_id, from_stage, to_stage, reason, changed_by, created_at
		FROM visit_stage_history WHERE visit_id = $1 ORDER BY created_at`, visitID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list stage history", err)
	}
	defer rows.Close()

	var entries []StageHistoryEntry
	for rows.Next() {
		var e StageHistoryEntry
		if err := rows.Scan(&e.ID, &e.VisitID, &e.FromStage, &e.ToStage, &e.Reason,
			&e.ChangedBy, &e.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan stage history", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListFilter narrows List results.
type ListFilter struct {
	SiteID    *uuid.UUID
	Stage     *domain.Stage
	VisitType *domain.VisitType
	From      *time.Time
	To        *time.Time
	Limit     int
}

// List returns visits matching the filter, newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE deleted_at IS NULL`
	var args []any

	addFilter := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(` AND %s$%d`, clause, len(args))
	}

	if f.SiteID != nil {
		addFilter(`site_id = `, *f.SiteID)
	}
	if f.Stage != nil {
		addFilter(`stage = `, *f.Stage)
	}
	if f.VisitType != nil {
		addFilter(`visit_type = `, *f.VisitType)
	}
	if f.From != nil {
		addFilter(`end_time >= `, *f.From)
	}
	if f.To != nil {
		addFilter(`start_time <= `, *f.To)
	}
	query += ` ORDER BY start_time DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list visits", err)
	}
	defer rows.Close()

	return collectVisits(rows)
}

// ListStale returns visits of a site whose end time has passed and whose
// stage the sweep still acts on, oldest first, capped at limit.
func (r *Repository) ListStale(ctx context.Context, siteID uuid.UUID, cutoff time.Time, limit int) ([]Visit, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+visitColumns+` FROM visits
		WHERE site_id = $1 AND deleted_at IS NULL
		  AND end_time < $2
		  AND stage IN ('PENDING', 'ACCEPTED', 'CHECK_IN')
		ORDER BY end_time
		LIMIT $3`, siteID, cutoff, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list stale visits", err)
	}
	defer rows.Close()

	return collectVisits(rows)
}

func collectVisits(rows pgx.Rows) ([]Visit, error) {
	var visits []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.ID, &v.SiteID, &v.VisitType, &v.Stage, &v.TourSlotID,
			&v.ContactName, &v.ContactEmail, &v.ContactPhone, &v.Purpose, &v.TotalVisitors,
			&v.StartTime, &v.EndTime, &v.Notes, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt,
			&v.DeletedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan visit", err)
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// SoftDelete hides a visit from all queries.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE visits SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete visit", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("visit not found")
	}
	return nil
}

// InsertServices persists the add-on services of a visit.
func (r *Repository) InsertServices(ctx context.Context, services []VisitService) error {
	for i := range services {
		if services[i].ID == uuid.Nil {
			services[i].ID = uuid.New()
		}
		s := services[i]
		_, err := r.q.Exec(ctx, `
			INSERT INTO visit_services (id, visit_id, service_type, start_time, end_time, notes)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			s.ID, s.VisitID, s.ServiceType, s.StartTime, s.EndTime, s.Notes)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to insert visit service", err)
		}
	}
	return nil
}

// DeleteServices removes the services of a visit so an itinerary edit can
// replace them wholesale.
func (r *Repository) DeleteServices(ctx context.Context, visitID uuid.UUID) error {
	_, err := r.q.Exec(ctx, `DELETE FROM visit_services WHERE visit_id = $1`, visitID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete visit services", err)
	}
	return nil
}

// ListServices returns the services of a visit ordered by start time.
func (r *Repository) ListServices(ctx context.Context, visitID uuid.UUID) ([]VisitService, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, visit_id, service_type, start_time, end_time, notes
		FROM visit_services WHERE visit_id = $1 ORDER BY start_time`, visitID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list visit services", err)
	}
	defer rows.Close()

	var services []VisitService
	for rows.Next() {
		var s VisitService
		if err := rows.Scan(&s.ID, &s.VisitID, &s.ServiceType, &s.StartTime, &s.EndTime, &s.Notes); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan visit service", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// EnsureFeedback creates the empty feedback record for a completed visit.
// Safe to call more than once; an existing record is left untouched.
func (r *Repository) EnsureFeedback(ctx context.Context, visitID uuid.UUID) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO visit_feedback (id, visit_id)
		VALUES ($1, $2)
		ON CONFLICT (visit_id) DO NOTHING`, uuid.New(), visitID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to create feedback record", err)
	}
	return nil
}

// UpsertFeedback fills in the feedback of a visit, creating the record if
// the completion hook did not.
func (r *Repository) UpsertFeedback(ctx context.Context, f *Feedback) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO visit_feedback (id, visit_id, rating, comments)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (visit_id) DO UPDATE
		SET rating = EXCLUDED.rating, comments = EXCLUDED.comments, updated_at = now()`,
		f.ID, f.VisitID, f.Rating, f.Comments)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to store feedback", err)
	}
	return nil
}

// GetFeedback returns the feedback of a visit.
func (r *Repository) GetFeedback(ctx context.Context, visitID uuid.UUID) (*Feedback, error) {
	var f Feedback
	err := r.q.QueryRow(ctx, `
		SELECT id, visit_id, rating, comments, created_at, updated_at
		FROM visit_feedback WHERE visit_id = $1`, visitID).
		Scan(&f.ID, &f.VisitID, &f.Rating, &f.Comments, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("no feedback recorded for this visit")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load feedback", err)
	}
	return &f, nil
}
