// Package repository provides data access for sites.
package repository

import (
	"context"
	"errors"
	"time"

	"tourvisit_backend/platform/apperr"
	"tourvisit_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Site is a physical location visits and tours are scheduled against.
type Site struct {
	ID                     uuid.UUID
	Name                   string
	Timezone               string
	OpenMinute             int
	CloseMinute            int
	SlotGranularityMinutes int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Repository handles site persistence.
type Repository struct {
	q db.Querier
}

// New creates a site repository on the given querier, which may be a pool or
// an open transaction.
func New(q db.Querier) *Repository {
	return &Repository{q: q}
}

const siteColumns = `id, name, timezone, open_minute, close_minute, slot_granularity_minutes, created_at, updated_at`

func scanSite(row pgx.Row) (*Site, error) {
	var s Site
	err := row.Scan(&s.ID, &s.Name, &s.Timezone, &s.OpenMinute, &s.CloseMinute,
		&s.SlotGranularityMinutes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("site not found")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load site", err)
	}
	return &s, nil
}

// GetByID fetches one site.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Site, error) {
	row := r.q.QueryRow(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = $1`, id)
	return scanSite(row)
}

// List returns all sites ordered by name.
func (r *Repository) List(ctx context.Context) ([]Site, error) {
	rows, err := r.q.Query(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY name`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list sites", err)
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		var s Site
		if err := rows.Scan(&s.ID, &s.Name, &s.Timezone, &s.OpenMinute, &s.CloseMinute,
			&s.SlotGranularityMinutes, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan site", err)
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

// Upsert inserts a site or refreshes its configuration when a site with the
// same name already exists. Used by the seed loader at startup.
func (r *Repository) Upsert(ctx context.Context, s *Site) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO sites (id, name, timezone, open_minute, close_minute, slot_granularity_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			timezone = EXCLUDED.timezone,
			open_minute = EXCLUDED.open_minute,
			close_minute = EXCLUDED.close_minute,
			slot_granularity_minutes = EXCLUDED.slot_granularity_minutes,
			updated_at = now()`,
		s.ID, s.Name, s.Timezone, s.OpenMinute, s.CloseMinute, s.SlotGranularityMinutes)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to upsert site", err)
	}
	return nil
}
