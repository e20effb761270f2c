// Package repository provides data access for controlled vocabulary values.
package repository

import (
	"context"

	"tourvisit_backend/platform/apperr"
	"tourvisit_backend/platform/db"
)

// Repository handles lookup persistence.
type Repository struct {
	q db.Querier
}

// New creates a lookup repository.
func New(q db.Querier) *Repository {
	return &Repository{q: q}
}

// Exists reports whether an active lookup value exists in the category.
func (r *Repository) Exists(ctx context.Context, category, value string) (bool, error) {
	var found bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM lookups
			WHERE category = $1 AND value = $2 AND active = true
		)`, category, value).Scan(&found)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "failed to check lookup value", err)
	}
	return found, nil
}

// ListByCategory returns the active values of a category in display order.
func (r *Repository) ListByCategory(ctx context.Context, category string) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT value FROM lookups
		WHERE category = $1 AND active = true
		ORDER BY sort_order, value`, category)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list lookup values", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan lookup value", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
