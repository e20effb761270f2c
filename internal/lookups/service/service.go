// Package service validates free-form request fields against the controlled
// vocabulary stored in the lookups table.
package service

import (
	"context"
	"fmt"

	"tourvisit_backend/internal/lookups/repository"
	"tourvisit_backend/platform/apperr"
)

// Lookup categories used by the scheduling engine.
const (
	CategoryVisitPurpose = "VISIT_PURPOSE"
	CategoryServiceType  = "SERVICE_TYPE"
	CategoryGuestOrigin  = "GUEST_ORIGIN"
)

// Service validates values against the lookup table.
type Service struct {
	repo *repository.Repository
}

// New creates a lookup service.
func New(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// Validate returns a validation error when the value is not an active member
// of the category. Empty values pass; required-ness is the transport's job.
func (s *Service) Validate(ctx context.Context, category, value string) error {
	if value == "" {
		return nil
	}
	ok, err := s.repo.Exists(ctx, category, value)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation(fmt.Sprintf("%q is not a known %s value", value, category))
	}
	return nil
}

// List returns the active values of a category.
func (s *Service) List(ctx context.Context, category string) ([]string, error) {
	return s.repo.ListByCategory(ctx, category)
}
