// Package service provides site configuration, the site clock, and the
// startup seed loader.
package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tourvisit_backend/internal/sites/repository"
	"tourvisit_backend/platform/apperr"
	"tourvisit_backend/platform/logger"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Service exposes site lookups and the site clock.
type Service struct {
	repo *repository.Repository
	log  *logger.Logger
}

// New creates a site service.
func New(repo *repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Get fetches one site.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*repository.Site, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all sites.
func (s *Service) List(ctx context.Context) ([]repository.Site, error) {
	return s.repo.List(ctx)
}

// Location resolves the site's time zone, falling back to UTC when the
// configured zone name cannot be loaded.
func (s *Service) Location(site *repository.Site) *time.Location {
	loc, err := time.LoadLocation(site.Timezone)
	if err != nil {
		if s.log != nil {
			s.log.Warn("unknown site timezone, falling back to UTC", "site_id", site.ID, "timezone", site.Timezone)
		}
		return time.UTC
	}
	return loc
}

// Now returns the current time in the site's zone. All calendar-day
// comparisons in the stage machine use this clock.
func (s *Service) Now(site *repository.Site) time.Time {
	return time.Now().In(s.Location(site))
}

// seedFile is the on-disk shape of the site seed.
type seedFile struct {
	Sites []seedSite `yaml:"sites"`
}

type seedSite struct {
	Name                   string `yaml:"name"`
	Timezone               string `yaml:"timezone"`
	OpenTime               string `yaml:"openTime"`
	CloseTime              string `yaml:"closeTime"`
	SlotGranularityMinutes int    `yaml:"slotGranularityMinutes"`
}

// SeedFromFile loads the YAML seed and upserts every site in it. A missing
// path is not an error so deployments without a seed file boot normally.
func (s *Service) SeedFromFile(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read site seed: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse site seed: %w", err)
	}

	for _, entry := range file.Sites {
		site, err := entry.toSite()
		if err != nil {
			return err
		}
		if err := s.repo.Upsert(ctx, site); err != nil {
			return err
		}
	}

	if s.log != nil {
		s.log.Info("site seed applied", "path", path, "sites", len(file.Sites))
	}
	return nil
}

func (e seedSite) toSite() (*repository.Site, error) {
	open, err := parseClockMinute(e.OpenTime)
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf("site %q: invalid openTime %q", e.Name, e.OpenTime))
	}
	closeMin, err := parseClockMinute(e.CloseTime)
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf("site %q: invalid closeTime %q", e.Name, e.CloseTime))
	}
	if closeMin <= open {
		return nil, apperr.Validation(fmt.Sprintf("site %q: closeTime must be after openTime", e.Name))
	}

	granularity := e.SlotGranularityMinutes
	if granularity <= 0 {
		granularity = 30
	}

	return &repository.Site{
		Name:                   e.Name,
		Timezone:               e.Timezone,
		OpenMinute:             open,
		CloseMinute:            closeMin,
		SlotGranularityMinutes: granularity,
	}, nil
}

// parseClockMinute converts "HH:MM" to minutes from midnight. "24:00" is
// accepted as end of day.
func parseClockMinute(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("out of range clock value %q", value)
	}
	return hour*60 + minute, nil
}
