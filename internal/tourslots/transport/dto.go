// Package transport defines the request and response shapes of the tour
// slot endpoints.
package transport

import (
	"time"

	"tourvisit_backend/internal/tourslots/domain"
	"tourvisit_backend/internal/tourslots/repository"
	"tourvisit_backend/internal/tourslots/service"

	"github.com/google/uuid"
)

// GenerateRequest asks for slot generation over a date range. RangeEnd is
// exclusive.
type GenerateRequest struct {
	SiteID       uuid.UUID `json:"siteId" binding:"required"`
	ServiceID    uuid.UUID `json:"serviceId" binding:"required"`
	RangeStart   time.Time `json:"rangeStart" binding:"required"`
	RangeEnd     time.Time `json:"rangeEnd" binding:"required"`
	IntervalMin  int       `json:"intervalMinutes" binding:"required,min=1"`
	MaxGuestSize int       `json:"maxGuestSize" binding:"required,min=1"`
}

// SetStageRequest applies an operator stage override.
type SetStageRequest struct {
	Stage string `json:"stage" binding:"required,oneof=INACTIVE ACTIVE PARTIALLY BOOKED"`
}

// SlotResponse is the API shape of a tour slot.
type SlotResponse struct {
	ID           uuid.UUID `json:"id"`
	SiteID       uuid.UUID `json:"siteId"`
	ServiceID    uuid.UUID `json:"serviceId"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	MaxGuestSize int       `json:"maxGuestSize"`
	Stage        string    `json:"stage"`
}

// ToSlotResponse maps a slot to its API shape.
func ToSlotResponse(s *repository.TourSlot) SlotResponse {
	return SlotResponse{
		ID:           s.ID,
		SiteID:       s.SiteID,
		ServiceID:    s.ServiceID,
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		MaxGuestSize: s.MaxGuestSize,
		Stage:        string(s.Stage),
	}
}

// ToSlotResponses maps a slot list.
func ToSlotResponses(slots []repository.TourSlot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for i := range slots {
		out = append(out, ToSlotResponse(&slots[i]))
	}
	return out
}

// AvailabilityResponse reports live slot occupancy.
type AvailabilityResponse struct {
	Slot       SlotResponse       `json:"slot"`
	Booked     int                `json:"booked"`
	Remaining  int                `json:"remaining"`
	Bookable   bool               `json:"bookable"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

// ToAvailabilityResponse maps an availability check result.
func ToAvailabilityResponse(a *service.Availability) AvailabilityResponse {
	return AvailabilityResponse{
		Slot:       ToSlotResponse(a.Slot),
		Booked:     a.Booked,
		Remaining:  a.Remaining,
		Bookable:   len(a.Violations) == 0,
		Violations: a.Violations,
	}
}
