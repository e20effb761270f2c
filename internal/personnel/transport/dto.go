// Package transport defines the request and response shapes of the
// personnel endpoints.
package transport

import (
	"time"

	"tourvisit_backend/internal/personnel/repository"

	"github.com/google/uuid"
)

// CreatePersonnelRequest adds a staff member.
type CreatePersonnelRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
}

// AssignmentEntry is one personnel-role pair in an assignment batch.
type AssignmentEntry struct {
	PersonnelID uuid.UUID `json:"personnelId" binding:"required"`
	RoleID      uuid.UUID `json:"roleId" binding:"required"`
}

// AssignRequest binds a batch of personnel to one scope.
type AssignRequest struct {
	VisitID        *uuid.UUID        `json:"visitId"`
	VisitServiceID *uuid.UUID        `json:"visitServiceId"`
	TourSlotID     *uuid.UUID        `json:"tourSlotId"`
	StartTime      time.Time         `json:"startTime" binding:"required"`
	EndTime        time.Time         `json:"endTime" binding:"required"`
	Assignments    []AssignmentEntry `json:"assignments" binding:"required,min=1,dive"`
	Replace        bool              `json:"replace"`
}

// AvailabilityRequest asks which of the given personnel are busy in a window.
type AvailabilityRequest struct {
	PersonnelIDs []uuid.UUID `json:"personnelIds" binding:"required,min=1"`
	StartTime    time.Time   `json:"startTime" binding:"required"`
	EndTime      time.Time   `json:"endTime" binding:"required"`
}

// PersonnelResponse is the API shape of a personnel member.
type PersonnelResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Active    bool      `json:"active"`
}

// ToPersonnelResponse maps a personnel member to its API shape.
func ToPersonnelResponse(p *repository.Personnel) PersonnelResponse {
	return PersonnelResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		Active:    p.Active,
	}
}

// RoleResponse is the API shape of a role.
type RoleResponse struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	CheckAvailability bool      `json:"checkAvailability"`
}

// AssignmentResponse is the API shape of an assignment.
type AssignmentResponse struct {
	ID          uuid.UUID  `json:"id"`
	PersonnelID uuid.UUID  `json:"personnelId"`
	RoleID      uuid.UUID  `json:"roleId"`
	VisitID     *uuid.UUID `json:"visitId,omitempty"`
	TourSlotID  *uuid.UUID `json:"tourSlotId,omitempty"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     time.Time  `json:"endTime"`
}

// ToAssignmentResponses maps assignments to their API shape.
func ToAssignmentResponses(assignments []repository.Assignment) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, AssignmentResponse{
			ID:          a.ID,
			PersonnelID: a.PersonnelID,
			RoleID:      a.RoleID,
			VisitID:     a.VisitID,
			TourSlotID:  a.TourSlotID,
			StartTime:   a.StartTime,
			EndTime:     a.EndTime,
		})
	}
	return out
}
