// Package transport defines the request and response shapes of the visit
// endpoints.
package transport

import (
	"time"

	"tourvisit_backend/internal/visits/repository"

	"github.com/google/uuid"
)

// ServiceRequest is one add-on activity in a booking request.
type ServiceRequest struct {
	ServiceType string    `json:"serviceType" binding:"required"`
	StartTime   time.Time `json:"startTime" binding:"required"`
	EndTime     time.Time `json:"endTime" binding:"required"`
	Notes       string    `json:"notes"`
}

// AssignmentRequest is one requested personnel assignment.
type AssignmentRequest struct {
	PersonnelID uuid.UUID `json:"personnelId" binding:"required"`
	RoleID      uuid.UUID `json:"roleId" binding:"required"`
}

// BookVisitRequest is the booking payload.
type BookVisitRequest struct {
	SiteID        uuid.UUID           `json:"siteId" binding:"required"`
	VisitType     string              `json:"visitType" binding:"required,oneof=VISIT TOUR"`
	TourSlotID    *uuid.UUID          `json:"tourSlotId"`
	ContactName   string              `json:"contactName" binding:"required"`
	ContactEmail  string              `json:"contactEmail" binding:"omitempty,email"`
	ContactPhone  string              `json:"contactPhone"`
	Purpose       string              `json:"purpose"`
	TotalVisitors int                 `json:"totalVisitors" binding:"required,min=1"`
	StartTime     time.Time           `json:"startTime"`
	EndTime       time.Time           `json:"endTime"`
	Notes         string              `json:"notes"`
	Services      []ServiceRequest    `json:"services" binding:"omitempty,dive"`
	Assignments   []AssignmentRequest `json:"assignments" binding:"omitempty,dive"`
}

// UpdateVisitRequest edits an existing booking. The submitted services and
// assignments replace the stored sets.
type UpdateVisitRequest struct {
	ContactName   string              `json:"contactName" binding:"required"`
	ContactEmail  string              `json:"contactEmail" binding:"omitempty,email"`
	ContactPhone  string              `json:"contactPhone"`
	Purpose       string              `json:"purpose"`
	TotalVisitors int                 `json:"totalVisitors" binding:"required,min=1"`
	StartTime     time.Time           `json:"startTime"`
	EndTime       time.Time           `json:"endTime"`
	Notes         string              `json:"notes"`
	Services      []ServiceRequest    `json:"services" binding:"omitempty,dive"`
	Assignments   []AssignmentRequest `json:"assignments" binding:"omitempty,dive"`
}

// ChangeStageRequest moves a visit to a new stage.
type ChangeStageRequest struct {
	Stage  string `json:"stage" binding:"required"`
	Reason string `json:"reason"`
}

// FeedbackRequest records post-visit feedback.
type FeedbackRequest struct {
	Rating   int    `json:"rating" binding:"required,min=1,max=5"`
	Comments string `json:"comments"`
}

// VisitResponse is the API shape of a visit.
type VisitResponse struct {
	ID            uuid.UUID  `json:"id"`
	SiteID        uuid.UUID  `json:"siteId"`
	VisitType     string     `json:"visitType"`
	Stage         string     `json:"stage"`
	TourSlotID    *uuid.UUID `json:"tourSlotId,omitempty"`
	ContactName   string     `json:"contactName"`
	ContactEmail  string     `json:"contactEmail,omitempty"`
	ContactPhone  string     `json:"contactPhone,omitempty"`
	Purpose       string     `json:"purpose,omitempty"`
	TotalVisitors int        `json:"totalVisitors"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       time.Time  `json:"endTime"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ToVisitResponse maps a visit to its API shape.
func ToVisitResponse(v *repository.Visit) VisitResponse {
	return VisitResponse{
		ID:            v.ID,
		SiteID:        v.SiteID,
		VisitType:     string(v.VisitType),
		Stage:         string(v.Stage),
		TourSlotID:    v.TourSlotID,
		ContactName:   v.ContactName,
		ContactEmail:  v.ContactEmail,
		ContactPhone:  v.ContactPhone,
		Purpose:       v.Purpose,
		TotalVisitors: v.TotalVisitors,
		StartTime:     v.StartTime,
		EndTime:       v.EndTime,
		Notes:         v.Notes,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
}

// StageHistoryResponse is one history entry.
type StageHistoryResponse struct {
	FromStage string     `json:"fromStage"`
	ToStage   string     `json:"toStage"`
	Reason    string     `json:"reason,omitempty"`
	ChangedBy *uuid.UUID `json:"changedBy,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ToStageHistoryResponse maps history entries to their API shape.
func ToStageHistoryResponse(entries []repository.StageHistoryEntry) []StageHistoryResponse {
	out := make([]StageHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, StageHistoryResponse{
			FromStage: string(e.FromStage),
			ToStage:   string(e.ToStage),
			Reason:    e.Reason,
			ChangedBy: e.ChangedBy,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

// ServiceResponse is the API shape of a visit service.
type ServiceResponse struct {
	ID          uuid.UUID `json:"id"`
	ServiceType string    `json:"serviceType"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Notes       string    `json:"notes,omitempty"`
}

// ToServiceResponse maps visit services to their API shape.
func ToServiceResponse(services []repository.VisitService) []ServiceResponse {
	out := make([]ServiceResponse, 0, len(services))
	for _, s := range services {
		out = append(out, ServiceResponse{
			ID:          s.ID,
			ServiceType: s.ServiceType,
			StartTime:   s.StartTime,
			EndTime:     s.EndTime,
			Notes:       s.Notes,
		})
	}
	return out
}

// FeedbackResponse is the API shape of feedback. Rating is null while the
// record is still waiting for the visitor's submission.
type FeedbackResponse struct {
	Rating    *int      `json:"rating"`
	Comments  string    `json:"comments,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
