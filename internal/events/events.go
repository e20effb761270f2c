// Package events defines the domain events published by the scheduling
// engine. Events are published only after the surrounding transaction has
// committed.
package events

import (
	"time"

	"tourvisit_backend/platform/events"

	"github.com/google/uuid"
)

// Event names.
const (
	VisitBookedName        = "visit.booked"
	VisitStageChangedName  = "visit.stage_changed"
	VisitSweptName         = "visit.swept"
	TourSlotsGeneratedName = "tourslot.generated"
	PersonnelAssignedName  = "personnel.assigned"
)

// VisitBooked fires when a visit or tour booking has been persisted.
type VisitBooked struct {
	events.BaseEvent
	VisitID       uuid.UUID
	SiteID        uuid.UUID
	VisitType     string
	Stage         string
	TourSlotID    *uuid.UUID
	TotalVisitors int
	Start         time.Time
	End           time.Time
}

func (e VisitBooked) EventName() string { return VisitBookedName }

// VisitStageChanged fires for every accepted stage transition, including
// those applied by the sweep.
type VisitStageChanged struct {
	events.BaseEvent
	VisitID     uuid.UUID
	SiteID      uuid.UUID
	VisitType   string
	FromStage   string
	ToStage     string
	Reason      string
	PersonnelID *uuid.UUID
}

func (e VisitStageChanged) EventName() string { return VisitStageChangedName }

// VisitSwept fires once per sweep batch with the stage movements applied.
type VisitSwept struct {
	events.BaseEvent
	SiteID    uuid.UUID
	Expired   int
	NoShow    int
	Completed int
}

func (e VisitSwept) EventName() string { return VisitSweptName }

// TourSlotsGenerated fires after a slot generation request committed.
type TourSlotsGenerated struct {
	events.BaseEvent
	SiteID     uuid.UUID
	ServiceID  uuid.UUID
	RangeStart time.Time
	RangeEnd   time.Time
	Count      int
}

func (e TourSlotsGenerated) EventName() string { return TourSlotsGeneratedName }

// PersonnelAssigned fires when an assignment batch committed.
type PersonnelAssigned struct {
	events.BaseEvent
	PersonnelIDs []uuid.UUID
	VisitID      *uuid.UUID
	TourSlotID   *uuid.UUID
	Start        time.Time
	End          time.Time
}

func (e PersonnelAssigned) EventName() string { return PersonnelAssignedName }
