// Package domain provides the core lifecycle rules for visits: the stage
// machine, its per-type predecessor tables, temporal guards, and the expiry
// sweep transition table.
package domain

import (
	"fmt"
	"time"

	"tourvisit_backend/platform/apperr"
)

// VisitType distinguishes ad-hoc visits from slot-based tours.
type VisitType string

const (
	TypeVisit VisitType = "VISIT"
	TypeTour  VisitType = "TOUR"
)

// IsKnownVisitType reports whether the value is a recognized visit type.
func IsKnownVisitType(t VisitType) bool {
	return t == TypeVisit || t == TypeTour
}

// Stage is the lifecycle state of a visit.
type Stage string

const (
	StagePending   Stage = "PENDING"
	StageAccepted  Stage = "ACCEPTED"
	StageCheckIn   Stage = "CHECK_IN"
	StageCompleted Stage = "COMPLETED"
	StageClosed    Stage = "CLOSED"

	// Absorbing stages. A visit in any of these is terminal and immutable
	// except for audit fields.
	StageCancelled Stage = "CANCELLED"
	StageDeclined  Stage = "DECLINED"
	StageExpired   Stage = "EXPIRED"
	StageNoShow    Stage = "NOSHOW"
)

// stageOrder gives each stage its position on the forward path. Absorbing
// stages share the highest order so the no-backward rule never blocks
// entering them; reachability is governed by the predecessor tables alone.
var stageOrder = map[Stage]int{
	StagePending:   1,
	StageAccepted:  2,
	StageCheckIn:   3,
	StageCompleted: 4,
	StageClosed:    5,
	StageCancelled: 6,
	StageDeclined:  6,
	StageExpired:   6,
	StageNoShow:    6,
}

// terminalStages are absorbing: no transition may leave them.
var terminalStages = map[Stage]bool{
	StageClosed:    true,
	StageCancelled: true,
	StageDeclined:  true,
	StageExpired:   true,
	StageNoShow:    true,
}

// allowedPredecessors lists, per visit type, the stages a target stage may
// be entered from.
var allowedPredecessors = map[VisitType]map[Stage][]Stage{
	TypeVisit: {
		StageAccepted:  {StagePending},
		StageCheckIn:   {StageAccepted},
		StageCompleted: {StageCheckIn, StageAccepted},
		StageClosed:    {StageCompleted},
		StageCancelled: {StagePending, StageAccepted, StageCheckIn},
		StageDeclined:  {StagePending},
		StageExpired:   {StagePending},
		StageNoShow:    {StageAccepted},
	},
	TypeTour: {
		StageAccepted:  {StagePending},
		StageCheckIn:   {StageAccepted},
		StageCompleted: {StageCheckIn, StageAccepted},
		StageClosed:    {StageCompleted},
		StageCancelled: {StagePending, StageAccepted},
		StageDeclined:  {StagePending},
		StageNoShow:    {StageAccepted},
	},
}

// IsKnownStage reports whether the value is a recognized stage.
func IsKnownStage(s Stage) bool {
	_, ok := stageOrder[s]
	return ok
}

// IsTerminal reports whether the stage is absorbing.
func IsTerminal(s Stage) bool {
	return terminalStages[s]
}

// Order returns the ordering value of a stage (0 for unknown stages).
func Order(s Stage) int {
	return stageOrder[s]
}

// TransitionRequest carries everything the stage machine needs to validate
// one transition. Now must already be resolved in the site's time zone.
type TransitionRequest struct {
	Current Stage
	Target  Stage
	Type    VisitType
	Start   time.Time
	End     time.Time
	Now     time.Time
}

// ValidateTransition applies the stage machine rules in order and returns a
// typed error describing the first violation, or nil when the transition is
// permitted. It performs no side effects; appending history and firing
// notifications belong to the caller.
func ValidateTransition(req TransitionRequest) error {
	if !IsKnownStage(req.Target) {
		return apperr.Validation(fmt.Sprintf("unknown stage %q", req.Target))
	}

	// Re-submission is allowed while a request is still pending.
	if req.Target == req.Current {
		if req.Current == StagePending {
			return nil
		}
		return apperr.Conflict(fmt.Sprintf("visit is already in stage %s", req.Current))
	}

	if IsTerminal(req.Current) {
		return apperr.InvalidTransition(fmt.Sprintf("visit stage %s is locked", req.Current))
	}

	if stageOrder[req.Target] < stageOrder[req.Current] {
		return apperr.InvalidTransition(fmt.Sprintf("cannot move backward from %s to %s", req.Current, req.Target))
	}

	if !isAllowedPredecessor(req.Type, req.Current, req.Target) {
		return apperr.InvalidTransition(fmt.Sprintf("%s visit cannot move from %s to %s", req.Type, req.Current, req.Target))
	}

	return validateTemporalGuards(req)
}

func isAllowedPredecessor(t VisitType, current, target Stage) bool {
	table, ok := allowedPredecessors[t]
	if !ok {
		return false
	}
	for _, s := range table[target] {
		if s == current {
			return true
		}
	}
	return false
}

// validateTemporalGuards enforces the calendar rules: CHECK_IN only on the
// scheduled day, COMPLETED only on or after the scheduled end date. Dates
// are compared in the site's time zone, carried by req.Now.
func validateTemporalGuards(req TransitionRequest) error {
	switch req.Target {
	case StageCheckIn:
		if !sameDate(req.Now, req.Start.In(req.Now.Location())) {
			return apperr.InvalidTransition("check-in is only allowed on the scheduled day")
		}
	case StageCompleted:
		if dateOf(req.Now).Before(dateOf(req.End.In(req.Now.Location()))) {
			return apperr.InvalidTransition("visit cannot be completed before its scheduled end date")
		}
	}
	return nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Sweep reasons recorded in the stage history when the periodic sweep moves
// a stale visit.
const (
	ReasonExpiredAutomatically = "EXPIRED automatically"
	ReasonNoShowAutomatically  = "NOSHOW automatically"
)

// SweepTarget returns the stage a stale visit should move to when its end
// time has passed, with the history reason to record. ok is false when the
// sweep leaves the visit alone. Re-running the sweep is idempotent because
// every target stage falls outside the sweep's selection set.
func SweepTarget(t VisitType, current Stage) (target Stage, reason string, ok bool) {
	switch t {
	case TypeVisit:
		switch current {
		case StagePending:
			return StageExpired, ReasonExpiredAutomatically, true
		case StageAccepted:
			return StageNoShow, ReasonNoShowAutomatically, true
		case StageCheckIn:
			return StageCompleted, "", true
		}
	case TypeTour:
		if current == StageAccepted {
			return StageNoShow, ReasonNoShowAutomatically, true
		}
	}
	return "", "", false
}
