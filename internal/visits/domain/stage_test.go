package domain

import (
	"testing"
	"time"

	"tourvisit_backend/platform/apperr"
)

// Times used by the temporal guard tests. The visit runs 10:00-12:00 on
// 2024-03-15 UTC.
var (
	visitStart = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	visitEnd   = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
)

func TestValidateTransitionRules(t *testing.T) {
	afterEnd := visitEnd.Add(2 * time.Hour)

	tests := []struct {
		name     string
		vtype    VisitType
		current  Stage
		target   Stage
		now      time.Time
		wantKind apperr.Kind
	}{
		{"pending resubmission allowed", TypeVisit, StagePending, StagePending, visitStart, apperr.KindUnknown},
		{"already in stage", TypeVisit, StageAccepted, StageAccepted, visitStart, apperr.KindConflict},
		{"terminal stage locked", TypeVisit, StageCancelled, StageAccepted, visitStart, apperr.KindInvalidTransition},
		{"closed stage locked", TypeVisit, StageClosed, StageCancelled, visitStart, apperr.KindInvalidTransition},
		{"backward move rejected", TypeVisit, StageCheckIn, StageAccepted, visitStart, apperr.KindInvalidTransition},
		{"pending to accepted", TypeVisit, StagePending, StageAccepted, visitStart, apperr.KindUnknown},
		{"pending skips to check-in rejected", TypeVisit, StagePending, StageCheckIn, visitStart, apperr.KindInvalidTransition},
		{"accepted to check-in on the day", TypeVisit, StageAccepted, StageCheckIn, visitStart, apperr.KindUnknown},
		{"check-in on wrong day", TypeVisit, StageAccepted, StageCheckIn, visitStart.AddDate(0, 0, -1), apperr.KindInvalidTransition},
		{"complete before end date", TypeVisit, StageCheckIn, StageCompleted, visitEnd.AddDate(0, 0, -1), apperr.KindInvalidTransition},
		{"complete on end date", TypeVisit, StageCheckIn, StageCompleted, afterEnd, apperr.KindUnknown},
		{"complete from accepted", TypeVisit, StageAccepted, StageCompleted, afterEnd, apperr.KindUnknown},
		{"close completed visit", TypeVisit, StageCompleted, StageClosed, afterEnd, apperr.KindUnknown},
		{"decline pending", TypeVisit, StagePending, StageDeclined, visitStart, apperr.KindUnknown},
		{"decline accepted rejected", TypeVisit, StageAccepted, StageDeclined, visitStart, apperr.KindInvalidTransition},
		{"cancel checked-in visit", TypeVisit, StageCheckIn, StageCancelled, visitStart, apperr.KindUnknown},
		{"tour cancel from check-in rejected", TypeTour, StageCheckIn, StageCancelled, visitStart, apperr.KindInvalidTransition},
		{"tour expired not reachable", TypeTour, StagePending, StageExpired, afterEnd, apperr.KindInvalidTransition},
		{"no-show from accepted", TypeVisit, StageAccepted, StageNoShow, afterEnd, apperr.KindUnknown},
		{"unknown stage", TypeVisit, StagePending, Stage("ARCHIVED"), visitStart, apperr.KindValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTransition(TransitionRequest{
				Current: tc.current,
				Target:  tc.target,
				Type:    tc.vtype,
				Start:   visitStart,
				End:     visitEnd,
				Now:     tc.now,
			})

			if tc.wantKind == apperr.KindUnknown {
				if err != nil {
					t.Fatalf("expected transition %s -> %s to be allowed, got %v", tc.current, tc.target, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected transition %s -> %s to fail with kind %d", tc.current, tc.target, tc.wantKind)
			}
			if got := apperr.GetKind(err); got != tc.wantKind {
				t.Errorf("transition %s -> %s: kind = %d, want %d (%v)", tc.current, tc.target, got, tc.wantKind, err)
			}
		})
	}
}

// TestStageOrderMonotonic verifies that every allowed predecessor pair keeps
// non-decreasing order values, so accepted stage histories are monotonic
// except for moves into absorbing stages.
func TestStageOrderMonotonic(t *testing.T) {
	for vtype, table := range allowedPredecessors {
		for target, predecessors := range table {
			for _, from := range predecessors {
				if IsTerminal(target) {
					continue
				}
				if Order(target) < Order(from) {
					t.Errorf("%s: allowed transition %s -> %s decreases order (%d -> %d)",
						vtype, from, target, Order(from), Order(target))
				}
			}
		}
	}
}

func TestSweepTarget(t *testing.T) {
	tests := []struct {
		vtype      VisitType
		current    Stage
		wantStage  Stage
		wantReason string
		wantOK     bool
	}{
		{TypeVisit, StagePending, StageExpired, ReasonExpiredAutomatically, true},
		{TypeVisit, StageAccepted, StageNoShow, ReasonNoShowAutomatically, true},
		{TypeVisit, StageCheckIn, StageCompleted, "", true},
		{TypeVisit, StageCompleted, "", "", false},
		{TypeVisit, StageCancelled, "", "", false},
		{TypeTour, StageAccepted, StageNoShow, ReasonNoShowAutomatically, true},
		{TypeTour, StagePending, "", "", false},
		{TypeTour, StageCheckIn, "", "", false},
	}

	for _, tc := range tests {
		stage, reason, ok := SweepTarget(tc.vtype, tc.current)
		if ok != tc.wantOK || stage != tc.wantStage || reason != tc.wantReason {
			t.Errorf("SweepTarget(%s, %s) = (%s, %q, %v), want (%s, %q, %v)",
				tc.vtype, tc.current, stage, reason, ok, tc.wantStage, tc.wantReason, tc.wantOK)
		}
	}
}

// TestSweepIdempotent checks that sweeping a visit a second time, after the
// first sweep moved it, is always a no-op.
func TestSweepIdempotent(t *testing.T) {
	for _, vtype := range []VisitType{TypeVisit, TypeTour} {
		for _, start := range []Stage{StagePending, StageAccepted, StageCheckIn} {
			target, _, ok := SweepTarget(vtype, start)
			if !ok {
				continue
			}
			if _, _, again := SweepTarget(vtype, target); again {
				t.Errorf("sweep of %s %s moved to %s, which the sweep would move again", vtype, start, target)
			}
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []Stage{StageClosed, StageCancelled, StageDeclined, StageExpired, StageNoShow}
	for _, s := range terminal {
		if !IsTerminal(s) {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Stage{StagePending, StageAccepted, StageCheckIn, StageCompleted} {
		if IsTerminal(s) {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}
