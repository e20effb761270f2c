package domain

import (
	"testing"
	"time"

	"tourvisit_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestScopeValidate(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		scope   Scope
		wantErr bool
	}{
		{"visit scope", Scope{VisitID: &id}, false},
		{"visit service scope", Scope{VisitServiceID: &id}, false},
		{"tour slot scope", Scope{TourSlotID: &id}, false},
		{"empty scope", Scope{}, true},
		{"two targets", Scope{VisitID: &id, TourSlotID: &id}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.scope.Validate()
			if tc.wantErr && apperr.GetKind(err) != apperr.KindValidation {
				t.Errorf("expected validation error, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateBatch(t *testing.T) {
	personA := uuid.New()
	personB := uuid.New()
	roleGuide := uuid.New()
	roleDriver := uuid.New()

	if err := ValidateBatch([]AssignmentRequest{
		{PersonnelID: personA, RoleID: roleGuide},
		{PersonnelID: personB, RoleID: roleGuide},
		{PersonnelID: personA, RoleID: roleDriver},
	}); err != nil {
		t.Errorf("distinct pairs should pass, got %v", err)
	}

	err := ValidateBatch([]AssignmentRequest{
		{PersonnelID: personA, RoleID: roleGuide},
		{PersonnelID: personA, RoleID: roleGuide},
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("duplicate pair should fail with validation error, got %v", err)
	}
}

func TestFindDuplicateRoles(t *testing.T) {
	personA := uuid.New()
	personB := uuid.New()
	roleCoordinator := uuid.New()
	roleGuide := uuid.New()
	roleHost := uuid.New()

	checked := map[uuid.UUID]bool{
		roleCoordinator: true,
		roleGuide:       true,
		roleHost:        false,
	}

	tests := []struct {
		name  string
		batch []AssignmentRequest
		want  []uuid.UUID
	}{
		{
			"two checked roles for one person",
			[]AssignmentRequest{
				{PersonnelID: personA, RoleID: roleCoordinator},
				{PersonnelID: personA, RoleID: roleGuide},
			},
			[]uuid.UUID{personA},
		},
		{
			"checked plus unchecked role is allowed",
			[]AssignmentRequest{
				{PersonnelID: personA, RoleID: roleGuide},
				{PersonnelID: personA, RoleID: roleHost},
			},
			nil,
		},
		{
			"different people may share a role",
			[]AssignmentRequest{
				{PersonnelID: personA, RoleID: roleGuide},
				{PersonnelID: personB, RoleID: roleGuide},
			},
			nil,
		},
		{
			"three checked roles report the person once",
			[]AssignmentRequest{
				{PersonnelID: personA, RoleID: roleCoordinator},
				{PersonnelID: personA, RoleID: roleGuide},
				{PersonnelID: personA, RoleID: uuid.Nil},
				{PersonnelID: personB, RoleID: roleCoordinator},
				{PersonnelID: personB, RoleID: roleGuide},
			},
			[]uuid.UUID{personA, personB},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FindDuplicateRoles(tc.batch, checked)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d duplicates, got %v", len(tc.want), got)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("duplicate %d: expected %s, got %s", i, tc.want[i], got[i])
				}
			}
		})
	}
}

func TestDuplicateRoleError(t *testing.T) {
	if err := DuplicateRoleError(nil); err != nil {
		t.Errorf("no duplicates should yield nil, got %v", err)
	}

	err := DuplicateRoleError([]uuid.UUID{uuid.New()})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestFindConflicts(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2024, 1, 1, h, m, 0, 0, time.UTC)
	}
	person := uuid.New()

	busy := []BusyInterval{
		{PersonnelID: person, Start: at(10, 0), End: at(11, 0), Description: "garden tour"},
	}

	// [10:00, 11:00] vs [10:30, 11:30] overlaps.
	got := FindConflicts(at(10, 30), at(11, 30), busy)
	if len(got) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(got))
	}
	if got[0].PersonnelID != person || got[0].Description != "garden tour" {
		t.Errorf("conflict does not carry the blocking commitment: %+v", got[0])
	}

	// Sharing only a boundary instant still conflicts.
	if got := FindConflicts(at(11, 0), at(12, 0), busy); len(got) != 1 {
		t.Errorf("boundary touch should conflict, got %d conflicts", len(got))
	}

	if got := FindConflicts(at(11, 1), at(12, 0), busy); len(got) != 0 {
		t.Errorf("disjoint window should not conflict, got %v", got)
	}
}

func TestConflictError(t *testing.T) {
	if err := ConflictError(nil); err != nil {
		t.Errorf("no conflicts should yield nil, got %v", err)
	}

	conflicts := []Conflict{{PersonnelID: uuid.New()}}
	err := ConflictError(conflicts)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict kind, got %v", err)
	}
	typed := err.(*apperr.Error)
	if details, ok := typed.Details.([]Conflict); !ok || len(details) != 1 {
		t.Errorf("error details should carry the conflict list, got %#v", typed.Details)
	}
}
