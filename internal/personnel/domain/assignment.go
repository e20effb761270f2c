// Package domain holds the pure assignment rules: scope shape, duplicate-role
// detection within a batch, and interval conflict detection for personnel
// whose roles require an availability check.
package domain

import (
	"fmt"
	"time"

	"tourvisit_backend/platform/apperr"

	"github.com/google/uuid"
)

// Scope identifies what an assignment attaches to. Exactly one of the three
// references must be set.
type Scope struct {
	VisitID        *uuid.UUID
	VisitServiceID *uuid.UUID
	TourSlotID     *uuid.UUID
}

// Validate rejects scopes that reference zero or multiple targets.
func (s Scope) Validate() error {
	count := 0
	if s.VisitID != nil {
		count++
	}
	if s.VisitServiceID != nil {
		count++
	}
	if s.TourSlotID != nil {
		count++
	}
	if count != 1 {
		return apperr.Validation("assignment scope must reference exactly one of visit, visit service or tour slot")
	}
	return nil
}

// AssignmentRequest is one personnel-role pair inside a batch.
type AssignmentRequest struct {
	PersonnelID uuid.UUID
	RoleID      uuid.UUID
}

// ValidateBatch rejects a batch in which the same personnel-role pair is
// submitted twice. Role-aware duplicate detection happens in
// FindDuplicateRoles once the role flags are loaded.
func ValidateBatch(batch []AssignmentRequest) error {
	type pair struct {
		personnel uuid.UUID
		role      uuid.UUID
	}
	seen := make(map[pair]bool, len(batch))
	for _, req := range batch {
		key := pair{req.PersonnelID, req.RoleID}
		if seen[key] {
			return apperr.Validation(fmt.Sprintf(
				"personnel %s is assigned role %s more than once in this request",
				req.PersonnelID, req.RoleID))
		}
		seen[key] = true
	}
	return nil
}

// FindDuplicateRoles returns the personnel proposed for two or more
// different availability-checked roles in one batch. The batch is not saved
// yet, so the conflict query cannot see these; without this check a person
// could be committed twice for the same window, say as guide and as driver.
// checkedRoles maps role ID to the role's availability-check flag.
func FindDuplicateRoles(batch []AssignmentRequest, checkedRoles map[uuid.UUID]bool) []uuid.UUID {
	firstRole := make(map[uuid.UUID]uuid.UUID, len(batch))
	flagged := make(map[uuid.UUID]bool)
	var duplicates []uuid.UUID

	for _, req := range batch {
		if !checkedRoles[req.RoleID] {
			continue
		}
		prev, ok := firstRole[req.PersonnelID]
		if !ok {
			firstRole[req.PersonnelID] = req.RoleID
			continue
		}
		if prev != req.RoleID && !flagged[req.PersonnelID] {
			flagged[req.PersonnelID] = true
			duplicates = append(duplicates, req.PersonnelID)
		}
	}
	return duplicates
}

// DuplicateRoleError wraps the duplicated personnel IDs in a typed error.
func DuplicateRoleError(personnelIDs []uuid.UUID) error {
	if len(personnelIDs) == 0 {
		return nil
	}
	return apperr.Validation("a person cannot fill two different availability-checked roles in one request").
		WithDetails(personnelIDs)
}

// BusyInterval is an existing commitment of a personnel member, loaded from
// assignments whose role has the availability check enabled.
type BusyInterval struct {
	PersonnelID uuid.UUID
	Start       time.Time
	End         time.Time
	Description string
}

// Conflict pairs a personnel member with the commitment that blocks them.
type Conflict struct {
	PersonnelID uuid.UUID `json:"personnelId"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description"`
}

// Overlaps applies the inclusive overlap rule: two intervals conflict when
// s1 <= e2 AND e1 >= s2, so back-to-back bookings sharing a boundary instant
// count as overlapping.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return !s1.After(e2) && !e1.Before(s2)
}

// FindConflicts returns every busy interval that overlaps the proposed
// window. Callers pre-filter busy to the personnel in the batch and exclude
// the scope being rescheduled.
func FindConflicts(start, end time.Time, busy []BusyInterval) []Conflict {
	var conflicts []Conflict
	for _, b := range busy {
		if Overlaps(start, end, b.Start, b.End) {
			conflicts = append(conflicts, Conflict{
				PersonnelID: b.PersonnelID,
				Start:       b.Start,
				End:         b.End,
				Description: b.Description,
			})
		}
	}
	return conflicts
}

// ConflictError wraps the detected conflicts in a typed error so transports
// can surface the full list.
func ConflictError(conflicts []Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}
	return apperr.Conflict("one or more personnel are not available in the requested window").WithDetails(conflicts)
}
