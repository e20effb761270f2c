// Package domain provides the pure slot-allocation rules: partitioning a
// site's operating hours into bookable windows, deriving slot stage from
// occupancy, and checking guest capacity.
package domain

import (
	"fmt"
	"time"

	"tourvisit_backend/platform/apperr"
)

// SlotStage is the lifecycle state of a tour slot.
type SlotStage string

const (
	SlotInactive  SlotStage = "INACTIVE"
	SlotActive    SlotStage = "ACTIVE"
	SlotPartially SlotStage = "PARTIALLY"
	SlotBooked    SlotStage = "BOOKED"
)

// IsKnownSlotStage reports whether the value is a recognized slot stage.
func IsKnownSlotStage(s SlotStage) bool {
	switch s {
	case SlotInactive, SlotActive, SlotPartially, SlotBooked:
		return true
	}
	return false
}

// Bookable reports whether a slot in this stage accepts new guests.
func (s SlotStage) Bookable() bool {
	return s == SlotActive || s == SlotPartially
}

// Window is one generated slot interval.
type Window struct {
	Start time.Time
	End   time.Time
}

// GenerateParams describes one slot generation request. Open and Close are
// the site's daily operating window in minutes from midnight; RangeEnd is
// exclusive. Granularity is the site's configured base granularity.
type GenerateParams struct {
	RangeStart  time.Time
	RangeEnd    time.Time
	OpenMinute  int
	CloseMinute int
	IntervalMin int
	Granularity int
	Location    *time.Location
}

// GenerateWindows emits consecutive windows of IntervalMin length for every
// day in the range, clamped to the operating window. The first day starts at
// RangeStart when that falls inside the operating window. A window whose end
// would cross midnight is clipped to 23:59:59 of its start day.
func GenerateWindows(p GenerateParams) ([]Window, error) {
	if p.IntervalMin <= 0 || p.Granularity <= 0 || p.IntervalMin%p.Granularity != 0 {
		return nil, apperr.Validation(fmt.Sprintf(
			"interval of %d minutes is not a multiple of the site granularity of %d minutes",
			p.IntervalMin, p.Granularity))
	}
	if !p.RangeEnd.After(p.RangeStart) {
		return nil, apperr.Validation("date range end must be after its start")
	}
	if p.CloseMinute <= p.OpenMinute {
		return nil, apperr.Validation("site operating window is empty")
	}

	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}

	rangeStart := p.RangeStart.In(loc)
	rangeEnd := p.RangeEnd.In(loc)
	interval := time.Duration(p.IntervalMin) * time.Minute

	var windows []Window
	for day := dateOf(rangeStart); day.Before(rangeEnd); day = day.AddDate(0, 0, 1) {
		dayOpen := day.Add(time.Duration(p.OpenMinute) * time.Minute)
		dayClose := day.Add(time.Duration(p.CloseMinute) * time.Minute)

		cursor := dayOpen
		if cursor.Before(rangeStart) {
			cursor = alignToInterval(dayOpen, rangeStart, interval)
		}

		for ; !cursor.Add(interval).After(dayClose); cursor = cursor.Add(interval) {
			end := cursor.Add(interval)
			if endOfDay := day.Add(24*time.Hour - time.Second); end.After(endOfDay) {
				end = endOfDay
			}
			if cursor.Before(rangeEnd) {
				windows = append(windows, Window{Start: cursor, End: end})
			}
		}
	}

	return windows, nil
}

// alignToInterval advances dayOpen in whole intervals until it is not
// before the requested range start, keeping the slot grid anchored to the
// operating window.
func alignToInterval(dayOpen, rangeStart time.Time, interval time.Duration) time.Time {
	cursor := dayOpen
	for cursor.Before(rangeStart) {
		cursor = cursor.Add(interval)
	}
	return cursor
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Overlaps reports whether two windows overlap under the inclusive rule
// used across the engine: s1 <= e2 AND e1 >= s2.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return !s1.After(e2) && !e1.Before(s2)
}

// Violation codes for availability checks.
const (
	ViolationNotBookable      = "SLOT_NOT_BOOKABLE"
	ViolationCapacityExceeded = "SLOT_CAPACITY_EXCEEDED"
)

// Violation describes one reason a slot cannot take a booking.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CheckAvailability returns the violations preventing requestedGuests from
// joining a slot. booked must be the freshly computed sum of totalVisitors
// over non-cancelled visits referencing the slot.
func CheckAvailability(stage SlotStage, maxGuestSize, booked, requestedGuests int) []Violation {
	var violations []Violation

	if !stage.Bookable() {
		violations = append(violations, Violation{
			Code:    ViolationNotBookable,
			Message: fmt.Sprintf("slot stage %s does not accept bookings", stage),
		})
	}

	if maxGuestSize-booked < requestedGuests {
		violations = append(violations, Violation{
			Code: ViolationCapacityExceeded,
			Message: fmt.Sprintf("slot has %d of %d guests booked; cannot add %d more",
				booked, maxGuestSize, requestedGuests),
		})
	}

	return violations
}

// DeriveStage computes the occupancy-derived stage after a booking or
// capacity change. With no guests booked the configured stage is kept, so an
// operator's INACTIVE is never silently resurrected.
func DeriveStage(configured SlotStage, booked, maxGuestSize int) SlotStage {
	if booked <= 0 {
		return configured
	}
	if booked >= maxGuestSize {
		return SlotBooked
	}
	if booked*2 >= maxGuestSize {
		return SlotPartially
	}
	return SlotActive
}
