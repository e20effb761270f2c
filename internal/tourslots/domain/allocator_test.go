package domain

import (
	"testing"
	"time"

	"tourvisit_backend/platform/apperr"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGenerateWindowsFullDay(t *testing.T) {
	params := GenerateParams{
		RangeStart:  day(2024, 1, 1),
		RangeEnd:    day(2024, 1, 2),
		OpenMinute:  9 * 60,
		CloseMinute: 17 * 60,
		IntervalMin: 60,
		Granularity: 30,
		Location:    time.UTC,
	}

	windows, err := GenerateWindows(params)
	if err != nil {
		t.Fatalf("GenerateWindows: %v", err)
	}
	if len(windows) != 8 {
		t.Fatalf("expected 8 one-hour windows for a 09:00-17:00 day, got %d", len(windows))
	}

	for i, w := range windows {
		wantStart := day(2024, 1, 1).Add(time.Duration(9+i) * time.Hour)
		if !w.Start.Equal(wantStart) || !w.End.Equal(wantStart.Add(time.Hour)) {
			t.Errorf("window %d = [%v, %v], want [%v, %v]", i, w.Start, w.End, wantStart, wantStart.Add(time.Hour))
		}
	}

	// Generation is deterministic: a second run yields the identical set.
	again, err := GenerateWindows(params)
	if err != nil {
		t.Fatalf("GenerateWindows (second run): %v", err)
	}
	if len(again) != len(windows) {
		t.Fatalf("second run produced %d windows, first %d", len(again), len(windows))
	}
	for i := range windows {
		if !windows[i].Start.Equal(again[i].Start) || !windows[i].End.Equal(again[i].End) {
			t.Errorf("window %d differs between runs", i)
		}
	}
}

func TestGenerateWindowsMultipleDays(t *testing.T) {
	windows, err := GenerateWindows(GenerateParams{
		RangeStart:  day(2024, 1, 1),
		RangeEnd:    day(2024, 1, 3),
		OpenMinute:  9 * 60,
		CloseMinute: 17 * 60,
		IntervalMin: 60,
		Granularity: 60,
		Location:    time.UTC,
	})
	if err != nil {
		t.Fatalf("GenerateWindows: %v", err)
	}
	if len(windows) != 16 {
		t.Fatalf("expected 16 windows over two days, got %d", len(windows))
	}
	if got := windows[8].Start; !got.Equal(day(2024, 1, 2).Add(9 * time.Hour)) {
		t.Errorf("second day first window starts at %v", got)
	}
}

func TestGenerateWindowsPartialFirstDay(t *testing.T) {
	windows, err := GenerateWindows(GenerateParams{
		RangeStart:  day(2024, 1, 1).Add(11*time.Hour + 30*time.Minute),
		RangeEnd:    day(2024, 1, 2),
		OpenMinute:  9 * 60,
		CloseMinute: 17 * 60,
		IntervalMin: 60,
		Granularity: 60,
		Location:    time.UTC,
	})
	if err != nil {
		t.Fatalf("GenerateWindows: %v", err)
	}
	// The grid stays anchored to the operating window, so the first window
	// after 11:30 starts at 12:00.
	if len(windows) != 5 {
		t.Fatalf("expected 5 windows from 12:00, got %d", len(windows))
	}
	if !windows[0].Start.Equal(day(2024, 1, 1).Add(12 * time.Hour)) {
		t.Errorf("first window starts at %v, want 12:00", windows[0].Start)
	}
}

func TestGenerateWindowsClipsMidnight(t *testing.T) {
	windows, err := GenerateWindows(GenerateParams{
		RangeStart:  day(2024, 1, 1),
		RangeEnd:    day(2024, 1, 2),
		OpenMinute:  22 * 60,
		CloseMinute: 24 * 60,
		IntervalMin: 120,
		Granularity: 60,
		Location:    time.UTC,
	})
	if err != nil {
		t.Fatalf("GenerateWindows: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	want := time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC)
	if !windows[0].End.Equal(want) {
		t.Errorf("window end = %v, want clipped %v", windows[0].End, want)
	}
}

func TestGenerateWindowsRejectsBadInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval int
		gran     int
	}{
		{"not a multiple of granularity", 45, 30},
		{"zero interval", 0, 30},
		{"negative interval", -60, 30},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GenerateWindows(GenerateParams{
				RangeStart:  day(2024, 1, 1),
				RangeEnd:    day(2024, 1, 2),
				OpenMinute:  9 * 60,
				CloseMinute: 17 * 60,
				IntervalMin: tc.interval,
				Granularity: tc.gran,
				Location:    time.UTC,
			})
			if apperr.GetKind(err) != apperr.KindValidation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCheckAvailability(t *testing.T) {
	tests := []struct {
		name      string
		stage     SlotStage
		max       int
		booked    int
		requested int
		wantCodes []string
	}{
		{"free active slot", SlotActive, 10, 0, 2, nil},
		{"fits remaining capacity", SlotPartially, 10, 7, 3, nil},
		{"full slot", SlotBooked, 10, 10, 1, []string{ViolationNotBookable, ViolationCapacityExceeded}},
		{"inactive slot with room", SlotInactive, 10, 0, 1, []string{ViolationNotBookable}},
		{"active but over capacity", SlotActive, 10, 8, 3, []string{ViolationCapacityExceeded}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CheckAvailability(tc.stage, tc.max, tc.booked, tc.requested)
			if len(got) != len(tc.wantCodes) {
				t.Fatalf("got %d violations %v, want %d", len(got), got, len(tc.wantCodes))
			}
			for i, v := range got {
				if v.Code != tc.wantCodes[i] {
					t.Errorf("violation %d code = %s, want %s", i, v.Code, tc.wantCodes[i])
				}
			}
		})
	}
}

func TestDeriveStage(t *testing.T) {
	tests := []struct {
		name       string
		configured SlotStage
		booked     int
		max        int
		want       SlotStage
	}{
		{"empty keeps configured active", SlotActive, 0, 10, SlotActive},
		{"empty keeps configured inactive", SlotInactive, 0, 10, SlotInactive},
		{"below half", SlotActive, 4, 10, SlotActive},
		{"exactly half", SlotActive, 5, 10, SlotPartially},
		{"above half", SlotActive, 9, 10, SlotPartially},
		{"full", SlotActive, 10, 10, SlotBooked},
		{"over full", SlotActive, 12, 10, SlotBooked},
		{"single guest single capacity", SlotActive, 1, 1, SlotBooked},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStage(tc.configured, tc.booked, tc.max); got != tc.want {
				t.Errorf("DeriveStage(%s, %d, %d) = %s, want %s", tc.configured, tc.booked, tc.max, got, tc.want)
			}
		})
	}
}

func TestOverlapsInclusive(t *testing.T) {
	base := day(2024, 1, 1)
	at := func(h, m int) time.Time { return base.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	tests := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		want           bool
	}{
		{"partial overlap", at(10, 0), at(11, 0), at(10, 30), at(11, 30), true},
		{"touching boundaries overlap", at(10, 0), at(11, 0), at(11, 0), at(12, 0), true},
		{"contained", at(10, 0), at(12, 0), at(10, 30), at(11, 0), true},
		{"disjoint", at(10, 0), at(11, 0), at(11, 1), at(12, 0), false},
		{"reversed order disjoint", at(13, 0), at(14, 0), at(10, 0), at(12, 59), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.s1, tc.e1, tc.s2, tc.e2); got != tc.want {
				t.Errorf("Overlaps = %v, want %v", got, tc.want)
			}
		})
	}
}
