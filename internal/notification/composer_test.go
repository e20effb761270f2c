package notification

import (
	"strings"
	"testing"
	"time"
)

func TestTextComposer(t *testing.T) {
	c := NewTextComposer()
	start := time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	msg := c.BookingConfirmation("Jan de Vries", "Keukenhof", "TOUR", start, end, 4)
	if !strings.Contains(msg.Subject, "Keukenhof") {
		t.Errorf("confirmation subject missing site name: %q", msg.Subject)
	}
	for _, want := range []string{"Jan de Vries", "TOUR", "Group size: 4"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("confirmation body missing %q:\n%s", want, msg.Body)
		}
	}

	msg = c.StageChanged("Jan de Vries", "Keukenhof", "PENDING", "DECLINED", "fully booked", start)
	for _, want := range []string{"PENDING", "DECLINED", "Reason: fully booked"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("stage change body missing %q:\n%s", want, msg.Body)
		}
	}

	msg = c.StageChanged("Jan de Vries", "Keukenhof", "PENDING", "ACCEPTED", "", start)
	if strings.Contains(msg.Body, "Reason:") {
		t.Errorf("empty reason should not be rendered:\n%s", msg.Body)
	}

	msg = c.VisitReminder("Jan de Vries", "Keukenhof", start)
	if !strings.Contains(msg.Body, "reminder") {
		t.Errorf("reminder body unexpected:\n%s", msg.Body)
	}
}
