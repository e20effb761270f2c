// Package notification turns domain events into outbound messages. Messages
// are written to an outbox table first; delivery happens out of band so a
// mail outage never blocks or rolls back a booking.
package notification

import (
	"fmt"
	"time"
)

// Message is one composed notification ready for the outbox.
type Message struct {
	Recipient string
	Subject   string
	Body      string
}

// Composer builds the notification messages sent by the engine. The default
// implementation writes plain text; deployments can swap in a templated one.
type Composer interface {
	BookingConfirmation(contactName, siteName string, visitType string, start, end time.Time, totalVisitors int) Message
	StageChanged(contactName, siteName string, fromStage, toStage, reason string, start time.Time) Message
	VisitReminder(contactName, siteName string, start time.Time) Message
}

// TextComposer is the plain-text Composer used by default.
type TextComposer struct{}

// NewTextComposer creates the default composer.
func NewTextComposer() *TextComposer {
	return &TextComposer{}
}

const timeLayout = "Monday 2 January 2006 at 15:04"

func (TextComposer) BookingConfirmation(contactName, siteName, visitType string, start, end time.Time, totalVisitors int) Message {
	return Message{
		Subject: fmt.Sprintf("Booking confirmed at %s", siteName),
		Body: fmt.Sprintf(
			"Dear %s,\n\nYour %s booking at %s has been received.\n\nWhen: %s until %s\nGroup size: %d\n\nWe look forward to welcoming you.",
			contactName, visitType, siteName,
			start.Format(timeLayout), end.Format("15:04"), totalVisitors),
	}
}

func (TextComposer) StageChanged(contactName, siteName, fromStage, toStage, reason string, start time.Time) Message {
	body := fmt.Sprintf(
		"Dear %s,\n\nThe status of your booking at %s on %s changed from %s to %s.",
		contactName, siteName, start.Format(timeLayout), fromStage, toStage)
	if reason != "" {
		body += "\nReason: " + reason
	}
	return Message{
		Subject: fmt.Sprintf("Booking update from %s", siteName),
		Body:    body,
	}
}

func (TextComposer) VisitReminder(contactName, siteName string, start time.Time) Message {
	return Message{
		Subject: fmt.Sprintf("Reminder: your visit to %s", siteName),
		Body: fmt.Sprintf(
			"Dear %s,\n\nThis is a reminder of your visit to %s on %s.",
			contactName, siteName, start.Format(timeLayout)),
	}
}
