package notification

import (
	"context"

	"tourvisit_backend/platform/logger"
)

// Dispatcher drains the outbox through a Sender. It runs from the scheduler
// worker, never from request handlers.
type Dispatcher struct {
	outbox *Outbox
	sender Sender
	log    *logger.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(outbox *Outbox, sender Sender, log *logger.Logger) *Dispatcher {
	return &Dispatcher{outbox: outbox, sender: sender, log: log}
}

// Dispatch delivers up to limit pending notifications. A failed delivery is
// recorded on the entry and does not abort the run.
func (d *Dispatcher) Dispatch(ctx context.Context, limit int) (sent int, err error) {
	entries, err := d.outbox.ListPending(ctx, limit)
	if err != nil {
		return 0, err
	}

	for _, entry := range entries {
		msg := Message{Recipient: entry.Recipient, Subject: entry.Subject, Body: entry.Body}
		if sendErr := d.sender.Send(ctx, msg); sendErr != nil {
			d.log.Warn("notification delivery failed",
				"notification_id", entry.ID, "recipient", entry.Recipient, "error", sendErr)
			if markErr := d.outbox.MarkFailed(ctx, entry.ID, sendErr); markErr != nil {
				return sent, markErr
			}
			continue
		}
		if markErr := d.outbox.MarkSent(ctx, entry.ID); markErr != nil {
			return sent, markErr
		}
		sent++
	}

	return sent, nil
}
