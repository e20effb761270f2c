package notification

import (
	"context"
	"time"

	"tourvisit_backend/platform/apperr"
	"tourvisit_backend/platform/db"

	"github.com/google/uuid"
)

// Outbox statuses.
const (
	StatusPending = "PENDING"
	StatusSent    = "SENT"
	StatusFailed  = "FAILED"
)

const maxAttempts = 5

// OutboxEntry is one queued notification.
type OutboxEntry struct {
	ID        uuid.UUID
	Recipient string
	Subject   string
	Body      string
	Status    string
	Attempts  int
	LastError string
	CreatedAt time.Time
	SentAt    *time.Time
}

// Outbox persists notifications until a dispatch run delivers them.
type Outbox struct {
	q db.Querier
}

// NewOutbox creates an outbox on the given querier.
func NewOutbox(q db.Querier) *Outbox {
	return &Outbox{q: q}
}

// Enqueue stores a message for later delivery.
func (o *Outbox) Enqueue(ctx context.Context, msg Message) error {
	_, err := o.q.Exec(ctx, `
		INSERT INTO notification_outbox (id, recipient, subject, body, status)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), msg.Recipient, msg.Subject, msg.Body, StatusPending)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to enqueue notification", err)
	}
	return nil
}

// ListPending returns deliverable entries oldest first. Entries that have
// exhausted their attempts stay FAILED and are skipped.
func (o *Outbox) ListPending(ctx context.Context, limit int) ([]OutboxEntry, error) {
	rows, err := o.q.Query(ctx, `
		SELECT id, recipient, subject, body, status, attempts, last_error, created_at, sent_at
		FROM notification_outbox
		WHERE status = $1 AND attempts < $2
		ORDER BY created_at
		LIMIT $3`, StatusPending, maxAttempts, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list pending notifications", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.Recipient, &e.Subject, &e.Body, &e.Status,
			&e.Attempts, &e.LastError, &e.CreatedAt, &e.SentAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to scan notification", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkSent records a successful delivery.
func (o *Outbox) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := o.q.Exec(ctx, `
		UPDATE notification_outbox
		SET status = $2, sent_at = now(), attempts = attempts + 1
		WHERE id = $1`, id, StatusSent)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to mark notification sent", err)
	}
	return nil
}

// MarkFailed records a delivery failure. After maxAttempts the entry flips
// to FAILED and leaves the dispatch set.
func (o *Outbox) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	_, err := o.q.Exec(ctx, `
		UPDATE notification_outbox
		SET attempts = attempts + 1,
		    last_error = $2,
		    status = CASE WHEN attempts + 1 >= $3 THEN $4 ELSE status END
		WHERE id = $1`, id, cause.Error(), maxAttempts, StatusFailed)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to mark notification failed", err)
	}
	return nil
}
