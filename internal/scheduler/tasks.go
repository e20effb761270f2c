// Package scheduler runs the background work of the engine: the periodic
// visit expiry sweep, nightly visit reminders and outbox dispatch, built on
// asynq over Redis.
package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type names.
const (
	TypeNightlyReminder = "notification:nightly_reminder"
	TypeOutboxDispatch  = "notification:dispatch_outbox"
	TypeExpirySweep     = "visits:expiry_sweep"
)

// NightlyReminderPayload triggers reminder composition for the visits of the
// next calendar day.
type NightlyReminderPayload struct{}

// OutboxDispatchPayload drains up to Limit pending notifications.
type OutboxDispatchPayload struct {
	Limit int `json:"limit"`
}

// ExpirySweepPayload runs one sweep pass over all sites.
type ExpirySweepPayload struct {
	BatchSize int `json:"batchSize"`
}

// NewNightlyReminderTask builds the nightly reminder task.
func NewNightlyReminderTask() (*asynq.Task, error) {
	payload, err := json.Marshal(NightlyReminderPayload{})
	if err != nil {
		return nil, fmt.Errorf("marshal nightly reminder payload: %w", err)
	}
	return asynq.NewTask(TypeNightlyReminder, payload), nil
}

// NewOutboxDispatchTask builds an outbox dispatch task.
func NewOutboxDispatchTask(limit int) (*asynq.Task, error) {
	payload, err := json.Marshal(OutboxDispatchPayload{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("marshal outbox dispatch payload: %w", err)
	}
	return asynq.NewTask(TypeOutboxDispatch, payload), nil
}

// NewExpirySweepTask builds an expiry sweep task.
func NewExpirySweepTask(batchSize int) (*asynq.Task, error) {
	payload, err := json.Marshal(ExpirySweepPayload{BatchSize: batchSize})
	if err != nil {
		return nil, fmt.Errorf("marshal expiry sweep payload: %w", err)
	}
	return asynq.NewTask(TypeExpirySweep, payload), nil
}
