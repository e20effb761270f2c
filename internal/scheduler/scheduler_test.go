package scheduler

import (
	"context"
	"encoding/json"
	"testing"

	"tourvisit_backend/platform/config"
	"tourvisit_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
)

func TestTaskPayloads(t *testing.T) {
	task, err := NewOutboxDispatchTask(50)
	if err != nil {
		t.Fatalf("NewOutboxDispatchTask: %v", err)
	}
	if task.Type() != TypeOutboxDispatch {
		t.Errorf("task type = %s", task.Type())
	}
	var dispatch OutboxDispatchPayload
	if err := json.Unmarshal(task.Payload(), &dispatch); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if dispatch.Limit != 50 {
		t.Errorf("limit = %d, want 50", dispatch.Limit)
	}

	task, err = NewExpirySweepTask(200)
	if err != nil {
		t.Fatalf("NewExpirySweepTask: %v", err)
	}
	var sweep ExpirySweepPayload
	if err := json.Unmarshal(task.Payload(), &sweep); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sweep.BatchSize != 200 {
		t.Errorf("batch size = %d, want 200", sweep.BatchSize)
	}
}

func TestClientEnqueue(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := &config.Config{
		RedisURL:       "redis://" + mr.Addr(),
		AsynqQueueName: "default",
	}

	client, err := NewClient(cfg, logger.New("development"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.EnqueueOutboxDispatch(ctx, 25); err != nil {
		t.Fatalf("EnqueueOutboxDispatch: %v", err)
	}
	if err := client.EnqueueNightlyReminder(ctx); err != nil {
		t.Fatalf("EnqueueNightlyReminder: %v", err)
	}
	if err := client.EnqueueExpirySweep(ctx, 100); err != nil {
		t.Fatalf("EnqueueExpirySweep: %v", err)
	}

	// asynq stores pending task IDs in a per-queue list.
	if ids, err := mr.List("asynq:{default}:pending"); err != nil || len(ids) != 3 {
		t.Errorf("pending tasks = %d (%v), want 3", len(ids), err)
	}
}

func TestRedisConnOptRejectsBadURL(t *testing.T) {
	cfg := &config.Config{RedisURL: "not-a-url"}
	if _, err := RedisConnOpt(cfg); err == nil {
		t.Error("expected error for malformed redis url")
	}
}
