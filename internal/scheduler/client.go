package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"

	"tourvisit_backend/platform/config"
	"tourvisit_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// RedisConnOpt builds the asynq Redis connection options from config.
func RedisConnOpt(cfg config.SchedulerConfig) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if clientOpt, ok := opt.(asynq.RedisClientOpt); ok && cfg.GetRedisTLSInsecure() {
		if clientOpt.TLSConfig == nil {
			clientOpt.TLSConfig = &tls.Config{}
		}
		clientOpt.TLSConfig.InsecureSkipVerify = true
		return clientOpt, nil
	}
	return opt, nil
}

// Client enqueues background tasks.
type Client struct {
	client *asynq.Client
	queue  string
	log    *logger.Logger
}

// NewClient creates a task client.
func NewClient(cfg config.SchedulerConfig, log *logger.Logger) (*Client, error) {
	opt, err := RedisConnOpt(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		client: asynq.NewClient(opt),
		queue:  cfg.GetAsynqQueueName(),
		log:    log,
	}, nil
}

// Close releases the underlying Redis connections.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueOutboxDispatch queues an outbox drain.
func (c *Client) EnqueueOutboxDispatch(ctx context.Context, limit int) error {
	task, err := NewOutboxDispatchTask(limit)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

// EnqueueNightlyReminder queues the nightly reminder run.
func (c *Client) EnqueueNightlyReminder(ctx context.Context) error {
	task, err := NewNightlyReminderTask()
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

// EnqueueExpirySweep queues one sweep pass.
func (c *Client) EnqueueExpirySweep(ctx context.Context, batchSize int) error {
	task, err := NewExpirySweepTask(batchSize)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task) error {
	info, err := c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	c.log.Debug("task enqueued", "type", task.Type(), "task_id", info.ID, "queue", info.Queue)
	return nil
}
