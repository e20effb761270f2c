package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tourvisit_backend/internal/notification"
	siteservice "tourvisit_backend/internal/sites/service"
	visitdomain "tourvisit_backend/internal/visits/domain"
	visitrepo "tourvisit_backend/internal/visits/repository"
	visitservice "tourvisit_backend/internal/visits/service"
	"tourvisit_backend/platform/config"
	"tourvisit_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultDispatchLimit = 100

// Worker consumes background tasks.
type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	visits     *visitservice.Service
	sites      *siteservice.Service
	dispatcher *notification.Dispatcher
	outbox     *notification.Outbox
	composer   notification.Composer
	batchSize  int
	log        *logger.Logger
}

// NewWorker creates the asynq worker with its handlers registered.
func NewWorker(
	cfg config.SchedulerConfig,
	sweepCfg config.SweepConfig,
	visits *visitservice.Service,
	sites *siteservice.Service,
	dispatcher *notification.Dispatcher,
	outbox *notification.Outbox,
	composer notification.Composer,
	log *logger.Logger,
) (*Worker, error) {
	opt, err := RedisConnOpt(cfg)
	if err != nil {
		return nil, err
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: cfg.GetAsynqConcurrency(),
		Queues:      map[string]int{cfg.GetAsynqQueueName(): 1},
		Logger:      asynqLogger{log},
	})

	w := &Worker{
		server:     server,
		mux:        asynq.NewServeMux(),
		visits:     visits,
		sites:      sites,
		dispatcher: dispatcher,
		outbox:     outbox,
		composer:   composer,
		batchSize:  sweepCfg.GetSweepBatchSize(),
		log:        log,
	}

	w.mux.HandleFunc(TypeNightlyReminder, w.handleNightlyReminder)
	w.mux.HandleFunc(TypeOutboxDispatch, w.handleOutboxDispatch)
	w.mux.HandleFunc(TypeExpirySweep, w.handleExpirySweep)

	return w, nil
}

// Run blocks processing tasks until the context is cancelled.
func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

// Shutdown stops the worker gracefully.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// handleNightlyReminder sends a reminder for every accepted visit scheduled
// on the next site-local calendar day.
func (w *Worker) handleNightlyReminder(ctx context.Context, _ *asynq.Task) error {
	sites, err := w.sites.List(ctx)
	if err != nil {
		return err
	}

	reminders := 0
	for i := range sites {
		site := &sites[i]
		loc := w.sites.Location(site)
		now := time.Now().In(loc)
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
		dayEnd := dayStart.AddDate(0, 0, 1)

		stage := visitdomain.StageAccepted
		visits, err := w.visits.List(ctx, visitrepo.ListFilter{
			SiteID: &site.ID,
			Stage:  &stage,
			From:   &dayStart,
			To:     &dayEnd,
		})
		if err != nil {
			w.log.Warn("nightly reminder failed for site, skipping", "site_id", site.ID, "error", err)
			continue
		}

		for _, visit := range visits {
			if visit.ContactEmail == "" {
				continue
			}
			msg := w.composer.VisitReminder(visit.ContactName, site.Name, visit.StartTime)
			msg.Recipient = visit.ContactEmail
			if err := w.outbox.Enqueue(ctx, msg); err != nil {
				w.log.Warn("failed to enqueue reminder", "visit_id", visit.ID, "error", err)
				continue
			}
			reminders++
		}
	}

	w.log.Info("nightly reminders queued", "count", reminders)
	return nil
}

func (w *Worker) handleOutboxDispatch(ctx context.Context, task *asynq.Task) error {
	var payload OutboxDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal outbox dispatch payload: %w", err)
	}
	limit := payload.Limit
	if limit <= 0 {
		limit = defaultDispatchLimit
	}

	sent, err := w.dispatcher.Dispatch(ctx, limit)
	if err != nil {
		return err
	}
	if sent > 0 {
		w.log.Info("notifications dispatched", "sent", sent)
	}
	return nil
}

func (w *Worker) handleExpirySweep(ctx context.Context, task *asynq.Task) error {
	var payload ExpirySweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal expiry sweep payload: %w", err)
	}
	batchSize := payload.BatchSize
	if batchSize <= 0 {
		batchSize = w.batchSize
	}
	return w.visits.SweepAllSites(ctx, batchSize)
}

// asynqLogger adapts the structured logger to asynq's logging interface.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Error(fmt.Sprint(args...)) }
