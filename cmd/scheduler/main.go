// The scheduler binary runs the background workers: the visit expiry sweep,
// the asynq task worker and the periodic task schedule.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	lookuprepo "tourvisit_backend/internal/lookups/repository"
	lookupservice "tourvisit_backend/internal/lookups/service"
	"tourvisit_backend/internal/notification"
	personnelrepo "tourvisit_backend/internal/personnel/repository"
	"tourvisit_backend/internal/scheduler"
	siterepo "tourvisit_backend/internal/sites/repository"
	siteservice "tourvisit_backend/internal/sites/service"
	slotrepo "tourvisit_backend/internal/tourslots/repository"
	visitrepo "tourvisit_backend/internal/visits/repository"
	visitservice "tourvisit_backend/internal/visits/service"
	"tourvisit_backend/platform/config"
	"tourvisit_backend/platform/db"
	"tourvisit_backend/platform/events"
	"tourvisit_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	bus := events.NewInMemoryBus(log)

	sites := siteservice.New(siterepo.New(pool), log)
	lookups := lookupservice.New(lookuprepo.New(pool))
	outbox := notification.NewOutbox(pool)
	composer := notification.NewTextComposer()

	visits := visitservice.New(pool, visitrepo.New(pool), slotrepo.New(pool),
		personnelrepo.New(pool), sites, lookups, outbox, composer, bus, log)

	var sender notification.Sender
	if cfg.GetEmailEnabled() {
		smtp, err := notification.NewSMTPSender(cfg)
		if err != nil {
			log.Error("smtp configuration invalid", "error", err)
			os.Exit(1)
		}
		sender = smtp
	} else {
		sender = notification.NewLogSender(log)
	}
	dispatcher := notification.NewDispatcher(outbox, sender, log)

	sweeper := scheduler.NewSweeper(cfg, visits, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	// The asynq worker and the periodic schedule are optional: without
	// Redis the sweep still runs in-process.
	if cfg.GetRedisURL() != "" {
		if err := pingRedis(ctx, cfg); err != nil {
			log.Error("redis unreachable", "error", err)
			os.Exit(1)
		}

		worker, err := scheduler.NewWorker(cfg, cfg, visits, sites, dispatcher, outbox, composer, log)
		if err != nil {
			log.Error("worker setup failed", "error", err)
			os.Exit(1)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := worker.Run(); err != nil {
				log.Error("worker stopped", "error", err)
				stop()
			}
		}()

		periodic, err := newPeriodicScheduler(cfg, log)
		if err != nil {
			log.Error("periodic schedule setup failed", "error", err)
			os.Exit(1)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := periodic.Run(); err != nil {
				log.Error("periodic scheduler stopped", "error", err)
				stop()
			}
		}()

		<-ctx.Done()
		log.Info("shutting down")
		periodic.Shutdown()
		worker.Shutdown()
	} else {
		log.Warn("REDIS_URL not set, running sweep only")
		<-ctx.Done()
		log.Info("shutting down")
	}

	wg.Wait()
}

// newPeriodicScheduler registers the recurring tasks: the nightly reminder
// run and the outbox drain.
func newPeriodicScheduler(cfg *config.Config, log *logger.Logger) (*asynq.Scheduler, error) {
	opt, err := scheduler.RedisConnOpt(cfg)
	if err != nil {
		return nil, err
	}

	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})

	nightly, err := scheduler.NewNightlyReminderTask()
	if err != nil {
		return nil, err
	}
	if _, err := s.Register(
		cronAtHour(cfg.GetNightlyNotifyHour()), nightly,
		asynq.Queue(cfg.GetAsynqQueueName())); err != nil {
		return nil, err
	}

	dispatch, err := scheduler.NewOutboxDispatchTask(0)
	if err != nil {
		return nil, err
	}
	if _, err := s.Register("*/5 * * * *", dispatch,
		asynq.Queue(cfg.GetAsynqQueueName())); err != nil {
		return nil, err
	}

	return s, nil
}

func pingRedis(ctx context.Context, cfg config.SchedulerConfig) error {
	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return err
	}
	if cfg.GetRedisTLSInsecure() && opts.TLSConfig != nil {
		opts.TLSConfig.InsecureSkipVerify = true
	}

	client := redis.NewClient(opts)
	defer client.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return client.Ping(pingCtx).Err()
}

func cronAtHour(hour int) string {
	if hour < 0 || hour > 23 {
		hour = 2
	}
	return fmt.Sprintf("0 %d * * *", hour)
}
