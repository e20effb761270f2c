// The api binary serves the scheduling engine's HTTP interface.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tourvisit_backend/internal/http/router"
	lookuphandler "tourvisit_backend/internal/lookups/handler"
	lookuprepo "tourvisit_backend/internal/lookups/repository"
	lookupservice "tourvisit_backend/internal/lookups/service"
	"tourvisit_backend/internal/notification"
	personnelhandler "tourvisit_backend/internal/personnel/handler"
	personnelrepo "tourvisit_backend/internal/personnel/repository"
	personnelservice "tourvisit_backend/internal/personnel/service"
	sitehandler "tourvisit_backend/internal/sites/handler"
	siterepo "tourvisit_backend/internal/sites/repository"
	siteservice "tourvisit_backend/internal/sites/service"
	slothandler "tourvisit_backend/internal/tourslots/handler"
	slotrepo "tourvisit_backend/internal/tourslots/repository"
	slotservice "tourvisit_backend/internal/tourslots/service"
	visithandler "tourvisit_backend/internal/visits/handler"
	visitrepo "tourvisit_backend/internal/visits/repository"
	visitservice "tourvisit_backend/internal/visits/service"
	"tourvisit_backend/platform/config"
	"tourvisit_backend/platform/db"
	"tourvisit_backend/platform/events"
	"tourvisit_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
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

	pool, err := connectWithRetry(ctx, cfg, log)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, cfg, cfg.MigrationsDir); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	bus := events.NewInMemoryBus(log)

	sites := siteservice.New(siterepo.New(pool), log)
	if err := sites.SeedFromFile(ctx, cfg.GetSiteSeedPath()); err != nil {
		log.Error("site seed failed", "error", err)
		os.Exit(1)
	}

	lookups := lookupservice.New(lookuprepo.New(pool))
	personnelRepo := personnelrepo.New(pool)
	personnel := personnelservice.New(pool, personnelRepo, bus, log)
	slotRepo := slotrepo.New(pool)
	slots := slotservice.New(pool, slotRepo, personnelRepo, sites, bus, log)

	outbox := notification.NewOutbox(pool)
	composer := notification.NewTextComposer()

	visits := visitservice.New(pool, visitrepo.New(pool), slotRepo, personnelRepo,
		sites, lookups, outbox, composer, bus, log)

	engine := router.New(cfg, log, router.Handlers{
		Visits:    visithandler.New(visits),
		TourSlots: slothandler.New(slots),
		Personnel: personnelhandler.New(personnel),
		Sites:     sitehandler.New(sites),
		Lookups:   lookuphandler.New(lookups),
	})

	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", cfg.GetHTTPAddr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

// connectWithRetry waits for the database to come up, which keeps container
// starts ordered without an external wait script.
func connectWithRetry(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*pgxpool.Pool, error) {
	const attempts = 10

	var lastErr error
	for i := 1; i <= attempts; i++ {
		pool, err := db.NewPool(ctx, cfg)
		if err == nil {
			return pool, nil
		}
		lastErr = err
		log.Warn("database not ready, retrying", "attempt", i, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i) * time.Second):
		}
	}
	return nil, lastErr
}
