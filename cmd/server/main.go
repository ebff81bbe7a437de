package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/didier-building/agaciro-drivers-mvp/internal/archive"
	"github.com/didier-building/agaciro-drivers-mvp/internal/catalog"
	"github.com/didier-building/agaciro-drivers-mvp/internal/config"
	"github.com/didier-building/agaciro-drivers-mvp/internal/dispatch"
	"github.com/didier-building/agaciro-drivers-mvp/internal/events"
	"github.com/didier-building/agaciro-drivers-mvp/internal/fleet"
	"github.com/didier-building/agaciro-drivers-mvp/internal/httpapi"
	"github.com/didier-building/agaciro-drivers-mvp/internal/logging"
	"github.com/didier-building/agaciro-drivers-mvp/internal/models"
	"github.com/didier-building/agaciro-drivers-mvp/internal/payments"
	"github.com/didier-building/agaciro-drivers-mvp/internal/pricing"
	"github.com/didier-building/agaciro-drivers-mvp/internal/rides"
	"github.com/didier-building/agaciro-drivers-mvp/internal/sim"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	if cfg.PGDSN != "" && cfg.RunMigrations {
		runMigrations(cfg.PGDSN, logger)
	}

	var mirror fleet.Mirror
	if cfg.RedisAddr != "" {
		rm := fleet.NewRedisMirror(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
		defer rm.Close()
		mirror = rm
	}

	var publisher *events.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer publisher.Close()
	}

	var archiver archive.Archiver
	if cfg.PGDSN != "" {
		pg, err := archive.NewPostgres(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres unavailable, archiving in memory", "error", err)
			archiver = archive.NewMemory()
		} else {
			defer pg.Close()
			archiver = pg
		}
	} else {
		archiver = archive.NewMemory()
	}

	var authorizer dispatch.Authorizer
	if cfg.StripeAPIKey != "" {
		authorizer = payments.NewStripeAuthorizer(cfg.StripeAPIKey)
	}

	reg := fleet.NewRegistry(mirror)
	reg.Seed(catalog.SeedDrivers())

	store := rides.NewStore(&journal{publisher: publisher, archiver: archiver, logger: logger})
	wsreg := dispatch.NewWSRegistry(logger)
	broker := dispatch.NewBroker(store, reg, pricing.Quote, wsreg, authorizer, logger)
	scheduler := sim.NewScheduler(store, reg, cfg.StepDegrees, cfg.TickPeriod, logger)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewServer(broker, reg, store, wsreg, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go scheduler.Run(ctx)

	go func() {
		logger.Info("agaciro dispatch listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}
}

// journal fans ride changes out to the event stream and, for terminal
// rides, the history archive.
type journal struct {
	publisher *events.KafkaPublisher
	archiver  archive.Archiver
	logger    *slog.Logger
}

func (j *journal) RideChanged(r models.Ride) {
	if j.publisher != nil {
		j.publisher.RideChanged(r)
	}
	if r.Status.Terminal() {
		if err := j.archiver.ArchiveRide(r); err != nil {
			j.logger.Warn("ride archive failed", "ride_id", r.ID, "error", err)
		}
	}
}

func runMigrations(dsn string, logger *slog.Logger) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Error("migration db open failed", "error", err)
		return
	}
	defer db.Close()
	path := filepath.Join("migrations", "001_create_ride_history.sql")
	b, err := os.ReadFile(path)
	if err != nil {
		logger.Error("migration read failed", "path", path, "error", err)
		return
	}
	if _, err := db.Exec(string(b)); err != nil {
		logger.Error("migration exec failed", "path", path, "error", err)
		return
	}
	logger.Info("migration applied", "path", path)
}
