package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/doctor-slot-booking/internal/appointment"
	"github.com/hackgods/doctor-slot-booking/internal/config"
	"github.com/hackgods/doctor-slot-booking/internal/db"
	"github.com/hackgods/doctor-slot-booking/internal/logging"
	redisclient "github.com/hackgods/doctor-slot-booking/internal/redis"
)

// slot-generator keeps the next GENERATE_DAYS_AHEAD days of slots open.
func main() {
	once := flag.Bool("once", false, "generate once and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.Bootstrap()
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("service", "slot-generator").Logger()
	logger.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Int("days_ahead", cfg.DaysAhead).
		Msg("slot generator starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	if err == nil {
		err = db.Migrate(pgCtx, pgPool)
	}
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres setup error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	// Generation is conflict-safe in the store and never books, so no
	// Redis lock is needed here.
	repo := appointment.NewPgRepository(pgPool)
	svc := appointment.NewService(repo, redisclient.NoopLocker{}, cfg.Schedule, logger)

	runOnce(rootCtx, svc, cfg.DaysAhead, logger)
	if *once {
		return
	}

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping slot generator")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.DaysAhead, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, days int, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	start := time.Now()
	created, err := svc.GenerateUpcoming(runCtx, start, days)
	if err != nil {
		logger.Error().Err(err).Int("created", created).Msg("generation run failed")
		return
	}
	logger.Info().
		Int("created", created).
		Dur("took", time.Since(start)).
		Msg("generation run complete")
}
