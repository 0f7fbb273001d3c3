package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	api "github.com/Tiisu/wiki-spark-collaborate-sub002/internal/api/http"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/attempt"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/auth"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/config"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/db"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/events"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
)

func main() {
	cfg := config.Load()
	log := newLogger(cfg)
	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("quizd stopped")
		os.Exit(1)
	}
}

// run serves until a signal arrives or the listener fails.
func run(cfg config.Config, log zerolog.Logger) error {
	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		return fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}
	defer dbh.Close()

	quizzes := quiz.NewSQLStore(dbh)
	attempts := attempt.NewSQLStore(dbh)

	// --- Events ---
	eventLog := events.NewLogRepo(dbh, cfg.SiteID)
	sinks := events.Multi{eventLog}
	if cfg.AMQPURL != "" {
		pub, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			// the event log still records everything
			log.Error().Err(err).Msg("amqp publisher disabled")
		} else {
			defer pub.Close()
			sinks = append(sinks, pub)
		}
	}

	// --- Engine ---
	eng := attempt.NewEngine(attempt.Config{
		Quizzes:      quizzes,
		Attempts:     attempts,
		Identity:     auth.Identity{},
		Policy:       attempt.Policy{AllowImprovement: cfg.AllowRetake},
		Events:       sinks,
		Logger:       log,
		TickInterval: cfg.TimerTick,
		Warnings:     cfg.TimerWarnings,
		AbandonTTL:   cfg.AbandonTTL,
	})
	restored, expired, err := eng.Restore(context.Background())
	if err != nil {
		// overdue attempts that failed to persist are retried by the janitor
		log.Error().Err(err).Msg("restore attempts")
	}
	log.Info().Int("restored", restored).Int("expired", expired).Msg("attempt sessions restored")

	// --- Router ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)
	r := api.NewRouter(api.Deps{
		Auth: authSvc,
		Login: auth.LoginConfig{
			AdminUser:     cfg.AdminUser,
			AdminPassHash: cfg.AdminPassHash,
			AllowDevLogin: cfg.EnableLocalAuth && cfg.Mode == config.ModeOffline,
		},
		Quizzes:     quizzes,
		Engine:      eng,
		Events:      eventLog,
		Logger:      log,
		CORSOrigins: cfg.CORSOrigins(),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go janitor(runCtx, eng, cfg.JanitorInterval, log)

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("mode", string(cfg.Mode)).Str("db", cfg.DBDriver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var failed error
	select {
	case <-runCtx.Done():
	case err := <-serveErr:
		failed = fmt.Errorf("http server: %w", err)
	}
	log.Info().Msg("shutting down")
	shutCtx, cancelShut := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShut()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := eng.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("engine shutdown")
	}
	return failed
}

// janitor closes abandoned attempts that no request or timer has touched.
func janitor(ctx context.Context, eng *attempt.Engine, every time.Duration, log zerolog.Logger) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := eng.ExpireStale(ctx)
			if err != nil {
				log.Error().Err(err).Msg("expire stale attempts")
				continue
			}
			if n > 0 {
				log.Info().Int("expired", n).Msg("stale attempts expired")
			}
		}
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	var l zerolog.Logger
	if cfg.Mode == config.ModeOnline {
		l = zerolog.New(os.Stdout)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return l.Level(level).With().Timestamp().Str("service", "quizd").Str("site", cfg.SiteID).Logger()
}
