// cmd/libradesk/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"libradesk/internal/activity"
	"libradesk/internal/config"
	"libradesk/internal/httpapi"
	"libradesk/internal/library"
	"libradesk/internal/logger"
	"libradesk/internal/telemetry"
)

const version = "0.1.0"

func newServeCmd() *cobra.Command {
	var (
		addr    string
		journal string
		dsn     string
		noSeed  bool
		strict  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the library HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Addr = addr
			}
			if flags.Changed("journal") {
				cfg.Journal = journal
			}
			if flags.Changed("journal-dsn") {
				cfg.JournalDSN = dsn
			}
			if flags.Changed("no-seed") {
				cfg.Seed = !noSeed
			}
			if flags.Changed("strict-deletes") {
				cfg.StrictDeletes = strict
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&journal, "journal", config.JournalMemory, "activity journal backend (memory, sqlite, postgres)")
	cmd.Flags().StringVar(&dsn, "journal-dsn", "", "journal database DSN or sqlite file path")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "start with an empty catalog")
	cmd.Flags().BoolVar(&strict, "strict-deletes", false, "refuse deletes while borrowings are outstanding")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	log, err := logger.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	shutdownTracing, err := telemetry.Init(ctx, log, telemetry.Options{
		ServiceName: "libradesk",
		Environment: cfg.Env,
		Version:     version,
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	journal, closers, err := openJournal(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	store := library.NewStore()
	if cfg.Seed {
		store.Seed(library.DefaultSeed())
	}
	opts := []library.Option{
		library.WithJournal(journal),
		library.WithLogger(log.With("component", "library")),
		library.WithLoanPeriod(cfg.LoanDays),
	}
	if cfg.StrictDeletes {
		opts = append(opts, library.WithStrictDeletes())
	}
	svc := library.NewService(store, opts...)

	handler := httpapi.NewHandler(svc, log.With("component", "http"))
	server := &http.Server{
		Addr: cfg.Addr,
		Handler: handler.Routes(httpapi.Config{
			RateLimit: cfg.RateLimit,
			RateBurst: cfg.RateBurst,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", cfg.Addr, "journal", cfg.Journal, "seed", cfg.Seed)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server shut down")
	return nil
}

// openJournal builds the activity journal named by cfg, optionally fanned
// out to Redis. A Redis that cannot be reached is logged and skipped.
func openJournal(ctx context.Context, cfg config.Config, log *logger.Logger) (activity.Journal, []io.Closer, error) {
	var (
		primary activity.Journal
		closers []io.Closer
	)
	switch cfg.Journal {
	case config.JournalSQLite, config.JournalPostgres:
		driver := activity.DriverSQLite
		if cfg.Journal == config.JournalPostgres {
			driver = activity.DriverPostgres
		}
		j, err := activity.OpenSQLJournal(ctx, driver, cfg.JournalDSN)
		if err != nil {
			return nil, nil, err
		}
		primary = j
		closers = append(closers, j)
	default:
		primary = activity.NewMemoryJournal(0)
	}

	if cfg.RedisAddr == "" {
		return primary, closers, nil
	}
	pub, err := activity.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisChannel)
	if err != nil {
		log.Warn("redis activity publisher disabled", "addr", cfg.RedisAddr, "error", err)
		return primary, closers, nil
	}
	log.Info("publishing activity to redis", "addr", cfg.RedisAddr, "channel", pub.Channel())
	return activity.NewFanout(primary, pub), append(closers, pub), nil
}
