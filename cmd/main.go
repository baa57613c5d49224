package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/routinerec/internal/adapters/gemini"
	"github.com/okian/routinerec/internal/adapters/http/api"
	"github.com/okian/routinerec/internal/adapters/http/site"
	"github.com/okian/routinerec/internal/adapters/http/swagger"
	"github.com/okian/routinerec/internal/adapters/repository"
	service "github.com/okian/routinerec/internal/app"
	"github.com/okian/routinerec/internal/config"
	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/pkg/logger"
	"github.com/okian/routinerec/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Custom system metrics replace the default Go collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := repository.Open(cfg.Store.Driver, cfg.Store.Path, repository.WithLogger(log.Named("store")))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "close store", logger.Error(err))
		}
	}()

	opts := []service.Option{
		service.WithLogger(log),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithSuggestTimeout(cfg.Suggest.Timeout),
		service.WithCacheMaxAge(cfg.Cache.MaxAge),
		service.WithRefreshWorkers(cfg.Cache.RefreshWorkers),
		service.WithRefreshInterval(cfg.Cache.RefreshInterval),
	}
	if cfg.Suggest.APIKey != "" {
		sg, err := gemini.New(ctx, cfg.Suggest.APIKey, cfg.Suggest.Model)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithSuggester(sg))
	} else {
		log.Info(ctx, "no suggestion api key; using offline heuristic")
	}

	svc, err := service.New(store, roster(cfg.Roster), opts...)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	mux := http.NewServeMux()
	apiServer := api.NewServer(svc,
		api.WithLogger(log.Named("api")),
		api.WithPasswordHash(cfg.PasswordHash),
		api.WithCORSOrigins(cfg.CORSOrigins),
		api.WithMaxWindowDays(cfg.MaxWindowDays),
	)
	apiServer.Register(ctx, mux)
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(mux),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	if cfg.PasswordHash == "" {
		log.Warn(ctx, "password_hash is empty; the API is open")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.Store.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

func roster(entries []config.RosterEntry) []model.User {
	out := make([]model.User, 0, len(entries))
	for _, e := range entries {
		out = append(out, model.User{ID: e.ID, DisplayName: e.Name})
	}
	return out
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.SampleInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
