// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/orgboard/internal/api"
	"github.com/starford/orgboard/internal/auth"
	"github.com/starford/orgboard/internal/metrics"
	"github.com/starford/orgboard/internal/session"
	"github.com/starford/orgboard/internal/sse"
	"github.com/starford/orgboard/internal/storage"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	if app.logOutput == nil {
		app.logOutput = os.Stdout
	}

	// Initialize structured JSON logger.
	logger := newLogger(cfg, app.logOutput)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error("storage close error", slog.String("error", err.Error()))
		}
	}()

	m := metrics.New()

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()

	store, err := session.New(b.gateway,
		session.WithLogger(logger),
		session.WithNotifier(broker),
		session.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	// The server starts even when the first load fails; readiness stays
	// false and loading is retried in the background.
	initialErr := store.Load(ctx)
	if initialErr != nil {
		logger.Warn("initial chart load failed", slog.String("error", initialErr.Error()))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check and metrics endpoints (unauthenticated).
	mountOps(r, store, m)

	// Mount API routes under /api, SSE included.
	r.Mount("/api", api.NewRouter(store, api.RouterOptions{
		Auth:           authOptions(cfg),
		Events:         broker,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
	}))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if initialErr != nil {
		g.Go(func() error {
			loadUntilReady(gCtx, store, logger)
			return nil
		})
	}

	// Watch the snapshot file for writes by other processes.
	if b.file != nil {
		g.Go(func() error {
			err := storage.WatchSnapshot(gCtx, b.file, logger, func(sum string) {
				broker.Notify(session.EventSnapshotChanged, map[string]string{"checksum": sum})
			})
			if err != nil {
				logger.Error("snapshot watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		if store.Dirty() {
			logger.Warn("shutting down with unsaved chart edits")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stop the watcher and loader once the server is gone.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

func authOptions(cfg *Config) api.AuthOptions {
	opts := api.AuthOptions{Mode: cfg.Auth.Mode, Token: cfg.Auth.Token}
	if cfg.Auth.Mode == AuthModeJWT {
		opts.Tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	}
	return opts
}

// mountOps registers the health probes and the metrics endpoint.
func mountOps(r chi.Router, store *session.Store, m *metrics.Metrics) {
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if store.State() != session.StateReady {
			writeStatus(w, http.StatusServiceUnavailable, store.State().String())
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Handle("/metrics", m.Handler())
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// loadUntilReady retries the initial load with exponential backoff until it
// succeeds or ctx is cancelled.
func loadUntilReady(ctx context.Context, store *session.Store, logger *slog.Logger) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = time.Second
	eb.MaxInterval = 30 * time.Second
	eb.MaxElapsedTime = 0

	err := backoff.RetryNotify(func() error {
		return store.Load(ctx)
	}, backoff.WithContext(eb, ctx), func(err error, next time.Duration) {
		logger.Warn("chart load failed, retrying",
			slog.String("error", err.Error()),
			slog.Duration("retry_in", next))
	})
	if err != nil {
		return
	}
	logger.Info("chart loaded")
}
