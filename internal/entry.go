// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/recentfiles/internal/api"
	"github.com/starford/recentfiles/internal/mcpserver"
	"github.com/starford/recentfiles/internal/metadata"
	"github.com/starford/recentfiles/internal/recent"
	"github.com/starford/recentfiles/internal/recentservice"
	"github.com/starford/recentfiles/internal/sse"
	"github.com/starford/recentfiles/internal/state"
	"github.com/starford/recentfiles/internal/storage"
	"github.com/starford/recentfiles/internal/tui"
	"github.com/starford/recentfiles/internal/watcher"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{
		mode:      ModeServe,
		version:   "dev",
		logOutput: os.Stdout,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("mode", string(app.mode)),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("state_driver", cfg.State.Driver),
		slog.String("state_path", cfg.State.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	// Initialize storage.
	vault, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Load persisted state.
	backend, err := state.Open(cfg.State.Driver, cfg.State.Path)
	if err != nil {
		return fmt.Errorf("init state: %w", err)
	}
	data, err := backend.Load(ctx)
	if err != nil {
		_ = backend.Close()
		return fmt.Errorf("load state: %w", err)
	}
	writer := state.NewWriter(backend, logger)

	meta, err := metadata.New(vault, cfg.Recent.CacheSize, logger)
	if err != nil {
		writer.Close()
		_ = backend.Close()
		return fmt.Errorf("init metadata cache: %w", err)
	}

	store := recent.New(data,
		recent.WithMetadata(meta),
		recent.WithSaver(writer),
		recent.WithLogger(logger))

	// Final persist, then drain pending saves, then release the backend.
	defer func() {
		store.Close()
		writer.Close()
		if err := backend.Close(); err != nil {
			logger.Error("state close failed", slog.String("error", err.Error()))
		}
		logger.Info("State saved", slog.Int64("saves", writer.Saves()))
	}()

	svc := recentservice.New(store, meta, vault,
		recentservice.WithOpenDelay(cfg.Recent.OpenDelay),
		recentservice.WithFrontmatterTitles(cfg.Recent.FrontmatterTitles),
		recentservice.WithLogger(logger))

	if err := svc.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	switch app.mode {
	case ModeMCP:
		return runMCP(ctx, app, vault, svc, logger)
	case ModeTUI:
		return runTUI(ctx, vault, svc, logger)
	default:
		return runServe(ctx, cfg, vault, store, svc, logger)
	}
}

// watch runs the vault watcher until ctx is cancelled.
func watch(ctx context.Context, vault *storage.FS, svc *recentservice.Service, logger *slog.Logger) error {
	if err := watcher.Watch(ctx, vault, logger, svc); err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	return nil
}

func runServe(ctx context.Context, cfg *Config, vault *storage.FS, store *recent.Store, svc *recentservice.Service, logger *slog.Logger) error {
	// SSE broker, fed by store changes.
	broker := sse.NewBroker(cfg.SSE.KeepAlive)
	defer broker.Close()
	release := store.Subscribe(func(c recent.Change) {
		broker.PublishChange(c.Reason, c.Path)
	})
	defer release()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := os.Stat(vault.Root()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"vault unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watch(gCtx, vault, svc, logger)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Shut down on signal or on the first failure.
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		// Closing the broker ends open event streams so Shutdown can drain.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

func runMCP(ctx context.Context, app *application, vault *storage.FS, svc *recentservice.Service, logger *slog.Logger) error {
	srv := mcpserver.New(svc, app.version)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watch(gCtx, vault, svc, logger)
	})
	g.Go(func() error {
		// ServeStdio returns when stdin closes.
		defer cancel()
		logger.Info("MCP server starting on stdio")
		if err := srv.ServeStdio(); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func runTUI(ctx context.Context, vault *storage.FS, svc *recentservice.Service, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watch(gCtx, vault, svc, logger)
	})
	g.Go(func() error {
		defer cancel()
		return tui.Run(gCtx, svc)
	})
	return g.Wait()
}
