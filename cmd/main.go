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

	"github.com/go-chi/chi/v5"
	"github.com/okian/matchreel/internal/adapters/gameapi"
	"github.com/okian/matchreel/internal/adapters/http/api"
	"github.com/okian/matchreel/internal/adapters/http/swagger"
	"github.com/okian/matchreel/internal/adapters/render"
	"github.com/okian/matchreel/internal/app"
	"github.com/okian/matchreel/internal/config"
	"github.com/okian/matchreel/internal/domain/padding"
	"github.com/okian/matchreel/pkg/logger"
	"github.com/okian/matchreel/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	writeTimeoutSlack         = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if cfg.LogJSON {
		if err := logger.Init(logger.WithJSON(true)); err != nil {
			return err
		}
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := newService(cfg)
	if err := svc.Start(ctx); err != nil {
		return err
	}

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      cfg.RenderTimeout() + writeTimeoutSlack,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("game_api", cfg.GameAPIURL),
			logger.String("render", cfg.RenderURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	// Sessions flush pending autosaves on the way out.
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "sessions closed with unsaved changes", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newService wires the Game API and render clients into the session
// registry.
func newService(cfg *config.Config) *app.Service {
	games := gameapi.New(cfg.GameAPIURL,
		gameapi.WithTimeout(cfg.HTTPTimeout()),
		gameapi.WithToken(cfg.APIToken),
		gameapi.WithLogger(logger.Named("gameapi")),
	)
	renderer := render.New(cfg.RenderURL,
		render.WithTimeout(cfg.RenderTimeout()),
		render.WithToken(cfg.APIToken),
		render.WithLogger(logger.Named("render")),
	)
	return app.New(games, renderer,
		app.WithLogger(logger.Named("service")),
		app.WithSessionOptions(
			app.WithPadding(
				padding.WithMax(cfg.MaxPadding),
				padding.WithDefault(cfg.DefaultBeforePadding, cfg.DefaultAfterPadding),
			),
			app.WithClipCap(cfg.ClipSelectionCap),
			app.WithIncludeScoreline(cfg.IncludeScoreline),
			app.WithSessionAutosaveDelay(cfg.AutosaveDelay()),
			app.WithSessionSaveTimeout(cfg.HTTPTimeout()),
		),
	)
}

func newRouter(svc *app.Service) http.Handler {
	r := chi.NewRouter()
	api.NewServer(svc, api.WithLogger(logger.Named("http"))).Register(r)
	swagger.Register(r)
	return r
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
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
