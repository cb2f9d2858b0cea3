// Package app wires configuration, static inputs, the feed pipeline
// and the HTTP/WebSocket transports into a runnable server.
package app

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

	"electionpulse/internal/config"
	apperrors "electionpulse/internal/errors"
	"electionpulse/internal/feeds"
	"electionpulse/internal/geomatch"
	"electionpulse/internal/infrastructure"
	custommw "electionpulse/internal/middleware"
	"electionpulse/internal/reconcile"
	"electionpulse/internal/services"
	transporthttp "electionpulse/internal/transport/http"
	"electionpulse/internal/websocket"
	"electionpulse/pkg/contracts"
)

// Application holds everything needed to serve the dashboard: the
// resolved geography, the pipeline service, and the HTTP server.
type Application struct {
	config *config.Config
	logger *slog.Logger
	otel   *infrastructure.OTelProviders

	hub       *websocket.Hub
	dashboard *services.DashboardService
	health    *services.HealthService

	router chi.Router
	server *http.Server
}

// New builds the application from configuration. The boundary file and
// registry are parsed and matched here, once; a failure in either is
// fatal since the pipeline cannot key feed rows without them.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	slog.SetDefault(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("initialize otel: %w", err)
	}

	app := &Application{
		config: cfg,
		logger: logger,
		otel:   otelProviders,
	}

	if err := app.initServices(); err != nil {
		return nil, err
	}
	app.router = app.setupRouter()
	app.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	logger.Info("application initialized",
		slog.Int("port", cfg.Server.Port),
		slog.String("version", contracts.Version))

	return app, nil
}

func (a *Application) initServices() error {
	features, err := geomatch.ParseBoundaryFile(a.config.Sources.BoundaryFile)
	if err != nil {
		return fmt.Errorf("load boundaries: %w", err)
	}
	registry, err := geomatch.ParseRegistryFile(a.config.Sources.RegistryFile)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	table := geomatch.DefaultProvinceTable()
	matcher := geomatch.NewMatcher(table, a.logger)
	match := matcher.Match(features, matcher.BuildIndex(registry))

	a.logger.Info("geography resolved",
		slog.Int("features", len(features)),
		slog.Int("matched", match.Matched),
		slog.Int("unmatched", match.Unmatched))

	a.hub = websocket.NewHub(a.logger)

	client := feeds.NewClient(a.config.Sources.FetchTimeout, a.config.Sources.RateLimit, a.logger)
	fetcher := feeds.NewFetcher(client, a.config.Sources, a.logger)
	builder := reconcile.NewBuilder(a.config.Pipeline.SummarySuffix, a.logger)

	a.dashboard = services.NewDashboardService(
		fetcher,
		builder,
		match,
		table,
		a.hub,
		a.otel.Metrics,
		a.config.Pipeline.RefreshInterval,
		a.logger,
	)
	a.health = services.NewHealthService(contracts.Version, a.dashboard, a.hub, a.logger)

	return nil
}

func (a *Application) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(custommw.StructuredLogger(a.logger))
	r.Use(custommw.Recoverer(a.logger))
	r.Use(custommw.SecurityHeaders)

	if a.config.Security.EnableCORS {
		r.Use(custommw.CORS(custommw.CORSConfig{
			AllowedOrigins:   a.config.Security.AllowedOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
			Logger:           a.logger,
		}))
	}
	if a.config.Security.RateLimit.Enabled {
		limiter := custommw.NewRateLimiter(
			a.config.Security.RateLimit.RPS,
			a.config.Security.RateLimit.Burst,
			a.logger,
		)
		r.Use(limiter.Handler)
	}
	r.Use(custommw.Timeout(a.config.Server.WriteTimeout, a.logger))

	errorHandler := apperrors.NewErrorHandler(a.logger, false)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/dashboard", transporthttp.NewDashboardHandler(a.dashboard, errorHandler, a.logger).Routes())
		r.Mount("/stats", transporthttp.NewStatsHandler(a.dashboard, errorHandler, a.logger).Routes())
		r.Mount("/anomaly", transporthttp.NewAnomalyHandler(a.dashboard, errorHandler, a.logger).Routes())
		r.Mount("/export", transporthttp.NewExportHandler(a.dashboard, errorHandler, a.logger).Routes())
		r.Get("/healthz", transporthttp.NewHealthHandler(a.health, a.logger).Healthz)
	})

	r.Get("/ws", websocket.ServeWS(a.hub, a.logger))
	if a.otel.PrometheusHTTP != nil {
		r.Handle("/metrics", a.otel.PrometheusHTTP)
	}

	return r
}

// Start launches the hub, the background refresher and the HTTP
// listener. It returns once the listener stops.
func (a *Application) Start(ctx context.Context) error {
	a.hub.Start()

	go a.dashboard.Run(ctx)

	a.logger.Info("server starting", slog.String("addr", a.server.Addr))
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully within the configured timeout.
func (a *Application) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	a.logger.Info("shutting down")

	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	a.hub.Stop()
	if err := a.otel.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown otel: %w", err))
	}
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	return errors.Join(errs...)
}

// Run starts the application and blocks until SIGINT or SIGTERM, then
// performs a graceful shutdown.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.Start(ctx)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case sig := <-stop:
		a.logger.Info("signal received", slog.String("signal", sig.String()))
	}

	cancel()
	if err := a.Stop(); err != nil {
		return err
	}

	// Give the background refresher a beat to observe cancellation.
	time.Sleep(50 * time.Millisecond)
	a.logger.Info("shutdown complete")
	return nil
}

// Router exposes the mounted routes, primarily for tests.
func (a *Application) Router() chi.Router {
	return a.router
}
