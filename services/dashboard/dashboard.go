// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dashboard wires the diet impact dashboard service together.
//
// This package contains the Service type that coordinates the components:
// dataset loading, the per-panel chart dispatcher, HTTP routing, and the
// observability stack. In debug mode it also watches the input files and
// reloads the dataset when they change.
//
// # Usage
//
//	cfg := dashboard.ConfigFromFile(fileCfg)
//	svc, err := dashboard.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	return svc.Run(ctx)
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/dietdash/services/dashboard/charts"
	"github.com/AleutianAI/dietdash/services/dashboard/config"
	"github.com/AleutianAI/dietdash/services/dashboard/datatypes"
	"github.com/AleutianAI/dietdash/services/dashboard/loader"
	"github.com/AleutianAI/dietdash/services/dashboard/middleware"
	"github.com/AleutianAI/dietdash/services/dashboard/observability"
	"github.com/AleutianAI/dietdash/services/dashboard/panels"
	"github.com/AleutianAI/dietdash/services/dashboard/reload"
	"github.com/AleutianAI/dietdash/services/dashboard/routes"
	"github.com/AleutianAI/dietdash/services/dashboard/telemetry"
	"github.com/AleutianAI/dietdash/services/dashboard/ui"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
)

// ServiceName identifies the service in traces and logs.
const ServiceName = "dietdash"

// shutdownTimeout bounds HTTP drain and telemetry flush on exit.
const shutdownTimeout = 5 * time.Second

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the dashboard service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run blocks and should
// only be called once per instance.
type Service interface {
	// Run serves HTTP until ctx is canceled or the server fails.
	//
	// # Outputs
	//
	//   - error: nil after a clean shutdown, otherwise the server error.
	//
	// # Examples
	//
	//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	//	defer stop()
	//	if err := svc.Run(ctx); err != nil {
	//	    return fmt.Errorf("server error: %w", err)
	//	}
	Run(ctx context.Context) error

	// Router returns the configured Gin engine, for tests.
	Router() *gin.Engine

	// Close releases the watcher and telemetry. Run calls it on return;
	// callers that never Run must call it themselves.
	Close()
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds the runtime configuration of the service.
//
// # Description
//
// All fields are optional; New fills zero values through
// applyConfigDefaults. ConfigFromFile converts the YAML file form.
type Config struct {
	// Port is the HTTP server port. Default: 8000
	Port int

	// Debug enables auto-reload of the input files.
	Debug bool

	// Paths locates the input files.
	Paths loader.Paths

	// DefaultDiet is the initially selected diet. Default: "Vegans"
	DefaultDiet string

	// EmbedGeometry embeds boundary polygons in map figures.
	EmbedGeometry bool

	// ColorRangeMin and ColorRangeMax fix the map's color range.
	// Default: 0 and 200
	ColorRangeMin float64
	ColorRangeMax float64

	// Telemetry selects the OpenTelemetry exporters. The Registerer field
	// is ignored; the service always uses its own registry.
	Telemetry telemetry.Config

	// RateLimit is the per-panel request rate for chart endpoints.
	// 0 disables limiting.
	RateLimit float64

	// RateBurst is the limiter burst. Default: 5
	RateBurst int

	// ReloadDebounce is the file watcher's debounce window.
	// Default: 250ms
	ReloadDebounce time.Duration
}

// ConfigFromFile converts the file configuration to a service Config.
func ConfigFromFile(f config.Config) Config {
	tel := telemetry.DefaultConfig()
	tel.ServiceName = ServiceName
	tel.TraceExporter = f.Telemetry.TraceExporter
	tel.MetricExporter = f.Telemetry.MetricExporter
	tel.OTLPEndpoint = f.Telemetry.OTLPEndpoint
	tel.OTLPInsecure = f.Telemetry.OTLPInsecure

	return Config{
		Port:  f.Port,
		Debug: f.Debug,
		Paths: loader.Paths{
			Respondents:   f.Data.Respondents,
			Supplementary: f.Data.Supplementary,
			Proportions:   f.Data.Proportions,
			Boundaries:    f.Data.Boundaries,
		},
		DefaultDiet:   f.UI.DefaultDiet,
		EmbedGeometry: f.UI.EmbedGeometry,
		ColorRangeMin: f.UI.ColorRangeMin,
		ColorRangeMax: f.UI.ColorRangeMax,
		Telemetry:     tel,
		RateLimit:     f.HTTP.RateLimit,
		RateBurst:     f.HTTP.RateBurst,
	}
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service.
//
// # Thread Safety
//
// All fields are read-only after New returns. The dataset itself changes
// only through store.
type service struct {
	config            Config
	router            *gin.Engine
	store             *loader.Store
	registry          *prometheus.Registry
	chartMetrics      *observability.ChartMetrics
	loadMetrics       *telemetry.Metrics
	telemetryShutdown func(context.Context) error
	watcher           *reload.Watcher
	stopWatch         context.CancelFunc
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a dashboard Service.
//
// # Description
//
// New initializes all components:
//  1. Applies default configuration for missing values
//  2. Initializes telemetry on a service-owned Prometheus registry
//  3. Loads the dataset (fatal on any input error)
//  4. Creates the per-panel dispatcher and the HTTP routes
//  5. In debug mode, starts the input file watcher
//
// # Inputs
//
//   - ctx: Used for telemetry setup and the initial load.
//   - cfg: Service configuration. Zero values use defaults.
//
// # Outputs
//
//   - Service: Ready to Run.
//   - error: Non-nil if telemetry or the initial load fails.
func New(ctx context.Context, cfg Config) (Service, error) {
	s := &service{
		config:   applyConfigDefaults(cfg),
		store:    loader.NewStore(nil),
		registry: prometheus.NewRegistry(),
	}

	if err := s.initTelemetry(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	if err := s.loadDataset(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	if err := s.initRouter(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}

	if s.config.Debug {
		if err := s.startWatcher(); err != nil {
			slog.Warn("input file watcher not started, auto-reload disabled", "error", err)
		}
	}

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until ctx ends or the server fails.
func (s *service) Run(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting dashboard server", "port", s.config.Port, "debug", s.config.Debug)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down dashboard server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the underlying Gin engine.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Close stops the watcher and flushes telemetry.
func (s *service) Close() {
	if s.watcher != nil {
		s.watcher.Stop()
		s.watcher = nil
	}
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
	if s.telemetryShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.telemetryShutdown(ctx); err != nil {
			slog.Error("failed to shutdown telemetry", "error", err)
		}
		s.telemetryShutdown = nil
	}
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	defaults := config.DefaultConfig()

	if cfg.Port == 0 {
		cfg.Port = defaults.Port
	}
	if cfg.Paths.Respondents == "" {
		cfg.Paths.Respondents = defaults.Data.Respondents
	}
	if cfg.Paths.Supplementary == "" {
		cfg.Paths.Supplementary = defaults.Data.Supplementary
	}
	if cfg.Paths.Proportions == "" {
		cfg.Paths.Proportions = defaults.Data.Proportions
	}
	if cfg.Paths.Boundaries == "" {
		cfg.Paths.Boundaries = defaults.Data.Boundaries
	}
	if cfg.DefaultDiet == "" {
		cfg.DefaultDiet = defaults.UI.DefaultDiet
	}
	if cfg.ColorRangeMin == 0 && cfg.ColorRangeMax == 0 {
		cfg.ColorRangeMin = defaults.UI.ColorRangeMin
		cfg.ColorRangeMax = defaults.UI.ColorRangeMax
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = ServiceName
	}
	if cfg.Telemetry.TraceExporter == "" {
		cfg.Telemetry.TraceExporter = telemetry.ExporterNone
	}
	if cfg.Telemetry.MetricExporter == "" {
		cfg.Telemetry.MetricExporter = telemetry.ExporterPrometheus
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaults.HTTP.RateBurst
	}
	if cfg.ReloadDebounce == 0 {
		cfg.ReloadDebounce = reload.DefaultWatcherOptions().DebounceWindow
	}
	return cfg
}

// initTelemetry sets up tracing, OTel metrics and the chart metrics, all
// exported through the service's registry.
func (s *service) initTelemetry(ctx context.Context) error {
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	telCfg := s.config.Telemetry
	telCfg.Registerer = s.registry
	shutdown, err := telemetry.Init(ctx, telCfg)
	if err != nil {
		return err
	}
	s.telemetryShutdown = shutdown

	s.loadMetrics, err = telemetry.NewMetrics(otel.Meter("dietdash"))
	if err != nil {
		return err
	}
	s.chartMetrics = observability.NewChartMetrics(s.registry)
	return nil
}

// loadDataset performs the startup load and publishes the result.
func (s *service) loadDataset(ctx context.Context) error {
	start := time.Now()
	ds, err := loader.Load(ctx, s.config.Paths)
	s.loadMetrics.RecordLoad(ctx, telemetry.LoadStartup, time.Since(start), err)
	if err != nil {
		return err
	}
	s.store.Swap(ds)
	s.onDataset(ds)
	return nil
}

// onDataset logs a newly published dataset and updates its gauges.
func (s *service) onDataset(ds *datatypes.Dataset) {
	summary := ds.Summarize()
	slog.Info("Dataset loaded",
		"respondents", summary.Respondents,
		"grouped_rows", summary.GroupedRows,
		"supplementary_rows", summary.SupplementaryRows,
		"diets", summary.Diets,
		"boundaries", summary.Boundaries)
	if ds.DroppedSupplementary > 0 {
		slog.Info("Dropped incomplete supplementary rows", "count", ds.DroppedSupplementary)
	}
	s.chartMetrics.SetDroppedRows(ds.DroppedSupplementary)

	if diet, fellBack := panels.ResolveDefaultDiet(ds.Proportions, s.config.DefaultDiet); fellBack {
		slog.Warn("Configured default diet not found, using first diet",
			"configured", s.config.DefaultDiet, "using", diet)
	}
}

// initRouter creates the Gin engine, applies middleware, and registers all
// routes.
func (s *service) initRouter() error {
	tmpl, err := ui.Templates()
	if err != nil {
		return err
	}

	s.router = gin.New()
	s.router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		otelgin.Middleware(s.config.Telemetry.ServiceName),
		middleware.AccessLog(),
	)
	s.router.SetHTMLTemplate(tmpl)

	dispatcher := panels.NewDispatcher(s.store, panels.Config{
		Choropleth: charts.ChoroplethOptions{
			RangeMin: s.config.ColorRangeMin,
			RangeMax: s.config.ColorRangeMax,
		},
		EmbedGeometry: s.config.EmbedGeometry,
		Metrics:       s.chartMetrics,
	})

	routes.SetupRoutes(s.router, routes.Deps{
		Store:       s.store,
		Charts:      dispatcher,
		Metrics:     s.chartMetrics,
		MetricsHTTP: promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}),
		DefaultDiet: s.config.DefaultDiet,
		RateLimit:   s.config.RateLimit,
		RateBurst:   s.config.RateBurst,
	})
	return nil
}

// startWatcher reloads the dataset whenever an input file changes.
func (s *service) startWatcher() error {
	ctx, cancel := context.WithCancel(context.Background())

	reloader := reload.NewReloader(s.config.Paths, loader.Load, s.store, s.loadMetrics)
	reloader.OnSwap = s.onDataset

	w, err := reload.NewWatcher(s.config.Paths.List(), reloader.Handler(ctx), &reload.WatcherOptions{
		DebounceWindow: s.config.ReloadDebounce,
		BufferSize:     reload.DefaultWatcherOptions().BufferSize,
	})
	if err != nil {
		cancel()
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		cancel()
		return err
	}

	s.watcher = w
	s.stopWatch = cancel
	slog.Info("Watching input files for changes", "files", s.config.Paths.List())
	return nil
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
