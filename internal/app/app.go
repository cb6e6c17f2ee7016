// Package app wires together all agent dependencies and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/PrabinKa/ShipMate/internal/api"
	"github.com/PrabinKa/ShipMate/internal/config"
	handler "github.com/PrabinKa/ShipMate/internal/handler/http"
	"github.com/PrabinKa/ShipMate/internal/netmon"
	"github.com/PrabinKa/ShipMate/internal/notify"
	"github.com/PrabinKa/ShipMate/internal/pipeline"
	"github.com/PrabinKa/ShipMate/internal/reconcile"
	"github.com/PrabinKa/ShipMate/internal/session"
	"github.com/PrabinKa/ShipMate/internal/storage"
	"github.com/PrabinKa/ShipMate/internal/store"
	"github.com/PrabinKa/ShipMate/internal/tracking"
	"github.com/PrabinKa/ShipMate/pkg/health"
	"github.com/PrabinKa/ShipMate/pkg/tracing"
)

// App holds the wired agent.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	region         *storage.Region
	monitor        *netmon.Monitor
	engine         *reconcile.Engine
	tracker        *tracking.Tracker
	prober         netmon.Prober
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// New creates the agent, initializing all dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "shipmate-agent",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampling,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Open the encrypted offline region.
	region, err := storage.Open(cfg.StoragePath, cfg.StoragePassphrase, logger)
	if err != nil {
		return nil, fmt.Errorf("open offline storage: %w", err)
	}
	logger.Info("offline storage opened", slog.String("path", cfg.StoragePath))

	sess, err := session.Load(region, logger)
	if err != nil {
		_ = region.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}

	// The agent starts offline; the probe loop and the platform's pushed
	// reachability promote it once the backend is actually reachable.
	monitor := netmon.New(false, logger)
	notifier := notify.NewLogNotifier(logger)

	// Transport stack: retrying client wrapped in a circuit breaker.
	transport := pipeline.NewTransport(pipeline.TransportConfig{
		Timeout:         cfg.RequestTimeout,
		MaxRetries:      cfg.MaxRetries,
		RetryWaitMin:    time.Second,
		RetryWaitMax:    5 * time.Second,
		MaxConnsPerHost: 10,
	})
	breaker := pipeline.NewBreaker(transport, pipeline.DefaultBreakerConfig(), logger)

	auth := api.NewAuth(breaker, cfg.BackendBaseURL, cfg.LoginExpiresMins)
	pipe := pipeline.New(breaker, cfg.BackendBaseURL, sess, auth.Refresh, notifier, logger)
	backend := api.NewClient(pipe, logger)

	orders := store.New(region, logger)
	engine := reconcile.New(orders, backend, monitor, notifier, logger)
	tracker := tracking.New(region, logger)

	healthHandler := health.NewHandler()
	healthHandler.Register("storage", func(ctx context.Context) error {
		_, err := region.Get("health_probe")
		return err
	})

	router := handler.NewRouter(
		handler.NewOrderHandler(engine, logger),
		handler.NewSessionHandler(auth, sess, logger),
		handler.NewConnectivityHandler(monitor, logger),
		handler.NewTrackingHandler(tracker, logger),
		healthHandler,
		logger,
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		region:  region,
		monitor: monitor,
		engine:  engine,
		tracker: tracker,
		prober: &netmon.HTTPProber{
			URL:    cfg.ProbeTarget(),
			Client: &http.Client{Timeout: 5 * time.Second},
		},
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the background loops and the local HTTP facade, blocking until
// the context is canceled.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Sweep on every reconnect.
	go a.engine.Run(runCtx)

	// Probe the backend for reachability.
	go a.monitor.Watch(runCtx, a.prober, a.cfg.ProbeInterval)

	if a.cfg.SimulationEnabled {
		sim := tracking.NewSimulator(tracking.DefaultSimulatorConfig())
		if err := a.tracker.Start(runCtx, sim); err != nil {
			a.logger.Warn("delivery simulation not started", slog.String("error", err.Error()))
		} else {
			a.logger.Info("delivery simulation started")
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting local HTTP facade", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components: drain the HTTP facade, flush
// pending spans, then close the storage region last since everything
// persists through it.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down agent...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.region.Close(); err != nil {
		a.logger.Error("storage close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("agent shutdown complete")
	return errors.Join(errs...)
}
