package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/handler/api"
	"MarketPulse/internal/scheduler"
	"MarketPulse/internal/usecase"
	pkgcache "MarketPulse/pkg/cache"
	pkgch "MarketPulse/pkg/clickhouse"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	applogger "MarketPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle: the scheduled
// data-plane tasks and the read API server.
type App struct {
	cfg       *config.Config
	l         *applogger.Logger
	sched     *scheduler.Scheduler
	tracker   *usecase.UniverseTracker
	ingestor  *usecase.Ingestor
	seeder    *usecase.Seeder
	engine    *usecase.IndicatorEngine
	quotes    *usecase.QuoteRefresher
	routes    *api.Routes
	chClient  *pkgch.Client
	redis     *pkgcache.RedisCache
	publisher domrepo.EventPublisher

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. publisher may
// be nil when event publishing is disabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	sched *scheduler.Scheduler,
	tracker *usecase.UniverseTracker,
	ingestor *usecase.Ingestor,
	seeder *usecase.Seeder,
	engine *usecase.IndicatorEngine,
	quotes *usecase.QuoteRefresher,
	routes *api.Routes,
	chClient *pkgch.Client,
	redis *pkgcache.RedisCache,
	publisher domrepo.EventPublisher,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		sched:     sched,
		tracker:   tracker,
		ingestor:  ingestor,
		seeder:    seeder,
		engine:    engine,
		quotes:    quotes,
		routes:    routes,
		chClient:  chClient,
		redis:     redis,
		publisher: publisher,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load the universe before any task fires so the first ingest cycle
	// has tickers to work with. A failure here is not fatal; the
	// universe-refresh job keeps retrying on its own cadence.
	refreshCtx, refreshCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := a.tracker.Refresh(refreshCtx); err != nil {
		a.l.Warn("initial universe refresh failed", applogger.Error(err))
	}
	refreshCancel()

	a.registerJobs()
	a.sched.Start()
	a.l.Info("scheduler started", applogger.Int("jobs", len(a.sched.Jobs())))

	a.httpServer = xhttp.NewServer(a.routes,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("http server start: %w", err)
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// registerJobs wires every periodic task onto the scheduler. Each task
// runs on its own cadence; the scheduler guarantees a task never
// overlaps with itself.
func (a *App) registerJobs() {
	a.sched.Register(&scheduler.Job{
		Name:     "universe-refresh",
		Schedule: scheduler.Every(a.cfg.Universe.RefreshInterval),
		Handler:  a.tracker.Refresh,
	})

	a.sched.Register(&scheduler.Job{
		Name:     "candle-ingest",
		Schedule: scheduler.Every(a.cfg.Ingest.Interval),
		Handler:  a.ingestor.RunCycle,
	})

	for _, def := range domrepo.Aggregates() {
		def := def
		a.sched.Register(&scheduler.Job{
			Name:     "aggregate-" + string(def.Timeframe),
			Schedule: scheduler.Every(def.Refresh),
			Handler: func(ctx context.Context) error {
				return a.ingestor.RefreshAggregates(ctx, def)
			},
		})
	}

	// Seed once shortly after startup, then keep history topped up with
	// a nightly pass. Re-seeding is idempotent, so the overlap between
	// the two is harmless.
	a.sched.Register(&scheduler.Job{
		Name:     "eod-seed-startup",
		Schedule: scheduler.After(a.cfg.Seeder.StartupDelay),
		Timeout:  30 * time.Minute,
		Handler:  a.seeder.RunSeed,
	})
	a.sched.Register(&scheduler.Job{
		Name:     "eod-seed-daily",
		Schedule: scheduler.DailyAt(a.cfg.Seeder.DailyHour, a.cfg.Seeder.DailyMinute),
		Timeout:  30 * time.Minute,
		Handler:  a.seeder.RunSeed,
	})

	a.sched.Register(&scheduler.Job{
		Name:     "indicator-batch",
		Schedule: scheduler.Every(a.cfg.Indicators.Interval),
		Handler:  a.engine.RunCycle,
	})

	a.sched.Register(&scheduler.Job{
		Name:     "quotes-hot",
		Schedule: scheduler.Every(a.cfg.Quotes.HotInterval),
		Handler:  a.quotes.RunHot,
	})
	a.sched.Register(&scheduler.Job{
		Name:     "quotes-warm",
		Schedule: scheduler.Every(a.cfg.Quotes.WarmInterval),
		Handler:  a.quotes.RunWarm,
	})
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.l.Warn("kafka publisher close error", applogger.Error(err))
		}
	}
	if err := a.redis.Close(); err != nil {
		a.l.Warn("redis close error", applogger.Error(err))
	}
	if err := a.chClient.Close(); err != nil {
		a.l.Warn("clickhouse close error", applogger.Error(err))
	}

	a.l.Info("shutdown complete")
	return nil
}
