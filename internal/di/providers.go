package di

import (
	"context"
	"fmt"
	"time"

	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/handler/api"
	"MarketPulse/internal/provider"
	internalrepo "MarketPulse/internal/repository"
	"MarketPulse/internal/scheduler"
	"MarketPulse/internal/usecase"
	pkgcache "MarketPulse/pkg/cache"
	pkgch "MarketPulse/pkg/clickhouse"
	"MarketPulse/pkg/config"
	pkgkafka "MarketPulse/pkg/kafka"
	applogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/metrics"
	"MarketPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the
// candle schema exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, pkgch.CandleSchema(cfg.ClickHouse.Database, cfg.ClickHouse.RetentionDays)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideRedisCache creates the Redis cache client.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	return pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
}

// ProvideCacheService layers an in-process LRU over Redis.
func ProvideCacheService(redis *pkgcache.RedisCache) pkgcache.Service {
	return pkgcache.NewLayeredCache(redis)
}

// ProvideCandleStore creates the ClickHouse candle store.
func ProvideCandleStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) domrepo.CandleStore {
	store := internalrepo.NewCHCandleStore(ch, cfg.ClickHouse.Database)
	store.SetLogger(l)
	return store
}

// ProvideUniverseSource reads the hot/warm ticker sets owned by the
// trading pipelines out of Redis.
func ProvideUniverseSource(redis *pkgcache.RedisCache, cfg *config.Config, l *applogger.Logger) domrepo.UniverseSource {
	src := internalrepo.NewRedisUniverseSource(redis.Client(), cfg.Universe.HotSetKey, cfg.Universe.WarmSetKey)
	src.SetLogger(l)
	return src
}

// ProvideEventPublisher creates the Kafka refresh-event publisher, or
// nil when event publishing is disabled.
func ProvideEventPublisher(cfg *config.Config) (domrepo.EventPublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideProviderRouter assembles the vendor adapters and the failover
// router over them per the configured primary/secondary split.
func ProvideProviderRouter(cfg *config.Config, l *applogger.Logger, m domrepo.Metrics) (domrepo.Provider, error) {
	alpacaRate := provider.NewRateState(cfg.Providers.Alpaca.RateLimit, cfg.Providers.Alpaca.RateWindow)
	finnhubRate := provider.NewRateState(cfg.Providers.Finnhub.RateLimit, cfg.Providers.Finnhub.RateWindow)

	alpaca := provider.NewAlpacaProvider(
		cfg.Providers.Alpaca.APIKey,
		cfg.Providers.Alpaca.APISecret,
		cfg.Providers.Alpaca.DataURL,
		cfg.Providers.Timeout,
		alpacaRate,
	)
	finnhub := provider.NewFinnhubProvider(
		cfg.Providers.Finnhub.APIKey,
		cfg.Providers.Finnhub.BaseURL,
		cfg.Providers.Timeout,
		finnhubRate,
	)
	// Forex shares the Finnhub rate window; both hit the same vendor.
	forex := provider.NewForexProvider(
		cfg.Providers.Finnhub.APIKey,
		cfg.Providers.Finnhub.BaseURL,
		cfg.Providers.Timeout,
		finnhubRate,
	)

	var primary, secondary domrepo.Provider
	switch cfg.Providers.Primary {
	case "alpaca":
		primary, secondary = alpaca, finnhub
	case "finnhub":
		primary, secondary = finnhub, alpaca
	default:
		return nil, fmt.Errorf("unknown primary provider %q", cfg.Providers.Primary)
	}

	return provider.NewRouter(primary, secondary, forex, cfg.Providers.Timeout, l, m), nil
}

// ProvideTTLPolicy derives cache expiries from the task cadences.
func ProvideTTLPolicy(cfg *config.Config) domrepo.TTLPolicy {
	return domrepo.TTLPolicy{
		IngestInterval:    cfg.Ingest.Interval,
		IndicatorInterval: cfg.Indicators.Interval,
		HotQuoteInterval:  cfg.Quotes.HotInterval,
		WarmQuoteInterval: cfg.Quotes.WarmInterval,
	}
}

// ProvideUniverseTracker creates the universe snapshot holder.
func ProvideUniverseTracker(source domrepo.UniverseSource, cache pkgcache.Service, m domrepo.Metrics, l *applogger.Logger) *usecase.UniverseTracker {
	return usecase.NewUniverseTracker(source, cache, m, l)
}

// ProvideUniverseView exposes the tracker's read-only snapshot side.
func ProvideUniverseView(tracker *usecase.UniverseTracker) domrepo.UniverseView {
	return tracker
}

// ProvideIngestor creates the minute-candle ingestion usecase.
func ProvideIngestor(
	router domrepo.Provider,
	store domrepo.CandleStore,
	cache pkgcache.Service,
	publisher domrepo.EventPublisher,
	universe domrepo.UniverseView,
	m domrepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
	ttl domrepo.TTLPolicy,
) *usecase.Ingestor {
	return usecase.NewIngestor(router, store, cache, publisher, universe, m, l, cfg.Ingest.Lookback, cfg.Ingest.Parallelism, ttl)
}

// ProvideSeeder creates the EOD seeding usecase.
func ProvideSeeder(router domrepo.Provider, store domrepo.CandleStore, universe domrepo.UniverseView, m domrepo.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.Seeder {
	return usecase.NewSeeder(router, store, universe, m, l, cfg.Seeder.HistoryDays)
}

// ProvideIndicatorEngine creates the batch indicator usecase.
func ProvideIndicatorEngine(store domrepo.CandleStore, cache pkgcache.Service, universe domrepo.UniverseView, m domrepo.Metrics, l *applogger.Logger, cfg *config.Config, ttl domrepo.TTLPolicy) *usecase.IndicatorEngine {
	timeframes := make([]domrepo.Timeframe, 0, len(cfg.Indicators.Timeframes))
	for _, s := range cfg.Indicators.Timeframes {
		timeframes = append(timeframes, domrepo.NormalizeTimeframe(s))
	}
	return usecase.NewIndicatorEngine(store, cache, universe, m, l, timeframes, ttl)
}

// ProvideQuoteRefresher creates the tiered quote usecase.
func ProvideQuoteRefresher(router domrepo.Provider, cache pkgcache.Service, universe domrepo.UniverseView, m domrepo.Metrics, l *applogger.Logger, ttl domrepo.TTLPolicy) *usecase.QuoteRefresher {
	return usecase.NewQuoteRefresher(router, cache, universe, m, l, ttl)
}

// ProvideQueryService creates the cache-first read usecase.
func ProvideQueryService(store domrepo.CandleStore, cache pkgcache.Service, m domrepo.Metrics, l *applogger.Logger, ttl domrepo.TTLPolicy) *usecase.QueryService {
	return usecase.NewQueryService(store, cache, m, l, ttl)
}

// ProvideScheduler creates the task scheduler.
func ProvideScheduler(l *applogger.Logger) *scheduler.Scheduler {
	return scheduler.New(l)
}

// ProvideAPIHandler bundles the read API and health routes.
func ProvideAPIHandler(
	l *applogger.Logger,
	query *usecase.QueryService,
	quotes *usecase.QuoteRefresher,
	universe domrepo.UniverseView,
	store domrepo.CandleStore,
	redis *pkgcache.RedisCache,
	sched *scheduler.Scheduler,
) *api.Routes {
	return api.NewRoutes(
		api.NewMarketDataHandler(l, query, quotes, universe),
		api.NewHealthHandler(store, redis, sched),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
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
) *server.App {
	return server.New(cfg, l, sched, tracker, ingestor, seeder, engine, quotes, routes, chClient, redis, publisher)
}
