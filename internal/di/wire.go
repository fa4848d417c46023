//go:build wireinject
// +build wireinject

package di

import (
	"MarketPulse/pkg/config"
	"MarketPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideCacheService,
		ProvideEventPublisher,

		// Repositories
		ProvideCandleStore,
		ProvideUniverseSource,

		// Vendors
		ProvideProviderRouter,

		// Use cases
		ProvideTTLPolicy,
		ProvideUniverseTracker,
		ProvideUniverseView,
		ProvideIngestor,
		ProvideSeeder,
		ProvideIndicatorEngine,
		ProvideQuoteRefresher,
		ProvideQueryService,

		// HTTP and scheduling
		ProvideScheduler,
		ProvideAPIHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
