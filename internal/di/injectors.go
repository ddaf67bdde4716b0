//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"feedsync/internal"
	"feedsync/internal/controllers"
	"feedsync/internal/persistence"
	"feedsync/internal/providers"
	"feedsync/internal/structures"
	"feedsync/internal/timeline"
	"feedsync/internal/transport"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, func(), error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewIdentityProvider,
		newDedupCache,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		newMetricsBackend,
		newMetricsStore,
		transport.NewClient,
		newHomeFetcher,
		newNotificationsFetcher,
		timeline.NewNotificationIngestor,
		newHomeFeed,
		newNotificationFeed,
		newStream,

		newCollapseFeeds,
		newCompressor,
		newFileManager,
		persistence.NewScheduler,

		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil, nil
}
