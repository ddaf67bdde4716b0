package di

import (
	"fmt"
	"strings"
	"time"

	"feedsync/internal/models"
	"feedsync/internal/persistence"
	"feedsync/internal/persistence/interfaces"
	"feedsync/internal/providers"
	"feedsync/internal/services"
	"feedsync/internal/storage"
	"feedsync/internal/structures"
	"feedsync/internal/timeline"
	"feedsync/internal/transport"
)

func newDedupCache(conf *structures.Config) *models.DedupCache {
	return models.NewDedupCache(conf.Feed.DedupCapacity)
}

// newCollapseFeeds registers the collapse state of every persisted feed.
func newCollapseFeeds() map[string]*models.CollapseState {
	return map[string]*models.CollapseState{
		persistence.DefaultFeed: models.NewCollapseState(),
	}
}

func newCompressor() (interfaces.CompressorInterface, error) {
	return persistence.NewZstdCompressor()
}

func newFileManager(compressor interfaces.CompressorInterface, feeds map[string]*models.CollapseState, logger providers.Logger) (*persistence.FileManager, func()) {
	fm := persistence.NewFileManager(compressor, feeds, logger)
	return fm, fm.Close
}

// newMetricsBackend opens the configured storage driver. sqlite reads its
// file path from the dsn, with an optional file: prefix.
func newMetricsBackend(conf *structures.Config, logger providers.Logger) (services.MetricsBackend, func(), error) {
	switch conf.NotificationMetrics.Driver {
	case "memory":
		backend := storage.NewMemoryBackend()
		return backend, func() { _ = backend.Close() }, nil
	case "sqlite":
		path := strings.TrimPrefix(conf.NotificationMetrics.DSN, "file:")
		if path == "" {
			return nil, nil, fmt.Errorf("notificationMetrics.dsn is required for the sqlite driver")
		}
		backend, err := storage.NewSQLiteBackend(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open metrics store %s: %w", path, err)
		}
		logger.Infof(providers.TypeStore, "Notification metrics stored in %s", path)
		return backend, func() {
			if err := backend.Close(); err != nil {
				logger.Errorf(providers.TypeStore, "Failed to close metrics store: %s", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown notification metrics driver %q", conf.NotificationMetrics.Driver)
	}
}

func newMetricsStore(backend services.MetricsBackend, conf *structures.Config) (services.MetricsStoreInterface, error) {
	location := time.Local
	if tz := conf.NotificationMetrics.Timezone; tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid notificationMetrics.timezone %q: %w", tz, err)
		}
		location = loc
	}
	return services.NewMetricsStore(backend, location), nil
}

func newHomeFetcher(client *transport.Client, cache providers.CacheProviderInterface, logger providers.Logger) timeline.Fetcher[models.Post] {
	return transport.NewCachingFetcher[models.Post]("home", transport.NewHomeTimelineFetcher(client), cache, logger)
}

func newNotificationsFetcher(client *transport.Client, cache providers.CacheProviderInterface, logger providers.Logger) timeline.Fetcher[models.Notification] {
	return transport.NewCachingFetcher[models.Notification]("notifications", transport.NewNotificationsFetcher(client), cache, logger)
}

func newHomeFeed(
	conf *structures.Config,
	fetcher timeline.Fetcher[models.Post],
	dedup *models.DedupCache,
	feeds map[string]*models.CollapseState,
	identity providers.Identity,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) timeline.FeedReconcilerInterface {
	return timeline.NewFeedReconciler(persistence.DefaultFeed, fetcher, conf.Feed.PageLimit, dedup, feeds[persistence.DefaultFeed], identity, logger, metrics)
}

func newNotificationFeed(
	conf *structures.Config,
	fetcher timeline.Fetcher[models.Notification],
	ingestor *timeline.NotificationIngestor,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) timeline.NotificationFeedInterface {
	return timeline.NewNotificationFeed(fetcher, conf.Feed.PageLimit, ingestor, logger, metrics)
}

// newStream returns nil when live updates are disabled.
func newStream(
	conf *structures.Config,
	home timeline.FeedReconcilerInterface,
	notifications timeline.NotificationFeedInterface,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) transport.StreamClientInterface {
	if !conf.Stream.Enabled {
		logger.Infof(providers.TypeStream, "Streaming disabled")
		return nil
	}
	return transport.NewStreamClient(conf, home, notifications, logger, metrics)
}
