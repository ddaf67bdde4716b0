package timeline

import (
	"context"

	"feedsync/internal/models"
	"feedsync/internal/providers"
	"feedsync/internal/services"
)

type NotificationFeedInterface interface {
	FetchNewest(ctx context.Context, force bool) (models.FeedState[models.Notification], error)
	FetchNextPage(ctx context.Context) (models.FeedState[models.Notification], error)
	Receive(ctx context.Context, n models.Notification)
	State() models.FeedState[models.Notification]
	Groups(selected models.NotificationType) []models.ConsolidatedNotification
}

// NotificationFeed holds the notification list and feeds every committed
// change into the metrics ingestor.
type NotificationFeed struct {
	pager    *Pager[models.Notification]
	ingestor *NotificationIngestor
	logger   providers.Logger
}

func NewNotificationFeed(
	fetcher Fetcher[models.Notification],
	limit int,
	ingestor *NotificationIngestor,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) *NotificationFeed {
	return &NotificationFeed{
		pager:    NewPager[models.Notification]("notifications", fetcher, limit, logger, metrics),
		ingestor: ingestor,
		logger:   logger,
	}
}

func (f *NotificationFeed) FetchNewest(ctx context.Context, force bool) (models.FeedState[models.Notification], error) {
	state, err := f.pager.FetchNewest(ctx, force)
	if err == nil {
		f.ingest(ctx)
	}
	return state, err
}

func (f *NotificationFeed) FetchNextPage(ctx context.Context) (models.FeedState[models.Notification], error) {
	before := len(f.pager.Items())
	state, err := f.pager.FetchNextPage(ctx)
	if err == nil && len(f.pager.Items()) != before {
		f.ingest(ctx)
	}
	return state, err
}

// Receive inserts a live notification at the head of the list.
func (f *NotificationFeed) Receive(ctx context.Context, n models.Notification) {
	f.pager.Mutate(func(items []models.Notification) []models.Notification {
		for i := range items {
			if items[i].ID == n.ID {
				items[i] = n
				return items
			}
		}
		return append([]models.Notification{n}, items...)
	})
	f.ingest(ctx)
}

func (f *NotificationFeed) State() models.FeedState[models.Notification] {
	return f.pager.State()
}

// Groups is the consolidated view of the held notifications.
func (f *NotificationFeed) Groups(selected models.NotificationType) []models.ConsolidatedNotification {
	return models.Consolidate(f.pager.Items(), selected)
}

// ingest re-consolidates the whole list so a group spanning several pages
// is written with its full count.
func (f *NotificationFeed) ingest(ctx context.Context) {
	if f.ingestor == nil {
		return
	}
	if err := f.ingestor.Ingest(ctx, f.pager.Items()); err != nil {
		f.logger.Warnf(providers.TypeStore, "notification metrics not updated: %s", err)
	}
}

// NotificationIngestor writes consolidated notification groups to the
// metrics store of the configured account.
type NotificationIngestor struct {
	store    services.MetricsStoreInterface
	identity providers.Identity
	metrics  providers.MetricsProviderInterface
}

func NewNotificationIngestor(store services.MetricsStoreInterface, identity providers.Identity, metrics providers.MetricsProviderInterface) *NotificationIngestor {
	return &NotificationIngestor{
		store:    store,
		identity: identity,
		metrics:  metrics,
	}
}

func (i *NotificationIngestor) Ingest(ctx context.Context, notifications []models.Notification) error {
	groups := models.Groups(notifications, "")
	if len(groups) == 0 {
		return nil
	}
	if err := i.store.Upsert(ctx, groups, i.identity.CurrentViewerAccountID(), i.identity.Server()); err != nil {
		return err
	}
	i.metrics.AddGroupsUpserted(len(groups))
	return nil
}
