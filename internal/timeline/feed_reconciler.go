package timeline

import (
	"context"

	"feedsync/internal/models"
	"feedsync/internal/providers"
)

type FeedReconcilerInterface interface {
	FetchNewest(ctx context.Context, force bool) (models.FeedState[models.Post], error)
	FetchNextPage(ctx context.Context) (models.FeedState[models.Post], error)
	Apply(event models.StreamEvent)
	State() models.FeedState[models.Post]
	ToggleCollapse(id string) (collapsed bool, found bool)
	Collapsed() CollapsedView
}

// CollapsedView lists the posts hidden from the rendered thread.
type CollapsedView struct {
	Explicit []string `json:"explicit"`
	Implicit []string `json:"implicit"`
}

// FeedReconciler owns the post list of one feed and keeps it consistent
// across fetches and live events. Reshares are filtered through the dedup
// cache shared by every feed of the session.
type FeedReconciler struct {
	pager    *Pager[models.Post]
	dedup    *models.DedupCache
	collapse *models.CollapseState
	identity providers.Identity
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface

	// reshare targets of the current list, one pin each; guarded by the pager lock
	pinned map[string]struct{}
}

func NewFeedReconciler(
	name string,
	fetcher Fetcher[models.Post],
	limit int,
	dedup *models.DedupCache,
	collapse *models.CollapseState,
	identity providers.Identity,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) *FeedReconciler {
	r := &FeedReconciler{
		pager:    NewPager[models.Post](name, fetcher, limit, logger, metrics),
		dedup:    dedup,
		collapse: collapse,
		identity: identity,
		logger:   logger,
		metrics:  metrics,
		pinned:   make(map[string]struct{}),
	}
	r.pager.process = r.removeDuplicates
	r.pager.changed = r.syncPins
	return r
}

func (r *FeedReconciler) FetchNewest(ctx context.Context, force bool) (models.FeedState[models.Post], error) {
	return r.pager.FetchNewest(ctx, force)
}

func (r *FeedReconciler) FetchNextPage(ctx context.Context) (models.FeedState[models.Post], error) {
	return r.pager.FetchNextPage(ctx)
}

func (r *FeedReconciler) State() models.FeedState[models.Post] {
	return r.pager.State()
}

func (r *FeedReconciler) Name() string {
	return r.pager.Name()
}

// Apply folds a live event into the list. Creates are only inserted when the
// viewer authored them; the home stream delivers everything else through the
// next fetch.
func (r *FeedReconciler) Apply(event models.StreamEvent) {
	r.metrics.IncStreamEvents(event.Kind.String())

	switch event.Kind {
	case models.EventCreate:
		if event.Post.AuthorID != r.identity.CurrentViewerAccountID() {
			return
		}
		r.pager.Mutate(func(items []models.Post) []models.Post {
			if i := indexOf(items, event.Post.ID); i >= 0 {
				items[i] = event.Post
				return items
			}
			return append([]models.Post{event.Post}, items...)
		})
	case models.EventEdit:
		r.pager.Mutate(func(items []models.Post) []models.Post {
			if i := indexOf(items, event.Post.ID); i >= 0 {
				items[i] = event.Post
			}
			return items
		})
	case models.EventDelete:
		r.pager.Mutate(func(items []models.Post) []models.Post {
			out := make([]models.Post, 0, len(items))
			for _, p := range items {
				if p.ID != event.PostID {
					out = append(out, p)
				}
			}
			return out
		})
	default:
		r.logger.Warnf(providers.TypeFeed, "%s: ignoring event of kind %s", r.pager.Name(), event.Kind)
	}
}

// ToggleCollapse flips the explicit collapse flag of a post in the list.
// Ids not in the list are left alone.
func (r *FeedReconciler) ToggleCollapse(id string) (bool, bool) {
	if indexOf(r.pager.Items(), id) < 0 {
		return false, false
	}
	return r.collapse.Toggle(id), true
}

// Collapsed reports the explicit set and the descendants hidden under it.
func (r *FeedReconciler) Collapsed() CollapsedView {
	explicit := r.collapse.Set()
	implicit := models.ImplicitCollapsed(r.pager.Items(), explicit)
	return CollapsedView{
		Explicit: models.SortedIDs(explicit),
		Implicit: models.SortedIDs(implicit),
	}
}

func (r *FeedReconciler) removeDuplicates(batch []models.Post) []models.Post {
	out := r.dedup.RemoveDuplicates(batch, r.identity.CurrentViewerAccountID())
	if dropped := len(batch) - len(out); dropped > 0 {
		r.metrics.AddDuplicatesSuppressed(r.pager.Name(), dropped)
		r.logger.Debugf(providers.TypeFeed, "%s: suppressed %d duplicate reshares", r.pager.Name(), dropped)
	}
	return out
}

// syncPins keeps the dedup cache aware of which reshare targets are on screen.
func (r *FeedReconciler) syncPins(items []models.Post) {
	current := make(map[string]struct{}, len(r.pinned))
	for _, p := range items {
		if t := p.ReshareTargetID(); t != "" {
			current[t] = struct{}{}
		}
	}

	var added, removed []string
	for t := range current {
		if _, ok := r.pinned[t]; !ok {
			added = append(added, t)
		}
	}
	for t := range r.pinned {
		if _, ok := current[t]; !ok {
			removed = append(removed, t)
		}
	}
	if len(added) > 0 {
		r.dedup.Pin(added...)
	}
	if len(removed) > 0 {
		r.dedup.Unpin(removed...)
	}
	r.pinned = current
}

func indexOf(items []models.Post, id string) int {
	for i, p := range items {
		if p.ID == id {
			return i
		}
	}
	return -1
}
