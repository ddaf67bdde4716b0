// Package timeline keeps paginated feeds consistent with live events.
package timeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"feedsync/internal/models"
	"feedsync/internal/providers"
)

// Fetcher is the transport collaborator for one feed.
type Fetcher[T models.Item] interface {
	FetchPage(ctx context.Context, req models.PageRequest) (models.Page[T], error)
}

// Pager is the cursor pagination state machine shared by every list feed.
// All mutations of the canonical list go through its mutex; the mutex is
// never held while the transport is awaited.
type Pager[T models.Item] struct {
	name    string
	fetcher Fetcher[T]
	limit   int
	logger  providers.Logger
	metrics providers.MetricsProviderInterface

	// process filters every committed batch before it joins the list.
	process func(batch []T) []T
	// changed observes the list after every mutation, under the lock.
	changed func(items []T)

	mu         sync.Mutex
	phase      models.FeedPhase
	items      []T
	cursor     *models.PageCursor
	paging     models.PagingState
	errKind    models.ErrorKind
	generation uint64
}

func NewPager[T models.Item](name string, fetcher Fetcher[T], limit int, logger providers.Logger, metrics providers.MetricsProviderInterface) *Pager[T] {
	return &Pager[T]{
		name:    name,
		fetcher: fetcher,
		limit:   limit,
		logger:  logger,
		metrics: metrics,
		phase:   models.PhaseLoading,
		paging:  models.Exhausted,
	}
}

// FetchNewest loads the head of the feed and replaces the canonical list.
// On failure the list is kept; the phase turns to Error only when there is
// nothing to show. A cancelled fetch changes nothing.
func (p *Pager[T]) FetchNewest(ctx context.Context, force bool) (models.FeedState[T], error) {
	p.mu.Lock()
	prevPhase := p.phase
	if p.phase == models.PhaseError {
		p.phase = models.PhaseLoading
	}
	p.mu.Unlock()

	start := time.Now()
	page, err := p.fetcher.FetchPage(ctx, models.PageRequest{Limit: p.limit, Fresh: force})
	p.metrics.ObserveFetchDuration(p.name, time.Since(start))

	p.mu.Lock()
	defer p.mu.Unlock()

	if cerr := cancelled(ctx, err); cerr != nil {
		if p.phase == models.PhaseLoading {
			p.phase = prevPhase
		}
		return p.snapshot(), cerr
	}
	if err != nil {
		p.fail(err)
		return p.snapshot(), err
	}

	batch := uniqueItems(page.Items, nil)
	if p.process != nil {
		batch = p.process(batch)
	}
	p.items = batch
	p.cursor = page.Cursor
	p.paging = pagingFor(page.Cursor)
	p.phase = models.PhaseDisplaying
	p.errKind = models.ErrNone
	p.generation++
	p.notify()

	p.logger.Debugf(providers.TypeFeed, "%s: loaded %d items, paging %s", p.name, len(p.items), p.paging)
	return p.snapshot(), nil
}

// FetchNextPage appends the page after the held cursor. It is a silent no-op
// unless the feed is displaying with a next page available.
func (p *Pager[T]) FetchNextPage(ctx context.Context) (models.FeedState[T], error) {
	p.mu.Lock()
	if p.phase != models.PhaseDisplaying || p.paging != models.HasNextPage || !p.cursor.HasMore() {
		state := p.snapshot()
		p.mu.Unlock()
		return state, nil
	}
	p.paging = models.LoadingNextPage
	gen := p.generation
	maxID := p.cursor.MaxID
	p.mu.Unlock()

	start := time.Now()
	page, err := p.fetcher.FetchPage(ctx, models.PageRequest{MaxID: maxID, Limit: p.limit, Fresh: true})
	p.metrics.ObserveFetchDuration(p.name, time.Since(start))

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		// the list was replaced by a newer head fetch while this page was in flight
		return p.snapshot(), nil
	}
	if cerr := cancelled(ctx, err); cerr != nil {
		p.paging = models.HasNextPage
		return p.snapshot(), cerr
	}
	if err != nil {
		p.paging = models.HasNextPage
		p.fail(err)
		return p.snapshot(), err
	}

	batch := uniqueItems(page.Items, p.items)
	if p.process != nil {
		batch = p.process(batch)
	}
	p.items = append(p.items, batch...)
	next := &models.PageCursor{MinID: p.cursor.MinID}
	if page.Cursor != nil {
		next.MaxID = page.Cursor.MaxID
	}
	p.cursor = next
	p.paging = pagingFor(next)
	p.notify()

	p.logger.Debugf(providers.TypeFeed, "%s: appended %d items, paging %s", p.name, len(batch), p.paging)
	return p.snapshot(), nil
}

// Mutate applies fn to the canonical list, serialized with fetch commits.
// The phase is left as is.
func (p *Pager[T]) Mutate(fn func(items []T) []T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = fn(p.items)
	p.notify()
}

func (p *Pager[T]) State() models.FeedState[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

// Items returns a copy of the canonical list regardless of phase.
func (p *Pager[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]T(nil), p.items...)
}

func (p *Pager[T]) Cursor() *models.PageCursor {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cursor == nil {
		return nil
	}
	c := *p.cursor
	return &c
}

func (p *Pager[T]) Name() string {
	return p.name
}

func (p *Pager[T]) fail(err error) {
	kind := models.KindOf(err)
	p.metrics.IncFetchErrors(p.name, kind.String())
	p.logger.Warnf(providers.TypeFeed, "%s: fetch failed: %s", p.name, err)
	switch {
	case len(p.items) == 0:
		p.phase = models.PhaseError
		p.errKind = kind
	case p.phase == models.PhaseLoading:
		// items arrived through Mutate while no page was loaded
		p.phase = models.PhaseDisplaying
		p.paging = pagingFor(p.cursor)
		p.errKind = models.ErrNone
	}
}

func (p *Pager[T]) notify() {
	if p.changed != nil {
		p.changed(p.items)
	}
}

func (p *Pager[T]) snapshot() models.FeedState[T] {
	switch p.phase {
	case models.PhaseDisplaying:
		return models.DisplayingState(append([]T(nil), p.items...), p.paging)
	case models.PhaseError:
		return models.ErrorState[T](p.errKind)
	default:
		return models.LoadingState[T]()
	}
}

func pagingFor(c *models.PageCursor) models.PagingState {
	if c.HasMore() {
		return models.HasNextPage
	}
	return models.Exhausted
}

// cancelled reports the context error when the caller gave up on the fetch.
func cancelled(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// uniqueItems drops items whose id is already in existing or earlier in batch.
func uniqueItems[T models.Item](batch []T, existing []T) []T {
	seen := make(map[string]struct{}, len(batch)+len(existing))
	for _, item := range existing {
		seen[item.ItemID()] = struct{}{}
	}
	out := make([]T, 0, len(batch))
	for _, item := range batch {
		id := item.ItemID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, item)
	}
	return out
}
