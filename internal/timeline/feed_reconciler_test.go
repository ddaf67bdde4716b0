package timeline

import (
	"context"
	"testing"
	"time"

	"feedsync/internal/models"
	"feedsync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const me = "me"

func reshareOf(id, author, target string) models.Post {
	return models.Post{ID: id, AuthorID: author, ReshareOf: &models.Post{ID: target, AuthorID: "origin"}}
}

type reconcilerFixture struct {
	r       *FeedReconciler
	fetcher *testutil.MockFetcher[models.Post]
	dedup   *models.DedupCache
	metrics *testutil.MockMetrics
}

func newReconciler(dedup *models.DedupCache, results ...testutil.FetchResult[models.Post]) reconcilerFixture {
	f := &testutil.MockFetcher[models.Post]{Results: results}
	metrics := testutil.NewMockMetrics()
	r := NewFeedReconciler("home", f, 20, dedup, models.NewCollapseState(),
		&testutil.MockIdentity{AccountID: me, ServerName: "example.social"},
		&testutil.MockLogger{}, metrics)
	return reconcilerFixture{r: r, fetcher: f, dedup: dedup, metrics: metrics}
}

func loaded(t *testing.T, fx reconcilerFixture) {
	t.Helper()
	_, err := fx.r.FetchNewest(context.Background(), false)
	require.NoError(t, err)
}

func TestFeedReconciler_FetchNewestSuppressesDuplicateReshares(t *testing.T) {
	fx := newReconciler(models.NewDedupCache(10), testutil.FetchResult[models.Post]{Page: models.Page[models.Post]{
		Items: []models.Post{reshareOf("c", "C", "T"), post("p"), reshareOf("b", "B", "T"), reshareOf("a", "A", "T")},
	}})

	state, err := fx.r.FetchNewest(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "a"}, postIDs(state.Items))
	assert.Equal(t, 2, fx.metrics.Duplicates["home"])
}

func TestFeedReconciler_DedupSharedAcrossFeeds(t *testing.T) {
	dedup := models.NewDedupCache(10)
	home := newReconciler(dedup, testutil.FetchResult[models.Post]{Page: models.Page[models.Post]{Items: []models.Post{reshareOf("a", "A", "T")}}})
	local := newReconciler(dedup, testutil.FetchResult[models.Post]{Page: models.Page[models.Post]{Items: []models.Post{reshareOf("b", "B", "T")}}})

	loaded(t, home)
	loaded(t, local)

	assert.Equal(t, []string{"a"}, postIDs(home.r.State().Items))
	assert.Empty(t, local.r.State().Items)
}

func TestFeedReconciler_PinsFollowVisibleReshares(t *testing.T) {
	fx := newReconciler(models.NewDedupCache(10), testutil.FetchResult[models.Post]{Page: models.Page[models.Post]{
		Items: []models.Post{reshareOf("a", "A", "T"), reshareOf("x", "X", "U")},
	}})
	loaded(t, fx)
	assert.Contains(t, fx.r.pinned, "T")
	assert.Contains(t, fx.r.pinned, "U")

	fx.r.Apply(models.DeleteEvent("a"))
	assert.NotContains(t, fx.r.pinned, "T")
	assert.Contains(t, fx.r.pinned, "U")
}

func TestFeedReconciler_VisibleReshareTargetSurvivesEviction(t *testing.T) {
	dedup := models.NewDedupCache(2)
	fx := newReconciler(dedup, testutil.FetchResult[models.Post]{Page: models.Page[models.Post]{
		Items: []models.Post{reshareOf("a", "A", "T")},
	}})
	loaded(t, fx)

	dedup.RemoveDuplicates([]models.Post{reshareOf("u", "B", "U")}, me)
	dedup.RemoveDuplicates([]models.Post{reshareOf("v", "B", "V")}, me)

	_, ok := dedup.Entry("T")
	assert.True(t, ok)
	_, ok = dedup.Entry("U")
	assert.False(t, ok)
}

func TestFeedReconciler_ApplyCreateFromViewerInsertsAtHead(t *testing.T) {
	fx := newReconciler(models.NewDedupCache(10), testutil.FetchResult[models.Post]{Page: page("", "a", "b")})
	loaded(t, fx)

	fx.r.Apply(models.CreateEvent(models.Post{ID: "new", AuthorID: me}))
	assert.Equal(t, []string{"new", "a", "b"}, postIDs(fx.r.State().Items))
	assert.Equal(t, 1, fx.metrics.StreamEvents["create"])
}

func TestFeedReconciler_ApplyCreateFromOthersIgnored(t *testing.T) {
	fx := newReconciler(models.NewDedupCache(10), testutil.FetchResult[models.Post]{Page: page("", "a")})
	loaded(t, fx)

	fx.r.Apply(models.CreateEvent(models.Post{ID: "new", AuthorID: "stranger"}))
	assert.Equal(t, []string{"a"}, postIDs(fx.r.State().Items))
}

func TestFeedReconciler_ApplyCreateExistingReplacesInPlace(t *testing.T) {
	fx := newReconciler(models.NewDedupCache(10), testutil.FetchResult[models.Post]{Page: page("", "a", "b")})
	loaded(t, fx)

	fx.r.Apply(models.CreateEvent(models.Post{ID: "b", AuthorID: me}))
	items := fx.r.State().Items
	assert.Equal(t, []string{"a", "b"}, postIDs(items))
	assert.Equal(t, me, items[1].AuthorID)
}

func TestFeedReconciler_ApplyDeleteRemovesEveryOccurrence(t *testing.T) {
	fx := newReconciler(models.NewDedupCache(10), testutil.FetchResult[models.Post]{Page: page("", "a", "b")})
	loaded(t, fx)
	fx.r.pager.Mutate(func(items []models.Post) []models.Post { return append(items, post("a")) })

	fx.r.Apply(models.DeleteEvent("a"))
	assert.Equal(t, []string{"b"}, postIDs(fx.r.State().Items))

	fx.r.Apply(models.DeleteEvent("missing"))
	assert.Equal(t, []string{"b"}, postIDs(fx.r.State().Items))
}

func TestFeedReconciler_ApplyEditReplacesInPlace(t *testing.T) {
	fx := newReconciler(models.NewDedupCache(10), testutil.FetchResult[models.Post]{Page: page("", "a", "b", "c")})
	loaded(t, fx)
	edited := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	fx.r.Apply(models.EditEvent(models.Post{ID: "b", AuthorID: "someone", EditedAt: &edited}))
	items := fx.r.State().Items
	assert.Equal(t, []string{"a", "b", "c"}, postIDs(items))
	require.NotNil(t, items[1].EditedAt)
	assert.Equal(t, edited, *items[1].EditedAt)

	fx.r.Apply(models.EditEvent(models.Post{ID: "zzz"}))
	assert.Equal(t, []string{"a", "b", "c"}, postIDs(fx.r.State().Items))
}

func TestFeedReconciler_ApplyBeforeFirstLoad(t *testing.T) {
	fx := newReconciler(models.NewDedupCache(10))

	fx.r.Apply(models.CreateEvent(models.Post{ID: "mine", AuthorID: me}))
	assert.Equal(t, models.PhaseLoading, fx.r.State().Phase)
	assert.Equal(t, []string{"mine"}, postIDs(fx.r.pager.Items()))
}

func TestFeedReconciler_NextPageSkipsExistingIDs(t *testing.T) {
	fx := newReconciler(models.NewDedupCache(10),
		testutil.FetchResult[models.Post]{Page: page("b", "a", "b")},
		testutil.FetchResult[models.Post]{Page: page("", "b", "c")},
	)
	loaded(t, fx)

	state, err := fx.r.FetchNextPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, postIDs(state.Items))
	assert.Equal(t, models.Exhausted, state.Paging)
}

func TestFeedReconciler_CancelledHeadResponseIsNotCommitted(t *testing.T) {
	dedup := models.NewDedupCache(10)
	fx := newReconciler(dedup)
	ctx, cancel := context.WithCancel(context.Background())
	fx.fetcher.Respond = func(_ context.Context, _ models.PageRequest) (models.Page[models.Post], error) {
		cancel()
		return models.Page[models.Post]{Items: []models.Post{reshareOf("a", "A", "T"), reshareOf("b", "B", "U")}}, nil
	}

	state, err := fx.r.FetchNewest(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.PhaseLoading, state.Phase)
	assert.Empty(t, fx.r.pager.Items())
	assert.Equal(t, 0, dedup.Len())
	assert.Empty(t, fx.r.pinned)
	assert.Empty(t, fx.metrics.Duplicates)
}

func TestFeedReconciler_CancelledNextPageResponseIsNotCommitted(t *testing.T) {
	dedup := models.NewDedupCache(10)
	fx := newReconciler(dedup, testutil.FetchResult[models.Post]{Page: page("b", "a", "b")})
	loaded(t, fx)

	ctx, cancel := context.WithCancel(context.Background())
	fx.fetcher.Respond = func(_ context.Context, _ models.PageRequest) (models.Page[models.Post], error) {
		cancel()
		return models.Page[models.Post]{Items: []models.Post{reshareOf("c", "C", "T")}}, nil
	}

	state, err := fx.r.FetchNextPage(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.PhaseDisplaying, state.Phase)
	assert.Equal(t, models.HasNextPage, state.Paging)
	assert.Equal(t, []string{"a", "b"}, postIDs(state.Items))
	assert.Equal(t, 0, dedup.Len())
	assert.Empty(t, fx.r.pinned)
}

func TestFeedReconciler_ToggleCollapse(t *testing.T) {
	fx := newReconciler(models.NewDedupCache(10), testutil.FetchResult[models.Post]{Page: models.Page[models.Post]{Items: []models.Post{
		{ID: "root"},
		{ID: "r1", ParentID: "root"},
		{ID: "r2", ParentID: "r1"},
		{ID: "other"},
	}}})
	loaded(t, fx)

	collapsed, found := fx.r.ToggleCollapse("root")
	assert.True(t, found)
	assert.True(t, collapsed)

	view := fx.r.Collapsed()
	assert.Equal(t, []string{"root"}, view.Explicit)
	assert.Equal(t, []string{"r1", "r2"}, view.Implicit)

	collapsed, found = fx.r.ToggleCollapse("root")
	assert.True(t, found)
	assert.False(t, collapsed)
	assert.Empty(t, fx.r.Collapsed().Implicit)
}

func TestFeedReconciler_ToggleCollapseUnknownID(t *testing.T) {
	fx := newReconciler(models.NewDedupCache(10), testutil.FetchResult[models.Post]{Page: page("", "a")})
	loaded(t, fx)

	collapsed, found := fx.r.ToggleCollapse("ghost")
	assert.False(t, found)
	assert.False(t, collapsed)
	assert.Empty(t, fx.r.Collapsed().Explicit)
}
