package models

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const viewer = "me"

func reshare(id, author, target string) Post {
	return Post{ID: id, AuthorID: author, ReshareOf: &Post{ID: target, AuthorID: "origin"}}
}

func ids(posts []Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func TestDedupCache_DefaultCapacity(t *testing.T) {
	c := NewDedupCache(0)
	assert.Equal(t, DefaultDedupCapacity, c.Capacity())
}

func TestDedupCache_PlainPostsPassThrough(t *testing.T) {
	c := NewDedupCache(10)
	batch := []Post{{ID: "3"}, {ID: "2"}, {ID: "1"}}

	out := c.RemoveDuplicates(batch, viewer)
	assert.Equal(t, []string{"3", "2", "1"}, ids(out))
	assert.Equal(t, 0, c.Len())
}

func TestDedupCache_EarliestReshareWins(t *testing.T) {
	c := NewDedupCache(10)
	// newest first: C reshared last, A first
	batch := []Post{reshare("c", "C", "T"), reshare("b", "B", "T"), reshare("a", "A", "T")}

	out := c.RemoveDuplicates(batch, viewer)
	assert.Equal(t, []string{"a"}, ids(out))

	entry, ok := c.Entry("T")
	require.True(t, ok)
	assert.Equal(t, "c", entry.ChosenID)
	assert.False(t, entry.Seen)
}

func TestDedupCache_ViewerReshareAlwaysKept(t *testing.T) {
	c := NewDedupCache(10)
	batch := []Post{reshare("v", viewer, "T"), reshare("b", "B", "T"), reshare("a", "A", "T")}

	out := c.RemoveDuplicates(batch, viewer)
	assert.Equal(t, []string{"v", "a"}, ids(out))

	entry, _ := c.Entry("T")
	assert.Equal(t, "v", entry.ChosenID)
	assert.True(t, entry.Seen)
}

func TestDedupCache_ViewerReshareAcrossBatches(t *testing.T) {
	c := NewDedupCache(10)
	c.RemoveDuplicates([]Post{reshare("b", "B", "T"), reshare("a", "A", "T")}, viewer)

	out := c.RemoveDuplicates([]Post{reshare("v", viewer, "T")}, viewer)
	assert.Equal(t, []string{"v"}, ids(out))
}

func TestDedupCache_SeenResurfacesOnce(t *testing.T) {
	c := NewDedupCache(10)
	c.RemoveDuplicates([]Post{reshare("v", viewer, "T"), reshare("a", "A", "T")}, viewer)

	// seen entry lets the next duplicate through and resets seen
	out := c.RemoveDuplicates([]Post{reshare("d", "D", "T")}, viewer)
	assert.Equal(t, []string{"d"}, ids(out))
	entry, _ := c.Entry("T")
	assert.False(t, entry.Seen)
	assert.Equal(t, "d", entry.ChosenID)

	// and the following one is suppressed again
	out = c.RemoveDuplicates([]Post{reshare("e", "E", "T")}, viewer)
	assert.Empty(t, out)
}

func TestDedupCache_SameInstanceAgainIsKept(t *testing.T) {
	c := NewDedupCache(10)
	c.RemoveDuplicates([]Post{reshare("a", "A", "T")}, viewer)

	out := c.RemoveDuplicates([]Post{reshare("a", "A", "T")}, viewer)
	assert.Equal(t, []string{"a"}, ids(out))
}

func TestDedupCache_RepeatedBatchDropsSharedTarget(t *testing.T) {
	c := NewDedupCache(10)
	batch := []Post{reshare("b", "B", "T"), reshare("a", "A", "T"), {ID: "p"}}

	assert.Equal(t, []string{"a", "p"}, ids(c.RemoveDuplicates(batch, viewer)))

	// the last dropped instance is the candidate of record, so a replay of the
	// same batch matches none of the kept ids
	assert.Equal(t, []string{"p"}, ids(c.RemoveDuplicates(batch, viewer)))
	entry, ok := c.Entry("T")
	require.True(t, ok)
	assert.Equal(t, "b", entry.ChosenID)
	assert.False(t, entry.Seen)
}

func TestDedupCache_PreservesOrderOfMixedBatch(t *testing.T) {
	c := NewDedupCache(10)
	batch := []Post{
		{ID: "5"},
		reshare("4", "B", "T"),
		{ID: "3"},
		reshare("2", "A", "T"),
		reshare("1", "A", "U"),
	}
	out := c.RemoveDuplicates(batch, viewer)
	assert.Equal(t, []string{"5", "3", "2", "1"}, ids(out))
}

func TestDedupCache_CapacityBound(t *testing.T) {
	c := NewDedupCache(3)
	for i := 0; i < 10; i++ {
		c.RemoveDuplicates([]Post{reshare(fmt.Sprintf("r%d", i), "A", fmt.Sprintf("T%d", i))}, viewer)
		assert.LessOrEqual(t, c.Len(), 3)
	}
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, uint64(7), c.Evictions())
}

func TestDedupCache_EvictsLeastRecentlyTouched(t *testing.T) {
	c := NewDedupCache(3)
	c.RemoveDuplicates([]Post{reshare("a", "A", "T1")}, viewer)
	c.RemoveDuplicates([]Post{reshare("b", "A", "T2")}, viewer)
	c.RemoveDuplicates([]Post{reshare("c", "A", "T3")}, viewer)

	// touch T1 so T2 becomes the oldest
	c.RemoveDuplicates([]Post{reshare("a", "A", "T1")}, viewer)
	c.RemoveDuplicates([]Post{reshare("d", "A", "T4")}, viewer)

	_, ok := c.Entry("T2")
	assert.False(t, ok)
	for _, target := range []string{"T1", "T3", "T4"} {
		_, ok := c.Entry(target)
		assert.True(t, ok, target)
	}
}

func TestDedupCache_EvictedTargetTreatedAsFirstSeen(t *testing.T) {
	c := NewDedupCache(1)
	c.RemoveDuplicates([]Post{reshare("a", "A", "T")}, viewer)
	c.RemoveDuplicates([]Post{reshare("x", "A", "U")}, viewer)

	out := c.RemoveDuplicates([]Post{reshare("b", "B", "T")}, viewer)
	assert.Equal(t, []string{"b"}, ids(out))
}

func TestDedupCache_PinnedUnseenSurvivesEviction(t *testing.T) {
	c := NewDedupCache(2)
	c.RemoveDuplicates([]Post{reshare("a", "A", "T1")}, viewer)
	c.RemoveDuplicates([]Post{reshare("b", "A", "T2")}, viewer)
	c.Pin("T1")

	c.RemoveDuplicates([]Post{reshare("c", "A", "T3")}, viewer)

	_, ok := c.Entry("T1")
	assert.True(t, ok)
	_, ok = c.Entry("T2")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestDedupCache_AllPinnedStillBounded(t *testing.T) {
	c := NewDedupCache(2)
	c.Pin("T1", "T2", "T3")
	c.RemoveDuplicates([]Post{reshare("a", "A", "T1")}, viewer)
	c.RemoveDuplicates([]Post{reshare("b", "A", "T2")}, viewer)
	c.RemoveDuplicates([]Post{reshare("c", "A", "T3")}, viewer)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Entry("T1")
	assert.False(t, ok)
}

func TestDedupCache_UnpinReleasesProtection(t *testing.T) {
	c := NewDedupCache(2)
	c.RemoveDuplicates([]Post{reshare("a", "A", "T1")}, viewer)
	c.RemoveDuplicates([]Post{reshare("b", "A", "T2")}, viewer)
	c.Pin("T1")
	c.Unpin("T1")
	c.Unpin("never-pinned")

	c.RemoveDuplicates([]Post{reshare("c", "A", "T3")}, viewer)
	_, ok := c.Entry("T1")
	assert.False(t, ok)
}

func TestDedupCache_ConcurrentAccess(t *testing.T) {
	c := NewDedupCache(50)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				target := fmt.Sprintf("T%d", i%80)
				c.RemoveDuplicates([]Post{reshare(fmt.Sprintf("%d-%d", w, i), "A", target)}, viewer)
				if i%10 == 0 {
					c.Pin(target)
					c.Unpin(target)
				}
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}
