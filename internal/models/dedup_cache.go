package models

import (
	"container/list"
	"sync"
)

const DefaultDedupCapacity = 100

// DedupEntry remembers which instance currently represents a reshare target.
type DedupEntry struct {
	TargetID string `json:"target_id"`
	ChosenID string `json:"chosen_id"`
	Seen     bool   `json:"seen"`
}

type dedupNode struct {
	entry DedupEntry
	pins  int
}

// DedupCache suppresses repeated reshares of the same original post. It is a
// strict LRU bounded by capacity and is shared by every feed of the process.
type DedupCache struct {
	mu        sync.Mutex
	capacity  int
	order     *list.List // front is most recently used
	index     map[string]*list.Element
	pins      map[string]int
	evictions uint64
}

func NewDedupCache(capacity int) *DedupCache {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &DedupCache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
		pins:     make(map[string]int),
	}
}

// RemoveDuplicates filters a newest-first batch. Items are visited oldest
// first so the earliest reshare of a target wins; the viewer's own reshares
// are always kept. Order of the surviving items is preserved.
func (c *DedupCache) RemoveDuplicates(items []Post, viewerID string) []Post {
	c.mu.Lock()
	defer c.mu.Unlock()

	keep := make([]bool, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if !item.IsReshare() {
			keep[i] = true
			continue
		}
		target := item.ReshareTargetID()
		elem, ok := c.index[target]
		if !ok {
			keep[i] = true
			c.put(DedupEntry{TargetID: target, ChosenID: item.ID})
			continue
		}
		current := elem.Value.(*dedupNode).entry
		if current.ChosenID != item.ID && !current.Seen {
			if viewerID != "" && item.AuthorID == viewerID {
				keep[i] = true
				c.put(DedupEntry{TargetID: target, ChosenID: item.ID, Seen: true})
			} else {
				c.put(DedupEntry{TargetID: target, ChosenID: item.ID})
			}
			continue
		}
		keep[i] = true
		c.put(DedupEntry{TargetID: target, ChosenID: item.ID})
	}

	out := make([]Post, 0, len(items))
	for i, item := range items {
		if keep[i] {
			out = append(out, item)
		}
	}
	return out
}

// put inserts or refreshes an entry and marks it most recently used.
func (c *DedupCache) put(entry DedupEntry) {
	if elem, ok := c.index[entry.TargetID]; ok {
		elem.Value.(*dedupNode).entry = entry
		c.order.MoveToFront(elem)
		return
	}
	if c.order.Len() >= c.capacity {
		c.evict()
	}
	node := &dedupNode{entry: entry, pins: c.pins[entry.TargetID]}
	c.index[entry.TargetID] = c.order.PushFront(node)
}

// evict drops the least recently used entry that is not pinned while unseen.
// When every entry is protected the plain LRU tail goes.
func (c *DedupCache) evict() {
	victim := c.order.Back()
	for e := c.order.Back(); e != nil; e = e.Prev() {
		node := e.Value.(*dedupNode)
		if node.pins == 0 || node.entry.Seen {
			victim = e
			break
		}
	}
	if victim == nil {
		return
	}
	node := victim.Value.(*dedupNode)
	c.order.Remove(victim)
	delete(c.index, node.entry.TargetID)
	c.evictions++
}

// Pin marks reshare targets as currently visible in some feed.
func (c *DedupCache) Pin(targets ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range targets {
		c.pins[t]++
		if elem, ok := c.index[t]; ok {
			elem.Value.(*dedupNode).pins++
		}
	}
}

func (c *DedupCache) Unpin(targets ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range targets {
		n, ok := c.pins[t]
		if !ok {
			continue
		}
		if n <= 1 {
			delete(c.pins, t)
		} else {
			c.pins[t] = n - 1
		}
		if elem, ok := c.index[t]; ok {
			node := elem.Value.(*dedupNode)
			if node.pins > 0 {
				node.pins--
			}
		}
	}
}

// Entry returns the cached state for a target without touching it.
func (c *DedupCache) Entry(target string) (DedupEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.index[target]
	if !ok {
		return DedupEntry{}, false
	}
	return elem.Value.(*dedupNode).entry, true
}

func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *DedupCache) Capacity() int {
	return c.capacity
}

func (c *DedupCache) Evictions() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictions
}
