package models

import (
	"sort"
	"sync"
)

// CollapseIndex is a parent→children adjacency over a reply tree.
type CollapseIndex struct {
	children map[string][]string
}

func NewCollapseIndex(posts []Post) *CollapseIndex {
	children := make(map[string][]string)
	for _, p := range posts {
		if p.ParentID == "" {
			continue
		}
		children[p.ParentID] = append(children[p.ParentID], p.ID)
	}
	return &CollapseIndex{children: children}
}

// Descendants returns the strict descendants of id in traversal order. Cyclic
// parent links are tolerated; id itself is never part of the result.
func (ci *CollapseIndex) Descendants(id string) []string {
	visited := map[string]struct{}{id: {}}
	var out []string
	stack := append([]string(nil), ci.children[id]...)
	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[next]; ok {
			continue
		}
		visited[next] = struct{}{}
		out = append(out, next)
		stack = append(stack, ci.children[next]...)
	}
	return out
}

// ImplicitCollapsed returns every post hidden because one of its ancestors is
// explicitly collapsed. Explicitly collapsed ids are never included.
func ImplicitCollapsed(posts []Post, explicit map[string]struct{}) map[string]struct{} {
	result := make(map[string]struct{})
	if len(explicit) == 0 {
		return result
	}
	index := NewCollapseIndex(posts)
	for id := range explicit {
		for _, d := range index.Descendants(id) {
			if _, isExplicit := explicit[d]; isExplicit {
				continue
			}
			result[d] = struct{}{}
		}
	}
	return result
}

// CollapseState is the explicit collapse set of one feed, the only collapse
// data that is persisted.
type CollapseState struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewCollapseState(ids ...string) *CollapseState {
	cs := &CollapseState{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		cs.ids[id] = struct{}{}
	}
	return cs
}

func (cs *CollapseState) Collapse(id string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.ids[id] = struct{}{}
}

func (cs *CollapseState) Expand(id string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.ids, id)
}

// Toggle flips id and reports whether it is collapsed afterwards.
func (cs *CollapseState) Toggle(id string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if _, ok := cs.ids[id]; ok {
		delete(cs.ids, id)
		return false
	}
	cs.ids[id] = struct{}{}
	return true
}

func (cs *CollapseState) IsCollapsed(id string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	_, ok := cs.ids[id]
	return ok
}

// Set returns a copy of the explicit set.
func (cs *CollapseState) Set() map[string]struct{} {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]struct{}, len(cs.ids))
	for id := range cs.ids {
		out[id] = struct{}{}
	}
	return out
}

// IDs returns the explicit set sorted.
func (cs *CollapseState) IDs() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make([]string, 0, len(cs.ids))
	for id := range cs.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (cs *CollapseState) Replace(ids []string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		cs.ids[id] = struct{}{}
	}
}

func (cs *CollapseState) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.ids)
}

// SortedIDs flattens a set into a sorted slice.
func SortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
