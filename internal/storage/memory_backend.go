package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"feedsync/internal/models"
)

// MemoryBackend keeps metrics rows in a map keyed by row key.
type MemoryBackend struct {
	mu   sync.RWMutex
	rows map[string]models.MetricsNotificationGroup
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		rows: make(map[string]models.MetricsNotificationGroup),
	}
}

func (m *MemoryBackend) Fetch(_ context.Context, filter models.MetricsFilter) ([]models.MetricsNotificationGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.MetricsNotificationGroup
	for _, row := range m.rows {
		if filter.Match(row) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GroupKey < out[j].GroupKey
	})
	return out, nil
}

func (m *MemoryBackend) Insert(_ context.Context, row models.MetricsNotificationGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := row.RowKey()
	if _, ok := m.rows[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRow, key)
	}
	m.rows[key] = row
	return nil
}

func (m *MemoryBackend) Update(_ context.Context, row models.MetricsNotificationGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := row.RowKey()
	if _, ok := m.rows[key]; !ok {
		return fmt.Errorf("%w: %s", ErrRowNotFound, key)
	}
	m.rows[key] = row
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, rows []models.MetricsNotificationGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range rows {
		delete(m.rows, row.RowKey())
	}
	return nil
}

func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

func (m *MemoryBackend) Close() error {
	return nil
}
