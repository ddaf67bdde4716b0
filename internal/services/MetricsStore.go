package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"feedsync/internal/models"
)

// MetricsBackend is the persistence collaborator of the metrics store.
type MetricsBackend interface {
	Fetch(ctx context.Context, filter models.MetricsFilter) ([]models.MetricsNotificationGroup, error)
	Insert(ctx context.Context, row models.MetricsNotificationGroup) error
	Update(ctx context.Context, row models.MetricsNotificationGroup) error
	Delete(ctx context.Context, rows []models.MetricsNotificationGroup) error
}

type MetricsStoreInterface interface {
	Upsert(ctx context.Context, groups []models.NotificationGroup, accountID, server string) error
	PruneOldGroups(ctx context.Context, accountID, server string, keepingDays int) (int, error)
	Groups(ctx context.Context, accountID, server string) ([]models.MetricsNotificationGroup, error)
}

// MetricsStore consolidates notification groups into durable per-account
// aggregates. One instance is shared by the whole process.
type MetricsStore struct {
	mu       sync.Mutex
	backend  MetricsBackend
	location *time.Location
	now      func() time.Time
}

func NewMetricsStore(backend MetricsBackend, location *time.Location) *MetricsStore {
	if location == nil {
		location = time.Local
	}
	return &MetricsStore{
		backend:  backend,
		location: location,
		now:      time.Now,
	}
}

// Upsert writes every group, inserting unknown keys and overwriting the
// counters of known ones. The caller only passes newer data. Groups without
// a key are skipped.
func (s *MetricsStore) Upsert(ctx context.Context, groups []models.NotificationGroup, accountID, server string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range groups {
		if g.GroupKey == "" {
			continue
		}
		existing, err := s.backend.Fetch(ctx, models.MetricsFilter{
			Server:    server,
			AccountID: accountID,
			GroupKey:  g.GroupKey,
		})
		if err != nil {
			return fmt.Errorf("fetch group %s: %w", g.GroupKey, err)
		}
		dayStart := models.StartOfDay(g.MostRecentAt, s.location)

		if len(existing) == 0 {
			row := models.MetricsNotificationGroup{
				Server:          server,
				AccountID:       accountID,
				GroupKey:        g.GroupKey,
				Type:            g.Type,
				Count:           g.Count,
				MostRecentID:    g.MostRecentID,
				MostRecentAt:    g.MostRecentAt,
				DayStart:        dayStart,
				RelatedStatusID: g.RelatedStatusID,
			}
			if err := s.backend.Insert(ctx, row); err != nil {
				return fmt.Errorf("insert group %s: %w", g.GroupKey, err)
			}
			continue
		}

		row := existing[0]
		row.Count = g.Count
		row.MostRecentID = g.MostRecentID
		row.MostRecentAt = g.MostRecentAt
		row.DayStart = dayStart
		if err := s.backend.Update(ctx, row); err != nil {
			return fmt.Errorf("update group %s: %w", g.GroupKey, err)
		}
	}
	return nil
}

// PruneOldGroups deletes rows whose day is older than keepingDays and returns
// how many were removed.
func (s *MetricsStore) PruneOldGroups(ctx context.Context, accountID, server string, keepingDays int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().In(s.location).AddDate(0, 0, -keepingDays)
	rows, err := s.backend.Fetch(ctx, models.MetricsFilter{
		Server:         server,
		AccountID:      accountID,
		DayStartBefore: cutoff,
	})
	if err != nil {
		return 0, fmt.Errorf("fetch expired groups: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := s.backend.Delete(ctx, rows); err != nil {
		return 0, fmt.Errorf("delete expired groups: %w", err)
	}
	return len(rows), nil
}

// Groups lists the rows of one account, most recent first.
func (s *MetricsStore) Groups(ctx context.Context, accountID, server string) ([]models.MetricsNotificationGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.backend.Fetch(ctx, models.MetricsFilter{Server: server, AccountID: accountID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].MostRecentAt.Equal(rows[j].MostRecentAt) {
			return rows[i].MostRecentID > rows[j].MostRecentID
		}
		return rows[i].MostRecentAt.After(rows[j].MostRecentAt)
	})
	return rows, nil
}
