package testutil

import (
	"context"
	"sync"
	"time"

	"feedsync/internal/models"
	"feedsync/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.Logs {
		if l.Level == level {
			n++
		}
	}
	return n
}

// MockMetrics implements providers.MetricsProviderInterface and keeps counters.
type MockMetrics struct {
	mu                 sync.Mutex
	Requests           map[string]int
	CacheHits          map[string]int
	CacheMisses        map[string]int
	Fetches            map[string]int
	FetchErrors        map[string]int
	StreamEvents       map[string]int
	Duplicates         map[string]int
	GroupsUpserted     int
	GroupsPruned       int
	PersistenceObserve int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Requests:     make(map[string]int),
		CacheHits:    make(map[string]int),
		CacheMisses:  make(map[string]int),
		Fetches:      make(map[string]int),
		FetchErrors:  make(map[string]int),
		StreamEvents: make(map[string]int),
		Duplicates:   make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(endpoint string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests[endpoint]++
}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits(feed string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits[feed]++
}
func (m *MockMetrics) IncCacheMisses(feed string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses[feed]++
}
func (m *MockMetrics) ObserveFetchDuration(feed string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetches[feed]++
}
func (m *MockMetrics) IncFetchErrors(feed string, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchErrors[feed+":"+kind]++
}
func (m *MockMetrics) IncStreamEvents(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StreamEvents[kind]++
}
func (m *MockMetrics) AddDuplicatesSuppressed(feed string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Duplicates[feed] += count
}
func (m *MockMetrics) AddGroupsUpserted(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GroupsUpserted += count
}
func (m *MockMetrics) AddGroupsPruned(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GroupsPruned += count
}
func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PersistenceObserve++
}

// MockIdentity implements providers.Identity.
type MockIdentity struct {
	AccountID  string
	ServerName string
}

func (m *MockIdentity) CurrentViewerAccountID() string { return m.AccountID }
func (m *MockIdentity) Server() string                 { return m.ServerName }

// FetchResult is one scripted transport answer.
type FetchResult[T any] struct {
	Page models.Page[T]
	Err  error
}

// MockFetcher serves scripted pages in order; the last result repeats.
// Respond, when set, takes precedence.
type MockFetcher[T any] struct {
	mu       sync.Mutex
	Results  []FetchResult[T]
	Respond  func(ctx context.Context, req models.PageRequest) (models.Page[T], error)
	Requests []models.PageRequest
}

func (m *MockFetcher[T]) FetchPage(ctx context.Context, req models.PageRequest) (models.Page[T], error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	respond := m.Respond
	var res FetchResult[T]
	if len(m.Results) > 0 {
		res = m.Results[0]
		if len(m.Results) > 1 {
			m.Results = m.Results[1:]
		}
	}
	m.mu.Unlock()

	if respond != nil {
		return respond(ctx, req)
	}
	return res.Page, res.Err
}

func (m *MockFetcher[T]) Calls() []models.PageRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PageRequest(nil), m.Requests...)
}

// MockMetricsStore implements services.MetricsStoreInterface.
type MockMetricsStore struct {
	mu          sync.Mutex
	UpsertCalls []UpsertCall
	PruneCalls  []PruneCall
	Rows        []models.MetricsNotificationGroup
	Pruned      int
	Err         error
}

type UpsertCall struct {
	Groups    []models.NotificationGroup
	AccountID string
	Server    string
}

type PruneCall struct {
	AccountID   string
	Server      string
	KeepingDays int
}

func (m *MockMetricsStore) Upsert(_ context.Context, groups []models.NotificationGroup, accountID, server string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls = append(m.UpsertCalls, UpsertCall{Groups: groups, AccountID: accountID, Server: server})
	return m.Err
}

func (m *MockMetricsStore) PruneOldGroups(_ context.Context, accountID, server string, keepingDays int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PruneCalls = append(m.PruneCalls, PruneCall{AccountID: accountID, Server: server, KeepingDays: keepingDays})
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Pruned, nil
}

func (m *MockMetricsStore) Groups(_ context.Context, _, _ string) ([]models.MetricsNotificationGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Rows, m.Err
}

func (m *MockMetricsStore) Upserts() []UpsertCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UpsertCall(nil), m.UpsertCalls...)
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockCompressor implements the persistence compressor with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
	Closed       bool
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	return append([]byte(nil), val...), nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	return append([]byte(nil), val...), nil
}

func (m *MockCompressor) Close() {
	m.Closed = true
}
