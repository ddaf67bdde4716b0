package persistence

import (
	"context"
	"sync"
	"time"

	"feedsync/internal/persistence/interfaces"
	"feedsync/internal/providers"
	"feedsync/internal/services"
	"feedsync/internal/structures"

	"github.com/roylee0704/gron"
)

type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	store       services.MetricsStoreInterface
	identity    providers.Identity
	fileManager *FileManager
	metrics     providers.MetricsProviderInterface
	cron        *gron.Cron
	opsMu       sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	s.cron.AddFunc(gron.Every(s.config.Persistence.SaveInterval), func() {
		if err := s.Persist(); err == nil {
			s.logger.Debugf(providers.TypeApp, "Persisted collapse state to %s", s.config.Persistence.FilePath)
		}
	})

	s.cron.AddFunc(gron.Every(s.config.NotificationMetrics.PruneInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()
		_ = s.prune()
	})

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Restore loads the saved collapse state and drops notification groups that
// aged out while the process was down.
func (s *Scheduler) Restore() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	if err := s.fileManager.LoadFromFile(s.config.Persistence.FilePath); err != nil {
		return err
	}
	// prune failures are logged only
	_ = s.prune()
	return nil
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	start := time.Now()
	err := s.fileManager.SaveToFile(s.config.Persistence.FilePath)
	s.metrics.ObservePersistenceDuration(time.Since(start))
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		return err
	}
	return nil
}

func (s *Scheduler) prune() error {
	removed, err := s.store.PruneOldGroups(context.Background(),
		s.identity.CurrentViewerAccountID(), s.identity.Server(), s.config.NotificationMetrics.KeepingDays)
	if err != nil {
		s.logger.Errorf(providers.TypeStore, "Error while pruning notification groups: %s", err)
		return err
	}
	s.metrics.AddGroupsPruned(removed)
	if removed > 0 {
		s.logger.Infof(providers.TypeStore, "Pruned %d notification groups older than %d days", removed, s.config.NotificationMetrics.KeepingDays)
	}
	return nil
}

func NewScheduler(
	config *structures.Config,
	logger providers.Logger,
	store services.MetricsStoreInterface,
	identity providers.Identity,
	fileManager *FileManager,
	metrics providers.MetricsProviderInterface,
) interfaces.SchedulerInterface {
	return &Scheduler{
		config:      config,
		logger:      logger,
		store:       store,
		identity:    identity,
		fileManager: fileManager,
		metrics:     metrics,
	}
}
