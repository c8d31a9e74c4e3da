package syncer

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
	"watchsync/internal/dispatch"
	"watchsync/internal/models"
	"watchsync/internal/providers"
	"watchsync/internal/services"
	"watchsync/internal/structures"
	"watchsync/internal/syncer/interfaces"

	"github.com/robfig/cron/v3"
)

var ErrNotStarted = errors.New("scheduler not started")

// Scheduler owns the playback sessions. Each active session has an interval
// job that pushes the entry's current state; ending a session pushes a final
// snapshot and waits for it.
type Scheduler struct {
	config   *structures.Config
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface
	service  services.ProgressServiceInterface
	store    *models.ProgressStore
	cron     *cron.Cron
	opsMu    sync.Mutex
	mu       sync.Mutex
	sessions map[int64]cron.EntryID
}

func (s *Scheduler) Init() {
	s.cron = cron.New()
	s.cron.Start()
	s.logger.Infof(providers.TypeSync, "Sync scheduler started, interval %s", s.config.Sync.Interval)
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Scheduler) Restore() error {
	if err := s.store.Load(); err != nil {
		return err
	}
	s.logger.Infof(providers.TypeApp, "Restored %d history entries", s.store.Len())
	return nil
}

// Persist waits for queued pushes and writes the history document.
func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.pushTimeout())
	defer cancel()
	if err := s.service.Flush(ctx); err != nil {
		s.logger.Warnf(providers.TypeSync, "Pushes still in flight at persist: %s", err)
	}

	s.logger.Infof(providers.TypeApp, "Persisting watch history...")
	start := time.Now()
	err := s.store.Flush()
	s.metrics.ObservePersistenceDuration(time.Since(start))
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		return err
	}
	return nil
}

func (s *Scheduler) pushTimeout() time.Duration {
	if s.config.Sync.PushTimeout > 0 {
		return s.config.Sync.PushTimeout
	}
	return 10 * time.Second
}

// StartSession registers the interval push for contentID. Starting an
// already active session is a no-op.
func (s *Scheduler) StartSession(contentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return ErrNotStarted
	}
	if _, ok := s.sessions[contentID]; ok {
		return nil
	}
	id := s.cron.Schedule(cron.Every(s.config.Sync.Interval), cron.FuncJob(func() {
		s.tick(contentID)
	}))
	s.sessions[contentID] = id
	s.metrics.SetActiveSessions(len(s.sessions))
	s.logger.Infof(providers.TypeSync, "Session for %d started", contentID)
	return nil
}

func (s *Scheduler) tick(contentID int64) {
	if s.service.PushNow(contentID, dispatch.TriggerInterval) {
		s.logger.Debugf(providers.TypeSync, "Interval push queued for %d", contentID)
	}
}

// EndSession stops the interval job, pushes the final state and waits for
// the push to settle or ctx to expire.
func (s *Scheduler) EndSession(ctx context.Context, contentID int64) error {
	s.mu.Lock()
	id, ok := s.sessions[contentID]
	if ok {
		s.cron.Remove(id)
		delete(s.sessions, contentID)
	}
	s.metrics.SetActiveSessions(len(s.sessions))
	s.mu.Unlock()

	s.service.PushNow(contentID, dispatch.TriggerUnmount)
	s.logger.Infof(providers.TypeSync, "Session for %d ended", contentID)
	return s.service.Flush(ctx)
}

func (s *Scheduler) ActiveSessions() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func NewScheduler(config *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, service services.ProgressServiceInterface, store *models.ProgressStore) interfaces.SchedulerInterface {
	return &Scheduler{
		config:   config,
		logger:   logger,
		metrics:  metrics,
		service:  service,
		store:    store,
		sessions: make(map[int64]cron.EntryID),
	}
}
