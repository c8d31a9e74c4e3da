package dispatch

import (
	"context"
	"math"
	"sync"
	"time"
	"watchsync/internal/models"
	"watchsync/internal/providers"
	"watchsync/internal/remote"
	"watchsync/internal/structures"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

type Trigger string

const (
	TriggerInterval Trigger = "interval"
	TriggerUnmount  Trigger = "unmount"
	TriggerPlayer   Trigger = "player"
	TriggerManual   Trigger = "manual"
)

const queueSize = 256

type DispatcherInterface interface {
	Enqueue(item *models.HistoryItem, trigger Trigger) bool
	Flush(ctx context.Context) error
	Committed(contentID int64) (time.Time, bool)
	Forget(contentID int64)
	Close()
}

type task struct {
	id      uuid.UUID
	key     int64
	item    *models.HistoryItem
	version time.Time
	trigger Trigger
}

// sent is what the backend last acknowledged for a key; payloads carry
// only the fields that differ from it.
type sent struct {
	season   int
	episode  int
	title    string
	poster   string
	backdrop string
	watched  float64
	duration float64
}

type keyState struct {
	inFlight  bool
	pending   *task
	committed time.Time
	last      *sent
}

// Dispatcher pushes history items to the backend. Each content id has at
// most one push in flight; newer tasks for a busy key replace the pending
// slot, and answers older than the committed version are discarded.
type Dispatcher struct {
	mu      sync.Mutex
	keys    map[int64]*keyState
	active  int
	idle    chan struct{}
	closed  bool
	sending sync.WaitGroup
	ready   chan *task
	done    chan struct{}
	pool    *pool.Pool
	backend remote.BackendClientInterface
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	timeout time.Duration
}

func NewDispatcher(conf *structures.Config, backend remote.BackendClientInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) DispatcherInterface {
	workers := conf.Sync.MaxConcurrent
	if workers <= 0 {
		workers = 1
	}
	timeout := conf.Sync.PushTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	idle := make(chan struct{})
	close(idle)

	d := &Dispatcher{
		keys:    make(map[int64]*keyState),
		idle:    idle,
		ready:   make(chan *task, queueSize),
		done:    make(chan struct{}),
		pool:    pool.New().WithMaxGoroutines(workers),
		backend: backend,
		logger:  logger,
		metrics: metrics,
		timeout: timeout,
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for t := range d.ready {
		t := t
		d.pool.Go(func() { d.run(t) })
	}
	d.pool.Wait()
}

func (d *Dispatcher) state(key int64) *keyState {
	st, ok := d.keys[key]
	if !ok {
		st = &keyState{}
		d.keys[key] = st
	}
	return st
}

// Enqueue schedules a push of item. It returns false when the committed
// version is already as new; only an older version counts as stale.
func (d *Dispatcher) Enqueue(item *models.HistoryItem, trigger Trigger) bool {
	if item == nil {
		return false
	}
	t := &task{
		id:      uuid.New(),
		key:     item.ContentID,
		item:    item.Clone(),
		version: item.LastUpdated,
		trigger: trigger,
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	st := d.state(t.key)
	if !st.committed.IsZero() && t.version.Equal(st.committed) {
		d.mu.Unlock()
		d.metrics.IncPushes(string(trigger), "unchanged")
		return false
	}
	if isStale(t.version, st.committed) {
		d.mu.Unlock()
		d.metrics.IncStaleDiscards()
		d.metrics.IncPushes(string(trigger), "dropped")
		d.logger.Debugf(providers.TypeSync, "Task %s for %d dropped, version older than committed", t.id, t.key)
		return false
	}
	if st.inFlight {
		if st.pending == nil || !st.pending.version.After(t.version) {
			st.pending = t
		}
		d.mu.Unlock()
		d.logger.Debugf(providers.TypeSync, "Task %s for %d coalesced behind in-flight push", t.id, t.key)
		return true
	}
	st.inFlight = true
	d.begin()
	d.sending.Add(1)
	d.mu.Unlock()

	d.ready <- t
	d.sending.Done()
	return true
}

func isStale(version, committed time.Time) bool {
	return !committed.IsZero() && !version.After(committed)
}

// begin and end track keys with a push in flight. Callers hold mu.
func (d *Dispatcher) begin() {
	if d.active == 0 {
		d.idle = make(chan struct{})
	}
	d.active++
	d.metrics.SetInFlight(d.active)
}

func (d *Dispatcher) end() {
	d.active--
	d.metrics.SetInFlight(d.active)
	if d.active == 0 {
		close(d.idle)
	}
}

// run pushes t and then any task that queued up behind it for the same key.
func (d *Dispatcher) run(t *task) {
	for t != nil {
		d.mu.Lock()
		payload := buildPayload(t.item, d.state(t.key).last)
		d.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		resp, err := d.backend.PushProgress(ctx, payload)
		cancel()

		t = d.finish(t, payload, resp, err)
	}
}

// finish records the outcome of t and returns the pending task for the
// same key, if one should run next.
func (d *Dispatcher) finish(t *task, payload *remote.ProgressPayload, resp *remote.HistoryRecord, err error) *task {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.state(t.key)

	switch {
	case err != nil:
		d.metrics.IncPushes(string(t.trigger), "error")
		d.logger.Warnf(providers.TypeSync, "Task %s for %d failed (%s): %s", t.id, t.key, t.trigger, err)
	default:
		version := t.version
		if resp != nil && !resp.WatchedDate.IsZero() {
			version = resp.WatchedDate
		}
		if st.committed.IsZero() || version.After(st.committed) {
			st.committed = version
			st.last = snapshot(payload, t.item)
			d.metrics.IncPushes(string(t.trigger), "ok")
			d.logger.Debugf(providers.TypeSync, "Task %s for %d committed at %s", t.id, t.key, version.Format(time.RFC3339Nano))
		} else {
			d.metrics.IncStaleDiscards()
			d.metrics.IncPushes(string(t.trigger), "stale")
			d.logger.Debugf(providers.TypeSync, "Task %s for %d answered with stale version %s", t.id, t.key, version.Format(time.RFC3339Nano))
		}
	}

	for st.pending != nil {
		next := st.pending
		st.pending = nil
		if isStale(next.version, st.committed) {
			d.metrics.IncStaleDiscards()
			d.metrics.IncPushes(string(next.trigger), "dropped")
			continue
		}
		if d.closed {
			break
		}
		return next
	}
	st.inFlight = false
	d.end()
	return nil
}

// Flush blocks until no push is in flight or ctx is done.
func (d *Dispatcher) Flush(ctx context.Context) error {
	for {
		d.mu.Lock()
		if d.active == 0 {
			d.mu.Unlock()
			return nil
		}
		idle := d.idle
		d.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *Dispatcher) Committed(contentID int64) (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.keys[contentID]
	if !ok || st.committed.IsZero() {
		return time.Time{}, false
	}
	return st.committed, true
}

// Forget drops the committed state of a removed entry so a later re-watch
// is pushed in full.
func (d *Dispatcher) Forget(contentID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.keys[contentID]
	if !ok {
		return
	}
	if !st.inFlight {
		delete(d.keys, contentID)
		return
	}
	st.pending = nil
	st.committed = time.Time{}
	st.last = nil
}

// Close waits for in-flight pushes and stops the worker pool. Pending
// tasks queued behind them are dropped. Tasks already accepted by Enqueue
// are still handed to the pool before the queue closes.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.Flush(ctx); err != nil {
		d.logger.Warnf(providers.TypeSync, "Closing dispatcher with pushes in flight: %s", err)
	}
	d.sending.Wait()
	close(d.ready)
	<-d.done
}

// remotePercentage is the one-decimal percentage the backend stores.
func remotePercentage(watched, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	p := math.Round(watched/duration*1000) / 10
	return math.Max(0, math.Min(100, p))
}

func currentPosition(item *models.HistoryItem) (season, episode int, progress *models.ProgressRecord) {
	if item.MediaType == models.MediaTV {
		season, episode = item.LastSeasonWatched, item.LastEpisodeWatched
		if eps, ok := item.ShowProgress[season]; ok {
			if entry, ok := eps[episode]; ok && entry != nil {
				return season, episode, entry.Progress
			}
		}
	}
	return season, episode, item.Progress
}

func buildPayload(item *models.HistoryItem, last *sent) *remote.ProgressPayload {
	season, episode, progress := currentPosition(item)
	p := &remote.ProgressPayload{
		ContentID:   item.ContentID,
		MediaType:   string(item.MediaType),
		Season:      season,
		Episode:     episode,
		WatchedDate: item.LastUpdated,
	}
	samePosition := last != nil && last.season == season && last.episode == episode

	if last == nil || last.title != item.Title {
		p.Title = item.Title
	}
	if last == nil || last.poster != item.PosterPath {
		p.Poster = item.PosterPath
	}
	if last == nil || last.backdrop != item.BackdropPath {
		p.Backdrop = item.BackdropPath
	}
	if progress == nil {
		return p
	}
	changed := false
	if !samePosition || last.watched != progress.Watched {
		w := progress.Watched
		p.DurationWatched = &w
		changed = true
	}
	if !samePosition || last.duration != progress.Duration {
		dur := progress.Duration
		p.TotalDuration = &dur
		changed = true
	}
	if changed {
		pct := remotePercentage(progress.Watched, progress.Duration)
		p.ProgressPercentage = &pct
	}
	return p
}

func snapshot(payload *remote.ProgressPayload, item *models.HistoryItem) *sent {
	_, _, progress := currentPosition(item)
	s := &sent{
		season:   payload.Season,
		episode:  payload.Episode,
		title:    item.Title,
		poster:   item.PosterPath,
		backdrop: item.BackdropPath,
	}
	if progress != nil {
		s.watched = progress.Watched
		s.duration = progress.Duration
	}
	return s
}
