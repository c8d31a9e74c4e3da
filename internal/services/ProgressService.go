package services

import (
	"context"
	"time"
	"watchsync/internal/dispatch"
	"watchsync/internal/models"
	"watchsync/internal/player"
	"watchsync/internal/providers"
	"watchsync/internal/remote"
	"watchsync/internal/structures"

	"github.com/sourcegraph/conc"
)

type ProgressServiceInterface interface {
	Apply(ctx context.Context, u models.ProgressUpdate) (*models.HistoryItem, error)
	ApplyPlayerMessage(ctx context.Context, origin string, body []byte) ([]*models.HistoryItem, error)
	PushNow(contentID int64, trigger dispatch.Trigger) bool
	Get(contentID int64) (*models.HistoryItem, bool)
	Remove(contentID int64) (bool, error)
	List() []*models.HistoryItem
	Latest() (*models.HistoryItem, bool)
	Count() int
	Flush(ctx context.Context) error
}

// ProgressService is the single write path into the local history. Local
// ticks only touch the store; player messages also trigger a push.
type ProgressService struct {
	store      *models.ProgressStore
	validator  player.ValidatorInterface
	dispatcher dispatch.DispatcherInterface
	session    remote.SessionInterface
	backend    remote.BackendClientInterface
	metadata   remote.MetadataClientInterface
	logger     providers.Logger
	timeout    time.Duration
	background conc.WaitGroup
}

func NewProgressService(
	conf *structures.Config,
	store *models.ProgressStore,
	validator player.ValidatorInterface,
	dispatcher dispatch.DispatcherInterface,
	session remote.SessionInterface,
	backend remote.BackendClientInterface,
	metadata remote.MetadataClientInterface,
	logger providers.Logger,
) ProgressServiceInterface {
	timeout := conf.Sync.PushTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ProgressService{
		store:      store,
		validator:  validator,
		dispatcher: dispatcher,
		session:    session,
		backend:    backend,
		metadata:   metadata,
		logger:     logger,
		timeout:    timeout,
	}
}

func (ps *ProgressService) Apply(ctx context.Context, u models.ProgressUpdate) (*models.HistoryItem, error) {
	ps.enrich(ctx, &u)
	item, err := ps.store.Set(u)
	if item == nil {
		return nil, err
	}
	if err != nil {
		ps.logger.Errorf(providers.TypeApp, "Progress for %d kept in memory only: %s", u.ContentID, err)
	}
	return item, nil
}

// enrich fills in title and artwork for entries the store has never named.
func (ps *ProgressService) enrich(ctx context.Context, u *models.ProgressUpdate) {
	if u.Title != "" || !ps.metadata.Enabled() {
		return
	}
	if existing, ok := ps.store.Get(u.ContentID); ok && existing.Title != "" {
		return
	}
	mediaType := u.MediaType
	if mediaType == "" {
		mediaType = models.MediaMovie
		if u.Season > 0 {
			mediaType = models.MediaTV
		}
	}
	details, err := ps.metadata.Details(ctx, string(mediaType), u.ContentID)
	if err != nil {
		ps.logger.Debugf(providers.TypeApp, "No metadata for %d: %s", u.ContentID, err)
		return
	}
	u.Title = details.Title.Title
	if u.PosterPath == "" {
		u.PosterPath = details.PosterPath
	}
	if u.BackdropPath == "" {
		u.BackdropPath = details.BackdropPath
	}
}

// ApplyPlayerMessage stores every update a validated player message carries
// and pushes each touched entry once.
func (ps *ProgressService) ApplyPlayerMessage(ctx context.Context, origin string, body []byte) ([]*models.HistoryItem, error) {
	updates, err := ps.validator.Parse(origin, body)
	if err != nil {
		ps.logger.Warnf(providers.TypePlayer, "Rejected player message from %q: %s", origin, err)
		return nil, err
	}

	touched := make(map[int64]*models.HistoryItem)
	var order []int64
	for _, u := range updates {
		item, err := ps.Apply(ctx, u)
		if err != nil {
			ps.logger.Warnf(providers.TypePlayer, "Skipped player update for %d: %s", u.ContentID, err)
			continue
		}
		if _, seen := touched[item.ContentID]; !seen {
			order = append(order, item.ContentID)
		}
		touched[item.ContentID] = item
	}

	items := make([]*models.HistoryItem, 0, len(order))
	for _, id := range order {
		items = append(items, touched[id])
		ps.PushNow(id, dispatch.TriggerPlayer)
	}
	ps.logger.Debugf(providers.TypePlayer, "Player message from %s applied %d updates", origin, len(updates))
	return items, nil
}

// PushNow queues the current state of one entry for the backend. Guests
// never push.
func (ps *ProgressService) PushNow(contentID int64, trigger dispatch.Trigger) bool {
	if !ps.session.Authenticated() {
		return false
	}
	item, ok := ps.store.Get(contentID)
	if !ok {
		return false
	}
	return ps.dispatcher.Enqueue(item, trigger)
}

func (ps *ProgressService) Get(contentID int64) (*models.HistoryItem, bool) {
	return ps.store.Get(contentID)
}

// Remove deletes the entry locally and, for an authenticated session, asks
// the backend to forget it without waiting for the answer.
func (ps *ProgressService) Remove(contentID int64) (bool, error) {
	removed, err := ps.store.Remove(contentID)
	if err != nil {
		ps.logger.Errorf(providers.TypeApp, "Removing %d from local history: %s", contentID, err)
	}
	ps.dispatcher.Forget(contentID)

	if ps.session.Authenticated() {
		ps.background.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), ps.timeout)
			defer cancel()
			// failure is logged by the client
			_ = ps.backend.DeleteProgress(ctx, contentID)
		})
	}
	return removed, err
}

func (ps *ProgressService) List() []*models.HistoryItem {
	return ps.store.List()
}

func (ps *ProgressService) Latest() (*models.HistoryItem, bool) {
	return ps.store.Latest()
}

func (ps *ProgressService) Count() int {
	return ps.store.Len()
}

// Flush waits for queued pushes and background deletes.
func (ps *ProgressService) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		ps.background.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return ps.dispatcher.Flush(ctx)
}
