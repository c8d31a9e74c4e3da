package internal

import (
	"context"
	"watchsync/internal/models"
	"watchsync/internal/services"
	"watchsync/internal/storage"
)

// Lookup answers one-shot resume queries without starting the daemon.
type Lookup struct {
	store       *models.ProgressStore
	resume      services.ResumeServiceInterface
	persistence storage.Adapter
}

func NewLookup(store *models.ProgressStore, resume services.ResumeServiceInterface, persistence storage.Adapter) (*Lookup, error) {
	if err := store.Load(); err != nil {
		_ = persistence.Close()
		return nil, err
	}
	return &Lookup{store: store, resume: resume, persistence: persistence}, nil
}

// Resume resolves contentID, or the continue-watching head when contentID is zero.
// The second result is false when there is no history to continue from.
func (l *Lookup) Resume(ctx context.Context, contentID int64, mediaType models.MediaType) (*services.ResumePoint, bool) {
	if contentID == 0 {
		latest, ok := l.store.Latest()
		if !ok {
			return nil, false
		}
		contentID, mediaType = latest.ContentID, latest.MediaType
	}
	return l.resume.Resolve(ctx, contentID, mediaType), true
}

func (l *Lookup) History() []*models.HistoryItem {
	return l.store.List()
}

func (l *Lookup) Close() error {
	return l.persistence.Close()
}
