package testutil

import (
	"context"
	"sync"
	"watchsync/internal/remote"
)

// MockBackend implements remote.BackendClientInterface. Push calls block on
// Gate when it is set, so tests can hold a push in flight.
type MockBackend struct {
	mu       sync.Mutex
	Payloads []remote.ProgressPayload
	Deleted  []int64
	Records  []remote.HistoryRecord
	Gate     chan struct{}
	Started  chan int64
	PushFn   func(payload *remote.ProgressPayload) (*remote.HistoryRecord, error)
	ReadErr  error
}

func (m *MockBackend) Login(_ context.Context, _, _ string) error { return nil }
func (m *MockBackend) Logout()                                    {}

func (m *MockBackend) Profile(_ context.Context) (*remote.Profile, error) {
	return &remote.Profile{ID: "u1"}, nil
}

func (m *MockBackend) RecentlyWatched(_ context.Context, contentID int64) ([]remote.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	var out []remote.HistoryRecord
	for _, r := range m.Records {
		if contentID == 0 || r.ContentID == contentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockBackend) PushProgress(ctx context.Context, payload *remote.ProgressPayload) (*remote.HistoryRecord, error) {
	if m.Started != nil {
		m.Started <- payload.ContentID
	}
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	m.Payloads = append(m.Payloads, *payload)
	fn := m.PushFn
	m.mu.Unlock()

	if fn != nil {
		return fn(payload)
	}
	return &remote.HistoryRecord{
		ContentID:   payload.ContentID,
		MediaType:   payload.MediaType,
		Season:      payload.Season,
		Episode:     payload.Episode,
		WatchedDate: payload.WatchedDate,
	}, nil
}

func (m *MockBackend) DeleteProgress(_ context.Context, contentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, contentID)
	return nil
}

func (m *MockBackend) List(_ context.Context, _ remote.ListKind) ([]remote.ListEntry, error) {
	return nil, nil
}

func (m *MockBackend) AddToList(_ context.Context, _ remote.ListKind, _ remote.ListEntry) error {
	return nil
}

func (m *MockBackend) RemoveFromList(_ context.Context, _ remote.ListKind, _ int64) error {
	return nil
}

func (m *MockBackend) Pushed() []remote.ProgressPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]remote.ProgressPayload, len(m.Payloads))
	copy(out, m.Payloads)
	return out
}

func (m *MockBackend) DeletedIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.Deleted))
	copy(out, m.Deleted)
	return out
}
