package controllers

import (
	"context"
	"sync"
	"watchsync/internal/dispatch"
	"watchsync/internal/models"
	"watchsync/internal/remote"
	"watchsync/internal/services"
)

// --- local mocks (scoped to controller tests) ---

type mockProgressService struct {
	mu        sync.Mutex
	items     map[int64]*models.HistoryItem
	applied   []models.ProgressUpdate
	applyErr  error
	playerErr error
	origins   []string
	removeErr error
}

func newMockProgressService(items ...*models.HistoryItem) *mockProgressService {
	m := &mockProgressService{items: make(map[int64]*models.HistoryItem)}
	for _, it := range items {
		m.items[it.ContentID] = it
	}
	return m
}

func (m *mockProgressService) Apply(_ context.Context, u models.ProgressUpdate) (*models.HistoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	m.applied = append(m.applied, u)
	item := &models.HistoryItem{ContentID: u.ContentID, MediaType: u.MediaType, Title: u.Title}
	m.items[u.ContentID] = item
	return item, nil
}

func (m *mockProgressService) ApplyPlayerMessage(_ context.Context, origin string, _ []byte) ([]*models.HistoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.origins = append(m.origins, origin)
	if m.playerErr != nil {
		return nil, m.playerErr
	}
	return []*models.HistoryItem{{ContentID: 1}}, nil
}

func (m *mockProgressService) PushNow(_ int64, _ dispatch.Trigger) bool { return true }

func (m *mockProgressService) Get(id int64) (*models.HistoryItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	return it, ok
}

func (m *mockProgressService) Remove(id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[id]
	delete(m.items, id)
	return ok, m.removeErr
}

func (m *mockProgressService) List() []*models.HistoryItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.HistoryItem, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	models.SortNewestFirst(out)
	return out
}

func (m *mockProgressService) Latest() (*models.HistoryItem, bool) {
	list := m.List()
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

func (m *mockProgressService) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *mockProgressService) Flush(_ context.Context) error { return nil }

type mockResumeService struct {
	calls []models.MediaType
}

func (m *mockResumeService) Resolve(_ context.Context, id int64, mediaType models.MediaType) *services.ResumePoint {
	m.calls = append(m.calls, mediaType)
	return &services.ResumePoint{ContentID: id, MediaType: models.MediaTV, Season: 1, Episode: 1, Source: services.SourceDefault}
}

func (m *mockResumeService) Current(_ int64) (*services.ResumePoint, bool) { return nil, false }

type mockScheduler struct {
	startErr error
	endErr   error
	started  []int64
	ended    []int64
}

func (m *mockScheduler) Init()          {}
func (m *mockScheduler) Stop()          {}
func (m *mockScheduler) Restore() error { return nil }
func (m *mockScheduler) Persist() error { return nil }
func (m *mockScheduler) StartSession(id int64) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started = append(m.started, id)
	return nil
}
func (m *mockScheduler) EndSession(_ context.Context, id int64) error {
	m.ended = append(m.ended, id)
	return m.endErr
}
func (m *mockScheduler) ActiveSessions() []int64 {
	out := append([]int64{}, m.started...)
	return out
}

type mockAccountService struct {
	loginErr error
	listErr  error
	status   services.AccountStatus
	lists    map[remote.ListKind][]remote.ListEntry
	removed  []int64
	loggedIn bool
}

func newMockAccountService() *mockAccountService {
	return &mockAccountService{lists: make(map[remote.ListKind][]remote.ListEntry)}
}

func (m *mockAccountService) Login(_ context.Context, email, _ string) error {
	if m.loginErr != nil {
		return m.loginErr
	}
	m.loggedIn = true
	m.status = services.AccountStatus{Authenticated: true, Subject: email}
	return nil
}
func (m *mockAccountService) Logout() {
	m.loggedIn = false
	m.status = services.AccountStatus{}
}
func (m *mockAccountService) Status() services.AccountStatus { return m.status }
func (m *mockAccountService) Profile(_ context.Context) (*remote.Profile, error) {
	if !m.loggedIn {
		return nil, remote.ErrNotAuthenticated
	}
	return &remote.Profile{ID: "u1", Email: m.status.Subject}, nil
}
func (m *mockAccountService) List(_ context.Context, kind remote.ListKind) ([]remote.ListEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.lists[kind], nil
}
func (m *mockAccountService) AddToList(_ context.Context, kind remote.ListKind, entry remote.ListEntry) error {
	if m.listErr != nil {
		return m.listErr
	}
	m.lists[kind] = append(m.lists[kind], entry)
	return nil
}
func (m *mockAccountService) RemoveFromList(_ context.Context, _ remote.ListKind, id int64) error {
	if m.listErr != nil {
		return m.listErr
	}
	m.removed = append(m.removed, id)
	return nil
}

type mockCatalogService struct {
	calls      int
	err        error
	lastType   string
	lastGenre  int
	lastPage   int
	lastSearch string
}

func (m *mockCatalogService) Enabled() bool { return m.err == nil }
func (m *mockCatalogService) page(mediaType string, page int) (*remote.TitlePage, error) {
	m.calls++
	m.lastType = mediaType
	m.lastPage = page
	if m.err != nil {
		return nil, m.err
	}
	return &remote.TitlePage{Page: page, Results: []remote.Title{{ID: 603, Title: "The Matrix"}}}, nil
}
func (m *mockCatalogService) Search(_ context.Context, q string, page int) (*remote.TitlePage, error) {
	m.lastSearch = q
	return m.page("", page)
}
func (m *mockCatalogService) Trending(_ context.Context, mediaType string, page int) (*remote.TitlePage, error) {
	return m.page(mediaType, page)
}
func (m *mockCatalogService) Discover(_ context.Context, mediaType string, genre int, page int) (*remote.TitlePage, error) {
	m.lastGenre = genre
	return m.page(mediaType, page)
}
func (m *mockCatalogService) Details(_ context.Context, mediaType string, id int64) (*services.TitleDetails, error) {
	m.calls++
	m.lastType = mediaType
	if m.err != nil {
		return nil, m.err
	}
	return &services.TitleDetails{Details: remote.Details{Title: remote.Title{ID: id, Title: "The Matrix"}}}, nil
}

type mockSession struct {
	authenticated bool
}

func (m *mockSession) Token() string       { return "" }
func (m *mockSession) SetToken(_ string)   {}
func (m *mockSession) Clear()              {}
func (m *mockSession) Authenticated() bool { return m.authenticated }
func (m *mockSession) Subject() string     { return "" }
