package models

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// ProgressStore is the local watch history. Every mutation is written
// through to the persistence adapter as one document under a fixed key.
type ProgressStore struct {
	mu      sync.RWMutex
	adapter PersistenceAdapter
	key     string
	now     func() time.Time
	items   map[int64]*HistoryItem
}

func NewProgressStore(adapter PersistenceAdapter, key string) *ProgressStore {
	return &ProgressStore{
		adapter: adapter,
		key:     key,
		now:     time.Now,
		items:   make(map[int64]*HistoryItem),
	}
}

// WithClock replaces the timestamp source used for updates without their own time.
func (s *ProgressStore) WithClock(now func() time.Time) *ProgressStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Load replaces the in-memory history with the persisted document.
// Entries with non-numeric keys are skipped.
func (s *ProgressStore) Load() error {
	raw, found, err := s.adapter.Get(s.key)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	items := make(map[int64]*HistoryItem)
	if found && len(raw) > 0 {
		var doc map[string]*HistoryItem
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode history: %w", err)
		}
		for k, item := range doc {
			id, err := strconv.ParseInt(k, 10, 64)
			if err != nil || id <= 0 || item == nil {
				continue
			}
			item.ContentID = id
			item.Normalize()
			items[id] = item
		}
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

// Flush writes the whole history back to the adapter.
func (s *ProgressStore) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistLocked()
}

func (s *ProgressStore) persistLocked() error {
	doc := make(map[string]*HistoryItem, len(s.items))
	for id, item := range s.items {
		doc[strconv.FormatInt(id, 10)] = item
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.adapter.Set(s.key, raw); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}

func (s *ProgressStore) Get(contentID int64) (*HistoryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[contentID]
	if !ok {
		return nil, false
	}
	c := item.Clone()
	c.Normalize()
	return c, true
}

// Set merges u into the stored entry, creating it when missing, and returns
// a copy of the result. The in-memory entry is updated even when the write
// to the adapter fails; the error is returned so callers can log it.
func (s *ProgressStore) Set(u ProgressUpdate) (*HistoryItem, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	at := u.At
	if at.IsZero() {
		at = s.now()
	}

	item, ok := s.items[u.ContentID]
	var next *HistoryItem
	if ok {
		next = item.Clone()
	} else {
		next = &HistoryItem{}
	}
	if err := next.Apply(u, at); err != nil {
		return nil, err
	}
	s.items[u.ContentID] = next

	return next.Clone(), s.persistLocked()
}

// Remove deletes one entry and reports whether it existed.
func (s *ProgressStore) Remove(contentID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[contentID]; !ok {
		return false, nil
	}
	delete(s.items, contentID)
	return true, s.persistLocked()
}

// List returns copies of all entries, newest first.
func (s *ProgressStore) List() []*HistoryItem {
	s.mu.RLock()
	out := make([]*HistoryItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.Clone())
	}
	s.mu.RUnlock()
	SortNewestFirst(out)
	return out
}

func (s *ProgressStore) Latest() (*HistoryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := LatestItem(mapValues(s.items))
	if latest == nil {
		return nil, false
	}
	return latest.Clone(), true
}

func (s *ProgressStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func mapValues(m map[int64]*HistoryItem) []*HistoryItem {
	out := make([]*HistoryItem, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
