package testutil

import (
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"watchsync/internal/remote"

	json "github.com/goccy/go-json"
)

const (
	FakeToken    = "test-token"
	FakePassword = "secret"
)

// FakeBackend is an in-memory profile API served over httptest.
type FakeBackend struct {
	*httptest.Server

	mu         sync.Mutex
	records    map[string]remote.HistoryRecord
	lists      map[remote.ListKind]map[int64]remote.ListEntry
	PushBodies []map[string]interface{}
	Deleted    []int64
	ReadCalls  int
	WriteCalls int
	// FailReads makes the next n GET requests answer 500.
	FailReads int
	// FailWrites makes every write answer 500.
	FailWrites bool
	// PushHook runs inside the push handler before the record is stored.
	PushHook func(payload *remote.ProgressPayload)
}

func NewFakeBackend() *FakeBackend {
	fb := &FakeBackend{
		records: make(map[string]remote.HistoryRecord),
		lists: map[remote.ListKind]map[int64]remote.ListEntry{
			remote.Watchlist: {},
			remote.Favorites: {},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /user/login", fb.login)
	mux.HandleFunc("GET /user/profile", fb.auth(fb.profile))
	mux.HandleFunc("GET /recently-watched", fb.auth(fb.recentlyWatched))
	mux.HandleFunc("POST /recently-watched", fb.auth(fb.push))
	mux.HandleFunc("DELETE /recently-watched/{id}", fb.auth(fb.deleteProgress))
	for _, kind := range []remote.ListKind{remote.Watchlist, remote.Favorites} {
		kind := kind
		mux.HandleFunc("GET /"+string(kind), fb.auth(fb.listHandler(kind)))
		mux.HandleFunc("POST /"+string(kind), fb.auth(fb.addHandler(kind)))
		mux.HandleFunc("DELETE /"+string(kind)+"/{id}", fb.auth(fb.removeHandler(kind)))
	}
	fb.Server = httptest.NewServer(mux)
	return fb
}

func recordKey(id int64, season, episode int) string {
	return fmt.Sprintf("%d:%d:%d", id, season, episode)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func (fb *FakeBackend) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+FakeToken {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		fb.mu.Lock()
		if r.Method == http.MethodGet {
			fb.ReadCalls++
			if fb.FailReads > 0 {
				fb.FailReads--
				fb.mu.Unlock()
				http.Error(w, `{"error":"unavailable"}`, http.StatusInternalServerError)
				return
			}
		} else {
			fb.WriteCalls++
			if fb.FailWrites {
				fb.mu.Unlock()
				http.Error(w, `{"error":"unavailable"}`, http.StatusInternalServerError)
				return
			}
		}
		fb.mu.Unlock()
		next(w, r)
	}
}

func (fb *FakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Password != FakePassword {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"token": FakeToken})
}

func (fb *FakeBackend) profile(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, remote.Profile{ID: "u1", Email: "viewer@example.com", Username: "viewer"})
}

func (fb *FakeBackend) recentlyWatched(w http.ResponseWriter, r *http.Request) {
	var filter int64
	if raw := r.URL.Query().Get("contentId"); raw != "" {
		filter, _ = strconv.ParseInt(raw, 10, 64)
	}
	writeData(w, http.StatusOK, fb.Records(filter))
}

// Records returns the stored records for contentID, or all when 0.
func (fb *FakeBackend) Records(contentID int64) []remote.HistoryRecord {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]remote.HistoryRecord, 0)
	for _, rec := range fb.records {
		if contentID == 0 || rec.ContentID == contentID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return recordKey(out[i].ContentID, out[i].Season, out[i].Episode) < recordKey(out[j].ContentID, out[j].Season, out[j].Episode)
	})
	return out
}

// Seed stores rec as if it had been pushed earlier.
func (fb *FakeBackend) Seed(rec remote.HistoryRecord) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.records[recordKey(rec.ContentID, rec.Season, rec.Episode)] = rec
}

func (fb *FakeBackend) push(w http.ResponseWriter, r *http.Request) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, `{"error":"bad body"}`, http.StatusBadRequest)
		return
	}
	encoded, _ := json.Marshal(raw)
	var payload remote.ProgressPayload
	if err := json.Unmarshal(encoded, &payload); err != nil || payload.ContentID <= 0 {
		http.Error(w, `{"error":"bad body"}`, http.StatusBadRequest)
		return
	}
	if fb.PushHook != nil {
		fb.PushHook(&payload)
	}

	fb.mu.Lock()
	fb.PushBodies = append(fb.PushBodies, raw)
	key := recordKey(payload.ContentID, payload.Season, payload.Episode)
	rec := fb.records[key]
	rec.ContentID = payload.ContentID
	rec.MediaType = payload.MediaType
	rec.Season = payload.Season
	rec.Episode = payload.Episode
	rec.WatchedDate = payload.WatchedDate
	if payload.Title != "" {
		rec.Title = payload.Title
	}
	if payload.Poster != "" {
		rec.Poster = payload.Poster
	}
	if payload.Backdrop != "" {
		rec.Backdrop = payload.Backdrop
	}
	if payload.DurationWatched != nil {
		rec.DurationWatched = *payload.DurationWatched
	}
	if payload.TotalDuration != nil {
		rec.TotalDuration = *payload.TotalDuration
	}
	if rec.TotalDuration > 0 {
		rec.ProgressPercentage = math.Round(rec.DurationWatched/rec.TotalDuration*1000) / 10
	}
	fb.records[key] = rec
	fb.mu.Unlock()

	writeData(w, http.StatusOK, rec)
}

func (fb *FakeBackend) deleteProgress(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, `{"error":"bad id"}`, http.StatusBadRequest)
		return
	}
	fb.mu.Lock()
	fb.Deleted = append(fb.Deleted, id)
	for key, rec := range fb.records {
		if rec.ContentID == id {
			delete(fb.records, key)
		}
	}
	fb.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (fb *FakeBackend) listHandler(kind remote.ListKind) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		fb.mu.Lock()
		out := make([]remote.ListEntry, 0, len(fb.lists[kind]))
		for _, e := range fb.lists[kind] {
			out = append(out, e)
		}
		fb.mu.Unlock()
		sort.Slice(out, func(i, j int) bool { return out[i].ContentID < out[j].ContentID })
		writeData(w, http.StatusOK, out)
	}
}

func (fb *FakeBackend) addHandler(kind remote.ListKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entry remote.ListEntry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil || entry.ContentID <= 0 {
			http.Error(w, `{"error":"bad body"}`, http.StatusBadRequest)
			return
		}
		fb.mu.Lock()
		fb.lists[kind][entry.ContentID] = entry
		fb.mu.Unlock()
		writeData(w, http.StatusCreated, entry)
	}
}

func (fb *FakeBackend) removeHandler(kind remote.ListKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, `{"error":"bad id"}`, http.StatusBadRequest)
			return
		}
		fb.mu.Lock()
		delete(fb.lists[kind], id)
		fb.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

// Pushes returns a copy of the raw push bodies received so far.
func (fb *FakeBackend) Pushes() []map[string]interface{} {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]map[string]interface{}, len(fb.PushBodies))
	copy(out, fb.PushBodies)
	return out
}

func (fb *FakeBackend) SetFailReads(n int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.FailReads = n
}

func (fb *FakeBackend) SetFailWrites(fail bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.FailWrites = fail
}

func (fb *FakeBackend) Reads() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.ReadCalls
}
