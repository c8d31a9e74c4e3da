package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
)

const FakeAPIKey = "tmdb-key"

// FakeMetadata serves canned TMDB-style answers and counts requests.
type FakeMetadata struct {
	*httptest.Server

	mu       sync.Mutex
	requests int
	// FailNext makes the next n requests answer 503.
	FailNext int
}

func NewFakeMetadata() *FakeMetadata {
	fm := &FakeMetadata{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search/multi", fm.wrap(`{"page":1,"total_pages":1,"total_results":3,"results":[
		{"id":603,"media_type":"movie","title":"The Matrix","release_date":"1999-03-31","poster_path":"/m.jpg","vote_average":8.2},
		{"id":1399,"media_type":"tv","name":"Game of Thrones","first_air_date":"2011-04-17","vote_average":8.4},
		{"id":6384,"media_type":"person","name":"Keanu Reeves"}]}`))
	mux.HandleFunc("GET /movie/603", fm.wrap(`{"id":603,"title":"The Matrix","runtime":136,"poster_path":"/m.jpg","backdrop_path":"/mb.jpg","genres":[{"id":28,"name":"Action"}]}`))
	mux.HandleFunc("GET /tv/1399", fm.wrap(`{"id":1399,"name":"Game of Thrones","number_of_seasons":8,"number_of_episodes":73,"poster_path":"/g.jpg","seasons":[{"season_number":1,"episode_count":10,"name":"Season 1"}]}`))
	mux.HandleFunc("GET /movie/603/credits", fm.wrap(`{"id":603,"cast":[{"id":6384,"name":"Keanu Reeves","character":"Neo"}],"crew":[{"id":9339,"name":"Lana Wachowski","job":"Director"}]}`))
	mux.HandleFunc("GET /trending/{type}/week", fm.wrap(`{"page":1,"total_pages":5,"total_results":100,"results":[{"id":603,"title":"The Matrix"}]}`))
	mux.HandleFunc("GET /discover/{type}", fm.wrap(`{"page":2,"total_pages":9,"total_results":180,"results":[{"id":1399,"name":"Game of Thrones","genre_ids":[18]}]}`))
	fm.Server = httptest.NewServer(mux)
	return fm
}

func (fm *FakeMetadata) wrap(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fm.mu.Lock()
		fm.requests++
		fail := fm.FailNext > 0
		if fail {
			fm.FailNext--
		}
		fm.mu.Unlock()

		if r.URL.Query().Get("api_key") != FakeAPIKey {
			http.Error(w, `{"status_message":"Invalid API key"}`, http.StatusUnauthorized)
			return
		}
		if fail {
			http.Error(w, `{"status_message":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func (fm *FakeMetadata) Requests() int {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.requests
}

func (fm *FakeMetadata) SetFailNext(n int) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	fm.FailNext = n
}
