package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"watchsync/internal/providers"
	"watchsync/internal/structures"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// Title is a search or listing hit from the metadata API. Movies and shows
// are folded into one shape.
type Title struct {
	ID           int64   `json:"id"`
	MediaType    string  `json:"media_type"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	BackdropPath string  `json:"backdrop_path,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	VoteAverage  float64 `json:"vote_average"`
	GenreIDs     []int   `json:"genre_ids,omitempty"`
}

type TitlePage struct {
	Page         int     `json:"page"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
	Results      []Title `json:"results"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Season struct {
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
	Name         string `json:"name"`
}

type Details struct {
	Title
	Runtime          int      `json:"runtime,omitempty"`
	Genres           []Genre  `json:"genres,omitempty"`
	NumberOfSeasons  int      `json:"number_of_seasons,omitempty"`
	NumberOfEpisodes int      `json:"number_of_episodes,omitempty"`
	Seasons          []Season `json:"seasons,omitempty"`
}

type CastMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character,omitempty"`
	ProfilePath string `json:"profile_path,omitempty"`
}

type CrewMember struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Job        string `json:"job,omitempty"`
	Department string `json:"department,omitempty"`
}

type Credits struct {
	ID   int64        `json:"id"`
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// tmdbTitle mirrors the raw result object; movies use title/release_date,
// shows use name/first_air_date.
type tmdbTitle struct {
	ID           int64   `json:"id"`
	MediaType    string  `json:"media_type"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
	GenreIDs     []int   `json:"genre_ids"`
}

func (t tmdbTitle) normalize(mediaType string) Title {
	out := Title{
		ID:           t.ID,
		MediaType:    t.MediaType,
		Title:        t.Title,
		Overview:     t.Overview,
		PosterPath:   t.PosterPath,
		BackdropPath: t.BackdropPath,
		ReleaseDate:  t.ReleaseDate,
		VoteAverage:  t.VoteAverage,
		GenreIDs:     t.GenreIDs,
	}
	if out.MediaType == "" {
		out.MediaType = mediaType
	}
	if out.Title == "" {
		out.Title = t.Name
	}
	if out.ReleaseDate == "" {
		out.ReleaseDate = t.FirstAirDate
	}
	return out
}

type tmdbPage struct {
	Page         int         `json:"page"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
	Results      []tmdbTitle `json:"results"`
}

func (p tmdbPage) normalize(mediaType string) *TitlePage {
	out := &TitlePage{Page: p.Page, TotalPages: p.TotalPages, TotalResults: p.TotalResults, Results: make([]Title, 0, len(p.Results))}
	for _, r := range p.Results {
		// multi search also returns people
		if r.MediaType == "person" {
			continue
		}
		out.Results = append(out.Results, r.normalize(mediaType))
	}
	return out
}

type MetadataClientInterface interface {
	Enabled() bool
	Search(ctx context.Context, query string, page int) (*TitlePage, error)
	Details(ctx context.Context, mediaType string, id int64) (*Details, error)
	Credits(ctx context.Context, mediaType string, id int64) (*Credits, error)
	Trending(ctx context.Context, mediaType string, page int) (*TitlePage, error)
	Discover(ctx context.Context, mediaType string, genreID int, page int) (*TitlePage, error)
}

// MetadataClient is a read-only client for a TMDB-compatible API.
type MetadataClient struct {
	req      *requester
	apiKey   string
	language string
	limiter  *rate.Limiter
	logger   providers.Logger
}

func NewMetadataClient(conf *structures.Config, logger providers.Logger) MetadataClientInterface {
	limit := rate.Inf
	if conf.Metadata.RateLimit > 0 {
		limit = rate.Limit(conf.Metadata.RateLimit)
	}
	return &MetadataClient{
		req:      newRequester(conf.Metadata.BaseURL, conf.Metadata.Timeout, conf.Backend.ReadRetries, conf.Backend.RetryDelay),
		apiKey:   conf.Metadata.APIKey,
		language: conf.Metadata.Language,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

func (m *MetadataClient) Enabled() bool {
	return m.apiKey != ""
}

func (m *MetadataClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if !m.Enabled() {
		return ErrMetadataDisabled
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", m.apiKey)
	if m.language != "" {
		query.Set("language", m.language)
	}

	err := m.req.read(ctx, func() error {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
		data, err := m.req.do(ctx, http.MethodGet, path, query, nil, nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		m.logger.Warnf(providers.TypeApp, "Metadata request %s failed: %s", path, err)
	}
	return err
}

func pageQuery(page int) url.Values {
	if page < 1 {
		page = 1
	}
	return url.Values{"page": {strconv.Itoa(page)}}
}

func validMediaType(mediaType string) error {
	if mediaType != "movie" && mediaType != "tv" {
		return fmt.Errorf("unsupported media type %q", mediaType)
	}
	return nil
}

func (m *MetadataClient) Search(ctx context.Context, query string, page int) (*TitlePage, error) {
	q := pageQuery(page)
	q.Set("query", query)
	var raw tmdbPage
	if err := m.get(ctx, "/search/multi", q, &raw); err != nil {
		return nil, err
	}
	return raw.normalize(""), nil
}

func (m *MetadataClient) Details(ctx context.Context, mediaType string, id int64) (*Details, error) {
	if err := validMediaType(mediaType); err != nil {
		return nil, err
	}
	var raw struct {
		tmdbTitle
		Runtime          int      `json:"runtime"`
		Genres           []Genre  `json:"genres"`
		NumberOfSeasons  int      `json:"number_of_seasons"`
		NumberOfEpisodes int      `json:"number_of_episodes"`
		Seasons          []Season `json:"seasons"`
	}
	path := fmt.Sprintf("/%s/%d", mediaType, id)
	if err := m.get(ctx, path, nil, &raw); err != nil {
		return nil, err
	}
	return &Details{
		Title:            raw.tmdbTitle.normalize(mediaType),
		Runtime:          raw.Runtime,
		Genres:           raw.Genres,
		NumberOfSeasons:  raw.NumberOfSeasons,
		NumberOfEpisodes: raw.NumberOfEpisodes,
		Seasons:          raw.Seasons,
	}, nil
}

func (m *MetadataClient) Credits(ctx context.Context, mediaType string, id int64) (*Credits, error) {
	if err := validMediaType(mediaType); err != nil {
		return nil, err
	}
	var out Credits
	path := fmt.Sprintf("/%s/%d/credits", mediaType, id)
	if err := m.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trending returns the weekly trending list; mediaType "all" mixes movies and shows.
func (m *MetadataClient) Trending(ctx context.Context, mediaType string, page int) (*TitlePage, error) {
	if mediaType == "" {
		mediaType = "all"
	}
	if mediaType != "all" {
		if err := validMediaType(mediaType); err != nil {
			return nil, err
		}
	}
	var raw tmdbPage
	if err := m.get(ctx, "/trending/"+mediaType+"/week", pageQuery(page), &raw); err != nil {
		return nil, err
	}
	if mediaType == "all" {
		return raw.normalize(""), nil
	}
	return raw.normalize(mediaType), nil
}

func (m *MetadataClient) Discover(ctx context.Context, mediaType string, genreID int, page int) (*TitlePage, error) {
	if err := validMediaType(mediaType); err != nil {
		return nil, err
	}
	q := pageQuery(page)
	if genreID > 0 {
		q.Set("with_genres", strconv.Itoa(genreID))
	}
	var raw tmdbPage
	if err := m.get(ctx, "/discover/"+mediaType, q, &raw); err != nil {
		return nil, err
	}
	return raw.normalize(mediaType), nil
}
