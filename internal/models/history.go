package models

import (
	"errors"
	"time"
)

type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

func (m MediaType) Valid() bool {
	return m == MediaMovie || m == MediaTV
}

var (
	ErrInvalidContentID = errors.New("content id must be positive")
	ErrInvalidMediaType = errors.New("media type must be movie or tv")
	ErrInvalidEpisode   = errors.New("tv progress needs a positive season and episode")
	ErrMediaTypeChanged = errors.New("media type differs from stored entry")
)

type EpisodeEntry struct {
	Progress    *ProgressRecord `json:"progress"`
	LastUpdated time.Time       `json:"last_updated"`
	Title       string          `json:"title,omitempty"`
}

func (e *EpisodeEntry) Clone() *EpisodeEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Progress = e.Progress.Clone()
	return &c
}

// HistoryItem is one entry of the local watch history. Movies carry a single
// Progress; TV items carry ShowProgress and mirror their latest episode into
// Progress, LastSeasonWatched and LastEpisodeWatched.
type HistoryItem struct {
	ContentID          int64                         `json:"id"`
	MediaType          MediaType                     `json:"type"`
	Title              string                        `json:"title,omitempty"`
	PosterPath         string                        `json:"poster_path,omitempty"`
	BackdropPath       string                        `json:"backdrop_path,omitempty"`
	Progress           *ProgressRecord               `json:"progress,omitempty"`
	LastSeasonWatched  int                           `json:"last_season_watched,omitempty"`
	LastEpisodeWatched int                           `json:"last_episode_watched,omitempty"`
	ShowProgress       map[int]map[int]*EpisodeEntry `json:"show_progress,omitempty"`
	LastUpdated        time.Time                     `json:"last_updated"`
}

func (h *HistoryItem) Clone() *HistoryItem {
	if h == nil {
		return nil
	}
	c := *h
	c.Progress = h.Progress.Clone()
	if h.ShowProgress != nil {
		c.ShowProgress = make(map[int]map[int]*EpisodeEntry, len(h.ShowProgress))
		for season, episodes := range h.ShowProgress {
			eps := make(map[int]*EpisodeEntry, len(episodes))
			for ep, entry := range episodes {
				eps[ep] = entry.Clone()
			}
			c.ShowProgress[season] = eps
		}
	}
	return &c
}

// Normalize recomputes every derived field: percentages, the media type of
// legacy entries, and for TV items the parent timestamp and latest episode.
func (h *HistoryItem) Normalize() {
	if h.MediaType == "" {
		if len(h.ShowProgress) > 0 {
			h.MediaType = MediaTV
		} else {
			h.MediaType = MediaMovie
		}
	}
	h.Progress.Normalize()
	for _, episodes := range h.ShowProgress {
		for _, entry := range episodes {
			if entry != nil {
				entry.Progress.Normalize()
			}
		}
	}
	if h.MediaType == MediaTV {
		h.refreshLatestEpisode()
	}
}

func (h *HistoryItem) refreshLatestEpisode() {
	season, episode, entry, ok := LatestEpisode(h.ShowProgress)
	if !ok {
		return
	}
	h.LastSeasonWatched = season
	h.LastEpisodeWatched = episode
	h.LastUpdated = entry.LastUpdated
	h.Progress = entry.Progress.Clone()
}

// ProgressUpdate is a partial write against one history entry. Zero-valued
// fields leave the stored value untouched; a zero At is stamped with the
// store clock.
type ProgressUpdate struct {
	ContentID    int64
	MediaType    MediaType
	Title        string
	PosterPath   string
	BackdropPath string
	Season       int
	Episode      int
	EpisodeTitle string
	Watched      *float64
	Duration     *float64
	At           time.Time
	// Backfill marks catch-up episode detail: an existing episode whose
	// position does not change keeps its timestamp.
	Backfill bool
}

func (u *ProgressUpdate) Validate() error {
	if u.ContentID <= 0 {
		return ErrInvalidContentID
	}
	if u.MediaType != "" && !u.MediaType.Valid() {
		return ErrInvalidMediaType
	}
	if u.MediaType == MediaTV && (u.Season <= 0 || u.Episode <= 0) {
		return ErrInvalidEpisode
	}
	return nil
}

// Apply merges u into h shallowly and stamps the touched record with at.
func (h *HistoryItem) Apply(u ProgressUpdate, at time.Time) error {
	mediaType := u.MediaType
	if mediaType == "" {
		mediaType = h.MediaType
	}
	if mediaType == "" {
		if u.Season > 0 {
			mediaType = MediaTV
		} else {
			mediaType = MediaMovie
		}
	}
	if h.MediaType != "" && h.MediaType != mediaType {
		return ErrMediaTypeChanged
	}
	if mediaType == MediaTV && (u.Season <= 0 || u.Episode <= 0) {
		return ErrInvalidEpisode
	}

	h.ContentID = u.ContentID
	h.MediaType = mediaType
	if u.Title != "" {
		h.Title = u.Title
	}
	if u.PosterPath != "" {
		h.PosterPath = u.PosterPath
	}
	if u.BackdropPath != "" {
		h.BackdropPath = u.BackdropPath
	}

	if mediaType == MediaMovie {
		if h.Progress == nil {
			h.Progress = &ProgressRecord{}
		}
		applyPosition(h.Progress, u)
		h.LastUpdated = at
		return nil
	}

	if h.ShowProgress == nil {
		h.ShowProgress = make(map[int]map[int]*EpisodeEntry)
	}
	episodes, ok := h.ShowProgress[u.Season]
	if !ok {
		episodes = make(map[int]*EpisodeEntry)
		h.ShowProgress[u.Season] = episodes
	}
	entry, existed := episodes[u.Episode]
	if !existed || entry == nil {
		existed = false
		entry = &EpisodeEntry{Progress: &ProgressRecord{}}
		episodes[u.Episode] = entry
	}
	if entry.Progress == nil {
		entry.Progress = &ProgressRecord{}
	}
	before := *entry.Progress
	applyPosition(entry.Progress, u)
	if u.EpisodeTitle != "" {
		entry.Title = u.EpisodeTitle
	}
	if !(existed && u.Backfill && *entry.Progress == before) {
		entry.LastUpdated = at
	}
	h.refreshLatestEpisode()
	return nil
}

func applyPosition(r *ProgressRecord, u ProgressUpdate) {
	if u.Watched != nil {
		r.Watched = *u.Watched
	}
	if u.Duration != nil {
		r.Duration = *u.Duration
	}
	r.Normalize()
}
