package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

var base = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func TestHistoryItem_ApplyMovie(t *testing.T) {
	h := &HistoryItem{}
	err := h.Apply(ProgressUpdate{ContentID: 5, Title: "Heat", Watched: f(60), Duration: f(120)}, base)
	require.NoError(t, err)

	assert.Equal(t, MediaMovie, h.MediaType)
	assert.Equal(t, "Heat", h.Title)
	assert.Equal(t, float64(50), h.Progress.Percentage)
	assert.Equal(t, base, h.LastUpdated)

	err = h.Apply(ProgressUpdate{ContentID: 5, Watched: f(90)}, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "Heat", h.Title, "empty title keeps stored value")
	assert.Equal(t, float64(120), h.Progress.Duration)
	assert.Equal(t, float64(75), h.Progress.Percentage)
}

func TestHistoryItem_ApplyEpisodeIdempotent(t *testing.T) {
	u := ProgressUpdate{ContentID: 9, MediaType: MediaTV, Season: 2, Episode: 4, Watched: f(400), Duration: f(1600), At: base}

	once := &HistoryItem{}
	require.NoError(t, once.Apply(u, u.At))

	twice := &HistoryItem{}
	require.NoError(t, twice.Apply(u, u.At))
	require.NoError(t, twice.Apply(u, u.At))

	assert.Equal(t, once, twice)
}

func TestHistoryItem_ApplyEpisodeTracksLatest(t *testing.T) {
	h := &HistoryItem{}
	require.NoError(t, h.Apply(ProgressUpdate{ContentID: 3, MediaType: MediaTV, Season: 1, Episode: 2, Watched: f(10), Duration: f(100)}, base.Add(time.Hour)))
	require.NoError(t, h.Apply(ProgressUpdate{ContentID: 3, MediaType: MediaTV, Season: 1, Episode: 5, Watched: f(80), Duration: f(100)}, base))

	assert.Equal(t, 1, h.LastSeasonWatched)
	assert.Equal(t, 2, h.LastEpisodeWatched, "older tick must not move the resume episode")
	assert.Equal(t, base.Add(time.Hour), h.LastUpdated)
	assert.Equal(t, float64(10), h.Progress.Percentage)
	assert.Len(t, h.ShowProgress[1], 2)
}

func TestHistoryItem_ApplyBackfillKeepsTimestamp(t *testing.T) {
	h := &HistoryItem{}
	require.NoError(t, h.Apply(ProgressUpdate{ContentID: 3, MediaType: MediaTV, Season: 1, Episode: 5, Watched: f(80), Duration: f(100)}, base))
	require.NoError(t, h.Apply(ProgressUpdate{ContentID: 3, MediaType: MediaTV, Season: 1, Episode: 2, Watched: f(10), Duration: f(100)}, base.Add(time.Hour)))

	later := base.Add(2 * time.Hour)
	require.NoError(t, h.Apply(ProgressUpdate{ContentID: 3, MediaType: MediaTV, Season: 1, Episode: 5, Watched: f(80), Duration: f(100), Backfill: true}, later))
	assert.Equal(t, base, h.ShowProgress[1][5].LastUpdated, "unchanged backfill keeps its time")
	assert.Equal(t, 2, h.LastEpisodeWatched)

	require.NoError(t, h.Apply(ProgressUpdate{ContentID: 3, MediaType: MediaTV, Season: 1, Episode: 5, Watched: f(90), Duration: f(100), Backfill: true}, later))
	assert.Equal(t, later, h.ShowProgress[1][5].LastUpdated, "moved position is restamped")

	require.NoError(t, h.Apply(ProgressUpdate{ContentID: 3, MediaType: MediaTV, Season: 2, Episode: 1, Watched: f(5), Duration: f(100), Backfill: true}, later))
	assert.Equal(t, later, h.ShowProgress[2][1].LastUpdated, "new episode is always stamped")
}

func TestHistoryItem_ApplyRejectsTypeChange(t *testing.T) {
	h := &HistoryItem{}
	require.NoError(t, h.Apply(ProgressUpdate{ContentID: 1, Watched: f(1), Duration: f(2)}, base))
	err := h.Apply(ProgressUpdate{ContentID: 1, MediaType: MediaTV, Season: 1, Episode: 1}, base)
	assert.ErrorIs(t, err, ErrMediaTypeChanged)
}

func TestHistoryItem_ApplyInfersTV(t *testing.T) {
	h := &HistoryItem{}
	require.NoError(t, h.Apply(ProgressUpdate{ContentID: 1, Season: 1, Episode: 1, Watched: f(1), Duration: f(2)}, base))
	assert.Equal(t, MediaTV, h.MediaType)
}

func TestProgressUpdate_Validate(t *testing.T) {
	tests := []struct {
		name string
		u    ProgressUpdate
		err  error
	}{
		{"ok movie", ProgressUpdate{ContentID: 1}, nil},
		{"ok tv", ProgressUpdate{ContentID: 1, MediaType: MediaTV, Season: 1, Episode: 1}, nil},
		{"zero id", ProgressUpdate{}, ErrInvalidContentID},
		{"bad type", ProgressUpdate{ContentID: 1, MediaType: "anime"}, ErrInvalidMediaType},
		{"tv without episode", ProgressUpdate{ContentID: 1, MediaType: MediaTV, Season: 1}, ErrInvalidEpisode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.u.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestHistoryItem_CloneIsDeep(t *testing.T) {
	h := &HistoryItem{}
	require.NoError(t, h.Apply(ProgressUpdate{ContentID: 3, MediaType: MediaTV, Season: 1, Episode: 1, Watched: f(10), Duration: f(100)}, base))

	c := h.Clone()
	c.ShowProgress[1][1].Progress.Watched = 99
	c.Progress.Watched = 99

	assert.Equal(t, float64(10), h.ShowProgress[1][1].Progress.Watched)
	assert.Equal(t, float64(10), h.Progress.Watched)
}

func TestHistoryItem_NormalizeLegacy(t *testing.T) {
	h := &HistoryItem{Progress: &ProgressRecord{Watched: 600, Duration: 1200}}
	h.Normalize()
	assert.Equal(t, MediaMovie, h.MediaType)
	assert.Equal(t, float64(50), h.Progress.Percentage)
}
