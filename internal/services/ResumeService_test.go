package services

import (
	"context"
	"errors"
	"testing"
	"time"
	"watchsync/internal/models"
	"watchsync/internal/remote"
	"watchsync/internal/structures"
	"watchsync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rt0 = time.Date(2026, 2, 1, 20, 0, 0, 0, time.UTC)

func newResumeFixture(t *testing.T, token string, backend *testutil.MockBackend) (*ResumeService, *models.ProgressStore, *testutil.MockLogger) {
	t.Helper()
	conf := &structures.Config{Backend: structures.BackendConfig{Token: token}}
	store := models.NewProgressStore(models.NewMemoryPersistence(), "watch-history")
	logger := &testutil.MockLogger{}
	rs := NewResumeService(store, remote.NewSession(conf), backend, logger).(*ResumeService)
	return rs, store, logger
}

func TestResume_RemoteFoundPicksNewest(t *testing.T) {
	backend := &testutil.MockBackend{Records: []remote.HistoryRecord{
		{ContentID: 7, MediaType: "tv", Season: 1, Episode: 2, DurationWatched: 1800, TotalDuration: 1800, WatchedDate: rt0},
		{ContentID: 7, MediaType: "tv", Season: 1, Episode: 3, DurationWatched: 300, TotalDuration: 1800, WatchedDate: rt0.Add(time.Hour)},
		{ContentID: 8, MediaType: "tv", Season: 4, Episode: 1, WatchedDate: rt0.Add(2 * time.Hour)},
	}}
	rs, _, _ := newResumeFixture(t, "token", backend)

	point := rs.Resolve(context.Background(), 7, models.MediaTV)
	assert.Equal(t, SourceRemote, point.Source)
	assert.Equal(t, 1, point.Season)
	assert.Equal(t, 3, point.Episode)
	assert.Equal(t, float64(17), point.Progress.Percentage)
	assert.Equal(t, []ResumeState{StateIdle, StateFetchingRemote, StateRemoteFound}, point.Trail)

	current, ok := rs.Current(7)
	require.True(t, ok)
	assert.Equal(t, 3, current.Episode)
}

func TestResume_RemoteTieBreaksToLaterEpisode(t *testing.T) {
	backend := &testutil.MockBackend{Records: []remote.HistoryRecord{
		{ContentID: 7, MediaType: "tv", Season: 2, Episode: 5, WatchedDate: rt0},
		{ContentID: 7, MediaType: "tv", Season: 2, Episode: 6, WatchedDate: rt0},
		{ContentID: 7, MediaType: "tv", Season: 1, Episode: 9, WatchedDate: rt0},
	}}
	rs, _, _ := newResumeFixture(t, "token", backend)

	point := rs.Resolve(context.Background(), 7, models.MediaTV)
	assert.Equal(t, 2, point.Season)
	assert.Equal(t, 6, point.Episode)
}

func TestResume_RemoteEmptyFallsBackToLocal(t *testing.T) {
	rs, store, _ := newResumeFixture(t, "token", &testutil.MockBackend{})
	w, d := 900.0, 1800.0
	_, err := store.Set(models.ProgressUpdate{ContentID: 7, MediaType: models.MediaTV, Season: 2, Episode: 4, Watched: &w, Duration: &d, At: rt0})
	require.NoError(t, err)

	point := rs.Resolve(context.Background(), 7, models.MediaTV)
	assert.Equal(t, SourceLocal, point.Source)
	assert.False(t, point.RemoteError)
	assert.Equal(t, 2, point.Season)
	assert.Equal(t, 4, point.Episode)
	assert.Equal(t, float64(50), point.Progress.Percentage)
	assert.Equal(t, []ResumeState{StateIdle, StateFetchingRemote, StateRemoteEmpty, StateLocalFound}, point.Trail)
}

func TestResume_RemoteErrorIsTagged(t *testing.T) {
	rs, store, logger := newResumeFixture(t, "token", &testutil.MockBackend{ReadErr: errors.New("timeout")})
	w, d := 10.0, 100.0
	_, err := store.Set(models.ProgressUpdate{ContentID: 7, Watched: &w, Duration: &d})
	require.NoError(t, err)

	point := rs.Resolve(context.Background(), 7, "")
	assert.Equal(t, SourceLocal, point.Source)
	assert.True(t, point.RemoteError)
	assert.Contains(t, point.Trail, StateRemoteError)
	assert.Equal(t, 1, logger.Count("warn"))
}

func TestResume_GuestSkipsRemote(t *testing.T) {
	backend := &testutil.MockBackend{Records: []remote.HistoryRecord{{ContentID: 7, Season: 5, Episode: 5, WatchedDate: rt0}}}
	rs, _, _ := newResumeFixture(t, "", backend)

	point := rs.Resolve(context.Background(), 7, models.MediaTV)
	assert.Equal(t, SourceDefault, point.Source)
	assert.Equal(t, []ResumeState{StateIdle, StateLocalEmpty}, point.Trail)
}

func TestResume_DefaultsToFirstEpisode(t *testing.T) {
	rs, _, _ := newResumeFixture(t, "token", &testutil.MockBackend{})

	show := rs.Resolve(context.Background(), 1399, models.MediaTV)
	assert.Equal(t, SourceDefault, show.Source)
	assert.Equal(t, 1, show.Season)
	assert.Equal(t, 1, show.Episode)
	assert.Nil(t, show.Progress)

	film := rs.Resolve(context.Background(), 603, models.MediaMovie)
	assert.Equal(t, 0, film.Season)
	assert.Equal(t, 0, film.Episode)
}

func TestResume_LocalTypeMismatchUsesDefaults(t *testing.T) {
	rs, store, _ := newResumeFixture(t, "", &testutil.MockBackend{})
	w, d := 10.0, 100.0
	_, err := store.Set(models.ProgressUpdate{ContentID: 7, MediaType: models.MediaMovie, Watched: &w, Duration: &d})
	require.NoError(t, err)

	point := rs.Resolve(context.Background(), 7, models.MediaTV)
	assert.Equal(t, SourceDefault, point.Source)
}

func TestResume_StaleResolveDoesNotCommit(t *testing.T) {
	rs, _, _ := newResumeFixture(t, "", &testutil.MockBackend{})

	older := rs.begin(7)
	newer := rs.begin(7)
	assert.True(t, rs.commit(7, newer, &ResumePoint{ContentID: 7, Episode: 2}))
	assert.False(t, rs.commit(7, older, &ResumePoint{ContentID: 7, Episode: 1}))

	current, ok := rs.Current(7)
	require.True(t, ok)
	assert.Equal(t, 2, current.Episode)
}

func TestResume_CurrentMissing(t *testing.T) {
	rs, _, _ := newResumeFixture(t, "", &testutil.MockBackend{})
	_, ok := rs.Current(1)
	assert.False(t, ok)
}
