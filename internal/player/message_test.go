package player

import (
	"testing"
	"time"
	"watchsync/internal/models"
	"watchsync/internal/structures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const playerOrigin = "https://player.example.com"

func newValidator() *Validator {
	conf := &structures.Config{
		Player: structures.PlayerConfig{AllowedOrigins: []string{"https://Player.Example.com/", "http://localhost:3000"}},
	}
	return NewValidator(conf).(*Validator)
}

func TestValidator_OriginAllowed(t *testing.T) {
	v := newValidator()
	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://player.example.com", true},
		{"https://PLAYER.example.com", true},
		{"http://localhost:3000", true},
		{"http://player.example.com", false},
		{"https://player.example.com.evil.io", false},
		{"http://localhost:3001", false},
		{"", false},
		{"null", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, v.OriginAllowed(tt.origin), tt.origin)
	}
}

func TestValidator_RejectsOrigin(t *testing.T) {
	_, err := newValidator().Parse("https://evil.example", []byte(`{"type":"MEDIA_DATA","data":{"1":{}}}`))
	assert.ErrorIs(t, err, ErrOriginNotAllowed)
}

func TestValidator_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"wrong type", `{"type":"PLAYER_EVENT","data":{"1":{}}}`},
		{"empty data", `{"type":"MEDIA_DATA","data":{}}`},
		{"non numeric id", `{"type":"MEDIA_DATA","data":{"abc":{"progress":{"watched":1,"duration":2}}}}`},
		{"negative id", `{"type":"MEDIA_DATA","data":{"-4":{"progress":{"watched":1,"duration":2}}}}`},
		{"negative watched", `{"type":"MEDIA_DATA","data":{"4":{"progress":{"watched":-1,"duration":2}}}}`},
		{"unknown media type", `{"type":"MEDIA_DATA","data":{"4":{"type":"book"}}}`},
		{"id mismatch", `{"type":"MEDIA_DATA","data":{"4":{"id":5}}}`},
		{"show without episode", `{"type":"MEDIA_DATA","data":{"4":{"type":"tv","progress":{"watched":1,"duration":2}}}}`},
		{"fractional season", `{"type":"MEDIA_DATA","data":{"4":{"type":"tv","last_season_watched":1.5,"last_episode_watched":1}}}`},
		{"season word", `{"type":"MEDIA_DATA","data":{"4":{"type":"tv","last_season_watched":"one","last_episode_watched":1}}}`},
	}
	v := newValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Parse(playerOrigin, []byte(tt.body))
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

func TestValidator_Movie(t *testing.T) {
	body := `{"type":"MEDIA_DATA","data":{"603":{"id":603,"type":"movie","title":"The Matrix","poster_path":"/m.jpg",
		"progress":{"watched":600,"duration":1200},"last_updated":1767225600000}}}`

	updates, err := newValidator().Parse(playerOrigin, []byte(body))
	require.NoError(t, err)
	require.Len(t, updates, 1)

	u := updates[0]
	assert.Equal(t, int64(603), u.ContentID)
	assert.Equal(t, models.MediaMovie, u.MediaType)
	assert.Equal(t, "The Matrix", u.Title)
	assert.Equal(t, 600.0, *u.Watched)
	assert.Equal(t, 1200.0, *u.Duration)
	assert.Equal(t, time.UnixMilli(1767225600000).UTC(), u.At)
}

func TestValidator_ShowProgressWithStringNumbers(t *testing.T) {
	body := `{"type":"MEDIA_DATA","data":{"1399":{"type":"tv","title":"Game of Thrones",
		"last_season_watched":"1","last_episode_watched":"3",
		"show_progress":{
			"s1e3":{"season":"1","episode":"3","progress":{"watched":300,"duration":1800},"last_updated":1767225600000},
			"s1e2":{"season":1,"episode":2,"progress":{"watched":1800,"duration":1800}}
		}}}}`

	updates, err := newValidator().Parse(playerOrigin, []byte(body))
	require.NoError(t, err)
	require.Len(t, updates, 2)

	stamped := time.UnixMilli(1767225600000).UTC()
	assert.Equal(t, 2, updates[0].Episode)
	assert.True(t, updates[0].Backfill)
	assert.Equal(t, stamped, updates[0].At)
	assert.Equal(t, 3, updates[1].Episode)
	assert.False(t, updates[1].Backfill)
	assert.True(t, updates[1].At.After(updates[0].At), "current episode must be newest")
	assert.Equal(t, 1, updates[1].Season)
	assert.Equal(t, models.MediaTV, updates[1].MediaType)
	assert.Equal(t, 300.0, *updates[1].Watched)
}

func TestValidator_ShowProgressKeyFallback(t *testing.T) {
	body := `{"type":"MEDIA_DATA","data":{"7":{"show_progress":{"s2e10":{"progress":{"watched":5,"duration":10}}}}}}`

	updates, err := newValidator().Parse(playerOrigin, []byte(body))
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, models.MediaTV, updates[0].MediaType)
	assert.Equal(t, 2, updates[0].Season)
	assert.Equal(t, 10, updates[0].Episode)
}

func TestValidator_ShowWithoutEpisodeMap(t *testing.T) {
	body := `{"type":"MEDIA_DATA","data":{"7":{"type":"tv","last_season_watched":1,"last_episode_watched":3,
		"progress":{"watched":300,"duration":1800}}}}`

	updates, err := newValidator().Parse(playerOrigin, []byte(body))
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, 1, updates[0].Season)
	assert.Equal(t, 3, updates[0].Episode)
}

func TestValidator_UntimedEpisodesResumeAtReportedEpisode(t *testing.T) {
	v := newValidator()
	v.now = func() time.Time { return time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC) }
	body := []byte(`{"type":"MEDIA_DATA","data":{"1399":{"type":"tv",
		"last_season_watched":"1","last_episode_watched":"2",
		"show_progress":{
			"s1e2":{"progress":{"watched":100,"duration":1800}},
			"s1e5":{"progress":{"watched":1800,"duration":1800}}
		}}}}`)

	store := models.NewProgressStore(models.NewMemoryPersistence(), "history").
		WithClock(func() time.Time { return time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC) })

	updates, err := v.Parse(playerOrigin, body)
	require.NoError(t, err)
	for _, u := range updates {
		_, err := store.Set(u)
		require.NoError(t, err)
	}
	first, ok := store.Get(1399)
	require.True(t, ok)
	assert.Equal(t, 1, first.LastSeasonWatched)
	assert.Equal(t, 2, first.LastEpisodeWatched)

	// a later repeat of the same message keeps the catch-up episode's time
	v.now = func() time.Time { return time.Date(2026, 6, 1, 11, 0, 0, 0, time.UTC) }
	updates, err = v.Parse(playerOrigin, body)
	require.NoError(t, err)
	for _, u := range updates {
		_, err := store.Set(u)
		require.NoError(t, err)
	}
	second, ok := store.Get(1399)
	require.True(t, ok)
	assert.Equal(t, 2, second.LastEpisodeWatched)
	assert.Equal(t, first.ShowProgress[1][5].LastUpdated, second.ShowProgress[1][5].LastUpdated)
}

func TestValidator_ReportedEpisodeOutsideShowProgress(t *testing.T) {
	body := `{"type":"MEDIA_DATA","data":{"7":{"type":"tv","last_season_watched":2,"last_episode_watched":1,
		"progress":{"watched":60,"duration":1200},"last_updated":1767225600000,
		"show_progress":{"s1e9":{"progress":{"watched":1200,"duration":1200},"last_updated":1767225600000}}}}}`

	updates, err := newValidator().Parse(playerOrigin, []byte(body))
	require.NoError(t, err)
	require.Len(t, updates, 2)
	current := updates[1]
	assert.Equal(t, 2, current.Season)
	assert.Equal(t, 1, current.Episode)
	assert.Equal(t, 60.0, *current.Watched)
	assert.True(t, current.At.After(updates[0].At))
}

func TestValidator_MultipleContentSorted(t *testing.T) {
	body := `{"type":"MEDIA_DATA","data":{
		"20":{"progress":{"watched":1,"duration":2}},
		"3":{"progress":{"watched":1,"duration":2}}}}`

	updates, err := newValidator().Parse(playerOrigin, []byte(body))
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, int64(3), updates[0].ContentID)
	assert.Equal(t, int64(20), updates[1].ContentID)
}

func TestParseEpisodeKey(t *testing.T) {
	s, e := parseEpisodeKey("S3E12")
	assert.Equal(t, 3, s)
	assert.Equal(t, 12, e)

	s, e = parseEpisodeKey("episode-1")
	assert.Zero(t, s)
	assert.Zero(t, e)
}
