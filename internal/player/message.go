package player

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"watchsync/internal/models"
	"watchsync/internal/structures"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
)

const MessageTypeMediaData = "MEDIA_DATA"

var (
	ErrOriginNotAllowed = errors.New("origin not allowed")
	ErrInvalidMessage   = errors.New("invalid player message")
)

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = 0
		return nil
	}
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if s, ok := raw.(string); ok {
		raw = strings.TrimSpace(s)
		if raw == "" {
			*f = 0
			return nil
		}
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil || v != math.Trunc(v) || math.IsInf(v, 0) {
		return fmt.Errorf("not an integer: %s", b)
	}
	*f = flexInt(v)
	return nil
}

type position struct {
	Watched  *float64 `json:"watched"`
	Duration *float64 `json:"duration"`
}

type episodeData struct {
	Season      flexInt   `json:"season"`
	Episode     flexInt   `json:"episode"`
	Title       string    `json:"title"`
	Progress    *position `json:"progress"`
	LastUpdated int64     `json:"last_updated"`
}

// MediaData is the per-content payload the embedded player reports.
type MediaData struct {
	ID                 flexInt                 `json:"id"`
	Type               string                  `json:"type"`
	Title              string                  `json:"title"`
	PosterPath         string                  `json:"poster_path"`
	BackdropPath       string                  `json:"backdrop_path"`
	Progress           *position               `json:"progress"`
	LastSeasonWatched  flexInt                 `json:"last_season_watched"`
	LastEpisodeWatched flexInt                 `json:"last_episode_watched"`
	ShowProgress       map[string]*episodeData `json:"show_progress"`
	LastUpdated        int64                   `json:"last_updated"`
}

type Message struct {
	Type string                `json:"type"`
	Data map[string]*MediaData `json:"data"`
}

type ValidatorInterface interface {
	Parse(origin string, body []byte) ([]models.ProgressUpdate, error)
}

// Validator checks relayed player messages against an origin allow-list and
// turns them into store updates.
type Validator struct {
	allowed map[string]struct{}
	now     func() time.Time
}

func NewValidator(conf *structures.Config) ValidatorInterface {
	v := &Validator{
		allowed: make(map[string]struct{}, len(conf.Player.AllowedOrigins)),
		now:     time.Now,
	}
	for _, o := range conf.Player.AllowedOrigins {
		if key, ok := originKey(o); ok {
			v.allowed[key] = struct{}{}
		}
	}
	return v
}

func originKey(origin string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), true
}

func (v *Validator) OriginAllowed(origin string) bool {
	key, ok := originKey(origin)
	if !ok {
		return false
	}
	_, found := v.allowed[key]
	return found
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidMessage, fmt.Sprintf(format, args...))
}

func validPosition(p *position) error {
	if p == nil {
		return nil
	}
	for _, v := range []*float64{p.Watched, p.Duration} {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
			return invalid("watched and duration must be finite and non-negative")
		}
	}
	return nil
}

// millisTime converts the player's millisecond timestamps; 0 means unset.
func millisTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// Parse validates one message. Updates come out sorted by content id and,
// within a show, by season and episode.
func (v *Validator) Parse(origin string, body []byte) ([]models.ProgressUpdate, error) {
	if !v.OriginAllowed(origin) {
		return nil, fmt.Errorf("%w: %q", ErrOriginNotAllowed, origin)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, invalid("%s", err)
	}
	if msg.Type != MessageTypeMediaData {
		return nil, invalid("unexpected type %q", msg.Type)
	}
	if len(msg.Data) == 0 {
		return nil, invalid("empty data")
	}

	keys := make([]string, 0, len(msg.Data))
	for k := range msg.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var updates []models.ProgressUpdate
	for _, k := range keys {
		itemUpdates, err := v.parseItem(k, msg.Data[k])
		if err != nil {
			return nil, err
		}
		updates = append(updates, itemUpdates...)
	}
	sort.SliceStable(updates, func(i, j int) bool {
		a, b := updates[i], updates[j]
		if a.ContentID != b.ContentID {
			return a.ContentID < b.ContentID
		}
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		return a.Episode < b.Episode
	})
	return updates, nil
}

func (v *Validator) parseItem(key string, d *MediaData) ([]models.ProgressUpdate, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil || id <= 0 {
		return nil, invalid("content id %q is not a positive number", key)
	}
	if d == nil {
		return nil, invalid("content %d has no payload", id)
	}
	if d.ID != 0 && int64(d.ID) != id {
		return nil, invalid("content %d payload carries id %d", id, d.ID)
	}

	mediaType := models.MediaType(d.Type)
	if mediaType == "" {
		if len(d.ShowProgress) > 0 || d.LastSeasonWatched > 0 {
			mediaType = models.MediaTV
		} else {
			mediaType = models.MediaMovie
		}
	}
	if !mediaType.Valid() {
		return nil, invalid("content %d has unknown type %q", id, d.Type)
	}
	if err := validPosition(d.Progress); err != nil {
		return nil, err
	}

	meta := models.ProgressUpdate{
		ContentID:    id,
		MediaType:    mediaType,
		Title:        d.Title,
		PosterPath:   d.PosterPath,
		BackdropPath: d.BackdropPath,
	}

	if mediaType == models.MediaMovie {
		u := meta
		if d.Progress != nil {
			u.Watched, u.Duration = d.Progress.Watched, d.Progress.Duration
		}
		u.At = millisTime(d.LastUpdated)
		return []models.ProgressUpdate{u}, nil
	}

	lastSeason, lastEpisode := int(d.LastSeasonWatched), int(d.LastEpisodeWatched)
	reported := lastSeason > 0 && lastEpisode > 0

	var updates []models.ProgressUpdate
	for key, ep := range d.ShowProgress {
		if ep == nil {
			continue
		}
		season, episode := int(ep.Season), int(ep.Episode)
		if season <= 0 || episode <= 0 {
			season, episode = parseEpisodeKey(key)
		}
		if season <= 0 || episode <= 0 {
			return nil, invalid("content %d episode %q lacks season/episode", id, key)
		}
		if err := validPosition(ep.Progress); err != nil {
			return nil, err
		}
		u := meta
		u.Season, u.Episode = season, episode
		u.EpisodeTitle = ep.Title
		if ep.Progress != nil {
			u.Watched, u.Duration = ep.Progress.Watched, ep.Progress.Duration
		}
		u.At = millisTime(ep.LastUpdated)
		updates = append(updates, u)
	}

	if !reported {
		if len(updates) == 0 {
			return nil, invalid("content %d is a show without season/episode", id)
		}
		// nothing marks a current episode: untimed entries are catch-up detail
		for i := range updates {
			if updates[i].At.IsZero() {
				updates[i].At = millisTime(d.LastUpdated)
				updates[i].Backfill = true
			}
		}
		return updates, nil
	}

	last := -1
	for i := range updates {
		if updates[i].Season == lastSeason && updates[i].Episode == lastEpisode {
			last = i
			break
		}
	}
	if last < 0 {
		// the current episode is only described by the top-level progress
		u := meta
		u.Season, u.Episode = lastSeason, lastEpisode
		if d.Progress != nil {
			u.Watched, u.Duration = d.Progress.Watched, d.Progress.Duration
		}
		updates = append(updates, u)
		last = len(updates) - 1
	}

	v.stampShow(updates, last, millisTime(d.LastUpdated))
	return updates, nil
}

// stampShow resolves episode times so the player's current episode is the
// newest one. Untimed episodes fall back to the message time and are marked
// as backfill so a repeated message leaves their history untouched.
func (v *Validator) stampShow(updates []models.ProgressUpdate, last int, ref time.Time) {
	lastAt := updates[last].At
	if ref.After(lastAt) {
		lastAt = ref
	}
	for i, u := range updates {
		if i != last && u.At.After(lastAt) {
			lastAt = u.At
		}
	}
	if lastAt.IsZero() {
		lastAt = v.now().UTC().Truncate(time.Millisecond)
	}

	tied := false
	for i := range updates {
		if i == last {
			continue
		}
		if updates[i].At.IsZero() {
			updates[i].At = ref
			if ref.IsZero() {
				updates[i].At = lastAt
			}
			updates[i].Backfill = true
		}
		if updates[i].At.Equal(lastAt) {
			tied = true
		}
	}
	if tied {
		lastAt = lastAt.Add(time.Millisecond)
	}
	updates[last].At = lastAt
}

// parseEpisodeKey reads show_progress keys of the form "s1e3".
func parseEpisodeKey(key string) (int, int) {
	k := strings.ToLower(key)
	if !strings.HasPrefix(k, "s") {
		return 0, 0
	}
	parts := strings.SplitN(k[1:], "e", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	season, err1 := strconv.Atoi(parts[0])
	episode, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return season, episode
}
