package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"watchsync/internal/providers"
	"watchsync/internal/structures"

	json "github.com/goccy/go-json"
)

type ListKind string

const (
	Watchlist ListKind = "watchlist"
	Favorites ListKind = "favorites"
)

func (k ListKind) Valid() bool {
	return k == Watchlist || k == Favorites
}

// HistoryRecord is one per-episode or per-movie record of the remote
// watch history.
type HistoryRecord struct {
	ContentID          int64     `json:"contentId"`
	MediaType          string    `json:"type"`
	Season             int       `json:"season,omitempty"`
	Episode            int       `json:"episode,omitempty"`
	Title              string    `json:"title,omitempty"`
	Poster             string    `json:"poster,omitempty"`
	Backdrop           string    `json:"backdrop,omitempty"`
	DurationWatched    float64   `json:"durationWatched"`
	TotalDuration      float64   `json:"totalDuration"`
	ProgressPercentage float64   `json:"progressPercentage"`
	WatchedDate        time.Time `json:"watchedDate"`
}

// ProgressPayload is the upsert body. Identity fields and WatchedDate are
// always sent; the rest only when they changed since the last commit.
type ProgressPayload struct {
	ContentID          int64     `json:"contentId"`
	MediaType          string    `json:"type"`
	Season             int       `json:"season,omitempty"`
	Episode            int       `json:"episode,omitempty"`
	Title              string    `json:"title,omitempty"`
	Poster             string    `json:"poster,omitempty"`
	Backdrop           string    `json:"backdrop,omitempty"`
	DurationWatched    *float64  `json:"durationWatched,omitempty"`
	TotalDuration      *float64  `json:"totalDuration,omitempty"`
	ProgressPercentage *float64  `json:"progressPercentage,omitempty"`
	WatchedDate        time.Time `json:"watchedDate"`
}

type ListEntry struct {
	ContentID int64     `json:"contentId"`
	MediaType string    `json:"type"`
	Title     string    `json:"title,omitempty"`
	Poster    string    `json:"poster,omitempty"`
	AddedAt   time.Time `json:"addedAt,omitempty"`
}

type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type BackendClientInterface interface {
	Login(ctx context.Context, email, password string) error
	Logout()
	Profile(ctx context.Context) (*Profile, error)
	RecentlyWatched(ctx context.Context, contentID int64) ([]HistoryRecord, error)
	PushProgress(ctx context.Context, payload *ProgressPayload) (*HistoryRecord, error)
	DeleteProgress(ctx context.Context, contentID int64) error
	List(ctx context.Context, kind ListKind) ([]ListEntry, error)
	AddToList(ctx context.Context, kind ListKind, entry ListEntry) error
	RemoveFromList(ctx context.Context, kind ListKind, contentID int64) error
}

// BackendClient talks to the profile API. Reads are retried, writes are
// sent once. Every failure is logged before it is returned.
type BackendClient struct {
	req     *requester
	session SessionInterface
	logger  providers.Logger
}

func NewBackendClient(conf *structures.Config, session SessionInterface, logger providers.Logger) BackendClientInterface {
	return &BackendClient{
		req:     newRequester(conf.Backend.BaseURL, conf.Backend.Timeout, conf.Backend.ReadRetries, conf.Backend.RetryDelay),
		session: session,
		logger:  logger,
	}
}

func (c *BackendClient) authHeader() (http.Header, error) {
	if !c.session.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.session.Token())
	return h, nil
}

func (c *BackendClient) call(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	headers, err := c.authHeader()
	if err != nil {
		return err
	}
	return c.send(ctx, method, path, query, headers, body, out)
}

func (c *BackendClient) send(ctx context.Context, method, path string, query url.Values, headers http.Header, body, out interface{}) error {
	data, err := c.req.do(ctx, method, path, query, headers, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *BackendClient) Login(ctx context.Context, email, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/user/login", nil, nil, body, &out); err != nil {
		c.logger.Warnf(providers.TypeSync, "Login failed: %s", err)
		return err
	}
	if out.Token == "" {
		return fmt.Errorf("login: empty token")
	}
	c.session.SetToken(out.Token)
	c.logger.Infof(providers.TypeSync, "Session authenticated for %s", email)
	return nil
}

func (c *BackendClient) Logout() {
	c.session.Clear()
}

func (c *BackendClient) Profile(ctx context.Context) (*Profile, error) {
	var p Profile
	err := c.req.read(ctx, func() error {
		return c.call(ctx, http.MethodGet, "/user/profile", nil, nil, &p)
	})
	if err != nil {
		c.logger.Warnf(providers.TypeSync, "Profile fetch failed: %s", err)
		return nil, err
	}
	return &p, nil
}

// RecentlyWatched returns the remote records for one content id, or every
// record when contentID is 0.
func (c *BackendClient) RecentlyWatched(ctx context.Context, contentID int64) ([]HistoryRecord, error) {
	var query url.Values
	if contentID > 0 {
		query = url.Values{"contentId": {strconv.FormatInt(contentID, 10)}}
	}
	var items []HistoryRecord
	err := c.req.read(ctx, func() error {
		items = nil
		return c.call(ctx, http.MethodGet, "/recently-watched", query, nil, &items)
	})
	if err != nil {
		c.logger.Warnf(providers.TypeSync, "Recently watched fetch for %d failed: %s", contentID, err)
		return nil, err
	}
	return items, nil
}

func (c *BackendClient) PushProgress(ctx context.Context, payload *ProgressPayload) (*HistoryRecord, error) {
	var out HistoryRecord
	if err := c.call(ctx, http.MethodPost, "/recently-watched", nil, payload, &out); err != nil {
		c.logger.Errorf(providers.TypeSync, "Push for %d failed: %s", payload.ContentID, err)
		return nil, err
	}
	if out.ContentID == 0 {
		// backend acknowledged without echoing the record
		out = HistoryRecord{ContentID: payload.ContentID, MediaType: payload.MediaType, Season: payload.Season, Episode: payload.Episode, WatchedDate: payload.WatchedDate}
	}
	return &out, nil
}

func (c *BackendClient) DeleteProgress(ctx context.Context, contentID int64) error {
	path := "/recently-watched/" + strconv.FormatInt(contentID, 10)
	if err := c.call(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		c.logger.Errorf(providers.TypeSync, "Delete of %d failed: %s", contentID, err)
		return err
	}
	return nil
}

func (c *BackendClient) List(ctx context.Context, kind ListKind) ([]ListEntry, error) {
	var entries []ListEntry
	err := c.req.read(ctx, func() error {
		entries = nil
		return c.call(ctx, http.MethodGet, "/"+string(kind), nil, nil, &entries)
	})
	if err != nil {
		c.logger.Warnf(providers.TypeSync, "Fetching %s failed: %s", kind, err)
		return nil, err
	}
	return entries, nil
}

func (c *BackendClient) AddToList(ctx context.Context, kind ListKind, entry ListEntry) error {
	if err := c.call(ctx, http.MethodPost, "/"+string(kind), nil, entry, nil); err != nil {
		c.logger.Errorf(providers.TypeSync, "Adding %d to %s failed: %s", entry.ContentID, kind, err)
		return err
	}
	return nil
}

func (c *BackendClient) RemoveFromList(ctx context.Context, kind ListKind, contentID int64) error {
	path := "/" + string(kind) + "/" + strconv.FormatInt(contentID, 10)
	if err := c.call(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		c.logger.Errorf(providers.TypeSync, "Removing %d from %s failed: %s", contentID, kind, err)
		return err
	}
	return nil
}
