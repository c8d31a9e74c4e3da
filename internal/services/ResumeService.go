package services

import (
	"context"
	"sync"
	"time"
	"watchsync/internal/models"
	"watchsync/internal/providers"
	"watchsync/internal/remote"
)

type ResumeSource string

const (
	SourceRemote  ResumeSource = "remote"
	SourceLocal   ResumeSource = "local"
	SourceDefault ResumeSource = "default"
)

type ResumeState string

const (
	StateIdle           ResumeState = "idle"
	StateFetchingRemote ResumeState = "fetching_remote"
	StateRemoteFound    ResumeState = "remote_found"
	StateRemoteEmpty    ResumeState = "remote_empty"
	StateRemoteError    ResumeState = "remote_error"
	StateLocalFound     ResumeState = "local_found"
	StateLocalEmpty     ResumeState = "local_empty"
)

// ResumePoint is where playback of a title should continue.
type ResumePoint struct {
	ContentID   int64                  `json:"contentId"`
	MediaType   models.MediaType       `json:"type"`
	Season      int                    `json:"season,omitempty"`
	Episode     int                    `json:"episode,omitempty"`
	Progress    *models.ProgressRecord `json:"progress,omitempty"`
	Source      ResumeSource           `json:"source"`
	RemoteError bool                   `json:"remoteError,omitempty"`
	UpdatedAt   time.Time              `json:"updatedAt,omitempty"`
	Trail       []ResumeState          `json:"trail"`
}

type ResumeServiceInterface interface {
	Resolve(ctx context.Context, contentID int64, mediaType models.MediaType) *ResumePoint
	Current(contentID int64) (*ResumePoint, bool)
}

// ResumeService picks the resume point of a title: the newest remote record
// for an authenticated session, else the local entry, else the first
// episode. Each resolve takes a generation number and only the newest
// resolve for a title may publish its answer through Current.
type ResumeService struct {
	mu      sync.Mutex
	gens    map[int64]uint64
	current map[int64]*ResumePoint
	store   *models.ProgressStore
	session remote.SessionInterface
	backend remote.BackendClientInterface
	logger  providers.Logger
}

func NewResumeService(store *models.ProgressStore, session remote.SessionInterface, backend remote.BackendClientInterface, logger providers.Logger) ResumeServiceInterface {
	return &ResumeService{
		gens:    make(map[int64]uint64),
		current: make(map[int64]*ResumePoint),
		store:   store,
		session: session,
		backend: backend,
		logger:  logger,
	}
}

func (rs *ResumeService) begin(contentID int64) uint64 {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.gens[contentID]++
	return rs.gens[contentID]
}

func (rs *ResumeService) commit(contentID int64, gen uint64, point *ResumePoint) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.gens[contentID] != gen {
		return false
	}
	rs.current[contentID] = point
	return true
}

func (rs *ResumeService) Resolve(ctx context.Context, contentID int64, mediaType models.MediaType) *ResumePoint {
	gen := rs.begin(contentID)
	point := &ResumePoint{ContentID: contentID, MediaType: mediaType, Trail: []ResumeState{StateIdle}}

	if rs.session.Authenticated() {
		point.Trail = append(point.Trail, StateFetchingRemote)
		records, err := rs.backend.RecentlyWatched(ctx, contentID)
		switch {
		case err != nil:
			point.RemoteError = true
			point.Trail = append(point.Trail, StateRemoteError)
			rs.logger.Warnf(providers.TypeSync, "Resume of %d falls back to local history, remote read failed: %s", contentID, err)
		case rs.fromRemote(point, records):
			point.Trail = append(point.Trail, StateRemoteFound)
			rs.publish(contentID, gen, point)
			return point
		default:
			point.Trail = append(point.Trail, StateRemoteEmpty)
		}
	}

	if item, ok := rs.store.Get(contentID); ok && (mediaType == "" || item.MediaType == mediaType) {
		point.Trail = append(point.Trail, StateLocalFound)
		point.Source = SourceLocal
		point.MediaType = item.MediaType
		point.Season = item.LastSeasonWatched
		point.Episode = item.LastEpisodeWatched
		point.Progress = item.Progress
		point.UpdatedAt = item.LastUpdated
		rs.publish(contentID, gen, point)
		return point
	}

	point.Trail = append(point.Trail, StateLocalEmpty)
	point.Source = SourceDefault
	if point.MediaType != models.MediaMovie {
		point.Season, point.Episode = 1, 1
	}
	rs.publish(contentID, gen, point)
	return point
}

func (rs *ResumeService) publish(contentID int64, gen uint64, point *ResumePoint) {
	if !rs.commit(contentID, gen, point) {
		rs.logger.Debugf(providers.TypeSync, "Resume of %d superseded by a newer lookup", contentID)
	}
}

// fromRemote fills point from the newest matching record.
func (rs *ResumeService) fromRemote(point *ResumePoint, records []remote.HistoryRecord) bool {
	var latest *remote.HistoryRecord
	for i := range records {
		r := &records[i]
		if r.ContentID != point.ContentID {
			continue
		}
		if point.MediaType != "" && r.MediaType != "" && models.MediaType(r.MediaType) != point.MediaType {
			continue
		}
		if latest == nil || models.IsLater(r.WatchedDate, r.Season, r.Episode, latest.WatchedDate, latest.Season, latest.Episode) {
			latest = r
		}
	}
	if latest == nil {
		return false
	}
	point.Source = SourceRemote
	if latest.MediaType != "" {
		point.MediaType = models.MediaType(latest.MediaType)
	}
	point.Season = latest.Season
	point.Episode = latest.Episode
	point.Progress = models.NewProgressRecord(latest.DurationWatched, latest.TotalDuration)
	point.UpdatedAt = latest.WatchedDate
	return true
}

func (rs *ResumeService) Current(contentID int64) (*ResumePoint, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	p, ok := rs.current[contentID]
	if !ok {
		return nil, false
	}
	c := *p
	c.Progress = p.Progress.Clone()
	c.Trail = append([]ResumeState(nil), p.Trail...)
	return &c, true
}
