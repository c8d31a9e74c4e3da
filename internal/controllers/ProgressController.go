package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
	"watchsync/internal/models"
	"watchsync/internal/providers"
	"watchsync/internal/services"
	"watchsync/internal/structures"
	"watchsync/internal/syncer"
	"watchsync/internal/syncer/interfaces"
)

// progressRequest is the body of a local playback tick.
type progressRequest struct {
	ContentID    int64    `json:"id"`
	MediaType    string   `json:"type"`
	Title        string   `json:"title"`
	PosterPath   string   `json:"poster_path"`
	BackdropPath string   `json:"backdrop_path"`
	Season       int      `json:"season"`
	Episode      int      `json:"episode"`
	EpisodeTitle string   `json:"episode_title"`
	Watched      *float64 `json:"watched"`
	Duration     *float64 `json:"duration"`
	// LastUpdated is unix milliseconds; zero means now.
	LastUpdated int64 `json:"last_updated"`
}

func (p progressRequest) update() models.ProgressUpdate {
	u := models.ProgressUpdate{
		ContentID:    p.ContentID,
		MediaType:    models.MediaType(p.MediaType),
		Title:        p.Title,
		PosterPath:   p.PosterPath,
		BackdropPath: p.BackdropPath,
		Season:       p.Season,
		Episode:      p.Episode,
		EpisodeTitle: p.EpisodeTitle,
		Watched:      p.Watched,
		Duration:     p.Duration,
	}
	if p.LastUpdated > 0 {
		u.At = time.UnixMilli(p.LastUpdated).UTC()
	}
	return u
}

type ProgressController struct {
	logger    providers.Logger
	progress  services.ProgressServiceInterface
	resume    services.ResumeServiceInterface
	scheduler interfaces.SchedulerInterface
	timeout   time.Duration
}

func NewProgressController(
	conf *structures.Config,
	logger providers.Logger,
	progress services.ProgressServiceInterface,
	resume services.ResumeServiceInterface,
	scheduler interfaces.SchedulerInterface,
) *ProgressController {
	timeout := conf.Sync.PushTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ProgressController{
		logger:    logger,
		progress:  progress,
		resume:    resume,
		scheduler: scheduler,
		timeout:   timeout,
	}
}

func (pc *ProgressController) SaveProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, err := pc.progress.Apply(r.Context(), req.update())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (pc *ProgressController) GetProgress(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	item, ok := pc.progress.Get(id)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (pc *ProgressController) DeleteProgress(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	removed, err := pc.progress.Remove(id)
	if err != nil {
		pc.logger.Errorf(providers.TypeApp, "Removing %d not persisted: %s", id, err)
	}
	if !removed {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (pc *ProgressController) History(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, pc.progress.List())
}

func (pc *ProgressController) Resume(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	mediaType := models.MediaType(r.URL.Query().Get("type"))
	if mediaType != "" && !mediaType.Valid() {
		writeError(w, models.ErrInvalidMediaType)
		return
	}
	writeJSON(w, http.StatusOK, pc.resume.Resolve(r.Context(), id, mediaType))
}

// Continue answers the head of the continue-watching row.
func (pc *ProgressController) Continue(w http.ResponseWriter, _ *http.Request) {
	item, ok := pc.progress.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (pc *ProgressController) PlayerMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	items, err := pc.progress.ApplyPlayerMessage(r.Context(), r.Header.Get("Origin"), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, items)
}

func (pc *ProgressController) StartSession(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := pc.scheduler.StartSession(id); err != nil {
		if errors.Is(err, syncer.ErrNotStarted) {
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EndSession pushes the final state of the title. A push that does not
// settle in time keeps running and the call answers 202.
func (pc *ProgressController) EndSession(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), pc.timeout)
	defer cancel()
	if err := pc.scheduler.EndSession(ctx, id); err != nil {
		pc.logger.Warnf(providers.TypeSync, "Session %d ended before push settled: %s", id, err)
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (pc *ProgressController) Sessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]int64{"active": pc.scheduler.ActiveSessions()})
}
