package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"watchsync/internal/models"
	"watchsync/internal/player"
	"watchsync/internal/remote"

	json "github.com/goccy/go-json"
)

const maxRequestBodySize = 1 << 20 // 1 MB

var errBadID = errors.New("id must be a positive integer")

func writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, gson)
}

func writeRaw(w http.ResponseWriter, status int, gson []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

// writeError maps domain errors to status codes. Anything unknown is a
// failure of an upstream API.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var httpErr *remote.HTTPError
	switch {
	case errors.Is(err, errBadID),
		errors.Is(err, models.ErrInvalidContentID),
		errors.Is(err, models.ErrInvalidMediaType),
		errors.Is(err, models.ErrInvalidEpisode),
		errors.Is(err, models.ErrMediaTypeChanged),
		errors.Is(err, player.ErrInvalidMessage):
		status = http.StatusBadRequest
	case errors.Is(err, player.ErrOriginNotAllowed):
		status = http.StatusForbidden
	case errors.Is(err, remote.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, remote.ErrMetadataDisabled):
		status = http.StatusServiceUnavailable
	case errors.As(err, &httpErr) && httpErr.Status == http.StatusUnauthorized:
		status = http.StatusUnauthorized
	case errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound:
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func queryID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	return true
}
