package controllers

import (
	"fmt"
	"net/http"
	"time"
	"watchsync/internal/remote"
	"watchsync/internal/services"
	"watchsync/internal/syncer/interfaces"
)

type HealthController struct {
	progress  services.ProgressServiceInterface
	scheduler interfaces.SchedulerInterface
	session   remote.SessionInterface
	startTime time.Time
}

type healthResponse struct {
	Status         string  `json:"status"`
	Uptime         string  `json:"uptime"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	HistoryEntries int     `json:"history_entries"`
	ActiveSessions int     `json:"active_sessions"`
	Authenticated  bool    `json:"authenticated"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		Uptime:         formatDuration(uptime),
		UptimeSeconds:  uptime.Seconds(),
		HistoryEntries: hc.progress.Count(),
		ActiveSessions: len(hc.scheduler.ActiveSessions()),
		Authenticated:  hc.session.Authenticated(),
	})
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(progress services.ProgressServiceInterface, scheduler interfaces.SchedulerInterface, session remote.SessionInterface) *HealthController {
	return &HealthController{
		progress:  progress,
		scheduler: scheduler,
		session:   session,
		startTime: time.Now(),
	}
}
