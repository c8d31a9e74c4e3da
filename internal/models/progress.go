package models

import "math"

// ProgressRecord is a playback position. Percentage is derived from
// Watched and Duration and never trusted from input.
type ProgressRecord struct {
	Watched    float64 `json:"watched"`
	Duration   float64 `json:"duration"`
	Percentage float64 `json:"percentage"`
}

// Percentage returns round(watched/duration*100) clamped to [0,100].
// A non-positive or non-finite duration yields 0.
func Percentage(watched, duration float64) float64 {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) || math.IsNaN(watched) {
		return 0
	}
	p := math.Round(watched / duration * 100)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func NewProgressRecord(watched, duration float64) *ProgressRecord {
	r := &ProgressRecord{Watched: watched, Duration: duration}
	r.Normalize()
	return r
}

func (r *ProgressRecord) Normalize() {
	if r == nil {
		return
	}
	r.Percentage = Percentage(r.Watched, r.Duration)
}

func (r *ProgressRecord) Clone() *ProgressRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
