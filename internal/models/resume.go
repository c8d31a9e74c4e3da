package models

import (
	"sort"
	"time"
)

// IsLater reports whether position a is more recent than position b.
// Equal timestamps resolve to the later (season, episode).
func IsLater(aAt time.Time, aSeason, aEpisode int, bAt time.Time, bSeason, bEpisode int) bool {
	if !aAt.Equal(bAt) {
		return aAt.After(bAt)
	}
	if aSeason != bSeason {
		return aSeason > bSeason
	}
	return aEpisode > bEpisode
}

// LatestEpisode returns the most recently updated episode of a show.
func LatestEpisode(show map[int]map[int]*EpisodeEntry) (season, episode int, entry *EpisodeEntry, ok bool) {
	for s, episodes := range show {
		for e, candidate := range episodes {
			if candidate == nil {
				continue
			}
			if !ok || IsLater(candidate.LastUpdated, s, e, entry.LastUpdated, season, episode) {
				season, episode, entry, ok = s, e, candidate, true
			}
		}
	}
	return season, episode, entry, ok
}

// SortNewestFirst orders items by LastUpdated descending; ties go to the
// higher content id so the order is stable across runs.
func SortNewestFirst(items []*HistoryItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].LastUpdated.Equal(items[j].LastUpdated) {
			return items[i].LastUpdated.After(items[j].LastUpdated)
		}
		return items[i].ContentID > items[j].ContentID
	})
}

// LatestItem returns the continue-watching head or nil for an empty slice.
func LatestItem(items []*HistoryItem) *HistoryItem {
	var latest *HistoryItem
	for _, item := range items {
		if item == nil {
			continue
		}
		if latest == nil || item.LastUpdated.After(latest.LastUpdated) ||
			(item.LastUpdated.Equal(latest.LastUpdated) && item.ContentID > latest.ContentID) {
			latest = item
		}
	}
	return latest
}
