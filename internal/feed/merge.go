// Package feed holds the pure core of the curator: the cache-merge
// algorithm, the per-channel staleness predicate, the in-memory video
// accumulator, and the view projection. Nothing in this package performs
// I/O.
package feed

import (
	"time"

	"github.com/martinmana808/braintube/internal/models"
)

// Merge unions a channel's previously cached videos with a freshly fetched
// page. The fresh page is authoritative for the range it covers: it comes
// first and supersedes any cached item with the same ID. Cached items
// outside the page's range are preserved verbatim, which bounds each sync
// cycle to one remote page regardless of cache size.
//
// The result contains no duplicate IDs and is a superset of fresh.
func Merge(existing, fresh []models.Video) []models.Video {
	freshIDs := make(map[string]struct{}, len(fresh))
	for _, v := range fresh {
		freshIDs[v.ID] = struct{}{}
	}
	merged := make([]models.Video, 0, len(fresh)+len(existing))
	merged = append(merged, fresh...)
	for _, v := range existing {
		if _, ok := freshIDs[v.ID]; !ok {
			merged = append(merged, v)
		}
	}
	return merged
}

// StartOfHour zeroes minutes, seconds, and sub-second precision of t in its
// own location. This is the sync-eligibility bucket.
func StartOfHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// IsDue reports whether a channel should be synced at now: never synced,
// empty cache, or last synced before the start of the current clock hour.
// The result is stable for any two now values within the same hour.
func IsDue(ch models.Channel, now time.Time) bool {
	if ch.LastSyncedAt == nil {
		return true
	}
	if len(ch.CachedVideos) == 0 {
		return true
	}
	return ch.LastSyncedAt.Before(StartOfHour(now))
}
