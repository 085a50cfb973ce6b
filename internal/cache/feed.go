package cache

import (
	"context"
	"time"

	"github.com/martinmana808/braintube/internal/models"
)

// Keys for the fast-path persistence slots. The feed mirror and quota slot
// are written without TTLs; both carry their own validity rules (the feed is
// rebuilt by the next sweep, the quota payload is date-stamped).
const (
	FeedKey      = keyPrefix + "feed"
	QuotaKey     = keyPrefix + "quota"
	SyncLockKey  = keyPrefix + "sync:lock"
	SummaryQueue = keyPrefix + "jobs:summaries"
)

// QuotaPayload is the persisted form of the quota counters. Date is the
// local calendar day (YYYY-MM-DD) the counters belong to.
type QuotaPayload struct {
	Date    string `json:"date"`
	YouTube int    `json:"youtube"`
	Groq    int    `json:"groq"`
}

// SaveFeed mirrors the global video accumulator so the next process start
// can hydrate it without touching the durable store.
func SaveFeed(ctx context.Context, r *Redis, videos []models.Video) error {
	return Set(ctx, r, FeedKey, videos, 0)
}

// LoadFeed returns the mirrored accumulator, or (nil, false) when the slot
// is empty.
func LoadFeed(ctx context.Context, r *Redis) ([]models.Video, bool) {
	videos, err := Get[[]models.Video](ctx, r, FeedKey)
	if err != nil {
		return nil, false
	}
	return videos, true
}

// SaveQuota persists the day-stamped quota counters.
func SaveQuota(ctx context.Context, r *Redis, p QuotaPayload) error {
	return Set(ctx, r, QuotaKey, p, 48*time.Hour)
}

// LoadQuota returns the persisted quota counters, or false when absent.
func LoadQuota(ctx context.Context, r *Redis) (QuotaPayload, bool) {
	p, err := Get[QuotaPayload](ctx, r, QuotaKey)
	if err != nil {
		return QuotaPayload{}, false
	}
	return p, true
}
