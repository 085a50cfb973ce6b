package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/martinmana808/braintube/internal/cache"
	"github.com/martinmana808/braintube/internal/feed"
	"github.com/martinmana808/braintube/internal/youtube"
)

// ErrQuotaBlocked is returned by Sweep when a previous sweep hit the daily
// API quota. The block is day-scoped: it clears when the local calendar day
// changes, on the same clock as the quota counters.
var ErrQuotaBlocked = errors.New("sync blocked: daily quota exhausted")

const (
	dayLayout = "2006-01-02"
	// sweepLockTTL bounds how long a crashed replica can hold the
	// cross-replica sweep lock.
	sweepLockTTL = 5 * time.Minute
)

// Sweeper drives the periodic channel sync. One sweep walks the channel
// list in insertion order, refreshes every visible channel whose cache is
// older than the current hour, and persists each channel's merged cache as
// it goes, so an aborted sweep keeps its partial progress.
type Sweeper struct {
	svc      *Service
	interval time.Duration

	running sync.Mutex

	mu         sync.Mutex
	blockedDay string
}

func NewSweeper(svc *Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{svc: svc, interval: interval}
}

// Run sweeps once immediately and then on every tick until the context is
// cancelled.
func (sw *Sweeper) Run(ctx context.Context) {
	if err := sw.Sweep(ctx); err != nil {
		sw.svc.logger.Printf("sync sweep: %v", err)
	}

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sw.Sweep(ctx); err != nil {
				sw.svc.logger.Printf("sync sweep: %v", err)
			}
		}
	}
}

// Sweep runs one pass over all channels. A sweep already in flight makes
// this a no-op; a day still blocked by quota exhaustion returns
// ErrQuotaBlocked. Per-channel failures are logged and skipped, except the
// quota error, which aborts the sweep and blocks the rest of the day.
func (sw *Sweeper) Sweep(ctx context.Context) error {
	if !sw.running.TryLock() {
		return nil
	}
	defer sw.running.Unlock()

	now := sw.svc.now()
	if sw.Blocked() {
		return ErrQuotaBlocked
	}

	if sw.svc.redis != nil {
		unlock, err := cache.TryLock(ctx, sw.svc.redis, cache.SyncLockKey, sweepLockTTL)
		switch {
		case errors.Is(err, cache.ErrLocked):
			sw.svc.logger.Printf("sync sweep: another replica holds the lock, skipping")
			return nil
		case err != nil:
			// Redis being down must not stop syncing.
			sw.svc.logger.Printf("sync sweep: lock unavailable, continuing: %v", err)
		default:
			defer unlock()
		}
	}

	channels, err := sw.svc.store.ListChannels(ctx)
	if err != nil {
		return err
	}

	synced := 0
	for _, ch := range channels {
		if !ch.Visible || !feed.IsDue(ch, now) {
			continue
		}
		if err := sw.syncChannel(ctx, ch.ID); err != nil {
			if errors.Is(err, youtube.ErrQuotaExceeded) {
				sw.block(now)
				sw.svc.logger.Printf("sync sweep aborted after %d channels: %v", synced, err)
				return err
			}
			sw.svc.logger.Printf("sync channel %s failed, skipping: %v", ch.ID, err)
			continue
		}
		synced++
	}
	if synced > 0 {
		sw.svc.logger.Printf("sync sweep done: %d channels refreshed", synced)
	}
	return nil
}

// syncChannel fetches the latest uploads page, merges it over the cached
// set, and persists the result durably, in memory, and in the mirror.
func (sw *Sweeper) syncChannel(ctx context.Context, channelID string) error {
	ch, err := sw.svc.store.GetChannel(ctx, channelID)
	if err != nil {
		return err
	}

	fresh, err := sw.svc.source.FetchUploads(ctx, ch.UploadsPlaylistID, ch.CachedVideos)
	if err != nil {
		return err
	}

	merged := feed.Merge(ch.CachedVideos, fresh)
	if err := sw.svc.store.UpdateChannelCache(ctx, ch.ID, merged, sw.svc.now()); err != nil {
		return err
	}
	sw.svc.state.ReplaceChannel(ch.ID, merged)
	sw.svc.mirrorFeed(ctx)
	return nil
}

// Blocked reports whether sweeps are blocked for the current day.
func (sw *Sweeper) Blocked() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.blockedDay == sw.svc.now().Format(dayLayout)
}

func (sw *Sweeper) block(now time.Time) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.blockedDay = now.Format(dayLayout)
}
