package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/martinmana808/braintube/internal/cache"
	"github.com/martinmana808/braintube/internal/models"
	"github.com/redis/go-redis/v9"
)

// Cache TTLs for different entity types. Channel lists change on every
// sweep, so they get the shortest window.
const (
	ttlChannels   = 1 * time.Minute
	ttlChannel    = 5 * time.Minute
	ttlCategories = 5 * time.Minute
	ttlStates     = 1 * time.Minute
)

// CachedStore wraps a Store with a Redis caching layer.
// Read-heavy operations are served from cache when possible;
// write operations invalidate the relevant cache keys.
type CachedStore struct {
	inner Store
	cache *cache.Redis
}

// NewCachedStore creates a CachedStore that wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis) *CachedStore {
	return &CachedStore{inner: inner, cache: c}
}

// --- cached read operations ---

func (c *CachedStore) ListChannels(ctx context.Context) ([]models.Channel, error) {
	const key = "channels:all"
	if v, err := cache.Get[[]models.Channel](ctx, c.cache, key); err == nil {
		return v, nil
	}
	channels, err := c.inner.ListChannels(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, channels, ttlChannels); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return channels, nil
}

func (c *CachedStore) GetChannel(ctx context.Context, channelID string) (*models.Channel, error) {
	key := fmt.Sprintf("channel:%s", channelID)
	if v, err := cache.Get[models.Channel](ctx, c.cache, key); err == nil {
		return &v, nil
	}
	ch, err := c.inner.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, ch, ttlChannel); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return ch, nil
}

func (c *CachedStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	const key = "categories:all"
	if v, err := cache.Get[[]models.Category](ctx, c.cache, key); err == nil {
		return v, nil
	}
	categories, err := c.inner.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, categories, ttlCategories); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return categories, nil
}

func (c *CachedStore) ListVideoStates(ctx context.Context) (map[string]models.VideoState, error) {
	const key = "states:all"
	if v, err := cache.Get[map[string]models.VideoState](ctx, c.cache, key); err == nil {
		return v, nil
	}
	states, err := c.inner.ListVideoStates(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, key, states, ttlStates); err != nil {
		log.Printf("cache: set %s: %v", key, err)
	}
	return states, nil
}

// --- write operations with cache invalidation ---

func (c *CachedStore) InsertChannel(ctx context.Context, ch *models.Channel) error {
	if err := c.inner.InsertChannel(ctx, ch); err != nil {
		return err
	}
	c.invalidate(ctx, "channels:all")
	return nil
}

func (c *CachedStore) UpdateChannelCache(ctx context.Context, channelID string, videos []models.Video, syncedAt time.Time) error {
	if err := c.inner.UpdateChannelCache(ctx, channelID, videos, syncedAt); err != nil {
		return err
	}
	c.invalidate(ctx, fmt.Sprintf("channel:%s", channelID), "channels:all")
	return nil
}

func (c *CachedStore) SetChannelVisible(ctx context.Context, channelID string, visible bool) error {
	if err := c.inner.SetChannelVisible(ctx, channelID, visible); err != nil {
		return err
	}
	c.invalidate(ctx, fmt.Sprintf("channel:%s", channelID), "channels:all")
	return nil
}

func (c *CachedStore) SetChannelCategory(ctx context.Context, channelID string, categoryID *int64) error {
	if err := c.inner.SetChannelCategory(ctx, channelID, categoryID); err != nil {
		return err
	}
	c.invalidate(ctx, fmt.Sprintf("channel:%s", channelID), "channels:all")
	return nil
}

func (c *CachedStore) DeleteChannel(ctx context.Context, channelID string) error {
	if err := c.inner.DeleteChannel(ctx, channelID); err != nil {
		return err
	}
	c.invalidate(ctx, fmt.Sprintf("channel:%s", channelID), "channels:all")
	return nil
}

func (c *CachedStore) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	cat, err := c.inner.CreateCategory(ctx, name)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, "categories:all")
	return cat, nil
}

func (c *CachedStore) DeleteCategory(ctx context.Context, categoryID int64) error {
	if err := c.inner.DeleteCategory(ctx, categoryID); err != nil {
		return err
	}
	// Member channels lose their category reference as well.
	c.invalidate(ctx, "categories:all", "channels:all")
	c.invalidatePattern(ctx, "channel:*")
	return nil
}

func (c *CachedStore) UpsertVideoState(ctx context.Context, st *models.VideoState) error {
	if err := c.inner.UpsertVideoState(ctx, st); err != nil {
		return err
	}
	c.invalidate(ctx, "states:all")
	return nil
}

// --- helpers ---

// invalidate deletes exact cache keys, logging any errors.
func (c *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := cache.Del(ctx, c.cache, keys...); err != nil && err != redis.Nil {
		log.Printf("cache: del %v: %v", keys, err)
	}
}

// invalidatePattern deletes all keys matching the given glob patterns.
func (c *CachedStore) invalidatePattern(ctx context.Context, patterns ...string) {
	for _, p := range patterns {
		if err := cache.DelPattern(ctx, c.cache, p); err != nil {
			log.Printf("cache: del pattern %s: %v", p, err)
		}
	}
}
