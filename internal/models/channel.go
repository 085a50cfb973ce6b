package models

import "time"

// Channel is a YouTube channel the user monitors. The provider-assigned
// channel ID is the primary key. CachedVideos holds the last merged item set
// for the channel; LastSyncedAt is nil until the first successful sync.
type Channel struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Thumbnail         string     `json:"thumbnail,omitempty"`
	UploadsPlaylistID string     `json:"uploads_playlist_id"`
	Visible           bool       `json:"visible"`
	CategoryID        *int64     `json:"category_id,omitempty"`
	CachedVideos      []Video    `json:"cached_videos"`
	LastSyncedAt      *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
}
