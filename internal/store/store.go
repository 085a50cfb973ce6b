package store

import (
	"context"
	"errors"
	"time"

	"github.com/martinmana808/braintube/internal/models"
)

// ErrNotFound is returned when a channel, category, or video state row does
// not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with an existing row
// (channel already added, category name taken).
var ErrDuplicate = errors.New("already exists")

// Store defines persistence for channels, categories, and video states.
type Store interface {
	// InsertChannel creates a new channel row. Returns ErrDuplicate when the
	// channel ID already exists.
	InsertChannel(ctx context.Context, ch *models.Channel) error
	// UpdateChannelCache persists a channel's merged video cache and its new
	// last-synced timestamp.
	UpdateChannelCache(ctx context.Context, channelID string, videos []models.Video, syncedAt time.Time) error
	// SetChannelVisible toggles the sync-visibility flag.
	SetChannelVisible(ctx context.Context, channelID string, visible bool) error
	// SetChannelCategory assigns a channel to a category; nil clears it.
	SetChannelCategory(ctx context.Context, channelID string, categoryID *int64) error
	// DeleteChannel removes a channel and its cached video set.
	DeleteChannel(ctx context.Context, channelID string) error
	// ListChannels returns all channels in insertion order.
	ListChannels(ctx context.Context) ([]models.Channel, error)
	// GetChannel returns a single channel by ID.
	GetChannel(ctx context.Context, channelID string) (*models.Channel, error)

	// CreateCategory inserts a category; names are unique case-insensitively.
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	// DeleteCategory removes a category and nulls the reference on member
	// channels.
	DeleteCategory(ctx context.Context, categoryID int64) error
	// ListCategories returns all categories ordered by name.
	ListCategories(ctx context.Context) ([]models.Category, error)

	// UpsertVideoState writes the full annotation row for a video, creating
	// it when absent.
	UpsertVideoState(ctx context.Context, st *models.VideoState) error
	// ListVideoStates returns every annotation row keyed by video ID.
	ListVideoStates(ctx context.Context) (map[string]models.VideoState, error)
}
