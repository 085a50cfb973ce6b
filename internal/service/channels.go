package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/martinmana808/braintube/internal/feed"
	"github.com/martinmana808/braintube/internal/models"
	"github.com/martinmana808/braintube/internal/store"
)

// AddChannel resolves whatever the user pasted into a channel, registers
// it, and seeds its cache with an immediate fetch. The seed fetch is best
// effort: a failure leaves the channel registered with an empty cache for
// the next sweep to fill.
func (s *Service) AddChannel(ctx context.Context, input string) (*models.Channel, error) {
	meta, err := s.source.ResolveChannel(ctx, input)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetChannel(ctx, meta.ID); err == nil {
		return nil, fmt.Errorf("channel %s: %w", meta.ID, store.ErrDuplicate)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	ch := &models.Channel{
		ID:                meta.ID,
		Name:              meta.Name,
		Thumbnail:         meta.Thumbnail,
		UploadsPlaylistID: meta.UploadsPlaylistID,
		Visible:           true,
		CachedVideos:      []models.Video{},
	}
	if err := s.store.InsertChannel(ctx, ch); err != nil {
		return nil, err
	}

	videos, err := s.source.FetchUploads(ctx, ch.UploadsPlaylistID, nil)
	if err != nil {
		s.logger.Printf("seed fetch for channel %s failed: %v", ch.ID, err)
		return ch, nil
	}
	syncedAt := s.now()
	if err := s.store.UpdateChannelCache(ctx, ch.ID, videos, syncedAt); err != nil {
		s.logger.Printf("seed cache write for channel %s failed: %v", ch.ID, err)
		return ch, nil
	}
	ch.CachedVideos = videos
	ch.LastSyncedAt = &syncedAt
	s.state.ReplaceChannel(ch.ID, videos)
	s.mirrorFeed(ctx)
	return ch, nil
}

// RemoveChannel deletes a channel, its cached videos, and its accumulator
// contribution.
func (s *Service) RemoveChannel(ctx context.Context, channelID string) error {
	if err := s.store.DeleteChannel(ctx, channelID); err != nil {
		return err
	}
	s.state.RemoveChannel(channelID)
	s.mirrorFeed(ctx)
	return nil
}

// SetChannelVisible toggles whether a channel is swept and shown.
func (s *Service) SetChannelVisible(ctx context.Context, channelID string, visible bool) error {
	return s.store.SetChannelVisible(ctx, channelID, visible)
}

// SetChannelCategory assigns a channel to a category; nil clears it.
func (s *Service) SetChannelCategory(ctx context.Context, channelID string, categoryID *int64) error {
	if categoryID != nil && *categoryID == feed.SavedCategoryID {
		return fmt.Errorf("category %d is reserved: %w", *categoryID, store.ErrNotFound)
	}
	return s.store.SetChannelCategory(ctx, channelID, categoryID)
}

// Channels lists all registered channels in insertion order.
func (s *Service) Channels(ctx context.Context) ([]models.Channel, error) {
	return s.store.ListChannels(ctx)
}
