package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/martinmana808/braintube/internal/cache"
	"github.com/martinmana808/braintube/internal/models"
	"github.com/martinmana808/braintube/internal/store"
)

// ErrSummariesDisabled means no summarizer is configured.
var ErrSummariesDisabled = errors.New("summaries are not configured")

// UpdateVideoState applies a partial annotation update optimistically: the
// in-memory state changes first and the durable upsert follows. A failed
// upsert is logged but never rolls the in-memory change back; the next
// successful write for the video carries the full row anyway.
func (s *Service) UpdateVideoState(ctx context.Context, videoID string, upd models.VideoStateUpdate) models.VideoState {
	st, ok := s.state.VideoState(videoID)
	if !ok {
		st = models.VideoState{VideoID: videoID}
	}
	st.Apply(upd, s.now())
	s.state.SetVideoState(st)

	if err := s.store.UpsertVideoState(ctx, &st); err != nil {
		s.logger.Printf("video state write for %s failed (kept in memory): %v", videoID, err)
	}
	return st
}

// AddVideoByLink fetches one video by ID or URL and adds it to the feed,
// marked saved so it stays reachable even when it is older than the past
// window. When the video's channel is not yet monitored it is auto-added,
// so future uploads from that channel flow in too.
func (s *Service) AddVideoByLink(ctx context.Context, link string) (*models.Video, error) {
	v, err := s.source.FetchVideo(ctx, link)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetChannel(ctx, v.ChannelID); errors.Is(err, store.ErrNotFound) {
		if _, err := s.AddChannel(ctx, v.ChannelID); err != nil {
			s.logger.Printf("auto-add channel %s for video %s failed: %v", v.ChannelID, v.ID, err)
		}
	} else if err != nil {
		return nil, err
	}

	s.state.AddVideo(*v)
	saved := true
	s.UpdateVideoState(ctx, v.ID, models.VideoStateUpdate{Saved: &saved})
	s.mirrorFeed(ctx)
	return v, nil
}

// RequestSummary starts summary generation for a video. With Redis present
// the work is queued for the background worker and queued=true is returned;
// otherwise the summary is generated inline.
func (s *Service) RequestSummary(ctx context.Context, videoID string) (summary string, queued bool, err error) {
	if s.summarizer == nil || !s.summarizer.Enabled() {
		return "", false, ErrSummariesDisabled
	}
	title := s.videoTitle(videoID)

	if s.redis != nil {
		if err := cache.Enqueue(ctx, s.redis, cache.SummaryQueue, cache.SummaryJob{VideoID: videoID, Title: title}); err != nil {
			return "", false, fmt.Errorf("enqueue summary job: %w", err)
		}
		return "", true, nil
	}

	summary, err = s.GenerateSummary(ctx, videoID, title)
	return summary, false, err
}

// GenerateSummary runs the full pipeline for one video: transcript, model,
// then annotation write.
func (s *Service) GenerateSummary(ctx context.Context, videoID, title string) (string, error) {
	if s.summarizer == nil || !s.summarizer.Enabled() {
		return "", ErrSummariesDisabled
	}

	text, err := s.transcripts.Fetch(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("transcript for %s: %w", videoID, err)
	}

	summary, err := s.summarizer.Summarize(ctx, title, text)
	if err != nil {
		return "", fmt.Errorf("summarize %s: %w", videoID, err)
	}

	s.UpdateVideoState(ctx, videoID, models.VideoStateUpdate{Summary: &summary})
	return summary, nil
}

func (s *Service) videoTitle(videoID string) string {
	for _, v := range s.state.Accumulator() {
		if v.ID == videoID {
			return v.Title
		}
	}
	return ""
}
