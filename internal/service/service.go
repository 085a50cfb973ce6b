// Package service orchestrates the curator: channel lifecycle, the hourly
// sync sweep, video annotations, and summary generation. It owns the
// optimistic in-memory feed state and keeps the durable store and the Redis
// mirror trailing behind it.
package service

import (
	"context"
	"log"
	"time"

	"github.com/martinmana808/braintube/internal/cache"
	"github.com/martinmana808/braintube/internal/feed"
	"github.com/martinmana808/braintube/internal/models"
	"github.com/martinmana808/braintube/internal/store"
	"github.com/martinmana808/braintube/internal/youtube"
)

// Source is the remote video platform client.
type Source interface {
	ResolveChannel(ctx context.Context, input string) (*youtube.ChannelMetadata, error)
	FetchUploads(ctx context.Context, playlistID string, existing []models.Video) ([]models.Video, error)
	FetchVideo(ctx context.Context, idOrURL string) (*models.Video, error)
}

// Transcripts pulls transcript text for a video.
type Transcripts interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

// Summarizer turns a transcript into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, title, transcript string) (string, error)
	Enabled() bool
}

// Config wires a Service. Store, Source, and State are required; Redis,
// Summarizer, and Transcripts are optional and disable their features when
// absent.
type Config struct {
	Store       store.Store
	Source      Source
	State       *feed.State
	Redis       *cache.Redis
	Summarizer  Summarizer
	Transcripts Transcripts
	Logger      *log.Logger
	Now         func() time.Time
}

type Service struct {
	store       store.Store
	source      Source
	state       *feed.State
	redis       *cache.Redis
	summarizer  Summarizer
	transcripts Transcripts
	logger      *log.Logger
	now         func() time.Time
}

func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:       cfg.Store,
		source:      cfg.Source,
		state:       cfg.State,
		redis:       cfg.Redis,
		summarizer:  cfg.Summarizer,
		transcripts: cfg.Transcripts,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
}

// State exposes the in-memory feed state for hydration at startup.
func (s *Service) State() *feed.State { return s.state }

// mirrorFeed pushes the current accumulator to the Redis mirror. Mirror
// failures are logged, never fatal: the durable store already has the data.
func (s *Service) mirrorFeed(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := cache.SaveFeed(ctx, s.redis, s.state.Accumulator()); err != nil {
		s.logger.Printf("feed mirror write failed: %v", err)
	}
}

// Feed lists channels, drops videos belonging to hidden channels, and
// projects the remainder through the client's filters.
func (s *Service) Feed(ctx context.Context, f feed.Filters) (feed.Projection, error) {
	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return feed.Projection{}, err
	}

	hidden := make(map[string]struct{})
	for _, ch := range channels {
		if !ch.Visible {
			hidden[ch.ID] = struct{}{}
		}
	}

	all := s.state.Accumulator()
	videos := all[:0:0]
	for _, v := range all {
		if _, ok := hidden[v.ChannelID]; ok {
			continue
		}
		videos = append(videos, v)
	}

	return feed.Project(videos, s.state.States(), channels, f, s.now()), nil
}
