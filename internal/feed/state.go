package feed

import (
	"sort"
	"sync"

	"github.com/martinmana808/braintube/internal/models"
)

// State is the in-memory half of the curator: the global video accumulator
// (the union of every channel's cache, deduplicated by video ID) and the
// per-video annotation map. It is the read path for the feed projection and
// is updated optimistically ahead of durable writes.
type State struct {
	mu        sync.RWMutex
	byChannel map[string][]models.Video
	states    map[string]models.VideoState
	// extras holds videos added by link that belong to no monitored
	// channel's cache.
	extras map[string]models.Video
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		byChannel: make(map[string][]models.Video),
		states:    make(map[string]models.VideoState),
		extras:    make(map[string]models.Video),
	}
}

// HydrateChannels replaces the whole accumulator with the given channels'
// caches, used at startup and after a durable-store reload.
func (s *State) HydrateChannels(channels []models.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byChannel = make(map[string][]models.Video, len(channels))
	for _, ch := range channels {
		if len(ch.CachedVideos) > 0 {
			s.byChannel[ch.ID] = append([]models.Video(nil), ch.CachedVideos...)
		}
	}
}

// HydrateStates replaces the annotation map.
func (s *State) HydrateStates(states map[string]models.VideoState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[string]models.VideoState, len(states))
	for id, st := range states {
		s.states[id] = st
	}
}

// ReplaceChannel swaps one channel's contribution to the accumulator for
// its newly merged video set.
func (s *State) ReplaceChannel(channelID string, videos []models.Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byChannel[channelID] = append([]models.Video(nil), videos...)
}

// RemoveChannel drops a channel's contribution (channel removed by the
// user).
func (s *State) RemoveChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byChannel, channelID)
}

// AddVideo registers a single video added by link so it appears in the
// accumulator even before its channel's next sync covers it.
func (s *State) AddVideo(v models.Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extras[v.ID] = v
}

// SetVideoState stores an annotation optimistically.
func (s *State) SetVideoState(st models.VideoState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.VideoID] = st
}

// VideoState returns the annotation for a video, if any.
func (s *State) VideoState(videoID string) (models.VideoState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[videoID]
	return st, ok
}

// States returns a copy of the annotation map.
func (s *State) States() map[string]models.VideoState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.VideoState, len(s.states))
	for id, st := range s.states {
		out[id] = st
	}
	return out
}

// Accumulator returns every known video exactly once, sorted by descending
// publication time. A video cached by a channel wins over an extras entry
// with the same ID.
func (s *State) Accumulator() []models.Video {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []models.Video
	for _, videos := range s.byChannel {
		for _, v := range videos {
			if _, ok := seen[v.ID]; ok {
				continue
			}
			seen[v.ID] = struct{}{}
			out = append(out, v)
		}
	}
	for id, v := range s.extras {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out
}

// HydrateAccumulator seeds the extras set from a mirrored accumulator so
// videos survive a restart even before the channel caches are reloaded.
func (s *State) HydrateAccumulator(videos []models.Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range videos {
		s.extras[v.ID] = v
	}
}
