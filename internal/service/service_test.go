package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/martinmana808/braintube/internal/feed"
	"github.com/martinmana808/braintube/internal/models"
	"github.com/martinmana808/braintube/internal/store"
	"github.com/martinmana808/braintube/internal/youtube"
)

// fakeStore is an in-memory store.Store preserving channel insertion order.
type fakeStore struct {
	mu         sync.Mutex
	order      []string
	channels   map[string]*models.Channel
	categories map[int64]*models.Category
	nextCat    int64
	states     map[string]models.VideoState

	upsertErr error
	updates   []string // channel IDs in UpdateChannelCache call order
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		channels:   make(map[string]*models.Channel),
		categories: make(map[int64]*models.Category),
		states:     make(map[string]models.VideoState),
		nextCat:    1,
	}
}

func (f *fakeStore) InsertChannel(_ context.Context, ch *models.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[ch.ID]; ok {
		return store.ErrDuplicate
	}
	cp := *ch
	f.channels[ch.ID] = &cp
	f.order = append(f.order, ch.ID)
	return nil
}

func (f *fakeStore) UpdateChannelCache(_ context.Context, channelID string, videos []models.Video, syncedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return store.ErrNotFound
	}
	ch.CachedVideos = append([]models.Video(nil), videos...)
	ts := syncedAt
	ch.LastSyncedAt = &ts
	f.updates = append(f.updates, channelID)
	return nil
}

func (f *fakeStore) SetChannelVisible(_ context.Context, channelID string, visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return store.ErrNotFound
	}
	ch.Visible = visible
	return nil
}

func (f *fakeStore) SetChannelCategory(_ context.Context, channelID string, categoryID *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return store.ErrNotFound
	}
	ch.CategoryID = categoryID
	return nil
}

func (f *fakeStore) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		return store.ErrNotFound
	}
	delete(f.channels, channelID)
	for i, id := range f.order {
		if id == channelID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeStore) ListChannels(_ context.Context) ([]models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Channel, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.channels[id])
	}
	return out, nil
}

func (f *fakeStore) GetChannel(_ context.Context, channelID string) (*models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeStore) CreateCategory(_ context.Context, name string) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.Name == name {
			return nil, store.ErrDuplicate
		}
	}
	c := &models.Category{ID: f.nextCat, Name: name}
	f.nextCat++
	f.categories[c.ID] = c
	return c, nil
}

func (f *fakeStore) DeleteCategory(_ context.Context, categoryID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[categoryID]; !ok {
		return store.ErrNotFound
	}
	delete(f.categories, categoryID)
	for _, ch := range f.channels {
		if ch.CategoryID != nil && *ch.CategoryID == categoryID {
			ch.CategoryID = nil
		}
	}
	return nil
}

func (f *fakeStore) ListCategories(_ context.Context) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Category, 0, len(f.categories))
	for _, c := range f.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeStore) UpsertVideoState(_ context.Context, st *models.VideoState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.states[st.VideoID] = *st
	return nil
}

func (f *fakeStore) ListVideoStates(_ context.Context) (map[string]models.VideoState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]models.VideoState, len(f.states))
	for id, st := range f.states {
		out[id] = st
	}
	return out, nil
}

// fakeSource serves canned uploads per playlist and canned videos per ID,
// with per-playlist error injection.
type fakeSource struct {
	mu       sync.Mutex
	channels map[string]*youtube.ChannelMetadata // by resolve input
	uploads  map[string][]models.Video           // by playlist ID
	videos   map[string]*models.Video            // by video ID
	errs     map[string]error                    // by playlist ID
	fetched  []string                            // playlist IDs in call order

	// When set, every FetchUploads announces itself on fetchStarted and
	// then parks until fetchGate is closed.
	fetchStarted chan string
	fetchGate    chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		channels: make(map[string]*youtube.ChannelMetadata),
		uploads:  make(map[string][]models.Video),
		videos:   make(map[string]*models.Video),
		errs:     make(map[string]error),
	}
}

func (f *fakeSource) ResolveChannel(_ context.Context, input string) (*youtube.ChannelMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta, ok := f.channels[input]
	if !ok {
		return nil, fmt.Errorf("channel %q: %w", input, youtube.ErrNotFound)
	}
	return meta, nil
}

func (f *fakeSource) FetchUploads(_ context.Context, playlistID string, _ []models.Video) ([]models.Video, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, playlistID)
	err := f.errs[playlistID]
	out := append([]models.Video(nil), f.uploads[playlistID]...)
	started, gate := f.fetchStarted, f.fetchGate
	f.mu.Unlock()

	if started != nil {
		started <- playlistID
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

func (f *fakeSource) FetchVideo(_ context.Context, idOrURL string) (*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, err := youtube.ExtractVideoID(idOrURL)
	if err != nil {
		return nil, err
	}
	v, ok := f.videos[id]
	if !ok {
		return nil, fmt.Errorf("video %q: %w", id, youtube.ErrNotFound)
	}
	cp := *v
	return &cp, nil
}

// fakeSummarizer returns a fixed summary or error.
type fakeSummarizer struct {
	summary string
	err     error
	calls   int
}

func (f *fakeSummarizer) Summarize(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func (f *fakeSummarizer) Enabled() bool { return true }

type fakeTranscripts struct {
	text string
	err  error
}

func (f *fakeTranscripts) Fetch(_ context.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

var errTransient = errors.New("upstream hiccup")

// testEnv bundles a Service wired to fakes with a controllable clock.
type testEnv struct {
	svc    *Service
	st     *fakeStore
	src    *fakeSource
	now    time.Time
	nowMu  sync.Mutex
	summar *fakeSummarizer
	trans  *fakeTranscripts
}

func newTestEnv() *testEnv {
	env := &testEnv{
		st:     newFakeStore(),
		src:    newFakeSource(),
		now:    time.Date(2025, 6, 10, 10, 30, 0, 0, time.Local),
		summar: &fakeSummarizer{summary: "a summary"},
		trans:  &fakeTranscripts{text: "a transcript"},
	}
	env.svc = New(Config{
		Store:       env.st,
		Source:      env.src,
		State:       feed.NewState(),
		Summarizer:  env.summar,
		Transcripts: env.trans,
		Logger:      log.New(io.Discard, "", 0),
		Now: func() time.Time {
			env.nowMu.Lock()
			defer env.nowMu.Unlock()
			return env.now
		},
	})
	return env
}

func (e *testEnv) setNow(t time.Time) {
	e.nowMu.Lock()
	e.now = t
	e.nowMu.Unlock()
}

// seedChannel registers a channel directly in the fake store.
func (e *testEnv) seedChannel(id string, visible bool, lastSynced *time.Time, cached []models.Video) {
	e.st.channels[id] = &models.Channel{
		ID:                id,
		Name:              "channel " + id,
		UploadsPlaylistID: "UU" + id,
		Visible:           visible,
		CachedVideos:      cached,
		LastSyncedAt:      lastSynced,
	}
	e.st.order = append(e.st.order, id)
}

func vid(id string, published time.Time) models.Video {
	return models.Video{
		ID:          id,
		Title:       "video " + id,
		ChannelID:   "chan",
		PublishedAt: published,
	}
}

func ids(videos []models.Video) []string {
	out := make([]string, len(videos))
	for i, v := range videos {
		out[i] = v.ID
	}
	return out
}
