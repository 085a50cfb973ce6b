package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinmana808/braintube/internal/config"
	"github.com/martinmana808/braintube/internal/feed"
	"github.com/martinmana808/braintube/internal/models"
	"github.com/martinmana808/braintube/internal/quota"
	"github.com/martinmana808/braintube/internal/service"
	"github.com/martinmana808/braintube/internal/store"
	"github.com/martinmana808/braintube/internal/youtube"
)

// memStore is a minimal in-memory store.Store for handler tests.
type memStore struct {
	channels   map[string]*models.Channel
	order      []string
	categories map[int64]*models.Category
	nextCat    int64
	states     map[string]models.VideoState
}

func newMemStore() *memStore {
	return &memStore{
		channels:   make(map[string]*models.Channel),
		categories: make(map[int64]*models.Category),
		states:     make(map[string]models.VideoState),
		nextCat:    1,
	}
}

func (m *memStore) InsertChannel(_ context.Context, ch *models.Channel) error {
	if _, ok := m.channels[ch.ID]; ok {
		return store.ErrDuplicate
	}
	cp := *ch
	m.channels[ch.ID] = &cp
	m.order = append(m.order, ch.ID)
	return nil
}

func (m *memStore) UpdateChannelCache(_ context.Context, id string, videos []models.Video, syncedAt time.Time) error {
	ch, ok := m.channels[id]
	if !ok {
		return store.ErrNotFound
	}
	ch.CachedVideos = videos
	ts := syncedAt
	ch.LastSyncedAt = &ts
	return nil
}

func (m *memStore) SetChannelVisible(_ context.Context, id string, visible bool) error {
	ch, ok := m.channels[id]
	if !ok {
		return store.ErrNotFound
	}
	ch.Visible = visible
	return nil
}

func (m *memStore) SetChannelCategory(_ context.Context, id string, categoryID *int64) error {
	ch, ok := m.channels[id]
	if !ok {
		return store.ErrNotFound
	}
	ch.CategoryID = categoryID
	return nil
}

func (m *memStore) DeleteChannel(_ context.Context, id string) error {
	if _, ok := m.channels[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.channels, id)
	return nil
}

func (m *memStore) ListChannels(_ context.Context) ([]models.Channel, error) {
	out := make([]models.Channel, 0, len(m.order))
	for _, id := range m.order {
		if ch, ok := m.channels[id]; ok {
			out = append(out, *ch)
		}
	}
	return out, nil
}

func (m *memStore) GetChannel(_ context.Context, id string) (*models.Channel, error) {
	ch, ok := m.channels[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *ch
	return &cp, nil
}

func (m *memStore) CreateCategory(_ context.Context, name string) (*models.Category, error) {
	for _, c := range m.categories {
		if strings.EqualFold(c.Name, name) {
			return nil, store.ErrDuplicate
		}
	}
	c := &models.Category{ID: m.nextCat, Name: name}
	m.nextCat++
	m.categories[c.ID] = c
	return c, nil
}

func (m *memStore) DeleteCategory(_ context.Context, id int64) error {
	if _, ok := m.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *memStore) ListCategories(_ context.Context) ([]models.Category, error) {
	out := make([]models.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memStore) UpsertVideoState(_ context.Context, st *models.VideoState) error {
	m.states[st.VideoID] = *st
	return nil
}

func (m *memStore) ListVideoStates(_ context.Context) (map[string]models.VideoState, error) {
	return m.states, nil
}

// stubSource answers channel resolution and video fetches from maps.
type stubSource struct {
	channels map[string]*youtube.ChannelMetadata
	videos   map[string]*models.Video
}

func (s *stubSource) ResolveChannel(_ context.Context, input string) (*youtube.ChannelMetadata, error) {
	if meta, ok := s.channels[input]; ok {
		return meta, nil
	}
	return nil, fmt.Errorf("channel %q: %w", input, youtube.ErrNotFound)
}

func (s *stubSource) FetchUploads(_ context.Context, _ string, _ []models.Video) ([]models.Video, error) {
	return nil, nil
}

func (s *stubSource) FetchVideo(_ context.Context, idOrURL string) (*models.Video, error) {
	if v, ok := s.videos[idOrURL]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, fmt.Errorf("video %q: %w", idOrURL, youtube.ErrNotFound)
}

type testServer struct {
	srv *Server
	st  *memStore
	src *stubSource
	svc *service.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st := newMemStore()
	src := &stubSource{
		channels: make(map[string]*youtube.ChannelMetadata),
		videos:   make(map[string]*models.Video),
	}
	svc := service.New(service.Config{
		Store:  st,
		Source: src,
		State:  feed.NewState(),
		Logger: log.New(io.Discard, "", 0),
	})
	tracker := quota.New()
	sweeper := service.NewSweeper(svc, time.Hour)
	srv := New(svc, sweeper, tracker, &config.Config{ServerPort: "0"})
	return &testServer{srv: srv, st: st, src: src, svc: svc}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	w := httptest.NewRecorder()
	ts.srv.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, w))
}

func TestFeedEmptyPartitionsAreArrays(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/api/feed", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"today":[],"past":[]}`, w.Body.String())
}

func TestFeedInvalidDuration(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/api/feed?duration=medium", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedWithFilters(t *testing.T) {
	ts := newTestServer(t)
	now := time.Now()
	require.NoError(t, ts.st.InsertChannel(context.Background(), &models.Channel{ID: "c1", Visible: true}))
	require.NoError(t, ts.st.InsertChannel(context.Background(), &models.Channel{ID: "c2", Visible: true}))
	ts.svc.State().ReplaceChannel("c1", []models.Video{{ID: "a", ChannelID: "c1", Title: "one", PublishedAt: now.Add(-time.Hour)}})
	ts.svc.State().ReplaceChannel("c2", []models.Video{{ID: "b", ChannelID: "c2", Title: "two", PublishedAt: now.Add(-time.Hour)}})

	w := ts.do(t, http.MethodGet, "/api/feed?solo_channels=c1", "")
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[feed.Projection](t, w)
	// Which partition holds the video depends on the wall clock; only the
	// solo filter result matters here.
	all := append(p.Today, p.Past...)
	require.Len(t, all, 1)
	assert.Equal(t, "a", all[0].ID)
}

func TestAddChannel(t *testing.T) {
	ts := newTestServer(t)
	ts.src.channels["@handle"] = &youtube.ChannelMetadata{ID: "UCx", Name: "X", UploadsPlaylistID: "UUx"}

	w := ts.do(t, http.MethodPost, "/api/channels", `{"input":"@handle"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	ch := decode[models.Channel](t, w)
	assert.Equal(t, "UCx", ch.ID)

	// Adding again conflicts.
	w = ts.do(t, http.MethodPost, "/api/channels", `{"input":"@handle"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAddChannelNotFound(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/channels", `{"input":"@missing"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteChannel(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.st.InsertChannel(context.Background(), &models.Channel{ID: "UCx"}))

	w := ts.do(t, http.MethodDelete, "/api/channels/UCx", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/channels/UCx", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChannelVisible(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.st.InsertChannel(context.Background(), &models.Channel{ID: "UCx", Visible: true}))

	w := ts.do(t, http.MethodPatch, "/api/channels/UCx/visible", `{"visible":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, ts.st.channels["UCx"].Visible)
}

func TestCategoryLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/categories", `{"name":"Tech"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	cat := decode[models.Category](t, w)

	w = ts.do(t, http.MethodPost, "/api/categories", `{"name":"tech"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/api/categories", `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/categories/%d", cat.ID), "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/categories/notanumber", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVideoStatePatch(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPatch, "/api/videos/v1/state", `{"seen":true,"notes":"later"}`)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[models.VideoState](t, w)
	assert.True(t, st.Seen)
	assert.Equal(t, "later", st.Notes)
	assert.Equal(t, "v1", st.VideoID)

	// Persisted durably too.
	assert.True(t, ts.st.states["v1"].Seen)
}

func TestAddVideoByLink(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.st.InsertChannel(context.Background(), &models.Channel{ID: "UC1", Visible: true}))
	ts.src.videos["v1"] = &models.Video{ID: "v1", ChannelID: "UC1", Title: "linked"}

	w := ts.do(t, http.MethodPost, "/api/videos", `{"link":"v1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	v := decode[models.Video](t, w)
	assert.Equal(t, "v1", v.ID)
}

func TestVideoSummaryUnconfigured(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/videos/v1/summary", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestQuotaEndpoint(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/api/quota", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Contains(t, body, "youtube")
	assert.Contains(t, body, "groq")
	assert.Equal(t, false, body["sync_blocked"])
}

func TestSyncAccepted(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/sync", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
}
