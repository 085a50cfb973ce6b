package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/martinmana808/braintube/api"
	"github.com/martinmana808/braintube/internal/config"
	"github.com/martinmana808/braintube/internal/feed"
	"github.com/martinmana808/braintube/internal/models"
	"github.com/martinmana808/braintube/internal/quota"
	"github.com/martinmana808/braintube/internal/service"
	"github.com/martinmana808/braintube/internal/store"
	"github.com/martinmana808/braintube/internal/youtube"
)

// Server holds dependencies for the HTTP API.
type Server struct {
	svc     *service.Service
	sweeper *service.Sweeper
	tracker *quota.Tracker
	cfg     *config.Config
	mux     *http.ServeMux
}

// New creates a Server and registers routes.
func New(svc *service.Service, sweeper *service.Sweeper, tracker *quota.Tracker, cfg *config.Config) *Server {
	srv := &Server{svc: svc, sweeper: sweeper, tracker: tracker, cfg: cfg, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Feed
	s.mux.HandleFunc("GET /api/feed", s.handleFeed)

	// Channels
	s.mux.HandleFunc("GET /api/channels", s.handleListChannels)
	s.mux.HandleFunc("POST /api/channels", s.handleAddChannel)
	s.mux.HandleFunc("DELETE /api/channels/{id}", s.handleDeleteChannel)
	s.mux.HandleFunc("PATCH /api/channels/{id}/visible", s.handleChannelVisible)
	s.mux.HandleFunc("PATCH /api/channels/{id}/category", s.handleChannelCategory)

	// Categories
	s.mux.HandleFunc("GET /api/categories", s.handleListCategories)
	s.mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	s.mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	// Videos
	s.mux.HandleFunc("POST /api/videos", s.handleAddVideo)
	s.mux.HandleFunc("PATCH /api/videos/{id}/state", s.handleVideoState)
	s.mux.HandleFunc("POST /api/videos/{id}/summary", s.handleVideoSummary)

	// Quota and sync
	s.mux.HandleFunc("GET /api/quota", s.handleQuota)
	s.mux.HandleFunc("POST /api/sync", s.handleSync)

	// Docs
	s.mux.HandleFunc("GET /api/docs", handleSwaggerUI)
	s.mux.HandleFunc("GET /api/docs/openapi.yaml", handleOpenAPISpec)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      withCORS(withLogging(s)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- feed handler ---

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := feed.Filters{
		SearchQuery: q.Get("q"),
	}

	if v := q.Get("solo_channels"); v != "" {
		filters.SoloChannelIDs = strings.Split(v, ",")
	}
	if v := q.Get("solo_categories"); v != "" {
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid solo_categories entry: %s", part))
				return
			}
			filters.SoloCategoryIDs = append(filters.SoloCategoryIDs, id)
		}
	}
	switch v := q.Get("duration"); v {
	case string(feed.DurationAny):
	case string(feed.DurationShort):
		filters.Duration = feed.DurationShort
	case string(feed.DurationLong):
		filters.Duration = feed.DurationLong
	default:
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid duration: %s (use short or long)", v))
		return
	}

	p, err := s.svc.Feed(r.Context(), filters)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if p.Today == nil {
		p.Today = []models.Video{}
	}
	if p.Past == nil {
		p.Past = []models.Video{}
	}
	writeJSON(w, http.StatusOK, p)
}

// --- channel handlers ---

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.svc.Channels(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if channels == nil {
		channels = []models.Channel{}
	}
	writeJSON(w, http.StatusOK, channels)
}

type addChannelRequest struct {
	Input string `json:"input"`
}

func (s *Server) handleAddChannel(w http.ResponseWriter, r *http.Request) {
	var req addChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("input is required"))
		return
	}

	ch, err := s.svc.AddChannel(r.Context(), req.Input)
	if err != nil {
		writeSourceErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

func (s *Server) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("id")
	if err := s.svc.RemoveChannel(r.Context(), channelID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("channel %s not found", channelID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeNoContent(w)
}

type channelVisibleRequest struct {
	Visible bool `json:"visible"`
}

func (s *Server) handleChannelVisible(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("id")

	var req channelVisibleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	if err := s.svc.SetChannelVisible(r.Context(), channelID, req.Visible); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("channel %s not found", channelID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channel_id": channelID,
		"visible":    req.Visible,
	})
}

type channelCategoryRequest struct {
	CategoryID *int64 `json:"category_id"`
}

func (s *Server) handleChannelCategory(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("id")

	var req channelCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	if err := s.svc.SetChannelCategory(r.Context(), channelID, req.CategoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channel_id":  channelID,
		"category_id": req.CategoryID,
	})
}

// --- category handlers ---

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.svc.Categories(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	cat, err := s.svc.CreateCategory(r.Context(), req.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCategoryName):
			writeErr(w, http.StatusBadRequest, err)
		case errors.Is(err, store.ErrDuplicate):
			writeErr(w, http.StatusConflict, fmt.Errorf("category %q already exists", req.Name))
		default:
			writeErr(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	if err := s.svc.DeleteCategory(r.Context(), categoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("category %d not found", categoryID))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeNoContent(w)
}

// --- video handlers ---

type addVideoRequest struct {
	Link string `json:"link"`
}

func (s *Server) handleAddVideo(w http.ResponseWriter, r *http.Request) {
	var req addVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if strings.TrimSpace(req.Link) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("link is required"))
		return
	}

	v, err := s.svc.AddVideoByLink(r.Context(), req.Link)
	if err != nil {
		writeSourceErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleVideoState(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("id")

	var upd models.VideoStateUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	st := s.svc.UpdateVideoState(r.Context(), videoID, upd)
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleVideoSummary(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("id")

	summary, queued, err := s.svc.RequestSummary(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, service.ErrSummariesDisabled) {
			writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("summaries not configured (GROQ_API_KEY not set)"))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if queued {
		writeJSON(w, http.StatusAccepted, map[string]any{
			"video_id": videoID,
			"queued":   true,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"video_id": videoID,
		"summary":  summary,
	})
}

// --- quota and sync handlers ---

func (s *Server) handleQuota(w http.ResponseWriter, _ *http.Request) {
	snap := s.tracker.Get()
	writeJSON(w, http.StatusOK, map[string]any{
		"date":         snap.Date,
		"youtube":      snap.YouTube,
		"groq":         snap.Groq,
		"sync_blocked": s.sweeper.Blocked(),
	})
}

func (s *Server) handleSync(w http.ResponseWriter, _ *http.Request) {
	if s.sweeper.Blocked() {
		writeErr(w, http.StatusTooManyRequests, service.ErrQuotaBlocked)
		return
	}

	// Sweeps can outlive the request, so run detached. A sweep already in
	// flight makes this a no-op inside Sweep.
	go func() {
		if err := s.sweeper.Sweep(context.Background()); err != nil {
			log.Printf("manual sync: %v", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{"started": true})
}

// writeSourceErr maps remote source errors onto HTTP statuses.
func writeSourceErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, youtube.ErrNotFound):
		writeErr(w, http.StatusNotFound, err)
	case errors.Is(err, youtube.ErrQuotaExceeded):
		writeErr(w, http.StatusTooManyRequests, err)
	case errors.Is(err, store.ErrDuplicate):
		writeErr(w, http.StatusConflict, err)
	default:
		writeErr(w, http.StatusInternalServerError, err)
	}
}

// --- middleware ---

// withCORS adds CORS headers to every response and handles preflight OPTIONS requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withLogging wraps a handler and logs each request with method, path, status, and duration.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		statusCode := sw.status

		// Color the status code for terminal readability.
		statusColor := colorForStatus(statusCode)
		methodColor := colorForMethod(r.Method)

		log.Printf("%s %-7s %s\x1b[0m  %s %3d %s\x1b[0m  %s",
			methodColor, r.Method, "\x1b[0m",
			statusColor, statusCode, "\x1b[0m",
			formatDuration(duration),
		)
		if r.URL.RawQuery != "" {
			log.Printf("         %s?%s", r.URL.Path, r.URL.RawQuery)
		} else {
			log.Printf("         %s", r.URL.Path)
		}
	})
}

func colorForStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "\x1b[32m" // green
	case code >= 300 && code < 400:
		return "\x1b[36m" // cyan
	case code >= 400 && code < 500:
		return "\x1b[33m" // yellow
	default:
		return "\x1b[31m" // red
	}
}

func colorForMethod(method string) string {
	switch method {
	case http.MethodGet:
		return "\x1b[36m" // cyan
	case http.MethodPost:
		return "\x1b[32m" // green
	case http.MethodPatch, http.MethodPut:
		return "\x1b[33m" // yellow
	case http.MethodDelete:
		return "\x1b[31m" // red
	default:
		return "\x1b[37m" // white
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// --- helpers ---

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// parseID extracts a path parameter by name and parses it as int64.
func parseID(r *http.Request, param string) (int64, error) {
	v := r.PathValue(param)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", param, v)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: %v", err)
	}
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		log.Printf("ERROR %d: %v", status, err)
	}
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}

// --- docs handlers ---

func handleOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(api.OpenAPISpec)
}

func handleSwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, swaggerUIHTML)
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>BrainTube API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
  <style>html{box-sizing:border-box;overflow-y:scroll}*,*:before,*:after{box-sizing:inherit}body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/api/docs/openapi.yaml",
      dom_id: "#swagger-ui",
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: "BaseLayout",
    });
  </script>
</body>
</html>`
