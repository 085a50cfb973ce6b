// Package youtube is a minimal YouTube Data API v3 client covering the
// three operations the curator needs: resolving a channel from whatever the
// user pasted, fetching the latest page of a channel's uploads, and fetching
// one video by ID or URL.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/martinmana808/braintube/internal/models"
	"github.com/martinmana808/braintube/internal/quota"
)

const (
	defaultBaseURL     = "https://www.googleapis.com/youtube/v3"
	uploadsPageSize    = 10
	defaultHTTPTimeout = 30 * time.Second
)

// ChannelMetadata is the resolved identity of a channel.
type ChannelMetadata struct {
	ID                string
	Name              string
	Thumbnail         string
	UploadsPlaylistID string
}

// Client is a YouTube Data API v3 client. Every request reports its unit
// cost to the quota tracker when one is attached.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	tracker    *quota.Tracker
}

// NewClient creates a Client authenticated with the given API key.
// tracker may be nil, in which case unit costs are not recorded.
func NewClient(apiKey string, tracker *quota.Tracker) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		tracker: tracker,
	}
}

// SetBaseURL overrides the API endpoint, for tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

func (c *Client) spend(units int) {
	if c.tracker != nil {
		c.tracker.AddYouTube(units)
	}
}

// --- wire types (subset of the API response shapes) ---

type thumbnails struct {
	Default struct {
		URL string `json:"url"`
	} `json:"default"`
	Medium struct {
		URL string `json:"url"`
	} `json:"medium"`
}

type channelListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title      string     `json:"title"`
			Thumbnails thumbnails `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type searchListResponse struct {
	Items []struct {
		Snippet struct {
			ChannelID string `json:"channelId"`
		} `json:"snippet"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	Items []struct {
		Snippet struct {
			Title        string     `json:"title"`
			ChannelID    string     `json:"channelId"`
			ChannelTitle string     `json:"channelTitle"`
			PublishedAt  time.Time  `json:"publishedAt"`
			Thumbnails   thumbnails `json:"thumbnails"`
			ResourceID   struct {
				VideoID string `json:"videoId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	} `json:"items"`
}

type videoListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string     `json:"title"`
			ChannelID    string     `json:"channelId"`
			ChannelTitle string     `json:"channelTitle"`
			PublishedAt  time.Time  `json:"publishedAt"`
			Thumbnails   thumbnails `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// get performs one API call and decodes the response into out.
func (c *Client) get(ctx context.Context, resource string, params url.Values, out any) error {
	params.Set("key", c.apiKey)
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, resource, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Op: resource, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Op: resource, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return apiError(resource, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{Op: resource, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// ResolveChannel turns a raw channel ID, an @handle, a legacy username, or
// a youtube.com URL into channel metadata. When the direct lookup comes up
// empty it falls back to a channel search and retries once with the top
// hit's ID.
func (c *Client) ResolveChannel(ctx context.Context, input string) (*ChannelMetadata, error) {
	return c.resolveChannel(ctx, strings.TrimSpace(input), true)
}

func (c *Client) resolveChannel(ctx context.Context, input string, allowSearch bool) (*ChannelMetadata, error) {
	field, value := channelLookupParams(input)

	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set(field, value)

	var res channelListResponse
	c.spend(quota.CostList)
	if err := c.get(ctx, "channels", params, &res); err != nil {
		return nil, err
	}

	if len(res.Items) == 0 {
		if !allowSearch {
			return nil, fmt.Errorf("channel %q: %w", input, ErrNotFound)
		}
		id, err := c.searchChannelID(ctx, searchQueryFor(input))
		if err != nil {
			return nil, err
		}
		return c.resolveChannel(ctx, id, false)
	}

	item := res.Items[0]
	return &ChannelMetadata{
		ID:                item.ID,
		Name:              item.Snippet.Title,
		Thumbnail:         item.Snippet.Thumbnails.Default.URL,
		UploadsPlaylistID: item.ContentDetails.RelatedPlaylists.Uploads,
	}, nil
}

// searchChannelID finds the best-matching channel ID for a free-text query.
func (c *Client) searchChannelID(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "channel")
	params.Set("q", query)

	var res searchListResponse
	c.spend(quota.CostSearch)
	if err := c.get(ctx, "search", params, &res); err != nil {
		return "", err
	}
	if len(res.Items) == 0 {
		return "", fmt.Errorf("channel %q: %w", query, ErrNotFound)
	}
	return res.Items[0].Snippet.ChannelID, nil
}

// channelLookupParams picks the channels.list filter field for the input.
func channelLookupParams(input string) (field, value string) {
	if isYouTubeURL(input) {
		if u, err := parseMaybeSchemeless(input); err == nil {
			path := u.Path
			switch {
			case strings.HasPrefix(path, "/channel/"):
				return "id", strings.TrimPrefix(path, "/channel/")
			case strings.HasPrefix(path, "/user/"):
				return "forUsername", strings.TrimPrefix(path, "/user/")
			case strings.HasPrefix(path, "/@"):
				return "forHandle", strings.TrimPrefix(path, "/")
			default:
				// A bare root path is ambiguous: handles keep the @, anything
				// else is tried as a legacy username.
				rest := strings.TrimPrefix(path, "/")
				if strings.HasPrefix(rest, "@") {
					return "forHandle", rest
				}
				return "forUsername", rest
			}
		}
	}
	switch {
	case strings.HasPrefix(input, "UC") && len(input) == 24:
		return "id", input
	case strings.HasPrefix(input, "@"):
		return "forHandle", input
	default:
		return "forUsername", input
	}
}

// searchQueryFor extracts the most useful search term from the raw input:
// for URLs, the last path segment; otherwise the input itself.
func searchQueryFor(input string) string {
	if !isYouTubeURL(input) {
		return input
	}
	u, err := parseMaybeSchemeless(input)
	if err != nil {
		return input
	}
	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return input
	}
	return parts[len(parts)-1]
}

func isYouTubeURL(s string) bool {
	return strings.Contains(s, "youtube.com") || strings.Contains(s, "youtu.be")
}

func parseMaybeSchemeless(s string) (*url.URL, error) {
	if !strings.HasPrefix(s, "http") {
		s = "https://" + s
	}
	return url.Parse(s)
}

// FetchUploads returns the latest page of uploads for a channel's uploads
// playlist, newest first, with durations attached by a secondary batched
// videos.list call. A failed duration lookup leaves durations empty rather
// than failing the page. existing is accepted so a future implementation
// can stop paging early; it is not consulted for correctness.
func (c *Client) FetchUploads(ctx context.Context, playlistID string, existing []models.Video) ([]models.Video, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("playlistId", playlistID)
	params.Set("maxResults", fmt.Sprint(uploadsPageSize))

	var page playlistItemsResponse
	c.spend(quota.CostList)
	if err := c.get(ctx, "playlistItems", params, &page); err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return []models.Video{}, nil
	}

	ids := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		ids = append(ids, item.Snippet.ResourceID.VideoID)
	}
	durations := c.fetchDurations(ctx, ids)

	videos := make([]models.Video, 0, len(page.Items))
	for _, item := range page.Items {
		id := item.Snippet.ResourceID.VideoID
		thumb := item.Snippet.Thumbnails.Medium.URL
		if thumb == "" {
			thumb = item.Snippet.Thumbnails.Default.URL
		}
		videos = append(videos, models.Video{
			ID:           id,
			Title:        item.Snippet.Title,
			Thumbnail:    thumb,
			ChannelID:    item.Snippet.ChannelID,
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  item.Snippet.PublishedAt,
			Duration:     durations[id],
		})
	}
	return videos, nil
}

// fetchDurations looks up contentDetails.duration for a batch of video IDs.
// Errors degrade to an empty map: the uploads themselves are still useful.
func (c *Client) fetchDurations(ctx context.Context, ids []string) map[string]string {
	params := url.Values{}
	params.Set("part", "contentDetails")
	params.Set("id", strings.Join(ids, ","))

	var res videoListResponse
	c.spend(quota.CostList)
	if err := c.get(ctx, "videos", params, &res); err != nil {
		return nil
	}
	durations := make(map[string]string, len(res.Items))
	for _, item := range res.Items {
		durations[item.ID] = item.ContentDetails.Duration
	}
	return durations
}

// FetchVideo fetches one video's metadata by bare ID, youtu.be short link,
// or youtube.com watch URL.
func (c *Client) FetchVideo(ctx context.Context, idOrURL string) (*models.Video, error) {
	id, err := ExtractVideoID(idOrURL)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("id", id)

	var res videoListResponse
	c.spend(quota.CostList)
	if err := c.get(ctx, "videos", params, &res); err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, fmt.Errorf("video %q: %w", id, ErrNotFound)
	}

	item := res.Items[0]
	thumb := item.Snippet.Thumbnails.Medium.URL
	if thumb == "" {
		thumb = item.Snippet.Thumbnails.Default.URL
	}
	return &models.Video{
		ID:           item.ID,
		Title:        item.Snippet.Title,
		Thumbnail:    thumb,
		ChannelID:    item.Snippet.ChannelID,
		ChannelTitle: item.Snippet.ChannelTitle,
		PublishedAt:  item.Snippet.PublishedAt,
		Duration:     item.ContentDetails.Duration,
	}, nil
}

// ExtractVideoID pulls the video ID out of a youtu.be path, a youtube.com
// watch URL's v parameter, or returns a bare ID unchanged.
func ExtractVideoID(idOrURL string) (string, error) {
	if !isYouTubeURL(idOrURL) {
		if idOrURL == "" {
			return "", fmt.Errorf("empty video id: %w", ErrNotFound)
		}
		return idOrURL, nil
	}
	u, err := parseMaybeSchemeless(idOrURL)
	if err != nil {
		return "", fmt.Errorf("video url %q: %w", idOrURL, ErrNotFound)
	}
	var id string
	if strings.Contains(u.Host, "youtu.be") {
		id = strings.TrimPrefix(u.Path, "/")
	} else {
		id = u.Query().Get("v")
	}
	if id == "" {
		return "", fmt.Errorf("video url %q: no id: %w", idOrURL, ErrNotFound)
	}
	return id, nil
}
