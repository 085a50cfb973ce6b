// Package transcript scrapes video transcripts from the public watch page.
// There is no official transcript endpoint: the watch page embeds a player
// response blob that lists caption tracks, and each track serves timed text
// as JSON when asked with fmt=json3.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	watchURL       = "https://www.youtube.com/watch?v="
	defaultTimeout = 30 * time.Second

	// A desktop UA keeps the watch page serving the full player response.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// ErrNoTranscript means the video has no caption tracks and no usable
// description to fall back on.
var ErrNoTranscript = errors.New("transcript: none available")

var playerResponseRe = regexp.MustCompile(`ytInitialPlayerResponse\s*=\s*(\{.+?\});`)

// Fetcher pulls transcripts for videos.
type Fetcher struct {
	httpClient *http.Client
	baseURL    string
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    watchURL,
	}
}

// SetBaseURL overrides the watch page endpoint, for tests.
func (f *Fetcher) SetBaseURL(u string) { f.baseURL = u }

type playerResponse struct {
	Captions struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	VideoDetails struct {
		ShortDescription string `json:"shortDescription"`
	} `json:"videoDetails"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type timedText struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// Fetch returns the transcript text for a video. Caption tracks are
// preferred (English first, then any); when the video has none, the video
// description is returned instead so the summarizer still has material.
func (f *Fetcher) Fetch(ctx context.Context, videoID string) (string, error) {
	pr, err := f.playerResponse(ctx, videoID)
	if err != nil {
		return "", err
	}

	track := pickTrack(pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks)
	if track == nil {
		if desc := strings.TrimSpace(pr.VideoDetails.ShortDescription); desc != "" {
			return desc, nil
		}
		return "", fmt.Errorf("video %s: %w", videoID, ErrNoTranscript)
	}

	text, err := f.timedText(ctx, track.BaseURL)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("video %s: empty track: %w", videoID, ErrNoTranscript)
	}
	return text, nil
}

func (f *Fetcher) playerResponse(ctx context.Context, videoID string) (*playerResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+videoID, nil)
	if err != nil {
		return nil, fmt.Errorf("transcript: new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcript: watch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcript: watch page HTTP %d", resp.StatusCode)
	}

	page, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transcript: read watch page: %w", err)
	}

	m := playerResponseRe.FindSubmatch(page)
	if m == nil {
		return nil, fmt.Errorf("video %s: no player response: %w", videoID, ErrNoTranscript)
	}

	var pr playerResponse
	if err := json.Unmarshal(m[1], &pr); err != nil {
		return nil, fmt.Errorf("transcript: decode player response: %w", err)
	}
	return &pr, nil
}

// pickTrack prefers a manual English track over an auto-generated one,
// and any English track over the first track of another language.
func pickTrack(tracks []captionTrack) *captionTrack {
	var english, generated *captionTrack
	for i := range tracks {
		t := &tracks[i]
		if !strings.HasPrefix(t.LanguageCode, "en") {
			continue
		}
		if t.Kind == "asr" {
			if generated == nil {
				generated = t
			}
			continue
		}
		if english == nil {
			english = t
		}
	}
	switch {
	case english != nil:
		return english
	case generated != nil:
		return generated
	case len(tracks) > 0:
		return &tracks[0]
	}
	return nil
}

func (f *Fetcher) timedText(ctx context.Context, trackURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL+"&fmt=json3", nil)
	if err != nil {
		return "", fmt.Errorf("transcript: new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcript: caption track: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcript: caption track HTTP %d", resp.StatusCode)
	}

	var tt timedText
	if err := json.NewDecoder(resp.Body).Decode(&tt); err != nil {
		return "", fmt.Errorf("transcript: decode caption track: %w", err)
	}

	var b strings.Builder
	for _, ev := range tt.Events {
		for _, seg := range ev.Segs {
			b.WriteString(seg.UTF8)
		}
		b.WriteString(" ")
	}
	return strings.Join(strings.Fields(b.String()), " "), nil
}
