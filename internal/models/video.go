package models

import (
	"regexp"
	"strconv"
	"time"
)

// ShortFormMax is the duration at or below which a video is classified as
// short-form content.
const ShortFormMax = 60 * time.Second

// Video is a single upload, immutable once fetched. Duration keeps the
// provider-native ISO 8601 encoding (e.g. "PT4M13S"); it is empty when the
// duration lookup failed for the item.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
	ChannelID    string    `json:"channel_id"`
	ChannelTitle string    `json:"channel_title"`
	PublishedAt  time.Time `json:"published_at"`
	Duration     string    `json:"duration,omitempty"`

	// OriginalTitle is populated by the feed projection when a custom title
	// override replaced Title.
	OriginalTitle string `json:"original_title,omitempty"`
}

var isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseISODuration converts an ISO 8601 duration of the PT#H#M#S shape into
// a time.Duration. Unparseable or empty input yields zero.
func ParseISODuration(s string) time.Duration {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	return time.Duration(h)*time.Hour + time.Duration(min)*time.Minute + time.Duration(sec)*time.Second
}

// IsShortForm reports whether the video's duration is at or below the
// short-form threshold. Videos with an unknown duration are long-form.
func (v Video) IsShortForm() bool {
	d := ParseISODuration(v.Duration)
	return d > 0 && d <= ShortFormMax
}
