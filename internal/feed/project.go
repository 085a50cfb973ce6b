package feed

import (
	"strings"
	"time"

	"github.com/martinmana808/braintube/internal/models"
)

// PastWindow is how far back the "past" partition reaches, excluding today.
const PastWindow = 7 * 24 * time.Hour

// SavedCategoryID is the virtual category selector that solos saved videos.
const SavedCategoryID = int64(-1)

// DurationClass filters the feed by video length.
type DurationClass string

const (
	DurationAny   DurationClass = ""
	DurationShort DurationClass = "short"
	DurationLong  DurationClass = "long"
)

// Filters are the client-selected view restrictions.
type Filters struct {
	SoloChannelIDs  []string
	SoloCategoryIDs []int64
	SearchQuery     string
	Duration        DurationClass
}

// Projection is the partitioned view consumed by presentation.
type Projection struct {
	Today []models.Video `json:"today"`
	Past  []models.Video `json:"past"`
}

// Project derives the view partitions from the accumulator. It is pure:
// identical inputs yield identical output. Filtering order is solo
// selection, then free-text search, then duration class, then custom-title
// substitution; finally videos are split into today vs. the trailing
// window by local calendar day. Soft-deleted videos are excluded from both
// partitions.
func Project(videos []models.Video, states map[string]models.VideoState, channels []models.Channel, f Filters, now time.Time) Projection {
	categoryOf := make(map[string]*int64, len(channels))
	for i := range channels {
		categoryOf[channels[i].ID] = channels[i].CategoryID
	}

	solo := len(f.SoloChannelIDs) > 0 || len(f.SoloCategoryIDs) > 0
	soloChannels := make(map[string]struct{}, len(f.SoloChannelIDs))
	for _, id := range f.SoloChannelIDs {
		soloChannels[id] = struct{}{}
	}
	soloCategories := make(map[int64]struct{}, len(f.SoloCategoryIDs))
	for _, id := range f.SoloCategoryIDs {
		soloCategories[id] = struct{}{}
	}
	_, savedSolo := soloCategories[SavedCategoryID]

	query := strings.ToLower(strings.TrimSpace(f.SearchQuery))

	var filtered []models.Video
	for _, v := range videos {
		st := states[v.ID]

		if solo {
			_, chMatch := soloChannels[v.ChannelID]
			catMatch := false
			if cat := categoryOf[v.ChannelID]; cat != nil {
				_, catMatch = soloCategories[*cat]
			}
			if !chMatch && !catMatch && !(savedSolo && st.Saved) {
				continue
			}
		}

		if query != "" &&
			!strings.Contains(strings.ToLower(v.Title), query) &&
			!strings.Contains(strings.ToLower(v.ChannelTitle), query) {
			continue
		}

		switch f.Duration {
		case DurationShort:
			if !v.IsShortForm() {
				continue
			}
		case DurationLong:
			if v.IsShortForm() {
				continue
			}
		}

		if st.CustomTitle != "" {
			v.OriginalTitle = v.Title
			v.Title = st.CustomTitle
		}
		filtered = append(filtered, v)
	}

	cutoff := now.Add(-PastWindow)
	var p Projection
	for _, v := range filtered {
		st := states[v.ID]
		if st.Deleted {
			continue
		}
		// Saved videos are held out of the date partitions unless a solo
		// selection explicitly pulled them in.
		if st.Saved && !solo {
			continue
		}
		pub := v.PublishedAt.In(now.Location())
		switch {
		case sameDay(pub, now):
			p.Today = append(p.Today, v)
		case pub.After(cutoff) && pub.Before(now):
			p.Past = append(p.Past, v)
		case st.Saved:
			// Saved videos never expire: when a solo selection pulls one
			// in, an out-of-window publication date rides in the past
			// column instead of vanishing.
			p.Past = append(p.Past, v)
		}
	}
	return p
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
