package feed

import (
	"testing"
	"time"

	"github.com/martinmana808/braintube/internal/models"
	"github.com/stretchr/testify/assert"
)

var projNow = time.Date(2025, 6, 10, 15, 0, 0, 0, time.Local)

func projVideo(id, channelID, title string, age time.Duration) models.Video {
	return models.Video{
		ID:           id,
		Title:        title,
		ChannelID:    channelID,
		ChannelTitle: "channel " + channelID,
		PublishedAt:  projNow.Add(-age),
	}
}

func TestProjectPartitionsByDay(t *testing.T) {
	videos := []models.Video{
		projVideo("today", "c1", "fresh upload", 2*time.Hour),
		projVideo("past", "c1", "older upload", 3*24*time.Hour),
		projVideo("ancient", "c1", "long gone", 30*24*time.Hour),
	}

	p := Project(videos, nil, nil, Filters{}, projNow)
	assert.Equal(t, []string{"today"}, ids(p.Today))
	assert.Equal(t, []string{"past"}, ids(p.Past))
}

func TestProjectExcludesDeletedAndSaved(t *testing.T) {
	videos := []models.Video{
		projVideo("kept", "c1", "a", time.Hour),
		projVideo("binned", "c1", "b", time.Hour),
		projVideo("saved", "c1", "c", time.Hour),
	}
	states := map[string]models.VideoState{
		"binned": {VideoID: "binned", Deleted: true},
		"saved":  {VideoID: "saved", Saved: true},
	}

	p := Project(videos, states, nil, Filters{}, projNow)
	assert.Equal(t, []string{"kept"}, ids(p.Today))
	assert.Empty(t, p.Past)
}

func TestProjectSoloChannel(t *testing.T) {
	videos := []models.Video{
		projVideo("a", "c1", "one", time.Hour),
		projVideo("b", "c2", "two", time.Hour),
	}

	p := Project(videos, nil, nil, Filters{SoloChannelIDs: []string{"c2"}}, projNow)
	assert.Equal(t, []string{"b"}, ids(p.Today))
}

func TestProjectSoloCategory(t *testing.T) {
	cat := int64(4)
	channels := []models.Channel{
		{ID: "c1", CategoryID: &cat},
		{ID: "c2"},
	}
	videos := []models.Video{
		projVideo("a", "c1", "one", time.Hour),
		projVideo("b", "c2", "two", time.Hour),
	}

	p := Project(videos, nil, channels, Filters{SoloCategoryIDs: []int64{cat}}, projNow)
	assert.Equal(t, []string{"a"}, ids(p.Today))
}

func TestProjectSavedSoloIncludesSavedVideos(t *testing.T) {
	videos := []models.Video{
		projVideo("a", "c1", "one", time.Hour),
		projVideo("b", "c2", "two", time.Hour),
	}
	states := map[string]models.VideoState{
		"b": {VideoID: "b", Saved: true},
	}

	p := Project(videos, states, nil, Filters{SoloCategoryIDs: []int64{SavedCategoryID}}, projNow)
	assert.Equal(t, []string{"b"}, ids(p.Today))
}

func TestProjectSavedSoloKeepsExpiredVideos(t *testing.T) {
	videos := []models.Video{
		projVideo("recent", "c1", "one", 2*24*time.Hour),
		projVideo("ancient", "c1", "two", 60*24*time.Hour),
	}
	states := map[string]models.VideoState{
		"recent":  {VideoID: "recent", Saved: true},
		"ancient": {VideoID: "ancient", Saved: true},
	}

	// Saved videos outside the past window still show under the saved solo.
	p := Project(videos, states, nil, Filters{SoloCategoryIDs: []int64{SavedCategoryID}}, projNow)
	assert.Empty(t, p.Today)
	assert.Equal(t, []string{"recent", "ancient"}, ids(p.Past))
}

func TestProjectSearchMatchesTitleOrChannel(t *testing.T) {
	videos := []models.Video{
		projVideo("a", "c1", "Building a Compiler", time.Hour),
		projVideo("b", "c2", "Morning routine", time.Hour),
	}

	p := Project(videos, nil, nil, Filters{SearchQuery: "compiler"}, projNow)
	assert.Equal(t, []string{"a"}, ids(p.Today))

	p = Project(videos, nil, nil, Filters{SearchQuery: "CHANNEL C2"}, projNow)
	assert.Equal(t, []string{"b"}, ids(p.Today))
}

func TestProjectDurationFilter(t *testing.T) {
	short := projVideo("short", "c1", "a short", time.Hour)
	short.Duration = "PT45S"
	long := projVideo("long", "c1", "a deep dive", time.Hour)
	long.Duration = "PT1H2M"

	p := Project([]models.Video{short, long}, nil, nil, Filters{Duration: DurationShort}, projNow)
	assert.Equal(t, []string{"short"}, ids(p.Today))

	p = Project([]models.Video{short, long}, nil, nil, Filters{Duration: DurationLong}, projNow)
	assert.Equal(t, []string{"long"}, ids(p.Today))
}

func TestProjectCustomTitleOverride(t *testing.T) {
	videos := []models.Video{projVideo("a", "c1", "clickbait!!!", time.Hour)}
	states := map[string]models.VideoState{
		"a": {VideoID: "a", CustomTitle: "actual content"},
	}

	p := Project(videos, states, nil, Filters{}, projNow)
	assert.Equal(t, "actual content", p.Today[0].Title)
	assert.Equal(t, "clickbait!!!", p.Today[0].OriginalTitle)
}

func TestProjectDeterministic(t *testing.T) {
	videos := []models.Video{
		projVideo("a", "c1", "one", time.Hour),
		projVideo("b", "c2", "two", 2*24*time.Hour),
	}
	first := Project(videos, nil, nil, Filters{}, projNow)
	second := Project(videos, nil, nil, Filters{}, projNow)
	assert.Equal(t, first, second)
}
