package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/scrapeurl/models"
)

func doc(md string) *models.ScrapeDocument {
	d := &models.ScrapeDocument{Metadata: models.PageMetadata{SourceURL: "https://example.com", StatusCode: 200, OGLocaleAlternate: []string{"fr_FR"}}}
	d.Set(models.FormatMarkdown, md)
	return d
}

func TestKey(t *testing.T) {
	t.Parallel()

	base := models.DefaultScrapeOptions()
	off := false
	noMain, err := models.ParseOptions(models.RawScrapeOptions{OnlyMainContent: &off})
	require.NoError(t, err)
	slower, err := models.ParseOptions(models.RawScrapeOptions{Timeout: 90_000})
	require.NoError(t, err)
	html, err := models.ParseOptions(models.RawScrapeOptions{Formats: []string{"html"}})
	require.NoError(t, err)

	k := Key("https://example.com", base)
	assert.Equal(t, k, Key("https://example.com", base))
	assert.Equal(t, k, Key("https://example.com", slower))
	assert.NotEqual(t, k, Key("https://example.com/", base))
	assert.NotEqual(t, k, Key("https://example.com", noMain))
	assert.NotEqual(t, k, Key("https://example.com", html))
}

func TestCache_GetSet(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	c := New(10, 0)
	c.now = func() time.Time { return now }

	_, ok := c.Get("k", time.Minute)
	assert.False(t, ok)

	c.Set("k", doc("hello"))
	got, ok := c.Get("k", time.Minute)
	require.True(t, ok)
	md, _ := got.Get(models.FormatMarkdown)
	assert.Equal(t, "hello", md)

	_, ok = c.Get("k", 0)
	assert.False(t, ok, "maxAge 0 disables the cache")

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k", time.Minute)
	assert.False(t, ok, "entry older than maxAge")
}

func TestCache_ReturnsCopies(t *testing.T) {
	t.Parallel()

	c := New(10, 0)
	c.Set("k", doc("original"))

	got, ok := c.Get("k", time.Hour)
	require.True(t, ok)
	got.Set(models.FormatMarkdown, "mutated")
	got.Metadata.OGLocaleAlternate[0] = "xx"

	again, _ := c.Get("k", time.Hour)
	md, _ := again.Get(models.FormatMarkdown)
	assert.Equal(t, "original", md)
	assert.Equal(t, []string{"fr_FR"}, again.Metadata.OGLocaleAlternate)
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	c := New(2, 0)
	c.now = func() time.Time { return now }

	c.Set("a", doc("a"))
	now = now.Add(time.Second)
	c.Set("b", doc("b"))
	now = now.Add(time.Second)
	c.Set("c", doc("c"))

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a", time.Hour)
	assert.False(t, ok)
	_, ok = c.Get("c", time.Hour)
	assert.True(t, ok)
}

func TestCache_EvictExpired(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	c := New(10, time.Hour)
	defer c.Stop()
	c.now = func() time.Time { return now }

	c.Set("old", doc("old"))
	now = now.Add(2 * time.Hour)
	c.Set("new", doc("new"))
	c.evictExpired()

	assert.Equal(t, 1, c.Len())
	c.Stop()
}
