package cleaner_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/scrapeurl/cleaner"
)

func TestExtractMetadata(t *testing.T) {
	t.Parallel()

	t.Run("reads head tags", func(t *testing.T) {
		t.Parallel()

		meta, err := cleaner.ExtractMetadata(parse(t, samplePage), "https://roastmywebsite.ai", 200)
		require.NoError(t, err)

		assert.Equal(t, "Roast My Website", meta.Title)
		assert.Equal(t, "Put your website through the wringer.", meta.Description)
		assert.Equal(t, "Roast My Website,Roast,Website", meta.Keywords)
		assert.Equal(t, "follow, index", meta.Robots)
		assert.Equal(t, "en", meta.Language)
		assert.Equal(t, "Roast My Website", meta.OGTitle)
		assert.Equal(t, "OG description", meta.OGDescription)
		assert.Equal(t, "https://www.roastmywebsite.ai", meta.OGURL)
		assert.Equal(t, "https://www.roastmywebsite.ai/og.png", meta.OGImage)
		assert.Equal(t, "Roast My Website", meta.OGSiteName)
		assert.Equal(t, []string{}, meta.OGLocaleAlternate)
		assert.Equal(t, "https://roastmywebsite.ai", meta.SourceURL)
		assert.Equal(t, 200, meta.StatusCode)
		assert.Empty(t, meta.Error)
	})

	t.Run("collects every locale alternate in order", func(t *testing.T) {
		t.Parallel()

		page := `<html><head>
<meta property="og:locale" content="en_US">
<meta property="og:locale:alternate" content="fr_FR">
<meta property="og:locale:alternate" content="de_DE">
</head><body></body></html>`
		meta, err := cleaner.ExtractMetadata(parse(t, page), "https://example.com/a", 404)
		require.NoError(t, err)

		assert.Equal(t, "en_US", meta.OGLocale)
		assert.Equal(t, []string{"fr_FR", "de_DE"}, meta.OGLocaleAlternate)
		assert.Equal(t, 404, meta.StatusCode)
	})

	t.Run("first duplicate wins even when empty", func(t *testing.T) {
		t.Parallel()

		page := `<html><head>
<meta name="description" content="">
<meta name="description" content="second">
<meta property="og:title" content="First OG">
<meta property="og:title" content="Second OG">
</head><body></body></html>`
		meta, err := cleaner.ExtractMetadata(parse(t, page), "https://example.com", 200)
		require.NoError(t, err)

		assert.Empty(t, meta.Description)
		assert.Equal(t, "First OG", meta.OGTitle)
	})

	t.Run("source url is never the canonical or og url", func(t *testing.T) {
		t.Parallel()

		meta, err := cleaner.ExtractMetadata(parse(t, samplePage), "http://roastmywebsite.ai/?ref=x", 301)
		require.NoError(t, err)
		assert.Equal(t, "http://roastmywebsite.ai/?ref=x", meta.SourceURL)
	})

	t.Run("unaffected by selection", func(t *testing.T) {
		t.Parallel()

		tree := parse(t, samplePage)
		_ = cleaner.Select(slog.New(slog.DiscardHandler), tree, cleaner.SelectOptions{
			OnlyMainContent: true,
			ExcludeTags:     []string{"title", "meta", "head"},
		})

		meta, err := cleaner.ExtractMetadata(tree, "https://roastmywebsite.ai", 200)
		require.NoError(t, err)
		assert.Equal(t, "Roast My Website", meta.Title)
		assert.Equal(t, "follow, index", meta.Robots)
	})

	t.Run("nil tree reports an error but keeps pass-through fields", func(t *testing.T) {
		t.Parallel()

		meta, err := cleaner.ExtractMetadata(nil, "https://example.com", 500)
		require.Error(t, err)
		assert.Equal(t, "https://example.com", meta.SourceURL)
		assert.Equal(t, 500, meta.StatusCode)
		assert.NotNil(t, meta.OGLocaleAlternate)
	})
}
