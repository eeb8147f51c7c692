package cleaner_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/scrapeurl/cleaner"
	"github.com/use-agent/scrapeurl/models"
)

func TestCleaner_Convert(t *testing.T) {
	t.Parallel()

	cl := cleaner.NewCleaner()
	selected := cleaner.Select(slog.New(slog.DiscardHandler), parse(t, samplePage), cleaner.SelectOptions{OnlyMainContent: false})

	t.Run("markdown keeps headings links and emphasis", func(t *testing.T) {
		t.Parallel()

		md, err := cl.Convert(selected, models.FormatMarkdown)
		require.NoError(t, err)

		assert.Contains(t, md, "# Welcome to _Roast_ My Website")
		assert.Contains(t, md, "## How it works")
		assert.Contains(t, md, "[FAQ](/faq/)")
		assert.Contains(t, md, "[docs](/docs)")
		assert.Contains(t, md, "Hartley Brody 2023")
		assert.NotContains(t, md, "alert")
	})

	t.Run("html is sanitized", func(t *testing.T) {
		t.Parallel()

		html, err := cl.Convert(selected, models.FormatHTML)
		require.NoError(t, err)

		assert.Contains(t, html, "<h1")
		assert.Contains(t, html, "<h2")
		assert.NotContains(t, html, "<script")
		assert.NotContains(t, html, "onerror")
		assert.NotContains(t, html, "<style")
	})

	t.Run("conversion does not mutate the tree", func(t *testing.T) {
		t.Parallel()

		before, err := selected.BodyHTML()
		require.NoError(t, err)

		md1, err := cl.Convert(selected, models.FormatMarkdown)
		require.NoError(t, err)
		_, err = cl.Convert(selected, models.FormatHTML)
		require.NoError(t, err)
		md2, err := cl.Convert(selected, models.FormatMarkdown)
		require.NoError(t, err)

		after, err := selected.BodyHTML()
		require.NoError(t, err)
		assert.Equal(t, before, after)
		assert.Equal(t, md1, md2)
	})

	t.Run("raw html is not a tree format", func(t *testing.T) {
		t.Parallel()

		_, err := cl.Convert(selected, models.FormatRawHTML)
		assert.Error(t, err)
	})

	t.Run("nil tree", func(t *testing.T) {
		t.Parallel()

		_, err := cl.Convert(nil, models.FormatMarkdown)
		assert.Error(t, err)
	})
}

func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, cleaner.EstimateTokens(""))
	assert.Equal(t, 1, cleaner.EstimateTokens("ab"))
	assert.Equal(t, 3, cleaner.EstimateTokens("abcdefghi"))
}
