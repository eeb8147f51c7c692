package models_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/scrapeurl/models"
)

func TestParseOptions_Defaults(t *testing.T) {
	t.Parallel()

	opts, err := models.ParseOptions(models.RawScrapeOptions{})
	require.NoError(t, err)
	assert.True(t, opts.Valid())
	assert.Equal(t, []models.Format{models.FormatMarkdown}, opts.Formats())
	assert.True(t, opts.OnlyMainContent())
	assert.Empty(t, opts.ExcludeTags())
	assert.Equal(t, models.DefaultTimeout, opts.Timeout())
	assert.Equal(t, models.ExtractSelectors, opts.ExtractMode())
	assert.Equal(t, opts, models.DefaultScrapeOptions())
}

func TestParseOptions_CanonicalFormats(t *testing.T) {
	t.Parallel()

	off := false
	opts, err := models.ParseOptions(models.RawScrapeOptions{
		Formats:         []string{"rawHtml", "html", "markdown", "html"},
		OnlyMainContent: &off,
		ExcludeTags:     []string{".ad", "#promo"},
		Timeout:         1500,
		ExtractMode:     "readability",
	})
	require.NoError(t, err)
	assert.Equal(t, []models.Format{models.FormatMarkdown, models.FormatHTML, models.FormatRawHTML}, opts.Formats())
	assert.False(t, opts.OnlyMainContent())
	assert.Equal(t, []string{".ad", "#promo"}, opts.ExcludeTags())
	assert.Equal(t, 1500*time.Millisecond, opts.Timeout())
	assert.Equal(t, models.ExtractReadability, opts.ExtractMode())
	assert.True(t, opts.Wants(models.FormatRawHTML))

	again, err := models.ParseOptions(opts.Raw())
	require.NoError(t, err)
	assert.Equal(t, opts, again)
}

func TestParseOptions_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  models.RawScrapeOptions
	}{
		{"unknown format", models.RawScrapeOptions{Formats: []string{"pdf"}}},
		{"bad selector", models.RawScrapeOptions{ExcludeTags: []string{"div["}}},
		{"negative timeout", models.RawScrapeOptions{Timeout: -1}},
		{"timeout too large", models.RawScrapeOptions{Timeout: int(models.MaxTimeout.Milliseconds()) + 1}},
		{"timeout overflows duration", models.RawScrapeOptions{Timeout: math.MaxInt}},
		{"unknown mode", models.RawScrapeOptions{ExtractMode: "magic"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts, err := models.ParseOptions(tt.raw)
			require.Error(t, err)
			assert.False(t, opts.Valid())

			var se *models.ScrapeError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, models.ErrCodeInvalidInput, se.Code)
		})
	}
}

func TestScrapeOptions_ZeroValueInvalid(t *testing.T) {
	t.Parallel()

	var opts models.ScrapeOptions
	assert.False(t, opts.Valid())
	assert.Empty(t, opts.Formats())
}

func TestScrapeOptions_AccessorsCopy(t *testing.T) {
	t.Parallel()

	opts, err := models.ParseOptions(models.RawScrapeOptions{ExcludeTags: []string{"nav"}})
	require.NoError(t, err)
	tags := opts.ExcludeTags()
	tags[0] = "footer"
	assert.Equal(t, []string{"nav"}, opts.ExcludeTags())
}
