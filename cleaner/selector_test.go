package cleaner_test

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/scrapeurl/cleaner"
	"github.com/use-agent/scrapeurl/models"
)

func bodyOf(t *testing.T, tree *cleaner.Tree) string {
	t.Helper()
	html, err := tree.BodyHTML()
	require.NoError(t, err)
	return html
}

func TestSelect(t *testing.T) {
	t.Parallel()
	log := slog.New(slog.DiscardHandler)

	t.Run("main content drops chrome", func(t *testing.T) {
		t.Parallel()

		out := cleaner.Select(log, parse(t, samplePage), cleaner.SelectOptions{OnlyMainContent: true})
		body := bodyOf(t, out)

		assert.Contains(t, body, "How it works")
		assert.NotContains(t, body, "FAQ")
		assert.NotContains(t, body, "Hartley Brody 2023")
		assert.NotContains(t, body, "<script")
	})

	t.Run("full body keeps chrome", func(t *testing.T) {
		t.Parallel()

		out := cleaner.Select(log, parse(t, samplePage), cleaner.SelectOptions{OnlyMainContent: false})
		body := bodyOf(t, out)

		assert.Contains(t, body, "FAQ")
		assert.Contains(t, body, "Hartley Brody 2023")
		assert.Contains(t, body, "How it works")
	})

	t.Run("exclude tags compose with full body", func(t *testing.T) {
		t.Parallel()

		out := cleaner.Select(log, parse(t, samplePage), cleaner.SelectOptions{
			ExcludeTags: []string{".nav", "#footer", "strong"},
		})
		body := bodyOf(t, out)

		assert.NotContains(t, body, "FAQ")
		assert.NotContains(t, body, "Hartley Brody 2023")
		assert.NotContains(t, body, "mercilessly")
		assert.Contains(t, body, "How it works")
	})

	t.Run("exclude tags remove inside main region", func(t *testing.T) {
		t.Parallel()

		out := cleaner.Select(log, parse(t, samplePage), cleaner.SelectOptions{
			OnlyMainContent: true,
			ExcludeTags:     []string{"h2"},
		})
		body := bodyOf(t, out)

		assert.NotContains(t, body, "How it works")
		assert.Contains(t, body, "Welcome to")
	})

	t.Run("original tree is untouched", func(t *testing.T) {
		t.Parallel()

		tree := parse(t, samplePage)
		_ = cleaner.Select(log, tree, cleaner.SelectOptions{OnlyMainContent: true, ExcludeTags: []string{"main"}})

		body := bodyOf(t, tree)
		assert.Contains(t, body, "FAQ")
		assert.Contains(t, body, "How it works")
		assert.Equal(t, 1, tree.Document().Find("head title").Length())
	})

	t.Run("main marker protects wrapping chrome class", func(t *testing.T) {
		t.Parallel()

		page := `<html><body><div class="top"><main><p>Real content lives here.</p></main></div><div class="top">Banner</div></body></html>`
		out := cleaner.Select(log, parse(t, page), cleaner.SelectOptions{OnlyMainContent: true})
		body := bodyOf(t, out)

		assert.Contains(t, body, "Real content lives here.")
		assert.NotContains(t, body, "Banner")
	})
}

func TestSelect_Idempotent(t *testing.T) {
	t.Parallel()
	log := slog.New(slog.DiscardHandler)

	for _, mode := range []models.ExtractMode{models.ExtractSelectors, models.ExtractPruning} {
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()

			opts := cleaner.SelectOptions{
				OnlyMainContent: true,
				ExcludeTags:     []string{"strong"},
				Mode:            mode,
			}
			once := cleaner.Select(log, parse(t, samplePage), opts)
			twice := cleaner.Select(log, once, opts)

			assert.Equal(t, bodyOf(t, once), bodyOf(t, twice))
		})
	}
}

func TestSelect_Pruning(t *testing.T) {
	t.Parallel()

	page := `<html><body>
<nav class="menu"><a href="/a">A</a><a href="/b">B</a><a href="/c">C</a></nav>
<article class="post-content"><h1>Title</h1><p>` + strings.Repeat("Long readable paragraph text. ", 20) + `</p></article>
<footer class="site-footer"><a href="/privacy">Privacy</a></footer>
</body></html>`

	out := cleaner.Select(slog.New(slog.DiscardHandler), parse(t, page), cleaner.SelectOptions{
		OnlyMainContent: true,
		Mode:            models.ExtractPruning,
	})
	body := bodyOf(t, out)

	assert.Contains(t, body, "Long readable paragraph text.")
	assert.NotContains(t, body, "Privacy")
	assert.NotContains(t, body, `href="/a"`)
}

func TestSelect_Readability(t *testing.T) {
	t.Parallel()

	page := `<html><head><title>Article</title></head><body>
<div class="nav"><a href="/faq/">FAQ</a></div>
<article><h1>Heading</h1>
<p>` + strings.Repeat("This is a long article paragraph with plenty of words in it. ", 15) + `</p>
<p>` + strings.Repeat("Another paragraph that keeps the reader engaged and informed. ", 15) + `</p>
</article>
</body></html>`

	log := slog.New(slog.DiscardHandler)
	opts := cleaner.SelectOptions{OnlyMainContent: true, Mode: models.ExtractReadability}
	once := cleaner.Select(log, parse(t, page), opts)
	body := bodyOf(t, once)

	assert.Contains(t, body, "long article paragraph")
	assert.NotContains(t, body, "FAQ")

	twice := cleaner.Select(log, once, opts)
	assert.Equal(t, body, bodyOf(t, twice))
}
