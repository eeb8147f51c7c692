package cleaner_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/use-agent/scrapeurl/cleaner"
)

const samplePage = `<!DOCTYPE html>
<html lang="en">
<head>
<title>Roast My Website</title>
<meta name="description" content="Put your website through the wringer.">
<meta name="description" content="A second description that must be ignored.">
<meta name="keywords" content="Roast My Website,Roast,Website">
<meta name="robots" content="follow, index">
<meta property="og:title" content="Roast My Website">
<meta property="og:description" content="OG description">
<meta property="og:url" content="https://www.roastmywebsite.ai">
<meta property="og:image" content="https://www.roastmywebsite.ai/og.png">
<meta property="og:site_name" content="Roast My Website">
<link rel="canonical" href="https://canonical.example.com/">
<style>body { color: red; }</style>
</head>
<body>
<div class="nav"><a href="/faq/">FAQ</a> <a href="/lessons/">Lessons</a></div>
<main>
<h1>Welcome to <em>Roast</em> My Website</h1>
<h2>How it works</h2>
<p>We scrape your site and <strong>mercilessly</strong> roast it. Read the <a href="/docs">docs</a>.</p>
<script>alert("x")</script>
<img src="/og.png" alt="preview" onerror="alert(1)">
</main>
<div id="footer">Lessons and Videos © Hartley Brody 2023</div>
</body>
</html>`

func parse(t *testing.T, raw string) *cleaner.Tree {
	t.Helper()
	tree, err := cleaner.ParseHTML([]byte(raw), "https://roastmywebsite.ai")
	require.NoError(t, err)
	return tree
}
