package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/scrapeurl/api/handler"
)

func main() {
	apiURL := os.Getenv("SCRAPEURL_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("SCRAPEURL_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "SCRAPEURL_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"scrapeurl",
		handler.Version,
		server.WithToolCapabilities(false),
	)

	c := newClient(apiURL, apiKey)

	scrapeURLTool := mcp.NewTool("scrape_url",
		mcp.WithDescription("Scrape a web page or PDF and return its content as markdown, html or raw html, with page metadata. The origin's HTTP status is reported even when it is an error page."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The absolute URL to scrape"),
		),
		mcp.WithArray("formats",
			mcp.Description("Output formats: any of 'markdown' (default), 'html', 'rawHtml'"),
		),
		mcp.WithBoolean("only_main_content",
			mcp.Description("Strip navigation, headers, footers and sidebars (default: true)"),
		),
		mcp.WithArray("exclude_tags",
			mcp.Description("CSS selectors whose matches are removed before conversion"),
		),
		mcp.WithString("extract_mode",
			mcp.Description("Main-content strategy: 'selectors' (default), 'pruning' or 'readability'"),
			mcp.Enum("selectors", "pruning", "readability"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Per-request deadline in milliseconds (default: 30000)"),
		),
	)
	s.AddTool(scrapeURLTool, handleScrapeURL(c))

	batchScrapeTool := mcp.NewTool("batch_scrape",
		mcp.WithDescription("Scrape multiple URLs in parallel and return the content of each. Useful for gathering many pages at once."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of absolute URLs to scrape"),
		),
		mcp.WithArray("formats",
			mcp.Description("Output formats: any of 'markdown' (default), 'html', 'rawHtml'"),
		),
		mcp.WithBoolean("only_main_content",
			mcp.Description("Strip navigation, headers, footers and sidebars (default: true)"),
		),
		mcp.WithString("extract_mode",
			mcp.Description("Main-content strategy: 'selectors' (default), 'pruning' or 'readability'"),
			mcp.Enum("selectors", "pruning", "readability"),
		),
	)
	s.AddTool(batchScrapeTool, handleBatchScrape(c))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
