package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/scrapeurl/cleaner"
	"github.com/use-agent/scrapeurl/models"
)

func rawOptions(request mcp.CallToolRequest) models.RawScrapeOptions {
	raw := models.RawScrapeOptions{
		Formats:     request.GetStringSlice("formats", nil),
		ExcludeTags: request.GetStringSlice("exclude_tags", nil),
		Timeout:     request.GetInt("timeout", 0),
		ExtractMode: request.GetString("extract_mode", ""),
	}
	if args := request.GetArguments(); args != nil {
		if _, ok := args["only_main_content"]; ok {
			only := request.GetBool("only_main_content", true)
			raw.OnlyMainContent = &only
		}
	}
	return raw
}

func handleScrapeURL(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		res, err := c.Scrape(ctx, models.ScrapeRequest{URL: url, RawScrapeOptions: rawOptions(request)})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !res.Success {
			return mcp.NewToolResultError(res.Error), nil
		}
		return mcp.NewToolResultText(renderDocument(res.Document)), nil
	}
}

func handleBatchScrape(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		st, err := c.Batch(ctx, models.BatchRequest{URLs: urls, Options: rawOptions(request)})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(renderBatch(st)), nil
	}
}

// renderDocument formats a document as a metadata header followed by each
// produced format.
func renderDocument(doc *models.ScrapeDocument) string {
	if doc == nil {
		return ""
	}
	m := doc.Metadata
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\nSource: %s\nStatus: %d\n", m.Title, m.SourceURL, m.StatusCode)
	if m.Error != "" {
		fmt.Fprintf(&sb, "Warning: %s\n", m.Error)
	}

	tokens := 0
	for _, f := range []models.Format{models.FormatMarkdown, models.FormatHTML, models.FormatRawHTML} {
		content, ok := doc.Get(f)
		if !ok {
			continue
		}
		if f != models.FormatMarkdown {
			fmt.Fprintf(&sb, "\n--- %s ---", f)
		}
		sb.WriteString("\n")
		sb.WriteString(content)
		sb.WriteString("\n")
		tokens += cleaner.EstimateTokens(content)
	}
	fmt.Fprintf(&sb, "\n---\nTokens: %d", tokens)
	return sb.String()
}

func renderBatch(st *models.BatchStatusResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Batch %s: %s (%d/%d completed)\n\n", st.ID, st.Status, st.Completed, st.Total)
	for i, res := range st.Results {
		if res == nil {
			continue
		}
		if !res.Success {
			fmt.Fprintf(&sb, "--- [%d] %s: FAILED ---\n%s\n\n", i+1, res.ID, res.Error)
			continue
		}
		fmt.Fprintf(&sb, "--- [%d] %s ---\n%s\n\n", i+1, res.ID, renderDocument(res.Document))
	}
	return strings.TrimRight(sb.String(), "\n")
}
