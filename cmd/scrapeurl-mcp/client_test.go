package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/scrapeurl/models"
)

func ptr(s string) *string { return &s }

func TestClientScrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/scrape", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		var req models.ScrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://example.com/missing", req.URL)
		assert.Equal(t, []string{"markdown", "html"}, req.Formats)

		json.NewEncoder(w).Encode(models.ScrapeResult{
			ID:      "x",
			Success: true,
			Document: &models.ScrapeDocument{
				Markdown: ptr("# Not Found"),
				Metadata: models.PageMetadata{Title: "Not Found", SourceURL: req.URL, StatusCode: 404},
			},
		})
	}))
	defer srv.Close()

	c := newClient(srv.URL, "secret")
	res, err := c.Scrape(context.Background(), models.ScrapeRequest{
		URL:              "https://example.com/missing",
		RawScrapeOptions: models.RawScrapeOptions{Formats: []string{"markdown", "html"}},
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 404, res.Document.Metadata.StatusCode)

	out := renderDocument(res.Document)
	assert.Contains(t, out, "Title: Not Found")
	assert.Contains(t, out, "Status: 404")
	assert.Contains(t, out, "# Not Found")
}

func TestClientRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success":false,"error":{"code":"UNAUTHORIZED","message":"invalid API key"}}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, "wrong").Scrape(context.Background(), models.ScrapeRequest{URL: "https://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNAUTHORIZED")
}

func TestClientBatchPolls(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/batch/scrape", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(models.BatchResponse{ID: "batch-1", Status: models.BatchProcessing, Total: 2})
	})
	mux.HandleFunc("/v1/batch/batch-1", func(w http.ResponseWriter, r *http.Request) {
		st := models.BatchStatusResponse{ID: "batch-1", Status: models.BatchProcessing, Total: 2}
		if polls.Add(1) >= 2 {
			st.Status = models.BatchCompleted
			st.Completed = 2
			st.Results = []*models.ScrapeResult{
				{ID: "batch-1-0", Success: true, Document: &models.ScrapeDocument{Markdown: ptr("hello")}},
				{ID: "batch-1-1", Success: false, Error: "[NAVIGATION_FAILED] could not retrieve url"},
			}
		}
		json.NewEncoder(w).Encode(st)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newClient(srv.URL, "k")
	c.pollInterval = 10 * time.Millisecond

	st, err := c.Batch(context.Background(), models.BatchRequest{URLs: []string{"https://a.test", "https://b.test"}})
	require.NoError(t, err)
	assert.Equal(t, models.BatchCompleted, st.Status)
	assert.GreaterOrEqual(t, polls.Load(), int32(2))

	out := renderBatch(st)
	assert.Contains(t, out, "Batch batch-1: completed (2/2 completed)")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "batch-1-1: FAILED")
}

func TestClientBatchCanceled(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/batch/scrape", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(models.BatchResponse{ID: "slow", Status: models.BatchProcessing, Total: 1})
	})
	mux.HandleFunc("/v1/batch/slow", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.BatchStatusResponse{ID: "slow", Status: models.BatchProcessing, Total: 1})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newClient(srv.URL, "k")
	c.pollInterval = 10 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.Batch(ctx, models.BatchRequest{URLs: []string{"https://a.test"}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
