package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/use-agent/scrapeurl/models"
)

// client talks to the scrapeurl HTTP API.
type client struct {
	baseURL      string
	apiKey       string
	http         *http.Client
	pollInterval time.Duration
}

func newClient(baseURL, apiKey string) *client {
	return &client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		http:         &http.Client{Timeout: 10 * time.Minute},
		pollInterval: 2 * time.Second,
	}
}

// apiError is the envelope used by middleware rejections (auth, rate limit).
type apiError struct {
	Success bool                `json:"success"`
	Error   *models.ErrorDetail `json:"error"`
}

func (c *client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// rejection turns a middleware error envelope into an error, or returns
// nil when body is not one.
func rejection(status int, body []byte) error {
	if status != http.StatusUnauthorized && status != http.StatusTooManyRequests {
		return nil
	}
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil || e.Error == nil {
		return fmt.Errorf("API returned status %d", status)
	}
	return fmt.Errorf("[%s] %s", e.Error.Code, e.Error.Message)
}

// Scrape posts a single scrape and decodes the result. Error statuses
// from the origin still produce a result with Success=true.
func (c *client) Scrape(ctx context.Context, req models.ScrapeRequest) (*models.ScrapeResult, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/v1/scrape", req)
	if err != nil {
		return nil, err
	}
	if err := rejection(status, body); err != nil {
		return nil, err
	}
	var res models.ScrapeResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &res, nil
}

// Batch submits a batch job and polls it until every URL is done or ctx
// ends.
func (c *client) Batch(ctx context.Context, req models.BatchRequest) (*models.BatchStatusResponse, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/v1/batch/scrape", req)
	if err != nil {
		return nil, err
	}
	if err := rejection(status, body); err != nil {
		return nil, err
	}
	if status != http.StatusAccepted {
		var e apiError
		if json.Unmarshal(body, &e) == nil && e.Error != nil {
			return nil, fmt.Errorf("batch rejected: [%s] %s", e.Error.Code, e.Error.Message)
		}
		return nil, fmt.Errorf("batch rejected with status %d", status)
	}

	var job models.BatchResponse
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("parse batch response: %w", err)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("batch job creation failed")
	}
	return c.pollBatch(ctx, job.ID)
}

func (c *client) pollBatch(ctx context.Context, id string) (*models.BatchStatusResponse, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			status, body, err := c.do(ctx, http.MethodGet, "/v1/batch/"+id, nil)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}
			if err := rejection(status, body); err != nil {
				return nil, err
			}
			if status != http.StatusOK {
				return nil, fmt.Errorf("poll returned status %d", status)
			}
			var st models.BatchStatusResponse
			if err := json.Unmarshal(body, &st); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}
			if st.Status != models.BatchProcessing {
				return &st, nil
			}
		}
	}
}
