package models

import "sync"

// Batch job states.
const (
	BatchProcessing = "processing"
	BatchCompleted  = "completed"
)

// BatchRequest is the payload for POST /v1/batch/scrape.
type BatchRequest struct {
	// URLs is the list of target pages to scrape. Required.
	URLs []string `json:"urls" binding:"required,min=1,dive,url"`

	// Options contains shared scrape options applied to all URLs.
	Options RawScrapeOptions `json:"options"`

	// Webhook receives a signed batch.completed event when every URL is done.
	Webhook *WebhookTarget `json:"webhook,omitempty"`
}

// WebhookTarget describes where batch events are delivered.
type WebhookTarget struct {
	URL    string `json:"url" binding:"required,url"`
	Secret string `json:"secret,omitempty"`
}

// BatchResponse is the immediate response for POST /v1/batch/scrape.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /v1/batch/:id.
type BatchStatusResponse struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Completed int             `json:"completed"`
	Total     int             `json:"total"`
	Results   []*ScrapeResult `json:"results,omitempty"`
}

// BatchJob tracks an in-progress batch scrape operation.
type BatchJob struct {
	ID        string
	Total     int
	CreatedAt int64 // unix timestamp

	mu        sync.Mutex
	completed int
	results   []*ScrapeResult
}

// NewBatchJob allocates a job with one result slot per URL.
func NewBatchJob(id string, total int, createdAt int64) *BatchJob {
	return &BatchJob{
		ID:        id,
		Total:     total,
		CreatedAt: createdAt,
		results:   make([]*ScrapeResult, total),
	}
}

// Complete stores the result for slot i and reports whether the whole
// batch is now done.
func (j *BatchJob) Complete(i int, res *ScrapeResult) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results[i] = res
	j.completed++
	return j.completed == j.Total
}

// Snapshot returns a consistent status view of the job.
func (j *BatchJob) Snapshot() BatchStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	status := BatchProcessing
	if j.completed == j.Total {
		status = BatchCompleted
	}
	results := make([]*ScrapeResult, 0, j.completed)
	for _, r := range j.results {
		if r != nil {
			results = append(results, r)
		}
	}
	return BatchStatusResponse{
		ID:        j.ID,
		Status:    status,
		Completed: j.completed,
		Total:     j.Total,
		Results:   results,
	}
}
