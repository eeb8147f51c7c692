package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/use-agent/scrapeurl/models"
	"github.com/use-agent/scrapeurl/webhook"
	"golang.org/x/sync/errgroup"
)

// Notifier delivers batch events. *webhook.Sender satisfies it.
type Notifier interface {
	DeliverAsync(url, secret string, event *webhook.Event)
}

// BatchStore holds in-flight and finished batch jobs. Finished jobs are
// dropped after their TTL.
type BatchStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.BatchJob
	ttl  time.Duration
	done chan struct{}
	once sync.Once
}

// NewBatchStore creates a store and starts its expiry sweep.
func NewBatchStore(ttl time.Duration) *BatchStore {
	s := &BatchStore{
		jobs: make(map[string]*models.BatchJob),
		ttl:  ttl,
		done: make(chan struct{}),
	}
	if ttl > 0 {
		go s.sweep()
	}
	return s
}

func (s *BatchStore) put(job *models.BatchJob) {
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
}

// Get returns the job with id.
func (s *BatchStore) Get(id string) (*models.BatchJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

// Stop ends the expiry sweep.
func (s *BatchStore) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *BatchStore) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.ttl).Unix()
			s.mu.Lock()
			for id, job := range s.jobs {
				if job.CreatedAt < cutoff {
					delete(s.jobs, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// BatchConfig bounds batch jobs.
type BatchConfig struct {
	MaxURLs     int
	Concurrency int
}

// PostBatch returns a handler for POST /v1/batch/scrape. Options are
// validated once for the whole batch; each URL then runs as its own scrape
// with its own id.
func PostBatch(sc Runner, store *BatchStore, notifier Notifier, cfg BatchConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondDetail(c, http.StatusBadRequest, models.ErrCodeInvalidInput, err.Error())
			return
		}
		if cfg.MaxURLs > 0 && len(req.URLs) > cfg.MaxURLs {
			respondDetail(c, http.StatusBadRequest, models.ErrCodeInvalidInput,
				fmt.Sprintf("maximum %d URLs per batch", cfg.MaxURLs))
			return
		}
		opts, err := models.ParseOptions(req.Options)
		if err != nil {
			respondDetail(c, http.StatusBadRequest, models.ErrCodeInvalidInput, err.Error())
			return
		}

		job := models.NewBatchJob("batch-"+uuid.NewString(), len(req.URLs), time.Now().Unix())
		store.put(job)

		go runBatch(sc, notifier, cfg.Concurrency, job, req, opts)

		c.JSON(http.StatusAccepted, models.BatchResponse{
			ID:     job.ID,
			Status: models.BatchProcessing,
			Total:  job.Total,
		})
	}
}

// GetBatch returns a handler for GET /v1/batch/:id.
func GetBatch(store *BatchStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := store.Get(c.Param("id"))
		if !ok {
			respondDetail(c, http.StatusNotFound, models.ErrCodeNotFound, "batch job not found")
			return
		}
		c.JSON(http.StatusOK, job.Snapshot())
	}
}

// runBatch scrapes every URL of the job with bounded concurrency and fires
// the completion webhook once all results are in.
func runBatch(sc Runner, notifier Notifier, concurrency int, job *models.BatchJob, req models.BatchRequest, opts models.ScrapeOptions) {
	if concurrency <= 0 {
		concurrency = 5
	}

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for i, target := range req.URLs {
		g.Go(func() error {
			id := fmt.Sprintf("%s-%d", job.ID, i)
			job.Complete(i, sc.Run(context.Background(), id, target, opts))
			return nil
		})
	}
	_ = g.Wait()

	snap := job.Snapshot()
	var failed int
	for _, r := range snap.Results {
		if !r.Success {
			failed++
		}
	}
	slog.Info("batch job finished", "id", job.ID, "total", job.Total, "failed", failed)

	if req.Webhook != nil && notifier != nil {
		notifier.DeliverAsync(req.Webhook.URL, req.Webhook.Secret, &webhook.Event{
			Type:      webhook.EventBatchCompleted,
			JobID:     job.ID,
			Timestamp: time.Now().Unix(),
			Data:      snap,
		})
	}
}

func respondDetail(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   models.ErrorDetail{Code: code, Message: msg},
	})
}
