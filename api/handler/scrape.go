package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/use-agent/scrapeurl/cache"
	"github.com/use-agent/scrapeurl/models"
	"github.com/use-agent/scrapeurl/scrapelog"
)

// Runner runs one scrape. *scraper.Scraper satisfies it.
type Runner interface {
	Run(ctx context.Context, id, url string, opts models.ScrapeOptions) *models.ScrapeResult
}

// Scrape returns a handler for POST /v1/scrape.
//
//  1. Bind the body and validate options into models.ScrapeOptions.
//  2. Serve from cache when maxAge allows it.
//  3. Run the scrape under a fresh id.
//  4. Cache clean documents, then respond: 200 for every successful
//     scrape whatever the origin status, an error status for hard failures.
func Scrape(sc Runner, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondInvalid(c, err)
			return
		}
		opts, err := models.ParseOptions(req.RawScrapeOptions)
		if err != nil {
			respondInvalid(c, err)
			return
		}

		id := uuid.NewString()
		maxAge := time.Duration(req.MaxAge) * time.Millisecond
		var key string
		if cc != nil && maxAge > 0 {
			key = cache.Key(req.URL, opts)
			if doc, hit := cc.Get(key, maxAge); hit {
				c.Header("X-Cache", "hit")
				c.JSON(http.StatusOK, cachedResult(id, doc))
				return
			}
		}

		res := sc.Run(c.Request.Context(), id, req.URL, opts)
		if !res.Success {
			c.JSON(mapErrorToStatus(res.Err), res)
			return
		}

		if key != "" {
			if res.Document.Metadata.Error == "" {
				cc.Set(key, res.Document)
			}
			c.Header("X-Cache", "miss")
		}
		c.JSON(http.StatusOK, res)
	}
}

// cachedResult wraps a cached document in a result of its own, with a log
// sequence attributed to the new id.
func cachedResult(id string, doc *models.ScrapeDocument) *models.ScrapeResult {
	col := scrapelog.New(id, slog.Default().Handler())
	col.Logger().Info("served from cache",
		scrapelog.StageKey, "cache", "sourceURL", doc.Metadata.SourceURL)
	return &models.ScrapeResult{
		ID:       id,
		Success:  true,
		Document: doc,
		Logs:     col.Entries(),
	}
}

func respondInvalid(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, &models.ScrapeResult{
		Success: false,
		Logs:    []models.LogEntry{},
		Error:   models.NewScrapeError(models.ErrCodeInvalidInput, "invalid request", err).Error(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	if e == nil {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeBrowserCrash:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}
