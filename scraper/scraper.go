// Package scraper drives one URL through the extraction pipeline:
// fetch, classify, branch by content type, select, convert, extract
// metadata and assemble.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/use-agent/scrapeurl/cleaner"
	"github.com/use-agent/scrapeurl/engine"
	"github.com/use-agent/scrapeurl/metrics"
	"github.com/use-agent/scrapeurl/models"
	"github.com/use-agent/scrapeurl/scrapelog"
)

// Fetcher retrieves raw content. A non-nil error means no response was
// obtained; any HTTP status is returned as a result.
type Fetcher interface {
	Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error)
}

// Scraper runs scrapes. It holds no per-request state, so one Scraper
// serves any number of concurrent Run calls.
type Scraper struct {
	fetcher    Fetcher
	cleaner    *cleaner.Cleaner
	logHandler slog.Handler
	logLimit   int
	maxTimeout time.Duration
	stealth    bool
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithLogHandler sets the process handler every scrape log is forwarded to.
func WithLogHandler(h slog.Handler) Option {
	return func(s *Scraper) { s.logHandler = h }
}

// WithLogLimit bounds the number of log entries kept per scrape.
func WithLogLimit(n int) Option {
	return func(s *Scraper) { s.logLimit = n }
}

// WithMaxTimeout caps the per-scrape timeout.
func WithMaxTimeout(d time.Duration) Option {
	return func(s *Scraper) { s.maxTimeout = d }
}

// WithStealth asks the fetcher to mask automation on every request.
func WithStealth(on bool) Option {
	return func(s *Scraper) { s.stealth = on }
}

// New creates a Scraper fetching through f.
func New(f Fetcher, opts ...Option) *Scraper {
	metrics.Init()
	s := &Scraper{
		fetcher:    f,
		cleaner:    cleaner.NewCleaner(),
		logHandler: slog.Default().Handler(),
		logLimit:   scrapelog.DefaultLimit,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run scrapes rawURL and returns the result attributed to id. It never
// panics and never returns nil: every failure ends in a ScrapeResult with
// Success=false, every retrieved response in one with Success=true.
func (s *Scraper) Run(ctx context.Context, id, rawURL string, opts models.ScrapeOptions) *models.ScrapeResult {
	start := time.Now()
	col := scrapelog.New(id, s.logHandler, scrapelog.WithLimit(s.logLimit))
	r := &run{
		s:    s,
		id:   id,
		url:  rawURL,
		opts: opts,
		col:  col,
		log:  col.Logger(),
	}

	res := r.execute(ctx)

	outcome := metrics.OutcomeFailure
	status := 0
	if res.Success {
		outcome = metrics.OutcomeSuccess
		status = res.Document.Metadata.StatusCode
		if res.Document.Metadata.Error != "" {
			outcome = metrics.OutcomeDegraded
		}
	}
	elapsed := time.Since(start)
	r.stage("done").Info("scrape finished",
		"success", res.Success, "elapsed_ms", elapsed.Milliseconds())
	metrics.ObserveScrape(outcome, r.branch, status, elapsed)
	metrics.ObserveLogDrops(col.Dropped())

	res.Logs = col.Entries()
	return res
}

// run is the state of a single scrape. It is owned by one goroutine.
type run struct {
	s      *Scraper
	id     string
	url    string
	opts   models.ScrapeOptions
	col    *scrapelog.Collector
	log    *slog.Logger
	branch string

	// doc is the document under construction; a recovered panic keeps it
	// when it already holds output.
	doc *models.ScrapeDocument
}

func (r *run) stage(name string) *slog.Logger {
	return r.log.With(scrapelog.StageKey, name)
}

func (r *run) execute(ctx context.Context) (res *models.ScrapeResult) {
	defer func() {
		if p := recover(); p != nil {
			res = r.salvage(p)
		}
	}()

	log := r.stage("options")
	if !r.opts.Valid() {
		log.Error("scrape options were not validated")
		return r.fail(models.NewScrapeError(models.ErrCodeInvalidInput, "invalid scrape options", nil))
	}
	if u, err := url.Parse(r.url); err != nil || !u.IsAbs() || u.Host == "" {
		log.Error("url is not absolute", "url", r.url)
		return r.fail(models.NewScrapeError(models.ErrCodeInvalidInput, "url must be absolute", err))
	}

	timeout := r.opts.Timeout()
	if r.s.maxTimeout > 0 && timeout > r.s.maxTimeout {
		log.Warn("timeout clamped", "requested_ms", timeout.Milliseconds(), "max_ms", r.s.maxTimeout.Milliseconds())
		timeout = r.s.maxTimeout
	}
	log.Debug("options accepted",
		"formats", fmt.Sprint(r.opts.Formats()),
		"onlyMainContent", r.opts.OnlyMainContent(),
		"excludeTags", len(r.opts.ExcludeTags()),
		"timeout_ms", timeout.Milliseconds())

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome := r.fetch(ctx, timeout)

	verdict := Classify(outcome)
	log = r.stage("classify")
	if verdict.Kind == HardFailure {
		log.Error("no response obtained", "error", outcome.TransportError)
		return r.fail(categorize(outcome.TransportError))
	}
	switch {
	case outcome.TransportError != nil:
		log.Warn("response obtained despite transport error", "status", verdict.StatusCode, "error", outcome.TransportError)
	case verdict.StatusCode >= 400:
		log.Warn("origin returned an error status", "status", verdict.StatusCode)
	default:
		log.Info("response obtained", "status", verdict.StatusCode)
	}

	p := detectPayload(outcome)
	r.branch = p.branch()
	r.stage("branch").Debug("content branch chosen",
		"branch", r.branch, "contentType", outcome.ContentType, "bytes", len(outcome.Body))

	var (
		doc *models.ScrapeDocument
		err *models.ScrapeError
	)
	switch p := p.(type) {
	case pdfPayload:
		doc, err = r.pdfBranch(p, verdict.StatusCode)
	case htmlPayload:
		doc, err = r.htmlBranch(p, verdict.StatusCode)
	}
	if err != nil {
		return r.fail(err)
	}
	return r.succeed(doc)
}

// salvage turns a recovered fault into a result: the partial document with
// a soft error when it holds output, a hard INTERNAL_ERROR otherwise.
func (r *run) salvage(p any) *models.ScrapeResult {
	r.stage("recover").Error("unexpected fault", "panic", fmt.Sprint(p))
	if r.doc != nil && hasOutput(r.doc) {
		r.doc.Metadata.Error = appendError(r.doc.Metadata.Error, fmt.Sprintf("internal error: %v", p))
		return r.succeed(r.doc)
	}
	return r.fail(models.NewScrapeError(models.ErrCodeInternal, "internal error", fmt.Errorf("%v", p)))
}

// fetch asks the fetcher for the page. When ctx ends first the call is
// abandoned and the outcome carries the context error.
func (r *run) fetch(ctx context.Context, timeout time.Duration) models.FetchOutcome {
	log := r.stage("fetch")
	log.Info("fetching", "url", r.url)

	type reply struct {
		res *engine.FetchResult
		err error
	}
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- reply{err: fmt.Errorf("fetcher panic: %v", p)}
			}
		}()
		res, err := r.s.fetcher.Fetch(ctx, &engine.FetchRequest{
			URL:     r.url,
			Timeout: timeout,
			Stealth: r.s.stealth,
			Logger:  log,
		})
		done <- reply{res: res, err: err}
	}()

	var rep reply
	select {
	case rep = <-done:
	case <-ctx.Done():
		log.Error("fetch abandoned", "error", ctx.Err())
		return models.FetchOutcome{TransportError: ctx.Err()}
	}

	if rep.err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(rep.err, ctxErr) {
			rep.err = fmt.Errorf("%w: %w", ctxErr, rep.err)
		}
		log.Error("fetch failed", "error", rep.err)
		return models.FetchOutcome{TransportError: rep.err}
	}
	if rep.res == nil {
		return models.FetchOutcome{TransportError: errors.New("fetcher returned no result")}
	}

	log.Info("fetched",
		"engine", rep.res.EngineName,
		"status", rep.res.StatusCode,
		"bytes", len(rep.res.Body),
		"finalURL", rep.res.FinalURL)
	return models.FetchOutcome{
		ContentType: rep.res.ContentType,
		Body:        rep.res.Body,
		StatusCode:  rep.res.StatusCode,
		FinalURL:    rep.res.FinalURL,
		EngineName:  rep.res.EngineName,
	}
}

func (r *run) succeed(doc *models.ScrapeDocument) *models.ScrapeResult {
	return &models.ScrapeResult{ID: r.id, Success: true, Document: doc}
}

func (r *run) fail(err *models.ScrapeError) *models.ScrapeResult {
	return &models.ScrapeResult{ID: r.id, Success: false, Error: err.Error(), Err: err}
}

// categorize maps a transport error onto an error code.
func categorize(err error) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, "scrape timed out", err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "scrape canceled", err)
	case errors.Is(err, engine.ErrBrowserUnavailable):
		return models.NewScrapeError(models.ErrCodeBrowserCrash, "browser unavailable", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, "could not retrieve url", err)
	}
}

func hasOutput(doc *models.ScrapeDocument) bool {
	return doc.Markdown != nil || doc.HTML != nil || doc.RawHTML != nil
}

func appendError(existing, msg string) string {
	if existing == "" {
		return msg
	}
	return existing + "; " + msg
}
