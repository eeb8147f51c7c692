package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// BrowserOptions configures the shared headless browser.
type BrowserOptions struct {
	Headless     bool
	NoSandbox    bool
	BrowserBin   string
	Proxy        string
	MaxPages     int
	BlockedTypes []string
	BlockAds     bool
}

// Browser owns a headless Chromium process and its reusable page pool.
// It is safe for concurrent use.
type Browser struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	maxPages    int
	blocked     map[proto.NetworkResourceType]struct{}
	blockAds    bool
	activePages atomic.Int32
}

// LaunchBrowser starts a headless browser and initialises the page pool.
func LaunchBrowser(opts BrowserOptions) (*Browser, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox)

	if opts.BrowserBin != "" {
		l = l.Bin(opts.BrowserBin)
	}
	if opts.Proxy != "" {
		l = l.Proxy(opts.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("rod: launch browser: %w", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("rod: connect browser: %w", err)
	}

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	slog.Info("page pool created", "maxPages", maxPages)

	return &Browser{
		browser:  browser,
		pagePool: rod.NewPagePool(maxPages),
		maxPages: maxPages,
		blocked:  blockedSet(opts.BlockedTypes),
		blockAds: opts.BlockAds,
	}, nil
}

// Stats reports pool capacity and the number of pages in use.
func (b *Browser) Stats() (maxPages, active int) {
	return b.maxPages, int(b.activePages.Load())
}

// Close drains the page pool and kills the browser process.
func (b *Browser) Close() {
	slog.Info("browser shutting down: draining page pool")
	b.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	if err := b.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	slog.Info("browser shutdown complete")
}

// RodEngine renders pages in the shared browser. Two instances usually
// exist: "rod" and "rod-stealth", the latter always injecting the stealth
// script.
type RodEngine struct {
	browser      *Browser
	forceStealth bool
	name         string
}

// NewRodEngine creates a RodEngine on top of a launched Browser.
func NewRodEngine(b *Browser, forceStealth bool) *RodEngine {
	name := "rod"
	if forceStealth {
		name = "rod-stealth"
	}
	return &RodEngine{browser: b, forceStealth: forceStealth, name: name}
}

func (e *RodEngine) Name() string { return e.name }

// Fetch navigates a pooled page to req.URL and returns the rendered DOM.
//
// Stealth injection and the hijack router are installed before navigation;
// they only affect navigations that start after them. The deferred cleanup
// uses the page without the request context so it still runs after a
// timeout.
func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if e.browser == nil {
		return nil, fmt.Errorf("%s: %w: not configured", e.name, ErrBrowserUnavailable)
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	log := req.logger().With("engine", e.name)
	b := e.browser
	b.activePages.Add(1)
	defer b.activePages.Add(-1)

	page, err := b.pagePool.Get(func() (*rod.Page, error) {
		return b.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: acquire page: %w", e.name, ErrBrowserUnavailable, err)
	}
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			log.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		b.pagePool.Put(page)
	}()

	if e.forceStealth || req.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			log.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	if headers := requestHeaders(req); len(headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(page)
	}

	if router := setupHijack(page, b.blocked, b.blockAds); router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)
	if err := p.Navigate(req.URL); err != nil {
		return nil, fmt.Errorf("%s: navigate: %w", e.name, err)
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: wait: %w", e.name, ctx.Err())
		}
		log.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}

	html, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("%s: read html: %w", e.name, err)
	}

	// Navigation Timing carries the document status without enabling the
	// Network domain, which conflicts with the hijack router.
	statusCode := 0
	if res, evalErr := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); evalErr == nil {
		statusCode = res.Value.Int()
	}

	contentType := evalString(p, `() => document.contentType`)
	if contentType == "" {
		contentType = "text/html"
	}
	finalURL := evalString(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &FetchResult{
		Body:        []byte(html),
		ContentType: contentType,
		StatusCode:  statusCode,
		FinalURL:    finalURL,
		EngineName:  e.name,
	}, nil
}

// requestHeaders merges caller headers over a search-engine Referer.
func requestHeaders(req *FetchRequest) map[string]string {
	headers := make(map[string]string, len(req.Headers)+1)
	if u, err := url.Parse(req.URL); err == nil && u.Hostname() != "" {
		headers["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
	}
	for k, v := range req.Headers {
		headers[k] = v
	}
	return headers
}

func evalString(p *rod.Page, js string) string {
	res, err := p.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to proto.NetworkHeaders
// (map[string]gson.JSON).
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
