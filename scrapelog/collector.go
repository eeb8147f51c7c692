// Package scrapelog correlates log output with the scrape that produced it.
//
// Each scrape owns a Collector. Stages log through the *slog.Logger it
// hands out; every record is stamped with the scrape id, appended to the
// collector's buffer and forwarded to the process-wide handler. Nothing is
// shared between collectors except that downstream handler, so concurrent
// scrapes never see each other's entries.
package scrapelog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/scrapeurl/models"
)

// DefaultLimit is the per-scrape buffer size used when none is configured.
const DefaultLimit = 512

// StageKey is the attribute key that names the pipeline stage.
const StageKey = "stage"

// IDKey is the attribute key stamped on forwarded records.
const IDKey = "scrapeId"

// Collector buffers the log entries of one scrape.
type Collector struct {
	scrapeID string
	next     slog.Handler
	limit    int
	minLevel slog.Level
	now      func() time.Time

	mu      sync.Mutex
	entries []models.LogEntry
	dropped int
}

// Option configures a Collector.
type Option func(*Collector)

// WithLimit bounds the number of buffered entries.
func WithLimit(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithLevel sets the lowest level kept in the buffer.
func WithLevel(l slog.Level) Option {
	return func(c *Collector) { c.minLevel = l }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// New creates a Collector for scrapeID. next receives every record after
// it has been buffered; nil discards them.
func New(scrapeID string, next slog.Handler, opts ...Option) *Collector {
	c := &Collector{
		scrapeID: scrapeID,
		next:     next,
		limit:    DefaultLimit,
		minLevel: slog.LevelDebug,
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ScrapeID returns the id every entry is attributed to.
func (c *Collector) ScrapeID() string { return c.scrapeID }

// Logger returns a logger writing to this collector.
func (c *Collector) Logger() *slog.Logger {
	h := &handler{c: c}
	if c.next != nil {
		h.next = c.next.WithAttrs([]slog.Attr{slog.String(IDKey, c.scrapeID)})
	}
	return slog.New(h)
}

// Record appends an entry directly, bypassing slog.
func (c *Collector) Record(level slog.Level, stage, message string) {
	c.append(level, stage, message, c.now())
}

// Entries returns a copy of the buffered entries in emission order. If the
// buffer overflowed, a trailing warning reports how many entries were lost.
func (c *Collector) Entries() []models.LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.LogEntry, len(c.entries), len(c.entries)+1)
	copy(out, c.entries)
	if c.dropped > 0 {
		out = append(out, models.LogEntry{
			ScrapeID:  c.scrapeID,
			Level:     slog.LevelWarn,
			Stage:     "log",
			Message:   fmt.Sprintf("log buffer full, dropped %d entries", c.dropped),
			Timestamp: c.now(),
		})
	}
	return out
}

// Dropped reports how many entries did not fit in the buffer.
func (c *Collector) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *Collector) append(level slog.Level, stage, message string, ts time.Time) {
	if level < c.minLevel {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.limit {
		c.dropped++
		return
	}
	c.entries = append(c.entries, models.LogEntry{
		ScrapeID:  c.scrapeID,
		Level:     level,
		Stage:     stage,
		Message:   message,
		Timestamp: ts,
	})
}

// handler is the slog.Handler view of a Collector.
type handler struct {
	c       *Collector
	next    slog.Handler
	stage   string
	attrs   []slog.Attr
	grouped bool
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= h.c.minLevel {
		return true
	}
	return h.next != nil && h.next.Enabled(ctx, level)
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	stage := h.stage
	var b strings.Builder
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == StageKey && !h.grouped {
			stage = a.Value.String()
			return true
		}
		writeAttr(&b, a)
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = h.c.now()
	}
	h.c.append(r.Level, stage, b.String(), ts)

	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := h.clone()
	for _, a := range attrs {
		if a.Key == StageKey && !h.grouped {
			nh.stage = a.Value.String()
			continue
		}
		nh.attrs = append(nh.attrs, a)
	}
	if h.next != nil {
		nh.next = h.next.WithAttrs(attrs)
	}
	return nh
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := h.clone()
	nh.grouped = true
	if h.next != nil {
		nh.next = h.next.WithGroup(name)
	}
	return nh
}

func (h *handler) clone() *handler {
	return &handler{
		c:       h.c,
		next:    h.next,
		stage:   h.stage,
		attrs:   append([]slog.Attr(nil), h.attrs...),
		grouped: h.grouped,
	}
}

func writeAttr(b *strings.Builder, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	b.WriteByte(' ')
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(a.Value.Resolve().String())
}
