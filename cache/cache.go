// Package cache keeps recently scraped documents so callers passing maxAge
// can skip the fetch.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/scrapeurl/models"
)

type entry struct {
	doc       *models.ScrapeDocument
	createdAt time.Time
}

// Cache is an in-memory document cache. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	done       chan struct{}
	once       sync.Once
}

// New creates a Cache holding at most maxEntries documents. Entries older
// than ttl are evicted by a background sweep; call Stop to end it.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	if ttl > 0 {
		go c.cleanupLoop(ttl / 12)
	}
	return c
}

// Key derives a cache key from the URL and every option that changes the
// produced document. Timeout does not, so it is left out.
func Key(url string, opts models.ScrapeOptions) string {
	formats := make([]string, 0, 3)
	for _, f := range opts.Formats() {
		formats = append(formats, string(f))
	}

	h := sha256.New()
	for _, part := range []string{
		url,
		strings.Join(formats, ","),
		strconv.FormatBool(opts.OnlyMainContent()),
		strings.Join(opts.ExcludeTags(), "\x1f"),
		string(opts.ExtractMode()),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the cached document if it is younger than maxAge.
// A non-positive maxAge disables the lookup.
func (c *Cache) Get(key string, maxAge time.Duration) (*models.ScrapeDocument, bool) {
	if maxAge <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.createdAt) > maxAge {
		return nil, false
	}
	return cloneDocument(e.doc), true
}

// Set stores doc. At capacity the oldest entry is evicted.
func (c *Cache) Set(key string, doc *models.ScrapeDocument) {
	if doc == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.store {
			if oldestKey == "" || e.createdAt.Before(oldest) {
				oldestKey, oldest = k, e.createdAt
			}
		}
		delete(c.store, oldestKey)
	}
	c.store[key] = &entry{doc: cloneDocument(doc), createdAt: c.now()}
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Stop ends the background sweep. Safe to call more than once.
func (c *Cache) Stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *Cache) evictExpired() {
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
}

func (c *Cache) cleanupLoop(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

// cloneDocument copies doc so neither the cache nor a caller can mutate
// the other's value.
func cloneDocument(doc *models.ScrapeDocument) *models.ScrapeDocument {
	out := *doc
	for _, f := range []models.Format{models.FormatMarkdown, models.FormatHTML, models.FormatRawHTML} {
		if s, ok := doc.Get(f); ok {
			out.Set(f, s)
		}
	}
	out.Metadata.OGLocaleAlternate = append([]string{}, doc.Metadata.OGLocaleAlternate...)
	return &out
}
