package engine

import (
	"sync"
	"time"
)

type rememberedEngine struct {
	name      string
	expiresAt time.Time
}

// DomainMemory remembers which engine last produced a rendered page for a
// host, so later fetches for that host can skip the race. Entries expire
// after the TTL; a janitor goroutine prunes them.
type DomainMemory struct {
	mu      sync.Mutex
	entries map[string]rememberedEngine
	ttl     time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewDomainMemory creates a DomainMemory with the given TTL. The janitor
// runs every interval; a non-positive interval disables it.
func NewDomainMemory(ttl, interval time.Duration) *DomainMemory {
	dm := &DomainMemory{
		entries: make(map[string]rememberedEngine),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if interval > 0 {
		go dm.janitor(interval)
	}
	return dm
}

// Get returns the remembered engine for host, or "" when absent or expired.
func (dm *DomainMemory) Get(host string) string {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	e, ok := dm.entries[host]
	if !ok {
		return ""
	}
	if dm.now().After(e.expiresAt) {
		delete(dm.entries, host)
		return ""
	}
	return e.name
}

func (dm *DomainMemory) Set(host, engineName string) {
	if host == "" {
		return
	}
	dm.mu.Lock()
	dm.entries[host] = rememberedEngine{name: engineName, expiresAt: dm.now().Add(dm.ttl)}
	dm.mu.Unlock()
}

func (dm *DomainMemory) Delete(host string) {
	dm.mu.Lock()
	delete(dm.entries, host)
	dm.mu.Unlock()
}

// Len returns the number of entries, expired ones included.
func (dm *DomainMemory) Len() int {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return len(dm.entries)
}

// Stop terminates the janitor. Safe to call more than once.
func (dm *DomainMemory) Stop() {
	dm.once.Do(func() { close(dm.done) })
}

func (dm *DomainMemory) prune() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	now := dm.now()
	for host, e := range dm.entries {
		if now.After(e.expiresAt) {
			delete(dm.entries, host)
		}
	}
}

func (dm *DomainMemory) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-dm.done:
			return
		case <-ticker.C:
			dm.prune()
		}
	}
}
