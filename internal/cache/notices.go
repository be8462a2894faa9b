// Package cache holds the in-memory working set of open notices.
// Notices are transient by nature (a digest looks at the last day or
// two of publications), so they live here with a TTL instead of in the
// contracts database.
package cache

import (
	"sync"
	"time"

	"github.com/lucasmv/licita-radar/internal/models"
)

// Clock abstracts time.Now for deterministic expiry tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type entry struct {
	notice   models.Opportunity
	sourceID string
	storedAt time.Time
}

// NoticeCache is a TTL-bound store of open notices keyed by notice ID.
// Re-storing a notice refreshes its timestamp and replaces its payload.
type NoticeCache struct {
	clock Clock
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]entry
}

// NewNoticeCache creates a cache with a 48-hour TTL.
func NewNoticeCache() *NoticeCache {
	return NewNoticeCacheWithClock(realClock{}, 48*time.Hour)
}

// NewNoticeCacheWithClock creates a cache with a custom clock and TTL.
func NewNoticeCacheWithClock(clock Clock, ttl time.Duration) *NoticeCache {
	return &NoticeCache{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// StoreNotices adds or refreshes a batch from one source.
func (c *NoticeCache) StoreNotices(sourceID string, notices []models.Opportunity) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, n := range notices {
		if n.ID == "" {
			continue
		}
		c.entries[n.ID] = entry{notice: n, sourceID: sourceID, storedAt: now}
	}
}

// All returns every live notice. Expired entries are pruned on the way.
func (c *NoticeCache) All() []models.Opportunity {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Opportunity, 0, len(c.entries))
	for id, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, id)
			continue
		}
		out = append(out, e.notice)
	}
	return out
}

// BySource returns live notices ingested from one source.
func (c *NoticeCache) BySource(sourceID string) []models.Opportunity {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var out []models.Opportunity
	for id, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, id)
			continue
		}
		if e.sourceID == sourceID {
			out = append(out, e.notice)
		}
	}
	return out
}

// Get returns one live notice by ID.
func (c *NoticeCache) Get(id string) (models.Opportunity, bool) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok || c.clock.Now().Sub(e.storedAt) > c.ttl {
		return models.Opportunity{}, false
	}
	return e.notice, true
}

// Len reports how many entries are held, expired ones included.
func (c *NoticeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
