package cache

import (
	"testing"
	"time"

	"github.com/lucasmv/licita-radar/internal/models"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func notice(id string) models.Opportunity {
	return models.Opportunity{ID: id, ObjectDescription: "aquisição de equipamentos"}
}

func TestStoreAndGet(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewNoticeCacheWithClock(clock, time.Hour)

	c.StoreNotices("pncp_editais", []models.Opportunity{notice("a"), notice("b")})

	if _, ok := c.Get("a"); !ok {
		t.Fatal("notice a should be live")
	}
	if got := len(c.All()); got != 2 {
		t.Fatalf("expected 2 live notices, got %d", got)
	}
}

func TestExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewNoticeCacheWithClock(clock, time.Hour)

	c.StoreNotices("pncp_editais", []models.Opportunity{notice("a")})
	clock.Advance(61 * time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Error("expired notice must not be returned")
	}
	if got := len(c.All()); got != 0 {
		t.Errorf("expected no live notices, got %d", got)
	}
	if c.Len() != 0 {
		t.Errorf("All should prune expired entries, %d left", c.Len())
	}
}

func TestRestoreRefreshesTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewNoticeCacheWithClock(clock, time.Hour)

	c.StoreNotices("pncp_editais", []models.Opportunity{notice("a")})
	clock.Advance(50 * time.Minute)
	c.StoreNotices("pncp_editais", []models.Opportunity{notice("a")})
	clock.Advance(50 * time.Minute)

	if _, ok := c.Get("a"); !ok {
		t.Error("refreshed notice should still be live")
	}
}

func TestBySource(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewNoticeCacheWithClock(clock, time.Hour)

	c.StoreNotices("pncp_editais", []models.Opportunity{notice("a")})
	c.StoreNotices("bec_sp", []models.Opportunity{notice("b"), notice("c")})

	if got := len(c.BySource("bec_sp")); got != 2 {
		t.Errorf("expected 2 notices from bec_sp, got %d", got)
	}
	if got := len(c.BySource("pncp_editais")); got != 1 {
		t.Errorf("expected 1 notice from pncp_editais, got %d", got)
	}
}

func TestStoreIgnoresEmptyIDs(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewNoticeCacheWithClock(clock, time.Hour)

	c.StoreNotices("pncp_editais", []models.Opportunity{{ObjectDescription: "sem id"}})
	if c.Len() != 0 {
		t.Errorf("notice without ID must be ignored, got %d entries", c.Len())
	}
}
