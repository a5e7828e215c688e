package cache

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"budgetflow/internal/core"
)

// ReportCache stores execution reports by period and view mode. Concurrent
// misses for the same key share one computation.
//
// Invalidation bumps a generation counter. A computation that started before
// an invalidation of its period still answers its callers but is not stored.
type ReportCache struct {
	lru   *LRUCache[*core.ExecutionReport]
	group singleflight.Group

	mu       sync.Mutex
	allGen   uint64
	gens     map[string]uint64
	inflight map[string]*flight
}

// flight is one running computation and the generation it started at.
type flight struct {
	periodID    string
	all, period uint64
}

func NewReportCache(maxSize int, ttl time.Duration) *ReportCache {
	return &ReportCache{
		lru:      NewLRUCache[*core.ExecutionReport](maxSize, ttl),
		gens:     make(map[string]uint64),
		inflight: make(map[string]*flight),
	}
}

func reportKey(periodID string, mode core.ViewMode) string {
	return periodID + "|" + string(mode)
}

// GetOrCompute returns the cached report or calls compute once for all
// concurrent callers. Errors are not cached. The bool reports a cache hit.
func (c *ReportCache) GetOrCompute(periodID string, mode core.ViewMode, compute func() (*core.ExecutionReport, error)) (*core.ExecutionReport, bool, error) {
	key := reportKey(periodID, mode)
	if r, ok := c.lru.Get(key); ok {
		return r, true, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		f := c.begin(key, periodID)
		r, err := compute()
		c.finish(key, f, r, err)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*core.ExecutionReport), false, nil
}

func (c *ReportCache) begin(key, periodID string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := &flight{periodID: periodID, all: c.allGen, period: c.gens[periodID]}
	c.inflight[key] = f
	return f
}

// finish stores r only when no invalidation touched the period since begin.
// The check and the store happen under c.mu so an invalidation either sees
// the entry and deletes it or makes the check fail.
func (c *ReportCache) finish(key string, f *flight, r *core.ExecutionReport, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[key] == f {
		delete(c.inflight, key)
	}
	if err != nil {
		return
	}
	if f.all == c.allGen && f.period == c.gens[f.periodID] {
		c.lru.Set(key, r)
	}
}

// InvalidatePeriod drops every view of a period and returns how many
// entries were removed. Computations of the period already running are
// detached, so later callers compute afresh.
func (c *ReportCache) InvalidatePeriod(periodID string) int {
	c.mu.Lock()
	c.gens[periodID]++
	for key, f := range c.inflight {
		if f.periodID == periodID {
			c.group.Forget(key)
			delete(c.inflight, key)
		}
	}
	c.mu.Unlock()

	prefix := periodID + "|"
	return c.lru.DeleteMatching(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// InvalidateAll empties the cache and detaches every running computation.
func (c *ReportCache) InvalidateAll() int {
	c.mu.Lock()
	c.allGen++
	// allGen alone now rejects older computations; per-period counters can restart.
	c.gens = make(map[string]uint64)
	for key := range c.inflight {
		c.group.Forget(key)
	}
	c.inflight = make(map[string]*flight)
	c.mu.Unlock()

	return c.lru.DeleteMatching(func(string) bool { return true })
}

func (c *ReportCache) CleanExpired() int {
	return c.lru.CleanExpired()
}

func (c *ReportCache) Size() int {
	return c.lru.Size()
}
