package smt

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/danielpatrickdp/aisp-verify/internal/metrics"
)

// #region store
// Store persists definite verdicts across processes.
type Store interface {
	GetVerdict(ctx context.Context, key string) (Verdict, bool, error)
	PutVerdict(ctx context.Context, key string, mode Mode, v Verdict) error
}

// #endregion store

// #region cache
// Cache is the certificate cache: a concurrent in-memory map in front of
// an optional Store. Only definite verdicts are kept, and a key is never
// overwritten once present.
type Cache struct {
	mu     sync.RWMutex
	mem    map[string]Verdict
	store  Store
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats reports cache counters.
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// NewCache creates a cache. store may be nil.
func NewCache(store Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{mem: map[string]Verdict{}, store: store, logger: logger}
}

// Get looks key up in memory, then in the store. A store hit is promoted
// into memory.
func (c *Cache) Get(ctx context.Context, key string) (Verdict, bool) {
	c.mu.RLock()
	v, ok := c.mem[key]
	c.mu.RUnlock()
	metrics.RecordCacheLookup("memory", ok)
	if ok {
		c.hits.Add(1)
		return v, true
	}
	if c.store != nil {
		sv, found, err := c.store.GetVerdict(ctx, key)
		if err != nil {
			c.logger.Warn("certificate store read failed", "key", key, "error", err)
		}
		metrics.RecordCacheLookup("store", found)
		if found && sv.Value.Definite() {
			c.insert(key, sv)
			c.hits.Add(1)
			return sv, true
		}
	}
	c.misses.Add(1)
	return Verdict{}, false
}

// Put records a definite verdict. Unknown verdicts are ignored.
func (c *Cache) Put(ctx context.Context, key string, mode Mode, v Verdict) {
	if !v.Value.Definite() {
		return
	}
	v.Cached, v.Retried, v.Elapsed = false, false, 0
	if !c.insert(key, v) {
		return
	}
	if c.store != nil {
		if err := c.store.PutVerdict(ctx, key, mode, v); err != nil {
			c.logger.Warn("certificate store write failed", "key", key, "error", err)
		}
	}
}

func (c *Cache) insert(key string, v Verdict) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.mem[key]; exists {
		return false
	}
	c.mem[key] = v
	return true
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	n := len(c.mem)
	c.mu.RUnlock()
	return CacheStats{Entries: n, Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// #endregion cache
