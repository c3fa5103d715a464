package prices

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/portfoyapp/portfoy/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Refresher builds a fresh price table for a symbol set.
type Refresher interface {
	Refresh(ctx context.Context, symbols []string) (*domain.PriceTable, error)
}

// Result is what the cache hands back for a price request.
type Result struct {
	Table  *domain.PriceTable `json:"data"`
	Cached bool               `json:"cached"`
	Stale  bool               `json:"stale,omitempty"`
}

// Cache holds the process-wide price table. The table is replaced wholesale
// on refresh and concurrent identical refreshes are coalesced into a single
// upstream call, so two simultaneous cache misses cannot trigger two fetches.
type Cache struct {
	refresher Refresher
	now       func() time.Time
	log       zerolog.Logger

	group singleflight.Group

	mu    sync.RWMutex
	table *domain.PriceTable
}

// NewCache creates a price cache. The clock is injected so expiry behavior is
// testable; pass time.Now in production.
func NewCache(refresher Refresher, now func() time.Time, log zerolog.Logger) *Cache {
	return &Cache{
		refresher: refresher,
		now:       now,
		log:       log.With().Str("component", "price_cache").Logger(),
	}
}

// Current returns the cached table, which may be nil or expired.
func (c *Cache) Current() *domain.PriceTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

// GetOrRefresh serves a price request from cache when possible.
//
// With no symbols requested, a non-expired cache is returned as-is. With
// symbols requested, the cache satisfies the request when every symbol
// already has an entry - a table serves any subset of its known symbols.
// Otherwise a full refresh runs over exactly the requested set; the new table
// contains only those symbols ("last requested set wins", not an LRU merge).
func (c *Cache) GetOrRefresh(ctx context.Context, symbols []string) (Result, error) {
	if table := c.Current(); c.isFresh(table) {
		if len(symbols) == 0 || table.HasAll(symbols) {
			c.log.Debug().Int("symbols", len(symbols)).Msg("Cache hit")
			return Result{Table: table, Cached: true}, nil
		}
	}
	return c.refresh(ctx, symbols)
}

// ForceRefresh always rebuilds the table, bypassing cache-hit checks.
// Concurrent identical refreshes are still coalesced.
func (c *Cache) ForceRefresh(ctx context.Context, symbols []string) (Result, error) {
	return c.refresh(ctx, symbols)
}

func (c *Cache) refresh(ctx context.Context, symbols []string) (Result, error) {
	table, err, _ := c.group.Do(refreshKey(symbols), func() (interface{}, error) {
		fresh, err := c.refresher.Refresh(ctx, symbols)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.table = fresh
		c.mu.Unlock()
		return fresh, nil
	})

	if err != nil {
		// Adapters contain their own failures, so a refresh error is rare.
		// Serve the last good table marked stale if we have one; the
		// dashboard always renders with the best data available.
		if prev := c.Current(); prev != nil {
			c.log.Warn().Err(err).Msg("Refresh failed, serving stale price table")
			return Result{Table: prev, Cached: true, Stale: true}, nil
		}
		return Result{}, fmt.Errorf("failed to fetch prices: %w", err)
	}

	return Result{Table: table.(*domain.PriceTable), Cached: false}, nil
}

func (c *Cache) isFresh(table *domain.PriceTable) bool {
	return table != nil && c.now().Before(table.ExpiresAt)
}

// refreshKey builds the single-flight key: identical symbol sets share one
// in-flight refresh regardless of request order.
func refreshKey(symbols []string) string {
	if len(symbols) == 0 {
		return "*"
	}
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
