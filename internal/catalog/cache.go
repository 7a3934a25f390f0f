package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"campus-orderboard/internal/feed"
	"campus-orderboard/internal/logger"
	"campus-orderboard/internal/models"
)

// snapshotKey is the redis hash holding id -> display name, shared read-only
// across board views so each one does not have to refetch the full catalog.
const snapshotKey = "orderboard:catalog:names"

// snapshotTTL bounds how stale a shared snapshot can get.
const snapshotTTL = 15 * time.Minute

// missRetry is how long an id a refresh could not resolve stays negative
// before a miss may trigger another refresh. Old line items can reference
// deleted catalog entries forever; without this they would refetch the full
// catalog on every projection pass.
const missRetry = 5 * time.Minute

// Refresher fetches the full catalog from the authoritative service.
type Refresher interface {
	ListCatalogItems(ctx context.Context) ([]models.CatalogItem, error)
}

// Cache is the side mapping of catalog item id -> display name/availability.
// Resolve never blocks: a miss yields a deterministic placeholder immediately
// and schedules one asynchronous full refresh; later calls hit the refreshed
// map with no further action from callers.
type Cache struct {
	mu         sync.RWMutex
	items      map[string]models.CatalogItem
	refreshing bool
	wanted     map[string]struct{} // ids whose misses are waiting on the refresh
	misses     map[string]time.Time

	refresher Refresher
	redis     *redis.Client // optional shared snapshot
	logger    *logger.Logger
}

func NewCache(refresher Refresher, redisClient *redis.Client, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Cache{
		items:     make(map[string]models.CatalogItem),
		wanted:    make(map[string]struct{}),
		misses:    make(map[string]time.Time),
		refresher: refresher,
		redis:     redisClient,
		logger:    log,
	}
}

// Resolve returns the display name for a catalog item, or the placeholder
// "Item <id>" on a miss. The miss schedules a background refresh.
func (c *Cache) Resolve(catalogItemID string) string {
	c.mu.RLock()
	item, ok := c.items[catalogItemID]
	c.mu.RUnlock()
	if ok {
		return item.Name
	}

	c.scheduleRefresh(catalogItemID)
	return fmt.Sprintf("Item %s", catalogItemID)
}

// Available reports whether a catalog item is marked available. Unknown items
// count as available; the POS surface corrects itself once the refresh lands.
func (c *Cache) Available(catalogItemID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[catalogItemID]
	if !ok {
		return true
	}
	return item.Available
}

// Apply consumes a catalog change event from the feed.
func (c *Cache) Apply(ev *feed.ChangeEvent) {
	if ev == nil || ev.Entity != feed.EntityCatalogItem || ev.Catalog == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	patch := ev.Catalog
	switch ev.Op {
	case feed.OpDelete:
		delete(c.items, patch.ID)
	default:
		item, ok := c.items[patch.ID]
		if !ok {
			item = models.CatalogItem{ID: patch.ID, Available: true}
		}
		if patch.Name != nil {
			item.Name = *patch.Name
		}
		if patch.Available != nil {
			item.Available = *patch.Available
		}
		c.items[patch.ID] = item
		delete(c.misses, patch.ID)
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// scheduleRefresh starts at most one background refresh at a time. An id a
// completed refresh already failed to resolve stays negative for missRetry
// and does not trigger another one.
func (c *Cache) scheduleRefresh(catalogItemID string) {
	c.mu.Lock()
	if c.refresher == nil {
		c.mu.Unlock()
		return
	}
	if missedAt, ok := c.misses[catalogItemID]; ok && time.Since(missedAt) < missRetry {
		c.mu.Unlock()
		return
	}
	c.wanted[catalogItemID] = struct{}{}
	if c.refreshing {
		c.mu.Unlock()
		return
	}
	c.refreshing = true
	c.mu.Unlock()

	go c.refresh()
}

// markMisses moves every still-unresolved wanted id into the negative set.
// Runs only after a refresh actually completed; a failed fetch marks nothing.
func (c *Cache) markMisses() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for id := range c.wanted {
		if _, ok := c.items[id]; !ok {
			c.misses[id] = now
		}
		delete(c.wanted, id)
	}
}

func (c *Cache) refresh() {
	defer func() {
		c.mu.Lock()
		c.refreshing = false
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Cheap path first: another view may have published a snapshot already.
	if c.loadSnapshot(ctx) {
		c.markMisses()
		return
	}

	items, err := c.refresher.ListCatalogItems(ctx)
	if err != nil {
		// A failed fetch resolves nothing, so the next miss may retry.
		c.logger.Error("CATALOG", fmt.Sprintf("catalog refresh failed: %v", err))
		return
	}

	c.mu.Lock()
	for _, item := range items {
		c.items[item.ID] = item
	}
	c.mu.Unlock()
	c.markMisses()

	c.logger.Info("CATALOG", fmt.Sprintf("catalog refreshed, %d items", len(items)))
	c.storeSnapshot(ctx, items)
}

func (c *Cache) loadSnapshot(ctx context.Context) bool {
	if c.redis == nil {
		return false
	}
	names, err := c.redis.HGetAll(ctx, snapshotKey).Result()
	if err != nil || len(names) == 0 {
		return false
	}

	c.mu.Lock()
	for id, name := range names {
		item, ok := c.items[id]
		if !ok {
			item = models.CatalogItem{ID: id, Available: true}
		}
		item.Name = name
		c.items[id] = item
	}
	c.mu.Unlock()

	c.logger.Info("CATALOG", fmt.Sprintf("catalog loaded from shared snapshot, %d items", len(names)))
	return true
}

func (c *Cache) storeSnapshot(ctx context.Context, items []models.CatalogItem) {
	if c.redis == nil || len(items) == 0 {
		return
	}
	fields := make(map[string]interface{}, len(items))
	for _, item := range items {
		fields[item.ID] = item.Name
	}
	if err := c.redis.HSet(ctx, snapshotKey, fields).Err(); err != nil {
		c.logger.Warn("CATALOG", fmt.Sprintf("failed to publish catalog snapshot: %v", err))
		return
	}
	c.redis.Expire(ctx, snapshotKey, snapshotTTL)
}
