package board

import (
	"sort"
	"strings"
	"sync"

	"campus-orderboard/internal/catalog"
	"campus-orderboard/internal/models"
	"campus-orderboard/internal/store"
)

// Filter narrows the board to one fulfillment counter and/or a search string.
// Zero values match everything.
type Filter struct {
	CounterID string
	Search    string
}

// Projection groups Kanban items by line item status.
type Projection map[string][]models.KanbanItem

// Projector derives the Kanban board view from the aggregate store and the
// catalog cache. It is stateless apart from the memoized last projection,
// which is what gets returned while a drag gesture has the board frozen.
type Projector struct {
	mu      sync.Mutex
	store   *store.AggregateStore
	catalog *catalog.Cache
	last    Projection
}

func NewProjector(st *store.AggregateStore, cat *catalog.Cache) *Projector {
	return &Projector{store: st, catalog: cat, last: Projection{}}
}

// Project computes the grouped, filtered, sorted board. With freeze set it
// returns the last computed projection unchanged, so cards do not relocate
// under the user's cursor mid-gesture. The returned map and its buckets are
// the caller's own copy; later passes and reorders never mutate it.
func (p *Projector) Project(filter Filter, freeze bool) Projection {
	p.mu.Lock()
	defer p.mu.Unlock()

	if freeze {
		return cloneProjection(p.last)
	}

	result := Projection{}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	for _, order := range p.store.Orders() {
		if order.Status == models.OrderCancelled || order.Status == models.OrderCompleted {
			continue
		}
		for _, item := range order.Items {
			if filter.CounterID != "" && item.CounterID != filter.CounterID {
				continue
			}
			if !activeItemStatus(item.Status) {
				continue
			}

			name := item.CatalogItemID
			if p.catalog != nil {
				name = p.catalog.Resolve(item.CatalogItemID)
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(order.ID), search) &&
				!strings.Contains(strings.ToLower(name), search) {
				continue
			}

			result[item.Status] = append(result[item.Status], models.KanbanItem{
				Item:           item,
				OrderID:        order.ID,
				OrderCreatedAt: order.CreatedAt,
				PickupAt:       order.PickupAt,
				StudentName:    order.StudentName,
				DisplayName:    name,
			})
		}
	}

	// Oldest order first within each column: first in, first served.
	for status := range result {
		bucket := result[status]
		sort.SliceStable(bucket, func(i, j int) bool {
			if !bucket[i].OrderCreatedAt.Equal(bucket[j].OrderCreatedAt) {
				return bucket[i].OrderCreatedAt.Before(bucket[j].OrderCreatedAt)
			}
			return bucket[i].OrderID < bucket[j].OrderID
		})
		result[status] = bucket
	}

	p.last = result
	return cloneProjection(result)
}

func cloneProjection(src Projection) Projection {
	cp := make(Projection, len(src))
	for status, bucket := range src {
		cp[status] = append([]models.KanbanItem(nil), bucket...)
	}
	return cp
}

// MoveWithin reorders a card inside one status column of the memoized
// projection. This is ephemeral presentation state only: no store mutation,
// no network call, and the next unfrozen Project pass recomputes the order.
// The card is inserted before the element currently at the drop index.
func (p *Projector) MoveWithin(status string, from, to int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.last[status]
	if from < 0 || from >= len(bucket) || to < 0 || to >= len(bucket) || from == to {
		return
	}

	moved := bucket[from]
	bucket = append(bucket[:from], bucket[from+1:]...)

	rest := make([]models.KanbanItem, 0, len(bucket)+1)
	rest = append(rest, bucket[:to]...)
	rest = append(rest, moved)
	rest = append(rest, bucket[to:]...)
	p.last[status] = rest
}

func activeItemStatus(status string) bool {
	for _, s := range models.ItemStatuses {
		if s == status {
			return true
		}
	}
	return false
}
