package store

import (
	"errors"
	"fmt"
	"sync"

	"campus-orderboard/internal/feed"
	"campus-orderboard/internal/logger"
	"campus-orderboard/internal/models"
)

// AggregateStore is the in-memory source of truth for one board view: order
// id -> Order, each owning its line items in insertion order. All mutation
// goes through the merge and optimistic-transition operations; callers never
// get a pointer into the internal state.
//
// Every merge is idempotent: replaying an event that was already applied
// produces no observable change. That is what makes the at-least-once,
// unordered change feed safe to consume.
type AggregateStore struct {
	mu     sync.RWMutex
	orders map[string]*models.Order
	logger *logger.Logger
}

func NewAggregateStore(log *logger.Logger) *AggregateStore {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &AggregateStore{
		orders: make(map[string]*models.Order),
		logger: log,
	}
}

// Seed replaces the store contents with the result of a bulk fetch.
func (s *AggregateStore) Seed(orders []models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = make(map[string]*models.Order, len(orders))
	for i := range orders {
		o := orders[i].Clone()
		if o.Items == nil {
			o.Items = []models.LineItem{}
		}
		s.orders[o.ID] = o
	}
}

// Apply dispatches a change event to the right merge operation. Catalog
// events are not the store's concern and are ignored.
func (s *AggregateStore) Apply(ev *feed.ChangeEvent) {
	if ev == nil {
		return
	}
	switch ev.Entity {
	case feed.EntityOrder:
		s.MergeOrder(ev)
	case feed.EntityLineItem:
		s.MergeItem(ev)
	}
}

// MergeOrder applies an order-level change event.
//
// Insert appends if the id is absent and is a no-op otherwise. Update
// overlays only the fields present in the payload, preserving the existing
// items list when the payload omits it; an update for an unknown order is
// treated as an insert, which covers feed events racing the bulk load.
// Delete removes by id.
func (s *AggregateStore) MergeOrder(ev *feed.ChangeEvent) {
	if ev == nil || ev.Order == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	patch := ev.Order
	switch ev.Op {
	case feed.OpInsert:
		if _, exists := s.orders[patch.ID]; exists {
			return
		}
		s.orders[patch.ID] = orderFromPatch(patch)
	case feed.OpUpdate:
		existing, exists := s.orders[patch.ID]
		if !exists {
			s.orders[patch.ID] = orderFromPatch(patch)
			return
		}
		overlayOrder(existing, patch)
	case feed.OpDelete:
		delete(s.orders, patch.ID)
	}
}

// MergeItem applies a line-item-level change event. If the owning order is
// not in the store the event is a silent no-op: under active filtering the
// order may simply be irrelevant to this view.
func (s *AggregateStore) MergeItem(ev *feed.ChangeEvent) {
	if ev == nil || ev.Item == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	patch := ev.Item
	order, exists := s.orders[patch.OrderID]
	if !exists {
		s.logger.Debug("STORE", fmt.Sprintf("dropping item event %s for absent order %s", patch.ID, patch.OrderID))
		return
	}

	switch ev.Op {
	case feed.OpInsert:
		if order.ItemByID(patch.ID) != nil {
			return
		}
		order.Items = append(order.Items, itemFromPatch(patch))
	case feed.OpUpdate:
		existing := order.ItemByID(patch.ID)
		if existing == nil {
			order.Items = append(order.Items, itemFromPatch(patch))
			return
		}
		overlayItem(existing, patch)
	case feed.OpDelete:
		for i := range order.Items {
			if order.Items[i].ID == patch.ID {
				order.Items = append(order.Items[:i], order.Items[i+1:]...)
				break
			}
		}
	}
}

// Snapshot captures one order's full state for optimistic rollback.
type Snapshot struct {
	Order  *models.Order
	ItemID string
	Prev   string // item status before the optimistic apply
}

// ErrItemNotFound marks a transition against an item no order holds, for
// example one the feed deleted mid-drag.
var ErrItemNotFound = errors.New("item not found")

// ApplyOptimistic mutates the item's status in place and returns a snapshot
// of the owning order taken before the mutation.
func (s *AggregateStore) ApplyOptimistic(itemID, newStatus string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, order := range s.orders {
		item := order.ItemByID(itemID)
		if item == nil {
			continue
		}
		snap := &Snapshot{
			Order:  order.Clone(),
			ItemID: itemID,
			Prev:   item.Status,
		}
		item.Status = newStatus
		return snap, nil
	}
	return nil, fmt.Errorf("item %s: %w", itemID, ErrItemNotFound)
}

// Rollback restores the previously captured order state verbatim. If the
// order was deleted by the feed since the snapshot was taken, the rollback
// resurrects it; the next delete event will remove it again.
func (s *AggregateStore) Rollback(snap *Snapshot) {
	if snap == nil || snap.Order == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[snap.Order.ID] = snap.Order.Clone()
}

// RevertItem restores a single item's status. Bulk transitions use this
// instead of a full-order rollback so one failed sibling cannot clobber
// another's committed success.
func (s *AggregateStore) RevertItem(itemID, prevStatus string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, order := range s.orders {
		if item := order.ItemByID(itemID); item != nil {
			item.Status = prevStatus
			return
		}
	}
}

// Order returns a deep copy of one order.
func (s *AggregateStore) Order(id string) (models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, false
	}
	return *o.Clone(), true
}

// Orders returns deep copies of every order. The slice order is unspecified;
// projections sort on their own.
func (s *AggregateStore) Orders() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o.Clone())
	}
	return out
}

// FindItem returns a copy of one line item and its owning order id.
func (s *AggregateStore) FindItem(itemID string) (models.LineItem, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, order := range s.orders {
		if item := order.ItemByID(itemID); item != nil {
			return *item, id, true
		}
	}
	return models.LineItem{}, "", false
}

// Len reports the number of orders held.
func (s *AggregateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func orderFromPatch(patch *feed.OrderPatch) *models.Order {
	o := &models.Order{ID: patch.ID, Items: []models.LineItem{}}
	overlayOrder(o, patch)
	return o
}

func overlayOrder(o *models.Order, patch *feed.OrderPatch) {
	if patch.VendorID != nil {
		o.VendorID = *patch.VendorID
	}
	if patch.StudentID != nil {
		o.StudentID = *patch.StudentID
	}
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.Subtotal != nil {
		o.Subtotal = *patch.Subtotal
	}
	if patch.Tax != nil {
		o.Tax = *patch.Tax
	}
	if patch.Total != nil {
		o.Total = *patch.Total
	}
	if patch.PaymentMethod != nil {
		o.PaymentMethod = *patch.PaymentMethod
	}
	if patch.StudentName != nil {
		o.StudentName = *patch.StudentName
	}
	if patch.StudentEmail != nil {
		o.StudentEmail = *patch.StudentEmail
	}
	if patch.CreatedAt != nil {
		o.CreatedAt = *patch.CreatedAt
	}
	if patch.UpdatedAt != nil {
		o.UpdatedAt = *patch.UpdatedAt
	}
	if patch.PickupAt != nil {
		o.PickupAt = *patch.PickupAt
	}
	if patch.ReadyAt != nil {
		o.ReadyAt = *patch.ReadyAt
	}
	if patch.Items != nil {
		items := make([]models.LineItem, len(patch.Items))
		copy(items, patch.Items)
		o.Items = items
	}
}

func itemFromPatch(patch *feed.ItemPatch) models.LineItem {
	item := models.LineItem{ID: patch.ID, OrderID: patch.OrderID}
	overlayItem(&item, patch)
	return item
}

func overlayItem(item *models.LineItem, patch *feed.ItemPatch) {
	if patch.CatalogItemID != nil {
		item.CatalogItemID = *patch.CatalogItemID
	}
	if patch.CounterID != nil {
		item.CounterID = *patch.CounterID
	}
	if patch.Quantity != nil {
		item.Quantity = *patch.Quantity
	}
	if patch.Price != nil {
		item.Price = *patch.Price
	}
	if patch.Instructions != nil {
		item.Instructions = *patch.Instructions
	}
	if patch.Status != nil {
		item.Status = *patch.Status
	}
	if patch.CounterName != nil {
		item.CounterName = *patch.CounterName
	}
}
