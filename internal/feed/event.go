package feed

import (
	"time"

	"campus-orderboard/internal/models"
)

// Entity identifies which table a change notification is about.
type Entity string

const (
	EntityOrder       Entity = "order"
	EntityLineItem    Entity = "line_item"
	EntityCatalogItem Entity = "catalog_item"
)

// Op is the change-feed operation.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// ChangeEvent is the canonical, typed form of a change-feed notification.
// Exactly one of Order, Item, Catalog is set, matching Entity. Patches carry
// only the fields the wire payload actually contained; merge must never null
// a field the payload omitted.
type ChangeEvent struct {
	Entity Entity
	Op     Op
	Key    string // order id, line item id, or catalog item id

	Order   *OrderPatch
	Item    *ItemPatch
	Catalog *CatalogPatch
}

// OrderPatch is a partial order payload. Nil pointer means "not present".
type OrderPatch struct {
	ID            string
	VendorID      *string
	StudentID     *string
	Status        *string
	Subtotal      *float64
	Tax           *float64
	Total         *float64
	PaymentMethod *string
	StudentName   *string
	StudentEmail  *string
	CreatedAt     *time.Time
	UpdatedAt     *time.Time
	PickupAt      *time.Time
	ReadyAt       *time.Time

	// Items is non-nil only when the payload carried a nested items list
	// (typically on insert or bulk load echoes).
	Items []models.LineItem
}

// ItemPatch is a partial line item payload.
type ItemPatch struct {
	ID            string
	OrderID       string
	CatalogItemID *string
	CounterID     *string
	Quantity      *int
	Price         *float64
	Instructions  *string
	Status        *string
	CounterName   *string
}

// CatalogPatch is a partial catalog item payload.
type CatalogPatch struct {
	ID        string
	Name      *string
	Available *bool
}
