package models

import "github.com/uptrace/bun"

// Line item statuses are the board's Kanban columns.
const (
	ItemPending   = "pending"
	ItemPreparing = "preparing"
	ItemReady     = "ready"
	ItemDelivered = "delivered"
)

// ItemStatuses lists the Kanban columns in flow order.
var ItemStatuses = []string{ItemPending, ItemPreparing, ItemReady, ItemDelivered}

type LineItem struct {
	bun.BaseModel `bun:"table:line_items" json:"-"`

	ID            string  `bun:"id,pk" json:"id"`
	OrderID       string  `bun:"order_id" json:"order_id"`
	CatalogItemID string  `bun:"catalog_item_id" json:"catalog_item_id"`
	CounterID     string  `bun:"counter_id" json:"counter_id"`
	Quantity      int     `bun:"quantity" json:"quantity"`
	Price         float64 `bun:"price" json:"price"` // price at order time
	Instructions  string  `bun:"instructions,nullzero" json:"instructions,omitempty"`
	Status        string  `bun:"status" json:"status"`
	CounterName   string  `bun:"counter_name,nullzero" json:"counter_name,omitempty"`
}
