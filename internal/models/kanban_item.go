package models

import "time"

// KanbanItem is a read-only projection of a LineItem plus denormalized parent
// order fields. It is recomputed on every projection pass and never stored;
// its identity is the source line item's ID.
type KanbanItem struct {
	Item           LineItem  `json:"item"`
	OrderID        string    `json:"order_id"`
	OrderCreatedAt time.Time `json:"order_created_at"`
	PickupAt       time.Time `json:"pickup_at"`
	StudentName    string    `json:"student_name"`
	DisplayName    string    `json:"display_name"`
}
