package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Order statuses as reported by the authoritative order service. The board
// never derives an order's overall status itself; the server field is trusted.
const (
	OrderPending            = "pending"
	OrderConfirmed          = "confirmed"
	OrderPreparing          = "preparing"
	OrderReady              = "ready"
	OrderPartiallyReady     = "partially_ready"
	OrderPartiallyDelivered = "partially_delivered"
	OrderPartiallyCompleted = "partially_completed"
	OrderCompleted          = "completed"
	OrderCancelled          = "cancelled"
)

type Order struct {
	bun.BaseModel `bun:"table:orders" json:"-"`

	ID            string    `bun:"id,pk" json:"id"`
	VendorID      string    `bun:"vendor_id" json:"vendor_id"`
	StudentID     string    `bun:"student_id" json:"student_id"`
	Status        string    `bun:"status" json:"status"`
	Subtotal      float64   `bun:"subtotal" json:"subtotal"`
	Tax           float64   `bun:"tax" json:"tax"`
	Total         float64   `bun:"total" json:"total"`
	PaymentMethod string    `bun:"payment_method" json:"payment_method"`
	StudentName   string    `bun:"student_name" json:"student_name"`
	StudentEmail  string    `bun:"student_email" json:"student_email"`
	CreatedAt     time.Time `bun:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`
	PickupAt      time.Time `bun:"pickup_at,nullzero" json:"pickup_at"`
	ReadyAt       time.Time `bun:"ready_at,nullzero" json:"ready_at"`

	// Items keeps insertion order, not status order.
	Items []LineItem `bun:"rel:has-many,join:id=order_id" json:"items"`
}

// Clone returns a deep copy, including the items slice. Snapshots taken for
// optimistic rollback rely on this being a full copy.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Items = make([]LineItem, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}

// ItemByID returns a pointer into the order's items slice, or nil.
func (o *Order) ItemByID(id string) *LineItem {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i]
		}
	}
	return nil
}
