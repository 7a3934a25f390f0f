package ordersvc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"campus-orderboard/internal/models"
)

// Seed populates an empty development database with a vendor's worth of
// catalog items and a few orders in different stages, and publishes the
// matching insert notifications so a running board picks them up.
func Seed(ctx context.Context, db *DB, notifier *Notifier, vendorID string) error {
	existing, err := db.ListCatalogItems(ctx)
	if err != nil {
		return fmt.Errorf("seed check: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	catalog := []models.CatalogItem{
		{ID: uuid.NewString(), Name: "Chicken Biryani", Available: true},
		{ID: uuid.NewString(), Name: "Vegetable Stir Fry", Available: true},
		{ID: uuid.NewString(), Name: "Iced Coffee", Available: true},
		{ID: uuid.NewString(), Name: "Beef Burger", Available: false},
	}
	for i := range catalog {
		if err := db.CreateCatalogItem(ctx, &catalog[i]); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		notifier.NotifyCatalogItem(ctx, "INSERT", &catalog[i], nil)
	}

	counters := []struct{ id, name string }{
		{"counter-grill", "Grill"},
		{"counter-drinks", "Drinks"},
	}

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		orderID := uuid.NewString()
		order := &models.Order{
			ID:            orderID,
			VendorID:      vendorID,
			StudentID:     uuid.NewString(),
			Status:        models.OrderPreparing,
			Subtotal:      12.50,
			Tax:           1.25,
			Total:         13.75,
			PaymentMethod: "balance",
			StudentName:   fmt.Sprintf("Student %d", i+1),
			CreatedAt:     now.Add(time.Duration(i) * time.Minute),
			UpdatedAt:     now.Add(time.Duration(i) * time.Minute),
			PickupAt:      now.Add(30 * time.Minute),
		}
		for j := 0; j < 2; j++ {
			counter := counters[j%len(counters)]
			item := models.LineItem{
				ID:            uuid.NewString(),
				OrderID:       orderID,
				CatalogItemID: catalog[(i+j)%len(catalog)].ID,
				CounterID:     counter.id,
				CounterName:   counter.name,
				Quantity:      1 + j,
				Price:         6.25,
				Status:        models.ItemPending,
			}
			order.Items = append(order.Items, item)
		}
		if err := db.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("seed order: %w", err)
		}
		notifier.NotifyOrder(ctx, "INSERT", order, nil)
	}

	return nil
}
