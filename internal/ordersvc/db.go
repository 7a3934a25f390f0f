package ordersvc

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"campus-orderboard/internal/models"
)

// DB is the development order service's storage layer over bun/sqlite. It
// stands in for the managed store the production board talks to.
type DB struct {
	Bun *bun.DB
}

var ErrNotFound = errors.New("not found")

// Migrate creates the tables if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	for _, model := range []any{
		(*models.Order)(nil),
		(*models.LineItem)(nil),
		(*models.CatalogItem)(nil),
	} {
		if _, err := d.Bun.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ListOrders returns orders with nested line items, optionally scoped to a
// vendor and/or counter. Counter scoping keeps every order that has at least
// one item for the counter; the board filters item-by-item on its own.
func (d *DB) ListOrders(ctx context.Context, vendorID, counterID string) ([]models.Order, error) {
	var orders []models.Order
	q := d.Bun.NewSelect().
		Model(&orders).
		Relation("Items").
		Order("created_at ASC")

	if vendorID != "" {
		q = q.Where("vendor_id = ?", vendorID)
	}
	if counterID != "" {
		q = q.Where("id IN (SELECT order_id FROM line_items WHERE counter_id = ?)", counterID)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder fetches one order with its items.
func (d *DB) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Relation("Items").
		Where("\"order\".id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetLineItem fetches one line item.
func (d *DB) GetLineItem(ctx context.Context, id string) (*models.LineItem, error) {
	var item models.LineItem
	err := d.Bun.NewSelect().
		Model(&item).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItemStatus sets one item's status and returns the row before and
// after, for the change notification.
func (d *DB) UpdateItemStatus(ctx context.Context, id, status string) (old, updated *models.LineItem, err error) {
	old, err = d.GetLineItem(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	_, err = d.Bun.NewUpdate().
		Model((*models.LineItem)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, nil, err
	}

	cp := *old
	cp.Status = status
	return old, &cp, nil
}

// UpdateOrderStatus sets an order's status directly (the admin bulk
// override) and returns before/after rows.
func (d *DB) UpdateOrderStatus(ctx context.Context, id, status string) (old, updated *models.Order, err error) {
	old, err = d.GetOrder(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	_, err = d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, nil, err
	}

	cp := *old.Clone()
	cp.Status = status
	cp.UpdatedAt = now
	return old, &cp, nil
}

// ListCatalogItems returns the full catalog.
func (d *DB) ListCatalogItems(ctx context.Context) ([]models.CatalogItem, error) {
	var items []models.CatalogItem
	if err := d.Bun.NewSelect().Model(&items).Order("name ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateOrder inserts an order and its line items. Used by seeding.
func (d *DB) CreateOrder(ctx context.Context, order *models.Order) error {
	if _, err := d.Bun.NewInsert().Model(order).Exec(ctx); err != nil {
		return err
	}
	if len(order.Items) > 0 {
		if _, err := d.Bun.NewInsert().Model(&order.Items).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CreateCatalogItem inserts a catalog entry. Used by seeding.
func (d *DB) CreateCatalogItem(ctx context.Context, item *models.CatalogItem) error {
	_, err := d.Bun.NewInsert().Model(item).Exec(ctx)
	return err
}
