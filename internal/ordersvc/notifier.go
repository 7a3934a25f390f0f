package ordersvc

import (
	"context"
	"fmt"

	"campus-orderboard/internal/feed"
	"campus-orderboard/internal/kafka"
	"campus-orderboard/internal/logger"
	"campus-orderboard/internal/models"
)

// Notifier publishes change notifications after each mutation, in the loose
// wire shape consumers are expected to absorb: snake_case maps under "new"
// and "old". Publish failures are logged, not returned; the write to the
// database already committed and the next bulk load self-corrects readers.
type Notifier struct {
	Orders    *kafka.Producer
	LineItems *kafka.Producer
	Catalog   *kafka.Producer
	Logger    *logger.Logger
}

func (n *Notifier) NotifyOrder(ctx context.Context, op string, newOrder, oldOrder *models.Order) {
	if n == nil || n.Orders == nil {
		return
	}
	key, notification := buildNotification(feed.TableOrders, op, orderRow(newOrder), orderRow(oldOrder))
	if err := n.Orders.PublishNotification(ctx, key, notification); err != nil {
		n.Logger.Error("KAFKA", fmt.Sprintf("publish order %s failed: %v", op, err))
	}
}

func (n *Notifier) NotifyLineItem(ctx context.Context, op string, newItem, oldItem *models.LineItem) {
	if n == nil || n.LineItems == nil {
		return
	}
	key, notification := buildNotification(feed.TableLineItems, op, itemRow(newItem), itemRow(oldItem))
	if err := n.LineItems.PublishNotification(ctx, key, notification); err != nil {
		n.Logger.Error("KAFKA", fmt.Sprintf("publish line item %s failed: %v", op, err))
	}
}

func (n *Notifier) NotifyCatalogItem(ctx context.Context, op string, newItem, oldItem *models.CatalogItem) {
	if n == nil || n.Catalog == nil {
		return
	}
	key, notification := buildNotification(feed.TableCatalogItems, op, catalogRow(newItem), catalogRow(oldItem))
	if err := n.Catalog.PublishNotification(ctx, key, notification); err != nil {
		n.Logger.Error("KAFKA", fmt.Sprintf("publish catalog item %s failed: %v", op, err))
	}
}

func buildNotification(table, op string, newRow, oldRow map[string]any) (string, feed.Notification) {
	key := ""
	if newRow != nil {
		key, _ = newRow["id"].(string)
	} else if oldRow != nil {
		key, _ = oldRow["id"].(string)
	}
	return key, feed.Notification{
		Table: table,
		Type:  op,
		New:   newRow,
		Old:   oldRow,
	}
}

func orderRow(o *models.Order) map[string]any {
	if o == nil {
		return nil
	}
	row := map[string]any{
		"id":             o.ID,
		"vendor_id":      o.VendorID,
		"student_id":     o.StudentID,
		"status":         o.Status,
		"subtotal":       o.Subtotal,
		"tax":            o.Tax,
		"total":          o.Total,
		"payment_method": o.PaymentMethod,
		"student_name":   o.StudentName,
		"student_email":  o.StudentEmail,
		"created_at":     o.CreatedAt,
		"updated_at":     o.UpdatedAt,
	}
	if !o.PickupAt.IsZero() {
		row["pickup_at"] = o.PickupAt
	}
	if !o.ReadyAt.IsZero() {
		row["ready_at"] = o.ReadyAt
	}
	if o.Items != nil {
		items := make([]any, 0, len(o.Items))
		for i := range o.Items {
			items = append(items, itemRow(&o.Items[i]))
		}
		row["items"] = items
	}
	return row
}

func itemRow(item *models.LineItem) map[string]any {
	if item == nil {
		return nil
	}
	return map[string]any{
		"id":              item.ID,
		"order_id":        item.OrderID,
		"catalog_item_id": item.CatalogItemID,
		"counter_id":      item.CounterID,
		"quantity":        item.Quantity,
		"price":           item.Price,
		"instructions":    item.Instructions,
		"status":          item.Status,
		"counter_name":    item.CounterName,
	}
}

func catalogRow(item *models.CatalogItem) map[string]any {
	if item == nil {
		return nil
	}
	return map[string]any{
		"id":        item.ID,
		"name":      item.Name,
		"available": item.Available,
	}
}
