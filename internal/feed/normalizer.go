package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"campus-orderboard/internal/logger"
	"campus-orderboard/internal/models"
)

// Notification is the raw shape the change feed delivers. Field naming inside
// New/Old is whatever the upstream service emits (snake_case, camelCase, or
// worse); nothing outside this package ever sees it.
type Notification struct {
	Table string         `json:"table"`
	Type  string         `json:"type"` // INSERT | UPDATE | DELETE, any casing
	New   map[string]any `json:"new,omitempty"`
	Old   map[string]any `json:"old,omitempty"`
}

// Table names recognized on the wire.
const (
	TableOrders       = "orders"
	TableLineItems    = "line_items"
	TableCatalogItems = "catalog_items"
)

// Normalizer converts raw notifications into canonical ChangeEvents. It never
// panics on malformed input: anything unusable is logged and dropped (nil
// return).
type Normalizer struct {
	Logger *logger.Logger
}

func NewNormalizer(log *logger.Logger) *Normalizer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Normalizer{Logger: log}
}

// NormalizeBytes parses a JSON notification and normalizes it.
func (n *Normalizer) NormalizeBytes(data []byte) *ChangeEvent {
	var raw Notification
	if err := json.Unmarshal(data, &raw); err != nil {
		n.Logger.Warn("FEED", fmt.Sprintf("discarding unparseable notification: %v", err))
		return nil
	}
	return n.Normalize(raw)
}

// Normalize returns the canonical event, or nil if required identity fields
// are absent. For deletes the identity is read from the old payload, since
// new is absent.
func (n *Normalizer) Normalize(raw Notification) *ChangeEvent {
	op, ok := parseOp(raw.Type)
	if !ok {
		n.Logger.Warn("FEED", fmt.Sprintf("discarding notification with unknown op %q", raw.Type))
		return nil
	}

	payload := raw.New
	if op == OpDelete {
		payload = raw.Old
	}
	if payload == nil {
		n.Logger.Warn("FEED", fmt.Sprintf("discarding %s on %q with no payload", op, raw.Table))
		return nil
	}

	switch canonicalKey(raw.Table) {
	case "orders", "order":
		return n.normalizeOrder(op, payload)
	case "lineitems", "lineitem", "orderitems", "orderitem":
		return n.normalizeItem(op, payload)
	case "catalogitems", "catalogitem", "menuitems", "menuitem":
		return n.normalizeCatalog(op, payload)
	default:
		n.Logger.Debug("FEED", fmt.Sprintf("ignoring notification for table %q", raw.Table))
		return nil
	}
}

func (n *Normalizer) normalizeOrder(op Op, payload map[string]any) *ChangeEvent {
	id, ok := stringField(payload, "id", "order_id")
	if !ok || id == "" {
		n.Logger.Warn("FEED", "discarding order event without id")
		return nil
	}

	patch := &OrderPatch{
		ID:            id,
		VendorID:      stringPtr(payload, "vendor_id"),
		StudentID:     stringPtr(payload, "student_id", "user_id"),
		Status:        stringPtr(payload, "status"),
		Subtotal:      floatPtr(payload, "subtotal"),
		Tax:           floatPtr(payload, "tax"),
		Total:         floatPtr(payload, "total"),
		PaymentMethod: stringPtr(payload, "payment_method"),
		StudentName:   stringPtr(payload, "student_name"),
		StudentEmail:  stringPtr(payload, "student_email"),
		CreatedAt:     timePtr(payload, "created_at"),
		UpdatedAt:     timePtr(payload, "updated_at"),
		PickupAt:      timePtr(payload, "pickup_at", "pickup_time"),
		ReadyAt:       timePtr(payload, "ready_at", "ready_time"),
	}
	patch.Items = nestedItems(payload, id)

	return &ChangeEvent{Entity: EntityOrder, Op: op, Key: id, Order: patch}
}

func (n *Normalizer) normalizeItem(op Op, payload map[string]any) *ChangeEvent {
	id, ok := stringField(payload, "id", "line_item_id", "item_id")
	if !ok || id == "" {
		n.Logger.Warn("FEED", "discarding line item event without id")
		return nil
	}
	orderID, ok := stringField(payload, "order_id")
	if !ok || orderID == "" {
		n.Logger.Warn("FEED", fmt.Sprintf("discarding line item event %s without order id", id))
		return nil
	}

	patch := &ItemPatch{
		ID:            id,
		OrderID:       orderID,
		CatalogItemID: stringPtr(payload, "catalog_item_id", "menu_item_id"),
		CounterID:     stringPtr(payload, "counter_id", "station_id"),
		Quantity:      intPtr(payload, "quantity"),
		Price:         floatPtr(payload, "price"),
		Instructions:  stringPtr(payload, "instructions", "special_instructions"),
		Status:        stringPtr(payload, "status"),
		CounterName:   stringPtr(payload, "counter_name", "station_name"),
	}

	return &ChangeEvent{Entity: EntityLineItem, Op: op, Key: id, Item: patch}
}

func (n *Normalizer) normalizeCatalog(op Op, payload map[string]any) *ChangeEvent {
	id, ok := stringField(payload, "id", "catalog_item_id", "menu_item_id")
	if !ok || id == "" {
		n.Logger.Warn("FEED", "discarding catalog event without id")
		return nil
	}

	patch := &CatalogPatch{
		ID:        id,
		Name:      stringPtr(payload, "name", "display_name"),
		Available: boolPtr(payload, "available", "is_available"),
	}

	return &ChangeEvent{Entity: EntityCatalogItem, Op: op, Key: id, Catalog: patch}
}

// nestedItems pulls a nested items array out of an order payload, if present.
// Items that fail to normalize are skipped individually.
func nestedItems(payload map[string]any, orderID string) []models.LineItem {
	raw, ok := anyField(payload, "items", "line_items")
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	items := make([]models.LineItem, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id, ok := stringField(m, "id", "line_item_id", "item_id")
		if !ok || id == "" {
			continue
		}
		item := models.LineItem{ID: id, OrderID: orderID}
		if v := stringPtr(m, "catalog_item_id", "menu_item_id"); v != nil {
			item.CatalogItemID = *v
		}
		if v := stringPtr(m, "counter_id", "station_id"); v != nil {
			item.CounterID = *v
		}
		if v := intPtr(m, "quantity"); v != nil {
			item.Quantity = *v
		}
		if v := floatPtr(m, "price"); v != nil {
			item.Price = *v
		}
		if v := stringPtr(m, "instructions", "special_instructions"); v != nil {
			item.Instructions = *v
		}
		if v := stringPtr(m, "status"); v != nil {
			item.Status = *v
		}
		if v := stringPtr(m, "counter_name", "station_name"); v != nil {
			item.CounterName = *v
		}
		items = append(items, item)
	}
	return items
}

func parseOp(s string) (Op, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "insert", "create", "created":
		return OpInsert, true
	case "update", "updated", "change", "changed":
		return OpUpdate, true
	case "delete", "deleted", "remove", "removed":
		return OpDelete, true
	default:
		return "", false
	}
}

// canonicalKey lowercases and strips separators so "orderId", "order_id" and
// "OrderID" all compare equal.
func canonicalKey(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '_' || r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// anyField looks a field up by any of the given snake_case names, tolerating
// arbitrary casing in the payload.
func anyField(m map[string]any, names ...string) (any, bool) {
	for _, name := range names {
		if v, ok := m[name]; ok {
			return v, true
		}
	}
	for k, v := range m {
		ck := canonicalKey(k)
		for _, name := range names {
			if ck == canonicalKey(name) {
				return v, true
			}
		}
	}
	return nil, false
}

func stringField(m map[string]any, names ...string) (string, bool) {
	v, ok := anyField(m, names...)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		// Numeric ids occasionally show up on the wire.
		return strconv.FormatFloat(s, 'f', -1, 64), true
	default:
		return "", false
	}
}

func stringPtr(m map[string]any, names ...string) *string {
	v, ok := anyField(m, names...)
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func floatPtr(m map[string]any, names ...string) *float64 {
	v, ok := anyField(m, names...)
	if !ok || v == nil {
		return nil
	}
	switch f := v.(type) {
	case float64:
		return &f
	case json.Number:
		if parsed, err := f.Float64(); err == nil {
			return &parsed
		}
	case string:
		var parsed float64
		if _, err := fmt.Sscanf(f, "%f", &parsed); err == nil {
			return &parsed
		}
	}
	return nil
}

func intPtr(m map[string]any, names ...string) *int {
	f := floatPtr(m, names...)
	if f == nil {
		return nil
	}
	i := int(*f)
	return &i
}

func boolPtr(m map[string]any, names ...string) *bool {
	v, ok := anyField(m, names...)
	if !ok || v == nil {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

func timePtr(m map[string]any, names ...string) *time.Time {
	v, ok := anyField(m, names...)
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return &parsed
			}
		}
	case float64:
		parsed := time.Unix(int64(t), 0).UTC()
		return &parsed
	}
	return nil
}
