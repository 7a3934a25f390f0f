package ordersvc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"campus-orderboard/internal/logger"
)

// Handler is the development order service's REST surface: the bulk fetch
// and mutation endpoints the board client calls.
type Handler struct {
	DB       *DB
	Notifier *Notifier
	Logger   *logger.Logger
}

// ListOrders handles the bulk fetch, nested line items included.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	vendorID := r.URL.Query().Get("vendor_id")
	counterID := r.URL.Query().Get("counter_id")

	orders, err := h.DB.ListOrders(r.Context(), vendorID, counterID)
	if err != nil {
		http.Error(w, "Could not list orders: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orders)
}

// GetOrder returns one order with its items.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.DB.GetOrder(r.Context(), orderID)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Could not fetch order: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(order)
}

// ListCatalogItems returns the full catalog.
func (h *Handler) ListCatalogItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.DB.ListCatalogItems(r.Context())
	if err != nil {
		http.Error(w, "Could not list catalog items: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// SetItemStatus updates one line item's status and publishes the change.
func (h *Handler) SetItemStatus(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		http.Error(w, "status is required", http.StatusBadRequest)
		return
	}

	old, updated, err := h.DB.UpdateItemStatus(r.Context(), itemID, req.Status)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "Line item not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Could not update line item: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.Logger.LogTransition(itemID, old.Status, updated.Status)
	h.Notifier.NotifyLineItem(r.Context(), "UPDATE", updated, old)

	w.WriteHeader(http.StatusNoContent)
}

// SetOrderStatus is the authoritative direct override for an order's status.
func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		http.Error(w, "status is required", http.StatusBadRequest)
		return
	}

	old, updated, err := h.DB.UpdateOrderStatus(r.Context(), orderID, req.Status)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Could not update order: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.Logger.Info("ORDER", fmt.Sprintf("order %s status %s -> %s", orderID, old.Status, updated.Status))
	h.Notifier.NotifyOrder(r.Context(), "UPDATE", updated, old)

	w.WriteHeader(http.StatusNoContent)
}

// Routes mounts the service endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/v1/orders", h.ListOrders)
	r.Get("/api/v1/orders/{orderID}", h.GetOrder)
	r.Get("/api/v1/catalog-items", h.ListCatalogItems)
	r.Patch("/api/v1/line-items/{itemID}/status", h.SetItemStatus)
	r.Patch("/api/v1/orders/{orderID}/status", h.SetOrderStatus)
}
