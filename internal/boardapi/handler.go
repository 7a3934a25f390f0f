package boardapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"campus-orderboard/internal/board"
	"campus-orderboard/internal/logger"
	"campus-orderboard/internal/sse"
	"campus-orderboard/internal/store"
	"campus-orderboard/internal/transition"
)

// Handler exposes the board projection and the drag operations over HTTP.
// It is a thin surface: all reconciliation logic lives in the engine.
type Handler struct {
	Projector   *board.Projector
	Coordinator *transition.Coordinator
	Emitter     *sse.BoardEventEmitter
	ViewKey     string
	Logger      *logger.Logger
}

// GetBoard returns the current projection, grouped by status.
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	filter := board.Filter{
		CounterID: r.URL.Query().Get("counter_id"),
		Search:    r.URL.Query().Get("q"),
	}

	projection := h.Projector.Project(filter, h.Coordinator.Frozen())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(projection)
}

// DragStart begins a drag gesture for one card.
func (h *Handler) DragStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID string `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		http.Error(w, "item_id is required", http.StatusBadRequest)
		return
	}

	if err := h.Coordinator.DragStart(req.ItemID); err != nil {
		status := http.StatusConflict
		if !errors.Is(err, transition.ErrDragInFlight) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Drop completes a cross-column drag with a status change.
func (h *Handler) Drop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		http.Error(w, "status is required", http.StatusBadRequest)
		return
	}

	if err := h.Coordinator.Drop(r.Context(), req.Status); err != nil {
		if errors.Is(err, transition.ErrNoDrag) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if errors.Is(err, store.ErrItemNotFound) {
			// The feed deleted the dragged item mid-gesture; nothing was
			// applied upstream.
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		// The optimistic change has already been rolled back; the error is
		// scoped to the dragged item.
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reorder moves the dragged card within its column.
func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
		From   int    `json:"from"`
		To     int    `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		http.Error(w, "status, from, and to are required", http.StatusBadRequest)
		return
	}

	if err := h.Coordinator.Reorder(req.Status, req.From, req.To); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CancelDrag discards the drag without mutation.
func (h *Handler) CancelDrag(w http.ResponseWriter, r *http.Request) {
	h.Coordinator.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

// BulkDeliver marks every ready item for a counter in one order delivered.
// Partial failures keep their successes; the response names the order once.
func (h *Handler) BulkDeliver(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	counterID := r.URL.Query().Get("counter_id")

	if err := h.Coordinator.BulkDeliver(r.Context(), orderID, counterID); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetOrderStatus routes an order-level direct override to the service.
func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		http.Error(w, "status is required", http.StatusBadRequest)
		return
	}

	if err := h.Coordinator.DirectOrderStatus(r.Context(), orderID, req.Status); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Routes mounts all board endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/v1/board", h.GetBoard)
	r.Get("/api/v1/board/stream", h.StreamBoard)
	r.Post("/api/v1/board/drag/start", h.DragStart)
	r.Post("/api/v1/board/drag/drop", h.Drop)
	r.Post("/api/v1/board/drag/reorder", h.Reorder)
	r.Post("/api/v1/board/drag/cancel", h.CancelDrag)
	r.Post("/api/v1/orders/{orderID}/deliver", h.BulkDeliver)
	r.Post("/api/v1/orders/{orderID}/status", h.SetOrderStatus)
}
