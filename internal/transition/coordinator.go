package transition

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"campus-orderboard/internal/board"
	"campus-orderboard/internal/logger"
	"campus-orderboard/internal/models"
	"campus-orderboard/internal/store"
)

// StatusClient issues status mutations against the authoritative service.
type StatusClient interface {
	SetItemStatus(ctx context.Context, itemID, status string) error
	SetOrderStatusDirect(ctx context.Context, orderID, status string) error
}

// State of the one in-flight drag transition.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateCommitting
	StateRollingBack
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateCommitting:
		return "committing"
	case StateRollingBack:
		return "rolling_back"
	default:
		return "unknown"
	}
}

var (
	ErrNoDrag       = errors.New("no drag in progress")
	ErrDragInFlight = errors.New("a drag is already in progress")
	ErrViewDetached = errors.New("view is no longer active")
)

// Coordinator owns optimistic status changes: snapshot, apply, request, then
// commit or rollback. It also drives the board freeze flag for the duration
// of a drag gesture, and handles counter-wide bulk transitions with
// partial-failure semantics.
type Coordinator struct {
	mu        sync.Mutex
	store     *store.AggregateStore
	projector *board.Projector
	client    StatusClient
	logger    *logger.Logger

	state      State
	dragItemID string
	frozen     bool

	// active reports whether the hosting view is still alive; callbacks that
	// complete after teardown must not write state.
	active func() bool
	// onChange is fired after every terminal transition so renderers refresh.
	onChange func()
}

func NewCoordinator(st *store.AggregateStore, proj *board.Projector, client StatusClient, log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Coordinator{
		store:     st,
		projector: proj,
		client:    client,
		logger:    log,
		active:    func() bool { return true },
		onChange:  func() {},
	}
}

// SetActiveGuard installs the "view still active" check.
func (c *Coordinator) SetActiveGuard(guard func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if guard != nil {
		c.active = guard
	}
}

// SetOnChange installs the projection-changed notification.
func (c *Coordinator) SetOnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn != nil {
		c.onChange = fn
	}
}

// State returns the current transition state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Frozen reports whether the board projection is frozen by an active drag.
func (c *Coordinator) Frozen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frozen
}

// DragStart captures the dragged item and freezes the projection.
func (c *Coordinator) DragStart(itemID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return ErrDragInFlight
	}
	if _, _, ok := c.store.FindItem(itemID); !ok {
		return fmt.Errorf("cannot drag unknown item %s", itemID)
	}

	c.state = StateDragging
	c.dragItemID = itemID
	c.frozen = true
	return nil
}

// Cancel discards the drag without mutation.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	if c.state != StateDragging {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.finish()
}

// Reorder moves the dragged card within its current status column on drop.
// Ephemeral only: no store mutation, no network call, and the board's
// fairness sort reasserts itself on the next live pass.
func (c *Coordinator) Reorder(status string, from, to int) error {
	c.mu.Lock()
	if c.state != StateDragging {
		c.mu.Unlock()
		return ErrNoDrag
	}
	c.mu.Unlock()

	c.projector.MoveWithin(status, from, to)
	c.finish()
	return nil
}

// Drop completes a cross-column drag: optimistic apply, then the status
// request, then commit or rollback. The eventual echo of a committed change
// through the feed is idempotent and harmless.
func (c *Coordinator) Drop(ctx context.Context, destinationStatus string) error {
	c.mu.Lock()
	if c.state != StateDragging {
		c.mu.Unlock()
		return ErrNoDrag
	}
	itemID := c.dragItemID
	c.state = StateCommitting
	c.mu.Unlock()

	snap, err := c.store.ApplyOptimistic(itemID, destinationStatus)
	if err != nil {
		c.finish()
		return err
	}

	c.logger.LogTransition(itemID, snap.Prev, destinationStatus)

	if err := c.client.SetItemStatus(ctx, itemID, destinationStatus); err != nil {
		c.mu.Lock()
		c.state = StateRollingBack
		active := c.active()
		c.mu.Unlock()

		if !active {
			// Teardown beat the callback; the store is gone with the view.
			c.finish()
			return ErrViewDetached
		}

		c.store.Rollback(snap)
		c.finish()
		return fmt.Errorf("update item %s: %w", itemID, err)
	}

	c.finish()
	return nil
}

// DirectOrderStatus routes an authoritative order-level override. No
// optimistic apply: the server field is trusted and the feed echo lands it.
func (c *Coordinator) DirectOrderStatus(ctx context.Context, orderID, status string) error {
	if err := c.client.SetOrderStatusDirect(ctx, orderID, status); err != nil {
		return fmt.Errorf("set order %s status: %w", orderID, err)
	}
	return nil
}

// BulkDeliver marks every ready item for the given counter in one order as
// delivered, issuing the per-item requests concurrently. Each success commits
// independently; a partial failure never rolls its siblings back. The error,
// if any, is reported once and names the order.
func (c *Coordinator) BulkDeliver(ctx context.Context, orderID, counterID string) error {
	order, ok := c.store.Order(orderID)
	if !ok {
		return fmt.Errorf("order %s not found", orderID)
	}

	var itemIDs []string
	for _, item := range order.Items {
		if item.Status != models.ItemReady {
			continue
		}
		if counterID != "" && item.CounterID != counterID {
			continue
		}
		itemIDs = append(itemIDs, item.ID)
	}
	if len(itemIDs) == 0 {
		return nil
	}

	var (
		wg     sync.WaitGroup
		failMu sync.Mutex
		failed int
	)
	for _, id := range itemIDs {
		wg.Add(1)
		go func(itemID string) {
			defer wg.Done()

			snap, err := c.store.ApplyOptimistic(itemID, models.ItemDelivered)
			if err != nil {
				failMu.Lock()
				failed++
				failMu.Unlock()
				return
			}
			if err := c.client.SetItemStatus(ctx, itemID, models.ItemDelivered); err != nil {
				c.logger.Error("TRANSITION", fmt.Sprintf("bulk deliver %s failed: %v", itemID, err))
				// Revert only this item; siblings that already committed
				// stay delivered.
				if c.active() {
					c.store.RevertItem(snap.ItemID, snap.Prev)
				}
				failMu.Lock()
				failed++
				failMu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	if c.active() {
		c.onChange()
	}
	if failed > 0 {
		return fmt.Errorf("order %s: %d of %d items failed to deliver", orderID, failed, len(itemIDs))
	}
	return nil
}

// finish resets to idle, clears the freeze, and notifies renderers. Runs on
// every terminal edge: committed, rollback complete, and cancel.
func (c *Coordinator) finish() {
	c.mu.Lock()
	c.finishLocked()
	active := c.active()
	onChange := c.onChange
	c.mu.Unlock()

	if active {
		onChange()
	}
}

func (c *Coordinator) finishLocked() {
	c.state = StateIdle
	c.dragItemID = ""
	c.frozen = false
}
