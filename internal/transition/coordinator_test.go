package transition_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"campus-orderboard/internal/board"
	"campus-orderboard/internal/catalog"
	"campus-orderboard/internal/models"
	"campus-orderboard/internal/store"
	"campus-orderboard/internal/transition"
)

// Mock implementations

type MockStatusClient struct {
	mock.Mock
}

func (m *MockStatusClient) SetItemStatus(ctx context.Context, itemID, status string) error {
	args := m.Called(itemID, status)
	return args.Error(0)
}

func (m *MockStatusClient) SetOrderStatusDirect(ctx context.Context, orderID, status string) error {
	args := m.Called(orderID, status)
	return args.Error(0)
}

func setup(t *testing.T) (*store.AggregateStore, *board.Projector, *MockStatusClient, *transition.Coordinator) {
	t.Helper()

	s := store.NewAggregateStore(nil)
	s.Seed([]models.Order{
		{
			ID:        "O1",
			Status:    models.OrderPreparing,
			CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			Items: []models.LineItem{
				{ID: "I1", OrderID: "O1", CounterID: "C1", Status: models.ItemPending},
				{ID: "I2", OrderID: "O1", CounterID: "C1", Status: models.ItemReady},
				{ID: "I3", OrderID: "O1", CounterID: "C1", Status: models.ItemReady},
			},
		},
	})

	p := board.NewProjector(s, catalog.NewCache(nil, nil, nil))
	client := new(MockStatusClient)
	c := transition.NewCoordinator(s, p, client, nil)
	return s, p, client, c
}

func TestDragStartFreezesBoard(t *testing.T) {
	_, _, _, c := setup(t)

	require.NoError(t, c.DragStart("I2"))
	assert.Equal(t, transition.StateDragging, c.State())
	assert.True(t, c.Frozen())

	assert.ErrorIs(t, c.DragStart("I1"), transition.ErrDragInFlight)
}

func TestDragStartUnknownItem(t *testing.T) {
	_, _, _, c := setup(t)

	assert.Error(t, c.DragStart("nope"))
	assert.Equal(t, transition.StateIdle, c.State())
	assert.False(t, c.Frozen())
}

func TestDropCommitsOptimisticChange(t *testing.T) {
	s, _, client, c := setup(t)
	client.On("SetItemStatus", "I2", models.ItemDelivered).Return(nil)

	changed := false
	c.SetOnChange(func() { changed = true })

	require.NoError(t, c.DragStart("I2"))
	require.NoError(t, c.Drop(context.Background(), models.ItemDelivered))

	item, _, _ := s.FindItem("I2")
	assert.Equal(t, models.ItemDelivered, item.Status)
	assert.Equal(t, transition.StateIdle, c.State())
	assert.False(t, c.Frozen(), "freeze clears on commit")
	assert.True(t, changed)
	client.AssertExpectations(t)
}

func TestDropRollsBackOnFailure(t *testing.T) {
	s, _, client, c := setup(t)
	client.On("SetItemStatus", "I2", models.ItemDelivered).Return(errors.New("boom"))

	before := s.Orders()

	require.NoError(t, c.DragStart("I2"))
	err := c.Drop(context.Background(), models.ItemDelivered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "I2", "the error is scoped to the dragged item")

	assert.Equal(t, before, s.Orders(), "failed drop must leave the store untouched")
	assert.Equal(t, transition.StateIdle, c.State())
	assert.False(t, c.Frozen(), "freeze clears after rollback")
}

func TestDropWithoutDrag(t *testing.T) {
	_, _, _, c := setup(t)

	assert.ErrorIs(t, c.Drop(context.Background(), models.ItemReady), transition.ErrNoDrag)
}

func TestDropAfterTeardownSkipsRollbackWrite(t *testing.T) {
	s, _, client, c := setup(t)
	client.On("SetItemStatus", "I2", models.ItemDelivered).Return(errors.New("boom"))

	c.SetActiveGuard(func() bool { return false })
	changed := false
	c.SetOnChange(func() { changed = true })

	require.NoError(t, c.DragStart("I2"))
	err := c.Drop(context.Background(), models.ItemDelivered)
	assert.ErrorIs(t, err, transition.ErrViewDetached)

	// The optimistic status stays as applied: the view is gone, and nothing
	// may write to its store from a late callback.
	item, _, _ := s.FindItem("I2")
	assert.Equal(t, models.ItemDelivered, item.Status)
	assert.False(t, changed, "no notifications after teardown")
}

func TestCancelDiscardsWithoutMutation(t *testing.T) {
	s, _, _, c := setup(t)
	before := s.Orders()

	require.NoError(t, c.DragStart("I2"))
	c.Cancel()

	assert.Equal(t, before, s.Orders())
	assert.Equal(t, transition.StateIdle, c.State())
	assert.False(t, c.Frozen())

	// Cancel with no drag in progress is a no-op.
	c.Cancel()
	assert.Equal(t, transition.StateIdle, c.State())
}

func TestReorderNeverTouchesStoreOrNetwork(t *testing.T) {
	s, p, client, c := setup(t)
	before := s.Orders()

	p.Project(board.Filter{CounterID: "C1"}, false)

	require.NoError(t, c.DragStart("I2"))
	require.NoError(t, c.Reorder(models.ItemReady, 0, 1))

	assert.Equal(t, before, s.Orders())
	assert.Equal(t, transition.StateIdle, c.State())
	assert.False(t, c.Frozen())
	client.AssertNotCalled(t, "SetItemStatus", mock.Anything, mock.Anything)
}

func TestBulkDeliverAllSucceed(t *testing.T) {
	s, _, client, c := setup(t)
	client.On("SetItemStatus", "I2", models.ItemDelivered).Return(nil)
	client.On("SetItemStatus", "I3", models.ItemDelivered).Return(nil)

	require.NoError(t, c.BulkDeliver(context.Background(), "O1", "C1"))

	for _, id := range []string{"I2", "I3"} {
		item, _, _ := s.FindItem(id)
		assert.Equal(t, models.ItemDelivered, item.Status)
	}
	item, _, _ := s.FindItem("I1")
	assert.Equal(t, models.ItemPending, item.Status, "only ready items are delivered")
	client.AssertExpectations(t)
}

func TestBulkDeliverPartialFailureKeepsSuccesses(t *testing.T) {
	s, _, client, c := setup(t)
	client.On("SetItemStatus", "I2", models.ItemDelivered).Return(nil)
	client.On("SetItemStatus", "I3", models.ItemDelivered).Return(errors.New("boom"))

	err := c.BulkDeliver(context.Background(), "O1", "C1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "O1", "the aggregated error names the order")
	assert.Contains(t, err.Error(), "1 of 2")

	i2, _, _ := s.FindItem("I2")
	i3, _, _ := s.FindItem("I3")
	assert.Equal(t, models.ItemDelivered, i2.Status, "committed siblings stay delivered")
	assert.Equal(t, models.ItemReady, i3.Status, "the failed item reverts")
}

func TestBulkDeliverNoMatchingItems(t *testing.T) {
	_, _, client, c := setup(t)

	require.NoError(t, c.BulkDeliver(context.Background(), "O1", "C-empty"))
	client.AssertNotCalled(t, "SetItemStatus", mock.Anything, mock.Anything)
}

func TestBulkDeliverUnknownOrder(t *testing.T) {
	_, _, _, c := setup(t)

	assert.Error(t, c.BulkDeliver(context.Background(), "O-unknown", ""))
}

func TestDirectOrderStatus(t *testing.T) {
	_, _, client, c := setup(t)
	client.On("SetOrderStatusDirect", "O1", models.OrderCompleted).Return(nil)

	require.NoError(t, c.DirectOrderStatus(context.Background(), "O1", models.OrderCompleted))
	client.AssertExpectations(t)

	client.On("SetOrderStatusDirect", "O2", models.OrderCancelled).Return(errors.New("boom"))
	err := c.DirectOrderStatus(context.Background(), "O2", models.OrderCancelled)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "O2")
}
