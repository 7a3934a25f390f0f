package board_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-orderboard/internal/board"
	"campus-orderboard/internal/catalog"
	"campus-orderboard/internal/feed"
	"campus-orderboard/internal/models"
	"campus-orderboard/internal/store"
)

func strPtr(s string) *string { return &s }

func fixtures(t *testing.T) (*store.AggregateStore, *catalog.Cache, *board.Projector) {
	t.Helper()

	s := store.NewAggregateStore(nil)
	s.Seed([]models.Order{
		{
			ID:          "O1",
			Status:      models.OrderPreparing,
			StudentName: "Amina",
			CreatedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			Items: []models.LineItem{
				{ID: "I1", OrderID: "O1", CatalogItemID: "M1", CounterID: "C1", Status: models.ItemPending},
				{ID: "I2", OrderID: "O1", CatalogItemID: "M2", CounterID: "C1", Status: models.ItemReady},
			},
		},
		{
			ID:        "O2",
			Status:    models.OrderConfirmed,
			CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
			Items: []models.LineItem{
				{ID: "I3", OrderID: "O2", CatalogItemID: "M1", CounterID: "C1", Status: models.ItemPending},
				{ID: "I4", OrderID: "O2", CatalogItemID: "M3", CounterID: "C2", Status: models.ItemPending},
			},
		},
		{
			ID:        "O3",
			Status:    models.OrderCancelled,
			CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
			Items: []models.LineItem{
				{ID: "I5", OrderID: "O3", CatalogItemID: "M1", CounterID: "C1", Status: models.ItemPending},
			},
		},
	})

	cache := catalog.NewCache(nil, nil, nil)
	cache.Apply(&feed.ChangeEvent{
		Entity: feed.EntityCatalogItem, Op: feed.OpInsert, Key: "M1",
		Catalog: &feed.CatalogPatch{ID: "M1", Name: strPtr("Chicken Biryani")},
	})
	cache.Apply(&feed.ChangeEvent{
		Entity: feed.EntityCatalogItem, Op: feed.OpInsert, Key: "M2",
		Catalog: &feed.CatalogPatch{ID: "M2", Name: strPtr("Iced Coffee")},
	})

	return s, cache, board.NewProjector(s, cache)
}

func TestProjectGroupsByStatusAndFiltersCounter(t *testing.T) {
	_, _, p := fixtures(t)

	projection := p.Project(board.Filter{CounterID: "C1"}, false)

	require.Len(t, projection[models.ItemPending], 2)
	require.Len(t, projection[models.ItemReady], 1)
	assert.Equal(t, "I2", projection[models.ItemReady][0].Item.ID)

	for _, bucket := range projection {
		for _, card := range bucket {
			assert.Equal(t, "C1", card.Item.CounterID)
			assert.NotEqual(t, "O3", card.OrderID, "cancelled orders never reach the board")
		}
	}
}

func TestProjectSortsByParentOrderCreationTime(t *testing.T) {
	_, _, p := fixtures(t)

	projection := p.Project(board.Filter{CounterID: "C1"}, false)

	pending := projection[models.ItemPending]
	require.Len(t, pending, 2)
	// O2 was created before O1: oldest order first, first in first served.
	assert.Equal(t, "O2", pending[0].OrderID)
	assert.Equal(t, "O1", pending[1].OrderID)
}

func TestProjectDenormalizesParentFields(t *testing.T) {
	_, _, p := fixtures(t)

	projection := p.Project(board.Filter{CounterID: "C1"}, false)

	ready := projection[models.ItemReady]
	require.Len(t, ready, 1)
	assert.Equal(t, "O1", ready[0].OrderID)
	assert.Equal(t, "Amina", ready[0].StudentName)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), ready[0].OrderCreatedAt)
	assert.Equal(t, "Iced Coffee", ready[0].DisplayName)
}

func TestProjectSearchMatchesOrderIDAndDisplayName(t *testing.T) {
	_, _, p := fixtures(t)

	byName := p.Project(board.Filter{CounterID: "C1", Search: "biryani"}, false)
	names := []string{}
	for _, bucket := range byName {
		for _, card := range bucket {
			names = append(names, card.DisplayName)
		}
	}
	require.NotEmpty(t, names)
	for _, name := range names {
		assert.Equal(t, "Chicken Biryani", name)
	}

	byOrder := p.Project(board.Filter{Search: "o2"}, false)
	total := 0
	for _, bucket := range byOrder {
		for _, card := range bucket {
			total++
			assert.Equal(t, "O2", card.OrderID)
		}
	}
	assert.Equal(t, 2, total)
}

func TestProjectUnknownCatalogItemGetsPlaceholder(t *testing.T) {
	_, _, p := fixtures(t)

	projection := p.Project(board.Filter{CounterID: "C2"}, false)

	pending := projection[models.ItemPending]
	require.Len(t, pending, 1)
	assert.Equal(t, "Item M3", pending[0].DisplayName)
}

func TestProjectFreezeReturnsLastProjectionUnchanged(t *testing.T) {
	s, _, p := fixtures(t)

	live := p.Project(board.Filter{CounterID: "C1"}, false)
	frozenFirst := p.Project(board.Filter{CounterID: "C1"}, true)

	// An unrelated merge lands while the board is frozen.
	s.MergeItem(&feed.ChangeEvent{
		Entity: feed.EntityLineItem, Op: feed.OpUpdate, Key: "I1",
		Item: &feed.ItemPatch{ID: "I1", OrderID: "O1", Status: strPtr(models.ItemPreparing)},
	})

	frozenSecond := p.Project(board.Filter{CounterID: "C1"}, true)
	assert.Equal(t, frozenFirst, frozenSecond, "frozen projections must be identical across calls")
	assert.Equal(t, live, frozenSecond)

	// Once the freeze lifts the merge becomes visible.
	thawed := p.Project(board.Filter{CounterID: "C1"}, false)
	require.Len(t, thawed[models.ItemPreparing], 1)
	assert.Equal(t, "I1", thawed[models.ItemPreparing][0].Item.ID)
}

func TestMoveWithinReordersBucketEphemerally(t *testing.T) {
	_, _, p := fixtures(t)

	before := p.Project(board.Filter{CounterID: "C1"}, false)
	require.Len(t, before[models.ItemPending], 2)
	require.Equal(t, "I3", before[models.ItemPending][0].Item.ID)

	p.MoveWithin(models.ItemPending, 0, 1)

	moved := p.Project(board.Filter{CounterID: "C1"}, true)
	require.Len(t, moved[models.ItemPending], 2)
	assert.Equal(t, "I1", moved[models.ItemPending][0].Item.ID)
	assert.Equal(t, "I3", moved[models.ItemPending][1].Item.ID)

	// The next live pass recomputes the fairness order: no persistence.
	recomputed := p.Project(board.Filter{CounterID: "C1"}, false)
	assert.Equal(t, "I3", recomputed[models.ItemPending][0].Item.ID)
}

func TestReturnedProjectionIsACopy(t *testing.T) {
	s, _, p := fixtures(t)

	held := p.Project(board.Filter{CounterID: "C1"}, false)
	pending := held[models.ItemPending]
	require.Len(t, pending, 2)
	require.Equal(t, "I3", pending[0].Item.ID)

	// A reorder and a fresh merge must not reach through into a projection a
	// caller is already holding.
	p.MoveWithin(models.ItemPending, 0, 1)
	s.MergeItem(&feed.ChangeEvent{
		Entity: feed.EntityLineItem, Op: feed.OpUpdate, Key: "I3",
		Item: &feed.ItemPatch{ID: "I3", OrderID: "O2", Status: strPtr(models.ItemReady)},
	})
	p.Project(board.Filter{CounterID: "C1"}, false)

	assert.Equal(t, "I3", pending[0].Item.ID, "a previously returned projection must not change under the caller")
	assert.Equal(t, models.ItemPending, pending[0].Item.Status)

	// Nor can the caller reach back in: mutating the returned bucket leaves
	// the frozen memo untouched.
	frozenBefore := p.Project(board.Filter{CounterID: "C1"}, true)
	frozenBefore[models.ItemReady][0].Item.ID = "tampered"
	frozenAfter := p.Project(board.Filter{CounterID: "C1"}, true)
	assert.NotEqual(t, "tampered", frozenAfter[models.ItemReady][0].Item.ID)
}

func TestMoveWithinIgnoresOutOfRangeIndexes(t *testing.T) {
	_, _, p := fixtures(t)

	p.Project(board.Filter{CounterID: "C1"}, false)
	p.MoveWithin(models.ItemPending, 0, 99)
	p.MoveWithin(models.ItemPending, -1, 0)
	p.MoveWithin("bogus", 0, 1)

	projection := p.Project(board.Filter{CounterID: "C1"}, true)
	assert.Equal(t, "I3", projection[models.ItemPending][0].Item.ID)
}
