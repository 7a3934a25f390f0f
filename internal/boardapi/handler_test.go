package boardapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"campus-orderboard/internal/board"
	"campus-orderboard/internal/boardapi"
	"campus-orderboard/internal/catalog"
	"campus-orderboard/internal/feed"
	"campus-orderboard/internal/logger"
	"campus-orderboard/internal/models"
	"campus-orderboard/internal/sse"
	"campus-orderboard/internal/store"
	"campus-orderboard/internal/transition"
)

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

func apiSetup(t *testing.T) (*store.AggregateStore, *MockStatusClient, *chi.Mux) {
	t.Helper()

	s := store.NewAggregateStore(nil)
	s.Seed([]models.Order{
		{
			ID:        "O1",
			Status:    models.OrderPreparing,
			CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			Items: []models.LineItem{
				{ID: "I1", OrderID: "O1", CounterID: "C1", Status: models.ItemReady},
			},
		},
	})

	p := board.NewProjector(s, catalog.NewCache(nil, nil, nil))
	client := new(MockStatusClient)
	c := transition.NewCoordinator(s, p, client, nil)

	h := &boardapi.Handler{
		Projector:   p,
		Coordinator: c,
		Emitter:     sse.NewBoardEventEmitter(),
		ViewKey:     "default",
		Logger:      logger.NewNopLogger(),
	}
	r := chi.NewRouter()
	h.Routes(r)
	return s, client, r
}

func postJSON(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetBoardReturnsProjection(t *testing.T) {
	_, _, r := apiSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/board?counter_id=C1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "I1")
}

func TestDropItemDeletedMidDragIsConflictNotBadGateway(t *testing.T) {
	s, client, r := apiSetup(t)

	rec := postJSON(t, r, "/api/v1/board/drag/start", `{"item_id":"I1"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The feed removes the dragged item before the drop lands.
	s.MergeItem(&feed.ChangeEvent{
		Entity: feed.EntityLineItem, Op: feed.OpDelete, Key: "I1",
		Item: &feed.ItemPatch{ID: "I1", OrderID: "O1"},
	})

	rec = postJSON(t, r, "/api/v1/board/drag/drop", `{"status":"delivered"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "a vanished item is a board-state conflict, not an upstream failure")
	client.AssertNotCalled(t, "SetItemStatus")
}

func TestDropUpstreamFailureIsBadGateway(t *testing.T) {
	_, client, r := apiSetup(t)
	client.On("SetItemStatus", "I1", models.ItemDelivered).Return(errors.New("service unavailable"))

	rec := postJSON(t, r, "/api/v1/board/drag/start", `{"item_id":"I1"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = postJSON(t, r, "/api/v1/board/drag/drop", `{"status":"delivered"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	client.AssertExpectations(t)
}

func TestDropWithoutDragIsConflict(t *testing.T) {
	_, _, r := apiSetup(t)

	rec := postJSON(t, r, "/api/v1/board/drag/drop", `{"status":"delivered"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
