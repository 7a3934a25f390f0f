package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"campus-orderboard/internal/catalog"
	"campus-orderboard/internal/feed"
	"campus-orderboard/internal/logger"
	"campus-orderboard/internal/models"
	"campus-orderboard/internal/store"
)

// Scope narrows the bulk fetch and the feed subscriptions to the hosting
// view's vendor (and optionally one counter).
type Scope struct {
	VendorID  string
	CounterID string
}

// BulkLoader performs the initial fetch that seeds the aggregate store.
type BulkLoader interface {
	ListOrders(ctx context.Context, scope Scope) ([]models.Order, error)
}

// EventSource delivers raw change-feed notifications for one table. The
// returned function tears the subscription down.
type EventSource interface {
	Subscribe(ctx context.Context, table string, handler func(value []byte)) (func(), error)
}

var ErrAlreadyStarted = errors.New("subscription manager already started; call Stop first")

// Manager owns the change-feed subscriptions for one board view. Start runs
// the bulk fetch and then hands feed events straight to the store; events
// that arrive while the fetch is still in flight are queued and replayed once
// the store is seeded, so nothing is dropped. Stop is idempotent.
type Manager struct {
	mu sync.Mutex

	store      *store.AggregateStore
	catalog    *catalog.Cache
	normalizer *feed.Normalizer
	loader     BulkLoader
	source     EventSource
	logger     *logger.Logger
	onChange   func()

	started bool
	active  bool
	loading bool
	queue   []*feed.ChangeEvent
	cancels []func()
}

func NewManager(st *store.AggregateStore, cat *catalog.Cache, norm *feed.Normalizer, loader BulkLoader, source EventSource, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{
		store:      st,
		catalog:    cat,
		normalizer: norm,
		loader:     loader,
		source:     source,
		logger:     log,
		onChange:   func() {},
	}
}

// SetOnChange installs the projection-changed notification.
func (m *Manager) SetOnChange(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fn != nil {
		m.onChange = fn
	}
}

// Active reports whether the view this manager serves is still live. The
// transition coordinator uses this to suppress late callback writes.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Start seeds the store with the bulk fetch and wires the order, line item,
// and catalog feeds. A second Start without an intervening Stop is refused:
// double subscriptions mean duplicate delivery.
func (m *Manager) Start(ctx context.Context, scope Scope) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.active = true
	m.loading = true
	m.queue = nil
	m.mu.Unlock()

	// Subscriptions open first with a queueing handler, so nothing the feed
	// emits during the bulk fetch is lost; the queue is replayed after the
	// store is seeded.
	for _, table := range []string{feed.TableOrders, feed.TableLineItems, feed.TableCatalogItems} {
		cancel, err := m.source.Subscribe(ctx, table, m.handleRaw)
		if err != nil {
			m.teardown()
			return fmt.Errorf("subscribe %s: %w", table, err)
		}
		m.mu.Lock()
		m.cancels = append(m.cancels, cancel)
		m.mu.Unlock()
	}

	orders, err := m.loader.ListOrders(ctx, scope)
	if err != nil {
		m.teardown()
		return fmt.Errorf("bulk fetch: %w", err)
	}
	m.store.Seed(orders)
	m.logger.LogFeed("SEED", feed.TableOrders, fmt.Sprintf("bulk load complete, %d orders", len(orders)))

	m.mu.Lock()
	queued := m.queue
	m.queue = nil
	m.loading = false
	m.mu.Unlock()

	for _, ev := range queued {
		m.dispatch(ev)
	}
	if len(queued) > 0 {
		m.logger.LogFeed("REPLAY", feed.TableOrders, fmt.Sprintf("replayed %d queued events", len(queued)))
	}

	m.notify()
	return nil
}

// Stop unsubscribes every feed. Safe to call any number of times, and
// required before a Start with a new scope.
func (m *Manager) Stop() {
	m.teardown()
}

func (m *Manager) teardown() {
	m.mu.Lock()
	cancels := m.cancels
	m.cancels = nil
	m.started = false
	m.active = false
	m.loading = false
	m.queue = nil
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (m *Manager) handleRaw(value []byte) {
	ev := m.normalizer.NormalizeBytes(value)
	if ev == nil {
		return
	}

	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	if m.loading {
		m.queue = append(m.queue, ev)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.dispatch(ev)
	m.notify()
}

func (m *Manager) dispatch(ev *feed.ChangeEvent) {
	switch ev.Entity {
	case feed.EntityCatalogItem:
		if m.catalog != nil {
			m.catalog.Apply(ev)
		}
	default:
		m.store.Apply(ev)
	}
}

func (m *Manager) notify() {
	m.mu.Lock()
	active := m.active
	onChange := m.onChange
	m.mu.Unlock()

	if active {
		onChange()
	}
}
