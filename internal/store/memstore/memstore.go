// Package memstore is an in-process implementation of store.Transactor.
//
// Each tenant's data lives in its own state. A unit of work runs against a
// copy of that state under the tenant's lock and replaces it on success, so
// a failed unit of work leaves nothing behind.
package memstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/models"
	"backoffice-service/internal/store"
)

type Store struct {
	mu      sync.Mutex
	tenants map[string]*state
	locks   map[string]*sync.Mutex
	lastID  int64
	now     func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		tenants: make(map[string]*state),
		locks:   make(map[string]*sync.Mutex),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithTx runs fn against a private copy of the tenant's state and publishes
// the copy only if fn succeeds.
func (s *Store) WithTx(ctx context.Context, tenantID string, fn func(tx store.Tx) error) error {
	if tenantID == "" {
		return apperr.Validation("tenant id is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	current, ok := s.tenants[tenantID]
	if !ok {
		current = newState()
	}
	s.mu.Unlock()

	work := current.clone()
	if err := fn(&tx{store: s, tenantID: tenantID, st: work}); err != nil {
		return err
	}

	s.mu.Lock()
	s.tenants[tenantID] = work
	s.mu.Unlock()
	return nil
}

func (s *Store) tenantLock(tenantID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[tenantID] = lock
	}
	return lock
}

func (s *Store) newID() int64 {
	return atomic.AddInt64(&s.lastID, 1)
}

type state struct {
	products     map[int64]models.Product
	customers    map[int64]models.Customer
	lots         map[int64]models.InventoryLot
	allocations  map[int64]models.StockAllocation
	counters     map[string]int64
	settings     *models.TenantSettings
	transactions map[int64]models.Transaction
	sales        map[int64]models.Sale
	saleItems    map[int64]models.SaleItem
	invoices     map[int64]models.Invoice
	quotations   map[int64]models.Quotation
	returns      map[int64]models.Return
	repairs      map[int64]models.Repair
	damaged      map[int64]models.DamagedStockEntry
	activity     []models.ActivityEntry
}

func newState() *state {
	return &state{
		products:     map[int64]models.Product{},
		customers:    map[int64]models.Customer{},
		lots:         map[int64]models.InventoryLot{},
		allocations:  map[int64]models.StockAllocation{},
		counters:     map[string]int64{},
		transactions: map[int64]models.Transaction{},
		sales:        map[int64]models.Sale{},
		saleItems:    map[int64]models.SaleItem{},
		invoices:     map[int64]models.Invoice{},
		quotations:   map[int64]models.Quotation{},
		returns:      map[int64]models.Return{},
		repairs:      map[int64]models.Repair{},
		damaged:      map[int64]models.DamagedStockEntry{},
	}
}

// clone copies the maps. Stored values are deep-copied on every read and
// write, so sharing them between the two states is safe.
func (st *state) clone() *state {
	c := &state{
		products:     copyMap(st.products),
		customers:    copyMap(st.customers),
		lots:         copyMap(st.lots),
		allocations:  copyMap(st.allocations),
		counters:     copyMap(st.counters),
		transactions: copyMap(st.transactions),
		sales:        copyMap(st.sales),
		saleItems:    copyMap(st.saleItems),
		invoices:     copyMap(st.invoices),
		quotations:   copyMap(st.quotations),
		returns:      copyMap(st.returns),
		repairs:      copyMap(st.repairs),
		damaged:      copyMap(st.damaged),
		activity:     append([]models.ActivityEntry(nil), st.activity...),
	}
	if st.settings != nil {
		settings := *st.settings
		c.settings = &settings
	}
	return c
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
