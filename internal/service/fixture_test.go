package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"backoffice-service/internal/models"
	"backoffice-service/internal/store"
	"backoffice-service/internal/store/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	tables [][]string
}

func (n *recordingNotifier) NotifyChanged(_ context.Context, _ string, tables ...string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tables = append(n.tables, tables)
	return nil
}

func (n *recordingNotifier) last() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.tables) == 0 {
		return nil
	}
	return n.tables[len(n.tables)-1]
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memstore.Store
	o        *Orchestrator
	notifier *recordingNotifier
	actor    Actor
	skus     int
}

func newFixture(t *testing.T) *fixture {
	s := memstore.New()
	n := &recordingNotifier{}
	o := NewOrchestrator(s, NewTenantLocks(), n, Defaults{Currency: "USD", DefaultDueDays: 14})
	o.now = func() time.Time { return testNow }
	return &fixture{
		t:        t,
		ctx:      context.Background(),
		store:    s,
		o:        o,
		notifier: n,
		actor:    Actor{TenantID: "tenant-1", UserID: 7},
	}
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func (f *fixture) customer(name string) int64 {
	c, err := f.o.CreateCustomer(f.ctx, f.actor, name)
	require.NoError(f.t, err)
	return c.ID
}

func (f *fixture) product(sku string, price int64) int64 {
	p, err := f.o.CreateProduct(f.ctx, f.actor, &CreateProductRequest{SKU: sku, Name: sku, Price: dec(price)})
	require.NoError(f.t, err)
	return p.ID
}

func (f *fixture) bundle(sku string, price int64, components ...BundleComponentRequest) int64 {
	p, err := f.o.CreateProduct(f.ctx, f.actor, &CreateProductRequest{
		SKU: sku, Name: sku, Price: dec(price), ProductType: models.ProductTypeBundle, Components: components,
	})
	require.NoError(f.t, err)
	return p.ID
}

func (f *fixture) purchase(productID int64, qty int, cost int64, daysAgo int) *models.InventoryLot {
	lot, err := f.o.ReceivePurchase(f.ctx, f.actor, &ReceivePurchaseRequest{
		ProductID: productID, Quantity: qty, UnitCost: dec(cost), PurchaseDate: testNow.AddDate(0, 0, -daysAgo),
	})
	require.NoError(f.t, err)
	return lot
}

func (f *fixture) stock(productID int64) int {
	ps, err := f.o.GetProductStock(f.ctx, f.actor, productID)
	require.NoError(f.t, err)
	return ps.Available
}

func (f *fixture) lots(productID int64) []models.InventoryLot {
	ps, err := f.o.GetProductStock(f.ctx, f.actor, productID)
	require.NoError(f.t, err)
	return ps.Lots
}

func (f *fixture) balance(customerID int64) decimal.Decimal {
	c, err := f.o.GetCustomer(f.ctx, f.actor, customerID)
	require.NoError(f.t, err)
	return c.Balance
}

func (f *fixture) line(productID int64, qty int) LineItemRequest {
	return LineItemRequest{ProductID: &productID, Quantity: qty}
}

func (f *fixture) invoice(customerID int64, lines ...LineItemRequest) *models.Invoice {
	inv, err := f.o.CreateInvoice(f.ctx, f.actor, &CreateInvoiceRequest{CustomerID: customerID, LineItems: lines, IssueDate: testNow})
	require.NoError(f.t, err)
	return inv
}

func (f *fixture) details(invoiceID int64) *InvoiceDetails {
	d, err := f.o.GetInvoice(f.ctx, f.actor, invoiceID)
	require.NoError(f.t, err)
	return d
}

// view runs a read against the store
func (f *fixture) view(fn func(tx store.Tx) error) {
	require.NoError(f.t, f.store.WithTx(f.ctx, f.actor.TenantID, fn))
}

func assertDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %d, got %s", want, got)
}
