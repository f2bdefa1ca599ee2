package store

import (
	"context"

	"backoffice-service/internal/models"

	"github.com/shopspring/decimal"
)

// Transactor runs a unit of work for one tenant.
//
// WithTx serializes units of work per tenant. Every write made through the
// Tx is committed when fn returns nil and discarded when it returns an error.
type Transactor interface {
	WithTx(ctx context.Context, tenantID string, fn func(tx Tx) error) error
}

// Tx is the tenant-scoped view of storage inside a unit of work.
// Lookups of a single missing row return an apperr.ErrNotFound error;
// Find* lookups return nil, nil instead.
type Tx interface {
	TenantID() string

	InsertProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)

	InsertCustomer(ctx context.Context, c *models.Customer) error
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	AdjustCustomerBalance(ctx context.Context, id int64, delta decimal.Decimal) error

	// ListOpenLots returns lots with stock left, oldest purchase first.
	ListOpenLots(ctx context.Context, productID int64) ([]models.InventoryLot, error)
	ListLotsBySource(ctx context.Context, sourceType string, sourceID int64) ([]models.InventoryLot, error)
	InsertLot(ctx context.Context, lot *models.InventoryLot) error
	SetLotRemaining(ctx context.Context, lotID int64, remaining int) error

	InsertAllocation(ctx context.Context, a *models.StockAllocation) error
	ListAllocationsBySaleItem(ctx context.Context, saleItemID int64) ([]models.StockAllocation, error)

	// NextSequence increments the counter for kind and returns the value to use.
	NextSequence(ctx context.Context, kind string) (int64, error)
	FindSettings(ctx context.Context) (*models.TenantSettings, error)
	SaveSettings(ctx context.Context, s *models.TenantSettings) error

	InsertTransaction(ctx context.Context, t *models.Transaction) error
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error

	InsertSale(ctx context.Context, s *models.Sale) error
	GetSale(ctx context.Context, id int64) (*models.Sale, error)
	GetSaleByInvoice(ctx context.Context, invoiceID int64) (*models.Sale, error)
	GetSaleItem(ctx context.Context, id int64) (*models.SaleItem, error)
	UpdateSaleItem(ctx context.Context, item *models.SaleItem) error
	DeleteSale(ctx context.Context, id int64) error

	InsertInvoice(ctx context.Context, inv *models.Invoice) error
	GetInvoice(ctx context.Context, id int64) (*models.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *models.Invoice) error
	DeleteInvoice(ctx context.Context, id int64) error

	InsertQuotation(ctx context.Context, q *models.Quotation) error
	GetQuotation(ctx context.Context, id int64) (*models.Quotation, error)
	FindQuotationByInvoice(ctx context.Context, invoiceID int64) (*models.Quotation, error)
	UpdateQuotation(ctx context.Context, q *models.Quotation) error
	DeleteQuotation(ctx context.Context, id int64) error

	InsertReturn(ctx context.Context, r *models.Return) error
	GetReturn(ctx context.Context, id int64) (*models.Return, error)
	ListReturnsByInvoice(ctx context.Context, invoiceID int64) ([]models.Return, error)
	DeleteReturn(ctx context.Context, id int64) error

	InsertRepair(ctx context.Context, r *models.Repair) error
	GetRepair(ctx context.Context, id int64) (*models.Repair, error)
	FindRepairByInvoice(ctx context.Context, invoiceID int64) (*models.Repair, error)
	UpdateRepair(ctx context.Context, r *models.Repair) error

	InsertDamagedStock(ctx context.Context, d *models.DamagedStockEntry) error
	GetDamagedStock(ctx context.Context, id int64) (*models.DamagedStockEntry, error)
	SetDamagedStockStatus(ctx context.Context, id int64, status string) error

	InsertActivity(ctx context.Context, e *models.ActivityEntry) error
}
