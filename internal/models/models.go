package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID          int64             `db:"id" json:"id"`
	SKU         string            `db:"sku" json:"sku"`
	Name        string            `db:"name" json:"name"`
	Price       decimal.Decimal   `db:"price" json:"price"`
	ProductType string            `db:"product_type" json:"product_type"`
	Components  []BundleComponent `db:"-" json:"components,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}

// IsBundle reports whether stock for the product is derived from its components.
func (p *Product) IsBundle() bool {
	return p.ProductType == ProductTypeBundle
}

// BundleComponent is one component of a bundle, in bundle order
type BundleComponent struct {
	BundleID     int64  `db:"bundle_id" json:"bundle_id"`
	SubProductID int64  `db:"sub_product_id" json:"sub_product_id"`
	Position     int    `db:"position" json:"position"`
	Quantity     int    `db:"quantity" json:"quantity"`
	SubName      string `db:"sub_name" json:"sub_product_name"`
	SubSKU       string `db:"sub_sku" json:"sub_product_sku"`
}

// InventoryLot is a single batch of stock with its own remaining quantity and cost
type InventoryLot struct {
	ID                int64           `db:"id" json:"id"`
	ProductID         int64           `db:"product_id" json:"product_id"`
	PurchaseDate      time.Time       `db:"purchase_date" json:"purchase_date"`
	QuantityPurchased int             `db:"quantity_purchased" json:"quantity_purchased"`
	QuantityRemaining int             `db:"quantity_remaining" json:"quantity_remaining"`
	UnitCost          decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	SourceType        string          `db:"source_type" json:"source_type"`
	SourceID          *int64          `db:"source_id" json:"source_id,omitempty"`
	Note              string          `db:"note" json:"note,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// StockAllocation records how many units a document consumed from a lot
type StockAllocation struct {
	ID             int64           `db:"id" json:"id"`
	LotID          int64           `db:"lot_id" json:"lot_id"`
	ProductID      int64           `db:"product_id" json:"product_id"`
	Quantity       int             `db:"quantity" json:"quantity"`
	UnitCost       decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	SaleItemID     *int64          `db:"sale_item_id" json:"sale_item_id,omitempty"`
	RepairID       *int64          `db:"repair_id" json:"repair_id,omitempty"`
	DamagedStockID *int64          `db:"damaged_stock_id" json:"damaged_stock_id,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Customer balance is negative when the customer owes money
type Customer struct {
	ID        int64           `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Transaction is a signed money movement against a customer
type Transaction struct {
	ID            int64           `db:"id" json:"id"`
	CustomerID    int64           `db:"customer_id" json:"customer_id"`
	Type          string          `db:"type" json:"type"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Description   string          `db:"description" json:"description"`
	PaymentMethod string          `db:"payment_method" json:"payment_method,omitempty"`
	InvoiceID     *int64          `db:"invoice_id" json:"invoice_id,omitempty"`
	ReturnID      *int64          `db:"return_id" json:"return_id,omitempty"`
	RepairID      *int64          `db:"repair_id" json:"repair_id,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Signed returns the balance effect of the transaction.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Type == TransactionCredit {
		return t.Amount
	}
	return t.Amount.Neg()
}

// TransactionFilter selects transactions by the document that produced them.
// Exactly one link should be set.
type TransactionFilter struct {
	InvoiceID *int64
	ReturnID  *int64
	RepairID  *int64
}

// DamagedStockEntry is a unit of stock pulled from sale because it was damaged
type DamagedStockEntry struct {
	ID        int64           `db:"id" json:"id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitCost  decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	Reason    string          `db:"reason" json:"reason"`
	Status    string          `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// TenantSettings holds per-tenant defaults used by the workflows
type TenantSettings struct {
	Currency        string `db:"currency" json:"currency"`
	DefaultDueDays  int    `db:"default_due_days" json:"default_due_days"`
	InvoicePrefix   string `db:"invoice_prefix" json:"invoice_prefix"`
	QuotationPrefix string `db:"quotation_prefix" json:"quotation_prefix"`
	ReturnPrefix    string `db:"return_prefix" json:"return_prefix"`
	RepairPrefix    string `db:"repair_prefix" json:"repair_prefix"`
}

// ActivityEntry is an audit line written by every workflow
type ActivityEntry struct {
	ID        int64     `db:"id" json:"id"`
	ActorID   int64     `db:"actor_id" json:"actor_id"`
	Action    string    `db:"action" json:"action"`
	Entity    string    `db:"entity" json:"entity"`
	EntityID  int64     `db:"entity_id" json:"entity_id"`
	Summary   string    `db:"summary" json:"summary"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Product types
const (
	ProductTypeStandard = "standard"
	ProductTypeBundle   = "bundle"
)

// Transaction types
const (
	TransactionDebit  = "debit"
	TransactionCredit = "credit"
)

// PaymentMethodCredits settles against store credit; no money leaves the till.
const PaymentMethodCredits = "Credits"

// Lot sources
const (
	LotSourcePurchase        = "purchase"
	LotSourceReturn          = "return"
	LotSourceInvoiceReversal = "invoice_reversal"
	LotSourceRepair          = "repair"
)

// Damaged stock statuses
const (
	DamagedStatusDamaged    = "Damaged"
	DamagedStatusInRepair   = "In Repair"
	DamagedStatusRepaired   = "Repaired"
	DamagedStatusWrittenOff = "Written Off"
)
