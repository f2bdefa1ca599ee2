package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItemRequest is one requested document line. Lines without a product,
// or whose id carries the custom- prefix, are custom lines and never touch
// stock. UnitPrice defaults to the product price.
type LineItemRequest struct {
	ID                  string           `json:"id,omitempty"`
	ProductID           *int64           `json:"product_id,omitempty"`
	Description         string           `json:"description"`
	Quantity            int              `json:"quantity" binding:"required,min=1"`
	UnitPrice           *decimal.Decimal `json:"unitPrice,omitempty"`
	Discount            decimal.Decimal  `json:"discount"`
	WarrantyPeriodValue int              `json:"warranty_period_value,omitempty"`
	WarrantyPeriodUnit  string           `json:"warranty_period_unit,omitempty"`
}

// PaymentRequest is money received from, or paid out to, a customer
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" binding:"required"`
}

type CreateInvoiceRequest struct {
	CustomerID     int64             `json:"customer_id" binding:"required"`
	LineItems      []LineItemRequest `json:"line_items" binding:"required,min=1,dive"`
	IssueDate      time.Time         `json:"issue_date"`
	DeliveryCharge decimal.Decimal   `json:"delivery_charge"`
	Discount       decimal.Decimal   `json:"discount"`
	Notes          string            `json:"notes,omitempty"`
	Payments       []PaymentRequest  `json:"payments,omitempty"`
}

type QuotationRequest struct {
	CustomerID     int64             `json:"customer_id" binding:"required"`
	LineItems      []LineItemRequest `json:"line_items" binding:"required,min=1,dive"`
	IssueDate      time.Time         `json:"issue_date"`
	DeliveryCharge decimal.Decimal   `json:"delivery_charge"`
	Discount       decimal.Decimal   `json:"discount"`
}

type ReturnItemRequest struct {
	SaleItemID int64 `json:"sale_item_id" binding:"required"`
	Quantity   int   `json:"quantity" binding:"required,min=1"`
}

type ReturnExpenseRequest struct {
	Description string          `json:"description" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
}

type CreateReturnRequest struct {
	InvoiceID int64                  `json:"original_invoice_id" binding:"required"`
	Items     []ReturnItemRequest    `json:"items" binding:"required,min=1,dive"`
	Payments  []PaymentRequest       `json:"payments,omitempty"`
	Expenses  []ReturnExpenseRequest `json:"expenses,omitempty"`
	Restock   bool                   `json:"restock_items"`
	Reason    string                 `json:"reason,omitempty"`
}

type RepairItemRequest struct {
	ProductID int64            `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// CreateRepairRequest opens a repair for a customer's item, a previously sold
// item (SaleItemID) or a unit from the damaged-stock log (DamagedStockID)
type CreateRepairRequest struct {
	CustomerID     *int64              `json:"customer_id,omitempty"`
	ProductID      *int64              `json:"product_id,omitempty"`
	SaleItemID     *int64              `json:"sale_item_id,omitempty"`
	DamagedStockID *int64              `json:"damaged_stock_id,omitempty"`
	Description    string              `json:"description"`
	RepairFee      decimal.Decimal     `json:"repair_fee"`
	Items          []RepairItemRequest `json:"items,omitempty"`
}

type CreateProductRequest struct {
	SKU         string                   `json:"sku" binding:"required"`
	Name        string                   `json:"name" binding:"required"`
	Price       decimal.Decimal          `json:"price"`
	ProductType string                   `json:"product_type"`
	Components  []BundleComponentRequest `json:"components,omitempty"`
}

type BundleComponentRequest struct {
	SubProductID int64 `json:"sub_product_id" binding:"required"`
	Quantity     int   `json:"quantity" binding:"required,min=1"`
}

type ReceivePurchaseRequest struct {
	ProductID    int64           `json:"product_id" binding:"required"`
	Quantity     int             `json:"quantity" binding:"required,min=1"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	PurchaseDate time.Time       `json:"purchase_date"`
	Note         string          `json:"note,omitempty"`
}

type ReportDamagedStockRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Reason    string `json:"reason"`
}
