package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is the stock-and-money record backing an invoice
type Sale struct {
	ID          int64           `db:"id" json:"id"`
	CustomerID  int64           `db:"customer_id" json:"customer_id"`
	InvoiceID   int64           `db:"invoice_id" json:"invoice_id"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	Items       []SaleItem      `db:"-" json:"items"`
}

// SaleItem is one sold line. QuantityReturned never exceeds Quantity.
type SaleItem struct {
	ID                  int64           `db:"id" json:"id"`
	SaleID              int64           `db:"sale_id" json:"sale_id"`
	LineItemID          string          `db:"line_item_id" json:"line_item_id"`
	ProductID           *int64          `db:"product_id" json:"product_id,omitempty"`
	Quantity            int             `db:"quantity" json:"quantity"`
	UnitPrice           decimal.Decimal `db:"unit_price" json:"unit_price"`
	NetAmount           decimal.Decimal `db:"net_amount" json:"net_amount"`
	QuantityReturned    int             `db:"quantity_returned" json:"quantity_returned"`
	WarrantyPeriodValue int             `db:"warranty_period_value" json:"warranty_period_value,omitempty"`
	WarrantyPeriodUnit  string          `db:"warranty_period_unit" json:"warranty_period_unit,omitempty"`
	WarrantyVoided      bool            `db:"warranty_voided" json:"warranty_voided"`
	WarrantyVoidReason  string          `db:"warranty_void_reason" json:"warranty_void_reason,omitempty"`
}

// RefundValue is what qty units are worth back to the customer once returned
// units have already gone back. Shares of NetAmount are cumulative, so
// returning every unit refunds exactly NetAmount however it was split.
func (s *SaleItem) RefundValue(returned, qty int) decimal.Decimal {
	return s.netShare(returned + qty).Sub(s.netShare(returned))
}

func (s *SaleItem) netShare(units int) decimal.Decimal {
	if units >= s.Quantity {
		return s.NetAmount
	}
	return s.NetAmount.Mul(decimal.NewFromInt(int64(units))).Div(decimal.NewFromInt(int64(s.Quantity))).Round(2)
}

// Invoice is the customer-facing sales document
type Invoice struct {
	ID             int64           `db:"id" json:"id"`
	CustomerID     int64           `db:"customer_id" json:"customer_id"`
	InvoiceNumber  string          `db:"invoice_number" json:"invoice_number"`
	IssueDate      time.Time       `db:"issue_date" json:"issue_date"`
	DueDate        time.Time       `db:"due_date" json:"due_date"`
	LineItems      LineItems       `db:"line_items" json:"line_items"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	DeliveryCharge decimal.Decimal `db:"delivery_charge" json:"delivery_charge"`
	Discount       decimal.Decimal `db:"discount" json:"discount"`
	Total          decimal.Decimal `db:"total" json:"total"`
	Currency       string          `db:"currency" json:"currency"`
	Status         string          `db:"status" json:"status"`
	ReturnStatus   string          `db:"return_status" json:"return_status"`
	Notes          string          `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Quotation is a priced offer that converts into an invoice once
type Quotation struct {
	ID                 int64           `db:"id" json:"id"`
	CustomerID         int64           `db:"customer_id" json:"customer_id"`
	QuotationNumber    string          `db:"quotation_number" json:"quotation_number"`
	IssueDate          time.Time       `db:"issue_date" json:"issue_date"`
	LineItems          LineItems       `db:"line_items" json:"line_items"`
	Subtotal           decimal.Decimal `db:"subtotal" json:"subtotal"`
	DeliveryCharge     decimal.Decimal `db:"delivery_charge" json:"delivery_charge"`
	Discount           decimal.Decimal `db:"discount" json:"discount"`
	Total              decimal.Decimal `db:"total" json:"total"`
	Status             string          `db:"status" json:"status"`
	ConvertedInvoiceID *int64          `db:"converted_invoice_id" json:"converted_invoice_id,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
}

// Return undoes part of a sale
type Return struct {
	ID                  int64           `db:"id" json:"id"`
	InvoiceID           int64           `db:"original_invoice_id" json:"original_invoice_id"`
	CustomerID          int64           `db:"customer_id" json:"customer_id"`
	ReturnReceiptNumber string          `db:"return_receipt_number" json:"return_receipt_number"`
	TotalRefundAmount   decimal.Decimal `db:"total_refund_amount" json:"total_refund_amount"`
	Restocked           bool            `db:"restocked" json:"restocked"`
	Reason              string          `db:"reason" json:"reason,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	Items               []ReturnItem    `db:"-" json:"items"`
	Expenses            []ReturnExpense `db:"-" json:"expenses"`
}

type ReturnItem struct {
	ID         int64           `db:"id" json:"id"`
	ReturnID   int64           `db:"return_id" json:"return_id"`
	SaleItemID int64           `db:"sale_item_id" json:"sale_item_id"`
	ProductID  *int64          `db:"product_id" json:"product_id,omitempty"`
	Quantity   int             `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
}

type ReturnExpense struct {
	ID          int64           `db:"id" json:"id"`
	ReturnID    int64           `db:"return_id" json:"return_id"`
	Description string          `db:"description" json:"description"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
}

// Repair tracks an item through the repair desk
type Repair struct {
	ID             int64           `db:"id" json:"id"`
	RepairNumber   string          `db:"repair_number" json:"repair_number"`
	CustomerID     *int64          `db:"customer_id" json:"customer_id,omitempty"`
	ProductID      *int64          `db:"product_id" json:"product_id,omitempty"`
	SaleItemID     *int64          `db:"sale_item_id" json:"sale_item_id,omitempty"`
	DamagedStockID *int64          `db:"damaged_stock_id" json:"damaged_stock_id,omitempty"`
	Status         string          `db:"status" json:"status"`
	IsWarranty     bool            `db:"is_warranty" json:"is_warranty"`
	Description    string          `db:"description" json:"description"`
	RepairFee      decimal.Decimal `db:"repair_fee" json:"repair_fee"`
	InvoiceID      *int64          `db:"invoice_id" json:"invoice_id,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
	Items          []RepairItem    `db:"-" json:"items"`
}

// IsTerminal reports whether the repair accepts no further transitions.
func (r *Repair) IsTerminal() bool {
	switch r.Status {
	case RepairStatusReceived, RepairStatusInProgress:
		return false
	}
	return true
}

// RepairItem is a part consumed by a repair
type RepairItem struct {
	ID        int64           `db:"id" json:"id"`
	RepairID  int64           `db:"repair_id" json:"repair_id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
}

// Invoice statuses
const (
	InvoiceStatusDraft         = "Draft"
	InvoiceStatusSent          = "Sent"
	InvoiceStatusPartiallyPaid = "Partially Paid"
	InvoiceStatusPaid          = "Paid"
	InvoiceStatusOverdue       = "Overdue"
)

// Invoice return statuses
const (
	ReturnStatusNone              = "None"
	ReturnStatusPartiallyReturned = "Partially Returned"
	ReturnStatusFullyReturned     = "Fully Returned"
)

// Quotation statuses
const (
	QuotationStatusDraft     = "Draft"
	QuotationStatusConverted = "Converted"
)

// Repair statuses
const (
	RepairStatusReceived          = "Received"
	RepairStatusInProgress        = "In Progress"
	RepairStatusCompleted         = "Completed"
	RepairStatusCompletedReplaced = "Completed (Replaced)"
	RepairStatusCompletedCredit   = "Completed (Credit)"
	RepairStatusRepaired          = "Repaired"
	RepairStatusUnrepairable      = "Unrepairable"
)
