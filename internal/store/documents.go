package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/models"
)

// InsertTransaction creates a ledger entry
func (t *pgTx) InsertTransaction(ctx context.Context, tr *models.Transaction) error {
	return t.tx.QueryRowxContext(ctx, `
		INSERT INTO transactions (tenant_id, customer_id, type, amount, description, payment_method,
			invoice_id, return_id, repair_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		t.tenantID, tr.CustomerID, tr.Type, tr.Amount, tr.Description, tr.PaymentMethod,
		tr.InvoiceID, tr.ReturnID, tr.RepairID,
	).Scan(&tr.ID, &tr.CreatedAt)
}

// ListTransactions retrieves the ledger entries linked to one document
func (t *pgTx) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	var column string
	var id int64
	switch {
	case filter.InvoiceID != nil:
		column, id = "invoice_id", *filter.InvoiceID
	case filter.ReturnID != nil:
		column, id = "return_id", *filter.ReturnID
	case filter.RepairID != nil:
		column, id = "repair_id", *filter.RepairID
	default:
		return nil, apperr.Validation("transaction filter needs a document link")
	}

	var out []models.Transaction
	err := t.tx.SelectContext(ctx, &out, `
		SELECT id, customer_id, type, amount, description, payment_method,
		       invoice_id, return_id, repair_id, created_at
		FROM transactions
		WHERE tenant_id = $1 AND `+column+` = $2
		ORDER BY id`, t.tenantID, id)
	return out, err
}

// DeleteTransaction removes a ledger entry
func (t *pgTx) DeleteTransaction(ctx context.Context, id int64) error {
	return t.execOne(ctx, "transaction", id,
		"DELETE FROM transactions WHERE tenant_id = $1 AND id = $2", t.tenantID, id)
}

// InsertSale creates a sale and its items
func (t *pgTx) InsertSale(ctx context.Context, s *models.Sale) error {
	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO sales (tenant_id, customer_id, invoice_id, total_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		t.tenantID, s.CustomerID, s.InvoiceID, s.TotalAmount).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create sale: %w", err)
	}

	for i := range s.Items {
		item := &s.Items[i]
		item.SaleID = s.ID
		err := t.tx.GetContext(ctx, &item.ID, `
			INSERT INTO sale_items (tenant_id, sale_id, line_item_id, product_id, quantity, unit_price,
				net_amount, quantity_returned, warranty_period_value, warranty_period_unit)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`,
			t.tenantID, item.SaleID, item.LineItemID, item.ProductID, item.Quantity, item.UnitPrice,
			item.NetAmount, item.QuantityReturned, item.WarrantyPeriodValue, item.WarrantyPeriodUnit)
		if err != nil {
			return fmt.Errorf("failed to create sale item: %w", err)
		}
	}
	return nil
}

const saleItemColumns = `id, sale_id, line_item_id, product_id, quantity, unit_price, net_amount, quantity_returned,
	warranty_period_value, warranty_period_unit, warranty_voided, warranty_void_reason`

// GetSale retrieves a sale with items
func (t *pgTx) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	var s models.Sale
	err := t.getOne(ctx, &s, "sale", id, `
		SELECT id, customer_id, invoice_id, total_amount, created_at
		FROM sales WHERE tenant_id = $1 AND id = $2`, t.tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := t.loadSaleItems(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSaleByInvoice retrieves the sale backing an invoice, with items
func (t *pgTx) GetSaleByInvoice(ctx context.Context, invoiceID int64) (*models.Sale, error) {
	var s models.Sale
	err := t.getOne(ctx, &s, "sale for invoice", invoiceID, `
		SELECT id, customer_id, invoice_id, total_amount, created_at
		FROM sales WHERE tenant_id = $1 AND invoice_id = $2`, t.tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := t.loadSaleItems(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *pgTx) loadSaleItems(ctx context.Context, s *models.Sale) error {
	err := t.tx.SelectContext(ctx, &s.Items, `
		SELECT `+saleItemColumns+`
		FROM sale_items WHERE tenant_id = $1 AND sale_id = $2
		ORDER BY id
		FOR UPDATE`, t.tenantID, s.ID)
	if err != nil {
		return fmt.Errorf("failed to load sale items: %w", err)
	}
	return nil
}

// GetSaleItem retrieves one sale item (FOR UPDATE)
func (t *pgTx) GetSaleItem(ctx context.Context, id int64) (*models.SaleItem, error) {
	var item models.SaleItem
	err := t.getOne(ctx, &item, "sale item", id, `
		SELECT `+saleItemColumns+`
		FROM sale_items WHERE tenant_id = $1 AND id = $2
		FOR UPDATE`, t.tenantID, id)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateSaleItem persists the returned quantity and warranty state
func (t *pgTx) UpdateSaleItem(ctx context.Context, item *models.SaleItem) error {
	return t.execOne(ctx, "sale item", item.ID, `
		UPDATE sale_items
		SET quantity_returned = $1, warranty_voided = $2, warranty_void_reason = $3
		WHERE tenant_id = $4 AND id = $5`,
		item.QuantityReturned, item.WarrantyVoided, item.WarrantyVoidReason, t.tenantID, item.ID)
}

// DeleteSale removes a sale and its items
func (t *pgTx) DeleteSale(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx,
		"DELETE FROM sale_items WHERE tenant_id = $1 AND sale_id = $2", t.tenantID, id); err != nil {
		return fmt.Errorf("failed to delete sale items: %w", err)
	}
	return t.execOne(ctx, "sale", id, "DELETE FROM sales WHERE tenant_id = $1 AND id = $2", t.tenantID, id)
}

const invoiceColumns = `id, customer_id, invoice_number, issue_date, due_date, line_items, subtotal,
	delivery_charge, discount, total, currency, status, return_status, notes, created_at`

// InsertInvoice creates an invoice
func (t *pgTx) InsertInvoice(ctx context.Context, inv *models.Invoice) error {
	return t.tx.QueryRowxContext(ctx, `
		INSERT INTO invoices (tenant_id, customer_id, invoice_number, issue_date, due_date, line_items,
			subtotal, delivery_charge, discount, total, currency, status, return_status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`,
		t.tenantID, inv.CustomerID, inv.InvoiceNumber, inv.IssueDate, inv.DueDate, inv.LineItems,
		inv.Subtotal, inv.DeliveryCharge, inv.Discount, inv.Total, inv.Currency, inv.Status,
		inv.ReturnStatus, inv.Notes,
	).Scan(&inv.ID, &inv.CreatedAt)
}

// GetInvoice retrieves an invoice (FOR UPDATE)
func (t *pgTx) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	var inv models.Invoice
	err := t.getOne(ctx, &inv, "invoice", id, `
		SELECT `+invoiceColumns+`
		FROM invoices WHERE tenant_id = $1 AND id = $2
		FOR UPDATE`, t.tenantID, id)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// UpdateInvoice persists the payment and return statuses
func (t *pgTx) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	return t.execOne(ctx, "invoice", inv.ID,
		"UPDATE invoices SET status = $1, return_status = $2 WHERE tenant_id = $3 AND id = $4",
		inv.Status, inv.ReturnStatus, t.tenantID, inv.ID)
}

// DeleteInvoice removes an invoice
func (t *pgTx) DeleteInvoice(ctx context.Context, id int64) error {
	return t.execOne(ctx, "invoice", id, "DELETE FROM invoices WHERE tenant_id = $1 AND id = $2", t.tenantID, id)
}

const quotationColumns = `id, customer_id, quotation_number, issue_date, line_items, subtotal,
	delivery_charge, discount, total, status, converted_invoice_id, created_at`

// InsertQuotation creates a quotation
func (t *pgTx) InsertQuotation(ctx context.Context, q *models.Quotation) error {
	return t.tx.QueryRowxContext(ctx, `
		INSERT INTO quotations (tenant_id, customer_id, quotation_number, issue_date, line_items,
			subtotal, delivery_charge, discount, total, status, converted_invoice_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`,
		t.tenantID, q.CustomerID, q.QuotationNumber, q.IssueDate, q.LineItems, q.Subtotal,
		q.DeliveryCharge, q.Discount, q.Total, q.Status, q.ConvertedInvoiceID,
	).Scan(&q.ID, &q.CreatedAt)
}

// GetQuotation retrieves a quotation (FOR UPDATE)
func (t *pgTx) GetQuotation(ctx context.Context, id int64) (*models.Quotation, error) {
	var q models.Quotation
	err := t.getOne(ctx, &q, "quotation", id, `
		SELECT `+quotationColumns+`
		FROM quotations WHERE tenant_id = $1 AND id = $2
		FOR UPDATE`, t.tenantID, id)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// FindQuotationByInvoice retrieves the quotation converted into an invoice, nil if none
func (t *pgTx) FindQuotationByInvoice(ctx context.Context, invoiceID int64) (*models.Quotation, error) {
	var q models.Quotation
	err := t.tx.GetContext(ctx, &q, `
		SELECT `+quotationColumns+`
		FROM quotations WHERE tenant_id = $1 AND converted_invoice_id = $2
		FOR UPDATE`, t.tenantID, invoiceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// UpdateQuotation persists the editable fields and the conversion link
func (t *pgTx) UpdateQuotation(ctx context.Context, q *models.Quotation) error {
	return t.execOne(ctx, "quotation", q.ID, `
		UPDATE quotations
		SET issue_date = $1, line_items = $2, subtotal = $3, delivery_charge = $4, discount = $5,
		    total = $6, status = $7, converted_invoice_id = $8
		WHERE tenant_id = $9 AND id = $10`,
		q.IssueDate, q.LineItems, q.Subtotal, q.DeliveryCharge, q.Discount,
		q.Total, q.Status, q.ConvertedInvoiceID, t.tenantID, q.ID)
}

// DeleteQuotation removes a quotation
func (t *pgTx) DeleteQuotation(ctx context.Context, id int64) error {
	return t.execOne(ctx, "quotation", id, "DELETE FROM quotations WHERE tenant_id = $1 AND id = $2", t.tenantID, id)
}
