package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"backoffice-service/internal/models"
)

// InsertReturn creates a return with its items and expenses
func (t *pgTx) InsertReturn(ctx context.Context, r *models.Return) error {
	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO returns (tenant_id, original_invoice_id, customer_id, return_receipt_number,
			total_refund_amount, restocked, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		t.tenantID, r.InvoiceID, r.CustomerID, r.ReturnReceiptNumber, r.TotalRefundAmount,
		r.Restocked, r.Reason,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create return: %w", err)
	}

	for i := range r.Items {
		item := &r.Items[i]
		item.ReturnID = r.ID
		err := t.tx.GetContext(ctx, &item.ID, `
			INSERT INTO return_items (tenant_id, return_id, sale_item_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			t.tenantID, item.ReturnID, item.SaleItemID, item.ProductID, item.Quantity, item.UnitPrice)
		if err != nil {
			return fmt.Errorf("failed to create return item: %w", err)
		}
	}

	for i := range r.Expenses {
		exp := &r.Expenses[i]
		exp.ReturnID = r.ID
		err := t.tx.GetContext(ctx, &exp.ID, `
			INSERT INTO return_expenses (tenant_id, return_id, description, amount)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			t.tenantID, exp.ReturnID, exp.Description, exp.Amount)
		if err != nil {
			return fmt.Errorf("failed to create return expense: %w", err)
		}
	}
	return nil
}

const returnColumns = `id, original_invoice_id, customer_id, return_receipt_number, total_refund_amount,
	restocked, reason, created_at`

// GetReturn retrieves a return with items and expenses (FOR UPDATE)
func (t *pgTx) GetReturn(ctx context.Context, id int64) (*models.Return, error) {
	var r models.Return
	err := t.getOne(ctx, &r, "return", id, `
		SELECT `+returnColumns+`
		FROM returns WHERE tenant_id = $1 AND id = $2
		FOR UPDATE`, t.tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := t.loadReturnChildren(ctx, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (t *pgTx) loadReturnChildren(ctx context.Context, r *models.Return) error {
	err := t.tx.SelectContext(ctx, &r.Items, `
		SELECT id, return_id, sale_item_id, product_id, quantity, unit_price
		FROM return_items WHERE tenant_id = $1 AND return_id = $2
		ORDER BY id`, t.tenantID, r.ID)
	if err != nil {
		return fmt.Errorf("failed to load return items: %w", err)
	}
	err = t.tx.SelectContext(ctx, &r.Expenses, `
		SELECT id, return_id, description, amount
		FROM return_expenses WHERE tenant_id = $1 AND return_id = $2
		ORDER BY id`, t.tenantID, r.ID)
	if err != nil {
		return fmt.Errorf("failed to load return expenses: %w", err)
	}
	return nil
}

// ListReturnsByInvoice retrieves every return raised against an invoice
func (t *pgTx) ListReturnsByInvoice(ctx context.Context, invoiceID int64) ([]models.Return, error) {
	var out []models.Return
	err := t.tx.SelectContext(ctx, &out, `
		SELECT `+returnColumns+`
		FROM returns WHERE tenant_id = $1 AND original_invoice_id = $2
		ORDER BY id`, t.tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if err := t.loadReturnChildren(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DeleteReturn removes a return with its items and expenses
func (t *pgTx) DeleteReturn(ctx context.Context, id int64) error {
	for _, table := range []string{"return_items", "return_expenses"} {
		if _, err := t.tx.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE tenant_id = $1 AND return_id = $2", t.tenantID, id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}
	return t.execOne(ctx, "return", id, "DELETE FROM returns WHERE tenant_id = $1 AND id = $2", t.tenantID, id)
}

// InsertRepair creates a repair with its parts
func (t *pgTx) InsertRepair(ctx context.Context, r *models.Repair) error {
	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO repairs (tenant_id, repair_number, customer_id, product_id, sale_item_id,
			damaged_stock_id, status, is_warranty, description, repair_fee, invoice_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		t.tenantID, r.RepairNumber, r.CustomerID, r.ProductID, r.SaleItemID, r.DamagedStockID,
		r.Status, r.IsWarranty, r.Description, r.RepairFee, r.InvoiceID,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create repair: %w", err)
	}

	for i := range r.Items {
		item := &r.Items[i]
		item.RepairID = r.ID
		err := t.tx.GetContext(ctx, &item.ID, `
			INSERT INTO repair_items (tenant_id, repair_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			t.tenantID, item.RepairID, item.ProductID, item.Quantity, item.UnitPrice)
		if err != nil {
			return fmt.Errorf("failed to create repair item: %w", err)
		}
	}
	return nil
}

const repairColumns = `id, repair_number, customer_id, product_id, sale_item_id, damaged_stock_id, status,
	is_warranty, description, repair_fee, invoice_id, created_at, updated_at`

// GetRepair retrieves a repair with its parts (FOR UPDATE)
func (t *pgTx) GetRepair(ctx context.Context, id int64) (*models.Repair, error) {
	var r models.Repair
	err := t.getOne(ctx, &r, "repair", id, `
		SELECT `+repairColumns+`
		FROM repairs WHERE tenant_id = $1 AND id = $2
		FOR UPDATE`, t.tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := t.loadRepairItems(ctx, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// FindRepairByInvoice retrieves the repair billed by an invoice, nil if none
func (t *pgTx) FindRepairByInvoice(ctx context.Context, invoiceID int64) (*models.Repair, error) {
	var r models.Repair
	err := t.tx.GetContext(ctx, &r, `
		SELECT `+repairColumns+`
		FROM repairs WHERE tenant_id = $1 AND invoice_id = $2
		FOR UPDATE`, t.tenantID, invoiceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := t.loadRepairItems(ctx, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (t *pgTx) loadRepairItems(ctx context.Context, r *models.Repair) error {
	err := t.tx.SelectContext(ctx, &r.Items, `
		SELECT id, repair_id, product_id, quantity, unit_price
		FROM repair_items WHERE tenant_id = $1 AND repair_id = $2
		ORDER BY id`, t.tenantID, r.ID)
	if err != nil {
		return fmt.Errorf("failed to load repair items: %w", err)
	}
	return nil
}

// UpdateRepair persists status, warranty flag and invoice link
func (t *pgTx) UpdateRepair(ctx context.Context, r *models.Repair) error {
	return t.execOne(ctx, "repair", r.ID, `
		UPDATE repairs
		SET status = $1, is_warranty = $2, invoice_id = $3, repair_fee = $4, updated_at = NOW()
		WHERE tenant_id = $5 AND id = $6`,
		r.Status, r.IsWarranty, r.InvoiceID, r.RepairFee, t.tenantID, r.ID)
}

// InsertDamagedStock creates a damaged-stock log entry
func (t *pgTx) InsertDamagedStock(ctx context.Context, d *models.DamagedStockEntry) error {
	return t.tx.QueryRowxContext(ctx, `
		INSERT INTO damaged_stock (tenant_id, product_id, quantity, unit_cost, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		t.tenantID, d.ProductID, d.Quantity, d.UnitCost, d.Reason, d.Status,
	).Scan(&d.ID, &d.CreatedAt)
}

// GetDamagedStock retrieves a damaged-stock log entry (FOR UPDATE)
func (t *pgTx) GetDamagedStock(ctx context.Context, id int64) (*models.DamagedStockEntry, error) {
	var d models.DamagedStockEntry
	err := t.getOne(ctx, &d, "damaged stock entry", id, `
		SELECT id, product_id, quantity, unit_cost, reason, status, created_at
		FROM damaged_stock WHERE tenant_id = $1 AND id = $2
		FOR UPDATE`, t.tenantID, id)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// SetDamagedStockStatus updates a damaged-stock log entry's status
func (t *pgTx) SetDamagedStockStatus(ctx context.Context, id int64, status string) error {
	return t.execOne(ctx, "damaged stock entry", id,
		"UPDATE damaged_stock SET status = $1 WHERE tenant_id = $2 AND id = $3", status, t.tenantID, id)
}

// InsertActivity appends to the activity log
func (t *pgTx) InsertActivity(ctx context.Context, e *models.ActivityEntry) error {
	return t.tx.QueryRowxContext(ctx, `
		INSERT INTO activity_log (tenant_id, actor_id, action, entity, entity_id, summary)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		t.tenantID, e.ActorID, e.Action, e.Entity, e.EntityID, e.Summary,
	).Scan(&e.ID, &e.CreatedAt)
}
