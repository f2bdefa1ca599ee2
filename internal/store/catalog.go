package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"backoffice-service/internal/models"

	"github.com/shopspring/decimal"
)

// InsertProduct creates a product and its bundle components
func (t *pgTx) InsertProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (tenant_id, sku, name, price, product_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	if err := t.tx.QueryRowxContext(ctx, query,
		t.tenantID, p.SKU, p.Name, p.Price, p.ProductType).Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	for i := range p.Components {
		c := &p.Components[i]
		c.BundleID = p.ID
		c.Position = i
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO bundle_components (tenant_id, bundle_id, sub_product_id, position, quantity)
			VALUES ($1, $2, $3, $4, $5)`,
			t.tenantID, c.BundleID, c.SubProductID, c.Position, c.Quantity)
		if err != nil {
			return fmt.Errorf("failed to create bundle component: %w", err)
		}
	}
	return nil
}

// GetProduct retrieves a product with its components in bundle order
func (t *pgTx) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	err := t.getOne(ctx, &p, "product", id, `
		SELECT id, sku, name, price, product_type, created_at
		FROM products WHERE tenant_id = $1 AND id = $2`, t.tenantID, id)
	if err != nil {
		return nil, err
	}

	if p.IsBundle() {
		err = t.tx.SelectContext(ctx, &p.Components, `
			SELECT bc.bundle_id, bc.sub_product_id, bc.position, bc.quantity,
			       sp.name AS sub_name, sp.sku AS sub_sku
			FROM bundle_components bc
			JOIN products sp ON sp.tenant_id = bc.tenant_id AND sp.id = bc.sub_product_id
			WHERE bc.tenant_id = $1 AND bc.bundle_id = $2
			ORDER BY bc.position`, t.tenantID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load bundle components: %w", err)
		}
	}
	return &p, nil
}

// InsertCustomer creates a customer
func (t *pgTx) InsertCustomer(ctx context.Context, c *models.Customer) error {
	return t.tx.QueryRowxContext(ctx, `
		INSERT INTO customers (tenant_id, name, balance)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		t.tenantID, c.Name, c.Balance).Scan(&c.ID, &c.CreatedAt)
}

// GetCustomer retrieves a customer and locks the row (FOR UPDATE)
func (t *pgTx) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var c models.Customer
	err := t.getOne(ctx, &c, "customer", id, `
		SELECT id, name, balance, created_at
		FROM customers WHERE tenant_id = $1 AND id = $2
		FOR UPDATE`, t.tenantID, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AdjustCustomerBalance adds delta to the cached balance
func (t *pgTx) AdjustCustomerBalance(ctx context.Context, id int64, delta decimal.Decimal) error {
	return t.execOne(ctx, "customer", id,
		"UPDATE customers SET balance = balance + $1 WHERE tenant_id = $2 AND id = $3",
		delta, t.tenantID, id)
}

const lotColumns = `id, product_id, purchase_date, quantity_purchased, quantity_remaining,
	unit_cost, source_type, source_id, note, created_at`

// ListOpenLots retrieves lots with stock left, oldest first, locking them (FOR UPDATE)
func (t *pgTx) ListOpenLots(ctx context.Context, productID int64) ([]models.InventoryLot, error) {
	var lots []models.InventoryLot
	err := t.tx.SelectContext(ctx, &lots, `
		SELECT `+lotColumns+`
		FROM inventory_lots
		WHERE tenant_id = $1 AND product_id = $2 AND quantity_remaining > 0
		ORDER BY purchase_date ASC, id ASC
		FOR UPDATE`, t.tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock lots for product %d: %w", productID, err)
	}
	return lots, nil
}

// ListLotsBySource retrieves the lots created by one document
func (t *pgTx) ListLotsBySource(ctx context.Context, sourceType string, sourceID int64) ([]models.InventoryLot, error) {
	var lots []models.InventoryLot
	err := t.tx.SelectContext(ctx, &lots, `
		SELECT `+lotColumns+`
		FROM inventory_lots
		WHERE tenant_id = $1 AND source_type = $2 AND source_id = $3
		ORDER BY id
		FOR UPDATE`, t.tenantID, sourceType, sourceID)
	return lots, err
}

// InsertLot creates an inventory lot
func (t *pgTx) InsertLot(ctx context.Context, lot *models.InventoryLot) error {
	query := `
		INSERT INTO inventory_lots (tenant_id, product_id, purchase_date, quantity_purchased,
			quantity_remaining, unit_cost, source_type, source_id, note)
		VALUES ($1, $2, COALESCE($3, NOW()), $4, $5, $6, $7, $8, $9)
		RETURNING id, purchase_date, created_at`

	var purchaseDate interface{}
	if !lot.PurchaseDate.IsZero() {
		purchaseDate = lot.PurchaseDate
	}
	return t.tx.QueryRowxContext(ctx, query,
		t.tenantID, lot.ProductID, purchaseDate, lot.QuantityPurchased, lot.QuantityRemaining,
		lot.UnitCost, lot.SourceType, lot.SourceID, lot.Note,
	).Scan(&lot.ID, &lot.PurchaseDate, &lot.CreatedAt)
}

// SetLotRemaining updates the remaining quantity; the table's CHECK keeps it within bounds
func (t *pgTx) SetLotRemaining(ctx context.Context, lotID int64, remaining int) error {
	return t.execOne(ctx, "inventory lot", lotID,
		"UPDATE inventory_lots SET quantity_remaining = $1 WHERE tenant_id = $2 AND id = $3",
		remaining, t.tenantID, lotID)
}

// InsertAllocation records a lot consumption
func (t *pgTx) InsertAllocation(ctx context.Context, a *models.StockAllocation) error {
	return t.tx.QueryRowxContext(ctx, `
		INSERT INTO stock_allocations (tenant_id, lot_id, product_id, quantity, unit_cost,
			sale_item_id, repair_id, damaged_stock_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		t.tenantID, a.LotID, a.ProductID, a.Quantity, a.UnitCost,
		a.SaleItemID, a.RepairID, a.DamagedStockID,
	).Scan(&a.ID, &a.CreatedAt)
}

// ListAllocationsBySaleItem retrieves the lot consumptions of one sale item
func (t *pgTx) ListAllocationsBySaleItem(ctx context.Context, saleItemID int64) ([]models.StockAllocation, error) {
	var out []models.StockAllocation
	err := t.tx.SelectContext(ctx, &out, `
		SELECT id, lot_id, product_id, quantity, unit_cost, sale_item_id, repair_id, damaged_stock_id, created_at
		FROM stock_allocations
		WHERE tenant_id = $1 AND sale_item_id = $2
		ORDER BY id`, t.tenantID, saleItemID)
	return out, err
}

// NextSequence increments the tenant's counter for kind. The upsert holds the
// counter row lock until the surrounding transaction ends.
func (t *pgTx) NextSequence(ctx context.Context, kind string) (int64, error) {
	var value int64
	err := t.tx.GetContext(ctx, &value, `
		INSERT INTO document_counters (tenant_id, kind, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, kind) DO UPDATE SET last_value = document_counters.last_value + 1
		RETURNING last_value`, t.tenantID, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to advance %s counter: %w", kind, err)
	}
	return value, nil
}

// FindSettings retrieves the tenant settings row, nil if the tenant has none
func (t *pgTx) FindSettings(ctx context.Context) (*models.TenantSettings, error) {
	var s models.TenantSettings
	err := t.tx.GetContext(ctx, &s, `
		SELECT currency, default_due_days, invoice_prefix, quotation_prefix, return_prefix, repair_prefix
		FROM tenant_settings WHERE tenant_id = $1`, t.tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSettings upserts the tenant settings row
func (t *pgTx) SaveSettings(ctx context.Context, s *models.TenantSettings) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO tenant_settings (tenant_id, currency, default_due_days, invoice_prefix,
			quotation_prefix, return_prefix, repair_prefix)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id) DO UPDATE SET
			currency = EXCLUDED.currency,
			default_due_days = EXCLUDED.default_due_days,
			invoice_prefix = EXCLUDED.invoice_prefix,
			quotation_prefix = EXCLUDED.quotation_prefix,
			return_prefix = EXCLUDED.return_prefix,
			repair_prefix = EXCLUDED.repair_prefix`,
		t.tenantID, s.Currency, s.DefaultDueDays, s.InvoicePrefix,
		s.QuotationPrefix, s.ReturnPrefix, s.RepairPrefix)
	return err
}
