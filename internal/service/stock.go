package service

import (
	"context"
	"fmt"
	"strings"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/inventory"
	"backoffice-service/internal/models"
	"backoffice-service/internal/store"
	"backoffice-service/internal/warranty"

	"github.com/shopspring/decimal"
)

// ReceivePurchase books a purchased batch into stock as a new lot
func (o *Orchestrator) ReceivePurchase(ctx context.Context, actor Actor, req *ReceivePurchaseRequest) (*models.InventoryLot, error) {
	var lot *models.InventoryLot
	err := o.run(ctx, actor, "receive_purchase", func(ctx context.Context, u *unit) error {
		p, err := u.tx.GetProduct(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if p.IsBundle() {
			return apperr.Validation("bundle %q has no stock of its own; receive its components", p.Name)
		}

		purchaseDate := req.PurchaseDate
		if purchaseDate.IsZero() {
			purchaseDate = o.now()
		}
		lot, err = o.stock.Restock(ctx, u.tx, inventory.RestockRequest{
			ProductID:    p.ID,
			Quantity:     req.Quantity,
			UnitCost:     req.UnitCost,
			SourceType:   models.LotSourcePurchase,
			PurchaseDate: purchaseDate,
			Note:         req.Note,
		})
		if err != nil {
			return err
		}
		u.touch(models.TableInventory, models.TableProducts)
		return o.activity(ctx, u, "purchase", "product", p.ID,
			fmt.Sprintf("Received %d x %s at %s", req.Quantity, p.Name, req.UnitCost.StringFixed(2)))
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// ReportDamagedStock pulls units off sale, oldest lots first, and logs them
// as damaged so a repair can pick them up later
func (o *Orchestrator) ReportDamagedStock(ctx context.Context, actor Actor, req *ReportDamagedStockRequest) (*models.DamagedStockEntry, error) {
	var entry *models.DamagedStockEntry
	err := o.run(ctx, actor, "report_damaged_stock", func(ctx context.Context, u *unit) error {
		if req.Quantity <= 0 {
			return apperr.Validation("quantity must be positive")
		}
		p, err := u.tx.GetProduct(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if p.IsBundle() {
			return apperr.Validation("bundle %q has no stock of its own; report its components", p.Name)
		}

		lots, err := u.tx.ListOpenLots(ctx, p.ID)
		if err != nil {
			return err
		}
		preview := inventory.Allocate(lots, req.Quantity)
		if !preview.Satisfied() {
			return &apperr.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   req.Quantity,
				Available:   inventory.Available(lots),
			}
		}

		entry = &models.DamagedStockEntry{
			ProductID: p.ID,
			Quantity:  req.Quantity,
			UnitCost:  preview.Cost().Div(decimal.NewFromInt(int64(req.Quantity))).Round(4),
			Reason:    strings.TrimSpace(req.Reason),
			Status:    models.DamagedStatusDamaged,
		}
		if err := u.tx.InsertDamagedStock(ctx, entry); err != nil {
			return err
		}
		if _, err := o.stock.Deduct(ctx, u.tx, p.ID, req.Quantity, inventory.Link{DamagedStockID: int64Ptr(entry.ID)}); err != nil {
			return err
		}

		u.touch(models.TableInventory, models.TableProducts, models.TableDamagedStock)
		return o.activity(ctx, u, "damage", "product", p.ID,
			fmt.Sprintf("Reported %d x %s damaged", req.Quantity, p.Name))
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// VoidWarranty cancels the warranty of a sold item. Voiding is final.
func (o *Orchestrator) VoidWarranty(ctx context.Context, actor Actor, saleItemID int64, reason string) (*models.SaleItem, error) {
	var item *models.SaleItem
	err := o.run(ctx, actor, "void_warranty", func(ctx context.Context, u *unit) error {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return apperr.Validation("a reason is required to void a warranty")
		}
		var err error
		item, err = u.tx.GetSaleItem(ctx, saleItemID)
		if err != nil {
			return err
		}
		if item.WarrantyVoided {
			return apperr.AlreadyProcessed("warranty of sale item %d is already void", item.ID)
		}
		if item.WarrantyPeriodValue == 0 {
			return apperr.Validation("sale item %d was sold without a warranty", item.ID)
		}

		item.WarrantyVoided = true
		item.WarrantyVoidReason = reason
		if err := u.tx.UpdateSaleItem(ctx, item); err != nil {
			return err
		}
		u.touch(models.TableSales)
		return o.activity(ctx, u, "void_warranty", "sale_item", item.ID, "Voided warranty: "+reason)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// WarrantyStatus evaluates a sold item's warranty as of now
func (o *Orchestrator) WarrantyStatus(ctx context.Context, actor Actor, saleItemID int64) (*warranty.Status, error) {
	var st warranty.Status
	err := o.store.WithTx(ctx, actor.TenantID, func(tx store.Tx) error {
		item, err := tx.GetSaleItem(ctx, saleItemID)
		if err != nil {
			return err
		}
		sale, err := tx.GetSale(ctx, item.SaleID)
		if err != nil {
			return err
		}
		inv, err := tx.GetInvoice(ctx, sale.InvoiceID)
		if err != nil {
			return err
		}
		st, err = warranty.Evaluate(inv.IssueDate, item.WarrantyPeriodValue, item.WarrantyPeriodUnit,
			item.WarrantyVoided, item.WarrantyVoidReason, o.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ProductStock is a product with its sellable quantity
type ProductStock struct {
	Product   *models.Product       `json:"product"`
	Available int                   `json:"available"`
	Lots      []models.InventoryLot `json:"lots,omitempty"`
}

// GetProductStock reports available stock. For a bundle this is the number
// of whole bundles its components can build.
func (o *Orchestrator) GetProductStock(ctx context.Context, actor Actor, productID int64) (*ProductStock, error) {
	var out *ProductStock
	err := o.store.WithTx(ctx, actor.TenantID, func(tx store.Tx) error {
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		out = &ProductStock{Product: p}
		if !p.IsBundle() {
			out.Lots, err = tx.ListOpenLots(ctx, p.ID)
			out.Available = inventory.Available(out.Lots)
			return err
		}

		available := make(map[int64]int, len(p.Components))
		for _, c := range p.Components {
			n, err := o.stock.AvailableStock(ctx, tx, c.SubProductID)
			if err != nil {
				return err
			}
			available[c.SubProductID] = n
		}
		out.Available = inventory.MaxBundleQuantity(inventory.ComponentsOf(p), available)
		return nil
	})
	return out, err
}
