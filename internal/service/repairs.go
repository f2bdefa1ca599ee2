package service

import (
	"context"
	"fmt"
	"time"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/inventory"
	"backoffice-service/internal/ledger"
	"backoffice-service/internal/models"
	"backoffice-service/internal/sequence"
	"backoffice-service/internal/store"
	"backoffice-service/internal/warranty"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateRepair books an item into the repair desk. A repair of a sold item
// checks the item's warranty; a repair of damaged stock moves the log entry
// to In Repair.
func (o *Orchestrator) CreateRepair(ctx context.Context, actor Actor, req *CreateRepairRequest) (*models.Repair, error) {
	var r *models.Repair
	err := o.run(ctx, actor, "create_repair", func(ctx context.Context, u *unit) error {
		if req.SaleItemID != nil && req.DamagedStockID != nil {
			return apperr.Validation("a repair links a sold item or a damaged-stock entry, not both")
		}
		if req.RepairFee.IsNegative() {
			return apperr.Validation("repair fee must not be negative")
		}

		r = &models.Repair{
			CustomerID:     req.CustomerID,
			ProductID:      req.ProductID,
			SaleItemID:     req.SaleItemID,
			DamagedStockID: req.DamagedStockID,
			Status:         models.RepairStatusReceived,
			Description:    req.Description,
			RepairFee:      req.RepairFee,
		}

		if r.CustomerID != nil {
			if _, err := u.tx.GetCustomer(ctx, *r.CustomerID); err != nil {
				return err
			}
		}
		if r.ProductID != nil {
			if _, err := u.tx.GetProduct(ctx, *r.ProductID); err != nil {
				return err
			}
		}

		switch {
		case req.SaleItemID != nil:
			if err := o.linkSoldItem(ctx, u, r); err != nil {
				return err
			}
		case req.DamagedStockID != nil:
			entry, err := u.tx.GetDamagedStock(ctx, *req.DamagedStockID)
			if err != nil {
				return err
			}
			if entry.Status != models.DamagedStatusDamaged {
				return apperr.Validation("damaged stock entry %d is %s", entry.ID, entry.Status)
			}
			if r.ProductID != nil && *r.ProductID != entry.ProductID {
				return apperr.OwnershipMismatch("damaged stock entry %d is for product %d, not %d",
					entry.ID, entry.ProductID, *r.ProductID)
			}
			r.ProductID = int64Ptr(entry.ProductID)
			if err := u.tx.SetDamagedStockStatus(ctx, entry.ID, models.DamagedStatusInRepair); err != nil {
				return err
			}
			u.touch(models.TableDamagedStock)
		}

		for i, it := range req.Items {
			if it.Quantity <= 0 {
				return apperr.Validation("part %d: quantity must be positive", i+1)
			}
			p, err := u.tx.GetProduct(ctx, it.ProductID)
			if err != nil {
				return err
			}
			if p.IsBundle() {
				return apperr.Validation("part %d: bundle %q cannot be used as a repair part", i+1, p.Name)
			}
			price := p.Price
			if it.UnitPrice != nil {
				if it.UnitPrice.IsNegative() {
					return apperr.Validation("part %d: unit price must not be negative", i+1)
				}
				price = *it.UnitPrice
			}
			r.Items = append(r.Items, models.RepairItem{ProductID: p.ID, Quantity: it.Quantity, UnitPrice: price})
		}

		number, err := o.nextNumber(ctx, u, sequence.KindRepair)
		if err != nil {
			return err
		}
		r.RepairNumber = number
		if err := u.tx.InsertRepair(ctx, r); err != nil {
			return fmt.Errorf("failed to create repair: %w", err)
		}

		u.touch(models.TableRepairs)
		summary := "Received repair " + number
		if r.IsWarranty {
			summary += " under warranty"
		}
		return o.activity(ctx, u, "create", "repair", r.ID, summary)
	})
	if err != nil {
		return nil, err
	}

	o.log(ctx).Info("Repair created",
		zap.String("tenant_id", actor.TenantID),
		zap.Int64("repair_id", r.ID),
		zap.String("repair_number", r.RepairNumber),
		zap.Bool("warranty", r.IsWarranty))
	return r, nil
}

// linkSoldItem ties a repair to the sale item it came from and evaluates
// the item's warranty at the invoice issue date.
func (o *Orchestrator) linkSoldItem(ctx context.Context, u *unit, r *models.Repair) error {
	item, err := u.tx.GetSaleItem(ctx, *r.SaleItemID)
	if err != nil {
		return err
	}
	sale, err := u.tx.GetSale(ctx, item.SaleID)
	if err != nil {
		return err
	}
	if r.CustomerID != nil && *r.CustomerID != sale.CustomerID {
		return apperr.OwnershipMismatch("sale item %d was not sold to customer %d", item.ID, *r.CustomerID)
	}
	if r.ProductID != nil && (item.ProductID == nil || *item.ProductID != *r.ProductID) {
		return apperr.OwnershipMismatch("sale item %d is not product %d", item.ID, *r.ProductID)
	}
	r.CustomerID = int64Ptr(sale.CustomerID)
	if item.ProductID != nil {
		r.ProductID = int64Ptr(*item.ProductID)
	}

	inv, err := u.tx.GetInvoice(ctx, sale.InvoiceID)
	if err != nil {
		return err
	}
	st, err := warranty.Evaluate(inv.IssueDate, item.WarrantyPeriodValue, item.WarrantyPeriodUnit,
		item.WarrantyVoided, item.WarrantyVoidReason, o.now())
	if err != nil {
		return err
	}
	r.IsWarranty = st.Covered
	return nil
}

// openRepair loads a repair that still accepts transitions
func (o *Orchestrator) openRepair(ctx context.Context, u *unit, repairID int64) (*models.Repair, error) {
	r, err := u.tx.GetRepair(ctx, repairID)
	if err != nil {
		return nil, err
	}
	if r.IsTerminal() {
		return nil, apperr.Validation("repair %s is %s", r.RepairNumber, r.Status)
	}
	return r, nil
}

func requireCustomer(r *models.Repair) (int64, error) {
	if r.CustomerID == nil {
		return 0, apperr.Validation("repair %s has no customer", r.RepairNumber)
	}
	return *r.CustomerID, nil
}

func (o *Orchestrator) finishRepair(ctx context.Context, u *unit, r *models.Repair, status, summary string) error {
	r.Status = status
	if err := u.tx.UpdateRepair(ctx, r); err != nil {
		return err
	}
	u.touch(models.TableRepairs)
	return o.activity(ctx, u, "complete", "repair", r.ID, summary)
}

// StartRepair moves a received repair onto the bench
func (o *Orchestrator) StartRepair(ctx context.Context, actor Actor, repairID int64) (*models.Repair, error) {
	var r *models.Repair
	err := o.run(ctx, actor, "start_repair", func(ctx context.Context, u *unit) error {
		var err error
		r, err = u.tx.GetRepair(ctx, repairID)
		if err != nil {
			return err
		}
		if r.Status != models.RepairStatusReceived {
			return apperr.Validation("repair %s is %s, not %s", r.RepairNumber, r.Status, models.RepairStatusReceived)
		}
		r.Status = models.RepairStatusInProgress
		if err := u.tx.UpdateRepair(ctx, r); err != nil {
			return err
		}
		u.touch(models.TableRepairs)
		return o.activity(ctx, u, "start", "repair", r.ID, "Started repair "+r.RepairNumber)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CompleteRepair bills the repair: one line for the fee and one per part.
// Parts are deducted from stock. Warranty repairs are billed at zero.
func (o *Orchestrator) CompleteRepair(ctx context.Context, actor Actor, repairID int64, issueDate time.Time) (*models.Invoice, error) {
	var inv *models.Invoice
	err := o.run(ctx, actor, "complete_repair", func(ctx context.Context, u *unit) error {
		r, err := o.openRepair(ctx, u, repairID)
		if err != nil {
			return err
		}
		customerID, err := requireCustomer(r)
		if err != nil {
			return err
		}

		lines, err := o.repairLines(ctx, u, r)
		if err != nil {
			return err
		}
		inv, err = o.issueInvoice(ctx, u, invoiceDraft{
			CustomerID: customerID,
			Lines:      lines,
			IssueDate:  issueDate,
			Notes:      "Repair " + r.RepairNumber,
			RepairID:   int64Ptr(r.ID),
		})
		if err != nil {
			return err
		}

		r.InvoiceID = int64Ptr(inv.ID)
		return o.finishRepair(ctx, u, r, models.RepairStatusCompleted,
			fmt.Sprintf("Completed repair %s, invoice %s", r.RepairNumber, inv.InvoiceNumber))
	})
	if err != nil {
		return nil, err
	}

	o.log(ctx).Info("Repair completed",
		zap.String("tenant_id", actor.TenantID),
		zap.Int64("repair_id", repairID),
		zap.String("invoice_number", inv.InvoiceNumber))
	return inv, nil
}

// repairLines builds the invoice lines of a repair
func (o *Orchestrator) repairLines(ctx context.Context, u *unit, r *models.Repair) (models.LineItems, error) {
	price := func(p decimal.Decimal) decimal.Decimal {
		if r.IsWarranty {
			return decimal.Zero
		}
		return p
	}

	var lines models.LineItems
	if r.RepairFee.IsPositive() || len(r.Items) == 0 {
		lines = append(lines, models.LineItem{
			ID:          models.NewCustomLineID(),
			Kind:        models.LineKindCustom,
			Description: "Repair fee " + r.RepairNumber,
			Quantity:    1,
			UnitPrice:   price(r.RepairFee),
		})
	}
	for i, it := range r.Items {
		p, err := u.tx.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, models.LineItem{
			ID:          fmt.Sprintf("repair-%d-part-%d", r.ID, i+1),
			Kind:        models.LineKindStandard,
			ProductID:   int64Ptr(p.ID),
			Description: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   price(it.UnitPrice),
		})
	}
	return lines, nil
}

// CreateReplacement settles a repair by handing the customer a replacement
// unit, invoiced at zero under warranty and at the catalog price otherwise.
func (o *Orchestrator) CreateReplacement(ctx context.Context, actor Actor, repairID int64, productID *int64, issueDate time.Time) (*models.Invoice, error) {
	var inv *models.Invoice
	err := o.run(ctx, actor, "create_replacement", func(ctx context.Context, u *unit) error {
		r, err := o.openRepair(ctx, u, repairID)
		if err != nil {
			return err
		}
		customerID, err := requireCustomer(r)
		if err != nil {
			return err
		}
		if productID == nil {
			productID = r.ProductID
		}
		if productID == nil {
			return apperr.Validation("repair %s has no product to replace", r.RepairNumber)
		}

		req := LineItemRequest{ProductID: productID, Quantity: 1}
		if r.IsWarranty {
			zero := decimal.Zero
			req.UnitPrice = &zero
		}
		lines, err := o.buildLines(ctx, u, []LineItemRequest{req})
		if err != nil {
			return err
		}
		lines[0].Description = "Replacement for " + r.RepairNumber + ": " + lines[0].Description

		inv, err = o.issueInvoice(ctx, u, invoiceDraft{
			CustomerID: customerID,
			Lines:      lines,
			IssueDate:  issueDate,
			Notes:      "Replacement for repair " + r.RepairNumber,
			RepairID:   int64Ptr(r.ID),
		})
		if err != nil {
			return err
		}

		r.InvoiceID = int64Ptr(inv.ID)
		return o.finishRepair(ctx, u, r, models.RepairStatusCompletedReplaced,
			fmt.Sprintf("Replaced item for repair %s, invoice %s", r.RepairNumber, inv.InvoiceNumber))
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// IssueCredit settles a repair with store credit for the customer
func (o *Orchestrator) IssueCredit(ctx context.Context, actor Actor, repairID int64, amount decimal.Decimal) (*models.Transaction, error) {
	var t *models.Transaction
	err := o.run(ctx, actor, "issue_credit", func(ctx context.Context, u *unit) error {
		r, err := o.openRepair(ctx, u, repairID)
		if err != nil {
			return err
		}
		customerID, err := requireCustomer(r)
		if err != nil {
			return err
		}
		if !amount.IsPositive() {
			return apperr.Validation("credit amount must be positive")
		}

		t, err = o.record(ctx, u, ledger.Entry{
			CustomerID:    customerID,
			Type:          models.TransactionCredit,
			Amount:        amount,
			Description:   "Store credit for repair " + r.RepairNumber,
			PaymentMethod: models.PaymentMethodCredits,
			Links:         ledger.Links{RepairID: int64Ptr(r.ID)},
		})
		if err != nil {
			return err
		}
		return o.finishRepair(ctx, u, r, models.RepairStatusCompletedCredit,
			fmt.Sprintf("Issued %s store credit for repair %s", amount.StringFixed(2), r.RepairNumber))
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// MarkRepaired closes an in-house repair. Parts are deducted from stock, the
// damaged-stock entry is marked Repaired and, when restock is set, the
// repaired unit goes back on sale.
func (o *Orchestrator) MarkRepaired(ctx context.Context, actor Actor, repairID int64, restock bool) (*models.Repair, error) {
	var r *models.Repair
	err := o.run(ctx, actor, "mark_repaired", func(ctx context.Context, u *unit) error {
		var err error
		r, err = o.openRepair(ctx, u, repairID)
		if err != nil {
			return err
		}
		if restock && r.DamagedStockID == nil {
			return apperr.Validation("repair %s has no damaged-stock unit to restock", r.RepairNumber)
		}

		parts := make(models.LineItems, 0, len(r.Items))
		for _, it := range r.Items {
			parts = append(parts, models.LineItem{
				Kind:      models.LineKindStandard,
				ProductID: int64Ptr(it.ProductID),
				Quantity:  it.Quantity,
			})
		}
		if err := o.stock.Check(ctx, u.tx, parts); err != nil {
			return err
		}
		for i := range parts {
			if _, err := o.deductLine(ctx, u, &parts[i], inventory.Link{RepairID: int64Ptr(r.ID)}); err != nil {
				return err
			}
		}

		if r.DamagedStockID != nil {
			entry, err := u.tx.GetDamagedStock(ctx, *r.DamagedStockID)
			if err != nil {
				return err
			}
			if err := u.tx.SetDamagedStockStatus(ctx, entry.ID, models.DamagedStatusRepaired); err != nil {
				return err
			}
			u.touch(models.TableDamagedStock)

			if restock {
				if err := o.restock(ctx, u, inventory.RestockRequest{
					ProductID:  entry.ProductID,
					Quantity:   1,
					UnitCost:   entry.UnitCost,
					SourceType: models.LotSourceRepair,
					SourceID:   int64Ptr(r.ID),
					Note:       "Repaired " + r.RepairNumber,
				}); err != nil {
					return err
				}
			}
		}

		return o.finishRepair(ctx, u, r, models.RepairStatusRepaired, "Repaired "+r.RepairNumber)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// MarkUnrepairable closes a repair that cannot be fixed; damaged stock is
// written off
func (o *Orchestrator) MarkUnrepairable(ctx context.Context, actor Actor, repairID int64) (*models.Repair, error) {
	var r *models.Repair
	err := o.run(ctx, actor, "mark_unrepairable", func(ctx context.Context, u *unit) error {
		var err error
		r, err = o.openRepair(ctx, u, repairID)
		if err != nil {
			return err
		}
		if r.DamagedStockID != nil {
			if err := u.tx.SetDamagedStockStatus(ctx, *r.DamagedStockID, models.DamagedStatusWrittenOff); err != nil {
				return err
			}
			u.touch(models.TableDamagedStock)
		}
		return o.finishRepair(ctx, u, r, models.RepairStatusUnrepairable, "Unrepairable "+r.RepairNumber)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetRepair loads a repair with its parts
func (o *Orchestrator) GetRepair(ctx context.Context, actor Actor, repairID int64) (*models.Repair, error) {
	var r *models.Repair
	err := o.store.WithTx(ctx, actor.TenantID, func(tx store.Tx) error {
		var err error
		r, err = tx.GetRepair(ctx, repairID)
		return err
	})
	return r, err
}
