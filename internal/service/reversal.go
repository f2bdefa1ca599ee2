package service

import (
	"context"
	"fmt"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/models"

	"go.uber.org/zap"
)

// DeleteInvoice undoes an invoice: stock goes back as new lots, every ledger
// entry linked to the invoice is reversed, and a quotation or repair that
// produced the invoice is reopened. Invoices with returns must have those
// returns deleted first.
func (o *Orchestrator) DeleteInvoice(ctx context.Context, actor Actor, invoiceID int64) error {
	var number string
	err := o.run(ctx, actor, "delete_invoice", func(ctx context.Context, u *unit) error {
		inv, err := u.tx.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		number = inv.InvoiceNumber

		returns, err := u.tx.ListReturnsByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		if len(returns) > 0 {
			return apperr.Validation("invoice %s has %d return(s); delete them first", inv.InvoiceNumber, len(returns))
		}

		q, err := u.tx.FindQuotationByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		if q != nil {
			q.Status = models.QuotationStatusDraft
			q.ConvertedInvoiceID = nil
			if err := u.tx.UpdateQuotation(ctx, q); err != nil {
				return err
			}
			u.touch(models.TableQuotations)
		}

		repair, err := u.tx.FindRepairByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		if repair != nil {
			repair.Status = models.RepairStatusInProgress
			repair.InvoiceID = nil
			if err := u.tx.UpdateRepair(ctx, repair); err != nil {
				return err
			}
			u.touch(models.TableRepairs)
		}

		sale, err := u.tx.GetSaleByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		for i := range sale.Items {
			item := &sale.Items[i]
			qty := item.Quantity - item.QuantityReturned
			if qty <= 0 {
				continue
			}
			if err := o.restockReturned(ctx, u, inv, item, qty,
				models.LotSourceInvoiceReversal, inv.ID, "Deleted invoice "+inv.InvoiceNumber); err != nil {
				return err
			}
		}

		if err := o.reverseAll(ctx, u, models.TransactionFilter{InvoiceID: &inv.ID}); err != nil {
			return err
		}

		if err := u.tx.DeleteSale(ctx, sale.ID); err != nil {
			return err
		}
		if err := u.tx.DeleteInvoice(ctx, inv.ID); err != nil {
			return err
		}

		u.touch(models.TableSales, models.TableInvoices)
		return o.activity(ctx, u, "delete", "invoice", inv.ID, "Deleted invoice "+inv.InvoiceNumber)
	})
	if err != nil {
		return err
	}

	o.log(ctx).Info("Invoice deleted",
		zap.String("tenant_id", actor.TenantID),
		zap.Int64("invoice_id", invoiceID),
		zap.String("invoice_number", number))
	return nil
}

// DeleteReturn is the exact inverse of CreateReturn. Restocked units are
// taken back out of their lots, which fails if any were sold again since.
func (o *Orchestrator) DeleteReturn(ctx context.Context, actor Actor, returnID int64) error {
	var number string
	err := o.run(ctx, actor, "delete_return", func(ctx context.Context, u *unit) error {
		ret, err := u.tx.GetReturn(ctx, returnID)
		if err != nil {
			return err
		}
		number = ret.ReturnReceiptNumber

		inv, err := u.tx.GetInvoice(ctx, ret.InvoiceID)
		if err != nil {
			return err
		}

		if ret.Restocked {
			reclaimed, err := o.stock.Reclaim(ctx, u.tx, models.LotSourceReturn, ret.ID)
			if err != nil {
				return err
			}
			if reclaimed > 0 {
				u.touch(models.TableInventory, models.TableProducts)
			}
		}

		for _, ri := range ret.Items {
			item, err := u.tx.GetSaleItem(ctx, ri.SaleItemID)
			if err != nil {
				return err
			}
			if item.QuantityReturned < ri.Quantity {
				return apperr.ReversalConflict("sale item %d shows %d returned, cannot reverse %d",
					item.ID, item.QuantityReturned, ri.Quantity)
			}
			item.QuantityReturned -= ri.Quantity
			if err := u.tx.UpdateSaleItem(ctx, item); err != nil {
				return err
			}
		}

		if err := o.reverseAll(ctx, u, models.TransactionFilter{ReturnID: &ret.ID}); err != nil {
			return err
		}
		if err := u.tx.DeleteReturn(ctx, ret.ID); err != nil {
			return err
		}
		if err := o.refreshReturnStatus(ctx, u, inv); err != nil {
			return err
		}

		u.touch(models.TableReturns, models.TableSales)
		return o.activity(ctx, u, "delete", "return", ret.ID,
			fmt.Sprintf("Deleted return %s against %s", ret.ReturnReceiptNumber, inv.InvoiceNumber))
	})
	if err != nil {
		return err
	}

	o.log(ctx).Info("Return deleted",
		zap.String("tenant_id", actor.TenantID),
		zap.Int64("return_id", returnID),
		zap.String("return_number", number))
	return nil
}
