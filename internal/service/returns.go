package service

import (
	"context"
	"fmt"
	"strings"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/inventory"
	"backoffice-service/internal/ledger"
	"backoffice-service/internal/models"
	"backoffice-service/internal/sequence"
	"backoffice-service/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateReturn takes sold items back against their original invoice. The
// customer is credited with what the returned items were actually charged,
// after line and document discounts, less expenses;
// payments other than store credit are paid out and debited again.
func (o *Orchestrator) CreateReturn(ctx context.Context, actor Actor, req *CreateReturnRequest) (*models.Return, error) {
	var ret *models.Return
	err := o.run(ctx, actor, "create_return", func(ctx context.Context, u *unit) error {
		if len(req.Items) == 0 {
			return apperr.Validation("at least one returned item is required")
		}
		inv, err := u.tx.GetInvoice(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		sale, err := u.tx.GetSaleByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}

		// validate every item before anything is written
		items := make(map[int64]*models.SaleItem)
		requested := make(map[int64]int)
		amounts := make([]decimal.Decimal, len(req.Items))
		value := decimal.Zero
		for i, it := range req.Items {
			if it.Quantity <= 0 {
				return apperr.Validation("item %d: quantity must be positive", i+1)
			}
			item, ok := items[it.SaleItemID]
			if !ok {
				item, err = u.tx.GetSaleItem(ctx, it.SaleItemID)
				if err != nil {
					return err
				}
				if item.SaleID != sale.ID {
					return apperr.OwnershipMismatch("sale item %d does not belong to invoice %s", item.ID, inv.InvoiceNumber)
				}
				items[item.ID] = item
			}
			returned := item.QuantityReturned + requested[item.ID]
			requested[item.ID] += it.Quantity
			if item.QuantityReturned+requested[item.ID] > item.Quantity {
				return apperr.Validation("sale item %d: returning %d more would exceed the %d sold (%d already returned)",
					item.ID, requested[item.ID], item.Quantity, item.QuantityReturned)
			}
			amounts[i] = item.RefundValue(returned, it.Quantity)
			value = value.Add(amounts[i])
		}

		expenses := decimal.Zero
		for i, e := range req.Expenses {
			if strings.TrimSpace(e.Description) == "" {
				return apperr.Validation("expense %d: description is required", i+1)
			}
			if e.Amount.IsNegative() {
				return apperr.Validation("expense %d: amount must not be negative", i+1)
			}
			expenses = expenses.Add(e.Amount)
		}
		refund := value.Sub(expenses)
		if refund.IsNegative() {
			return apperr.Validation("return expenses %s exceed the returned value %s", expenses.StringFixed(2), value.StringFixed(2))
		}

		if err := validatePayments(req.Payments); err != nil {
			return err
		}
		paidOut := decimal.Zero
		for _, p := range req.Payments {
			paidOut = paidOut.Add(p.Amount)
		}
		if paidOut.GreaterThan(refund) {
			return apperr.Validation("refund payments %s exceed the refund %s", paidOut.StringFixed(2), refund.StringFixed(2))
		}

		number, err := o.nextNumber(ctx, u, sequence.KindReturn)
		if err != nil {
			return err
		}
		ret = &models.Return{
			InvoiceID:           inv.ID,
			CustomerID:          inv.CustomerID,
			ReturnReceiptNumber: number,
			TotalRefundAmount:   refund,
			Restocked:           req.Restock,
			Reason:              req.Reason,
		}
		for i, it := range req.Items {
			item := items[it.SaleItemID]
			ret.Items = append(ret.Items, models.ReturnItem{
				SaleItemID: item.ID,
				ProductID:  item.ProductID,
				Quantity:   it.Quantity,
				UnitPrice:  amounts[i].Div(decimal.NewFromInt(int64(it.Quantity))).Round(4),
			})
		}
		for _, e := range req.Expenses {
			ret.Expenses = append(ret.Expenses, models.ReturnExpense{Description: e.Description, Amount: e.Amount})
		}
		if err := u.tx.InsertReturn(ctx, ret); err != nil {
			return err
		}

		for id, qty := range requested {
			item := items[id]
			item.QuantityReturned += qty
			if err := u.tx.UpdateSaleItem(ctx, item); err != nil {
				return err
			}
		}

		if req.Restock {
			for _, ri := range ret.Items {
				if err := o.restockReturned(ctx, u, inv, items[ri.SaleItemID], ri.Quantity,
					models.LotSourceReturn, ret.ID, "Return "+number); err != nil {
					return err
				}
			}
		}

		if _, err := o.record(ctx, u, ledger.Entry{
			CustomerID:  inv.CustomerID,
			Type:        models.TransactionCredit,
			Amount:      refund,
			Description: "Value from return " + number,
			Links:       ledger.Links{ReturnID: int64Ptr(ret.ID)},
		}); err != nil {
			return err
		}
		for _, p := range req.Payments {
			if p.Method == models.PaymentMethodCredits {
				continue
			}
			if _, err := o.record(ctx, u, ledger.Entry{
				CustomerID:    inv.CustomerID,
				Type:          models.TransactionDebit,
				Amount:        p.Amount,
				Description:   fmt.Sprintf("Refund paid for %s (%s)", number, p.Method),
				PaymentMethod: p.Method,
				Links:         ledger.Links{ReturnID: int64Ptr(ret.ID)},
			}); err != nil {
				return err
			}
		}

		if err := o.refreshReturnStatus(ctx, u, inv); err != nil {
			return err
		}

		u.touch(models.TableReturns, models.TableSales)
		return o.activity(ctx, u, "create", "return", ret.ID,
			fmt.Sprintf("Return %s against %s for %s", number, inv.InvoiceNumber, refund.StringFixed(2)))
	})
	if err != nil {
		return nil, err
	}

	o.log(ctx).Info("Return created",
		zap.String("tenant_id", actor.TenantID),
		zap.Int64("return_id", ret.ID),
		zap.String("return_number", ret.ReturnReceiptNumber),
		zap.Bool("restocked", ret.Restocked))
	return ret, nil
}

// restockReturned puts qty units of a sold item back into stock as new lots:
// the product itself for a standard line, each component scaled by qty for a
// bundle. Custom lines have nothing to restock.
func (o *Orchestrator) restockReturned(ctx context.Context, u *unit, inv *models.Invoice, item *models.SaleItem,
	qty int, sourceType string, sourceID int64, note string) error {
	if item.ProductID == nil {
		return nil
	}
	allocs, err := u.tx.ListAllocationsBySaleItem(ctx, item.ID)
	if err != nil {
		return err
	}

	line := lineByID(inv.LineItems, item.LineItemID)
	if line != nil && line.IsBundle() {
		for _, c := range line.Components {
			cost, ok := inventory.WeightedCost(allocs, c.SubProductID)
			if !ok {
				p, err := u.tx.GetProduct(ctx, c.SubProductID)
				if err != nil {
					return err
				}
				cost = p.Price
			}
			if err := o.restock(ctx, u, inventory.RestockRequest{
				ProductID:  c.SubProductID,
				Quantity:   c.Quantity * qty,
				UnitCost:   cost,
				SourceType: sourceType,
				SourceID:   int64Ptr(sourceID),
				Note:       note,
			}); err != nil {
				return err
			}
		}
		return nil
	}

	cost, ok := inventory.WeightedCost(allocs, *item.ProductID)
	if !ok {
		cost = item.UnitPrice
	}
	return o.restock(ctx, u, inventory.RestockRequest{
		ProductID:  *item.ProductID,
		Quantity:   qty,
		UnitCost:   cost,
		SourceType: sourceType,
		SourceID:   int64Ptr(sourceID),
		Note:       note,
	})
}

// refreshReturnStatus compares returned against sold quantities across the
// whole sale
func (o *Orchestrator) refreshReturnStatus(ctx context.Context, u *unit, inv *models.Invoice) error {
	sale, err := u.tx.GetSaleByInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}
	status := returnStatus(sale.Items)
	if status == inv.ReturnStatus {
		return nil
	}
	inv.ReturnStatus = status
	if err := u.tx.UpdateInvoice(ctx, inv); err != nil {
		return err
	}
	u.touch(models.TableInvoices)
	return nil
}

func returnStatus(items []models.SaleItem) string {
	sold, returned := 0, 0
	for _, it := range items {
		sold += it.Quantity
		returned += it.QuantityReturned
	}
	switch {
	case returned == 0:
		return models.ReturnStatusNone
	case returned >= sold:
		return models.ReturnStatusFullyReturned
	}
	return models.ReturnStatusPartiallyReturned
}

// GetReturn loads a return with its items and expenses
func (o *Orchestrator) GetReturn(ctx context.Context, actor Actor, returnID int64) (*models.Return, error) {
	var ret *models.Return
	err := o.store.WithTx(ctx, actor.TenantID, func(tx store.Tx) error {
		var err error
		ret, err = tx.GetReturn(ctx, returnID)
		return err
	})
	return ret, err
}
