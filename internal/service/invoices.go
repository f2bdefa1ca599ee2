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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// invoiceDraft is everything the invoice pipeline needs, whichever workflow
// produced it
type invoiceDraft struct {
	CustomerID     int64
	Lines          models.LineItems
	IssueDate      time.Time
	DeliveryCharge decimal.Decimal
	Discount       decimal.Decimal
	Notes          string
	Payments       []PaymentRequest
	RepairID       *int64
}

// issueInvoice checks stock for every line before touching anything, then
// deducts stock, numbers the invoice, debits the customer and records any
// up-front payments.
func (o *Orchestrator) issueInvoice(ctx context.Context, u *unit, d invoiceDraft) (*models.Invoice, error) {
	if _, err := u.tx.GetCustomer(ctx, d.CustomerID); err != nil {
		return nil, err
	}
	if len(d.Lines) == 0 {
		return nil, apperr.Validation("at least one line item is required")
	}
	subtotal, total, err := documentTotal(d.Lines, d.DeliveryCharge, d.Discount)
	if err != nil {
		return nil, err
	}
	if err := validatePayments(d.Payments); err != nil {
		return nil, err
	}
	if err := o.stock.Check(ctx, u.tx, d.Lines); err != nil {
		return nil, err
	}

	number, err := o.nextNumber(ctx, u, sequence.KindInvoice)
	if err != nil {
		return nil, err
	}

	issueDate := d.IssueDate
	if issueDate.IsZero() {
		issueDate = o.now()
	}
	inv := &models.Invoice{
		CustomerID:     d.CustomerID,
		InvoiceNumber:  number,
		IssueDate:      issueDate,
		DueDate:        issueDate.AddDate(0, 0, u.settings.DefaultDueDays),
		LineItems:      d.Lines,
		Subtotal:       subtotal,
		DeliveryCharge: d.DeliveryCharge,
		Discount:       d.Discount,
		Total:          total,
		Currency:       u.settings.Currency,
		Status:         models.InvoiceStatusSent,
		ReturnStatus:   models.ReturnStatusNone,
		Notes:          d.Notes,
	}
	if err := u.tx.InsertInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	sale := &models.Sale{
		CustomerID:  d.CustomerID,
		InvoiceID:   inv.ID,
		TotalAmount: total,
		Items:       make([]models.SaleItem, 0, len(d.Lines)),
	}
	nets := netLineAmounts(d.Lines, d.Discount)
	for i := range d.Lines {
		line := &d.Lines[i]
		item := models.SaleItem{
			LineItemID:          line.ID,
			Quantity:            line.Quantity,
			UnitPrice:           line.UnitPrice,
			NetAmount:           nets[i],
			WarrantyPeriodValue: line.WarrantyPeriodValue,
			WarrantyPeriodUnit:  line.WarrantyPeriodUnit,
		}
		if !line.IsCustom() {
			item.ProductID = int64Ptr(*line.ProductID)
		}
		sale.Items = append(sale.Items, item)
	}
	if err := u.tx.InsertSale(ctx, sale); err != nil {
		return nil, err
	}

	for i := range sale.Items {
		line := lineByID(d.Lines, sale.Items[i].LineItemID)
		link := inventory.Link{SaleItemID: int64Ptr(sale.Items[i].ID), RepairID: d.RepairID}
		if _, err := o.deductLine(ctx, u, line, link); err != nil {
			return nil, err
		}
	}

	if _, err := o.record(ctx, u, ledger.Entry{
		CustomerID:  d.CustomerID,
		Type:        models.TransactionDebit,
		Amount:      total,
		Description: "Invoice " + number,
		Links:       ledger.Links{InvoiceID: int64Ptr(inv.ID)},
	}); err != nil {
		return nil, err
	}

	if err := o.applyPayments(ctx, u, inv, d.Payments); err != nil {
		return nil, err
	}

	u.touch(models.TableSales, models.TableInvoices)
	return inv, nil
}

// applyPayments records one credit per payment and refreshes the payment
// status from everything credited to the invoice so far.
func (o *Orchestrator) applyPayments(ctx context.Context, u *unit, inv *models.Invoice, payments []PaymentRequest) error {
	paid, err := o.money.TotalPaid(ctx, u.tx, inv.ID)
	if err != nil {
		return err
	}
	for _, p := range payments {
		if p.Method == models.PaymentMethodCredits {
			if err := o.applyStoreCredit(ctx, u, inv, inv.Total.Sub(paid), p.Amount); err != nil {
				return err
			}
		} else if _, err := o.record(ctx, u, ledger.Entry{
			CustomerID:    inv.CustomerID,
			Type:          models.TransactionCredit,
			Amount:        p.Amount,
			Description:   fmt.Sprintf("Payment for %s (%s)", inv.InvoiceNumber, p.Method),
			PaymentMethod: p.Method,
			Links:         ledger.Links{InvoiceID: int64Ptr(inv.ID)},
		}); err != nil {
			return err
		}
		paid = paid.Add(p.Amount)
	}

	status := paymentStatus(inv.Status, paid, inv.Total)
	if status == inv.Status {
		return nil
	}
	inv.Status = status
	if err := u.tx.UpdateInvoice(ctx, inv); err != nil {
		return err
	}
	u.touch(models.TableInvoices)
	return nil
}

// applyStoreCredit settles part of an invoice from credit the customer
// already holds. The balance has netted that credit against the invoice
// debit, so the payment is a matching credit and debit: the invoice counts
// it as paid and the balance does not move. The credit available is the
// balance without this invoice's outstanding amount.
func (o *Orchestrator) applyStoreCredit(ctx context.Context, u *unit, inv *models.Invoice, outstanding, amount decimal.Decimal) error {
	if amount.GreaterThan(outstanding) {
		return apperr.Validation("store credit payment %s exceeds the %s outstanding on %s",
			amount.StringFixed(2), decimal.Max(outstanding, decimal.Zero).StringFixed(2), inv.InvoiceNumber)
	}
	c, err := u.tx.GetCustomer(ctx, inv.CustomerID)
	if err != nil {
		return err
	}
	available := c.Balance.Add(outstanding)
	if amount.GreaterThan(available) {
		return apperr.Validation("store credit payment %s exceeds the available credit %s",
			amount.StringFixed(2), decimal.Max(available, decimal.Zero).StringFixed(2))
	}

	for _, e := range []ledger.Entry{
		{Type: models.TransactionCredit, Description: fmt.Sprintf("Payment for %s (%s)", inv.InvoiceNumber, models.PaymentMethodCredits)},
		{Type: models.TransactionDebit, Description: "Store credit applied to " + inv.InvoiceNumber},
	} {
		e.CustomerID = inv.CustomerID
		e.Amount = amount
		e.PaymentMethod = models.PaymentMethodCredits
		e.Links = ledger.Links{InvoiceID: int64Ptr(inv.ID)}
		if _, err := o.record(ctx, u, e); err != nil {
			return err
		}
	}
	return nil
}

// paymentStatus is Paid once the credits cover the total, Partially Paid
// while some but not all is paid, and the current status otherwise.
func paymentStatus(current string, paid, total decimal.Decimal) string {
	switch {
	case paid.GreaterThanOrEqual(total):
		return models.InvoiceStatusPaid
	case paid.IsPositive():
		return models.InvoiceStatusPartiallyPaid
	}
	return current
}

// CreateInvoice sells the requested lines to a customer
func (o *Orchestrator) CreateInvoice(ctx context.Context, actor Actor, req *CreateInvoiceRequest) (*models.Invoice, error) {
	var inv *models.Invoice
	err := o.run(ctx, actor, "create_invoice", func(ctx context.Context, u *unit) error {
		if _, err := u.tx.GetCustomer(ctx, req.CustomerID); err != nil {
			return err
		}
		lines, err := o.buildLines(ctx, u, req.LineItems)
		if err != nil {
			return err
		}
		inv, err = o.issueInvoice(ctx, u, invoiceDraft{
			CustomerID:     req.CustomerID,
			Lines:          lines,
			IssueDate:      req.IssueDate,
			DeliveryCharge: req.DeliveryCharge,
			Discount:       req.Discount,
			Notes:          req.Notes,
			Payments:       req.Payments,
		})
		if err != nil {
			return err
		}
		return o.activity(ctx, u, "create", "invoice", inv.ID,
			fmt.Sprintf("Created invoice %s for %s", inv.InvoiceNumber, inv.Total.StringFixed(2)))
	})
	if err != nil {
		return nil, err
	}

	o.log(ctx).Info("Invoice created",
		zap.String("tenant_id", actor.TenantID),
		zap.Int64("invoice_id", inv.ID),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("total", inv.Total.String()))
	return inv, nil
}

// ReceivePayment records payments against an invoice. Paying more than the
// total leaves the customer with store credit.
func (o *Orchestrator) ReceivePayment(ctx context.Context, actor Actor, invoiceID int64, payments []PaymentRequest) (*models.Invoice, error) {
	var inv *models.Invoice
	err := o.run(ctx, actor, "receive_payment", func(ctx context.Context, u *unit) error {
		if len(payments) == 0 {
			return apperr.Validation("at least one payment is required")
		}
		if err := validatePayments(payments); err != nil {
			return err
		}
		var err error
		inv, err = u.tx.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := o.applyPayments(ctx, u, inv, payments); err != nil {
			return err
		}

		total := decimal.Zero
		for _, p := range payments {
			total = total.Add(p.Amount)
		}
		return o.activity(ctx, u, "payment", "invoice", inv.ID,
			fmt.Sprintf("Received %s against %s", total.StringFixed(2), inv.InvoiceNumber))
	})
	if err != nil {
		return nil, err
	}

	o.log(ctx).Info("Payment received",
		zap.String("tenant_id", actor.TenantID),
		zap.Int64("invoice_id", inv.ID),
		zap.String("status", inv.Status))
	return inv, nil
}

// InvoiceDetails is an invoice with its sale and ledger entries
type InvoiceDetails struct {
	Invoice      *models.Invoice      `json:"invoice"`
	Sale         *models.Sale         `json:"sale"`
	Transactions []models.Transaction `json:"transactions"`
	TotalPaid    decimal.Decimal      `json:"total_paid"`
}

// GetInvoice loads an invoice with its backing sale and linked entries
func (o *Orchestrator) GetInvoice(ctx context.Context, actor Actor, invoiceID int64) (*InvoiceDetails, error) {
	var out *InvoiceDetails
	err := o.store.WithTx(ctx, actor.TenantID, func(tx store.Tx) error {
		inv, err := tx.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		sale, err := tx.GetSaleByInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		entries, err := tx.ListTransactions(ctx, models.TransactionFilter{InvoiceID: &invoiceID})
		if err != nil {
			return err
		}
		out = &InvoiceDetails{Invoice: inv, Sale: sale, Transactions: entries, TotalPaid: ledger.SumCredits(entries)}
		return nil
	})
	return out, err
}
