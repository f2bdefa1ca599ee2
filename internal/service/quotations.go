package service

import (
	"context"
	"fmt"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/models"
	"backoffice-service/internal/sequence"
	"backoffice-service/internal/store"

	"go.uber.org/zap"
)

// CreateQuotation drafts a priced offer. Quotations never touch stock until
// they are converted.
func (o *Orchestrator) CreateQuotation(ctx context.Context, actor Actor, req *QuotationRequest) (*models.Quotation, error) {
	var q *models.Quotation
	err := o.run(ctx, actor, "create_quotation", func(ctx context.Context, u *unit) error {
		if _, err := u.tx.GetCustomer(ctx, req.CustomerID); err != nil {
			return err
		}
		lines, err := o.buildLines(ctx, u, req.LineItems)
		if err != nil {
			return err
		}
		subtotal, total, err := documentTotal(lines, req.DeliveryCharge, req.Discount)
		if err != nil {
			return err
		}
		number, err := o.nextNumber(ctx, u, sequence.KindQuotation)
		if err != nil {
			return err
		}

		issueDate := req.IssueDate
		if issueDate.IsZero() {
			issueDate = o.now()
		}
		q = &models.Quotation{
			CustomerID:      req.CustomerID,
			QuotationNumber: number,
			IssueDate:       issueDate,
			LineItems:       lines,
			Subtotal:        subtotal,
			DeliveryCharge:  req.DeliveryCharge,
			Discount:        req.Discount,
			Total:           total,
			Status:          models.QuotationStatusDraft,
		}
		if err := u.tx.InsertQuotation(ctx, q); err != nil {
			return fmt.Errorf("failed to create quotation: %w", err)
		}
		u.touch(models.TableQuotations)
		return o.activity(ctx, u, "create", "quotation", q.ID, "Created quotation "+number)
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// UpdateQuotation replaces the lines and charges of a draft quotation
func (o *Orchestrator) UpdateQuotation(ctx context.Context, actor Actor, quotationID int64, req *QuotationRequest) (*models.Quotation, error) {
	var q *models.Quotation
	err := o.run(ctx, actor, "update_quotation", func(ctx context.Context, u *unit) error {
		var err error
		q, err = u.tx.GetQuotation(ctx, quotationID)
		if err != nil {
			return err
		}
		if q.Status != models.QuotationStatusDraft {
			return apperr.Validation("quotation %s is %s and can no longer be edited", q.QuotationNumber, q.Status)
		}
		if req.CustomerID != 0 && req.CustomerID != q.CustomerID {
			if _, err := u.tx.GetCustomer(ctx, req.CustomerID); err != nil {
				return err
			}
			q.CustomerID = req.CustomerID
		}

		lines, err := o.buildLines(ctx, u, req.LineItems)
		if err != nil {
			return err
		}
		subtotal, total, err := documentTotal(lines, req.DeliveryCharge, req.Discount)
		if err != nil {
			return err
		}
		if !req.IssueDate.IsZero() {
			q.IssueDate = req.IssueDate
		}
		q.LineItems = lines
		q.Subtotal = subtotal
		q.DeliveryCharge = req.DeliveryCharge
		q.Discount = req.Discount
		q.Total = total
		if err := u.tx.UpdateQuotation(ctx, q); err != nil {
			return err
		}
		u.touch(models.TableQuotations)
		return o.activity(ctx, u, "update", "quotation", q.ID, "Updated quotation "+q.QuotationNumber)
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// DeleteQuotation removes a draft quotation
func (o *Orchestrator) DeleteQuotation(ctx context.Context, actor Actor, quotationID int64) error {
	return o.run(ctx, actor, "delete_quotation", func(ctx context.Context, u *unit) error {
		q, err := u.tx.GetQuotation(ctx, quotationID)
		if err != nil {
			return err
		}
		if q.Status != models.QuotationStatusDraft {
			return apperr.Validation("quotation %s is %s and cannot be deleted", q.QuotationNumber, q.Status)
		}
		if err := u.tx.DeleteQuotation(ctx, q.ID); err != nil {
			return err
		}
		u.touch(models.TableQuotations)
		return o.activity(ctx, u, "delete", "quotation", q.ID, "Deleted quotation "+q.QuotationNumber)
	})
}

// ConvertQuotation turns a draft quotation into an invoice at the quoted
// prices. Stock is checked again at conversion time.
func (o *Orchestrator) ConvertQuotation(ctx context.Context, actor Actor, quotationID int64) (*models.Invoice, error) {
	var inv *models.Invoice
	var q *models.Quotation
	err := o.run(ctx, actor, "convert_quotation", func(ctx context.Context, u *unit) error {
		var err error
		q, err = u.tx.GetQuotation(ctx, quotationID)
		if err != nil {
			return err
		}
		if q.Status == models.QuotationStatusConverted {
			return apperr.AlreadyProcessed("quotation %s was already converted", q.QuotationNumber)
		}
		for i := range q.LineItems {
			line := &q.LineItems[i]
			if line.IsCustom() {
				continue
			}
			if _, err := u.tx.GetProduct(ctx, *line.ProductID); err != nil {
				return err
			}
		}

		inv, err = o.issueInvoice(ctx, u, invoiceDraft{
			CustomerID:     q.CustomerID,
			Lines:          q.LineItems.Clone(),
			DeliveryCharge: q.DeliveryCharge,
			Discount:       q.Discount,
			Notes:          "Converted from quotation " + q.QuotationNumber,
		})
		if err != nil {
			return err
		}

		q.Status = models.QuotationStatusConverted
		q.ConvertedInvoiceID = int64Ptr(inv.ID)
		if err := u.tx.UpdateQuotation(ctx, q); err != nil {
			return err
		}
		u.touch(models.TableQuotations)
		return o.activity(ctx, u, "convert", "quotation", q.ID,
			fmt.Sprintf("Converted quotation %s into invoice %s", q.QuotationNumber, inv.InvoiceNumber))
	})
	if err != nil {
		return nil, err
	}

	o.log(ctx).Info("Quotation converted",
		zap.String("tenant_id", actor.TenantID),
		zap.Int64("quotation_id", q.ID),
		zap.String("invoice_number", inv.InvoiceNumber))
	return inv, nil
}

// GetQuotation loads a quotation
func (o *Orchestrator) GetQuotation(ctx context.Context, actor Actor, quotationID int64) (*models.Quotation, error) {
	var q *models.Quotation
	err := o.store.WithTx(ctx, actor.TenantID, func(tx store.Tx) error {
		var err error
		q, err = tx.GetQuotation(ctx, quotationID)
		return err
	})
	return q, err
}
