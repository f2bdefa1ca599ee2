// Package ledger records signed money movements against customers and keeps
// each customer's cached balance equal to the signed sum of their entries.
package ledger

import (
	"context"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/models"
	"backoffice-service/internal/store"
	"backoffice-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Links ties an entry to the document that produced it
type Links struct {
	InvoiceID *int64
	ReturnID  *int64
	RepairID  *int64
}

// Entry is a money movement to record
type Entry struct {
	CustomerID    int64
	Type          string
	Amount        decimal.Decimal
	Description   string
	PaymentMethod string
	Links         Links
}

type Ledger struct {
	logger *zap.Logger
}

func New() *Ledger {
	return &Ledger{logger: util.GetLogger()}
}

// Record inserts the entry and applies its signed amount to the customer's
// balance: credits add, debits subtract. A zero amount moves no money and
// records nothing; the returned transaction is nil in that case.
func (l *Ledger) Record(ctx context.Context, tx store.Tx, e Entry) (*models.Transaction, error) {
	if e.Type != models.TransactionDebit && e.Type != models.TransactionCredit {
		return nil, apperr.Validation("unknown transaction type %q", e.Type)
	}
	if e.Amount.IsNegative() {
		return nil, apperr.Validation("transaction amount must not be negative, got %s", e.Amount)
	}
	if e.Amount.IsZero() {
		return nil, nil
	}

	t := &models.Transaction{
		CustomerID:    e.CustomerID,
		Type:          e.Type,
		Amount:        e.Amount,
		Description:   e.Description,
		PaymentMethod: e.PaymentMethod,
		InvoiceID:     e.Links.InvoiceID,
		ReturnID:      e.Links.ReturnID,
		RepairID:      e.Links.RepairID,
	}
	if err := tx.InsertTransaction(ctx, t); err != nil {
		return nil, err
	}
	if err := tx.AdjustCustomerBalance(ctx, e.CustomerID, t.Signed()); err != nil {
		return nil, err
	}

	util.LedgerEntriesTotal.WithLabelValues(e.Type, "record").Inc()
	return t, nil
}

// Reverse applies the inverse balance adjustment of t and deletes it.
func (l *Ledger) Reverse(ctx context.Context, tx store.Tx, t models.Transaction) error {
	if err := tx.AdjustCustomerBalance(ctx, t.CustomerID, t.Signed().Neg()); err != nil {
		return err
	}
	if err := tx.DeleteTransaction(ctx, t.ID); err != nil {
		return err
	}
	util.LedgerEntriesTotal.WithLabelValues(t.Type, "reverse").Inc()
	return nil
}

// ReverseAll reverses every entry linked to the filtered document and returns
// the entries it removed.
func (l *Ledger) ReverseAll(ctx context.Context, tx store.Tx, filter models.TransactionFilter) ([]models.Transaction, error) {
	entries, err := tx.ListTransactions(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, t := range entries {
		if err := l.Reverse(ctx, tx, t); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// TotalPaid sums the credit entries linked to an invoice.
func (l *Ledger) TotalPaid(ctx context.Context, tx store.Tx, invoiceID int64) (decimal.Decimal, error) {
	entries, err := tx.ListTransactions(ctx, models.TransactionFilter{InvoiceID: &invoiceID})
	if err != nil {
		return decimal.Zero, err
	}
	return SumCredits(entries), nil
}

// SumCredits sums the amounts of credit entries.
func SumCredits(entries []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range entries {
		if t.Type == models.TransactionCredit {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// Net is the signed sum of entries.
func Net(entries []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for i := range entries {
		total = total.Add(entries[i].Signed())
	}
	return total
}
