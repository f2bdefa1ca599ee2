package ledger

import (
	"context"
	"errors"
	"testing"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/models"
	"backoffice-service/internal/store"
	"backoffice-service/internal/store/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenant = "tenant-ledger"

func newCustomer(t *testing.T, s *memstore.Store) int64 {
	t.Helper()
	var id int64
	require.NoError(t, s.WithTx(context.Background(), tenant, func(tx store.Tx) error {
		c := &models.Customer{Name: "Ada"}
		err := tx.InsertCustomer(context.Background(), c)
		id = c.ID
		return err
	}))
	return id
}

func balanceOf(t *testing.T, s *memstore.Store, id int64) decimal.Decimal {
	t.Helper()
	var bal decimal.Decimal
	require.NoError(t, s.WithTx(context.Background(), tenant, func(tx store.Tx) error {
		c, err := tx.GetCustomer(context.Background(), id)
		if err != nil {
			return err
		}
		bal = c.Balance
		return nil
	}))
	return bal
}

func TestRecordAppliesSignedAmount(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	customerID := newCustomer(t, s)
	l := New()
	invoiceID := int64(9)

	require.NoError(t, s.WithTx(ctx, tenant, func(tx store.Tx) error {
		if _, err := l.Record(ctx, tx, Entry{CustomerID: customerID, Type: models.TransactionDebit,
			Amount: decimal.NewFromInt(100), Links: Links{InvoiceID: &invoiceID}}); err != nil {
			return err
		}
		_, err := l.Record(ctx, tx, Entry{CustomerID: customerID, Type: models.TransactionCredit,
			Amount: decimal.NewFromInt(60), PaymentMethod: "Cash", Links: Links{InvoiceID: &invoiceID}})
		return err
	}))

	assert.True(t, decimal.NewFromInt(-40).Equal(balanceOf(t, s, customerID)))

	require.NoError(t, s.WithTx(ctx, tenant, func(tx store.Tx) error {
		paid, err := l.TotalPaid(ctx, tx, invoiceID)
		assert.True(t, decimal.NewFromInt(60).Equal(paid))
		return err
	}))
}

func TestRecordRejectsBadEntries(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	customerID := newCustomer(t, s)
	l := New()

	err := s.WithTx(ctx, tenant, func(tx store.Tx) error {
		_, err := l.Record(ctx, tx, Entry{CustomerID: customerID, Type: "refund", Amount: decimal.NewFromInt(1)})
		return err
	})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	err = s.WithTx(ctx, tenant, func(tx store.Tx) error {
		_, err := l.Record(ctx, tx, Entry{CustomerID: customerID, Type: models.TransactionCredit, Amount: decimal.NewFromInt(-1)})
		return err
	})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestRecordSkipsZeroAmount(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	customerID := newCustomer(t, s)
	l := New()

	require.NoError(t, s.WithTx(ctx, tenant, func(tx store.Tx) error {
		tr, err := l.Record(ctx, tx, Entry{CustomerID: customerID, Type: models.TransactionDebit, Amount: decimal.Zero})
		assert.Nil(t, tr)
		return err
	}))
}

func TestReverseAllRestoresBalance(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	customerID := newCustomer(t, s)
	l := New()
	returnID := int64(3)

	require.NoError(t, s.WithTx(ctx, tenant, func(tx store.Tx) error {
		if _, err := l.Record(ctx, tx, Entry{CustomerID: customerID, Type: models.TransactionCredit,
			Amount: decimal.NewFromInt(50), Links: Links{ReturnID: &returnID}}); err != nil {
			return err
		}
		_, err := l.Record(ctx, tx, Entry{CustomerID: customerID, Type: models.TransactionDebit,
			Amount: decimal.NewFromInt(20), PaymentMethod: "Cash", Links: Links{ReturnID: &returnID}})
		return err
	}))
	assert.True(t, decimal.NewFromInt(30).Equal(balanceOf(t, s, customerID)))

	var removed []models.Transaction
	require.NoError(t, s.WithTx(ctx, tenant, func(tx store.Tx) error {
		var err error
		removed, err = l.ReverseAll(ctx, tx, models.TransactionFilter{ReturnID: &returnID})
		return err
	}))

	assert.Len(t, removed, 2)
	assert.True(t, decimal.NewFromInt(30).Equal(Net(removed)))
	assert.True(t, balanceOf(t, s, customerID).IsZero())
}

func TestReverseOfMissingCustomerRollsBack(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	l := New()

	err := s.WithTx(ctx, tenant, func(tx store.Tx) error {
		return l.Reverse(ctx, tx, models.Transaction{ID: 1, CustomerID: 404, Type: models.TransactionDebit, Amount: decimal.NewFromInt(5)})
	})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
