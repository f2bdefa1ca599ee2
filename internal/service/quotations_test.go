package service

import (
	"errors"
	"testing"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/models"
	"backoffice-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) quotation(id int64) *models.Quotation {
	var q *models.Quotation
	f.view(func(tx store.Tx) error {
		var err error
		q, err = tx.GetQuotation(f.ctx, id)
		return err
	})
	return q
}

func TestQuotationDoesNotTouchStock(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ada")
	p := f.product("P", 10)
	f.purchase(p, 3, 4, 1)

	q, err := f.o.CreateQuotation(f.ctx, f.actor, &QuotationRequest{CustomerID: c, LineItems: []LineItemRequest{f.line(p, 2)}})
	require.NoError(t, err)

	assert.Equal(t, "QUO-0001", q.QuotationNumber)
	assert.Equal(t, models.QuotationStatusDraft, q.Status)
	assertDecimal(t, 20, q.Total)
	assert.Equal(t, 3, f.stock(p))
	assert.True(t, f.balance(c).IsZero())
}

func TestConvertQuotation(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ada")
	p := f.product("P", 10)
	f.purchase(p, 3, 4, 1)

	q, err := f.o.CreateQuotation(f.ctx, f.actor, &QuotationRequest{
		CustomerID: c,
		LineItems:  []LineItemRequest{{ProductID: &p, Quantity: 2, UnitPrice: decPtr(8)}},
		Discount:   dec(1),
	})
	require.NoError(t, err)

	inv, err := f.o.ConvertQuotation(f.ctx, f.actor, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", inv.InvoiceNumber)
	assertDecimal(t, 15, inv.Total)
	assert.Equal(t, 1, f.stock(p))
	assertDecimal(t, -15, f.balance(c))

	q = f.quotation(q.ID)
	assert.Equal(t, models.QuotationStatusConverted, q.Status)
	require.NotNil(t, q.ConvertedInvoiceID)
	assert.Equal(t, inv.ID, *q.ConvertedInvoiceID)

	_, err = f.o.ConvertQuotation(f.ctx, f.actor, q.ID)
	assert.True(t, errors.Is(err, apperr.ErrAlreadyProcessed))
	assert.Equal(t, 1, f.stock(p))
}

func TestConvertQuotationRechecksStock(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ada")
	p := f.product("P", 10)

	q, err := f.o.CreateQuotation(f.ctx, f.actor, &QuotationRequest{CustomerID: c, LineItems: []LineItemRequest{f.line(p, 5)}})
	require.NoError(t, err)
	f.purchase(p, 2, 4, 1)

	_, err = f.o.ConvertQuotation(f.ctx, f.actor, q.ID)
	assert.True(t, errors.Is(err, apperr.ErrInsufficientStock))
	assert.Equal(t, models.QuotationStatusDraft, f.quotation(q.ID).Status)
	assert.Equal(t, 2, f.stock(p))
}

func TestConvertedQuotationIsFrozen(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ada")
	req := &QuotationRequest{CustomerID: c, LineItems: []LineItemRequest{{Description: "Design", Quantity: 1, UnitPrice: decPtr(50)}}}

	q, err := f.o.CreateQuotation(f.ctx, f.actor, req)
	require.NoError(t, err)
	_, err = f.o.ConvertQuotation(f.ctx, f.actor, q.ID)
	require.NoError(t, err)

	_, err = f.o.UpdateQuotation(f.ctx, f.actor, q.ID, req)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	err = f.o.DeleteQuotation(f.ctx, f.actor, q.ID)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestUpdateAndDeleteDraftQuotation(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ada")

	q, err := f.o.CreateQuotation(f.ctx, f.actor, &QuotationRequest{
		CustomerID: c,
		LineItems:  []LineItemRequest{{Description: "Design", Quantity: 1, UnitPrice: decPtr(50)}},
	})
	require.NoError(t, err)

	q, err = f.o.UpdateQuotation(f.ctx, f.actor, q.ID, &QuotationRequest{
		LineItems:      []LineItemRequest{{Description: "Design", Quantity: 2, UnitPrice: decPtr(50)}},
		DeliveryCharge: dec(10),
	})
	require.NoError(t, err)
	assertDecimal(t, 110, q.Total)
	assert.Equal(t, c, q.CustomerID)
	assertDecimal(t, 110, f.quotation(q.ID).Total)

	require.NoError(t, f.o.DeleteQuotation(f.ctx, f.actor, q.ID))
	err = f.o.DeleteQuotation(f.ctx, f.actor, q.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestDeletingConvertedInvoiceReopensQuotation(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ada")
	p := f.product("P", 10)
	f.purchase(p, 2, 4, 1)

	q, err := f.o.CreateQuotation(f.ctx, f.actor, &QuotationRequest{CustomerID: c, LineItems: []LineItemRequest{f.line(p, 2)}})
	require.NoError(t, err)
	inv, err := f.o.ConvertQuotation(f.ctx, f.actor, q.ID)
	require.NoError(t, err)

	require.NoError(t, f.o.DeleteInvoice(f.ctx, f.actor, inv.ID))

	reopened := f.quotation(q.ID)
	assert.Equal(t, models.QuotationStatusDraft, reopened.Status)
	assert.Nil(t, reopened.ConvertedInvoiceID)
	assert.Equal(t, 2, f.stock(p))

	again, err := f.o.ConvertQuotation(f.ctx, f.actor, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-0002", again.InvoiceNumber)
}
