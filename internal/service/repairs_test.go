package service

import (
	"errors"
	"testing"
	"time"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/models"
	"backoffice-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// warrantySale sells one unit with a one-year warranty and returns its sale item
func (f *fixture) warrantySale(customerID int64) (int64, int64) {
	p := f.product("W", 100)
	f.purchase(p, 3, 60, 5)
	inv := f.invoice(customerID, LineItemRequest{ProductID: &p, Quantity: 1, WarrantyPeriodValue: 1, WarrantyPeriodUnit: "year"})
	return f.details(inv.ID).Sale.Items[0].ID, p
}

func (f *fixture) repair(id int64) *models.Repair {
	var r *models.Repair
	f.view(func(tx store.Tx) error {
		var err error
		r, err = tx.GetRepair(f.ctx, id)
		return err
	})
	return r
}

func (f *fixture) damaged(id int64) *models.DamagedStockEntry {
	var d *models.DamagedStockEntry
	f.view(func(tx store.Tx) error {
		var err error
		d, err = tx.GetDamagedStock(f.ctx, id)
		return err
	})
	return d
}

func TestWarrantyRepairIsBilledAtZero(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ada")
	saleItemID, _ := f.warrantySale(c)
	part := f.product("PART", 7)
	f.purchase(part, 2, 3, 1)
	balance := f.balance(c)

	r, err := f.o.CreateRepair(f.ctx, f.actor, &CreateRepairRequest{
		SaleItemID:  &saleItemID,
		Description: "Screen flicker",
		RepairFee:   dec(30),
		Items:       []RepairItemRequest{{ProductID: part, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, r.IsWarranty)
	assert.Equal(t, "REP-0001", r.RepairNumber)
	require.NotNil(t, r.CustomerID)
	assert.Equal(t, c, *r.CustomerID)

	_, err = f.o.StartRepair(f.ctx, f.actor, r.ID)
	require.NoError(t, err)

	inv, err := f.o.CompleteRepair(f.ctx, f.actor, r.ID, time.Time{})
	require.NoError(t, err)
	assert.True(t, inv.Total.IsZero())
	assert.Equal(t, models.InvoiceStatusPaid, inv.Status)
	assert.Equal(t, 1, f.stock(part))
	assert.True(t, balance.Equal(f.balance(c)))

	done := f.repair(r.ID)
	assert.Equal(t, models.RepairStatusCompleted, done.Status)
	require.NotNil(t, done.InvoiceID)
	assert.Equal(t, inv.ID, *done.InvoiceID)

	_, err = f.o.CompleteRepair(f.ctx, f.actor, r.ID, time.Time{})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestPaidRepairInvoice(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ada")
	part := f.product("PART", 7)
	f.purchase(part, 2, 3, 1)

	r, err := f.o.CreateRepair(f.ctx, f.actor, &CreateRepairRequest{
		CustomerID: &c,
		RepairFee:  dec(30),
		Items:      []RepairItemRequest{{ProductID: part, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.False(t, r.IsWarranty)

	inv, err := f.o.CompleteRepair(f.ctx, f.actor, r.ID, testNow)
	require.NoError(t, err)
	assertDecimal(t, 44, inv.Total)
	assert.Equal(t, models.InvoiceStatusSent, inv.Status)
	assert.Len(t, inv.LineItems, 2)
	assert.Equal(t, 0, f.stock(part))
	assertDecimal(t, -44, f.balance(c))

	require.NoError(t, f.o.DeleteInvoice(f.ctx, f.actor, inv.ID))
	reopened := f.repair(r.ID)
	assert.Equal(t, models.RepairStatusInProgress, reopened.Status)
	assert.Nil(t, reopened.InvoiceID)
	assert.Equal(t, 2, f.stock(part))
	assert.True(t, f.balance(c).IsZero())
}

func TestCompleteRepairWithoutPartsStock(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ada")
	part := f.product("PART", 7)

	r, err := f.o.CreateRepair(f.ctx, f.actor, &CreateRepairRequest{
		CustomerID: &c,
		Items:      []RepairItemRequest{{ProductID: part, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.o.CompleteRepair(f.ctx, f.actor, r.ID, testNow)
	assert.True(t, errors.Is(err, apperr.ErrInsufficientStock))
	assert.Equal(t, models.RepairStatusReceived, f.repair(r.ID).Status)
}

func TestExpiredAndVoidedWarranty(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ada")
	saleItemID, _ := f.warrantySale(c)

	st, err := f.o.WarrantyStatus(f.ctx, f.actor, saleItemID)
	require.NoError(t, err)
	assert.True(t, st.Covered)

	f.o.now = func() time.Time { return testNow.AddDate(1, 0, 1) }
	r, err := f.o.CreateRepair(f.ctx, f.actor, &CreateRepairRequest{SaleItemID: &saleItemID})
	require.NoError(t, err)
	assert.False(t, r.IsWarranty)

	f.o.now = func() time.Time { return testNow }
	_, err = f.o.VoidWarranty(f.ctx, f.actor, saleItemID, "Water damage")
	require.NoError(t, err)
	_, err = f.o.VoidWarranty(f.ctx, f.actor, saleItemID, "Again")
	assert.True(t, errors.Is(err, apperr.ErrAlreadyProcessed))

	st, err = f.o.WarrantyStatus(f.ctx, f.actor, saleItemID)
	require.NoError(t, err)
	assert.False(t, st.Covered)
	assert.True(t, st.Voided)
	assert.Equal(t, "Water damage", st.VoidReason)

	r, err = f.o.CreateRepair(f.ctx, f.actor, &CreateRepairRequest{SaleItemID: &saleItemID})
	require.NoError(t, err)
	assert.False(t, r.IsWarranty)
}

func TestRepairOfAnotherCustomersItem(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ada")
	other := f.customer("Bob")
	saleItemID, _ := f.warrantySale(c)

	_, err := f.o.CreateRepair(f.ctx, f.actor, &CreateRepairRequest{CustomerID: &other, SaleItemID: &saleItemID})
	assert.True(t, errors.Is(err, apperr.ErrOwnershipMismatch))
}

func TestWarrantyReplacement(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ada")
	saleItemID, p := f.warrantySale(c)
	balance := f.balance(c)

	r, err := f.o.CreateRepair(f.ctx, f.actor, &CreateRepairRequest{SaleItemID: &saleItemID})
	require.NoError(t, err)

	inv, err := f.o.CreateReplacement(f.ctx, f.actor, r.ID, nil, time.Time{})
	require.NoError(t, err)
	assert.True(t, inv.Total.IsZero())
	assert.Equal(t, 1, f.stock(p))
	assert.True(t, balance.Equal(f.balance(c)))
	assert.Equal(t, models.RepairStatusCompletedReplaced, f.repair(r.ID).Status)

	_, err = f.o.IssueCredit(f.ctx, f.actor, r.ID, dec(10))
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestIssueCredit(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ada")

	r, err := f.o.CreateRepair(f.ctx, f.actor, &CreateRepairRequest{CustomerID: &c})
	require.NoError(t, err)

	_, err = f.o.IssueCredit(f.ctx, f.actor, r.ID, dec(0))
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	tr, err := f.o.IssueCredit(f.ctx, f.actor, r.ID, dec(25))
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCredit, tr.Type)
	require.NotNil(t, tr.RepairID)
	assertDecimal(t, 25, f.balance(c))
	assert.Equal(t, models.RepairStatusCompletedCredit, f.repair(r.ID).Status)

	anonymous, err := f.o.CreateRepair(f.ctx, f.actor, &CreateRepairRequest{Description: "Walk-in"})
	require.NoError(t, err)
	_, err = f.o.IssueCredit(f.ctx, f.actor, anonymous.ID, dec(5))
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestRepairDamagedStockBackOnSale(t *testing.T) {
	f := newFixture(t)
	p := f.product("P", 20)
	f.purchase(p, 3, 8, 1)

	_, err := f.o.ReportDamagedStock(f.ctx, f.actor, &ReportDamagedStockRequest{ProductID: p, Quantity: 4})
	assert.True(t, errors.Is(err, apperr.ErrInsufficientStock))

	entry, err := f.o.ReportDamagedStock(f.ctx, f.actor, &ReportDamagedStockRequest{ProductID: p, Quantity: 1, Reason: "Dropped"})
	require.NoError(t, err)
	assertDecimal(t, 8, entry.UnitCost)
	assert.Equal(t, 2, f.stock(p))

	r, err := f.o.CreateRepair(f.ctx, f.actor, &CreateRepairRequest{DamagedStockID: &entry.ID})
	require.NoError(t, err)
	assert.Equal(t, models.DamagedStatusInRepair, f.damaged(entry.ID).Status)

	_, err = f.o.CreateRepair(f.ctx, f.actor, &CreateRepairRequest{DamagedStockID: &entry.ID})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.o.MarkRepaired(f.ctx, f.actor, r.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.DamagedStatusRepaired, f.damaged(entry.ID).Status)
	assert.Equal(t, models.RepairStatusRepaired, f.repair(r.ID).Status)
	assert.Equal(t, 3, f.stock(p))

	var lots []models.InventoryLot
	f.view(func(tx store.Tx) error {
		var err error
		lots, err = tx.ListLotsBySource(f.ctx, models.LotSourceRepair, r.ID)
		return err
	})
	require.Len(t, lots, 1)
	assertDecimal(t, 8, lots[0].UnitCost)
}

func TestUnrepairableDamagedStockIsWrittenOff(t *testing.T) {
	f := newFixture(t)
	p := f.product("P", 20)
	f.purchase(p, 2, 8, 1)

	entry, err := f.o.ReportDamagedStock(f.ctx, f.actor, &ReportDamagedStockRequest{ProductID: p, Quantity: 1})
	require.NoError(t, err)
	r, err := f.o.CreateRepair(f.ctx, f.actor, &CreateRepairRequest{DamagedStockID: &entry.ID})
	require.NoError(t, err)

	_, err = f.o.MarkUnrepairable(f.ctx, f.actor, r.ID)
	require.NoError(t, err)

	assert.Equal(t, models.DamagedStatusWrittenOff, f.damaged(entry.ID).Status)
	assert.Equal(t, 1, f.stock(p))

	_, err = f.o.MarkRepaired(f.ctx, f.actor, r.ID, false)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestRepairTransitions(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ada")

	r, err := f.o.CreateRepair(f.ctx, f.actor, &CreateRepairRequest{CustomerID: &c})
	require.NoError(t, err)

	_, err = f.o.StartRepair(f.ctx, f.actor, r.ID)
	require.NoError(t, err)
	_, err = f.o.StartRepair(f.ctx, f.actor, r.ID)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.o.MarkRepaired(f.ctx, f.actor, r.ID, true)
	assert.True(t, errors.Is(err, apperr.ErrValidation), "nothing to restock")

	_, err = f.o.StartRepair(f.ctx, f.actor, 999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
