package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/models"
	"backoffice-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addProduct(t *testing.T, tx store.Tx, sku string) *models.Product {
	t.Helper()
	p := &models.Product{SKU: sku, Name: sku, Price: decimal.NewFromInt(10), ProductType: models.ProductTypeStandard}
	require.NoError(t, tx.InsertProduct(context.Background(), p))
	return p
}

func TestFailedUnitOfWorkLeavesNothing(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	var productID int64
	err := s.WithTx(ctx, "t1", func(tx store.Tx) error {
		productID = addProduct(t, tx, "A").ID
		_, err := tx.NextSequence(ctx, "invoice")
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = s.WithTx(ctx, "t1", func(tx store.Tx) error {
		_, err := tx.GetProduct(ctx, productID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		n, err := tx.NextSequence(ctx, "invoice")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return nil
	})
	require.NoError(t, err)
}

func TestTenantsAreIsolated(t *testing.T) {
	s := New()
	ctx := context.Background()

	var productID int64
	require.NoError(t, s.WithTx(ctx, "t1", func(tx store.Tx) error {
		productID = addProduct(t, tx, "A").ID
		return nil
	}))

	require.NoError(t, s.WithTx(ctx, "t2", func(tx store.Tx) error {
		_, err := tx.GetProduct(ctx, productID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		n, err := tx.NextSequence(ctx, "invoice")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return nil
	}))
}

func TestOpenLotsAreOldestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.WithTx(ctx, "t1", func(tx store.Tx) error {
		p := addProduct(t, tx, "A")
		for _, lot := range []models.InventoryLot{
			{ProductID: p.ID, PurchaseDate: base.AddDate(0, 0, 2), QuantityPurchased: 1, QuantityRemaining: 1, UnitCost: decimal.NewFromInt(7)},
			{ProductID: p.ID, PurchaseDate: base, QuantityPurchased: 1, QuantityRemaining: 1, UnitCost: decimal.NewFromInt(5)},
			{ProductID: p.ID, PurchaseDate: base, QuantityPurchased: 1, QuantityRemaining: 0, UnitCost: decimal.NewFromInt(1)},
			{ProductID: p.ID, PurchaseDate: base, QuantityPurchased: 1, QuantityRemaining: 1, UnitCost: decimal.NewFromInt(6)},
		} {
			lot := lot
			require.NoError(t, tx.InsertLot(ctx, &lot))
		}

		lots, err := tx.ListOpenLots(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, lots, 3)
		assert.True(t, lots[0].UnitCost.Equal(decimal.NewFromInt(5)))
		assert.True(t, lots[1].UnitCost.Equal(decimal.NewFromInt(6)))
		assert.True(t, lots[2].UnitCost.Equal(decimal.NewFromInt(7)))
		return nil
	}))
}

func TestLotRemainingStaysWithinBounds(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, "t1", func(tx store.Tx) error {
		p := addProduct(t, tx, "A")
		lot := &models.InventoryLot{ProductID: p.ID, QuantityPurchased: 3, QuantityRemaining: 3, UnitCost: decimal.NewFromInt(2)}
		require.NoError(t, tx.InsertLot(ctx, lot))

		assert.ErrorIs(t, tx.SetLotRemaining(ctx, lot.ID, -1), apperr.ErrValidation)
		assert.ErrorIs(t, tx.SetLotRemaining(ctx, lot.ID, 4), apperr.ErrValidation)
		assert.NoError(t, tx.SetLotRemaining(ctx, lot.ID, 0))
		assert.ErrorIs(t, tx.SetLotRemaining(ctx, lot.ID+100, 1), apperr.ErrNotFound)
		return nil
	}))
}

func TestEmptyTenantIsRejected(t *testing.T) {
	err := New().WithTx(context.Background(), "", func(store.Tx) error { return nil })
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCancelledContextIsRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := New().WithTx(ctx, "t1", func(store.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDeleteSaleUnlinksRepairs(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, "t1", func(tx store.Tx) error {
		p := addProduct(t, tx, "A")
		sale := &models.Sale{Items: []models.SaleItem{{LineItemID: "l1", ProductID: &p.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(10)}}}
		require.NoError(t, tx.InsertSale(ctx, sale))
		itemID := sale.Items[0].ID

		r := &models.Repair{RepairNumber: "REP-0001", ProductID: &p.ID, SaleItemID: &itemID, Status: models.RepairStatusReceived}
		require.NoError(t, tx.InsertRepair(ctx, r))

		require.NoError(t, tx.DeleteSale(ctx, sale.ID))

		got, err := tx.GetRepair(ctx, r.ID)
		require.NoError(t, err)
		assert.Nil(t, got.SaleItemID)
		_, err = tx.GetSaleItem(ctx, itemID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		return nil
	}))
}
