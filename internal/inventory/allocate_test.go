package inventory

import (
	"testing"
	"time"

	"backoffice-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func lot(id int64, daysAfter, remaining int, cost int64) models.InventoryLot {
	return models.InventoryLot{
		ID:                id,
		ProductID:         1,
		PurchaseDate:      day0.AddDate(0, 0, daysAfter),
		QuantityPurchased: remaining,
		QuantityRemaining: remaining,
		UnitCost:          decimal.NewFromInt(cost),
	}
}

func TestAllocateConsumesOldestFirst(t *testing.T) {
	// newer lot listed first on purpose
	lots := []models.InventoryLot{lot(2, 5, 5, 12), lot(1, 0, 5, 10)}

	alloc := Allocate(lots, 7)

	require.True(t, alloc.Satisfied())
	require.Len(t, alloc.Takes, 2)
	assert.Equal(t, Take{LotID: 1, Quantity: 5, UnitCost: decimal.NewFromInt(10), Remaining: 0}, alloc.Takes[0])
	assert.Equal(t, Take{LotID: 2, Quantity: 2, UnitCost: decimal.NewFromInt(12), Remaining: 3}, alloc.Takes[1])
	assert.True(t, decimal.NewFromInt(74).Equal(alloc.Cost()))
}

func TestAllocateBreaksDateTiesByID(t *testing.T) {
	lots := []models.InventoryLot{lot(9, 0, 3, 1), lot(4, 0, 3, 2)}

	alloc := Allocate(lots, 2)

	require.Len(t, alloc.Takes, 1)
	assert.Equal(t, int64(4), alloc.Takes[0].LotID)
	assert.Equal(t, 1, alloc.Takes[0].Remaining)
}

func TestAllocateReportsShortfall(t *testing.T) {
	lots := []models.InventoryLot{lot(1, 0, 2, 10), lot(2, 1, 1, 10)}

	alloc := Allocate(lots, 5)

	assert.False(t, alloc.Satisfied())
	assert.Equal(t, 2, alloc.Shortfall)
	assert.Len(t, alloc.Takes, 2)
}

func TestAllocateSkipsEmptyLotsAndLeavesInputAlone(t *testing.T) {
	empty := lot(1, 0, 0, 10)
	full := lot(2, 1, 4, 11)
	lots := []models.InventoryLot{full, empty}

	alloc := Allocate(lots, 4)

	require.Len(t, alloc.Takes, 1)
	assert.Equal(t, int64(2), alloc.Takes[0].LotID)
	assert.Equal(t, 4, lots[0].QuantityRemaining)
	assert.Equal(t, int64(2), lots[0].ID)
}

func TestAvailable(t *testing.T) {
	assert.Equal(t, 0, Available(nil))
	assert.Equal(t, 8, Available([]models.InventoryLot{lot(1, 0, 5, 1), lot(2, 0, 3, 1), lot(3, 0, 0, 1)}))
}

func TestExpandAggregatesBundlesAndSkipsCustomLines(t *testing.T) {
	a, b, x := int64(1), int64(2), int64(10)
	lines := models.LineItems{
		{ID: "l1", Kind: models.LineKindStandard, ProductID: &a, Description: "A", Quantity: 1},
		{ID: "l2", Kind: models.LineKindBundle, ProductID: &x, Description: "X", Quantity: 3, Components: []models.ComponentLine{
			{SubProductID: a, SubProductName: "A", Quantity: 2},
			{SubProductID: b, SubProductName: "B", Quantity: 1},
		}},
		{ID: models.NewCustomLineID(), Kind: models.LineKindCustom, Description: "Labour", Quantity: 1},
	}

	reqs := Expand(lines)

	assert.Equal(t, []Requirement{
		{ProductID: a, ProductName: "A", Quantity: 7},
		{ProductID: b, ProductName: "B", Quantity: 3},
	}, reqs)
}

func TestMaxBundleQuantity(t *testing.T) {
	components := []models.ComponentLine{
		{SubProductID: 1, Quantity: 2},
		{SubProductID: 2, Quantity: 1},
	}

	assert.Equal(t, 3, MaxBundleQuantity(components, map[int64]int{1: 10, 2: 3}))
	assert.Equal(t, 0, MaxBundleQuantity(components, map[int64]int{1: 1, 2: 3}))
	assert.Equal(t, 0, MaxBundleQuantity(nil, map[int64]int{1: 10}))
}

func TestWeightedCost(t *testing.T) {
	allocs := []models.StockAllocation{
		{ProductID: 1, Quantity: 5, UnitCost: decimal.NewFromInt(10)},
		{ProductID: 1, Quantity: 2, UnitCost: decimal.NewFromInt(12)},
		{ProductID: 2, Quantity: 9, UnitCost: decimal.NewFromInt(99)},
	}

	cost, ok := WeightedCost(allocs, 1)
	require.True(t, ok)
	assert.Equal(t, "10.5714", cost.StringFixed(4))

	_, ok = WeightedCost(allocs, 3)
	assert.False(t, ok)
}
