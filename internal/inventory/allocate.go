// Package inventory keeps stock as purchase lots and consumes them oldest first.
package inventory

import (
	"sort"

	"backoffice-service/internal/models"

	"github.com/shopspring/decimal"
)

// Take is the share of a request served by one lot
type Take struct {
	LotID     int64
	Quantity  int
	UnitCost  decimal.Decimal
	Remaining int // lot quantity left after the take
}

// Allocation is the outcome of serving a quantity from a set of lots.
// Shortfall is zero when the lots covered the whole request.
type Allocation struct {
	Takes     []Take
	Shortfall int
}

// Satisfied reports whether the lots covered the whole request.
func (a Allocation) Satisfied() bool {
	return a.Shortfall == 0
}

// Cost is the total cost basis of the consumed units.
func (a Allocation) Cost() decimal.Decimal {
	total := decimal.Zero
	for _, t := range a.Takes {
		total = total.Add(t.UnitCost.Mul(decimal.NewFromInt(int64(t.Quantity))))
	}
	return total
}

// Allocate consumes qty from lots, oldest purchase date first (lot id breaks
// ties). The input slice is not modified. When the lots cannot cover qty the
// takes still describe the full available stock and Shortfall holds the rest.
func Allocate(lots []models.InventoryLot, qty int) Allocation {
	ordered := make([]models.InventoryLot, 0, len(lots))
	for _, lot := range lots {
		if lot.QuantityRemaining > 0 {
			ordered = append(ordered, lot)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].PurchaseDate.Equal(ordered[j].PurchaseDate) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].PurchaseDate.Before(ordered[j].PurchaseDate)
	})

	var out Allocation
	need := qty
	for _, lot := range ordered {
		if need <= 0 {
			break
		}
		take := lot.QuantityRemaining
		if take > need {
			take = need
		}
		out.Takes = append(out.Takes, Take{
			LotID:     lot.ID,
			Quantity:  take,
			UnitCost:  lot.UnitCost,
			Remaining: lot.QuantityRemaining - take,
		})
		need -= take
	}
	if need > 0 {
		out.Shortfall = need
	}
	return out
}

// Available sums the remaining quantity across lots.
func Available(lots []models.InventoryLot) int {
	total := 0
	for _, lot := range lots {
		if lot.QuantityRemaining > 0 {
			total += lot.QuantityRemaining
		}
	}
	return total
}
