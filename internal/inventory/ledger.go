package inventory

import (
	"context"
	"time"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/models"
	"backoffice-service/internal/store"
	"backoffice-service/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Link names the document a deduction serves
type Link struct {
	SaleItemID     *int64
	RepairID       *int64
	DamagedStockID *int64
}

// RestockRequest describes a new synthetic lot
type RestockRequest struct {
	ProductID    int64
	Quantity     int
	UnitCost     decimal.Decimal
	SourceType   string
	SourceID     *int64
	PurchaseDate time.Time
	Note         string
}

// Ledger applies FIFO consumption and restocks inside a unit of work
type Ledger struct {
	logger *zap.Logger
}

func NewLedger() *Ledger {
	return &Ledger{logger: util.GetLogger()}
}

// AvailableStock sums quantity_remaining across the product's lots.
func (l *Ledger) AvailableStock(ctx context.Context, tx store.Tx, productID int64) (int, error) {
	lots, err := tx.ListOpenLots(ctx, productID)
	if err != nil {
		return 0, err
	}
	return Available(lots), nil
}

// Check verifies that every line of a request can be served from stock.
// Bundle lines are first checked against the number of whole bundles their
// components can build; then the combined requirement of each product across
// all lines is checked. Nothing is written.
func (l *Ledger) Check(ctx context.Context, tx store.Tx, lines models.LineItems) error {
	ctx, span := util.StartSpan(ctx, "inventory.Check", attribute.Int("lines", len(lines)))
	var err error
	defer func() { util.EndSpan(span, err) }()

	available := make(map[int64]int)
	stockOf := func(productID int64) (int, error) {
		if n, ok := available[productID]; ok {
			return n, nil
		}
		n, err := l.AvailableStock(ctx, tx, productID)
		if err != nil {
			return 0, err
		}
		available[productID] = n
		return n, nil
	}

	for i := range lines {
		line := &lines[i]
		if !line.IsBundle() {
			continue
		}
		for _, c := range line.Components {
			if _, err = stockOf(c.SubProductID); err != nil {
				return err
			}
		}
		if max := MaxBundleQuantity(line.Components, available); max < line.Quantity {
			err = l.insufficient(*line.ProductID, line.Description, line.Quantity, max)
			return err
		}
	}

	for _, req := range Expand(lines) {
		var n int
		if n, err = stockOf(req.ProductID); err != nil {
			return err
		}
		if n < req.Quantity {
			err = l.insufficient(req.ProductID, req.ProductName, req.Quantity, n)
			return err
		}
	}
	span.SetAttributes(attribute.Int("lines", len(lines)))
	return nil
}

func (l *Ledger) insufficient(productID int64, name string, requested, available int) error {
	util.InsufficientStockTotal.Inc()
	l.logger.Warn("Insufficient stock",
		zap.Int64("product_id", productID),
		zap.Int("requested", requested),
		zap.Int("available", available))
	return &apperr.InsufficientStockError{
		ProductID:   productID,
		ProductName: name,
		Requested:   requested,
		Available:   available,
	}
}

// Deduct consumes qty units of a product, oldest lots first, and records one
// allocation per lot touched. If the lots cannot cover qty nothing is written.
func (l *Ledger) Deduct(ctx context.Context, tx store.Tx, productID int64, qty int, link Link) ([]models.StockAllocation, error) {
	if qty <= 0 {
		return nil, apperr.Validation("deduct quantity must be positive, got %d", qty)
	}

	lots, err := tx.ListOpenLots(ctx, productID)
	if err != nil {
		return nil, err
	}
	alloc := Allocate(lots, qty)
	if !alloc.Satisfied() {
		return nil, l.insufficient(productID, "", qty, Available(lots))
	}

	out := make([]models.StockAllocation, 0, len(alloc.Takes))
	for _, take := range alloc.Takes {
		if err := tx.SetLotRemaining(ctx, take.LotID, take.Remaining); err != nil {
			return nil, err
		}
		a := models.StockAllocation{
			LotID:          take.LotID,
			ProductID:      productID,
			Quantity:       take.Quantity,
			UnitCost:       take.UnitCost,
			SaleItemID:     link.SaleItemID,
			RepairID:       link.RepairID,
			DamagedStockID: link.DamagedStockID,
		}
		if err := tx.InsertAllocation(ctx, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	util.StockUnitsDeducted.Add(float64(qty))
	return out, nil
}

// DeductLine consumes the stock behind one document line: the product for a
// standard line, each component scaled by the line quantity for a bundle.
func (l *Ledger) DeductLine(ctx context.Context, tx store.Tx, line *models.LineItem, link Link) ([]models.StockAllocation, error) {
	switch {
	case line.IsCustom():
		return nil, nil
	case line.IsBundle():
		var out []models.StockAllocation
		for _, c := range line.Components {
			allocs, err := l.Deduct(ctx, tx, c.SubProductID, c.Quantity*line.Quantity, link)
			if err != nil {
				return nil, err
			}
			out = append(out, allocs...)
		}
		return out, nil
	default:
		return l.Deduct(ctx, tx, *line.ProductID, line.Quantity, link)
	}
}

// Restock creates a new lot holding the whole requested quantity.
func (l *Ledger) Restock(ctx context.Context, tx store.Tx, req RestockRequest) (*models.InventoryLot, error) {
	if req.Quantity <= 0 {
		return nil, apperr.Validation("restock quantity must be positive, got %d", req.Quantity)
	}
	if req.UnitCost.IsNegative() {
		return nil, apperr.Validation("restock unit cost must not be negative")
	}

	lot := &models.InventoryLot{
		ProductID:         req.ProductID,
		PurchaseDate:      req.PurchaseDate,
		QuantityPurchased: req.Quantity,
		QuantityRemaining: req.Quantity,
		UnitCost:          req.UnitCost,
		SourceType:        req.SourceType,
		SourceID:          req.SourceID,
		Note:              req.Note,
	}
	if err := tx.InsertLot(ctx, lot); err != nil {
		return nil, err
	}

	util.StockUnitsRestocked.WithLabelValues(req.SourceType).Add(float64(req.Quantity))
	return lot, nil
}

// Reclaim takes back every unit a source document restocked. It fails with
// a reversal conflict, writing nothing, when any of those lots has been
// consumed since.
func (l *Ledger) Reclaim(ctx context.Context, tx store.Tx, sourceType string, sourceID int64) (int, error) {
	lots, err := tx.ListLotsBySource(ctx, sourceType, sourceID)
	if err != nil {
		return 0, err
	}

	for _, lot := range lots {
		if lot.QuantityRemaining < lot.QuantityPurchased {
			util.ReversalConflictsTotal.Inc()
			l.logger.Warn("Restocked lot already consumed",
				zap.Int64("lot_id", lot.ID),
				zap.String("source_type", sourceType),
				zap.Int64("source_id", sourceID),
				zap.Int("remaining", lot.QuantityRemaining),
				zap.Int("restocked", lot.QuantityPurchased))
			return 0, apperr.ReversalConflict(
				"lot %d for product %d has %d of %d restocked units left",
				lot.ID, lot.ProductID, lot.QuantityRemaining, lot.QuantityPurchased)
		}
	}

	total := 0
	for _, lot := range lots {
		if err := tx.SetLotRemaining(ctx, lot.ID, 0); err != nil {
			return 0, err
		}
		total += lot.QuantityPurchased
	}
	return total, nil
}

// WeightedCost is the quantity-weighted unit cost of a product's allocations.
// ok is false when no allocation covers the product.
func WeightedCost(allocs []models.StockAllocation, productID int64) (cost decimal.Decimal, ok bool) {
	total := decimal.Zero
	units := 0
	for _, a := range allocs {
		if a.ProductID != productID {
			continue
		}
		total = total.Add(a.UnitCost.Mul(decimal.NewFromInt(int64(a.Quantity))))
		units += a.Quantity
	}
	if units == 0 {
		return decimal.Zero, false
	}
	return total.Div(decimal.NewFromInt(int64(units))).Round(4), true
}
