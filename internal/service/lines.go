package service

import (
	"context"
	"strings"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/inventory"
	"backoffice-service/internal/models"
	"backoffice-service/internal/warranty"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// buildLines resolves requested lines into document lines. Products are
// looked up, prices default to the catalog price and bundle lines take a
// snapshot of the bundle's components.
func (o *Orchestrator) buildLines(ctx context.Context, u *unit, reqs []LineItemRequest) (models.LineItems, error) {
	if len(reqs) == 0 {
		return nil, apperr.Validation("at least one line item is required")
	}

	lines := make(models.LineItems, 0, len(reqs))
	for i, req := range reqs {
		if req.Quantity <= 0 {
			return nil, apperr.Validation("line %d: quantity must be positive", i+1)
		}
		if req.Discount.IsNegative() {
			return nil, apperr.Validation("line %d: discount must not be negative", i+1)
		}
		if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
			return nil, apperr.Validation("line %d: unit price must not be negative", i+1)
		}

		line := models.LineItem{
			ID:          req.ID,
			Description: strings.TrimSpace(req.Description),
			Quantity:    req.Quantity,
			Discount:    req.Discount,
		}

		if req.ProductID == nil || strings.HasPrefix(req.ID, models.CustomLinePrefix) {
			if line.Description == "" {
				return nil, apperr.Validation("line %d: custom lines need a description", i+1)
			}
			if req.UnitPrice == nil {
				return nil, apperr.Validation("line %d: custom lines need a unit price", i+1)
			}
			line.Kind = models.LineKindCustom
			line.UnitPrice = *req.UnitPrice
			if !strings.HasPrefix(line.ID, models.CustomLinePrefix) {
				line.ID = models.NewCustomLineID()
			}
		} else {
			p, err := u.tx.GetProduct(ctx, *req.ProductID)
			if err != nil {
				return nil, err
			}
			line.ProductID = int64Ptr(p.ID)
			line.Kind = models.LineKindStandard
			if p.IsBundle() {
				if len(p.Components) == 0 {
					return nil, apperr.Validation("bundle %q has no components", p.Name)
				}
				line.Kind = models.LineKindBundle
				line.Components = inventory.ComponentsOf(p)
			}
			if line.Description == "" {
				line.Description = p.Name
			}
			line.UnitPrice = p.Price
			if req.UnitPrice != nil {
				line.UnitPrice = *req.UnitPrice
			}
			if line.ID == "" {
				line.ID = uuid.New().String()
			}
		}

		if req.WarrantyPeriodValue < 0 {
			return nil, apperr.Validation("line %d: warranty period must not be negative", i+1)
		}
		if req.WarrantyPeriodValue > 0 {
			period, err := warranty.NormalizeUnit(req.WarrantyPeriodUnit)
			if err != nil {
				return nil, err
			}
			line.WarrantyPeriodValue = req.WarrantyPeriodValue
			line.WarrantyPeriodUnit = period
		}

		if line.Discount.GreaterThan(line.Gross()) {
			return nil, apperr.Validation("line %d: discount exceeds the line amount", i+1)
		}
		if lineByID(lines, line.ID) != nil {
			return nil, apperr.Validation("line %d: duplicate line id %q", i+1, line.ID)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// documentTotal is Σ line totals + delivery charge − document discount
func documentTotal(lines models.LineItems, deliveryCharge, discount decimal.Decimal) (subtotal, total decimal.Decimal, err error) {
	if deliveryCharge.IsNegative() {
		return decimal.Zero, decimal.Zero, apperr.Validation("delivery charge must not be negative")
	}
	if discount.IsNegative() {
		return decimal.Zero, decimal.Zero, apperr.Validation("discount must not be negative")
	}
	subtotal = lines.Subtotal()
	total = subtotal.Add(deliveryCharge).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero, decimal.Zero, apperr.Validation("discount exceeds the document amount")
	}
	return subtotal, total, nil
}

// netLineAmounts spreads the document discount over the lines in proportion
// to their totals. The last line with a positive total takes the rounding
// remainder, so the amounts add up to the goods total less the discount. A
// discount larger than the goods total only reduces the goods to zero; the
// rest comes off the delivery charge.
func netLineAmounts(lines models.LineItems, discount decimal.Decimal) []decimal.Decimal {
	subtotal := lines.Subtotal()
	goodsDiscount := decimal.Min(discount, subtotal)
	last := -1
	for i := range lines {
		if lines[i].Total().IsPositive() {
			last = i
		}
	}

	nets := make([]decimal.Decimal, len(lines))
	remaining := goodsDiscount
	for i := range lines {
		total := lines[i].Total()
		share := decimal.Zero
		switch {
		case i == last:
			share = remaining
		case total.IsPositive():
			share = goodsDiscount.Mul(total).Div(subtotal).Round(2)
		}
		share = decimal.Min(share, total)
		remaining = remaining.Sub(share)
		nets[i] = total.Sub(share)
	}
	return nets
}

func validatePayments(payments []PaymentRequest) error {
	for i, p := range payments {
		if !p.Amount.IsPositive() {
			return apperr.Validation("payment %d: amount must be positive", i+1)
		}
		if strings.TrimSpace(p.Method) == "" {
			return apperr.Validation("payment %d: method is required", i+1)
		}
	}
	return nil
}

// lineByID finds a document line by id
func lineByID(lines models.LineItems, id string) *models.LineItem {
	for i := range lines {
		if lines[i].ID == id {
			return &lines[i]
		}
	}
	return nil
}
