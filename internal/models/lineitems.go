package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line kinds
const (
	LineKindStandard = "standard"
	LineKindBundle   = "bundle"
	LineKindCustom   = "custom"
)

// CustomLinePrefix marks line ids that have no backing product.
const CustomLinePrefix = "custom-"

// lineItemsVersion is the version written into persisted line item payloads.
const lineItemsVersion = 1

// LineItem is one document line. Kind selects the variant:
// standard lines deduct their product, bundle lines deduct Components,
// custom lines never touch stock.
type LineItem struct {
	ID                  string          `json:"id"`
	Kind                string          `json:"kind"`
	ProductID           *int64          `json:"product_id,omitempty"`
	Description         string          `json:"description"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unitPrice"`
	Discount            decimal.Decimal `json:"discount"`
	Components          []ComponentLine `json:"components,omitempty"`
	WarrantyPeriodValue int             `json:"warranty_period_value,omitempty"`
	WarrantyPeriodUnit  string          `json:"warranty_period_unit,omitempty"`
}

// ComponentLine is the per-bundle component snapshot taken when a document is issued
type ComponentLine struct {
	SubProductID   int64  `json:"sub_product_id"`
	SubProductName string `json:"sub_product_name"`
	SubProductSKU  string `json:"sub_product_sku"`
	Quantity       int    `json:"quantity"`
}

// NewCustomLineID returns a fresh id for a line with no product.
func NewCustomLineID() string {
	return CustomLinePrefix + uuid.New().String()
}

// IsCustom reports whether the line has no backing product.
func (l *LineItem) IsCustom() bool {
	return l.Kind == LineKindCustom || l.ProductID == nil || strings.HasPrefix(l.ID, CustomLinePrefix)
}

// IsBundle reports whether the line deducts through its components.
func (l *LineItem) IsBundle() bool {
	return l.Kind == LineKindBundle && !l.IsCustom()
}

// Gross is quantity times unit price.
func (l *LineItem) Gross() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Total is the line amount after its own discount.
func (l *LineItem) Total() decimal.Decimal {
	return l.Gross().Sub(l.Discount)
}

// LineItems is persisted as a versioned JSON envelope
type LineItems []LineItem

type lineItemsEnvelope struct {
	Version int        `json:"version"`
	Items   []LineItem `json:"items"`
}

// Subtotal sums line totals.
func (items LineItems) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].Total())
	}
	return total
}

// Clone returns a deep copy.
func (items LineItems) Clone() LineItems {
	if items == nil {
		return nil
	}
	out := make(LineItems, len(items))
	for i, item := range items {
		if item.ProductID != nil {
			id := *item.ProductID
			item.ProductID = &id
		}
		if item.Components != nil {
			item.Components = append([]ComponentLine(nil), item.Components...)
		}
		out[i] = item
	}
	return out
}

// Value implements driver.Valuer.
func (items LineItems) Value() (driver.Value, error) {
	payload, err := json.Marshal(lineItemsEnvelope{Version: lineItemsVersion, Items: items})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal line items: %w", err)
	}
	// lib/pq sends []byte as bytea; jsonb needs text.
	return string(payload), nil
}

// Scan implements sql.Scanner.
func (items *LineItems) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*items = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported line items source %T", src)
	}

	var env lineItemsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to unmarshal line items: %w", err)
	}
	if env.Version != lineItemsVersion {
		return fmt.Errorf("unsupported line items version %d", env.Version)
	}
	*items = env.Items
	return nil
}
