// Package sequence issues per-tenant document numbers such as INV-0001.
package sequence

import (
	"context"
	"fmt"

	"backoffice-service/internal/models"
	"backoffice-service/internal/store"
	"backoffice-service/internal/util"
)

// Kind is a numbered document type
type Kind string

const (
	KindInvoice   Kind = "invoice"
	KindQuotation Kind = "quotation"
	KindReturn    Kind = "return"
	KindRepair    Kind = "repair"
)

// Default prefixes used when a tenant has not configured its own
const (
	DefaultInvoicePrefix   = "INV-"
	DefaultQuotationPrefix = "QUO-"
	DefaultReturnPrefix    = "RET-"
	DefaultRepairPrefix    = "REP-"
)

// Format renders a counter value as prefix plus at least four digits.
func Format(prefix string, n int64) string {
	return fmt.Sprintf("%s%04d", prefix, n)
}

// Prefix returns the configured prefix for kind, falling back to the default.
func Prefix(settings *models.TenantSettings, kind Kind) string {
	var configured, fallback string
	switch kind {
	case KindInvoice:
		fallback = DefaultInvoicePrefix
		if settings != nil {
			configured = settings.InvoicePrefix
		}
	case KindQuotation:
		fallback = DefaultQuotationPrefix
		if settings != nil {
			configured = settings.QuotationPrefix
		}
	case KindReturn:
		fallback = DefaultReturnPrefix
		if settings != nil {
			configured = settings.ReturnPrefix
		}
	case KindRepair:
		fallback = DefaultRepairPrefix
		if settings != nil {
			configured = settings.RepairPrefix
		}
	}
	if configured != "" {
		return configured
	}
	return fallback
}

// Next advances the tenant's counter for kind inside tx and returns the
// formatted number. The counter write commits or rolls back with the
// document it numbers.
func Next(ctx context.Context, tx store.Tx, settings *models.TenantSettings, kind Kind) (string, error) {
	n, err := tx.NextSequence(ctx, string(kind))
	if err != nil {
		return "", err
	}
	util.DocumentNumbersIssued.WithLabelValues(string(kind)).Inc()
	return Format(Prefix(settings, kind), n), nil
}
