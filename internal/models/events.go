package models

import "time"

// Event types
const (
	EventTypeCollectionChanged = "COLLECTION_CHANGED"
)

// Collections announced to live subscribers
const (
	TableSales        = "sales"
	TableInventory    = "inventory"
	TableProducts     = "products"
	TableTransactions = "transactions"
	TableInvoices     = "invoices"
	TableCustomers    = "customers"
	TableActivityLog  = "activity_log"
	TableQuotations   = "quotations"
	TableReturns      = "returns"
	TableRepairs      = "repairs"
	TableDamagedStock = "damaged_stock"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ChangeEvent tells subscribers that a tenant's collection changed
type ChangeEvent struct {
	BaseEvent
	TenantID string `json:"tenant_id"`
	Table    string `json:"table"`
}
