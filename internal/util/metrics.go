package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkflowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workflows_total",
		Help: "Total number of workflow runs by outcome",
	}, []string{"workflow", "result"})

	WorkflowLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workflow_latency_seconds",
		Help:    "Latency of workflow units of work",
		Buckets: prometheus.DefBuckets,
	}, []string{"workflow"})

	StockUnitsDeducted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_units_deducted_total",
		Help: "Total number of units consumed from inventory lots",
	})

	StockUnitsRestocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_units_restocked_total",
		Help: "Total number of units put back into inventory lots",
	}, []string{"source"})

	InsufficientStockTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "insufficient_stock_total",
		Help: "Total number of stock checks that failed",
	})

	LedgerEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_entries_total",
		Help: "Total number of ledger entries by type and operation",
	}, []string{"type", "operation"})

	DocumentNumbersIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "document_numbers_issued_total",
		Help: "Total number of document numbers issued",
	}, []string{"kind"})

	ReversalConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reversal_conflicts_total",
		Help: "Total number of reversals refused because restocked units were already consumed",
	})

	ChangeEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "change_events_published_total",
		Help: "Total number of collection change events published",
	}, []string{"result"})

	ChangeEventsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "change_events_relayed_total",
		Help: "Total number of change events relayed to live subscribers",
	}, []string{"result"})

	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idempotent_replays_total",
		Help: "Total number of requests answered from the idempotency cache",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
