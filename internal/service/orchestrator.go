package service

import (
	"context"
	"errors"
	"time"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/inventory"
	"backoffice-service/internal/ledger"
	"backoffice-service/internal/models"
	"backoffice-service/internal/sequence"
	"backoffice-service/internal/store"
	"backoffice-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Actor is the already-authenticated caller of a workflow
type Actor struct {
	TenantID string
	UserID   int64
}

// Defaults apply to tenants without a settings row
type Defaults struct {
	Currency       string
	DefaultDueDays int
}

// Orchestrator runs each business workflow as one atomic unit of work over
// the stock, money and numbering ledgers
type Orchestrator struct {
	store    store.Transactor
	locks    *TenantLocks
	notifier Notifier
	stock    *inventory.Ledger
	money    *ledger.Ledger
	defaults Defaults
	now      func() time.Time
	logger   *zap.Logger
}

// NewOrchestrator creates a new orchestrator. A nil notifier disables change
// notifications.
func NewOrchestrator(st store.Transactor, locks *TenantLocks, notifier Notifier, defaults Defaults) *Orchestrator {
	if locks == nil {
		locks = NewTenantLocks()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if defaults.Currency == "" {
		defaults.Currency = "USD"
	}
	if defaults.DefaultDueDays <= 0 {
		defaults.DefaultDueDays = 30
	}
	return &Orchestrator{
		store:    st,
		locks:    locks,
		notifier: notifier,
		stock:    inventory.NewLedger(),
		money:    ledger.New(),
		defaults: defaults,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   util.GetLogger(),
	}
}

// unit is the state of one workflow run inside its unit of work
type unit struct {
	tx       store.Tx
	actor    Actor
	settings *models.TenantSettings
	changed  []string
	seen     map[string]bool
}

func (u *unit) touch(tables ...string) {
	for _, t := range tables {
		if !u.seen[t] {
			u.seen[t] = true
			u.changed = append(u.changed, t)
		}
	}
}

// run executes fn under the tenant lock inside one unit of work. Change
// notifications go out only after a successful commit.
func (o *Orchestrator) run(ctx context.Context, actor Actor, workflow string, fn func(ctx context.Context, u *unit) error) (err error) {
	ctx, span := util.StartSpan(ctx, "Orchestrator."+workflow,
		attribute.String("tenant_id", actor.TenantID),
		attribute.Int64("user_id", actor.UserID))
	defer func() { util.EndSpan(span, err) }()

	if actor.TenantID == "" {
		return apperr.Validation("tenant id is required")
	}

	start := time.Now()
	var u *unit

	unlock := o.locks.Lock(actor.TenantID)
	err = o.store.WithTx(ctx, actor.TenantID, func(tx store.Tx) error {
		u = &unit{tx: tx, actor: actor, seen: make(map[string]bool)}
		settings, err := o.loadSettings(ctx, tx)
		if err != nil {
			return err
		}
		u.settings = settings
		return fn(ctx, u)
	})
	unlock()

	util.WorkflowLatency.WithLabelValues(workflow).Observe(time.Since(start).Seconds())
	if err != nil {
		o.recordFailure(ctx, workflow, actor, err)
		return err
	}

	util.WorkflowsTotal.WithLabelValues(workflow, "ok").Inc()
	o.notify(ctx, actor.TenantID, u.changed)
	return nil
}

func (o *Orchestrator) recordFailure(ctx context.Context, workflow string, actor Actor, err error) {
	kind := apperr.Kind(err)
	if kind == nil {
		util.WorkflowsTotal.WithLabelValues(workflow, "error").Inc()
		o.log(ctx).Error("Workflow failed",
			zap.String("workflow", workflow),
			zap.String("tenant_id", actor.TenantID),
			zap.Error(err))
		return
	}
	util.WorkflowsTotal.WithLabelValues(workflow, resultLabel(kind)).Inc()
	o.log(ctx).Warn("Workflow rejected",
		zap.String("workflow", workflow),
		zap.String("tenant_id", actor.TenantID),
		zap.Error(err))
}

// log returns the request-scoped logger when the caller attached one
func (o *Orchestrator) log(ctx context.Context) *zap.Logger {
	return util.LoggerFromContext(ctx, o.logger)
}

func resultLabel(kind error) string {
	switch {
	case errors.Is(kind, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(kind, apperr.ErrValidation):
		return "validation"
	case errors.Is(kind, apperr.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(kind, apperr.ErrAlreadyProcessed):
		return "already_processed"
	case errors.Is(kind, apperr.ErrOwnershipMismatch):
		return "ownership_mismatch"
	case errors.Is(kind, apperr.ErrReversalConflict):
		return "reversal_conflict"
	}
	return "error"
}

func (o *Orchestrator) notify(ctx context.Context, tenantID string, tables []string) {
	if len(tables) == 0 {
		return
	}
	if err := o.notifier.NotifyChanged(ctx, tenantID, tables...); err != nil {
		o.log(ctx).Error("Failed to notify subscribers",
			zap.String("tenant_id", tenantID),
			zap.Strings("tables", tables),
			zap.Error(err))
	}
}

// loadSettings returns the tenant's settings, filled in from the defaults
// where the tenant has not configured a value.
func (o *Orchestrator) loadSettings(ctx context.Context, tx store.Tx) (*models.TenantSettings, error) {
	settings, err := tx.FindSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = &models.TenantSettings{}
	}
	if settings.Currency == "" {
		settings.Currency = o.defaults.Currency
	}
	if settings.DefaultDueDays <= 0 {
		settings.DefaultDueDays = o.defaults.DefaultDueDays
	}
	settings.InvoicePrefix = sequence.Prefix(settings, sequence.KindInvoice)
	settings.QuotationPrefix = sequence.Prefix(settings, sequence.KindQuotation)
	settings.ReturnPrefix = sequence.Prefix(settings, sequence.KindReturn)
	settings.RepairPrefix = sequence.Prefix(settings, sequence.KindRepair)
	return settings, nil
}

// activity appends an audit entry for the current workflow
func (o *Orchestrator) activity(ctx context.Context, u *unit, action, entity string, entityID int64, summary string) error {
	entry := &models.ActivityEntry{
		ActorID:  u.actor.UserID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Summary:  summary,
	}
	if err := u.tx.InsertActivity(ctx, entry); err != nil {
		return err
	}
	u.touch(models.TableActivityLog)
	return nil
}

// record writes a ledger entry and marks the money collections changed
func (o *Orchestrator) record(ctx context.Context, u *unit, e ledger.Entry) (*models.Transaction, error) {
	t, err := o.money.Record(ctx, u.tx, e)
	if err != nil {
		return nil, err
	}
	if t != nil {
		u.touch(models.TableTransactions, models.TableCustomers)
	}
	return t, nil
}

func (o *Orchestrator) reverseAll(ctx context.Context, u *unit, filter models.TransactionFilter) error {
	removed, err := o.money.ReverseAll(ctx, u.tx, filter)
	if err != nil {
		return err
	}
	if len(removed) > 0 {
		u.touch(models.TableTransactions, models.TableCustomers)
	}
	return nil
}

func (o *Orchestrator) restock(ctx context.Context, u *unit, req inventory.RestockRequest) error {
	if _, err := o.stock.Restock(ctx, u.tx, req); err != nil {
		return err
	}
	u.touch(models.TableInventory, models.TableProducts)
	return nil
}

func (o *Orchestrator) deductLine(ctx context.Context, u *unit, line *models.LineItem, link inventory.Link) ([]models.StockAllocation, error) {
	allocs, err := o.stock.DeductLine(ctx, u.tx, line, link)
	if err != nil {
		return nil, err
	}
	if len(allocs) > 0 {
		u.touch(models.TableInventory, models.TableProducts)
	}
	return allocs, nil
}

func (o *Orchestrator) nextNumber(ctx context.Context, u *unit, kind sequence.Kind) (string, error) {
	return sequence.Next(ctx, u.tx, u.settings, kind)
}

func int64Ptr(v int64) *int64 {
	return &v
}
