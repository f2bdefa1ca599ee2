package memstore

import (
	"context"
	"sort"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/models"

	"github.com/shopspring/decimal"
)

type tx struct {
	store    *Store
	tenantID string
	st       *state
}

func (t *tx) TenantID() string {
	return t.tenantID
}

func (t *tx) InsertProduct(_ context.Context, p *models.Product) error {
	p.ID = t.store.newID()
	p.CreatedAt = t.store.now()
	for i := range p.Components {
		p.Components[i].BundleID = p.ID
		p.Components[i].Position = i
		if sub, ok := t.st.products[p.Components[i].SubProductID]; ok {
			p.Components[i].SubName = sub.Name
			p.Components[i].SubSKU = sub.SKU
		}
	}
	t.st.products[p.ID] = cloneProduct(*p)
	return nil
}

func (t *tx) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return nil, apperr.NotFound("product", id)
	}
	out := cloneProduct(p)
	return &out, nil
}

func (t *tx) InsertCustomer(_ context.Context, c *models.Customer) error {
	c.ID = t.store.newID()
	c.CreatedAt = t.store.now()
	t.st.customers[c.ID] = *c
	return nil
}

func (t *tx) GetCustomer(_ context.Context, id int64) (*models.Customer, error) {
	c, ok := t.st.customers[id]
	if !ok {
		return nil, apperr.NotFound("customer", id)
	}
	return &c, nil
}

func (t *tx) AdjustCustomerBalance(_ context.Context, id int64, delta decimal.Decimal) error {
	c, ok := t.st.customers[id]
	if !ok {
		return apperr.NotFound("customer", id)
	}
	c.Balance = c.Balance.Add(delta)
	t.st.customers[id] = c
	return nil
}

func (t *tx) ListOpenLots(_ context.Context, productID int64) ([]models.InventoryLot, error) {
	lots := make([]models.InventoryLot, 0)
	for _, lot := range t.st.lots {
		if lot.ProductID == productID && lot.QuantityRemaining > 0 {
			lots = append(lots, cloneLot(lot))
		}
	}
	sort.Slice(lots, func(i, j int) bool {
		if !lots[i].PurchaseDate.Equal(lots[j].PurchaseDate) {
			return lots[i].PurchaseDate.Before(lots[j].PurchaseDate)
		}
		return lots[i].ID < lots[j].ID
	})
	return lots, nil
}

func (t *tx) ListLotsBySource(_ context.Context, sourceType string, sourceID int64) ([]models.InventoryLot, error) {
	lots := make([]models.InventoryLot, 0)
	for _, lot := range t.st.lots {
		if lot.SourceType == sourceType && lot.SourceID != nil && *lot.SourceID == sourceID {
			lots = append(lots, cloneLot(lot))
		}
	}
	sort.Slice(lots, func(i, j int) bool { return lots[i].ID < lots[j].ID })
	return lots, nil
}

func (t *tx) InsertLot(_ context.Context, lot *models.InventoryLot) error {
	lot.ID = t.store.newID()
	lot.CreatedAt = t.store.now()
	if lot.PurchaseDate.IsZero() {
		lot.PurchaseDate = lot.CreatedAt
	}
	t.st.lots[lot.ID] = cloneLot(*lot)
	return nil
}

func (t *tx) SetLotRemaining(_ context.Context, lotID int64, remaining int) error {
	lot, ok := t.st.lots[lotID]
	if !ok {
		return apperr.NotFound("inventory lot", lotID)
	}
	if remaining < 0 || remaining > lot.QuantityPurchased {
		return apperr.Validation("lot %d remaining %d outside [0, %d]", lotID, remaining, lot.QuantityPurchased)
	}
	lot.QuantityRemaining = remaining
	t.st.lots[lotID] = lot
	return nil
}

func (t *tx) InsertAllocation(_ context.Context, a *models.StockAllocation) error {
	a.ID = t.store.newID()
	a.CreatedAt = t.store.now()
	t.st.allocations[a.ID] = cloneAllocation(*a)
	return nil
}

func (t *tx) ListAllocationsBySaleItem(_ context.Context, saleItemID int64) ([]models.StockAllocation, error) {
	out := make([]models.StockAllocation, 0)
	for _, a := range t.st.allocations {
		if a.SaleItemID != nil && *a.SaleItemID == saleItemID {
			out = append(out, cloneAllocation(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) NextSequence(_ context.Context, kind string) (int64, error) {
	t.st.counters[kind]++
	return t.st.counters[kind], nil
}

func (t *tx) FindSettings(_ context.Context) (*models.TenantSettings, error) {
	if t.st.settings == nil {
		return nil, nil
	}
	s := *t.st.settings
	return &s, nil
}

func (t *tx) SaveSettings(_ context.Context, s *models.TenantSettings) error {
	settings := *s
	t.st.settings = &settings
	return nil
}

func (t *tx) InsertTransaction(_ context.Context, tr *models.Transaction) error {
	tr.ID = t.store.newID()
	tr.CreatedAt = t.store.now()
	t.st.transactions[tr.ID] = cloneTransaction(*tr)
	return nil
}

func (t *tx) ListTransactions(_ context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	out := make([]models.Transaction, 0)
	for _, tr := range t.st.transactions {
		if matchesFilter(tr, filter) {
			out = append(out, cloneTransaction(tr))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func matchesFilter(tr models.Transaction, f models.TransactionFilter) bool {
	switch {
	case f.InvoiceID != nil:
		return tr.InvoiceID != nil && *tr.InvoiceID == *f.InvoiceID
	case f.ReturnID != nil:
		return tr.ReturnID != nil && *tr.ReturnID == *f.ReturnID
	case f.RepairID != nil:
		return tr.RepairID != nil && *tr.RepairID == *f.RepairID
	}
	return false
}

func (t *tx) DeleteTransaction(_ context.Context, id int64) error {
	if _, ok := t.st.transactions[id]; !ok {
		return apperr.NotFound("transaction", id)
	}
	delete(t.st.transactions, id)
	return nil
}

func (t *tx) InsertSale(_ context.Context, s *models.Sale) error {
	s.ID = t.store.newID()
	s.CreatedAt = t.store.now()
	for i := range s.Items {
		s.Items[i].ID = t.store.newID()
		s.Items[i].SaleID = s.ID
		t.st.saleItems[s.Items[i].ID] = cloneSaleItem(s.Items[i])
	}
	header := *s
	header.Items = nil
	t.st.sales[s.ID] = header
	return nil
}

func (t *tx) GetSale(_ context.Context, id int64) (*models.Sale, error) {
	s, ok := t.st.sales[id]
	if !ok {
		return nil, apperr.NotFound("sale", id)
	}
	s.Items = t.saleItemsOf(s.ID)
	return &s, nil
}

func (t *tx) GetSaleByInvoice(_ context.Context, invoiceID int64) (*models.Sale, error) {
	for _, s := range t.st.sales {
		if s.InvoiceID == invoiceID {
			s.Items = t.saleItemsOf(s.ID)
			return &s, nil
		}
	}
	return nil, apperr.NotFound("sale for invoice", invoiceID)
}

func (t *tx) saleItemsOf(saleID int64) []models.SaleItem {
	items := make([]models.SaleItem, 0)
	for _, item := range t.st.saleItems {
		if item.SaleID == saleID {
			items = append(items, cloneSaleItem(item))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (t *tx) GetSaleItem(_ context.Context, id int64) (*models.SaleItem, error) {
	item, ok := t.st.saleItems[id]
	if !ok {
		return nil, apperr.NotFound("sale item", id)
	}
	out := cloneSaleItem(item)
	return &out, nil
}

func (t *tx) UpdateSaleItem(_ context.Context, item *models.SaleItem) error {
	if _, ok := t.st.saleItems[item.ID]; !ok {
		return apperr.NotFound("sale item", item.ID)
	}
	t.st.saleItems[item.ID] = cloneSaleItem(*item)
	return nil
}

func (t *tx) DeleteSale(_ context.Context, id int64) error {
	if _, ok := t.st.sales[id]; !ok {
		return apperr.NotFound("sale", id)
	}
	deleted := make(map[int64]bool)
	for itemID, item := range t.st.saleItems {
		if item.SaleID == id {
			deleted[itemID] = true
			delete(t.st.saleItems, itemID)
		}
	}
	// repairs keep their record when the sold item goes (ON DELETE SET NULL)
	for repairID, r := range t.st.repairs {
		if r.SaleItemID != nil && deleted[*r.SaleItemID] {
			r.SaleItemID = nil
			t.st.repairs[repairID] = r
		}
	}
	delete(t.st.sales, id)
	return nil
}

func (t *tx) InsertInvoice(_ context.Context, inv *models.Invoice) error {
	inv.ID = t.store.newID()
	inv.CreatedAt = t.store.now()
	t.st.invoices[inv.ID] = cloneInvoice(*inv)
	return nil
}

func (t *tx) GetInvoice(_ context.Context, id int64) (*models.Invoice, error) {
	inv, ok := t.st.invoices[id]
	if !ok {
		return nil, apperr.NotFound("invoice", id)
	}
	out := cloneInvoice(inv)
	return &out, nil
}

func (t *tx) UpdateInvoice(_ context.Context, inv *models.Invoice) error {
	if _, ok := t.st.invoices[inv.ID]; !ok {
		return apperr.NotFound("invoice", inv.ID)
	}
	t.st.invoices[inv.ID] = cloneInvoice(*inv)
	return nil
}

func (t *tx) DeleteInvoice(_ context.Context, id int64) error {
	if _, ok := t.st.invoices[id]; !ok {
		return apperr.NotFound("invoice", id)
	}
	delete(t.st.invoices, id)
	return nil
}

func (t *tx) InsertQuotation(_ context.Context, q *models.Quotation) error {
	q.ID = t.store.newID()
	q.CreatedAt = t.store.now()
	t.st.quotations[q.ID] = cloneQuotation(*q)
	return nil
}

func (t *tx) GetQuotation(_ context.Context, id int64) (*models.Quotation, error) {
	q, ok := t.st.quotations[id]
	if !ok {
		return nil, apperr.NotFound("quotation", id)
	}
	out := cloneQuotation(q)
	return &out, nil
}

func (t *tx) FindQuotationByInvoice(_ context.Context, invoiceID int64) (*models.Quotation, error) {
	for _, q := range t.st.quotations {
		if q.ConvertedInvoiceID != nil && *q.ConvertedInvoiceID == invoiceID {
			out := cloneQuotation(q)
			return &out, nil
		}
	}
	return nil, nil
}

func (t *tx) UpdateQuotation(_ context.Context, q *models.Quotation) error {
	if _, ok := t.st.quotations[q.ID]; !ok {
		return apperr.NotFound("quotation", q.ID)
	}
	t.st.quotations[q.ID] = cloneQuotation(*q)
	return nil
}

func (t *tx) DeleteQuotation(_ context.Context, id int64) error {
	if _, ok := t.st.quotations[id]; !ok {
		return apperr.NotFound("quotation", id)
	}
	delete(t.st.quotations, id)
	return nil
}

func (t *tx) InsertReturn(_ context.Context, r *models.Return) error {
	r.ID = t.store.newID()
	r.CreatedAt = t.store.now()
	for i := range r.Items {
		r.Items[i].ID = t.store.newID()
		r.Items[i].ReturnID = r.ID
	}
	for i := range r.Expenses {
		r.Expenses[i].ID = t.store.newID()
		r.Expenses[i].ReturnID = r.ID
	}
	t.st.returns[r.ID] = cloneReturn(*r)
	return nil
}

func (t *tx) GetReturn(_ context.Context, id int64) (*models.Return, error) {
	r, ok := t.st.returns[id]
	if !ok {
		return nil, apperr.NotFound("return", id)
	}
	out := cloneReturn(r)
	return &out, nil
}

func (t *tx) ListReturnsByInvoice(_ context.Context, invoiceID int64) ([]models.Return, error) {
	out := make([]models.Return, 0)
	for _, r := range t.st.returns {
		if r.InvoiceID == invoiceID {
			out = append(out, cloneReturn(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) DeleteReturn(_ context.Context, id int64) error {
	if _, ok := t.st.returns[id]; !ok {
		return apperr.NotFound("return", id)
	}
	delete(t.st.returns, id)
	return nil
}

func (t *tx) InsertRepair(_ context.Context, r *models.Repair) error {
	r.ID = t.store.newID()
	r.CreatedAt = t.store.now()
	r.UpdatedAt = r.CreatedAt
	for i := range r.Items {
		r.Items[i].ID = t.store.newID()
		r.Items[i].RepairID = r.ID
	}
	t.st.repairs[r.ID] = cloneRepair(*r)
	return nil
}

func (t *tx) GetRepair(_ context.Context, id int64) (*models.Repair, error) {
	r, ok := t.st.repairs[id]
	if !ok {
		return nil, apperr.NotFound("repair", id)
	}
	out := cloneRepair(r)
	return &out, nil
}

func (t *tx) FindRepairByInvoice(_ context.Context, invoiceID int64) (*models.Repair, error) {
	for _, r := range t.st.repairs {
		if r.InvoiceID != nil && *r.InvoiceID == invoiceID {
			out := cloneRepair(r)
			return &out, nil
		}
	}
	return nil, nil
}

func (t *tx) UpdateRepair(_ context.Context, r *models.Repair) error {
	existing, ok := t.st.repairs[r.ID]
	if !ok {
		return apperr.NotFound("repair", r.ID)
	}
	r.UpdatedAt = t.store.now()
	updated := cloneRepair(*r)
	updated.Items = cloneRepair(existing).Items
	t.st.repairs[r.ID] = updated
	return nil
}

func (t *tx) InsertDamagedStock(_ context.Context, d *models.DamagedStockEntry) error {
	d.ID = t.store.newID()
	d.CreatedAt = t.store.now()
	t.st.damaged[d.ID] = *d
	return nil
}

func (t *tx) GetDamagedStock(_ context.Context, id int64) (*models.DamagedStockEntry, error) {
	d, ok := t.st.damaged[id]
	if !ok {
		return nil, apperr.NotFound("damaged stock entry", id)
	}
	return &d, nil
}

func (t *tx) SetDamagedStockStatus(_ context.Context, id int64, status string) error {
	d, ok := t.st.damaged[id]
	if !ok {
		return apperr.NotFound("damaged stock entry", id)
	}
	d.Status = status
	t.st.damaged[id] = d
	return nil
}

func (t *tx) InsertActivity(_ context.Context, e *models.ActivityEntry) error {
	e.ID = t.store.newID()
	e.CreatedAt = t.store.now()
	t.st.activity = append(t.st.activity, *e)
	return nil
}
