package memstore

import "backoffice-service/internal/models"

func cloneInt64Ptr(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneProduct(p models.Product) models.Product {
	if p.Components != nil {
		p.Components = append([]models.BundleComponent(nil), p.Components...)
	}
	return p
}

func cloneLot(lot models.InventoryLot) models.InventoryLot {
	lot.SourceID = cloneInt64Ptr(lot.SourceID)
	return lot
}

func cloneAllocation(a models.StockAllocation) models.StockAllocation {
	a.SaleItemID = cloneInt64Ptr(a.SaleItemID)
	a.RepairID = cloneInt64Ptr(a.RepairID)
	a.DamagedStockID = cloneInt64Ptr(a.DamagedStockID)
	return a
}

func cloneTransaction(t models.Transaction) models.Transaction {
	t.InvoiceID = cloneInt64Ptr(t.InvoiceID)
	t.ReturnID = cloneInt64Ptr(t.ReturnID)
	t.RepairID = cloneInt64Ptr(t.RepairID)
	return t
}

func cloneSaleItem(item models.SaleItem) models.SaleItem {
	item.ProductID = cloneInt64Ptr(item.ProductID)
	return item
}

func cloneInvoice(inv models.Invoice) models.Invoice {
	inv.LineItems = inv.LineItems.Clone()
	return inv
}

func cloneQuotation(q models.Quotation) models.Quotation {
	q.LineItems = q.LineItems.Clone()
	q.ConvertedInvoiceID = cloneInt64Ptr(q.ConvertedInvoiceID)
	return q
}

func cloneReturn(r models.Return) models.Return {
	if r.Items != nil {
		items := make([]models.ReturnItem, len(r.Items))
		for i, item := range r.Items {
			item.ProductID = cloneInt64Ptr(item.ProductID)
			items[i] = item
		}
		r.Items = items
	}
	if r.Expenses != nil {
		r.Expenses = append([]models.ReturnExpense(nil), r.Expenses...)
	}
	return r
}

func cloneRepair(r models.Repair) models.Repair {
	r.CustomerID = cloneInt64Ptr(r.CustomerID)
	r.ProductID = cloneInt64Ptr(r.ProductID)
	r.SaleItemID = cloneInt64Ptr(r.SaleItemID)
	r.DamagedStockID = cloneInt64Ptr(r.DamagedStockID)
	r.InvoiceID = cloneInt64Ptr(r.InvoiceID)
	if r.Items != nil {
		r.Items = append([]models.RepairItem(nil), r.Items...)
	}
	return r
}
