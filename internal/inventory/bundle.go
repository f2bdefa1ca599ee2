package inventory

import (
	"backoffice-service/internal/models"
)

// Requirement is the total quantity of one stocked product a request needs
type Requirement struct {
	ProductID   int64
	ProductName string
	Quantity    int
}

// Expand turns document lines into per-product stock requirements. Bundle
// lines contribute their components scaled by the line quantity, custom lines
// contribute nothing, and repeated products are summed. The result keeps the
// order in which products first appear.
func Expand(lines models.LineItems) []Requirement {
	index := make(map[int64]int)
	var out []Requirement

	add := func(productID int64, name string, qty int) {
		if qty <= 0 {
			return
		}
		if i, ok := index[productID]; ok {
			out[i].Quantity += qty
			return
		}
		index[productID] = len(out)
		out = append(out, Requirement{ProductID: productID, ProductName: name, Quantity: qty})
	}

	for i := range lines {
		line := &lines[i]
		switch {
		case line.IsCustom():
			continue
		case line.IsBundle():
			for _, c := range line.Components {
				add(c.SubProductID, c.SubProductName, c.Quantity*line.Quantity)
			}
		default:
			add(*line.ProductID, line.Description, line.Quantity)
		}
	}
	return out
}

// MaxBundleQuantity is the number of whole bundles the component stock can
// build: the minimum over components of available / per-bundle quantity.
// A bundle with no components cannot be sold.
func MaxBundleQuantity(components []models.ComponentLine, available map[int64]int) int {
	if len(components) == 0 {
		return 0
	}
	max := -1
	for _, c := range components {
		if c.Quantity <= 0 {
			continue
		}
		n := available[c.SubProductID] / c.Quantity
		if max < 0 || n < max {
			max = n
		}
	}
	if max < 0 {
		return 0
	}
	return max
}

// ComponentsOf snapshots a bundle product's components for a document line.
func ComponentsOf(p *models.Product) []models.ComponentLine {
	out := make([]models.ComponentLine, 0, len(p.Components))
	for _, c := range p.Components {
		out = append(out, models.ComponentLine{
			SubProductID:   c.SubProductID,
			SubProductName: c.SubName,
			SubProductSKU:  c.SubSKU,
			Quantity:       c.Quantity,
		})
	}
	return out
}
