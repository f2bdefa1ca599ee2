package service

import (
	"context"
	"strings"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/models"
	"backoffice-service/internal/sequence"
	"backoffice-service/internal/store"
)

// CreateProduct adds a standard product or a bundle of standard products
func (o *Orchestrator) CreateProduct(ctx context.Context, actor Actor, req *CreateProductRequest) (*models.Product, error) {
	var p *models.Product
	err := o.run(ctx, actor, "create_product", func(ctx context.Context, u *unit) error {
		if strings.TrimSpace(req.SKU) == "" || strings.TrimSpace(req.Name) == "" {
			return apperr.Validation("sku and name are required")
		}
		if req.Price.IsNegative() {
			return apperr.Validation("price must not be negative")
		}
		productType := req.ProductType
		if productType == "" {
			productType = models.ProductTypeStandard
		}

		p = &models.Product{SKU: req.SKU, Name: req.Name, Price: req.Price, ProductType: productType}
		switch productType {
		case models.ProductTypeStandard:
			if len(req.Components) > 0 {
				return apperr.Validation("standard products have no components")
			}
		case models.ProductTypeBundle:
			if len(req.Components) == 0 {
				return apperr.Validation("a bundle needs at least one component")
			}
			for i, c := range req.Components {
				if c.Quantity <= 0 {
					return apperr.Validation("component %d: quantity must be positive", i+1)
				}
				sub, err := u.tx.GetProduct(ctx, c.SubProductID)
				if err != nil {
					return err
				}
				if sub.IsBundle() {
					return apperr.Validation("component %d: bundle %q cannot be nested", i+1, sub.Name)
				}
				p.Components = append(p.Components, models.BundleComponent{
					SubProductID: sub.ID,
					Quantity:     c.Quantity,
					SubName:      sub.Name,
					SubSKU:       sub.SKU,
				})
			}
		default:
			return apperr.Validation("unknown product type %q", productType)
		}

		if err := u.tx.InsertProduct(ctx, p); err != nil {
			return err
		}
		u.touch(models.TableProducts)
		return o.activity(ctx, u, "create", "product", p.ID, "Created product "+p.SKU)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateCustomer adds a customer with a zero balance
func (o *Orchestrator) CreateCustomer(ctx context.Context, actor Actor, name string) (*models.Customer, error) {
	var c *models.Customer
	err := o.run(ctx, actor, "create_customer", func(ctx context.Context, u *unit) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return apperr.Validation("customer name is required")
		}
		c = &models.Customer{Name: name}
		if err := u.tx.InsertCustomer(ctx, c); err != nil {
			return err
		}
		u.touch(models.TableCustomers)
		return o.activity(ctx, u, "create", "customer", c.ID, "Created customer "+name)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCustomer loads a customer with the cached balance
func (o *Orchestrator) GetCustomer(ctx context.Context, actor Actor, customerID int64) (*models.Customer, error) {
	var c *models.Customer
	err := o.store.WithTx(ctx, actor.TenantID, func(tx store.Tx) error {
		var err error
		c, err = tx.GetCustomer(ctx, customerID)
		return err
	})
	return c, err
}

// SaveSettings stores the tenant's defaults and document prefixes
func (o *Orchestrator) SaveSettings(ctx context.Context, actor Actor, settings *models.TenantSettings) (*models.TenantSettings, error) {
	err := o.run(ctx, actor, "save_settings", func(ctx context.Context, u *unit) error {
		if settings.DefaultDueDays < 0 {
			return apperr.Validation("default due days must not be negative")
		}
		for _, kind := range []sequence.Kind{sequence.KindInvoice, sequence.KindQuotation, sequence.KindReturn, sequence.KindRepair} {
			if strings.ContainsAny(sequence.Prefix(settings, kind), " \t\n") {
				return apperr.Validation("%s prefix must not contain whitespace", kind)
			}
		}
		return u.tx.SaveSettings(ctx, settings)
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}
