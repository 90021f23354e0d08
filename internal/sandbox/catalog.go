package sandbox

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/raamul-storefront/internal/products"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/pagination"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
)

const productStatusActive = "active"

// ListProducts filters and pages the catalogue.
func (b *Backend) ListProducts(_ context.Context, filters products.ListFilters) products.ProductList {
	b.mu.Lock()
	defer b.mu.Unlock()
	matched := []products.Product{}
	for _, p := range b.products {
		if filters.Search != "" && !containsFold(p.Name, filters.Search) && !containsFold(p.Description, filters.Search) {
			continue
		}
		if filters.Category != "" && !strings.EqualFold(p.Category, filters.Category) {
			continue
		}
		if filters.Brand != "" && !strings.EqualFold(p.Brand, filters.Brand) {
			continue
		}
		if filters.Status != "" && p.Status != filters.Status {
			continue
		}
		matched = append(matched, p)
	}
	start, end, page := pagination.Window(filters.Params, len(matched))
	return products.ProductList{Products: matched[start:end], Pagination: page}
}

func (b *Backend) Product(_ context.Context, id string) (*products.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.productIndexLocked(id); i >= 0 {
		p := b.products[i]
		return &p, nil
	}
	return nil, notFound("Product not found")
}

func (b *Backend) ProductBySKU(_ context.Context, sku string) (*products.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.products {
		if p.SKU != "" && strings.EqualFold(p.SKU, sku) {
			return &p, nil
		}
	}
	return nil, notFound("Product not found")
}

func (b *Backend) CreateProduct(ctx context.Context, input products.ProductInput) (*products.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if input.SKU != "" {
		for _, p := range b.products {
			if strings.EqualFold(p.SKU, input.SKU) {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "Product with this SKU already exists")
			}
		}
	}
	ts := b.timestamp()
	p := products.Product{ID: types.ID(b.nextIDLocked("product")), CreatedAt: &ts}
	applyProductInput(&p, input, ts)
	b.products = append(b.products, p)
	b.logAction(ctx, map[string]any{"product_id": p.ID.String()}, "sandbox.product_created")
	return &p, nil
}

func (b *Backend) UpdateProduct(_ context.Context, id string, input products.ProductInput) (*products.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.productIndexLocked(id)
	if i < 0 {
		return nil, notFound("Product not found")
	}
	applyProductInput(&b.products[i], input, b.timestamp())
	p := b.products[i]
	return &p, nil
}

func (b *Backend) DeleteProduct(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.productIndexLocked(id)
	if i < 0 {
		return notFound("Product not found")
	}
	b.products = append(b.products[:i], b.products[i+1:]...)
	return nil
}

func (b *Backend) productIndexLocked(id string) int {
	for i, p := range b.products {
		if p.ID.String() == id {
			return i
		}
	}
	return -1
}

func applyProductInput(p *products.Product, input products.ProductInput, ts time.Time) {
	p.Name = strings.TrimSpace(input.Name)
	p.SKU = input.SKU
	p.Description = input.Description
	p.Category = input.Category
	p.Brand = input.Brand
	p.Unit = input.Unit
	p.Purity = input.Purity
	p.Price = input.Price
	p.OriginalPrice = input.OriginalPrice
	p.StockQuantity = input.StockQuantity
	p.ImageURL = input.ImageURL
	if len(input.Images) > 0 {
		p.Images = types.Embed(append([]string(nil), input.Images...))
	}
	p.Status = input.Status
	if p.Status == "" {
		p.Status = productStatusActive
	}
	p.UpdatedAt = &ts
}
