package products

import (
	"time"

	"github.com/angelmondragon/raamul-storefront/internal/cart"
	"github.com/angelmondragon/raamul-storefront/pkg/pagination"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
)

// Product is a catalogue entry as returned by the API.
type Product struct {
	ID             types.ID                       `json:"id"`
	SKU            string                         `json:"sku,omitempty"`
	Name           string                         `json:"name"`
	Description    string                         `json:"description,omitempty"`
	Category       string                         `json:"category,omitempty"`
	Brand          string                         `json:"brand,omitempty"`
	Unit           string                         `json:"unit,omitempty"`
	Purity         string                         `json:"purity,omitempty"`
	Badge          string                         `json:"badge,omitempty"`
	Status         string                         `json:"status,omitempty"`
	Price          types.Money                    `json:"price"`
	OriginalPrice  *types.Money                   `json:"original_price,omitempty"`
	StockQuantity  int                            `json:"stock_quantity"`
	ImageURL       string                         `json:"image_url,omitempty"`
	Images         types.Embedded[[]string]       `json:"images"`
	Specifications types.Embedded[map[string]any] `json:"specifications"`
	CreatedAt      *time.Time                     `json:"created_at,omitempty"`
	UpdatedAt      *time.Time                     `json:"updated_at,omitempty"`
}

// InStock reports whether any units are available.
func (p Product) InStock() bool {
	return p.StockQuantity > 0
}

// PrimaryImage returns image_url, falling back to the first gallery image.
func (p Product) PrimaryImage() string {
	if p.ImageURL != "" {
		return p.ImageURL
	}
	if images, ok := p.Images.Get(); ok && len(images) > 0 {
		return images[0]
	}
	return ""
}

// CartItem projects the product onto the fields a cart line keeps.
func (p Product) CartItem() cart.Item {
	return cart.Item{
		ProductID: p.ID,
		SKU:       p.SKU,
		Name:      p.Name,
		Price:     p.Price,
		Unit:      p.Unit,
		Image:     p.PrimaryImage(),
	}
}

// ListFilters are the query parameters accepted by GET /products.
type ListFilters struct {
	pagination.Params
	Search   string
	Category string
	Brand    string
	Status   string
}

// ProductList is a page of products.
type ProductList struct {
	Products   []Product       `json:"products"`
	Pagination pagination.Page `json:"pagination"`
}

// ProductInput is the admin create/update payload.
type ProductInput struct {
	Name          string       `json:"name" validate:"required"`
	SKU           string       `json:"sku,omitempty"`
	Description   string       `json:"description,omitempty"`
	Category      string       `json:"category,omitempty"`
	Brand         string       `json:"brand,omitempty"`
	Unit          string       `json:"unit,omitempty"`
	Purity        string       `json:"purity,omitempty"`
	Price         types.Money  `json:"price"`
	OriginalPrice *types.Money `json:"original_price,omitempty"`
	StockQuantity int          `json:"stock_quantity" validate:"min=0"`
	ImageURL      string       `json:"image_url,omitempty"`
	Images        []string     `json:"images,omitempty"`
	Status        string       `json:"status,omitempty"`
}
