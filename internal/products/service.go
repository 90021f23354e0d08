package products

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/angelmondragon/raamul-storefront/pkg/apiclient"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
	"github.com/angelmondragon/raamul-storefront/pkg/validators"
)

// AllCategories is the catch-all entry prepended by Categories.
const AllCategories = "All"

// ServiceParams groups dependencies for the product client.
type ServiceParams struct {
	API *apiclient.Client
}

// Service reads and manages the product catalogue. Writes require an admin session.
type Service interface {
	List(ctx context.Context, filters ListFilters) (*ProductList, error)
	Get(ctx context.Context, id string) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	Create(ctx context.Context, input ProductInput) (*Product, error)
	Update(ctx context.Context, id string, input ProductInput) (*Product, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	api *apiclient.Client
}

// NewService builds the product client.
func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "api client is required")
	}
	return &service{api: params.API}, nil
}

func (s *service) List(ctx context.Context, filters ListFilters) (*ProductList, error) {
	query := filters.Params.Apply(url.Values{})
	setIfPresent(query, "search", filters.Search)
	setIfPresent(query, "category", filters.Category)
	setIfPresent(query, "brand", filters.Brand)
	setIfPresent(query, "status", filters.Status)

	var out ProductList
	if err := s.api.Get(ctx, "/products", query, &out); err != nil {
		return nil, err
	}
	if out.Products == nil {
		out.Products = []Product{}
	}
	return &out, nil
}

func (s *service) Get(ctx context.Context, id string) (*Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/products/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, err
	}
	return decodeProduct(raw)
}

func (s *service) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	if strings.TrimSpace(sku) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/products/sku/"+url.PathEscape(sku), nil, &raw); err != nil {
		return nil, err
	}
	return decodeProduct(raw)
}

func (s *service) Create(ctx context.Context, input ProductInput) (*Product, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := s.api.Post(ctx, "/products", input, &raw); err != nil {
		return nil, err
	}
	return decodeProduct(raw)
}

func (s *service) Update(ctx context.Context, id string, input ProductInput) (*Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := s.api.Put(ctx, "/products/"+url.PathEscape(id), input, &raw); err != nil {
		return nil, err
	}
	return decodeProduct(raw)
}

func (s *service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return s.api.Delete(ctx, "/products/"+url.PathEscape(id), nil)
}

func decodeProduct(raw json.RawMessage) (*Product, error) {
	product, err := types.Unwrap[Product](raw, "product")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode product response")
	}
	if product.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product missing from response")
	}
	return &product, nil
}

func validateInput(input ProductInput) error {
	if err := validators.Struct(input); err != nil {
		return err
	}
	if input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	return nil
}

func setIfPresent(query url.Values, key, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		query.Set(key, trimmed)
	}
}

// Categories returns "All" followed by the distinct non-empty categories in first-seen order.
func Categories(products []Product) []string {
	return append([]string{AllCategories}, distinct(products, func(p Product) string { return p.Category })...)
}

// Brands returns the distinct non-empty brands in first-seen order.
func Brands(products []Product) []string {
	return distinct(products, func(p Product) string { return p.Brand })
}

func distinct(products []Product, field func(Product) string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, product := range products {
		value := field(product)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
