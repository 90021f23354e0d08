package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/raamul-storefront/pkg/apiclient"
	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
	"github.com/angelmondragon/raamul-storefront/pkg/validators"
)

const orderIDSuffixLen = 6

// ServiceParams groups dependencies for the order client.
type ServiceParams struct {
	API *apiclient.Client
}

// Service reads and writes orders. Update and Delete require an admin session.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Order, error)
	List(ctx context.Context, filters ListFilters) (*OrderList, error)
	Get(ctx context.Context, id string) (*Order, error)
	GetByOrderID(ctx context.Context, orderID string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string, filters ListFilters) (*OrderList, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Order, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	api *apiclient.Client
}

// NewService builds the order client.
func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "api client is required")
	}
	return &service{api: params.API}, nil
}

// GenerateOrderID mints ORD-<epoch millis>-<6 upper-case base36 chars>.
func GenerateOrderID() string {
	return newOrderID(time.Now(), rand.Uint64())
}

func newOrderID(now time.Time, entropy uint64) string {
	suffix := strings.ToUpper(strconv.FormatUint(entropy, 36))
	if len(suffix) < orderIDSuffixLen {
		suffix = strings.Repeat("0", orderIDSuffixLen-len(suffix)) + suffix
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix[len(suffix)-orderIDSuffixLen:])
}

// Create submits a new order. The order id doubles as the Idempotency-Key so a
// retried submission can be recognized by a backend that honours it.
func (s *service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if err := validators.Struct(req); err != nil {
		return nil, err
	}
	if expected := PricingFor(req.Items); !expected.Total.Equal(req.Pricing.Total) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pricing total must equal the sum of item subtotals").
			WithDetails(map[string]any{"expected": expected.Total.String(), "got": req.Pricing.Total.String()})
	}
	if req.OrderStatus == "" {
		req.OrderStatus = enums.OrderStatusPending
	}

	header := http.Header{}
	header.Set(apiclient.HeaderIdempotencyKey, req.OrderID)

	var raw json.RawMessage
	err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/orders",
		Body:   req,
		Header: header,
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeOrder(raw)
}

func (s *service) List(ctx context.Context, filters ListFilters) (*OrderList, error) {
	return s.list(ctx, "/orders", filters)
}

func (s *service) Get(ctx context.Context, id string) (*Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/orders/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, err
	}
	return decodeOrder(raw)
}

func (s *service) GetByOrderID(ctx context.Context, orderID string) (*Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id is required")
	}
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/orders/order-id/"+url.PathEscape(orderID), nil, &raw); err != nil {
		return nil, err
	}
	return decodeOrder(raw)
}

func (s *service) ListByCustomer(ctx context.Context, customerID string, filters ListFilters) (*OrderList, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	return s.list(ctx, "/orders/customer/"+url.PathEscape(customerID), filters)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if req.OrderStatus != "" && !req.OrderStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", req.OrderStatus))
	}
	if err := validators.Struct(req); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := s.api.Put(ctx, "/orders/"+url.PathEscape(id), req, &raw); err != nil {
		return nil, err
	}
	return decodeOrder(raw)
}

func (s *service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return s.api.Delete(ctx, "/orders/"+url.PathEscape(id), nil)
}

func (s *service) list(ctx context.Context, path string, filters ListFilters) (*OrderList, error) {
	query := filters.Params.Apply(url.Values{})
	if status := strings.TrimSpace(filters.Status); status != "" {
		query.Set("status", status)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		query.Set("search", search)
	}
	var out OrderList
	if err := s.api.Get(ctx, path, query, &out); err != nil {
		return nil, err
	}
	if out.Orders == nil {
		out.Orders = []Order{}
	}
	return &out, nil
}

func decodeOrder(raw json.RawMessage) (*Order, error) {
	order, err := types.Unwrap[Order](raw, "order")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode order response")
	}
	if order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order id missing from response")
	}
	return &order, nil
}
