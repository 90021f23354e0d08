// Package payments wraps the M-Pesa payment endpoints.
package payments

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

const kenyaPrefix = "+254"

// ServiceParams groups dependencies for the payment client.
type ServiceParams struct {
	API *apiclient.Client
}

// Service starts STK pushes and reads payment state.
type Service interface {
	Initiate(ctx context.Context, orderID, phoneNumber string) (*Initiation, error)
	CheckStatus(ctx context.Context, checkoutRequestID string) (*Payment, error)
	List(ctx context.Context, filters ListFilters) (*PaymentList, error)
	Get(ctx context.Context, id string) (*Payment, error)
	ListByOrder(ctx context.Context, orderID string) ([]Payment, error)
	ListByUser(ctx context.Context, userID string) ([]Payment, error)
	Statistics(ctx context.Context) (*Statistics, error)
	Cancel(ctx context.Context, id string) (*Payment, error)
}

type service struct {
	api *apiclient.Client
}

// NewService builds the payment client.
func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "api client is required")
	}
	return &service{api: params.API}, nil
}

// FormatPhoneNumber normalizes a Kenyan number to +254 form. Digit counts are not checked.
func FormatPhoneNumber(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '-':
			return -1
		}
		return r
	}, raw)

	switch {
	case strings.HasPrefix(cleaned, "0"):
		return kenyaPrefix + cleaned[1:]
	case strings.HasPrefix(cleaned, "254"):
		return "+" + cleaned
	case !strings.HasPrefix(cleaned, "+"):
		return kenyaPrefix + cleaned
	}
	return cleaned
}

// Initiate sends the STK push for an order. The phone number is normalized first.
func (s *service) Initiate(ctx context.Context, orderID, phoneNumber string) (*Initiation, error) {
	req := initiateRequest{OrderID: strings.TrimSpace(orderID), PhoneNumber: strings.TrimSpace(phoneNumber)}
	if err := validators.Struct(req); err != nil {
		return nil, err
	}
	req.PhoneNumber = FormatPhoneNumber(req.PhoneNumber)

	var resp initiateResponse
	if err := s.api.Post(ctx, "/payments/initiate", req, &resp); err != nil {
		return nil, err
	}
	id := resp.CheckoutRequestID
	if id == "" {
		id = resp.CheckoutRequestIDSnake
	}
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment initiation returned no checkout request id")
	}
	return &Initiation{CheckoutRequestID: id, Message: resp.Message}, nil
}

// CheckStatus reads the current state of one STK push.
func (s *service) CheckStatus(ctx context.Context, checkoutRequestID string) (*Payment, error) {
	if strings.TrimSpace(checkoutRequestID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout request id is required")
	}
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/payments/status/"+url.PathEscape(checkoutRequestID), nil, &raw); err != nil {
		return nil, err
	}
	return decodePayment(raw)
}

func (s *service) List(ctx context.Context, filters ListFilters) (*PaymentList, error) {
	query := filters.Params.Apply(url.Values{})
	if status := strings.TrimSpace(filters.Status); status != "" {
		query.Set("status", status)
	}
	var out PaymentList
	if err := s.api.Get(ctx, "/payments", query, &out); err != nil {
		return nil, err
	}
	if out.Payments == nil {
		out.Payments = []Payment{}
	}
	return &out, nil
}

func (s *service) Get(ctx context.Context, id string) (*Payment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/payments/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, err
	}
	return decodePayment(raw)
}

func (s *service) ListByOrder(ctx context.Context, orderID string) ([]Payment, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return s.listAt(ctx, "/payments/order/"+url.PathEscape(orderID))
}

func (s *service) ListByUser(ctx context.Context, userID string) ([]Payment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.listAt(ctx, "/payments/user/"+url.PathEscape(userID))
}

func (s *service) Statistics(ctx context.Context) (*Statistics, error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/payments/statistics/all", nil, &raw); err != nil {
		return nil, err
	}
	stats, err := types.Unwrap[Statistics](raw, "statistics")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment statistics")
	}
	return &stats, nil
}

func (s *service) Cancel(ctx context.Context, id string) (*Payment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	var raw json.RawMessage
	if err := s.api.Patch(ctx, "/payments/"+url.PathEscape(id)+"/cancel", nil, &raw); err != nil {
		return nil, err
	}
	return decodePayment(raw)
}

func (s *service) listAt(ctx context.Context, path string) ([]Payment, error) {
	var out struct {
		Payments []Payment `json:"payments"`
	}
	if err := s.api.Get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Payments == nil {
		return []Payment{}, nil
	}
	return out.Payments, nil
}

func decodePayment(raw json.RawMessage) (*Payment, error) {
	payment, err := types.Unwrap[Payment](raw, "payment")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment response")
	}
	return &payment, nil
}
