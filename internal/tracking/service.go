// Package tracking reads and appends order tracking history.
package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/angelmondragon/raamul-storefront/pkg/apiclient"
	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
	"github.com/angelmondragon/raamul-storefront/pkg/validators"
)

// ServiceParams groups dependencies for the tracking client.
type ServiceParams struct {
	API    *apiclient.Client
	Logger *logger.Logger
}

// Service manages tracking entries. AddUpdate, List and Delete require an admin session.
type Service interface {
	AddUpdate(ctx context.Context, req UpdateRequest) (*Entry, error)
	GetByOrderID(ctx context.Context, orderID string) ([]Entry, error)
	GetLatest(ctx context.Context, orderID string) (*Entry, error)
	List(ctx context.Context, filters ListFilters) (*EntryList, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	api  *apiclient.Client
	logg *logger.Logger
}

// NewService builds the tracking client.
func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "api client is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{api: params.API, logg: logg}, nil
}

// AddUpdate appends a tracking entry after checking the move against the latest one.
func (s *service) AddUpdate(ctx context.Context, req UpdateRequest) (*Entry, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.Notes = validators.SanitizeString(req.Notes, 500)
	if err := validators.Struct(req); err != nil {
		return nil, err
	}
	status, err := enums.ParseOrderStatus(string(req.Status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	req.Status = status

	latest, err := s.GetLatest(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	var from enums.OrderStatus
	if latest != nil {
		from = latest.Status
	}
	if !enums.CanTransitionTracking(from, req.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", from.Label(), req.Status.Label())).
			WithDetails(map[string]any{"from": from, "to": req.Status})
	}

	ctx = s.logg.WithOrderID(ctx, req.OrderID)
	var raw json.RawMessage
	if err := s.api.Post(ctx, "/tracking", req, &raw); err != nil {
		return nil, err
	}
	entry, err := decodeEntry(raw)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "status", req.Status), "tracking update added")
	return entry, nil
}

// GetByOrderID returns the order's history ordered by creation time.
func (s *service) GetByOrderID(ctx context.Context, orderID string) ([]Entry, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var out struct {
		Tracking []Entry `json:"tracking"`
	}
	if err := s.api.Get(ctx, "/tracking/order/"+url.PathEscape(orderID), nil, &out); err != nil {
		return nil, err
	}
	return BuildTimeline(out.Tracking).Entries, nil
}

// GetLatest returns the newest entry, or nil when the order has no history.
func (s *service) GetLatest(ctx context.Context, orderID string) (*Entry, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var raw json.RawMessage
	err := s.api.Get(ctx, "/tracking/order/"+url.PathEscape(orderID)+"/latest", nil, &raw)
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry, err := types.Unwrap[Entry](raw, "tracking")
	if errors.Is(err, types.ErrEmptyBody) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode tracking response")
	}
	if entry.Status == "" {
		return nil, nil
	}
	return &entry, nil
}

func (s *service) List(ctx context.Context, filters ListFilters) (*EntryList, error) {
	query := filters.Params.Apply(url.Values{})
	if status := strings.TrimSpace(filters.Status); status != "" {
		query.Set("status", status)
	}
	var out EntryList
	if err := s.api.Get(ctx, "/tracking", query, &out); err != nil {
		return nil, err
	}
	if out.Tracking == nil {
		out.Tracking = []Entry{}
	}
	return &out, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tracking id is required")
	}
	return s.api.Delete(ctx, "/tracking/"+url.PathEscape(id), nil)
}

func decodeEntry(raw json.RawMessage) (*Entry, error) {
	entry, err := types.Unwrap[Entry](raw, "tracking")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode tracking response")
	}
	return &entry, nil
}
