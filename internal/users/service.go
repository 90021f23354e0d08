// Package users wraps the profile and account administration endpoints.
package users

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/angelmondragon/raamul-storefront/pkg/apiclient"
	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
	"github.com/angelmondragon/raamul-storefront/pkg/validators"
)

// ServiceParams groups dependencies for the user client.
type ServiceParams struct {
	API *apiclient.Client
}

// Service exposes profile reads and admin account management. Delete requires a super admin.
type Service interface {
	Profile(ctx context.Context) (*User, error)
	Get(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error)
	List(ctx context.Context, filters ListFilters) (*UserList, error)
	Stats(ctx context.Context) (*Stats, error)
	Create(ctx context.Context, req CreateRequest) (*User, error)
	ChangeStatus(ctx context.Context, id string, status enums.UserStatus) (*User, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	api *apiclient.Client
}

// NewService builds the user client.
func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "api client is required")
	}
	return &service{api: params.API}, nil
}

func (s *service) Profile(ctx context.Context) (*User, error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/users/profile", nil, &raw); err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

func (s *service) Get(ctx context.Context, id string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/users/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

func (s *service) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	update.Email = strings.TrimSpace(update.Email)
	if err := validators.Struct(update); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := s.api.Put(ctx, "/users/"+url.PathEscape(id), update, &raw); err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

func (s *service) List(ctx context.Context, filters ListFilters) (*UserList, error) {
	query := filters.Params.Apply(url.Values{})
	for key, value := range map[string]string{"search": filters.Search, "role": filters.Role, "status": filters.Status} {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			query.Set(key, trimmed)
		}
	}
	var out UserList
	if err := s.api.Get(ctx, "/users", query, &out); err != nil {
		return nil, err
	}
	if out.Users == nil {
		out.Users = []User{}
	}
	return &out, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/users/stats", nil, &raw); err != nil {
		return nil, err
	}
	stats, err := types.Unwrap[Stats](raw, "stats")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode user stats")
	}
	return &stats, nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	if err := validators.Struct(req); err != nil {
		return nil, err
	}
	if req.Role != "" && !req.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", req.Role))
	}
	var raw json.RawMessage
	if err := s.api.Post(ctx, "/users", req, &raw); err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

func (s *service) ChangeStatus(ctx context.Context, id string, status enums.UserStatus) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid user status %q", status))
	}
	var raw json.RawMessage
	body := map[string]enums.UserStatus{"status": status}
	if err := s.api.Patch(ctx, "/users/"+url.PathEscape(id)+"/status", body, &raw); err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

func (s *service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.api.Delete(ctx, "/users/"+url.PathEscape(id), nil)
}

func decodeUser(raw json.RawMessage) (*User, error) {
	user, err := types.Unwrap[User](raw, "user")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode user response")
	}
	return &user, nil
}
