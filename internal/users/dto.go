package users

import (
	"time"

	"github.com/angelmondragon/raamul-storefront/internal/session"
	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	"github.com/angelmondragon/raamul-storefront/pkg/pagination"
)

// User is an account record as returned by the users endpoints.
type User struct {
	session.User
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ProfileUpdate carries the fields a user may edit on their own profile.
type ProfileUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

// CreateRequest is the admin POST /users body.
type CreateRequest struct {
	Username string         `json:"username" validate:"required"`
	Email    string         `json:"email" validate:"required,email"`
	Phone    string         `json:"phone,omitempty"`
	Location string         `json:"location,omitempty"`
	Password string         `json:"password" validate:"required,min=6"`
	Role     enums.UserRole `json:"role,omitempty"`
}

type ListFilters struct {
	pagination.Params
	Search string
	Role   string
	Status string
}

type UserList struct {
	Users      []User          `json:"users"`
	Pagination pagination.Page `json:"pagination"`
}

// Stats is the admin user summary.
type Stats struct {
	TotalUsers     int `json:"total_users"`
	ActiveUsers    int `json:"active_users"`
	InactiveUsers  int `json:"inactive_users"`
	SuspendedUsers int `json:"suspended_users"`
	Admins         int `json:"admins"`
	NewThisMonth   int `json:"new_this_month"`
}
