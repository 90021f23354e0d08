package auth

import "github.com/angelmondragon/raamul-storefront/internal/session"

// LoginRequest is the POST /auth/login body.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest is the POST /auth/signup body. ConfirmPassword is checked locally and not sent.
type SignupRequest struct {
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required"`
	Location        string `json:"location" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"-" validate:"required,eqfield=Password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// authResponse is returned by login, signup and verify.
type authResponse struct {
	Message string        `json:"message,omitempty"`
	Token   string        `json:"token"`
	User    *session.User `json:"user"`
}

// MessageResponse is the generic acknowledgement returned by the password and email endpoints.
type MessageResponse struct {
	Message string `json:"message"`
	Valid   *bool  `json:"valid,omitempty"`
}

type verificationStatusResponse struct {
	EmailVerified bool `json:"email_verified"`
}
