// Package auth drives the login, signup and session restore flows against the API.
package auth

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/raamul-storefront/internal/session"
	"github.com/angelmondragon/raamul-storefront/pkg/apiclient"
	jwtauth "github.com/angelmondragon/raamul-storefront/pkg/auth"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
	"github.com/angelmondragon/raamul-storefront/pkg/validators"
)

// ServiceParams groups dependencies for the auth service.
type ServiceParams struct {
	API     *apiclient.Client
	Session *session.Store
	Logger  *logger.Logger
	Now     func() time.Time
}

// Service exposes the account flows.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*session.User, error)
	Signup(ctx context.Context, req SignupRequest) (*session.User, error)
	Restore(ctx context.Context) error
	Logout(ctx context.Context) error
	ForgotPassword(ctx context.Context, email string) (*MessageResponse, error)
	VerifyResetToken(ctx context.Context, token string) (*MessageResponse, error)
	ResetPassword(ctx context.Context, token, newPassword string) (*MessageResponse, error)
	ChangePassword(ctx context.Context, currentPassword, newPassword string) (*MessageResponse, error)
	VerifyEmail(ctx context.Context, token string) (*MessageResponse, error)
	ResendVerification(ctx context.Context) (*MessageResponse, error)
	VerificationStatus(ctx context.Context) (bool, error)
	UpdateUser(ctx context.Context, user session.User) error
}

type service struct {
	api     *apiclient.Client
	session *session.Store
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds an auth service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.API == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "api client is required")
	}
	if params.Session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session store is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{api: params.API, session: params.Session, logg: logg, now: now}, nil
}

// Login signs in and persists the session when the API returns a token.
func (s *service) Login(ctx context.Context, req LoginRequest) (*session.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := validators.Struct(req); err != nil {
		return nil, err
	}
	var resp authResponse
	if err := s.api.Post(ctx, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return s.persist(ctx, resp, resp.User != nil && resp.User.EmailVerified)
}

// Signup registers and persists the session. New accounts start unverified.
func (s *service) Signup(ctx context.Context, req SignupRequest) (*session.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validators.Struct(req); err != nil {
		return nil, err
	}
	var resp authResponse
	if err := s.api.Post(ctx, "/auth/signup", req, &resp); err != nil {
		return nil, err
	}
	return s.persist(ctx, resp, false)
}

func (s *service) persist(ctx context.Context, resp authResponse, emailVerified bool) (*session.User, error) {
	if resp.Token == "" || resp.User == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "auth response missing token or user")
	}
	if err := s.session.Set(ctx, resp.Token, *resp.User, emailVerified); err != nil {
		return nil, err
	}
	user := *resp.User
	return &user, nil
}

// Restore verifies a saved session. A locally expired token or a rejected token clears
// the session; a transport failure keeps it so the app works offline.
func (s *service) Restore(ctx context.Context) error {
	if !s.session.IsAuthenticated() {
		return nil
	}
	if jwtauth.IsExpired(s.session.Token(), s.now()) {
		s.logg.Info(ctx, "saved session token has expired")
		return s.session.Clear(ctx)
	}

	var resp authResponse
	err := s.api.Get(ctx, "/auth/verify", nil, &resp)
	if err == nil {
		if resp.User != nil {
			if err := s.session.SetUser(ctx, *resp.User); err != nil {
				return err
			}
			s.session.SetEmailVerified(resp.User.EmailVerified)
		} else {
			s.session.SetEmailVerified(false)
		}
		return nil
	}
	if apiclient.IsTransport(err) {
		s.logg.WarnErr(ctx, "token verification unreachable; keeping saved session", err)
		return nil
	}
	s.logg.WarnErr(ctx, "token verification failed; clearing session", err)
	return s.session.Clear(ctx)
}

func (s *service) Logout(ctx context.Context) error {
	return s.session.Clear(ctx)
}

func (s *service) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	req := forgotPasswordRequest{Email: strings.TrimSpace(email)}
	if err := validators.Struct(req); err != nil {
		return nil, err
	}
	return s.message(ctx, func(out *MessageResponse) error {
		return s.api.Post(ctx, "/auth/forgot-password", req, out)
	})
}

func (s *service) VerifyResetToken(ctx context.Context, token string) (*MessageResponse, error) {
	if strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reset token is required")
	}
	return s.message(ctx, func(out *MessageResponse) error {
		return s.api.Get(ctx, "/auth/verify-reset-token/"+url.PathEscape(token), nil, out)
	})
}

func (s *service) ResetPassword(ctx context.Context, token, newPassword string) (*MessageResponse, error) {
	req := resetPasswordRequest{Token: strings.TrimSpace(token), NewPassword: newPassword}
	if err := validators.Struct(req); err != nil {
		return nil, err
	}
	return s.message(ctx, func(out *MessageResponse) error {
		return s.api.Post(ctx, "/auth/reset-password", req, out)
	})
}

func (s *service) ChangePassword(ctx context.Context, currentPassword, newPassword string) (*MessageResponse, error) {
	req := changePasswordRequest{CurrentPassword: currentPassword, NewPassword: newPassword}
	if err := validators.Struct(req); err != nil {
		return nil, err
	}
	return s.message(ctx, func(out *MessageResponse) error {
		return s.api.Post(ctx, "/auth/change-password", req, out)
	})
}

func (s *service) VerifyEmail(ctx context.Context, token string) (*MessageResponse, error) {
	if strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "verification token is required")
	}
	resp, err := s.message(ctx, func(out *MessageResponse) error {
		return s.api.Get(ctx, "/auth/verify-email/"+url.PathEscape(token), nil, out)
	})
	if err != nil {
		return nil, err
	}
	s.session.SetEmailVerified(true)
	return resp, nil
}

func (s *service) ResendVerification(ctx context.Context) (*MessageResponse, error) {
	return s.message(ctx, func(out *MessageResponse) error {
		return s.api.Post(ctx, "/auth/resend-verification", nil, out)
	})
}

// VerificationStatus refreshes the email verification flag. Failures report false.
func (s *service) VerificationStatus(ctx context.Context) (bool, error) {
	var resp verificationStatusResponse
	if err := s.api.Get(ctx, "/auth/verification-status", nil, &resp); err != nil {
		s.logg.WarnErr(ctx, "verification status check failed", err)
		return false, err
	}
	s.session.SetEmailVerified(resp.EmailVerified)
	return resp.EmailVerified, nil
}

// UpdateUser replaces the stored user, e.g. after a profile edit.
func (s *service) UpdateUser(ctx context.Context, user session.User) error {
	return s.session.SetUser(ctx, user)
}

func (s *service) message(_ context.Context, call func(out *MessageResponse) error) (*MessageResponse, error) {
	var out MessageResponse
	if err := call(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
