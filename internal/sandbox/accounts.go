package sandbox

import (
	"context"
	"sort"
	"strings"

	"github.com/angelmondragon/raamul-storefront/internal/session"
	"github.com/angelmondragon/raamul-storefront/internal/users"
	jwtauth "github.com/angelmondragon/raamul-storefront/pkg/auth"
	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/pagination"
	"github.com/angelmondragon/raamul-storefront/pkg/security"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
)

const resetTokenLength = 32

type account struct {
	user         users.User
	passwordHash string
}

// SignupRequest is the POST /auth/signup body as the API receives it.
type SignupRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Location string `json:"location" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// AuthResult is a signed-in user with a fresh bearer token.
type AuthResult struct {
	Token string
	User  session.User
}

// Signup registers a customer account. New accounts start with an unverified email.
func (b *Backend) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	hash, err := b.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	b.mu.Lock()
	if b.findAccountLocked(req.Username) != nil || b.findAccountLocked(req.Email) != nil {
		b.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "User with this username or email already exists")
	}
	acct := b.addAccountLocked(session.User{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Location: strings.TrimSpace(req.Location),
		Role:     enums.UserRoleCustomer,
	}, hash)
	user := acct.user.User
	b.mu.Unlock()

	if _, err := b.issueVerifyToken(user.ID.String()); err != nil {
		return nil, err
	}
	b.logAction(ctx, map[string]any{"user_id": user.ID.String()}, "sandbox.signup")
	return b.signIn(user)
}

// Login checks the credentials. The identifier may be the username or the email.
func (b *Backend) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	b.mu.Lock()
	acct := b.findAccountLocked(identifier)
	var hash string
	var user session.User
	if acct != nil {
		hash, user = acct.passwordHash, acct.user.User
	}
	b.mu.Unlock()

	if acct == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid credentials")
	}
	ok, err := b.hasher.Verify(password, hash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid credentials")
	}
	if user.Status != string(enums.UserStatusActive) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Account is not active")
	}
	b.logAction(ctx, map[string]any{"user_id": user.ID.String()}, "sandbox.login")
	return b.signIn(user)
}

func (b *Backend) signIn(user session.User) (*AuthResult, error) {
	token, err := jwtauth.MintAccessToken(b.tokens, b.now(), jwtauth.AccessTokenPayload{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}
	return &AuthResult{Token: token, User: user}, nil
}

// IsActive reports whether the account exists and is active.
func (b *Backend) IsActive(_ context.Context, userID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[userID]
	return ok && acct.user.Status == string(enums.UserStatusActive), nil
}

// ForgotPassword issues a reset token when the email is registered. The token is only
// returned so the sandbox can log it; callers never learn whether the email exists.
func (b *Backend) ForgotPassword(ctx context.Context, email string) (string, error) {
	b.mu.Lock()
	acct := b.findAccountLocked(email)
	var userID string
	if acct != nil {
		userID = acct.user.ID.String()
	}
	b.mu.Unlock()
	if userID == "" {
		return "", nil
	}

	token, err := security.NewToken(resetTokenLength)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	b.mu.Lock()
	b.resetTokens[token] = userID
	b.mu.Unlock()
	b.logAction(ctx, map[string]any{"user_id": userID, "reset_token": token}, "sandbox.password_reset_issued")
	return token, nil
}

func (b *Backend) VerifyResetToken(token string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.resetTokens[token]
	return ok
}

// ResetPassword consumes a reset token.
func (b *Backend) ResetPassword(_ context.Context, token, newPassword string) error {
	hash, err := b.hasher.Hash(newPassword)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	userID, ok := b.resetTokens[token]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "Invalid or expired reset token")
	}
	delete(b.resetTokens, token)
	if acct, ok := b.accounts[userID]; ok {
		acct.passwordHash = hash
	}
	return nil
}

// ChangePassword replaces the password after checking the current one.
func (b *Backend) ChangePassword(_ context.Context, userID, current, next string) error {
	b.mu.Lock()
	acct, ok := b.accounts[userID]
	var hash string
	if ok {
		hash = acct.passwordHash
	}
	b.mu.Unlock()
	if !ok {
		return notFound("User not found")
	}

	valid, err := b.hasher.Verify(current, hash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeValidation, "Current password is incorrect")
	}
	nextHash, err := b.hasher.Hash(next)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	b.mu.Lock()
	acct.passwordHash = nextHash
	b.mu.Unlock()
	return nil
}

// VerifyEmail consumes an email verification token.
func (b *Backend) VerifyEmail(_ context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	userID, ok := b.verifyTokens[token]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "Invalid or expired verification token")
	}
	delete(b.verifyTokens, token)
	if acct, ok := b.accounts[userID]; ok {
		acct.user.EmailVerified = true
	}
	return nil
}

// ResendVerification issues a new verification token for an unverified account.
func (b *Backend) ResendVerification(ctx context.Context, userID string) error {
	b.mu.Lock()
	acct, ok := b.accounts[userID]
	verified := ok && acct.user.EmailVerified
	b.mu.Unlock()
	if !ok {
		return notFound("User not found")
	}
	if verified {
		return pkgerrors.New(pkgerrors.CodeValidation, "Email is already verified")
	}
	token, err := b.issueVerifyToken(userID)
	if err != nil {
		return err
	}
	b.logAction(ctx, map[string]any{"user_id": userID, "verify_token": token}, "sandbox.verification_issued")
	return nil
}

// VerificationToken returns the outstanding verification token of a user, if any.
func (b *Backend) VerificationToken(userID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for token, owner := range b.verifyTokens {
		if owner == userID {
			return token, true
		}
	}
	return "", false
}

func (b *Backend) issueVerifyToken(userID string) (string, error) {
	token, err := security.NewToken(resetTokenLength)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification token")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for existing, owner := range b.verifyTokens {
		if owner == userID {
			delete(b.verifyTokens, existing)
		}
	}
	b.verifyTokens[token] = userID
	return token, nil
}

// User returns one account. Customers may only read their own.
func (b *Backend) User(_ context.Context, actor Actor, id string) (*users.User, error) {
	if !actor.IsAdmin() && actor.UserID != id {
		return nil, forbidden()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[id]
	if !ok {
		return nil, notFound("User not found")
	}
	user := acct.user
	return &user, nil
}

// ListUsers pages through accounts ordered by id.
func (b *Backend) ListUsers(_ context.Context, filters users.ListFilters) users.UserList {
	b.mu.Lock()
	defer b.mu.Unlock()
	matched := []users.User{}
	for _, acct := range b.sortedAccountsLocked() {
		u := acct.user
		if filters.Search != "" && !containsFold(u.Username, filters.Search) && !containsFold(u.Email, filters.Search) {
			continue
		}
		if filters.Role != "" && string(u.Role) != filters.Role {
			continue
		}
		if filters.Status != "" && u.Status != filters.Status {
			continue
		}
		matched = append(matched, u)
	}
	start, end, page := pagination.Window(filters.Params, len(matched))
	return users.UserList{Users: matched[start:end], Pagination: page}
}

// UserStats summarizes the accounts.
func (b *Backend) UserStats(context.Context) users.Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.timestamp()
	var stats users.Stats
	for _, acct := range b.accounts {
		u := acct.user
		stats.TotalUsers++
		switch enums.UserStatus(u.Status) {
		case enums.UserStatusActive:
			stats.ActiveUsers++
		case enums.UserStatusInactive:
			stats.InactiveUsers++
		case enums.UserStatusSuspended:
			stats.SuspendedUsers++
		}
		if u.Role.IsAdmin() {
			stats.Admins++
		}
		if u.CreatedAt != nil && u.CreatedAt.Year() == now.Year() && u.CreatedAt.Month() == now.Month() {
			stats.NewThisMonth++
		}
	}
	return stats
}

// CreateUser adds an account from the admin console. The email counts as verified.
func (b *Backend) CreateUser(ctx context.Context, req users.CreateRequest) (*users.User, error) {
	role := req.Role
	if role == "" {
		role = enums.UserRoleCustomer
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid role")
	}
	hash, err := b.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findAccountLocked(req.Username) != nil || b.findAccountLocked(req.Email) != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "User with this username or email already exists")
	}
	acct := b.addAccountLocked(session.User{
		Username:      strings.TrimSpace(req.Username),
		Email:         strings.TrimSpace(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		Location:      strings.TrimSpace(req.Location),
		Role:          role,
		EmailVerified: true,
	}, hash)
	user := acct.user
	b.logAction(ctx, map[string]any{"user_id": user.ID.String(), "role": string(role)}, "sandbox.user_created")
	return &user, nil
}

// UpdateProfile applies the non-empty fields. Customers may only edit themselves.
func (b *Backend) UpdateProfile(_ context.Context, actor Actor, id string, update users.ProfileUpdate) (*users.User, error) {
	if !actor.IsAdmin() && actor.UserID != id {
		return nil, forbidden()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[id]
	if !ok {
		return nil, notFound("User not found")
	}
	for _, candidate := range []string{update.Username, update.Email} {
		if candidate == "" {
			continue
		}
		if other := b.findAccountLocked(candidate); other != nil && other != acct {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "Username or email already in use")
		}
	}
	setIfPresent(&acct.user.Username, update.Username)
	setIfPresent(&acct.user.Email, update.Email)
	setIfPresent(&acct.user.Phone, update.Phone)
	setIfPresent(&acct.user.Location, update.Location)
	ts := b.timestamp()
	acct.user.UpdatedAt = &ts
	user := acct.user
	return &user, nil
}

// SetUserStatus activates, deactivates or suspends an account.
func (b *Backend) SetUserStatus(ctx context.Context, id string, status enums.UserStatus) (*users.User, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid status")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[id]
	if !ok {
		return nil, notFound("User not found")
	}
	acct.user.Status = string(status)
	ts := b.timestamp()
	acct.user.UpdatedAt = &ts
	user := acct.user
	b.logAction(ctx, map[string]any{"user_id": id, "status": string(status)}, "sandbox.user_status_changed")
	return &user, nil
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (b *Backend) DeleteUser(_ context.Context, actor Actor, id string) error {
	if actor.UserID == id {
		return pkgerrors.New(pkgerrors.CodeValidation, "You cannot delete your own account")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.accounts[id]; !ok {
		return notFound("User not found")
	}
	delete(b.accounts, id)
	return nil
}

func (b *Backend) addAccountLocked(user session.User, hash string) *account {
	ts := b.timestamp()
	user.ID = types.ID(b.nextIDLocked("user"))
	if user.Status == "" {
		user.Status = string(enums.UserStatusActive)
	}
	acct := &account{
		user:         users.User{User: user, CreatedAt: &ts, UpdatedAt: &ts},
		passwordHash: hash,
	}
	b.accounts[user.ID.String()] = acct
	return acct
}

// findAccountLocked matches a username exactly or an email ignoring case.
func (b *Backend) findAccountLocked(identifier string) *account {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil
	}
	for _, acct := range b.accounts {
		if acct.user.Username == identifier || strings.EqualFold(acct.user.Email, identifier) {
			return acct
		}
	}
	return nil
}

func (b *Backend) sortedAccountsLocked() []*account {
	out := make([]*account, 0, len(b.accounts))
	for _, acct := range b.accounts {
		out = append(out, acct)
	}
	sort.Slice(out, func(i, j int) bool {
		return numericLess(out[i].user.ID.String(), out[j].user.ID.String())
	})
	return out
}

func setIfPresent(dst *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*dst = trimmed
	}
}
