package auth

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var signingMethod = jwt.SigningMethodHS256

func (c TokenConfig) validate(minting bool) error {
	var errs []error
	if c.Secret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if minting && c.Issuer == "" {
		errs = append(errs, errors.New("jwt issuer is required"))
	}
	if minting && c.TTL <= 0 {
		errs = append(errs, errors.New("jwt ttl must be positive"))
	}
	return errors.Join(errs...)
}

// MintAccessToken signs the sandbox bearer token handed out on login and signup.
// The subject and user_id claims both carry the account id.
func MintAccessToken(cfg TokenConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := cfg.validate(true); err != nil {
		return "", err
	}
	userID := strings.TrimSpace(payload.UserID)
	if userID == "" {
		return "", errors.New("user id is required")
	}
	if !payload.Role.IsValid() {
		return "", fmt.Errorf("invalid user role %q", payload.Role)
	}

	claims := AccessTokenClaims{
		UserID: userID,
		Email:  payload.Email,
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			ID:        cmp.Or(strings.TrimSpace(payload.JTI), uuid.NewString()),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry. Tokens without exp are rejected.
func ParseAccessToken(cfg TokenConfig, tokenString string) (*AccessTokenClaims, error) {
	if err := cfg.validate(false); err != nil {
		return nil, err
	}
	claims := &AccessTokenClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if _, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}

// ExpiresAt reads the exp claim without verifying the signature. The client never holds
// the signing key, so this is only a hint for discarding a stale saved session.
// ok is false when the token carries no exp claim.
func ExpiresAt(tokenString string) (exp time.Time, ok bool, err error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("parsing jwt: %w", err)
	}
	date, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, err
	}
	if date == nil {
		return time.Time{}, false, nil
	}
	return date.Time, true, nil
}

// IsExpired reports whether the token carries an exp claim at or before now.
// Tokens that are not JWTs are left for the server to judge.
func IsExpired(tokenString string, now time.Time) bool {
	exp, ok, err := ExpiresAt(tokenString)
	if err != nil || !ok {
		return false
	}
	return !now.Before(exp)
}
