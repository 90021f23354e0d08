// Package sandbox is an in-memory stand-in for the storefront REST API. It backs local
// development and the end-to-end tests of the client packages.
package sandbox

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/raamul-storefront/internal/orders"
	"github.com/angelmondragon/raamul-storefront/internal/payments"
	"github.com/angelmondragon/raamul-storefront/internal/products"
	"github.com/angelmondragon/raamul-storefront/internal/tracking"
	jwtauth "github.com/angelmondragon/raamul-storefront/pkg/auth"
	"github.com/angelmondragon/raamul-storefront/pkg/config"
	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
	"github.com/angelmondragon/raamul-storefront/pkg/security"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID string
	Role   enums.UserRole
}

// IsAdmin reports whether the actor may use the admin endpoints.
func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}

// Params groups the sandbox configuration.
type Params struct {
	Config config.SandboxConfig
	Logger *logger.Logger
	Now    func() time.Time
	// Catalog replaces the default seed products when set.
	Catalog []products.ProductInput
}

// Backend holds all sandbox state behind one mutex.
type Backend struct {
	cfg    config.SandboxConfig
	tokens jwtauth.TokenConfig
	hasher security.Hasher
	logg   *logger.Logger
	now    func() time.Time
	script []enums.PaymentStatus

	mu            sync.Mutex
	seq           map[string]int
	accounts      map[string]*account
	products      []products.Product
	orders        []*orderRecord
	payments      []*paymentRecord
	tracking      []tracking.Entry
	resetTokens   map[string]string
	verifyTokens  map[string]string
	latestPayment map[string]*paymentRecord
}

type orderRecord struct {
	order  orders.Order
	userID string
}

type paymentRecord struct {
	payment payments.Payment
	order   *orderRecord
	cursor  int
}

// New builds a seeded backend.
func New(params Params) (*Backend, error) {
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	script, err := parseScript(params.Config.PaymentScript)
	if err != nil {
		return nil, err
	}
	tokens := jwtauth.TokenConfigFromSandbox(params.Config)
	if tokens.TTL <= 0 {
		tokens.TTL = 24 * time.Hour
	}

	b := &Backend{
		cfg:           params.Config,
		tokens:        tokens,
		hasher:        security.NewHasher(params.Config),
		logg:          logg,
		now:           now,
		script:        script,
		seq:           map[string]int{},
		accounts:      map[string]*account{},
		resetTokens:   map[string]string{},
		verifyTokens:  map[string]string{},
		latestPayment: map[string]*paymentRecord{},
	}
	if err := b.seed(params.Catalog); err != nil {
		return nil, err
	}
	return b, nil
}

// TokenConfig returns the parameters bearer tokens are signed with.
func (b *Backend) TokenConfig() jwtauth.TokenConfig {
	return b.tokens
}

// parseScript reads the sequence of statuses successive payment reads report. An
// empty script completes on the first read.
func parseScript(raw []string) ([]enums.PaymentStatus, error) {
	script := make([]enums.PaymentStatus, 0, len(raw))
	for _, value := range raw {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, err := enums.ParsePaymentStatus(value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sandbox payment script")
		}
		script = append(script, status)
	}
	if len(script) == 0 {
		script = []enums.PaymentStatus{enums.PaymentStatusCompleted}
	}
	return script, nil
}

func (b *Backend) nextIDLocked(kind string) string {
	b.seq[kind]++
	return strconv.Itoa(b.seq[kind])
}

func (b *Backend) timestamp() time.Time {
	return b.now().UTC()
}

func (b *Backend) logAction(ctx context.Context, fields map[string]any, msg string) {
	b.logg.Info(b.logg.WithFields(ctx, fields), msg)
}

func notFound(msg string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, msg)
}

func forbidden() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "Access denied")
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// numericLess orders decimal id strings by value.
func numericLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
