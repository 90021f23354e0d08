package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/raamul-storefront/internal/auth"
	"github.com/angelmondragon/raamul-storefront/internal/cart"
	"github.com/angelmondragon/raamul-storefront/internal/orders"
	"github.com/angelmondragon/raamul-storefront/internal/payments"
	"github.com/angelmondragon/raamul-storefront/internal/products"
	"github.com/angelmondragon/raamul-storefront/internal/session"
	"github.com/angelmondragon/raamul-storefront/internal/tracking"
	"github.com/angelmondragon/raamul-storefront/internal/uploads"
	"github.com/angelmondragon/raamul-storefront/internal/users"
	"github.com/angelmondragon/raamul-storefront/internal/wishlist"
	"github.com/angelmondragon/raamul-storefront/pkg/apiclient"
	"github.com/angelmondragon/raamul-storefront/pkg/config"
	"github.com/angelmondragon/raamul-storefront/pkg/localstore"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
	"github.com/angelmondragon/raamul-storefront/pkg/metrics"
)

const serviceName = "storefront"

// app holds everything a command needs. It is built once per invocation.
type app struct {
	cfg      *config.Config
	logg     *logger.Logger
	registry *prometheus.Registry
	store    localstore.Store
	api      *apiclient.Client

	session  *session.Store
	cart     *cart.Cart
	wishlist *wishlist.Wishlist

	auth     auth.Service
	products products.Service
	orders   orders.Service
	payments payments.Service
	tracking tracking.Service
	users    users.Service
	uploads  uploads.Service

	ready bool
}

func (a *app) init(ctx context.Context) error {
	if a.ready {
		return nil
	}
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	a.registry = prometheus.NewRegistry()

	store, err := localstore.Open(ctx, cfg, a.logg)
	if err != nil {
		return fmt.Errorf("open local state: %w", err)
	}
	a.store = store

	if a.session, err = session.Load(ctx, store, a.logg); err != nil {
		return err
	}
	if a.cart, err = cart.Load(ctx, store, a.logg); err != nil {
		return err
	}
	if a.wishlist, err = wishlist.Load(ctx, store, a.logg); err != nil {
		return err
	}

	a.api, err = apiclient.NewFromConfig(cfg.API,
		apiclient.WithTokenSource(a.session),
		apiclient.WithUnauthorizedHandler(a.session.HandleUnauthorized),
		apiclient.WithLogger(a.logg),
		apiclient.WithMetrics(metrics.NewRequestMetrics(a.registry, metrics.SubsystemAPIClient)),
	)
	if err != nil {
		return err
	}
	if err := a.buildServices(); err != nil {
		return err
	}

	if err := a.auth.Restore(ctx); err != nil {
		a.logg.WarnErr(ctx, "restoring saved session failed", err)
	}
	a.ready = true
	return nil
}

func (a *app) buildServices() error {
	var err error
	if a.auth, err = auth.NewService(auth.ServiceParams{API: a.api, Session: a.session, Logger: a.logg}); err != nil {
		return err
	}
	if a.products, err = products.NewService(products.ServiceParams{API: a.api}); err != nil {
		return err
	}
	if a.orders, err = orders.NewService(orders.ServiceParams{API: a.api}); err != nil {
		return err
	}
	if a.payments, err = payments.NewService(payments.ServiceParams{API: a.api}); err != nil {
		return err
	}
	if a.tracking, err = tracking.NewService(tracking.ServiceParams{API: a.api, Logger: a.logg}); err != nil {
		return err
	}
	if a.users, err = users.NewService(users.ServiceParams{API: a.api}); err != nil {
		return err
	}
	a.uploads, err = uploads.NewService(uploads.ServiceParams{
		Config:  a.cfg.Upload,
		Logger:  a.logg,
		Options: []apiclient.Option{apiclient.WithTimeout(a.cfg.API.RequestTimeout)},
	})
	return err
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// requireUser returns the signed-in user or an error telling the shopper to log in.
func (a *app) requireUser() (session.User, error) {
	user, ok := a.session.User()
	if !ok || !a.session.IsAuthenticated() {
		return session.User{}, errNotSignedIn
	}
	return user, nil
}

func (a *app) requireAdmin() error {
	if _, err := a.requireUser(); err != nil {
		return err
	}
	if !a.session.IsAdmin() {
		return errAdminOnly
	}
	return nil
}
