package sandbox

import (
	"github.com/angelmondragon/raamul-storefront/internal/products"
	"github.com/angelmondragon/raamul-storefront/internal/session"
	"github.com/angelmondragon/raamul-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/types"
)

const (
	seedAdminUsername = "admin"
	seedAdminEmail    = "admin@raamul.co.ke"
)

func defaultCatalog() []products.ProductInput {
	return []products.ProductInput{
		{Name: "Gypsum Rock Lumps", SKU: "GYP-ROCK", Category: "Gypsum", Purity: "89-93%", Unit: "tonne", Price: types.MoneyFromInt(15000), StockQuantity: 120,
			Description: "High-quality natural gypsum for cement & construction"},
		{Name: "Limestone Ore", SKU: "LIME-ORE", Category: "Limestone", Purity: "85-90%", Unit: "tonne", Price: types.MoneyFromInt(12000), StockQuantity: 80,
			Description: "Premium limestone for industrial applications"},
		{Name: "Iron Ore", SKU: "IRON-ORE", Category: "Iron", Purity: "60-65%", Unit: "tonne", Price: types.MoneyFromInt(25000), StockQuantity: 40,
			Description: "Quality iron ore for steel manufacturing"},
		{Name: "Bauxite Ore", SKU: "BAUX-ORE", Category: "Bauxite", Purity: "45-50%", Unit: "tonne", Price: types.MoneyFromInt(18000), StockQuantity: 35,
			Description: "Raw bauxite for aluminum production"},
		{Name: "Gypsum Powder", SKU: "GYP-PWD", Category: "Gypsum", Purity: "90%+", Unit: "tonne", Price: types.MoneyFromInt(22000), StockQuantity: 0,
			Description: "Processed gypsum powder for various uses"},
		{Name: "Gypsum Wallboards", SKU: "GYP-BOARD", Category: "Gypsum", Purity: "N/A", Unit: "piece", Price: types.MoneyFromInt(3500), StockQuantity: 0,
			Description: "Construction-ready gypsum boards"},
	}
}

// seed loads the catalogue and the admin account.
func (b *Backend) seed(catalog []products.ProductInput) error {
	if catalog == nil {
		catalog = defaultCatalog()
	}

	var adminHash string
	if b.cfg.SeedAdminPassword != "" {
		hash, err := b.hasher.Hash(b.cfg.SeedAdminPassword)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash seed admin password")
		}
		adminHash = hash
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	ts := b.timestamp()
	for _, input := range catalog {
		p := products.Product{ID: types.ID(b.nextIDLocked("product")), CreatedAt: &ts}
		applyProductInput(&p, input, ts)
		b.products = append(b.products, p)
	}
	if adminHash != "" {
		b.addAccountLocked(session.User{
			Username:      seedAdminUsername,
			Email:         seedAdminEmail,
			Role:          enums.UserRoleAdmin,
			EmailVerified: true,
		}, adminHash)
	}
	return nil
}
