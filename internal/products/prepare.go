package product

import (
	"strings"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/money"
)

// PrepareProductForSave normalizes a product on the write path. With variants
// enabled, price comes from the primary combination and stock is the sum of
// all combination stocks; whatever the caller put in those fields is
// overwritten.
func PrepareProductForSave(p *models.Product) error {
	if p == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	if !p.Variants.Enabled {
		if !p.Price.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		if p.StockQuantity < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
		}
		p.Price = money.Round(p.Price)
		return nil
	}

	if err := p.Variants.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variants")
	}
	_, primary, ok := p.Variants.Primary()
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "variants enabled without combinations")
	}
	p.Price = money.Round(primary.Price)
	p.StockQuantity = p.Variants.TotalStock()
	return nil
}
