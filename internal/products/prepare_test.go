package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestPrepareProductForSaveDerivesFromVariants(t *testing.T) {
	product := &models.Product{
		Name:          "Cotton Kurta",
		Price:         dec("1"),
		StockQuantity: 999,
		Variants: types.ProductVariants{
			Enabled: true,
			Combinations: map[string]types.VariantCombination{
				"White/M":  {Price: dec("450"), Stock: 3},
				"White/XL": {Price: dec("499.995"), Stock: 5, IsPrimary: true},
				"Blue/M":   {Price: dec("470"), Stock: 0},
			},
		},
	}

	require.NoError(t, PrepareProductForSave(product))
	require.Equal(t, "500", product.Price.String())
	require.Equal(t, 8, product.StockQuantity)
}

func TestPrepareProductForSaveFallsBackToFirstCombination(t *testing.T) {
	product := &models.Product{
		Name: "Mug",
		Variants: types.ProductVariants{
			Enabled: true,
			Combinations: map[string]types.VariantCombination{
				"Red":  {Price: dec("120"), Stock: 1},
				"Blue": {Price: dec("110"), Stock: 2},
			},
		},
	}

	require.NoError(t, PrepareProductForSave(product))
	require.True(t, product.Price.Equal(dec("110")), "sorted first key is Blue")
	require.Equal(t, 3, product.StockQuantity)
}

func TestPrepareProductForSaveFlatPrice(t *testing.T) {
	product := &models.Product{Name: "  Notebook ", Price: dec("49.999"), StockQuantity: 12}
	require.NoError(t, PrepareProductForSave(product))
	require.Equal(t, "Notebook", product.Name)
	require.Equal(t, "50", product.Price.String())
	require.Equal(t, 12, product.StockQuantity)
}

func TestPrepareProductForSaveRejectsInvalid(t *testing.T) {
	cases := map[string]*models.Product{
		"no name":        {Price: dec("10")},
		"zero price":     {Name: "x", Price: decimal.Zero},
		"negative stock": {Name: "x", Price: dec("10"), StockQuantity: -1},
		"two primaries": {Name: "x", Variants: types.ProductVariants{Enabled: true, Combinations: map[string]types.VariantCombination{
			"A": {Price: dec("1"), IsPrimary: true},
			"B": {Price: dec("2"), IsPrimary: true},
		}}},
		"no combinations": {Name: "x", Variants: types.ProductVariants{Enabled: true}},
	}
	for name, product := range cases {
		t.Run(name, func(t *testing.T) {
			err := PrepareProductForSave(product)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}
