package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductVariants is the variant document stored on a product. Combination
// keys join option values with "/", e.g. "White/XL".
type ProductVariants struct {
	Enabled      bool                          `json:"enabled"`
	Options      []VariantOption               `json:"variants"`
	Combinations map[string]VariantCombination `json:"combinations"`
}

type VariantOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type VariantCombination struct {
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	Image        string          `json:"image,omitempty"`
	IsPrimary    bool            `json:"is_primary"`
	DiscountType string          `json:"discount_type,omitempty"`
	Discount     string          `json:"discount,omitempty"`
}

// Validate checks every combination key and value. It is a no-op when
// variants are disabled.
func (v ProductVariants) Validate() error {
	if !v.Enabled {
		return nil
	}
	if len(v.Combinations) == 0 {
		return fmt.Errorf("variants enabled without combinations")
	}
	primaries := 0
	for key, combo := range v.Combinations {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("variant combination key is empty")
		}
		if combo.Price.IsNegative() || combo.Price.IsZero() {
			return fmt.Errorf("variant %q price must be positive", key)
		}
		if combo.Stock < 0 {
			return fmt.Errorf("variant %q stock must not be negative", key)
		}
		if combo.IsPrimary {
			primaries++
		}
	}
	if primaries > 1 {
		return fmt.Errorf("only one primary variant allowed, got %d", primaries)
	}
	return nil
}

// Keys returns combination keys in a stable order.
func (v ProductVariants) Keys() []string {
	keys := make([]string, 0, len(v.Combinations))
	for key := range v.Combinations {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Primary returns the combination flagged primary, or the first key in sorted
// order when none is flagged.
func (v ProductVariants) Primary() (string, VariantCombination, bool) {
	keys := v.Keys()
	if len(keys) == 0 {
		return "", VariantCombination{}, false
	}
	for _, key := range keys {
		if v.Combinations[key].IsPrimary {
			return key, v.Combinations[key], true
		}
	}
	return keys[0], v.Combinations[keys[0]], true
}

// TotalStock sums stock across combinations.
func (v ProductVariants) TotalStock() int {
	total := 0
	for _, combo := range v.Combinations {
		total += combo.Stock
	}
	return total
}
