package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// ProductDTO is the API representation of a product.
type ProductDTO struct {
	ID            uuid.UUID             `json:"id"`
	StoreID       uuid.UUID             `json:"store_id"`
	CategoryID    *uuid.UUID            `json:"category_id,omitempty"`
	Name          string                `json:"name"`
	SKU           *string               `json:"sku,omitempty"`
	Price         decimal.Decimal       `json:"price"`
	StockQuantity int                   `json:"stock_quantity"`
	Variants      types.ProductVariants `json:"variants"`
	IsActive      bool                  `json:"is_active"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// SaveProductInput is the merchant payload for create and update. Price and
// StockQuantity are ignored when variants are enabled.
type SaveProductInput struct {
	CategoryID    *uuid.UUID            `json:"category_id"`
	Name          string                `json:"name" validate:"required,max=200"`
	SKU           *string               `json:"sku" validate:"omitempty,max=100"`
	Price         decimal.Decimal       `json:"price"`
	StockQuantity int                   `json:"stock_quantity" validate:"gte=0"`
	Variants      types.ProductVariants `json:"variants"`
	IsActive      *bool                 `json:"is_active"`
}

func NewProductDTO(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:            p.ID,
		StoreID:       p.StoreID,
		CategoryID:    p.CategoryID,
		Name:          p.Name,
		SKU:           p.SKU,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Variants:      p.Variants,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (in SaveProductInput) apply(p *models.Product) {
	p.CategoryID = in.CategoryID
	p.Name = in.Name
	p.SKU = in.SKU
	p.Price = in.Price
	p.StockQuantity = in.StockQuantity
	p.Variants = in.Variants
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}
