package stores

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// StoreDTO exposes store data in API responses.
type StoreDTO struct {
	ID                 uuid.UUID       `json:"id"`
	OwnerID            uuid.UUID       `json:"owner"`
	Name               string          `json:"name"`
	Address            string          `json:"address"`
	Phone              string          `json:"phone"`
	MinimumOrderValue  decimal.Decimal `json:"minimum_order_value"`
	IsActive           bool            `json:"is_active"`
	IsOpened           bool            `json:"is_opened"`
	WarehouseReady     bool            `json:"warehouse_ready"`
	PickupWarehouseID  *int64          `json:"pickup_warehouse_id,omitempty"`
	RTOWarehouseID     *int64          `json:"rto_warehouse_id,omitempty"`
	WarehouseSyncError *string         `json:"warehouse_sync_error,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// CreateStoreInput holds creation-time data for a new store.
type CreateStoreInput struct {
	OwnerID           uuid.UUID
	Name              string
	Address           string
	Phone             string
	MinimumOrderValue decimal.Decimal
}

// UpdateStoreInput captures the mutable store fields. Nil leaves a field as is.
type UpdateStoreInput struct {
	Name              *string
	Address           *string
	Phone             *string
	MinimumOrderValue *decimal.Decimal
	IsOpened          *bool
}

// FromModel maps the persisted store into a DTO.
func FromModel(m *models.Store) *StoreDTO {
	if m == nil {
		return nil
	}
	return &StoreDTO{
		ID:                 m.ID,
		OwnerID:            m.OwnerID,
		Name:               m.Name,
		Address:            m.Address,
		Phone:              m.Phone,
		MinimumOrderValue:  m.MinimumOrderValue,
		IsActive:           m.IsActive,
		IsOpened:           m.IsOpened,
		WarehouseReady:     m.PickupWarehouseID != nil,
		PickupWarehouseID:  m.PickupWarehouseID,
		RTOWarehouseID:     m.RTOWarehouseID,
		WarehouseSyncError: m.WarehouseSyncError,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// ToModel builds a new active, opened store.
func (c CreateStoreInput) ToModel() *models.Store {
	return &models.Store{
		OwnerID:           c.OwnerID,
		Name:              c.Name,
		Address:           c.Address,
		Phone:             c.Phone,
		MinimumOrderValue: c.MinimumOrderValue,
		IsActive:          true,
		IsOpened:          true,
	}
}
