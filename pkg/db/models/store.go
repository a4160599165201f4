package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Store belongs to one merchant. Warehouse ids are filled in by the
// registration job once the logistics provider accepts the store address.
type Store struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID            uuid.UUID       `gorm:"column:owner_id;type:uuid;not null;index"`
	Owner              *User           `gorm:"foreignKey:OwnerID"`
	Name               string          `gorm:"column:name;not null"`
	Address            string          `gorm:"column:address;type:text;not null"`
	Phone              string          `gorm:"column:phone;not null"`
	MinimumOrderValue  decimal.Decimal `gorm:"column:minimum_order_value;type:numeric(12,2);not null;default:0"`
	IsActive           bool            `gorm:"column:is_active;not null"`
	IsOpened           bool            `gorm:"column:is_opened;not null"`
	PickupWarehouseID  *int64          `gorm:"column:pickup_warehouse_id"`
	RTOWarehouseID     *int64          `gorm:"column:rto_warehouse_id"`
	WarehouseSyncError *string         `gorm:"column:warehouse_sync_error"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Store) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
