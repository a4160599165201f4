package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// UserDTO is the transport shape of a user profile.
type UserDTO struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Email        *string         `json:"email,omitempty"`
	Phone        string          `json:"phone"`
	CountryCode  string          `json:"country_code"`
	IsMerchant   bool            `json:"is_merchant"`
	IsDriver     bool            `json:"is_driver"`
	IsStaff      bool            `json:"is_staff"`
	MerchantCode *string         `json:"merchant_code,omitempty"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateUserInput holds the data required by the repo to persist a new user.
type CreateUserInput struct {
	Name        string
	Phone       string
	CountryCode string
	Email       *string
}

// RolesInput toggles the mutually exclusive merchant and driver roles. Nil
// fields are left unchanged.
type RolesInput struct {
	IsMerchant *bool `json:"is_merchant"`
	IsDriver   *bool `json:"is_driver"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		CountryCode:  u.CountryCode,
		IsMerchant:   u.IsMerchant,
		IsDriver:     u.IsDriver,
		IsStaff:      u.IsStaff,
		MerchantCode: u.MerchantCode,
		Balance:      u.Balance,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// ToModel converts the input into a persisted user.
func (in CreateUserInput) ToModel() *models.User {
	countryCode := strings.TrimSpace(in.CountryCode)
	if countryCode == "" {
		countryCode = "+91"
	}
	return &models.User{
		Name:        strings.TrimSpace(in.Name),
		Phone:       strings.TrimSpace(in.Phone),
		CountryCode: countryCode,
		Email:       in.Email,
	}
}
