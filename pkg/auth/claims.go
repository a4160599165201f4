package auth

import (
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	// StoreID is the merchant's store, when the user owns one.
	StoreID *uuid.UUID
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID  uuid.UUID      `json:"user_id"`
	Role    enums.UserRole `json:"role"`
	StoreID *uuid.UUID     `json:"store_id,omitempty"`
	jwt.RegisteredClaims
}

// RoleFor picks the token role from the user's flags. Staff wins over the
// merchant and driver roles.
func RoleFor(isMerchant, isDriver, isStaff bool) enums.UserRole {
	switch {
	case isStaff:
		return enums.UserRoleStaff
	case isMerchant:
		return enums.UserRoleMerchant
	case isDriver:
		return enums.UserRoleDriver
	default:
		return enums.UserRoleCustomer
	}
}
