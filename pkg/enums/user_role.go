package enums

// UserRole is the platform role carried by an access token.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleMerchant UserRole = "merchant"
	UserRoleDriver   UserRole = "driver"
	UserRoleStaff    UserRole = "staff"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleMerchant,
	UserRoleDriver,
	UserRoleStaff,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	return oneOf(r, validUserRoles)
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	return parseOneOf(value, validUserRoles, "user role")
}
