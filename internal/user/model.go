package user

import "time"

type Role string

const (
	RoleCustomer       Role = "customer"
	RoleProductManager Role = "product_manager"
	RoleSalesManager   Role = "sales_manager"
)

// IsManager reports whether the role may drive forward order transitions.
func (r Role) IsManager() bool {
	return r == RoleProductManager || r == RoleSalesManager
}

func ValidRole(s string) bool {
	switch Role(s) {
	case RoleCustomer, RoleProductManager, RoleSalesManager:
		return true
	}
	return false
}

type User struct {
	ID        uint
	Email     string
	Name      string
	Password  string
	Role      Role
	CreatedAt time.Time
}
