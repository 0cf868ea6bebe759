package domain

// Role is the marketplace role carried by an authenticated user.
type Role string

const (
	RoleShipper  Role = "shipper"
	RoleTraveler Role = "traveler"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleShipper || r == RoleTraveler || r == RoleAdmin
}

// Principal is the identity attached to a request or connection.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
