package model

// Principal is the authenticated caller, rebuilt from a verified token on
// every request.  It is never persisted on its own.
type Principal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// IsAdmin reports whether the principal has the ADMIN role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
