package model

import "time"

// Role is the application-wide role of a user.  It is embedded in every
// credential token and checked by the role gate.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a row of the `users` table.  PasswordHash is tagged so
// that it never leaves the process in a JSON response.
//
// Fields:
//	ID           – UUID primary key.
//	Name         – display name.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hash of the password.
//	Role         – USER or ADMIN.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserWithAccounts is the read model returned by GET /users/:id/accounts.
type UserWithAccounts struct {
	User
	Accounts []*AccountMembership `json:"accounts"`
}
