package model

import "time"

// AccountType distinguishes single-user accounts from shared ones.
type AccountType string

const (
	AccountPersonal AccountType = "PERSONAL"
	AccountShared   AccountType = "SHARED"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	return t == AccountPersonal || t == AccountShared
}

// AccountRole is the role a user holds on a single account.
type AccountRole string

const (
	AccountOwner  AccountRole = "OWNER"
	AccountMember AccountRole = "MEMBER"
)

// Account represents a row of the `accounts` table.
type Account struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// AccountPatch carries the optional fields of a partial update.  Nil
// fields are left untouched.
type AccountPatch struct {
	Name *string
	Type *AccountType
}

// Empty reports whether the patch changes nothing.
func (p AccountPatch) Empty() bool {
	return p.Name == nil && p.Type == nil
}

// UserAccount models an entry in the `user_accounts` table linking a user
// to an account.  The pair (UserID, AccountID) is unique.
type UserAccount struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	AccountID string      `json:"accountId"`
	Role      AccountRole `json:"role"`
}

// AccountMembership is an account as seen by one of its users.
type AccountMembership struct {
	Account
	Role AccountRole `json:"role"`
}
