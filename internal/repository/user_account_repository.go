package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/finapp/internal/database"
	"github.com/iliyamo/finapp/internal/model"
)

// UserAccountRepo persists the user_accounts relation and answers
// ownership questions about it.
type UserAccountRepo struct{ db database.DBTX }

func NewUserAccountRepo(db database.DBTX) *UserAccountRepo { return &UserAccountRepo{db: db} }

// Create inserts ua.  A second relation for the same (user, account) pair
// yields ErrConflict.
func (r *UserAccountRepo) Create(ctx context.Context, ua *model.UserAccount) error {
	if ua.ID == "" {
		ua.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO user_accounts (id, user_id, account_id, role) VALUES (?,?,?,?)",
		ua.ID, ua.UserID, ua.AccountID, ua.Role)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// IsOwner reports whether userID holds the OWNER role on accountID.  A
// missing relation is "not owner", never an error.
func (r *UserAccountRepo) IsOwner(ctx context.Context, accountID, userID string) (bool, error) {
	var role model.AccountRole
	err := r.db.QueryRowContext(ctx,
		"SELECT role FROM user_accounts WHERE user_id = ? AND account_id = ? LIMIT 1",
		userID, accountID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return role == model.AccountOwner, nil
}
