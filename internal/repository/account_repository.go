// Package repository contains data access logic separated from HTTP handlers.
// This file holds the Account repository.  An Account is created together
// with the OWNER relation of its creator inside one transaction so that no
// account can exist without an owner.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/finapp/internal/database"
	"github.com/iliyamo/finapp/internal/model"
)

const accountColumns = "id, name, type, created_at, updated_at"

// AccountRepo encapsulates all database queries related to accounts.
// It needs the *sql.DB itself (not a DBTX) because creation, update and
// deletion open their own transactions.
type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// List returns all accounts ordered by creation time.
func (r *AccountRepo) List(ctx context.Context) ([]*model.Account, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches an account by id.  It returns ErrNotFound if no row exists.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return getAccount(ctx, r.db, id, false)
}

// CreateWithOwner inserts a and the OWNER relation for ownerID in a single
// transaction.  On success a.ID and timestamps are populated.
func (r *AccountRepo) CreateWithOwner(ctx context.Context, a *model.Account, ownerID string) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	return database.WithTx(ctx, r.db, nil, func(ctx context.Context, tx database.DBTX) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO accounts (id, name, type, created_at, updated_at) VALUES (?,?,?,?,?)",
			a.ID, a.Name, a.Type, a.CreatedAt, a.UpdatedAt); err != nil {
			return err
		}
		return NewUserAccountRepo(tx).Create(ctx, &model.UserAccount{
			UserID:    ownerID,
			AccountID: a.ID,
			Role:      model.AccountOwner,
		})
	})
}

// Update applies the non-nil fields of patch and returns the updated row.
func (r *AccountRepo) Update(ctx context.Context, id string, patch model.AccountPatch) (*model.Account, error) {
	var out *model.Account
	err := database.WithTx(ctx, r.db, nil, func(ctx context.Context, tx database.DBTX) error {
		a, err := getAccount(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			a.Name = *patch.Name
		}
		if patch.Type != nil {
			a.Type = *patch.Type
		}
		a.UpdatedAt = time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			"UPDATE accounts SET name = ?, type = ?, updated_at = ? WHERE id = ?",
			a.Name, a.Type, a.UpdatedAt, a.ID); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the account and every relation pointing at it.
func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, nil, func(ctx context.Context, tx database.DBTX) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM user_accounts WHERE account_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListForUser returns the accounts userID is related to, with the role
// held on each.
func (r *AccountRepo) ListForUser(ctx context.Context, userID string) ([]*model.AccountMembership, error) {
	const q = `SELECT a.id, a.name, a.type, a.created_at, a.updated_at, ua.role
	           FROM accounts a
	           JOIN user_accounts ua ON ua.account_id = a.id
	           WHERE ua.user_id = ?
	           ORDER BY a.created_at, a.id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.AccountMembership{}
	for rows.Next() {
		var m model.AccountMembership
		if err := rows.Scan(&m.ID, &m.Name, &m.Type, &m.CreatedAt, &m.UpdatedAt, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func getAccount(ctx context.Context, db database.DBTX, id string, forUpdate bool) (*model.Account, error) {
	q := "SELECT " + accountColumns + " FROM accounts WHERE id = ?"
	if forUpdate {
		q += " FOR UPDATE"
	}
	return scanAccount(db.QueryRowContext(ctx, q, id))
}

func scanAccount(s scanner) (*model.Account, error) {
	var a model.Account
	if err := s.Scan(&a.ID, &a.Name, &a.Type, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
