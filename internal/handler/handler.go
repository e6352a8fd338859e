// Package handler contains the HTTP handlers of the finapp API.  Handlers
// depend on small store interfaces so the MySQL repositories and the
// in-memory store are interchangeable.
package handler

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finapp/internal/model"
)

// dbTimeout bounds every storage call made while serving a request.
const dbTimeout = 5 * time.Second

// UserStore is the user persistence used by the handlers.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
}

// AccountStore is the account persistence used by the handlers.
type AccountStore interface {
	List(ctx context.Context) ([]*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
	CreateWithOwner(ctx context.Context, a *model.Account, ownerID string) error
	Update(ctx context.Context, id string, patch model.AccountPatch) (*model.Account, error)
	Delete(ctx context.Context, id string) error
	ListForUser(ctx context.Context, userID string) ([]*model.AccountMembership, error)
}

// Input limits, matching the column sizes of the schema and bcrypt's
// maximum input length.
const (
	maxNameLen       = 120
	maxEmailLen      = 255
	maxPasswordBytes = 72
)

// tooLong reports whether s holds more than max characters.
func tooLong(s string, max int) bool { return utf8.RuneCountInString(s) > max }

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }
