package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finapp/internal/model"
	"github.com/iliyamo/finapp/internal/repository"
	"github.com/iliyamo/finapp/internal/response"
)

// UserHandler serves /users.
type UserHandler struct {
	Users    UserStore
	Accounts AccountStore
	Log      *slog.Logger
}

func NewUserHandler(users UserStore, accounts AccountStore, log *slog.Logger) *UserHandler {
	return &UserHandler{Users: users, Accounts: accounts, Log: log}
}

// List returns every user.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		h.Log.Error("users: list failed", "err", err)
		return response.Fail(c, http.StatusInternalServerError, "Failed to fetch users")
	}
	return response.OK(c, "Users fetched successfully", users)
}

// Get returns one user.
func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		return h.lookupError(c, err)
	}
	return response.OK(c, "User fetched successfully", u)
}

// GetAccounts returns a user together with the accounts they belong to.
func (h *UserHandler) GetAccounts(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		return h.lookupError(c, err)
	}
	accounts, err := h.Accounts.ListForUser(ctx, u.ID)
	if err != nil {
		h.Log.Error("users: list accounts failed", "user_id", u.ID, "err", err)
		return response.Fail(c, http.StatusInternalServerError, "Failed to fetch user accounts")
	}
	if accounts == nil {
		accounts = []*model.AccountMembership{}
	}
	return response.OK(c, "User accounts fetched successfully", model.UserWithAccounts{User: *u, Accounts: accounts})
}

func (h *UserHandler) lookupError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return response.Fail(c, http.StatusNotFound, "User not found")
	}
	h.Log.Error("users: lookup failed", "user_id", c.Param("id"), "err", err)
	return response.Fail(c, http.StatusInternalServerError, "Failed to fetch user")
}
