package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finapp/internal/middleware"
	"github.com/iliyamo/finapp/internal/model"
	q "github.com/iliyamo/finapp/internal/queue"
	"github.com/iliyamo/finapp/internal/repository"
	"github.com/iliyamo/finapp/internal/response"
	"github.com/iliyamo/finapp/internal/service"
)

// AccountHandler serves /accounts.  Ownership of :id is enforced by the
// route guards before these handlers run.
type AccountHandler struct {
	Accounts AccountStore
	Events   service.EventPublisher
	Log      *slog.Logger
}

func NewAccountHandler(accounts AccountStore, events service.EventPublisher, log *slog.Logger) *AccountHandler {
	if events == nil {
		events = service.NopPublisher{}
	}
	return &AccountHandler{Accounts: accounts, Events: events, Log: log}
}

type createAccountReq struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type updateAccountReq struct {
	Name *string `json:"name"`
	Type *string `json:"type"`
}

// List returns every account.  The route is ADMIN only.
func (h *AccountHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	accounts, err := h.Accounts.List(ctx)
	if err != nil {
		h.Log.Error("accounts: list failed", "err", err)
		return response.Fail(c, http.StatusInternalServerError, "Failed to fetch accounts")
	}
	return response.OK(c, "Accounts fetched successfully", accounts)
}

// Get returns one account.
func (h *AccountHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	a, err := h.Accounts.GetByID(ctx, c.Param("id"))
	if err != nil {
		return h.storeError(c, "get", err)
	}
	return response.OK(c, "Account fetched successfully", a)
}

// Create inserts an account and makes the caller its OWNER in the same
// transaction.
func (h *AccountHandler) Create(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return response.Fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	var req createAccountReq
	if err := c.Bind(&req); err != nil {
		return response.Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return response.Fail(c, http.StatusBadRequest, "Account name is required")
	}
	if tooLong(name, maxNameLen) {
		return response.Fail(c, http.StatusBadRequest, "Account name is too long")
	}
	typ := model.AccountPersonal
	if req.Type != "" {
		typ = model.AccountType(strings.ToUpper(strings.TrimSpace(req.Type)))
		if !typ.Valid() {
			return response.Fail(c, http.StatusBadRequest, "Account type must be PERSONAL or SHARED")
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	a := &model.Account{Name: name, Type: typ}
	if err := h.Accounts.CreateWithOwner(ctx, a, p.ID); err != nil {
		h.Log.Error("accounts: create failed", "user_id", p.ID, "err", err)
		return response.Fail(c, http.StatusInternalServerError, "Failed to create account")
	}

	h.publish(c, q.AccountCreated, p, a)
	return response.Created(c, "Account created successfully", a)
}

// Update applies a partial update.  At least one of name and type must be
// present.
func (h *AccountHandler) Update(c echo.Context) error {
	var req updateAccountReq
	if err := c.Bind(&req); err != nil {
		return response.Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	var patch model.AccountPatch
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return response.Fail(c, http.StatusBadRequest, "Account name must not be empty")
		}
		if tooLong(name, maxNameLen) {
			return response.Fail(c, http.StatusBadRequest, "Account name is too long")
		}
		patch.Name = &name
	}
	if req.Type != nil {
		typ := model.AccountType(strings.ToUpper(strings.TrimSpace(*req.Type)))
		if !typ.Valid() {
			return response.Fail(c, http.StatusBadRequest, "Account type must be PERSONAL or SHARED")
		}
		patch.Type = &typ
	}
	if patch.Empty() {
		return response.Fail(c, http.StatusBadRequest, "Nothing to update")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	a, err := h.Accounts.Update(ctx, c.Param("id"), patch)
	if err != nil {
		return h.storeError(c, "update", err)
	}
	if p, ok := middleware.PrincipalFrom(c); ok {
		h.publish(c, q.AccountUpdated, p, a)
	}
	return response.OK(c, "Account updated successfully", a)
}

// Delete removes an account together with its relations.
func (h *AccountHandler) Delete(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id := c.Param("id")
	a, err := h.Accounts.GetByID(ctx, id)
	if err != nil {
		return h.storeError(c, "delete", err)
	}
	if err := h.Accounts.Delete(ctx, id); err != nil {
		return h.storeError(c, "delete", err)
	}
	if p, ok := middleware.PrincipalFrom(c); ok {
		h.publish(c, q.AccountDeleted, p, a)
	}
	return response.OK(c, "Account deleted successfully", nil)
}

func (h *AccountHandler) storeError(c echo.Context, op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return response.Fail(c, http.StatusNotFound, "Account not found")
	}
	h.Log.Error("accounts: "+op+" failed", "account_id", c.Param("id"), "err", err)
	return response.Fail(c, http.StatusInternalServerError, "Server error")
}

func (h *AccountHandler) publish(c echo.Context, typ string, p model.Principal, a *model.Account) {
	_ = h.Events.Publish(c.Request().Context(), q.AuditEvent{
		Type:        typ,
		ActorID:     p.ID,
		AccountID:   a.ID,
		AccountName: a.Name,
		AccountType: string(a.Type),
		OccurredAt:  nowRFC3339(),
	})
}
