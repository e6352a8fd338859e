package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finapp/internal/config"
	"github.com/iliyamo/finapp/internal/middleware"
	"github.com/iliyamo/finapp/internal/model"
	q "github.com/iliyamo/finapp/internal/queue"
	"github.com/iliyamo/finapp/internal/repository"
	"github.com/iliyamo/finapp/internal/response"
	"github.com/iliyamo/finapp/internal/service"
	"github.com/iliyamo/finapp/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Users  UserStore
	Tokens *utils.TokenCodec
	Events service.EventPublisher
	Log    *slog.Logger

	bcryptCost   int
	cookieSecure bool
	// dummyHash is compared against when the email is unknown so that
	// both login failures cost one bcrypt comparison.
	dummyHash string
}

func NewAuthHandler(cfg config.Config, users UserStore, tokens *utils.TokenCodec, events service.EventPublisher, log *slog.Logger) (*AuthHandler, error) {
	dummy, err := utils.HashPassword("finapp-login-placeholder", cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = service.NopPublisher{}
	}
	return &AuthHandler{
		Users:        users,
		Tokens:       tokens,
		Events:       events,
		Log:          log,
		bcryptCost:   cfg.BcryptCost,
		cookieSecure: cfg.CookieSecure,
		dummyHash:    dummy,
	}, nil
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginResp struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
type refreshResp struct {
	AccessToken string `json:"accessToken"`
}

// Register creates a USER account.  Tokens are not issued; clients log in
// afterwards.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return response.Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = repository.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return response.Fail(c, http.StatusBadRequest, "All fields are required")
	}
	if tooLong(req.Name, maxNameLen) || tooLong(req.Email, maxEmailLen) {
		return response.Fail(c, http.StatusBadRequest, "Name or email is too long")
	}
	if len(req.Password) > maxPasswordBytes {
		return response.Fail(c, http.StatusBadRequest, "Password must be at most 72 bytes")
	}

	hash, err := utils.HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		h.Log.Error("register: hash password failed", "err", err)
		return response.Fail(c, http.StatusInternalServerError, "Error registering user")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u := &model.User{Name: req.Name, Email: req.Email, PasswordHash: hash, Role: model.RoleUser}
	if err := h.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return response.Fail(c, http.StatusConflict, "Email already registered")
		}
		h.Log.Error("register: create user failed", "err", err)
		return response.Fail(c, http.StatusInternalServerError, "Error registering user")
	}

	_ = h.Events.Publish(ctx, q.AuditEvent{
		Type:       q.UserRegistered,
		UserID:     u.ID,
		Email:      u.Email,
		OccurredAt: nowRFC3339(),
	})
	return response.Created(c, "User registered successfully", u)
}

// Login verifies credentials and sets the access and refresh cookies.  An
// unknown email and a wrong password produce the same response.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return response.Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return response.Fail(c, http.StatusBadRequest, "Email and password are required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.Log.Error("login: lookup failed", "err", err)
		return response.Fail(c, http.StatusInternalServerError, "Error logging in")
	}
	if u == nil {
		utils.VerifyPassword(h.dummyHash, req.Password)
		return response.Fail(c, http.StatusUnauthorized, "Invalid credentials")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return response.Fail(c, http.StatusUnauthorized, "Invalid credentials")
	}

	p := model.Principal{ID: u.ID, Name: u.Name, Role: u.Role}
	access, err := h.Tokens.IssueAccess(p)
	if err != nil {
		h.Log.Error("login: issue access failed", "err", err)
		return response.Fail(c, http.StatusInternalServerError, "Error logging in")
	}
	refresh, err := h.Tokens.IssueRefresh(p)
	if err != nil {
		h.Log.Error("login: issue refresh failed", "err", err)
		return response.Fail(c, http.StatusInternalServerError, "Error logging in")
	}

	c.SetCookie(h.cookie(middleware.AccessCookie, access.Token, h.Tokens.AccessTTL()))
	c.SetCookie(h.cookie(middleware.RefreshCookie, refresh.Token, h.Tokens.RefreshTTL()))
	return response.OK(c, "Login successful", loginResp{AccessToken: access.Token, RefreshToken: refresh.Token})
}

// Refresh issues a new access token from the refresh cookie.  The claims
// are rebuilt from the stored user so name and role changes take effect.
// The refresh token itself is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ck, err := c.Cookie(middleware.RefreshCookie)
	if err != nil || ck.Value == "" {
		return response.Fail(c, http.StatusUnauthorized, "Unauthorized: No refresh token")
	}
	holder, err := h.Tokens.Verify(ck.Value, utils.RefreshKind)
	if err != nil {
		return response.Fail(c, http.StatusForbidden, "Invalid refresh token")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, holder.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.Fail(c, http.StatusForbidden, "User not found")
		}
		h.Log.Error("refresh: load user failed", "err", err)
		return response.Fail(c, http.StatusInternalServerError, "Error refreshing token")
	}

	access, err := h.Tokens.IssueAccess(model.Principal{ID: u.ID, Name: u.Name, Role: u.Role})
	if err != nil {
		h.Log.Error("refresh: issue access failed", "err", err)
		return response.Fail(c, http.StatusInternalServerError, "Error refreshing token")
	}
	c.SetCookie(h.cookie(middleware.AccessCookie, access.Token, h.Tokens.AccessTTL()))
	return response.OK(c, "Token refreshed", refreshResp{AccessToken: access.Token})
}

// Logout expires both cookies.  Tokens already handed out stay valid
// until their exp.
func (h *AuthHandler) Logout(c echo.Context) error {
	for _, name := range []string{middleware.AccessCookie, middleware.RefreshCookie} {
		ck := h.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		c.SetCookie(ck)
	}
	return response.OK(c, "Logged out successfully", nil)
}

// Me returns the principal carried by the access token.
func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return response.Fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	return response.OK(c, "Authenticated", p)
}

func (h *AuthHandler) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}
