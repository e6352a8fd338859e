// Package router builds the Echo instance and registers every route with
// its guards.
package router

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/finapp/internal/config"
	"github.com/iliyamo/finapp/internal/handler"
	"github.com/iliyamo/finapp/internal/middleware"
	"github.com/iliyamo/finapp/internal/model"
	"github.com/iliyamo/finapp/internal/response"
	"github.com/iliyamo/finapp/internal/service"
	"github.com/iliyamo/finapp/internal/utils"
)

// Deps are the collaborators the routes need.  Redis may be nil, in which
// case rate limiting is skipped.
type Deps struct {
	Config    config.Config
	RateLimit config.RateLimitConfig
	Redis     redis.Scripter
	Users     handler.UserStore
	Accounts  handler.AccountStore
	Owners    middleware.OwnershipResolver
	Tokens    *utils.TokenCodec
	Events    service.EventPublisher
	Log       *slog.Logger
}

// New returns a fully wired Echo instance.
func New(d Deps) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = response.ErrorHandler(d.Log)

	e.Use(echomw.Recover())
	e.Use(requestLogger(d.Log))
	e.Use(echomw.CORSWithConfig(corsConfig(d.Config.CORSOrigins)))

	auth, err := handler.NewAuthHandler(d.Config, d.Users, d.Tokens, d.Events, d.Log)
	if err != nil {
		return nil, err
	}

	RegisterRoutes(e)
	RegisterAuth(e, auth, d)
	RegisterAccounts(e, handler.NewAccountHandler(d.Accounts, d.Events, d.Log), d)
	RegisterUsers(e, handler.NewUserHandler(d.Users, d.Accounts, d.Log), d)
	return e, nil
}

// RegisterRoutes registers the unauthenticated status endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/api", handler.Welcome)
}

// RegisterAuth registers /api/auth.  Credential endpoints are rate
// limited; /me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, d Deps) {
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)

	g := e.Group("/api/auth")
	g.POST("/register", a.Register, limit)
	g.POST("/login", a.Login, limit)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.JWTAuth(d.Tokens))
}

// RegisterAccounts registers /api/accounts.  Listing is ADMIN only; any
// authenticated user may create; :id routes need ADMIN or ownership.
func RegisterAccounts(e *echo.Echo, a *handler.AccountHandler, d Deps) {
	g := e.Group("/api/accounts", middleware.JWTAuth(d.Tokens))

	owned := []echo.MiddlewareFunc{
		middleware.RequireRoles(middleware.Role(model.RoleAdmin), middleware.Role(model.RoleUser)),
		middleware.RequireAccountOwner(d.Owners, d.Log),
	}

	g.GET("", a.List, middleware.RequireRoles(middleware.Role(model.RoleAdmin)))
	g.POST("", a.Create)
	g.GET("/:id", a.Get, owned...)
	g.PATCH("/:id", a.Update, owned...)
	g.DELETE("/:id", a.Delete, owned...)
}

// RegisterUsers registers /api/users.  A USER may only read their own
// record.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, d Deps) {
	g := e.Group("/api/users", middleware.JWTAuth(d.Tokens))

	self := middleware.RequireRoles(middleware.Role(model.RoleAdmin), middleware.StrictRole(model.RoleUser))

	g.GET("", u.List, middleware.RequireRoles(middleware.Role(model.RoleAdmin)))
	g.GET("/:id", u.Get, self)
	g.GET("/:id/accounts", u.GetAccounts, self)
}

func corsConfig(origins []string) echomw.CORSConfig {
	cfg := echomw.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept},
	}
	// Credentials cannot be combined with a wildcard origin.
	if len(origins) > 0 && !(len(origins) == 1 && origins[0] == "*") {
		cfg.AllowCredentials = true
	}
	return cfg
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if uid, ok := c.Get("user_id").(string); ok {
				attrs = append(attrs, "user_id", uid)
			}
			if v.Error != nil {
				log.Error("request", append(attrs, "err", v.Error)...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	})
}
