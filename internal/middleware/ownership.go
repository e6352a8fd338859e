package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finapp/internal/response"
)

// OwnershipResolver answers whether a user owns an account.
type OwnershipResolver interface {
	IsOwner(ctx context.Context, accountID, userID string) (bool, error)
}

// RequireAccountOwner lets ADMIN principals through and requires every
// other principal to hold the OWNER relation on the account named by the
// :id path parameter.  This is a relation lookup, separate from the
// strict self-access rule of RequireRoles.
func RequireAccountOwner(resolver OwnershipResolver, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return response.Fail(c, http.StatusUnauthorized, "Unauthorized")
			}
			if p.IsAdmin() {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			owner, err := resolver.IsOwner(ctx, c.Param("id"), p.ID)
			if err != nil {
				log.ErrorContext(ctx, "ownership lookup failed", "account_id", c.Param("id"), "user_id", p.ID, "err", err)
				return response.Fail(c, http.StatusInternalServerError, "Internal server error")
			}
			if !owner {
				return response.Fail(c, http.StatusForbidden, "Forbidden: You do not own this account.")
			}
			return next(c)
		}
	}
}
