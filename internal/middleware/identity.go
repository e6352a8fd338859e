package middleware

// identity.go defines the context keys shared across middleware and
// handlers.  JWTAuth stores the verified principal under principalKey and
// mirrors its id and role under "user_id" and "role" for the rate
// limiter and request logs.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finapp/internal/model"
)

const principalKey = "principal"

// SetPrincipal attaches p to the request context.
func SetPrincipal(c echo.Context, p model.Principal) {
	c.Set(principalKey, p)
	c.Set("user_id", p.ID)
	c.Set("role", string(p.Role))
}

// PrincipalFrom returns the principal attached by JWTAuth.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok && p.ID != ""
}

// currentUserID returns the authenticated user id, or "anon".
func currentUserID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return p.ID
	}
	return "anon"
}
