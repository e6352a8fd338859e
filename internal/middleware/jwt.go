package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finapp/internal/model"
	"github.com/iliyamo/finapp/internal/response"
	"github.com/iliyamo/finapp/internal/utils"
)

// AccessCookie and RefreshCookie name the cookies that carry the tokens.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// TokenVerifier is the part of the token codec the middleware needs.
type TokenVerifier interface {
	Verify(raw string, kind utils.TokenKind) (model.Principal, error)
}

// JWTAuth returns an Echo middleware that reads the access token from the
// access_token cookie, verifies it and attaches the principal to the
// request.  Tokens are accepted from the cookie only; an Authorization
// header is ignored.  A missing cookie is 401, any verification failure
// is 403.
func JWTAuth(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(AccessCookie)
			if err != nil || ck.Value == "" {
				return response.Fail(c, http.StatusUnauthorized, "Unauthorized")
			}
			p, err := v.Verify(ck.Value, utils.AccessKind)
			if err != nil {
				return response.Fail(c, http.StatusForbidden, "Invalid or expired token")
			}
			SetPrincipal(c, p)
			return next(c)
		}
	}
}
