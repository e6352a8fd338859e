package middleware // middleware provides shared request processing for handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finapp/internal/model"
	"github.com/iliyamo/finapp/internal/response"
)

// RoleRequirement accepts one role on a route.  A strict requirement also
// restricts principals of that role to the resource whose path id equals
// their own id.  Build values with Role and StrictRole.
type RoleRequirement struct {
	role   model.Role
	strict bool
}

// Role accepts principals with role r on any resource.
func Role(r model.Role) RoleRequirement { return RoleRequirement{role: r} }

// StrictRole accepts principals with role r only on their own id.
func StrictRole(r model.Role) RoleRequirement { return RoleRequirement{role: r, strict: true} }

var (
	ErrRoleNotAllowed   = errors.New("role not allowed")
	ErrStrictSelfAccess = errors.New("strict mode: self access only")
)

// Gate is a compiled set of role requirements.  It holds no per-request
// state and is safe for concurrent use.
type Gate struct {
	strict map[model.Role]bool // accepted role -> strict
}

// NewRoleGate compiles reqs.  When the same role is listed twice the
// strict variant wins.
func NewRoleGate(reqs ...RoleRequirement) Gate {
	g := Gate{strict: make(map[model.Role]bool, len(reqs))}
	for _, r := range reqs {
		g.strict[r.role] = g.strict[r.role] || r.strict
	}
	return g
}

// Decide reports whether p may access the resource identified by paramID.
func (g Gate) Decide(p model.Principal, paramID string) error {
	strict, ok := g.strict[p.Role]
	if !ok {
		return ErrRoleNotAllowed
	}
	if strict && (paramID == "" || paramID != p.ID) {
		return ErrStrictSelfAccess
	}
	return nil
}

// RequireRoles returns a middleware that enforces reqs against the
// principal attached by JWTAuth and the :id path parameter.  Rejections
// end the request with 403.
func RequireRoles(reqs ...RoleRequirement) echo.MiddlewareFunc {
	gate := NewRoleGate(reqs...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return response.Fail(c, http.StatusUnauthorized, "Unauthorized")
			}
			switch err := gate.Decide(p, c.Param("id")); {
			case errors.Is(err, ErrStrictSelfAccess):
				return response.Fail(c, http.StatusForbidden, "Forbidden: Strict mode enforced, access denied.")
			case err != nil:
				return response.Fail(c, http.StatusForbidden, "Forbidden: You are not authorized to access this resource.")
			}
			return next(c)
		}
	}
}
