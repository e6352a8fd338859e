package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/finapp/internal/model"
	"github.com/iliyamo/finapp/internal/utils"
)

var (
	testCodec = utils.NewTokenCodec("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	discard   = slog.New(slog.NewTextHandler(io.Discard, nil))

	userAlice = model.Principal{ID: "u-alice", Name: "Alice", Role: model.RoleUser}
	userBob   = model.Principal{ID: "u-bob", Name: "Bob", Role: model.RoleUser}
	admin     = model.Principal{ID: "u-admin", Name: "Root", Role: model.RoleAdmin}
)

func accessCookie(t *testing.T, p model.Principal) *http.Cookie {
	t.Helper()
	tok, err := testCodec.IssueAccess(p)
	require.NoError(t, err)
	return &http.Cookie{Name: AccessCookie, Value: tok.Token}
}

// okHandler echoes the principal attached to the request.
func okHandler(c echo.Context) error {
	p, _ := PrincipalFrom(c)
	return c.JSON(http.StatusOK, p)
}

func do(t *testing.T, e *echo.Echo, method, path string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}
