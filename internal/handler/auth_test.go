package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/finapp/internal/middleware"
	"github.com/iliyamo/finapp/internal/model"
	q "github.com/iliyamo/finapp/internal/queue"
	"github.com/iliyamo/finapp/internal/utils"
)

func TestRegister(t *testing.T) {
	env := newEnv(t)

	rec, body := serve(t, env.auth.Register, call{
		method: http.MethodPost,
		body:   `{"email":"  Alice@Example.COM ","password":"s3cret","name":"Alice"}`,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, body.Success)
	assert.NotContains(t, rec.Body.String(), "s3cret")
	assert.NotContains(t, rec.Body.String(), "password")

	var u model.User
	require.NoError(t, json.Unmarshal(body.Data, &u))
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.NotEmpty(t, u.ID)

	stored, err := env.store.Users().GetByEmail(t.Context(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, utils.VerifyPassword(stored.PasswordHash, "s3cret"))

	require.Len(t, env.events.Events, 1)
	assert.Equal(t, q.UserRegistered, env.events.Events[0].Type)
	assert.Equal(t, u.ID, env.events.Events[0].UserID)
}

func TestRegister_Validation(t *testing.T) {
	env := newEnv(t)

	for name, payload := range map[string]string{
		"missing name":     `{"email":"a@x.com","password":"pw"}`,
		"missing email":    `{"password":"pw","name":"A"}`,
		"missing password": `{"email":"a@x.com","name":"A"}`,
		"blank email":      `{"email":"   ","password":"pw","name":"A"}`,
		"not json":         `{"email":`,
	} {
		t.Run(name, func(t *testing.T) {
			rec, body := serve(t, env.auth.Register, call{method: http.MethodPost, body: payload})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, body.Success)
			assert.Equal(t, "null", string(body.Data))
		})
	}
	assert.Empty(t, env.events.Events)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newEnv(t)
	env.seedUser(t, "alice@example.com", "pw", model.RoleUser)

	rec, body := serve(t, env.auth.Register, call{
		method: http.MethodPost,
		body:   `{"email":"ALICE@example.com","password":"other","name":"Alice 2"}`,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, body.Success)
}

func TestRegister_TooLong(t *testing.T) {
	env := newEnv(t)

	for name, payload := range map[string]string{
		"password over 72 bytes": `{"email":"a@x.com","name":"A","password":"` + strings.Repeat("a", 73) + `"}`,
		"name over 120 chars":    `{"email":"a@x.com","name":"` + strings.Repeat("n", 121) + `","password":"pw"}`,
		"email over 255 chars":   `{"email":"` + strings.Repeat("e", 250) + `@x.com","name":"A","password":"pw"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec, body := serve(t, env.auth.Register, call{method: http.MethodPost, body: payload})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, body.Success)
		})
	}

	users, err := env.store.Users().List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, users)

	// The limits are inclusive.
	rec, _ := serve(t, env.auth.Register, call{
		method: http.MethodPost,
		body:   `{"email":"a@x.com","name":"` + strings.Repeat("n", 120) + `","password":"` + strings.Repeat("a", 72) + `"}`,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestLogin(t *testing.T) {
	env := newEnv(t)
	u := env.seedUser(t, "alice@example.com", "s3cret", model.RoleUser)

	rec, body := serve(t, env.auth.Login, call{
		method: http.MethodPost,
		body:   `{"email":"alice@example.com","password":"s3cret"}`,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Login successful", body.Message)

	var tokens loginResp
	require.NoError(t, json.Unmarshal(body.Data, &tokens))

	p, err := env.codec.Verify(tokens.AccessToken, utils.AccessKind)
	require.NoError(t, err)
	assert.Equal(t, model.Principal{ID: u.ID, Name: u.Name, Role: model.RoleUser}, p)
	_, err = env.codec.Verify(tokens.RefreshToken, utils.RefreshKind)
	require.NoError(t, err)

	access := cookieByName(rec, middleware.AccessCookie)
	require.NotNil(t, access)
	assert.Equal(t, tokens.AccessToken, access.Value)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteStrictMode, access.SameSite)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, 15*60, access.MaxAge)

	refresh := cookieByName(rec, middleware.RefreshCookie)
	require.NotNil(t, refresh)
	assert.Equal(t, tokens.RefreshToken, refresh.Value)
	assert.Equal(t, 7*24*3600, refresh.MaxAge)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	env := newEnv(t)
	env.seedUser(t, "alice@example.com", "s3cret", model.RoleUser)

	wrongPw, wrongBody := serve(t, env.auth.Login, call{
		method: http.MethodPost,
		body:   `{"email":"alice@example.com","password":"nope"}`,
	})
	noUser, noUserBody := serve(t, env.auth.Login, call{
		method: http.MethodPost,
		body:   `{"email":"ghost@example.com","password":"nope"}`,
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	assert.Equal(t, wrongPw.Code, noUser.Code)
	assert.Equal(t, wrongBody, noUserBody)
	assert.Equal(t, "Invalid credentials", wrongBody.Message)
	assert.Nil(t, cookieByName(wrongPw, middleware.AccessCookie))
	assert.Nil(t, cookieByName(noUser, middleware.AccessCookie))
}

func TestLogin_MissingFields(t *testing.T) {
	env := newEnv(t)

	rec, body := serve(t, env.auth.Login, call{method: http.MethodPost, body: `{"email":"a@x.com"}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email and password are required", body.Message)
}

func TestRefresh(t *testing.T) {
	env := newEnv(t)
	u := env.seedUser(t, "alice@example.com", "pw", model.RoleAdmin)

	// The token predates a promotion; the refreshed token follows the store.
	refreshTok, err := env.codec.IssueRefresh(model.Principal{ID: u.ID, Name: u.Name, Role: model.RoleUser})
	require.NoError(t, err)

	rec, body := serve(t, env.auth.Refresh, call{
		method:  http.MethodPost,
		cookies: []*http.Cookie{{Name: middleware.RefreshCookie, Value: refreshTok.Token}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out refreshResp
	require.NoError(t, json.Unmarshal(body.Data, &out))
	p, err := env.codec.Verify(out.AccessToken, utils.AccessKind)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, p.Role)

	ck := cookieByName(rec, middleware.AccessCookie)
	require.NotNil(t, ck)
	assert.Equal(t, out.AccessToken, ck.Value)
	assert.Nil(t, cookieByName(rec, middleware.RefreshCookie), "refresh token is not rotated")
}

func TestRefresh_Rejections(t *testing.T) {
	env := newEnv(t)
	u := env.seedUser(t, "alice@example.com", "pw", model.RoleUser)
	access, err := env.codec.IssueAccess(*principalOf(u))
	require.NoError(t, err)
	gone := env.seedUser(t, "gone@example.com", "pw", model.RoleUser)
	orphan, err := env.codec.IssueRefresh(*principalOf(gone))
	require.NoError(t, err)
	require.NoError(t, env.store.Users().Delete(t.Context(), gone.ID))

	rec, _ := serve(t, env.auth.Refresh, call{method: http.MethodPost})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// An access token is signed with the other secret.
	rec, body := serve(t, env.auth.Refresh, call{
		method:  http.MethodPost,
		cookies: []*http.Cookie{{Name: middleware.RefreshCookie, Value: access.Token}},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid refresh token", body.Message)

	rec, body = serve(t, env.auth.Refresh, call{
		method:  http.MethodPost,
		cookies: []*http.Cookie{{Name: middleware.RefreshCookie, Value: orphan.Token}},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "User not found", body.Message)
}

func TestLogout(t *testing.T) {
	env := newEnv(t)

	rec, body := serve(t, env.auth.Logout, call{method: http.MethodPost})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)

	for _, name := range []string{middleware.AccessCookie, middleware.RefreshCookie} {
		ck := cookieByName(rec, name)
		require.NotNil(t, ck, name)
		assert.Empty(t, ck.Value)
		assert.Equal(t, -1, ck.MaxAge)
	}
}

func TestMe(t *testing.T) {
	env := newEnv(t)
	p := model.Principal{ID: "u-1", Name: "Alice", Role: model.RoleUser}

	rec, body := serve(t, env.auth.Me, call{principal: &p})
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Principal
	require.NoError(t, json.Unmarshal(body.Data, &got))
	assert.Equal(t, p, got)

	rec, _ = serve(t, env.auth.Me, call{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
