package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/finapp/internal/config"
	"github.com/iliyamo/finapp/internal/middleware"
	"github.com/iliyamo/finapp/internal/model"
	"github.com/iliyamo/finapp/internal/repository"
	"github.com/iliyamo/finapp/internal/service"
	"github.com/iliyamo/finapp/internal/utils"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	store    *repository.MemoryStore
	codec    *utils.TokenCodec
	events   *service.Recorder
	auth     *AuthHandler
	accounts *AccountHandler
	users    *UserHandler
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	codec := utils.NewTokenCodec("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	events := &service.Recorder{}
	cfg := config.Config{BcryptCost: bcrypt.MinCost, CookieSecure: true}

	auth, err := NewAuthHandler(cfg, store.Users(), codec, events, discard)
	require.NoError(t, err)
	return &testEnv{
		store:    store,
		codec:    codec,
		events:   events,
		auth:     auth,
		accounts: NewAccountHandler(store.Accounts(), events, discard),
		users:    NewUserHandler(store.Users(), store.Accounts(), discard),
	}
}

// seedUser stores a user with the given password and returns it.
func (env *testEnv) seedUser(t *testing.T, email, password string, role model.Role) *model.User {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{Name: strings.Split(email, "@")[0], Email: email, PasswordHash: hash, Role: role}
	require.NoError(t, env.store.Users().Create(context.Background(), u))
	return u
}

type call struct {
	method    string
	body      string
	id        string
	principal *model.Principal
	cookies   []*http.Cookie
}

// serve runs h directly against a fresh Echo context.
func serve(t *testing.T, h echo.HandlerFunc, in call) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	if in.method == "" {
		in.method = http.MethodGet
	}
	req := httptest.NewRequest(in.method, "/", strings.NewReader(in.body))
	if in.body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, ck := range in.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if in.id != "" {
		c.SetParamNames("id")
		c.SetParamValues(in.id)
	}
	if in.principal != nil {
		middleware.SetPrincipal(c, *in.principal)
	}
	require.NoError(t, h(c))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func principalOf(u *model.User) *model.Principal {
	return &model.Principal{ID: u.ID, Name: u.Name, Role: u.Role}
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}
