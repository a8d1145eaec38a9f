package echoapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == authCookieName {
			return c
		}
	}
	return nil
}

func idForm(key string, id int64, kv ...string) url.Values {
	form := url.Values{key: {strconv.FormatInt(id, 10)}}
	for i := 0; i+1 < len(kv); i += 2 {
		form.Add(kv[i], kv[i+1])
	}
	return form
}

func TestServer_loginPage(t *testing.T) {
	app := setup(t)
	ada := app.createUser(t, "ada", "482913", false)
	bob := app.createUser(t, "bob", "", false)

	runHTTPTests(t, app, []httpTest{
		{name: "lists users", path: "/login", wantContains: []string{"ada", "bob", `name="user_id"`}},
		{name: "logged in", path: "/login", token: app.token(t, ada), wantCode: http.StatusSeeOther, wantLocation: "/kholles"},
		{
			name: "select user with code", method: http.MethodPost, path: "/login/select", htmx: true,
			form: idForm("user_id", ada.ID), wantContains: []string{"Bonjour ada", `hx-post="/login/code"`},
		},
		{
			name: "select user without code", method: http.MethodPost, path: "/login/select", htmx: true,
			form: idForm("user_id", bob.ID), wantContains: []string{"Bonjour bob", `hx-post="/login/initialize"`, "code_confirm"},
		},
		{
			name: "select unknown user", method: http.MethodPost, path: "/login/select", htmx: true,
			form: idForm("user_id", 999), wantCode: http.StatusNotFound,
		},
		{
			name: "select invalid id", method: http.MethodPost, path: "/login/select", htmx: true,
			form: url.Values{"user_id": {"lol"}}, wantCode: http.StatusBadRequest, wantContains: []string{"invalid id"},
		},
	})
}

func TestServer_login(t *testing.T) {
	app := setup(t)
	ada := app.createUser(t, "ada", "482913", false)
	bob := app.createUser(t, "bob", "", false)

	tests := []httpTest{
		{
			name: "invalid format", form: idForm("user_id", ada.ID, "code", "12"),
			wantCode: http.StatusBadRequest, wantContains: []string{"the code must contain exactly 6 digits"},
		},
		{
			name: "wrong code", form: idForm("user_id", ada.ID, "code", "111112"),
			wantCode: http.StatusBadRequest, wantContains: []string{"code incorrect"},
		},
		{name: "unknown user", form: idForm("user_id", 999, "code", "482913"), wantCode: http.StatusNotFound},
		{name: "code not initialized", form: idForm("user_id", bob.ID, "code", "482913"), wantCode: http.StatusBadRequest},
		{name: "logged in", form: idForm("user_id", ada.ID, "code", "482913"), wantLocation: "/kholles"},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/login/code"
		tt.htmx = true

		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt)
			checkResponse(t, tt, rec)

			cookie := authCookie(rec)
			if tt.wantLocation == "" {
				assert.Nil(t, cookie)
				return
			}
			require.NotNil(t, cookie)
			assert.True(t, cookie.HttpOnly)

			claims, err := app.srv.auth.optionalClaims(echo.New().NewContext(cookieRequest(cookie), nil))
			require.NoError(t, err)
			assert.Equal(t, ada.ID, claims.UserID())
			assert.Equal(t, "ada", claims.Username)
		})
	}

	usr, err := app.UserSvc.GetByID(context.Background(), ada.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), usr.LastLogin, time.Minute)
}

func TestServer_initializeCode(t *testing.T) {
	app := setup(t)
	ada := app.createUser(t, "ada", "482913", false)
	bob := app.createUser(t, "bob", "", false)

	tests := []httpTest{
		{
			name: "confirmation mismatch", form: idForm("user_id", bob.ID, "code", "839201", "code_confirm", "839202"),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "common code", form: idForm("user_id", bob.ID, "code", "123456", "code_confirm", "123456"),
			wantCode: http.StatusBadRequest, wantContains: []string{"this code is too easy to guess"},
		},
		{
			name: "already initialized", form: idForm("user_id", ada.ID, "code", "839201", "code_confirm", "839201"),
			wantCode: http.StatusConflict,
		},
		{name: "initialized", form: idForm("user_id", bob.ID, "code", "839201", "code_confirm", "839201"), wantLocation: "/kholles"},
		{
			name: "only once", form: idForm("user_id", bob.ID, "code", "730914", "code_confirm", "730914"),
			wantCode: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/login/initialize"
		tt.htmx = true

		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt)
			checkResponse(t, tt, rec)
			assert.Equal(t, tt.wantLocation != "", authCookie(rec) != nil)
		})
	}

	_, err := app.UserSvc.Authenticate(context.Background(), bob.ID, "839201")
	assert.NoError(t, err)
}

func TestServer_logout(t *testing.T) {
	app := setup(t)
	ada := app.createUser(t, "ada", "482913", false)

	tt := httpTest{method: http.MethodPost, path: "/logout", token: app.token(t, ada), wantCode: http.StatusSeeOther, wantLocation: "/login"}
	rec := app.do(tt)
	checkResponse(t, tt, rec)

	cookie := authCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.MaxAge < 0)
}

func TestIPRateLimiter(t *testing.T) {
	e := echo.New()
	limiter := newIPRateLimiter(time.Hour, 2)
	e.POST("/", func(ctx echo.Context) error { return ctx.NoContent(http.StatusNoContent) }, limiter.middleware())

	post := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, post("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, post("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, post("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, post("10.0.0.2"), "limits are per client")
}
