package echoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khollendar/core/kholle"
	"github.com/trezcool/khollendar/core/user"
	"github.com/trezcool/khollendar/services/scheduler"
	testutil "github.com/trezcool/khollendar/tests"
)

const testCSRF = "test-csrf-token"

type fakeTrigger struct {
	report scheduler.Report
	calls  int
}

func (f *fakeTrigger) Trigger(context.Context) (scheduler.Report, error) {
	f.calls++
	return f.report, nil
}

type testApp struct {
	*testutil.Deps
	srv     *Server
	trigger *fakeTrigger
}

func setup(t *testing.T) *testApp {
	t.Helper()
	deps := testutil.NewMemoryDeps(t)
	trigger := &fakeTrigger{report: scheduler.Report{Processed: 2, Skipped: 1}}

	srv, err := NewServer(ServerDeps{
		Conf:       deps.Conf,
		Logger:     deps.Logger,
		UserSvc:    deps.UserSvc,
		KholleSvc:  deps.KholleSvc,
		Wizard:     deps.Wizard,
		Assigner:   trigger,
		Validate:   deps.Validate,
		Translator: deps.Translator,
	})
	require.NoError(t, err)
	return &testApp{Deps: deps, srv: srv, trigger: trigger}
}

func (app *testApp) createUser(t *testing.T, uname, code string, isAdmin bool) user.User {
	return testutil.CreateUser(t, app.UserRepo, uname, code, isAdmin)
}

// createSession stores an open session whose slots start days from now.
func (app *testApp) createSession(t *testing.T, subject string, days ...int) kholle.Session {
	now := time.Now().Truncate(time.Hour)
	slots := make([]time.Time, 0, len(days))
	for _, d := range days {
		slots = append(slots, now.AddDate(0, 0, d))
	}
	return testutil.CreateSession(t, app.KholleRepo, subject, slots...)
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	token, err := app.srv.auth.generateToken(app.srv.auth.claimsFor(usr))
	require.NoError(t, err)
	return token
}

type httpTest struct {
	name         string
	method       string
	path         string
	form         url.Values
	token        string
	htmx         bool
	json         bool
	wantCode     int
	wantLocation string
	wantContains []string
}

func newRequest(tt httpTest) (*http.Request, *httptest.ResponseRecorder) {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	var body *strings.Reader
	if tt.form != nil {
		body = strings.NewReader(tt.form.Encode())
	} else {
		body = strings.NewReader("")
	}

	req := httptest.NewRequest(method, tt.path, body)
	if tt.form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: testCSRF})
	req.Header.Set(headerCSRFToken, testCSRF)
	if tt.token != "" {
		req.AddCookie(&http.Cookie{Name: authCookieName, Value: tt.token})
	}
	if tt.htmx {
		req.Header.Set(headerHXRequest, "true")
	}
	if tt.json {
		req.Header.Set("Accept", "application/json")
	}
	return req, httptest.NewRecorder()
}

func (app *testApp) do(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newRequest(tt)
	app.srv.ServeHTTP(rec, req)
	return rec
}

func checkResponse(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, rec.Body.String())
	if tt.wantLocation != "" {
		location := rec.Header().Get(echo.HeaderLocation)
		if tt.htmx {
			location = rec.Header().Get(headerHXRedirect)
		}
		assert.Equal(t, tt.wantLocation, location)
	}
	for _, s := range tt.wantContains {
		assert.Contains(t, rec.Body.String(), s)
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			checkResponse(t, tt, app.do(tt))
		})
	}
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func cookieRequest(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	return req
}

func pathf(format string, a ...interface{}) string {
	return fmt.Sprintf(format, a...)
}

func TestServer_public(t *testing.T) {
	app := setup(t)
	ada := app.createUser(t, "ada", "482913", false)

	runHTTPTests(t, app, []httpTest{
		{name: "home redirects to login", path: "/", wantCode: http.StatusSeeOther, wantLocation: "/login"},
		{
			name: "home redirects logged in users", path: "/", token: app.token(t, ada),
			wantCode: http.StatusSeeOther, wantLocation: "/kholles",
		},
		{name: "robots", path: "/robots.txt", wantContains: []string{"Disallow: /admin/"}},
		{name: "static assets", path: "/static/js/ranking.js", wantContains: []string{"data-frames", "pointer_y"}},
		{name: "unknown static asset", path: "/static/js/nope.js", wantCode: http.StatusNotFound},
		{name: "unknown route", path: "/nope", wantCode: http.StatusNotFound, wantContains: []string{"Erreur 404"}},
		{
			name: "unknown route (json)", path: "/nope", json: true, wantCode: http.StatusNotFound,
			wantContains: []string{`"error":"Not Found"`},
		},
		{name: "auth required", path: "/kholles", wantCode: http.StatusSeeOther, wantLocation: "/login"},
		{name: "auth required (htmx)", path: "/kholles", htmx: true, wantLocation: "/login"},
		{name: "auth required (json)", path: "/kholles", json: true, wantCode: http.StatusUnauthorized},
		{name: "invalid token", path: "/kholles", token: "nope", wantCode: http.StatusSeeOther, wantLocation: "/login"},
	})
}

func TestServer_csrf(t *testing.T) {
	app := setup(t)
	ada := app.createUser(t, "ada", "482913", false)

	req, rec := newRequest(httpTest{method: http.MethodPost, path: "/logout", token: app.token(t, ada)})
	req.Header.Del(headerCSRFToken)
	app.srv.ServeHTTP(rec, req)
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusForbidden}, rec.Code)

	req, rec = newRequest(httpTest{method: http.MethodPost, path: "/logout", token: app.token(t, ada)})
	req.Header.Set(headerCSRFToken, "forged")
	app.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// safe methods set the token cookie used by the layout
	rec = app.do(httpTest{path: "/login"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), testCSRF)
}

func TestServer_adminRequired(t *testing.T) {
	app := setup(t)
	ada := app.createUser(t, "ada", "482913", false)
	session := app.createSession(t, "Maths", 2, 3)
	token := app.token(t, ada)
	forbidden := []string{"permission denied"}

	runHTTPTests(t, app, []httpTest{
		{name: "create form", path: "/kholles/create", token: token, wantCode: http.StatusForbidden, wantContains: forbidden},
		{name: "users", path: "/admin/users", token: token, htmx: true, wantCode: http.StatusForbidden, wantContains: forbidden},
		{
			name: "admin preferences", path: pathf("/admin/kholles/%d/preferences", session.ID), token: token,
			wantCode: http.StatusForbidden, wantContains: forbidden,
		},
		{
			name: "delete session", method: http.MethodDelete, path: pathf("/kholles/%d", session.ID), token: token,
			json: true, wantCode: http.StatusForbidden, wantContains: []string{`"error":"permission denied"`},
		},
		{
			name: "trigger all", method: http.MethodPost, path: "/kholles/assignments/trigger-all", token: token,
			htmx: true, wantCode: http.StatusForbidden,
		},
	})
	assert.Zero(t, app.trigger.calls)
}
