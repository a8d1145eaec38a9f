package echoapi

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khollendar/core/user"
)

func TestServer_queryUsers(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "admin", "482913", true)
	app.createUser(t, "ada", "", false)
	token := app.token(t, admin)

	runHTTPTests(t, app, []httpTest{
		{name: "page", path: "/admin/users", token: token, wantContains: []string{"Utilisateurs", "admin", "ada", "À définir"}},
		{name: "partial", path: "/admin/users?page=1", token: token, htmx: true, wantContains: []string{"ada", "1 / 1"}},
	})

	tt := httpTest{path: "/admin/users", token: token, json: true}
	rec := app.do(tt)
	checkResponse(t, tt, rec)
	var view usersView
	decodeJSON(t, rec, &view)
	assert.Len(t, view.Users, 2)
	assert.Equal(t, 2, view.Page.Total)
}

func TestServer_createUser(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "admin", "482913", true)
	token := app.token(t, admin)

	tests := []httpTest{
		{name: "username required", form: url.Values{"username": {" "}}, wantCode: http.StatusBadRequest},
		{name: "invalid code", form: url.Values{"username": {"ada"}, "code": {"12a"}}, wantCode: http.StatusBadRequest},
		{name: "common code", form: url.Values{"username": {"ada"}, "code": {"000000"}}, wantCode: http.StatusBadRequest},
		{name: "username taken", form: url.Values{"username": {"Admin"}}, wantCode: http.StatusBadRequest},
		{name: "created without code", form: url.Values{"username": {"Ada"}}, wantContains: []string{"ada", "À définir"}},
		{name: "created with code", form: url.Values{"username": {"bob"}, "code": {"730914"}, "is_admin": {"true"}}, wantContains: []string{"bob"}},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/admin/users"
		tt.token = token
		tt.htmx = true

		t.Run(tt.name, func(t *testing.T) {
			checkResponse(t, tt, app.do(tt))
		})
	}

	ctx := context.Background()
	ada, err := app.UserSvc.GetByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.False(t, ada.CodeInitialized)
	assert.False(t, ada.IsAdmin)

	bob, err := app.UserSvc.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, bob.IsAdmin)
	assert.NoError(t, bob.CheckCode("730914"))
}

func TestServer_resetCode(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "admin", "482913", true)
	ada := app.createUser(t, "ada", "730914", false)
	token := app.token(t, admin)

	runHTTPTests(t, app, []httpTest{
		{name: "unknown user", method: http.MethodPost, path: "/admin/users/999/reset-code", token: token, htmx: true, wantCode: http.StatusNotFound},
		{name: "reset", method: http.MethodPost, path: pathf("/admin/users/%d/reset-code", ada.ID), token: token, htmx: true,
			wantContains: []string{"À définir"}},
	})

	got, err := app.UserSvc.GetByID(context.Background(), ada.ID)
	require.NoError(t, err)
	assert.False(t, got.CodeInitialized)
	assert.Equal(t, user.ErrCodeNotInitialized, errors.Cause(got.CheckCode("730914")))
}

func TestServer_destroyUser(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "admin", "482913", true)
	ada := app.createUser(t, "ada", "730914", false)
	token := app.token(t, admin)

	runHTTPTests(t, app, []httpTest{
		{name: "self", method: http.MethodDelete, path: pathf("/admin/users/%d", admin.ID), token: token, htmx: true,
			wantCode: http.StatusBadRequest, wantContains: []string{"you cannot delete your own account"}},
		{name: "unknown user", method: http.MethodDelete, path: "/admin/users/999", token: token, htmx: true, wantCode: http.StatusNotFound},
		{name: "deleted", method: http.MethodDelete, path: pathf("/admin/users/%d", ada.ID), token: token, htmx: true},
	})

	_, err := app.UserSvc.GetByID(context.Background(), ada.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}
