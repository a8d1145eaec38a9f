package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/user"
	testutil "github.com/trezcool/khollendar/tests"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T) *testutil.Deps {
	t.Helper()
	testutil.FreezeTime(t, now)
	return testutil.NewMemoryDeps(t)
}

func TestService_Create(t *testing.T) {
	d := setup(t)
	ctx := context.Background()

	usr, err := d.UserSvc.Create(ctx, user.NewUser{Username: "ada"})
	require.NoError(t, err)
	assert.NotZero(t, usr.ID)
	assert.False(t, usr.CodeInitialized, "code is defined on first login")
	assert.Equal(t, now, usr.CreatedAt)

	admin, err := d.UserSvc.Create(ctx, user.NewUser{Username: "prof", Code: "482913", IsAdmin: true})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.True(t, admin.CodeInitialized)
	assert.NoError(t, admin.CheckCode("482913"))

	err = d.UserSvc.CheckUniqueness(ctx, "ada")
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, map[string]string{"username": user.ErrUsernameExists.Error()}, vErr.FieldMap())
	assert.NoError(t, d.UserSvc.CheckUniqueness(ctx, "bob"))
}

func TestService_codeLifecycle(t *testing.T) {
	d := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, d.UserRepo, "ada", "", false)

	_, err := d.UserSvc.Authenticate(ctx, usr.ID, "482913")
	assert.Equal(t, user.ErrCodeNotInitialized, err)

	usr, err = d.UserSvc.InitializeCode(ctx, usr.ID, "482913")
	require.NoError(t, err)
	assert.True(t, usr.CodeInitialized)
	assert.Equal(t, now, usr.LastLogin)

	_, err = d.UserSvc.InitializeCode(ctx, usr.ID, "111111")
	assert.Equal(t, user.ErrCodeAlreadyInitialized, err)

	_, err = d.UserSvc.Authenticate(ctx, usr.ID, "000000")
	assert.Equal(t, user.ErrInvalidCode, err)

	later := now.Add(time.Hour)
	testutil.FreezeTime(t, later)
	usr, err = d.UserSvc.Authenticate(ctx, usr.ID, "482913")
	require.NoError(t, err)
	assert.Equal(t, later, usr.LastLogin)

	usr, err = d.UserSvc.ResetCode(ctx, usr.ID)
	require.NoError(t, err)
	assert.False(t, usr.CodeInitialized)
	assert.Empty(t, usr.CodeHash)

	_, err = d.UserSvc.InitializeCode(ctx, usr.ID, "730164")
	assert.NoError(t, err, "code can be defined again after a reset")

	_, err = d.UserSvc.Authenticate(ctx, 9999, "482913")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func TestService_queries(t *testing.T) {
	d := setup(t)
	ctx := context.Background()
	for _, name := range []string{"ada", "bob", "carl"} {
		testutil.CreateUser(t, d.UserRepo, name, "", false)
	}

	n, err := d.UserSvc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	users, page, err := d.UserSvc.Paginate(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages())
	require.Len(t, users, 1)
	assert.Equal(t, "carl", users[0].Username)

	usr, err := d.UserSvc.GetByUsername(ctx, "  BOB ")
	require.NoError(t, err)
	assert.Equal(t, "bob", usr.Username)

	require.NoError(t, d.UserSvc.Delete(ctx, usr.ID))
	_, err = d.UserSvc.GetByID(ctx, usr.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	all, err := d.UserSvc.QueryAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
