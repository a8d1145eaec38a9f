package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/user"
	testutil "github.com/trezcool/khollendar/tests"
)

func TestIsCommonCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{code: "000000", want: true},
		{code: "123456", want: true},
		{code: "987654", want: true},
		{code: "121212", want: true},
		{code: "482913", want: false},
		{code: "135790", want: false},
		{code: "1", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, user.IsCommonCode(tt.code))
		})
	}
}

func TestNewUser_Validate(t *testing.T) {
	d := setup(t)
	testutil.CreateUser(t, d.UserRepo, "ada", "", false)

	tests := []struct {
		name string
		data user.NewUser
		want map[string]string
	}{
		{name: "valid without code", data: user.NewUser{Username: " Bob "}},
		{name: "valid with code", data: user.NewUser{Username: "bob", Code: "482913"}},
		{
			name: "bad username and short code",
			data: user.NewUser{Username: "b", Code: "12"},
			want: map[string]string{
				"username": "username must be at least 2 characters in length",
				"code":     "the code must contain exactly 6 digits",
			},
		},
		{
			name: "common code",
			data: user.NewUser{Username: "bob", Code: "111111"},
			want: map[string]string{"code": "this code is too easy to guess"},
		},
		{
			name: "username taken",
			data: user.NewUser{Username: "ADA"},
			want: map[string]string{"username": user.ErrUsernameExists.Error()},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := tt.data
			err := nu.Validate(context.Background(), d.Validate, d.UserSvc)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, fieldErrors(t, err, d))
		})
	}
}

func TestInitCode_Validate(t *testing.T) {
	d := setup(t)

	ic := user.InitCode{Code: " 482913 ", CodeConfirm: "482913"}
	require.NoError(t, ic.Validate(d.Validate))
	assert.Equal(t, "482913", ic.Code)

	ic = user.InitCode{Code: "482913", CodeConfirm: "482914"}
	assert.Contains(t, fieldErrors(t, ic.Validate(d.Validate), d), "code_confirm")

	login := user.Login{UserID: 1, Code: "abcdef"}
	assert.Equal(t,
		map[string]string{"code": "the code must contain exactly 6 digits"},
		fieldErrors(t, login.Validate(d.Validate), d),
	)
}

func fieldErrors(t *testing.T, err error, d *testutil.Deps) map[string]string {
	t.Helper()
	if vErrs, ok := err.(validator.ValidationErrors); ok {
		return core.TranslateErrors(vErrs, d.Translator)
	}
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	return vErr.FieldMap()
}
