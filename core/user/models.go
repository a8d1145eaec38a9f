package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/khollendar/core"
)

type User struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	CodeHash        []byte    `json:"-"`
	CodeInitialized bool      `json:"code_initialized"`
	IsAdmin         bool      `json:"is_admin"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	LastLogin       time.Time `json:"last_login"` // UTC, zero if never logged in
}

// SetCode hashes the 6 digits secret code of the User and marks it initialized.
func (u *User) SetCode(code string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.CodeHash = hash
	u.CodeInitialized = true
	return nil
}

func (u *User) CheckCode(code string) error {
	if !u.CodeInitialized || len(u.CodeHash) == 0 {
		return ErrCodeNotInitialized
	}
	if err := bcrypt.CompareHashAndPassword(u.CodeHash, []byte(code)); err != nil {
		return ErrInvalidCode
	}
	return nil
}

func (u *User) ClearCode() {
	u.CodeHash = nil
	u.CodeInitialized = false
}

// NewUser contains information needed to create a new User.
// Code may be empty: the User then defines it on first login.
type NewUser struct {
	Username string `json:"username" form:"username" validate:"required,min=2,max=150,alphanum_"`
	Code     string `json:"code" form:"code" validate:"omitempty,secretcode,codenotcommon"`
	IsAdmin  bool   `json:"is_admin" form:"is_admin"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Code = core.CleanString(nu.Code)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username)
}

// InitCode is submitted by a User defining their secret code on first login.
type InitCode struct {
	Code        string `form:"code" validate:"required,secretcode,codenotcommon"`
	CodeConfirm string `form:"code_confirm" validate:"required,eqfield=Code"`
}

func (ic *InitCode) Validate(validate *validator.Validate) error {
	ic.Code = core.CleanString(ic.Code)
	ic.CodeConfirm = core.CleanString(ic.CodeConfirm)
	return validate.Struct(ic)
}

// Login is submitted by a User entering their secret code.
type Login struct {
	UserID int64  `form:"user_id" validate:"required"`
	Code   string `form:"code" validate:"required,secretcode"`
}

func (l *Login) Validate(validate *validator.Validate) error {
	l.Code = core.CleanString(l.Code)
	return validate.Struct(l)
}
