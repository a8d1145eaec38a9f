package user

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/khollendar/core"
)

var (
	// errors
	ErrNotFound               = errors.New("user not found")
	ErrUsernameExists         = errors.New("a user with this username already exists")
	ErrInvalidCode            = errors.New("invalid code")
	ErrCodeNotInitialized     = errors.New("code not initialized")
	ErrCodeAlreadyInitialized = errors.New("code already initialized")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		// PaginateUsers returns the users of the page, ordered by id, and the page with its Total set.
		PaginateUsers(ctx context.Context, page core.Page) ([]User, core.Page, error)
		CountUsers(ctx context.Context) (int, error)
		GetUserByID(ctx context.Context, id int64) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...int64) error
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) CheckUniqueness(ctx context.Context, uname string) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname); err != nil {
		if errors.Cause(err) == ErrUsernameExists {
			return core.NewFieldError("username", ErrUsernameExists)
		}
		return errors.Wrap(err, "checking username uniqueness")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		Username:  nu.Username,
		IsAdmin:   nu.IsAdmin,
		CreatedAt: core.NowFunc().UTC(),
	}
	if nu.Code != "" {
		if err := usr.SetCode(nu.Code); err != nil {
			return User{}, errors.Wrap(err, "hashing code")
		}
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) Paginate(ctx context.Context, page, size int) ([]User, core.Page, error) {
	return svc.repo.PaginateUsers(ctx, core.NewPage(page, size))
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

// InitializeCode sets the secret code of a User who has none yet and logs them in.
func (svc *Service) InitializeCode(ctx context.Context, id int64, code string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if usr.CodeInitialized {
		return User{}, ErrCodeAlreadyInitialized
	}
	if err = usr.SetCode(code); err != nil {
		return User{}, errors.Wrap(err, "hashing code")
	}
	usr.LastLogin = core.NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// Authenticate checks the secret code of a User and records the login.
func (svc *Service) Authenticate(ctx context.Context, id int64, code string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err = usr.CheckCode(code); err != nil {
		return User{}, err
	}
	usr.LastLogin = core.NowFunc().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "setting last login")
	}
	return usr, nil
}

// ResetCode clears the secret code: the User defines a new one on next login.
func (svc *Service) ResetCode(ctx context.Context, id int64) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.ClearCode()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "resetting code")
	}
	svc.logger.Info("secret code reset", map[string]interface{}{"user_id": id})
	return usr, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...int64) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}
