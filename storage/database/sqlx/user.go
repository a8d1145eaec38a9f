package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/user"
)

const userColumns = "id, username, code_hash, code_initialized, is_admin, created_at, last_login"

type userRow struct {
	ID              int64      `db:"id"`
	Username        string     `db:"username"`
	CodeHash        null.Bytes `db:"code_hash"`
	CodeInitialized bool       `db:"code_initialized"`
	IsAdmin         bool       `db:"is_admin"`
	CreatedAt       time.Time  `db:"created_at"`
	LastLogin       null.Time  `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:              usr.ID,
		Username:        usr.Username,
		CodeHash:        null.NewBytes(usr.CodeHash, len(usr.CodeHash) > 0),
		CodeInitialized: usr.CodeInitialized,
		IsAdmin:         usr.IsAdmin,
		CreatedAt:       usr.CreatedAt.UTC(),
		LastLogin:       null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) user() user.User {
	usr := user.User{
		ID:              r.ID,
		Username:        r.Username,
		CodeHash:        r.CodeHash.Bytes,
		CodeInitialized: r.CodeInitialized,
		IsAdmin:         r.IsAdmin,
		CreatedAt:       r.CreatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	return usr
}

func toUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users
}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username string) error {
	var exists bool
	err := repo.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)", username)
	if err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if exists {
		return user.ErrUsernameExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q, args, err := repo.db.BindNamed(`
		INSERT INTO users (username, code_hash, code_initialized, is_admin, created_at, last_login)
		VALUES (:username, :code_hash, :code_initialized, :is_admin, :created_at, :last_login)
		RETURNING `+userColumns, toUserRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "binding user")
	}

	var row userRow
	if err = repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.user(), nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT "+userColumns+" FROM users ORDER BY id"); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	return toUsers(rows), nil
}

func (repo *userRepository) PaginateUsers(ctx context.Context, page core.Page) ([]user.User, core.Page, error) {
	total, err := repo.CountUsers(ctx)
	if err != nil {
		return nil, page, err
	}
	page.Total = total

	var rows []userRow
	err = repo.db.SelectContext(ctx, &rows,
		"SELECT "+userColumns+" FROM users ORDER BY id LIMIT $1 OFFSET $2", page.Size, page.Offset())
	if err != nil {
		return nil, page, errors.Wrap(err, "selecting users")
	}
	return toUsers(rows), page, nil
}

func (repo *userRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return n, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+userColumns+" FROM users WHERE id = $1", id); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+userColumns+" FROM users WHERE username = $1", username); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user")
	}
	return row.user(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q, args, err := repo.db.BindNamed(`
		UPDATE users
		SET username = :username, code_hash = :code_hash, code_initialized = :code_initialized,
			is_admin = :is_admin, last_login = :last_login
		WHERE id = :id
		RETURNING `+userColumns, toUserRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "binding user")
	}

	var row userRow
	if err = repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return row.user(), nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := in(repo.db, "DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return err
	}
	if _, err = repo.db.ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
