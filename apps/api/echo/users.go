package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/user"
)

var errDeleteSelf = core.NewValidationError(errors.New("you cannot delete your own account"))

type usersView struct {
	Users []user.User `json:"users"`
	Page  core.Page   `json:"page"`
}

func (s *Server) registerUserRoutes(jwt, admin echo.MiddlewareFunc) {
	ug := s.app.Group("/admin/users")
	ug.GET("", s.queryUsers, jwt, admin)
	ug.POST("", s.createUser, jwt, admin)
	ug.POST("/:id/reset-code", s.resetCode, jwt, admin)
	ug.DELETE("/:id", s.destroyUser, jwt, admin)
}

func (s *Server) usersView(ctx echo.Context) (usersView, error) {
	users, page, err := s.deps.UserSvc.Paginate(ctx.Request().Context(), queryPage(ctx, "page"), core.DefaultPageSize)
	if err != nil {
		return usersView{}, errors.Wrap(err, "paginating users")
	}
	return usersView{Users: users, Page: page}, nil
}

func (s *Server) renderUserList(ctx echo.Context) error {
	view, err := s.usersView(ctx)
	if err != nil {
		return err
	}
	return s.renderer.renderPartial(ctx, http.StatusOK, "user_list", view)
}

func (s *Server) queryUsers(ctx echo.Context) error {
	view, err := s.usersView(ctx)
	if err != nil {
		return err
	}
	return s.renderer.render(ctx, "admin_users", "user_list", "Gestion des utilisateurs", view)
}

func (s *Server) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(ctx.Request().Context(), s.deps.Validate, s.deps.UserSvc); err != nil {
		return err
	}

	usr, err := s.deps.UserSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	s.deps.Logger.Info("user created", map[string]interface{}{"userId": usr.ID, "username": usr.Username})

	if wantsJSON(ctx) {
		return ctx.JSON(http.StatusCreated, usr)
	}
	return s.renderUserList(ctx)
}

func (s *Server) resetCode(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if _, err = s.deps.UserSvc.ResetCode(ctx.Request().Context(), id); err != nil {
		return err
	}
	return s.renderUserList(ctx)
}

func (s *Server) destroyUser(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if claims.UserID() == id {
		return errDeleteSelf
	}
	if _, err = s.deps.UserSvc.GetByID(ctx.Request().Context(), id); err != nil {
		return err
	}
	if err = s.deps.UserSvc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return s.renderUserList(ctx)
}
