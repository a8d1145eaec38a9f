package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/khollendar/core/user"
)

type loginView struct {
	Users    []user.User `json:"users,omitempty"`
	Selected *user.User  `json:"selected,omitempty"`
	// Initialize is set when the selected user has to define their code.
	Initialize bool `json:"initialize"`
}

func (s *Server) registerAuthRoutes() {
	limited := s.limiter.middleware()

	s.app.GET("/login", s.loginPage)
	s.app.POST("/login/select", s.selectUser)
	s.app.POST("/login/code", s.login, limited)
	s.app.POST("/login/initialize", s.initializeCode, limited)
	s.app.POST("/logout", s.logout)
}

func (s *Server) loginPage(ctx echo.Context) error {
	if _, err := s.auth.optionalClaims(ctx); err == nil {
		return redirect(ctx, "/kholles")
	}
	users, err := s.deps.UserSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return s.renderer.renderPage(ctx, http.StatusOK, "login", "Connexion", loginView{Users: users})
}

func (s *Server) selectUser(ctx echo.Context) error {
	id, err := formID(ctx, "user_id")
	if err != nil {
		return err
	}
	usr, err := s.deps.UserSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	view := loginView{Selected: &usr, Initialize: !usr.CodeInitialized}
	return s.renderer.render(ctx, "login", "login_form", "Connexion", view)
}

func (s *Server) login(ctx echo.Context) error {
	var data user.Login
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Login")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	usr, err := s.deps.UserSvc.Authenticate(ctx.Request().Context(), data.UserID, data.Code)
	if err != nil {
		if errors.Cause(err) == user.ErrInvalidCode {
			s.deps.Logger.Warn("failed login attempt", map[string]interface{}{"userId": data.UserID, "ip": ctx.RealIP()})
			return errInvalidCode
		}
		return err
	}
	if err = s.auth.login(ctx, usr); err != nil {
		return errors.Wrap(err, "logging in")
	}
	return redirect(ctx, "/kholles")
}

func (s *Server) initializeCode(ctx echo.Context) error {
	id, err := formID(ctx, "user_id")
	if err != nil {
		return err
	}
	var data user.InitCode
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InitCode")
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}

	usr, err := s.deps.UserSvc.InitializeCode(ctx.Request().Context(), id, data.Code)
	if err != nil {
		return err
	}
	if err = s.auth.login(ctx, usr); err != nil {
		return errors.Wrap(err, "logging in")
	}
	return redirect(ctx, "/kholles")
}

func (s *Server) logout(ctx echo.Context) error {
	s.auth.logout(ctx)
	return redirect(ctx, "/login")
}
