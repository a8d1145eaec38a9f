package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/kholle"
	"github.com/trezcool/khollendar/core/user"
	"github.com/trezcool/khollendar/services/scheduler"
)

type (
	// AssignmentTrigger runs the assignment job on demand.
	AssignmentTrigger interface {
		Trigger(ctx context.Context) (scheduler.Report, error)
	}

	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		UserSvc    *user.Service
		KholleSvc  *kholle.Service
		Wizard     *kholle.Wizard
		Assigner   AssignmentTrigger
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		renderer *renderer
		limiter  *ipRateLimiter

		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) (*Server, error) {
	rdr, err := newRenderer(deps.Conf)
	if err != nil {
		return nil, errors.Wrap(err, "parsing page templates")
	}

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf),
		renderer: rdr,
		limiter:  newIPRateLimiter(deps.Conf.Server.LoginRateLimit, deps.Conf.Server.LoginBurst),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s, nil
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug && !conf.TestMode
	s.app.Renderer = s.renderer
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.renderer, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: newRequestID}))
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "header:" + headerCSRFToken,
		ContextKey:     csrfContextKey,
		CookieName:     csrfCookieName,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   conf.Env == "PROD",
	}))

	s.app.GET("/static/*", staticHandler())
	s.app.GET("/robots.txt", robots)
	s.app.GET("/", s.home)

	s.registerAuthRoutes()

	jwt := s.auth.middleware()
	admin := adminMiddleware()
	s.registerKholleRoutes(jwt, admin)
	s.registerPreferenceRoutes(jwt)
	s.registerAssignmentRoutes(jwt, admin)
	s.registerUserRoutes(jwt, admin)
}

func (s *Server) Start() {
	s.deps.Logger.Info("starting server on " + s.deps.Conf.Server.Host)
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Errors receives the error that stopped the server, if any.
func (s *Server) Errors() <-chan error { return s.errors }

// ShutdownSignal receives interrupt signals, and the signal raised by a core shutdown error.
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) home(ctx echo.Context) error {
	if _, err := s.auth.optionalClaims(ctx); err == nil {
		return redirect(ctx, "/kholles")
	}
	return redirect(ctx, "/login")
}

func robots(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "User-agent: *\nDisallow: /admin/\nDisallow: /kholles/\nAllow: /login\n")
}
