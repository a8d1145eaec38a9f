package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/kholle"
	"github.com/trezcool/khollendar/core/ranking"
	"github.com/trezcool/khollendar/core/user"
)

var (
	errUnauthorized    = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden   = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound    = echo.NewHTTPError(http.StatusNotFound, "not found")
	errTooManyAttempts = echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts, try again later")
	errInvalidCode     = core.NewFieldError("code", errors.New("code incorrect"))
)

// domainErrorCodes maps the sentinel errors of the core packages to a status code.
var domainErrorCodes = map[error]int{
	user.ErrNotFound:               http.StatusNotFound,
	kholle.ErrNotFound:             http.StatusNotFound,
	kholle.ErrSlotNotFound:         http.StatusNotFound,
	kholle.ErrAssignmentNotFound:   http.StatusNotFound,
	kholle.ErrPreferencesLocked:    http.StatusConflict,
	kholle.ErrRegistrationsClosed:  http.StatusConflict,
	kholle.ErrStepNotReached:       http.StatusConflict,
	user.ErrCodeAlreadyInitialized: http.StatusConflict,
	kholle.ErrNoSlots:              http.StatusBadRequest,
	kholle.ErrSlotNotInSession:     http.StatusBadRequest,
	ranking.ErrLastSlot:            http.StatusBadRequest,
	user.ErrCodeNotInitialized:     http.StatusBadRequest,
}

type errorView struct {
	Code    int               `json:"-"`
	Message string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(
	logger core.Logger,
	rdr *renderer,
	translator ut.Translator,
	signalShutdown func(),
) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		view := errorView{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				origErr = errUnauthorized
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			view.Code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				view.Message = msg
			} else {
				view.Message = http.StatusText(origErr.Code)
			}
		case validator.ValidationErrors:
			view.Code = http.StatusBadRequest
			view.Message = "invalid data"
			view.Fields = core.TranslateErrors(origErr, translator)
		case *core.ValidationError:
			view.Code = http.StatusBadRequest
			if len(origErr.Fields) > 0 {
				view.Fields = origErr.FieldMap()
			}
			view.Message = origErr.Error()
		default:
			if code, ok := domainErrorCode(origErr); ok {
				view.Code = code
				view.Message = origErr.Error()
				break
			}

			// any other error is a server error
			view.Code = http.StatusInternalServerError
			view.Message = http.StatusText(http.StatusInternalServerError)

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.UserID()
				usr.Username = claims.Username
			}
			logger.Error(view.Message, errors.Wrap(err, view.Message), usr, map[string]interface{}{
				"requestId": ctx.Response().Header().Get(echo.HeaderXRequestID),
				"path":      ctx.Request().URL.Path,
			})

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && view.Code == http.StatusInternalServerError {
			view.Message = err.Error()
		}
		if ctx.Response().Committed {
			return
		}

		var rErr error
		switch {
		case ctx.Request().Method == http.MethodHead: // Issue #608
			rErr = ctx.NoContent(view.Code)
		case wantsJSON(ctx):
			rErr = ctx.JSON(view.Code, view)
		case view.Code == http.StatusUnauthorized:
			rErr = redirect(ctx, "/login")
		case isHTMX(ctx):
			rErr = rdr.renderPartial(ctx, view.Code, "flash", view)
		default:
			rErr = rdr.renderPage(ctx, view.Code, "error", "Erreur", view)
		}
		if rErr != nil {
			ctx.Echo().Logger.Error(rErr)
		}
	}
}

func domainErrorCode(err error) (int, bool) {
	for sentinel, code := range domainErrorCodes {
		if err == sentinel {
			return code, true
		}
	}
	return 0, false
}
