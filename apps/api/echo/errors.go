package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core"
	"github.com/trezcool/trainings/core/session"
)

var (
	errUnauthorized    = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden   = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errTooManyRequests = echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
)

// domainError renders the errors of the session package. ok is false for any other error.
func domainError(err error) (code int, message interface{}, ok bool) {
	switch cause := errors.Cause(err).(type) {
	case *session.InvalidTransitionError:
		return http.StatusConflict, echo.Map{
			"error": cause.Error(),
			"code":  "invalid_transition",
			"from":  cause.From,
			"to":    cause.To,
		}, true
	}

	switch cause := errors.Cause(err); cause {
	case session.ErrSessionNotFound, session.ErrSlotNotFound, session.ErrEnrollmentNotFound:
		return http.StatusNotFound, echo.Map{"error": cause.Error()}, true
	case session.ErrUnknownToken:
		return http.StatusNotFound, echo.Map{"error": cause.Error(), "code": "unknown_token"}, true
	case session.ErrSlotNotOpen:
		return http.StatusConflict, echo.Map{"error": cause.Error(), "code": "slot_not_open"}, true
	case session.ErrSessionLocked, session.ErrAlreadyEnrolled, session.ErrSessionClosed:
		return http.StatusConflict, echo.Map{"error": cause.Error()}, true
	case session.ErrAlreadySigned:
		return http.StatusOK, echo.Map{"status": "already_signed", "message": cause.Error()}, true
	}
	return 0, nil, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}
		var serverErr bool

		if c, m, ok := domainError(err); ok {
			code, message = c, m
		} else {
			switch origErr := errors.Cause(err).(type) {
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing {
					code = http.StatusUnauthorized
					message = origErr.Message
					break
				}
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				message = origErr.Message
			case validator.ValidationErrors:
				fldErrs := make(map[string]string, len(origErr))
				for _, vErr := range origErr {
					fldErrs[vErr.Field()] = vErr.Translate(translator)
				}
				code = http.StatusBadRequest
				message = fldErrs
			case *core.ValidationError:
				if origErr.Fields != nil {
					fldErrs := make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					message = fldErrs
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			default: // any other error is a server error
				serverErr = true
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				args := []interface{}{errors.Wrap(err, msg), map[string]interface{}{
					"method": ctx.Request().Method,
					"path":   ctx.Path(),
				}}
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					args = append(args, claims.actor())
				}
				logger.Error(msg, args...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if serverErr && ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
