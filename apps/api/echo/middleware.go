package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core/session"
)

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// slotTrainerOrAdminMiddleware lets through admins and the trainer assigned to the session of the slot `:id`.
func slotTrainerOrAdminMiddleware(svc *session.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin() {
				return next(ctx)
			}
			if !claims.IsTrainer() {
				return errHttpForbidden
			}

			s, err := svc.SlotSession(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return err
			}
			if s.TrainerID == "" || s.TrainerID != claims.Subject {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
