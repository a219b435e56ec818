package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core/session"
)

type sessionApi struct {
	svc *session.Service
}

func registerSessionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *session.Service) {
	api := sessionApi{svc: svc}

	sg := g.Group("/sessions", jwt, adminMiddleware())
	sg.POST("", api.create)

	dg := sg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.POST("/schedule", api.transition(svc.Schedule))
	dg.POST("/open", api.transition(svc.Open))
	dg.POST("/complete", api.transition(svc.Complete))
	dg.POST("/cancel", api.transition(svc.Cancel))
	dg.GET("/slots", api.slots)
	dg.GET("/enrollments", api.enrollments)
	dg.POST("/enrollments", api.enroll)
}

func registerSlotAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *session.Service) {
	api := sessionApi{svc: svc}

	sg := g.Group("/slots/:id", jwt)
	sg.POST("/reminders", api.sendReminders, adminMiddleware())

	tg := sg.Group("", slotTrainerOrAdminMiddleware(svc))
	tg.POST("/open", api.slotTransition(svc.OpenSlot))
	tg.POST("/close", api.slotTransition(svc.CloseSlot))
	tg.GET("/missing-signatures", api.missingSignatures)
}

// Handlers

func (api *sessionApi) create(ctx echo.Context) error {
	var data session.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *sessionApi) update(ctx echo.Context) error {
	var data session.UpdateSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSession")
	}
	s, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating session")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *sessionApi) transition(
	fn func(ctx context.Context, id string) (session.StatusChanged, error),
) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		res, err := fn(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "changing session status")
		}
		return ctx.JSON(http.StatusOK, res)
	}
}

func (api *sessionApi) slots(ctx echo.Context) error {
	slots, err := api.svc.Slots(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing slots")
	}
	return ctx.JSON(http.StatusOK, slots)
}

func (api *sessionApi) enrollments(ctx echo.Context) error {
	enrs, err := api.svc.Enrollments(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *sessionApi) enroll(ctx echo.Context) error {
	var data session.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	enr, err := api.svc.Enroll(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *sessionApi) slotTransition(
	fn func(ctx context.Context, id string) (session.SlotStatusChanged, error),
) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		res, err := fn(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "changing slot status")
		}
		return ctx.JSON(http.StatusOK, res)
	}
}

func (api *sessionApi) missingSignatures(ctx echo.Context) error {
	enrs, err := api.svc.MissingSignatures(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing missing signatures")
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *sessionApi) sendReminders(ctx echo.Context) error {
	n, err := api.svc.SendReminders(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "sending reminders")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"sent": n})
}
