package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/trainings/core/session"
)

// publicApi serves the pages reached through emailed or shared links.
// The token in the path is the only credential.
type publicApi struct {
	svc *session.Service
}

func registerPublicAPI(g *echo.Group, limit echo.MiddlewareFunc, svc *session.Service) {
	api := publicApi{svc: svc}

	pg := g.Group("/public", limit)
	pg.GET("/sessions/:token", api.sessionSheet)
	pg.POST("/sessions/:token/slots/:slotId/open", api.openSlot)
	pg.POST("/sessions/:token/slots/:slotId/close", api.closeSlot)
	pg.GET("/slots/:token", api.slotSheet)
	pg.POST("/slots/:token/signatures", api.sign)
	pg.GET("/slots/:token/signatures/:enrollmentToken", api.signatureExists)
	pg.POST("/enrollments/:token/feedback", api.linkFeedback)
}

type signatureStatus struct {
	Signed bool `json:"signed"`
}

// Handlers

func (api *publicApi) sessionSheet(ctx echo.Context) error {
	sheet, err := api.svc.SessionSheet(ctx.Request().Context(), ctx.Param("token"))
	if err != nil {
		return errors.Wrap(err, "getting session sheet")
	}
	return ctx.JSON(http.StatusOK, sheet)
}

func (api *publicApi) openSlot(ctx echo.Context) error {
	res, err := api.svc.OpenSlotByToken(ctx.Request().Context(), ctx.Param("token"), ctx.Param("slotId"))
	if err != nil {
		return errors.Wrap(err, "opening slot")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *publicApi) closeSlot(ctx echo.Context) error {
	res, err := api.svc.CloseSlotByToken(ctx.Request().Context(), ctx.Param("token"), ctx.Param("slotId"))
	if err != nil {
		return errors.Wrap(err, "closing slot")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *publicApi) slotSheet(ctx echo.Context) error {
	sheet, err := api.svc.SlotSheet(ctx.Request().Context(), ctx.Param("token"))
	if err != nil {
		return errors.Wrap(err, "getting slot sheet")
	}
	return ctx.JSON(http.StatusOK, sheet)
}

func (api *publicApi) sign(ctx echo.Context) error {
	var data session.NewSignature
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSignature")
	}
	res, err := api.svc.Sign(ctx.Request().Context(), ctx.Param("token"), data)
	if err != nil {
		return errors.Wrap(err, "signing")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *publicApi) signatureExists(ctx echo.Context) error {
	signed, err := api.svc.SignatureExists(ctx.Request().Context(), ctx.Param("token"), ctx.Param("enrollmentToken"))
	if err != nil {
		return errors.Wrap(err, "checking signature")
	}
	return ctx.JSON(http.StatusOK, signatureStatus{Signed: signed})
}

func (api *publicApi) linkFeedback(ctx echo.Context) error {
	var data session.LinkFeedback
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LinkFeedback")
	}
	enr, err := api.svc.LinkFeedback(ctx.Request().Context(), ctx.Param("token"), data)
	if err != nil {
		return errors.Wrap(err, "linking feedback")
	}
	return ctx.JSON(http.StatusOK, enr)
}
