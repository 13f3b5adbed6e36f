package echoapi

import (
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trackside/carnival/core/house"
)

type houseApi struct {
	svc      *house.Service
	validate *validator.Validate
}

func registerHouseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *house.Service, validate *validator.Validate) {
	api := houseApi{svc: svc, validate: validate}

	hg := g.Group("/houses/points", jwt)
	hg.GET("", api.totals)
	hg.GET("/entries", api.entries)
	hg.POST("/quick", api.quickPoint)

	ag := hg.Group("", adminMiddleware())
	ag.POST("/reset", api.reset)
	ag.POST("/backup", api.backup)
	ag.GET("/backup/latest", api.latestBackup)
	ag.POST("/restore", api.restore)
}

// Handlers

func (api *houseApi) totals(ctx echo.Context) error {
	totals, err := api.svc.Totals(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing house totals")
	}
	return ctx.JSON(http.StatusOK, totals)
}

func (api *houseApi) entries(ctx echo.Context) error {
	entries, err := api.svc.QueryEntries(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying house point entries")
	}
	return ctx.JSON(http.StatusOK, entries)
}

type quickPointRequest struct {
	House string `json:"house" validate:"required,house"`
}

func (api *houseApi) quickPoint(ctx echo.Context) error {
	var data quickPointRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to quickPointRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	entry, err := api.svc.AddQuickPoint(ctx.Request().Context(), contextActor(ctx), data.House)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *houseApi) reset(ctx echo.Context) error {
	snapshot, err := api.svc.ResetAllPoints(ctx.Request().Context(), contextActor(ctx))
	if err != nil {
		return err
	}
	return ctx.JSONBlob(http.StatusOK, snapshot)
}

func (api *houseApi) backup(ctx echo.Context) error {
	snapshot, err := api.svc.Backup(ctx.Request().Context(), contextActor(ctx))
	if err != nil {
		return err
	}
	return ctx.JSONBlob(http.StatusCreated, snapshot)
}

func (api *houseApi) latestBackup(ctx echo.Context) error {
	snapshot, err := api.svc.LatestBackup(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSONBlob(http.StatusOK, snapshot)
}

// restore takes a previously exported snapshot as the raw request body.
func (api *houseApi) restore(ctx echo.Context) error {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading restore payload")
	}

	if err = api.svc.Restore(ctx.Request().Context(), contextActor(ctx), payload); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
