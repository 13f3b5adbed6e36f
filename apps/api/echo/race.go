package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trackside/carnival/core/race"
)

type raceApi struct {
	svc      *race.Service
	validate *validator.Validate
}

func registerRaceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *race.Service, validate *validator.Validate) {
	api := raceApi{svc: svc, validate: validate}

	rg := g.Group("/races", jwt)
	rg.GET("", api.query)
	rg.POST("", api.create)
	rg.GET("/current", api.current)
	rg.PUT("/current/status", api.setStatus)
	rg.POST("/current/finishes", api.recordFinish)
	rg.DELETE("/current/finishes/last", api.undoLastFinish)
	rg.POST("/current/points", api.calculatePoints)

	dg := rg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.POST("/select", api.sel)
	dg.GET("/runners", api.runners)
	dg.POST("/runners/import", api.importRunners, adminMiddleware())
}

// Handlers

func (api *raceApi) query(ctx echo.Context) error {
	races, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying races")
	}
	return ctx.JSON(http.StatusOK, races)
}

func (api *raceApi) create(ctx echo.Context) error {
	var data race.NewRace
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRace")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rc, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, rc)
}

func (api *raceApi) retrieve(ctx echo.Context) error {
	rc, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rc)
}

func (api *raceApi) sel(ctx echo.Context) error {
	rc, err := api.svc.Select(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rc)
}

type currentRaceResponse struct {
	Race        race.Race     `json:"race"`
	Runners     []race.Runner `json:"runners"`
	FinishOrder []race.Runner `json:"finish_order"`
}

func (api *raceApi) current(ctx echo.Context) error {
	rc, ok := api.svc.Current()
	if !ok {
		return race.ErrNoCurrentRace
	}
	return ctx.JSON(http.StatusOK, currentRaceResponse{
		Race:        rc,
		Runners:     api.svc.Runners(),
		FinishOrder: api.svc.FinishOrder(),
	})
}

type setStatusRequest struct {
	Status race.Status `json:"status" validate:"required"`
}

func (api *raceApi) setStatus(ctx echo.Context) error {
	var data setStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to setStatusRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	rc, err := api.svc.SetStatus(ctx.Request().Context(), data.Status)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rc)
}

func (api *raceApi) recordFinish(ctx echo.Context) error {
	var data race.RecordFinish
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordFinish")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	runner, err := api.svc.Record(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, runner)
}

func (api *raceApi) undoLastFinish(ctx echo.Context) error {
	runner, err := api.svc.UndoLastFinish(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, runner)
}

func (api *raceApi) calculatePoints(ctx echo.Context) error {
	points, err := api.svc.CalculateHousePoints(ctx.Request().Context(), contextActor(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, points)
}

func (api *raceApi) runners(ctx echo.Context) error {
	runners, err := api.svc.RunnersByRace(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, runners)
}

// importRunners accepts the runner bulk-upload CSV as the request body.
func (api *raceApi) importRunners(ctx echo.Context) error {
	runners, err := race.ParseRunnersCSV(ctx.Request().Body)
	if err != nil {
		return err
	}

	created, err := api.svc.ImportRunners(ctx.Request().Context(), ctx.Param("id"), runners)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, created)
}
