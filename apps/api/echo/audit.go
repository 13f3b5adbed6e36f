package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trackside/carnival/core/audit"
)

type auditApi struct {
	svc *audit.Service
}

func registerAuditAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *audit.Service) {
	api := auditApi{svc: svc}

	ag := g.Group("/actions", jwt, adminMiddleware())
	ag.GET("", api.query)
}

func (api *auditApi) query(ctx echo.Context) error {
	var filter *audit.QueryFilter
	if action, actor := ctx.QueryParam("action"), ctx.QueryParam("actor"); action != "" || actor != "" {
		filter = &audit.QueryFilter{Action: audit.Action(action), Actor: actor}
	}

	entries, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying action log")
	}
	return ctx.JSON(http.StatusOK, entries)
}
