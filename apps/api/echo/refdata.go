package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/attendance/core/refdata"
)

type refDataApi struct {
	dir *refdata.Provider
}

func registerRefDataAPI(g *echo.Group, dir *refdata.Provider) {
	api := refDataApi{dir: dir}

	rg := g.Group("/refdata/cities")
	rg.GET("", api.cities)
	rg.GET("/:city/regions", api.regions)
	rg.GET("/:city/regions/:region/schools", api.schools)
}

func (api *refDataApi) cities(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.dir.Cities())
}

func (api *refDataApi) regions(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.dir.Regions(ctx.Param("city")))
}

func (api *refDataApi) schools(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.dir.Schools(ctx.Param("city"), ctx.Param("region")))
}
