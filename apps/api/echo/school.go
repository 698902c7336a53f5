package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/school"
)

type schoolApi struct {
	svc      *school.Service
	attSvc   *attendance.Service
	validate *validator.Validate
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := schoolApi{
		svc:      deps.SchoolSvc,
		attSvc:   deps.AttendanceSvc,
		validate: deps.Validate,
	}

	g.GET("/schools/:id/stats", api.stats, jwt, adminMiddleware())

	tg := g.Group("/teachers", jwt)
	tg.GET("", api.queryTeachers, adminMiddleware())
	tg.DELETE("/:id", api.destroyTeacher, adminMiddleware())
	tg.GET("/me/profile", api.retrieveProfile, teacherMiddleware())
	tg.PUT("/me/profile", api.updateProfile, teacherMiddleware())
}

// Handlers

func (api *schoolApi) stats(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if ctx.Param("id") != claims.SchoolID {
		return errHttpNotFound
	}

	reqCtx := ctx.Request().Context()
	sch, err := api.svc.GetSchool(reqCtx, claims.SchoolID)
	if err != nil {
		return errors.Wrap(err, "finding school")
	}
	stats, err := api.attSvc.SchoolStats(reqCtx, sch)
	if err != nil {
		return errors.Wrap(err, "computing school stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *schoolApi) queryTeachers(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	teachers, err := api.svc.QueryTeachers(ctx.Request().Context(), claims.SchoolID, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []school.Teacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *schoolApi) destroyTeacher(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	t, err := api.svc.GetTeacher(reqCtx, ctx.Param("id"))
	if err != nil {
		if core.IsNotFound(err) {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding teacher")
	}
	if t.SchoolID != claims.SchoolID {
		return errHttpNotFound
	}

	if err = api.svc.DeleteTeacher(reqCtx, t.ID); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *schoolApi) retrieveProfile(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	t, err := api.svc.GetTeacher(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding teacher")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *schoolApi) updateProfile(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	t, err := api.svc.GetTeacher(reqCtx, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "finding teacher")
	}

	var data school.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(t, api.validate); err != nil {
		return err
	}

	t, err = api.svc.UpdateProfile(reqCtx, t.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, t)
}
