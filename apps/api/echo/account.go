package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/refdata"
	"github.com/trezcool/attendance/core/school"
)

var errSchoolNotInRegion = errors.New("school is not in this city and region")

type authApi struct {
	auth     *tokenAuth
	svc      *school.Service
	dir      *refdata.Provider
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *tokenAuth, deps ServerDeps) {
	api := authApi{
		auth:     auth,
		svc:      deps.SchoolSvc,
		dir:      deps.RefData,
		validate: deps.Validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/teacher/login", api.teacherLogin)
	ag.POST("/teacher/register", api.teacherRegister)
	ag.POST("/admin/login", api.adminLogin)
	ag.POST("/admin/register", api.adminRegister)

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

// Handlers

func (api *authApi) teacherLogin(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, ok, err := api.svc.AuthenticateTeacher(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating teacher")
	}
	if !ok {
		return errAuthenticationFailed
	}
	return api.respondToken(ctx, api.auth.teacherClaims(t))
}

func (api *authApi) adminLogin(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	adm, ok, err := api.svc.AuthenticateAdmin(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating admin")
	}
	if !ok {
		return errAuthenticationFailed
	}
	return api.respondToken(ctx, api.auth.adminClaims(adm))
}

func (api *authApi) respondToken(ctx echo.Context, claims *Claims) error {
	token, err := api.auth.generateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) teacherRegister(ctx echo.Context) error {
	var data school.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	// the school is picked from the reference directory: city, then region, then school
	if !api.inDirectory(data.City, data.Region, data.SchoolID) {
		return core.NewValidationError(errSchoolNotInRegion, core.FieldError{Field: "school_id", Error: errSchoolNotInRegion.Error()})
	}

	t, err := api.svc.RegisterTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering teacher")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *authApi) adminRegister(ctx echo.Context) error {
	var data school.NewSchoolAdmin
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchoolAdmin")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	adm, err := api.svc.RegisterAdmin(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering admin")
	}
	return ctx.JSON(http.StatusCreated, adm)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refresh(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) inDirectory(city, region, schoolID string) bool {
	for _, s := range api.dir.Schools(city, region) {
		if s.ID == schoolID {
			return true
		}
	}
	return false
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
