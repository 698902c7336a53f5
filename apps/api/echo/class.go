package echoapi

import (
	"mime"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/school"
	"github.com/trezcool/attendance/services/report"
)

type classApi struct {
	svc      *school.Service
	attSvc   *attendance.Service
	validate *validator.Validate
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := classApi{
		svc:      deps.SchoolSvc,
		attSvc:   deps.AttendanceSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/classes", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, adminMiddleware())

	// detail endpoints
	dg := cg.Group("/:id", classMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.GET("/students", api.roster)
	dg.POST("/students", api.addStudent, adminMiddleware())
	dg.GET("/attendance", api.attendanceSheet)
	dg.PUT("/attendance", api.saveAttendance)
	dg.GET("/stats", api.stats)
	dg.GET("/stats/export", api.exportStats)

	sg := g.Group("/students/:id", jwt, studentMiddleware(api.svc))
	sg.PUT("", api.updateStudent, adminMiddleware())
	sg.DELETE("", api.destroyStudent, adminMiddleware())
	sg.GET("/history", api.studentHistory)
}

// Classes

func (api *classApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	filter := school.ClassFilter{SchoolID: claims.SchoolID}
	if claims.IsTeacher() {
		filter.TeacherID = claims.Subject
	} else {
		filter.TeacherID = core.CleanString(ctx.QueryParam("teacher_id"))
	}

	classes, err := api.svc.QueryClasses(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []school.ClassRoom{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data school.NewClassRoom
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassRoom")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	class, err := api.svc.CreateClass(ctx.Request().Context(), claims.SchoolID, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, class)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	class, err := contextClass(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, class)
}

func (api *classApi) update(ctx echo.Context) error {
	class, err := contextClass(ctx)
	if err != nil {
		return err
	}
	var data school.UpdateClassRoom
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClassRoom")
	}
	if err = data.Validate(class, api.validate); err != nil {
		return err
	}

	class, err = api.svc.UpdateClass(ctx.Request().Context(), class, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, class)
}

func (api *classApi) destroy(ctx echo.Context) error {
	class, err := contextClass(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteClass(ctx.Request().Context(), class.ID); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Students

func (api *classApi) roster(ctx echo.Context) error {
	class, err := contextClass(ctx)
	if err != nil {
		return err
	}
	students, err := api.svc.Roster(ctx.Request().Context(), class.ID)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []school.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classApi) addStudent(ctx echo.Context) error {
	class, err := contextClass(ctx)
	if err != nil {
		return err
	}
	var data school.NewStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	st, err := api.svc.AddStudent(ctx.Request().Context(), class.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *classApi) updateStudent(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	var data school.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(st, api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if data.ClassRoomID != st.ClassRoomID {
		// students only move between the classes of the admin's school
		target, err := api.svc.GetClass(reqCtx, data.ClassRoomID)
		if err != nil && !core.IsNotFound(err) {
			return errors.Wrap(err, "finding class")
		}
		if err != nil || target.SchoolID != claims.SchoolID {
			return core.NewValidationError(school.ErrUnknownClass, core.FieldError{Field: "class_room_id", Error: school.ErrUnknownClass.Error()})
		}
	}

	st, err = api.svc.UpdateStudent(reqCtx, st, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *classApi) destroyStudent(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteStudent(ctx.Request().Context(), st.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) studentHistory(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	history, err := api.attSvc.StudentHistory(ctx.Request().Context(), st)
	if err != nil {
		return errors.Wrap(err, "querying student history")
	}
	return ctx.JSON(http.StatusOK, history)
}

// Attendance

func (api *classApi) attendanceSheet(ctx echo.Context) error {
	class, err := contextClass(ctx)
	if err != nil {
		return err
	}
	day, err := api.queryDay(ctx)
	if err != nil {
		return err
	}
	lines, err := api.attSvc.Roster(ctx.Request().Context(), class.ID, day)
	if err != nil {
		return errors.Wrap(err, "querying roster")
	}
	return ctx.JSON(http.StatusOK, RosterResponse{Date: day.Format(core.DayLayout), Lines: lines})
}

func (api *classApi) saveAttendance(ctx echo.Context) error {
	class, err := contextClass(ctx)
	if err != nil {
		return err
	}
	var data attendance.DaySheet
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DaySheet")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	day, err := core.ParseDay(data.Date)
	if err != nil {
		return dayError("date")
	}

	reqCtx := ctx.Request().Context()
	if _, err = api.attSvc.SaveDay(reqCtx, class, day, data.Entries); err != nil {
		return errors.Wrap(err, "saving attendance")
	}
	lines, err := api.attSvc.Roster(reqCtx, class.ID, day)
	if err != nil {
		return errors.Wrap(err, "querying roster")
	}
	return ctx.JSON(http.StatusOK, RosterResponse{Date: day.Format(core.DayLayout), Lines: lines})
}

// queryDay reads the `date` query param; today when absent.
func (api *classApi) queryDay(ctx echo.Context) (time.Time, error) {
	s := core.CleanString(ctx.QueryParam("date"))
	if s == "" {
		return api.attSvc.Today(), nil
	}
	day, err := core.ParseDay(s)
	if err != nil {
		return time.Time{}, dayError("date")
	}
	return day, nil
}

func dayError(field string) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: "must be a date formatted as YYYY-MM-DD"})
}

// Statistics

func (api *classApi) classStats(ctx echo.Context) (attendance.ClassStats, error) {
	class, err := contextClass(ctx)
	if err != nil {
		return attendance.ClassStats{}, err
	}
	kind, err := attendance.ParseRangeKind(core.CleanString(ctx.QueryParam("range"), true /* lower */))
	if err != nil {
		return attendance.ClassStats{}, core.NewValidationError(err, core.FieldError{Field: "range", Error: err.Error()})
	}
	stats, err := api.attSvc.ClassStats(ctx.Request().Context(), class, kind)
	if err != nil {
		return attendance.ClassStats{}, errors.Wrap(err, "computing class stats")
	}
	return stats, nil
}

func (api *classApi) stats(ctx echo.Context) error {
	stats, err := api.classStats(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *classApi) exportStats(ctx echo.Context) error {
	stats, err := api.classStats(ctx)
	if err != nil {
		return err
	}
	data, err := reportsvc.ClassStats(stats)
	if err != nil {
		return errors.Wrap(err, "writing class stats workbook")
	}
	filename := stats.Class.Name + "-" + string(stats.Range) + ".xlsx"
	ctx.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	return ctx.Blob(http.StatusOK, reportsvc.ContentType, data)
}

type RosterResponse struct {
	Date  string                  `json:"date"`
	Lines []attendance.RosterLine `json:"lines"`
}
