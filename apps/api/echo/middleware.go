package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/school"
)

const (
	ctxClassKey   = "class"
	ctxStudentKey = "student"
)

func roleMiddleware(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.Role == role {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc   { return roleMiddleware(RoleAdmin) }
func teacherMiddleware() echo.MiddlewareFunc { return roleMiddleware(RoleTeacher) }

// canReachClass: admins reach every class of their school, teachers their own classes.
func canReachClass(claims Claims, class school.ClassRoom) bool {
	if claims.IsAdmin() {
		return class.SchoolID == claims.SchoolID
	}
	return claims.IsTeacher() && class.TeacherID == claims.Subject
}

// classMiddleware loads the `:id` class into the context. Classes out of reach are not found.
func classMiddleware(svc *school.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			class, err := svc.GetClass(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if core.IsNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding class")
			}
			if !canReachClass(claims, class) {
				return errHttpNotFound
			}
			ctx.Set(ctxClassKey, class)
			return next(ctx)
		}
	}
}

// studentMiddleware loads the `:id` student into the context.
// Detached students are only reachable by the admins of their school.
func studentMiddleware(svc *school.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			reqCtx := ctx.Request().Context()
			st, err := svc.GetStudent(reqCtx, ctx.Param("id"))
			if err != nil {
				if core.IsNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding student")
			}

			if st.ClassRoomID == "" {
				if !claims.IsAdmin() || claims.SchoolID != st.SchoolID {
					return errHttpNotFound
				}
			} else {
				class, err := svc.GetClass(reqCtx, st.ClassRoomID)
				if err != nil {
					if core.IsNotFound(err) {
						return errHttpNotFound
					}
					return errors.Wrap(err, "finding class")
				}
				if !canReachClass(claims, class) {
					return errHttpNotFound
				}
			}
			ctx.Set(ctxStudentKey, st)
			return next(ctx)
		}
	}
}

func contextClass(ctx echo.Context) (school.ClassRoom, error) {
	class, ok := ctx.Get(ctxClassKey).(school.ClassRoom)
	if !ok {
		return school.ClassRoom{}, errors.New("class not found in echo.Context")
	}
	return class, nil
}

func contextStudent(ctx echo.Context) (school.Student, error) {
	st, ok := ctx.Get(ctxStudentKey).(school.Student)
	if !ok {
		return school.Student{}, errors.New("student not found in echo.Context")
	}
	return st, nil
}
