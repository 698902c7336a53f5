package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/school"
)

const (
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"

	tokenContextKey = "token"
	audience        = "Attendance"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role"`
	SchoolID     string `json:"school_id"`
}

func (c Claims) IsAdmin() bool   { return c.Role == RoleAdmin }
func (c Claims) IsTeacher() bool { return c.Role == RoleTeacher }

// account returns the claimed account in the shape loggers understand.
func (c Claims) account() interface{} {
	if c.IsAdmin() {
		return school.SchoolAdmin{ID: c.Subject, Name: c.Name, Email: c.Email, SchoolID: c.SchoolID}
	}
	return school.Teacher{ID: c.Subject, Name: c.Name, Email: c.Email, SchoolID: c.SchoolID}
}

type tokenAuth struct {
	jwtConfig         middleware.JWTConfig
	issuer            string
	expiration        time.Duration
	refreshExpiration time.Duration
}

func newTokenAuth(conf *core.Config) *tokenAuth {
	return &tokenAuth{
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    tokenContextKey,
			Claims:        new(Claims),
		},
		issuer:            conf.AppName,
		expiration:        conf.Server.JWTExpirationDelta,
		refreshExpiration: conf.Server.JWTRefreshExpirationDelta,
	}
}

func (a *tokenAuth) claims(id, name, email, role, schoolID string, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.issuer,
			Subject:   id,
			Audience:  audience,
			ExpiresAt: now.Add(a.expiration).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         name,
		Email:        email,
		Role:         role,
		SchoolID:     schoolID,
	}
}

func (a *tokenAuth) teacherClaims(t school.Teacher, origIat ...int64) *Claims {
	return a.claims(t.ID, t.Name, t.Email, RoleTeacher, t.SchoolID, origIat...)
}

func (a *tokenAuth) adminClaims(adm school.SchoolAdmin, origIat ...int64) *Claims {
	return a.claims(adm.ID, adm.Name, adm.Email, RoleAdmin, adm.SchoolID, origIat...)
}

func (a *tokenAuth) generateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(a.jwtConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.jwtConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// refresh issues a new token for the context account as long as the refresh window of the
// original token is open and the account still exists.
func (a *tokenAuth) refresh(ctx echo.Context, svc *school.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.refreshExpiration)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	var newClaims *Claims
	reqCtx := ctx.Request().Context()
	switch claims.Role {
	case RoleAdmin:
		adm, err := svc.GetAdmin(reqCtx, claims.Subject)
		if err != nil {
			return "", accountGone(err)
		}
		newClaims = a.adminClaims(adm, claims.OrigIssuedAt)
	case RoleTeacher:
		t, err := svc.GetTeacher(reqCtx, claims.Subject)
		if err != nil {
			return "", accountGone(err)
		}
		newClaims = a.teacherClaims(t, claims.OrigIssuedAt)
	default:
		return "", errUnauthorized
	}
	return a.generateToken(newClaims)
}

func accountGone(err error) error {
	if core.IsNotFound(err) {
		return errUnauthorized
	}
	return errors.Wrap(err, "finding account")
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// TeacherToken returns a signed token for a teacher.
func TeacherToken(conf *core.Config, t school.Teacher) (string, error) {
	a := newTokenAuth(conf)
	return a.generateToken(a.teacherClaims(t))
}

// AdminToken returns a signed token for a school admin.
func AdminToken(conf *core.Config, adm school.SchoolAdmin) (string, error) {
	a := newTokenAuth(conf)
	return a.generateToken(a.adminClaims(adm))
}

// GenerateToken signs arbitrary claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	return newTokenAuth(conf).generateToken(claims)
}
