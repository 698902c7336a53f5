package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/attendance/apps/api/echo"
	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/refdata"
	"github.com/trezcool/attendance/core/school"
	"github.com/trezcool/attendance/fs"
	"github.com/trezcool/attendance/services/notify"
	"github.com/trezcool/attendance/storage/database/dummy"
	"github.com/trezcool/attendance/tests"
)

var (
	ctxBg = context.Background()

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errNotFound     = httpErr{Error: "not found"}
	errForbidden    = httpErr{Error: "permission denied"}
)

// apiEnv is a server backed by in-memory repositories and the embedded school directory.
type apiEnv struct {
	app       Server
	conf      *core.Config
	repo      school.Repository
	schoolSvc *school.Service
	attSvc    *attendance.Service
	notifier  *notifysvc.Recorder
	logger    *testutil.Logger
}

func setup(t *testing.T) *apiEnv {
	conf := &core.Config{
		TestMode:  true,
		AppName:   "Attendance",
		SecretKey: "secret",
		Location:  time.UTC,
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}

	// set up DB & repos
	db := dummydb.Open()
	repo := dummydb.NewSchoolRepository(db)

	dir, err := refdata.LoadFS(appfs.FS, appfs.SchoolsFile)
	if err != nil {
		t.Fatalf("refdata.LoadFS() failed: %v", err)
	}

	// set up services
	logger := &testutil.Logger{}
	notifier := &notifysvc.Recorder{}
	schoolSvc := school.NewService(repo)
	attSvc := attendance.NewService(dummydb.NewAttendanceRepository(db), repo, notifier, conf.Location)
	if _, err = schoolSvc.ImportSchools(ctxBg, dir, false); err != nil {
		t.Fatalf("ImportSchools() failed: %v", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	school.InitValidators(validate, translator)

	// set up server
	app := NewServer(
		ServerDeps{
			Conf:           conf,
			Logger:         logger,
			SchoolSvc:      schoolSvc,
			AttendanceSvc:  attSvc,
			RefData:        dir,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
	)
	return &apiEnv{
		app:       app,
		conf:      conf,
		repo:      repo,
		schoolSvc: schoolSvc,
		attSvc:    attSvc,
		notifier:  notifier,
		logger:    logger,
	}
}

func (e *apiEnv) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	e.app.ServeHTTP(rec, req)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func teacherToken(t *testing.T, conf *core.Config, tch school.Teacher) string {
	token, err := TeacherToken(conf, tch)
	if err != nil {
		t.Fatalf("TeacherToken() failed: %v", err)
	}
	return token
}

func adminToken(t *testing.T, conf *core.Config, adm school.SchoolAdmin) string {
	token, err := AdminToken(conf, adm)
	if err != nil {
		t.Fatalf("AdminToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runTests(t *testing.T, e *apiEnv, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			e.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}
