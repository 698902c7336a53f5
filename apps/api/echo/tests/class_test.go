package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core/school"
	"github.com/trezcool/attendance/tests"
)

// schoolFixture is two schools, each with an admin, and two teachers of the first school.
type schoolFixture struct {
	admin, otherAdmin school.SchoolAdmin
	aigerim, dana     school.Teacher
	c5a, c5b          school.ClassRoom
	ali, bota         school.Student
}

func newSchoolFixture(t *testing.T, e *apiEnv) schoolFixture {
	var f schoolFixture
	f.admin = testutil.CreateAdmin(t, e.repo, "Director", "director@test.kz", "ALA-MED-001")
	f.otherAdmin = testutil.CreateAdmin(t, e.repo, "Other", "other@test.kz", "ALA-MED-002")
	f.aigerim = testutil.CreateTeacher(t, e.repo, "Aigerim", "aigerim@test.kz", "ALA-MED-001")
	f.dana = testutil.CreateTeacher(t, e.repo, "Dana", "dana@test.kz", "ALA-MED-001")
	f.c5a = testutil.CreateClass(t, e.repo, "5A", f.aigerim.ID, "ALA-MED-001")
	f.c5b = testutil.CreateClass(t, e.repo, "5B", f.dana.ID, "ALA-MED-001")
	f.bota = testutil.CreateStudent(t, e.repo, "Bota", 2, f.c5a.ID)
	f.ali = testutil.CreateStudent(t, e.repo, "Ali", 1, f.c5a.ID)
	return f
}

func Test_classApi_query(t *testing.T) {
	e := setup(t)
	f := newSchoolFixture(t, e)

	tests := []httpTest{
		{name: "auth required", path: "/v1/classes", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin", path: "/v1/classes", token: adminToken(t, e.conf, f.admin), wantCode: http.StatusOK, wantData: marchallList(t, f.c5a, f.c5b)},
		{
			name: "admin by teacher", path: "/v1/classes?teacher_id=" + f.dana.ID, token: adminToken(t, e.conf, f.admin),
			wantCode: http.StatusOK, wantData: marchallList(t, f.c5b),
		},
		{name: "other school admin", path: "/v1/classes", token: adminToken(t, e.conf, f.otherAdmin), wantCode: http.StatusOK, wantData: marchallList(t)},
		{name: "teacher sees own classes", path: "/v1/classes", token: teacherToken(t, e.conf, f.aigerim), wantCode: http.StatusOK, wantData: marchallList(t, f.c5a)},
		{name: "teacher detail", path: "/v1/classes/" + f.c5a.ID, token: teacherToken(t, e.conf, f.aigerim), wantCode: http.StatusOK, wantData: marchallObj(t, f.c5a)},
		{
			name: "other teacher's class", path: "/v1/classes/" + f.c5b.ID, token: teacherToken(t, e.conf, f.aigerim),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "other school's class", path: "/v1/classes/" + f.c5a.ID, token: adminToken(t, e.conf, f.otherAdmin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{name: "unknown class", path: "/v1/classes/nope", token: adminToken(t, e.conf, f.admin), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	}
	runTests(t, e, tests)
}

func Test_classApi_writes(t *testing.T) {
	e := setup(t)
	f := newSchoolFixture(t, e)
	admToken := adminToken(t, e.conf, f.admin)
	other := testutil.CreateTeacher(t, e.repo, "Stranger", "stranger@test.kz", "ALA-MED-002")

	tests := []httpTest{
		{
			name: "teacher cannot create", method: http.MethodPost, path: "/v1/classes", token: teacherToken(t, e.conf, f.aigerim),
			body: marchallObj(t, school.NewClassRoom{Name: "6A", TeacherID: f.aigerim.ID}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "teacher of another school", method: http.MethodPost, path: "/v1/classes", token: admToken,
			body:     marchallObj(t, school.NewClassRoom{Name: "6A", TeacherID: other.ID}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"teacher_id": "unknown teacher"}),
		},
		{
			name: "missing name", method: http.MethodPost, path: "/v1/classes", token: admToken,
			body:     marchallObj(t, school.NewClassRoom{TeacherID: f.aigerim.ID}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "teacher cannot add students", method: http.MethodPost, path: "/v1/classes/" + f.c5a.ID + "/students",
			token: teacherToken(t, e.conf, f.aigerim), body: marchallObj(t, school.NewStudent{Name: "Cem", Number: 3}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	runTests(t, e, tests)

	t.Run("create, rename and delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", admToken, marchallObj(t, school.NewClassRoom{Name: " 6A ", TeacherID: f.dana.ID}))
		e.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created school.ClassRoom
		decode(t, rec, &created)
		assert.Equal(t, "6A", created.Name)
		assert.Equal(t, "ALA-MED-001", created.SchoolID)

		req, rec = newAuthRequest(http.MethodPut, "/v1/classes/"+created.ID, admToken, []byte(`{"name": "6B"}`))
		e.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated school.ClassRoom
		decode(t, rec, &updated)
		assert.Equal(t, "6B", updated.Name)
		assert.Equal(t, f.dana.ID, updated.TeacherID)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/classes/"+created.ID, admToken)
		e.serve(req, rec)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		_, err := e.schoolSvc.GetClass(ctxBg, created.ID)
		assert.Equal(t, school.ErrClassNotFound, err)
	})

	t.Run("students", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes/"+f.c5a.ID+"/students", admToken, marchallObj(t, school.NewStudent{Name: "Cem", Number: 3}))
		e.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var cem school.Student
		decode(t, rec, &cem)

		req, rec = newAuthRequest(http.MethodGet, "/v1/classes/"+f.c5a.ID+"/students", teacherToken(t, e.conf, f.aigerim))
		e.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, f.ali, f.bota, cem)}, rec)

		// move Cem to 5B, then to a class of another school
		req, rec = newAuthRequest(http.MethodPut, "/v1/students/"+cem.ID, admToken, marchallObj(t, school.UpdateStudent{ClassRoomID: f.c5b.ID}))
		e.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &cem)
		assert.Equal(t, f.c5b.ID, cem.ClassRoomID)

		foreign := testutil.CreateClass(t, e.repo, "9Z", other.ID, "ALA-MED-002")
		req, rec = newAuthRequest(http.MethodPut, "/v1/students/"+cem.ID, admToken, marchallObj(t, school.UpdateStudent{ClassRoomID: foreign.ID}))
		e.serve(req, rec)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"class_room_id": "unknown class"})}, rec)

		// aigerim no longer reaches Cem
		req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+cem.ID+"/history", teacherToken(t, e.conf, f.aigerim))
		e.serve(req, rec)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/students/"+cem.ID, admToken)
		e.serve(req, rec)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("detached students stay in their school", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/classes/"+f.c5a.ID, admToken)
		e.serve(req, rec)
		require.Equal(t, http.StatusNoContent, rec.Code)

		otherToken := adminToken(t, e.conf, f.otherAdmin)
		foreign := testutil.CreateClass(t, e.repo, "9Y", other.ID, "ALA-MED-002")
		notFound := marchallObj(t, errNotFound)
		runTests(t, e, []httpTest{
			{name: "other school admin: history", path: "/v1/students/" + f.ali.ID + "/history", token: otherToken, wantCode: http.StatusNotFound, wantData: notFound},
			{
				name: "other school admin: move", method: http.MethodPut, path: "/v1/students/" + f.ali.ID, token: otherToken,
				body: marchallObj(t, school.UpdateStudent{ClassRoomID: foreign.ID}), wantCode: http.StatusNotFound, wantData: notFound,
			},
			{name: "other school admin: delete", method: http.MethodDelete, path: "/v1/students/" + f.ali.ID, token: otherToken, wantCode: http.StatusNotFound, wantData: notFound},
			{name: "former teacher", path: "/v1/students/" + f.ali.ID + "/history", token: teacherToken(t, e.conf, f.aigerim), wantCode: http.StatusNotFound, wantData: notFound},
			{name: "own school admin", path: "/v1/students/" + f.ali.ID + "/history", token: admToken, wantCode: http.StatusOK},
		})

		st, err := e.schoolSvc.GetStudent(ctxBg, f.ali.ID)
		require.NoError(t, err)
		assert.Empty(t, st.ClassRoomID)
		assert.Equal(t, "ALA-MED-001", st.SchoolID)
	})
}
