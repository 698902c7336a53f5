package tests

import (
	"bytes"
	"mime"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	. "github.com/trezcool/attendance/apps/api/echo"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/services/notify"
	"github.com/trezcool/attendance/services/report"
	"github.com/trezcool/attendance/tests"
)

func Test_classApi_attendance(t *testing.T) {
	e := setup(t)
	f := newSchoolFixture(t, e)
	token := teacherToken(t, e.conf, f.aigerim)
	path := "/v1/classes/" + f.c5a.ID + "/attendance"

	sheet := func(date string, entries ...attendance.Entry) []byte {
		return marchallObj(t, attendance.DaySheet{Date: date, Entries: entries})
	}

	tests := []httpTest{
		{
			name: "defaults before any record", path: path + "?date=2024-03-04", token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, RosterResponse{Date: "2024-03-04", Lines: []attendance.RosterLine{
				{StudentID: f.ali.ID, Name: "Ali", Number: 1, Present: true},
				{StudentID: f.bota.ID, Name: "Bota", Number: 2, Present: true},
			}}),
		},
		{
			name: "bad date", path: path + "?date=04/03/2024", token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"date": "must be a date formatted as YYYY-MM-DD"}),
		},
		{
			name: "other teacher", path: path, token: teacherToken(t, e.conf, f.dana), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
		{
			name: "student of another class", method: http.MethodPut, path: path, token: token,
			body:     sheet("2024-03-04", attendance.Entry{StudentID: "nope", Present: true}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"entries[0].student_id": "student is not in this class"}),
		},
		{
			name: "negative tardiness", method: http.MethodPut, path: path, token: token,
			body:     sheet("2024-03-04", attendance.Entry{StudentID: f.ali.ID, Present: true, TardyMinutes: -5}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "empty sheet", method: http.MethodPut, path: path, token: token,
			body: sheet("2024-03-04"), wantCode: http.StatusBadRequest,
		},
	}
	runTests(t, e, tests)
	assert.Empty(t, e.notifier.Absences())

	t.Run("save then overwrite", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path, token, sheet("2024-03-04",
			attendance.Entry{StudentID: f.ali.ID, Present: true, TardyMinutes: 10, TardyReason: " bus "},
			attendance.Entry{StudentID: f.bota.ID, Present: false},
		))
		e.serve(req, rec)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, RosterResponse{Date: "2024-03-04", Lines: []attendance.RosterLine{
				{StudentID: f.ali.ID, Name: "Ali", Number: 1, Present: true, TardyMinutes: 10, TardyReason: "bus", Recorded: true},
				{StudentID: f.bota.ID, Name: "Bota", Number: 2, Present: false, Recorded: true},
			}}),
		}, rec)
		assert.Equal(t, []notifysvc.Absence{{Student: "Bota", Class: "5A"}}, e.notifier.Absences())

		// same day, the admin corrects Bota: still one record per student
		req, rec = newAuthRequest(http.MethodPut, path, adminToken(t, e.conf, f.admin), sheet("2024-03-04",
			attendance.Entry{StudentID: f.bota.ID, Present: true},
		))
		e.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		history, err := e.attSvc.StudentHistory(ctxBg, f.bota)
		require.NoError(t, err)
		require.Len(t, history.Records, 1)
		assert.True(t, history.Records[0].Present)
	})
}

func Test_classApi_stats(t *testing.T) {
	e := setup(t)
	f := newSchoolFixture(t, e)
	token := teacherToken(t, e.conf, f.aigerim)

	for _, day := range []string{"2024-03-04", "2024-03-05"} {
		req, rec := newAuthRequest(http.MethodPut, "/v1/classes/"+f.c5a.ID+"/attendance", token, marchallObj(t, attendance.DaySheet{
			Date: day,
			Entries: []attendance.Entry{
				{StudentID: f.ali.ID, Present: true},
				{StudentID: f.bota.ID, Present: day == "2024-03-05"},
			},
		}))
		e.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	t.Run("json", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+f.c5a.ID+"/stats?range=month", token)
		e.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var stats attendance.ClassStats
		decode(t, rec, &stats)
		assert.Equal(t, attendance.RangeMonth, stats.Range)
		assert.Equal(t, 75.0, stats.Average)
		require.Len(t, stats.Students, 2)
		assert.Equal(t, "Ali", stats.Students[0].Student.Name)
		assert.Equal(t, 100.0, stats.Students[0].Percent)
		assert.Equal(t, 50.0, stats.Students[1].Percent)
	})

	t.Run("bad range", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+f.c5a.ID+"/stats?range=year", token)
		e.serve(req, rec)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"range": attendance.ErrInvalidRange.Error()}),
		}, rec)
	})

	t.Run("export", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+f.c5a.ID+"/stats/export?range=all", token)
		e.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, reportsvc.ContentType, rec.Header().Get("Content-Type"))
		assert.Equal(t, "attachment; filename=5A-all.xlsx", rec.Header().Get("Content-Disposition"))

		book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		rows, err := book.GetRows("Statistics")
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.Equal(t, []string{"1", "Ali", "2", "2", "100.0%"}, rows[1])
		assert.Equal(t, []string{"", "Class average", "", "", "75.0%"}, rows[3])
	})

	t.Run("export filename", func(t *testing.T) {
		for _, name := range []string{`5"B`, "Әдебиет 7", "6 A; x=y"} {
			cls := testutil.CreateClass(t, e.repo, name, f.aigerim.ID, "ALA-MED-001")
			req, rec := newAuthRequest(http.MethodGet, "/v1/classes/"+cls.ID+"/stats/export?range=week", token)
			e.serve(req, rec)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
			require.NoError(t, err, name)
			assert.Equal(t, "attachment", disposition)
			assert.Equal(t, name+"-week.xlsx", params["filename"])
		}
	})
}
