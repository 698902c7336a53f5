package gormrepos_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/school"
	"github.com/trezcool/attendance/services/notify"
	"github.com/trezcool/attendance/storage/database"
	"github.com/trezcool/attendance/storage/database/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	conf := &core.Config{TestMode: true}
	conf.Database.Engine = "sqlite"
	conf.Database.Path = filepath.Join(t.TempDir(), "test.db")

	db, err := database.Open(conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

type fixture struct {
	schools school.Repository
	att     attendance.Repository
	teacher school.Teacher
	class   school.ClassRoom
	ali     school.Student
	bota    school.Student
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db := openDB(t)
	f := fixture{
		schools: gormrepos.NewSchoolRepository(db),
		att:     gormrepos.NewAttendanceRepository(db),
	}
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, f.schools.CreateSchools(ctx, school.School{ID: "ALA-001", Name: "Gymnasium 1", City: "Almaty", Region: "Medeu"}))
	var err error
	f.teacher, err = f.schools.CreateTeacher(ctx, school.Teacher{Name: "Aigerim", Email: "aigerim@test.kz", PasswordHash: []byte("hash"), SchoolID: "ALA-001", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	f.class, err = f.schools.CreateClass(ctx, school.ClassRoom{Name: "5A", TeacherID: f.teacher.ID, SchoolID: "ALA-001", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	f.ali, err = f.schools.CreateStudent(ctx, school.Student{Name: "Ali", Number: 2, ClassRoomID: f.class.ID, SchoolID: "ALA-001", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	f.bota, err = f.schools.CreateStudent(ctx, school.Student{Name: "Bota", Number: 1, ClassRoomID: f.class.ID, SchoolID: "ALA-001", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	return f
}

func TestAttendanceRepository_SaveAttendance(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	first, err := f.att.SaveAttendance(ctx,
		attendance.Attendance{StudentID: f.ali.ID, ClassRoomID: f.class.ID, Date: day, Present: false},
		attendance.Attendance{StudentID: f.bota.ID, ClassRoomID: f.class.ID, Date: day, Present: true, TardyMinutes: 15, TardyReason: "bus"},
	)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, f.ali.ID, first[0].StudentID)
	assert.False(t, first[0].Present, "an absence is stored as such")
	assert.True(t, first[1].Present)
	assert.Equal(t, 15, first[1].TardyMinutes)
	assert.Equal(t, "bus", first[1].TardyReason)

	second, err := f.att.SaveAttendance(ctx,
		attendance.Attendance{StudentID: f.bota.ID, ClassRoomID: f.class.ID, Date: day, Present: false},
	)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[1].ID, second[0].ID, "upsert keeps the record")
	assert.False(t, second[0].Present)
	assert.Zero(t, second[0].TardyMinutes)
	assert.Empty(t, second[0].TardyReason)

	recs, err := f.att.QueryAttendance(ctx, attendance.Filter{ClassRoomID: f.class.ID})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	got, err := f.att.GetAttendance(ctx, f.bota.ID, f.class.ID, day)
	require.NoError(t, err)
	assert.Equal(t, day, got.Date)
	assert.False(t, got.Present)

	_, err = f.att.GetAttendance(ctx, f.bota.ID, f.class.ID, day.AddDate(0, 0, 1))
	assert.Equal(t, attendance.ErrNotFound, errors.Cause(err))
}

func TestAttendanceService_SaveDay(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	notifier := &notifysvc.Recorder{}
	svc := attendance.NewService(f.att, f.schools, notifier, time.UTC)
	day1 := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	_, err := svc.SaveDay(ctx, f.class, day1, []attendance.Entry{
		{StudentID: f.ali.ID, Present: true},
		{StudentID: f.bota.ID, Present: false},
	})
	require.NoError(t, err)
	saved, err := svc.SaveDay(ctx, f.class, day1, []attendance.Entry{
		{StudentID: f.ali.ID, Present: false, TardyMinutes: 5, TardyReason: "bus"},
		{StudentID: f.bota.ID, Present: true},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.False(t, saved[0].Present)
	assert.Equal(t, 5, saved[0].TardyMinutes)
	assert.True(t, saved[1].Present)

	_, err = svc.SaveDay(ctx, f.class, day2, []attendance.Entry{
		{StudentID: f.ali.ID, Present: true},
		{StudentID: f.bota.ID, Present: true},
	})
	require.NoError(t, err)

	recs, err := f.att.QueryAttendance(ctx, attendance.Filter{ClassRoomID: f.class.ID})
	require.NoError(t, err)
	require.Len(t, recs, 4, "one record per student and day")

	lines, err := svc.Roster(ctx, f.class.ID, day1)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Bota", lines[0].Name)
	assert.True(t, lines[0].Present)
	assert.Equal(t, "Ali", lines[1].Name)
	assert.False(t, lines[1].Present)
	assert.Equal(t, "bus", lines[1].TardyReason)

	stats, err := svc.ClassStats(ctx, f.class, attendance.RangeWeek)
	require.NoError(t, err)
	assert.Equal(t, 75.0, stats.Average)
	require.Len(t, stats.Students, 2)
	assert.Equal(t, f.bota.ID, stats.Students[0].Student.ID)
	assert.Equal(t, 100.0, stats.Students[0].Percent)
	assert.Equal(t, 50.0, stats.Students[1].Percent)

	assert.Equal(t, []notifysvc.Absence{
		{Student: "Bota", Class: "5A"},
		{Student: "Ali", Class: "5A"},
	}, notifier.Absences())
}

func TestAttendanceRepository_Query(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	_, err := f.att.LastAttendanceDay(ctx, f.class.ID)
	assert.Equal(t, attendance.ErrNotFound, errors.Cause(err))

	var recs []attendance.Attendance
	for i := 4; i >= 0; i-- {
		recs = append(recs, attendance.Attendance{StudentID: f.ali.ID, ClassRoomID: f.class.ID, Date: day.AddDate(0, 0, i), Present: i%2 == 0})
	}
	_, err = f.att.SaveAttendance(ctx, recs...)
	require.NoError(t, err)

	tests := []struct {
		name      string
		filter    attendance.Filter
		wantDates []time.Time
	}{
		{
			name:      "whole class",
			filter:    attendance.Filter{ClassRoomID: f.class.ID},
			wantDates: []time.Time{day, day.AddDate(0, 0, 1), day.AddDate(0, 0, 2), day.AddDate(0, 0, 3), day.AddDate(0, 0, 4)},
		},
		{
			name:      "half open range",
			filter:    attendance.Filter{StudentID: f.ali.ID, From: day.AddDate(0, 0, 1), To: day.AddDate(0, 0, 3)},
			wantDates: []time.Time{day.AddDate(0, 0, 1), day.AddDate(0, 0, 2)},
		},
		{
			name:   "other student",
			filter: attendance.Filter{StudentID: f.bota.ID},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.att.QueryAttendance(ctx, tt.filter)
			require.NoError(t, err)
			var dates []time.Time
			for _, r := range got {
				dates = append(dates, r.Date)
			}
			assert.Equal(t, tt.wantDates, dates)
		})
	}

	last, err := f.att.LastAttendanceDay(ctx, f.class.ID)
	require.NoError(t, err)
	assert.Equal(t, day.AddDate(0, 0, 4), last)
}

func TestSchoolRepository_MalformedIDs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		call    func(id string) error
		wantErr error
	}{
		{name: "admin", call: func(id string) error { _, err := f.schools.GetAdmin(ctx, id); return err }, wantErr: school.ErrAdminNotFound},
		{name: "teacher", call: func(id string) error { _, err := f.schools.GetTeacher(ctx, id); return err }, wantErr: school.ErrTeacherNotFound},
		{name: "delete teacher", call: func(id string) error { return f.schools.DeleteTeacher(ctx, id) }, wantErr: school.ErrTeacherNotFound},
		{name: "class", call: func(id string) error { _, err := f.schools.GetClass(ctx, id); return err }, wantErr: school.ErrClassNotFound},
		{name: "student", call: func(id string) error { _, err := f.schools.GetStudent(ctx, id); return err }, wantErr: school.ErrStudentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, id := range []string{"nope", "", "1; DROP TABLE students"} {
				if err := tt.call(id); errors.Cause(err) != tt.wantErr {
					t.Errorf("%s(%q) error = %v, want %v", tt.name, id, err, tt.wantErr)
				}
			}
		})
	}

	classes, err := f.schools.QueryClasses(ctx, school.ClassFilter{SchoolID: "ALA-001", TeacherID: "nope"})
	require.NoError(t, err)
	assert.Empty(t, classes)
}

func TestSchoolRepository_Teachers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	got, err := f.schools.GetTeacherByEmail(ctx, "Aigerim@Test.kz")
	require.NoError(t, err)
	assert.Equal(t, f.teacher.ID, got.ID)
	assert.Equal(t, []byte("hash"), got.PasswordHash)
	assert.Equal(t, []string{}, got.Profile.Skills)

	got.Profile = school.Profile{
		Education:    "KazNU",
		Experience:   7,
		Skills:       []string{"math", "physics"},
		Achievements: []school.Achievement{{Title: "Olympiad", Photo: []byte{1, 2, 3}}, {Title: "Mentor"}},
		SocialLinks:  []string{"https://example.kz/aigerim"},
	}
	_, err = f.schools.UpdateTeacher(ctx, got)
	require.NoError(t, err)

	got, err = f.schools.GetTeacher(ctx, f.teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, "KazNU", got.Profile.Education)
	assert.Equal(t, []string{"math", "physics"}, got.Profile.Skills)
	assert.Equal(t, []school.Achievement{{Title: "Olympiad", Photo: []byte{1, 2, 3}}, {Title: "Mentor"}}, got.Profile.Achievements)
	assert.Equal(t, []string{}, got.Profile.Certificates)

	_, err = f.schools.CreateTeacher(ctx, school.Teacher{Name: "Bolat", Email: "bolat@test.kz", PasswordHash: []byte("x"), SchoolID: "ALA-001"})
	require.NoError(t, err)
	teachers, err := f.schools.QueryTeachers(ctx, "ALA-001", []core.DBOrdering{{Field: "name", Ascending: false}})
	require.NoError(t, err)
	require.Len(t, teachers, 2)
	assert.Equal(t, "Bolat", teachers[0].Name)

	_, err = f.schools.GetTeacher(ctx, "ghost")
	assert.Equal(t, school.ErrTeacherNotFound, errors.Cause(err))
	_, err = f.schools.UpdateTeacher(ctx, school.Teacher{ID: "ghost"})
	assert.Equal(t, school.ErrTeacherNotFound, errors.Cause(err))
}

func TestSchoolRepository_Schools(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.schools.CreateSchools(ctx,
		school.School{ID: "AST-001", Name: "Lyceum 1", City: "Astana", Region: "Esil"},
		school.School{ID: "ALA-002", Name: "Artium", City: "Almaty", Region: "Medeu"},
	))
	n, err := f.schools.CountSchools(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	schools, err := f.schools.QuerySchools(ctx, school.SchoolFilter{City: "Almaty", Region: "Medeu"})
	require.NoError(t, err)
	require.Len(t, schools, 2)
	assert.Equal(t, "Artium", schools[0].Name)

	require.NoError(t, f.schools.ReplaceSchools(ctx, []school.School{{ID: "SHY-001", Name: "School 1", City: "Shymkent", Region: "Abai"}}))
	n, err = f.schools.CountSchools(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = f.schools.GetSchool(ctx, "ALA-001")
	assert.True(t, core.IsNotFound(err))
}

func TestSchoolRepository_Cascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	other, err := f.schools.CreateClass(ctx, school.ClassRoom{Name: "5B", TeacherID: f.teacher.ID, SchoolID: "ALA-001"})
	require.NoError(t, err)
	dana, err := f.schools.CreateStudent(ctx, school.Student{Name: "Dana", Number: 1, ClassRoomID: other.ID})
	require.NoError(t, err)
	_, err = f.att.SaveAttendance(ctx,
		attendance.Attendance{StudentID: f.ali.ID, ClassRoomID: f.class.ID, Date: day, Present: true},
		attendance.Attendance{StudentID: dana.ID, ClassRoomID: other.ID, Date: day, Present: false},
	)
	require.NoError(t, err)

	// class: students detached, attendance deleted
	require.NoError(t, f.schools.DeleteClass(ctx, f.class.ID))
	st, err := f.schools.GetStudent(ctx, f.ali.ID)
	require.NoError(t, err)
	assert.Empty(t, st.ClassRoomID)
	assert.Equal(t, "ALA-001", st.SchoolID)
	roster, err := f.schools.QueryStudents(ctx, f.class.ID)
	require.NoError(t, err)
	assert.Empty(t, roster)
	recs, err := f.att.QueryAttendance(ctx, attendance.Filter{ClassRoomID: f.class.ID})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, school.ErrClassNotFound, errors.Cause(f.schools.DeleteClass(ctx, f.class.ID)))

	// student: attendance deleted
	require.NoError(t, f.schools.DeleteStudent(ctx, dana.ID))
	recs, err = f.att.QueryAttendance(ctx, attendance.Filter{StudentID: dana.ID})
	require.NoError(t, err)
	assert.Empty(t, recs)

	// teacher: classes detached
	require.NoError(t, f.schools.DeleteTeacher(ctx, f.teacher.ID))
	cls, err := f.schools.GetClass(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, cls.TeacherID)
}

func TestSchoolRepository_Roster(t *testing.T) {
	f := setup(t)
	roster, err := f.schools.QueryStudents(context.Background(), f.class.ID)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "Bota", roster[0].Name)
	assert.Equal(t, "Ali", roster[1].Name)
}
