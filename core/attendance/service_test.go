package attendance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/school"
	"github.com/trezcool/attendance/storage/database/dummy"
)

type absence struct {
	student, class string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []absence
}

func (n *recordingNotifier) NotifyAbsent(_ context.Context, studentName, className string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, absence{studentName, className})
}

type fixture struct {
	svc      *attendance.Service
	repo     attendance.Repository
	schools  school.Repository
	notifier *recordingNotifier
	school   school.School
	teacher  school.Teacher
	class    school.ClassRoom
	students []school.Student
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := dummydb.Open()
	f := &fixture{
		repo:     dummydb.NewAttendanceRepository(db),
		schools:  dummydb.NewSchoolRepository(db),
		notifier: &recordingNotifier{},
		school:   school.School{ID: "SCH-1", Name: "Lyceum 1", City: "Almaty", Region: "Medeu"},
	}
	f.svc = attendance.NewService(f.repo, f.schools, f.notifier, time.UTC)

	require.NoError(t, f.schools.CreateSchools(ctx, f.school))
	var err error
	f.teacher, err = f.schools.CreateTeacher(ctx, school.Teacher{Name: "Aigerim", Email: "aigerim@test.kz", SchoolID: f.school.ID})
	require.NoError(t, err)
	f.class, err = f.schools.CreateClass(ctx, school.ClassRoom{Name: "5A", TeacherID: f.teacher.ID, SchoolID: f.school.ID})
	require.NoError(t, err)
	for i, name := range []string{"Ali", "Bota", "Dana"} {
		st, err := f.schools.CreateStudent(ctx, school.Student{Name: name, Number: i + 1, ClassRoomID: f.class.ID})
		require.NoError(t, err)
		f.students = append(f.students, st)
	}
	return f
}

func TestService_SaveDay_upsert(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	morning := time.Date(2024, 3, 4, 8, 15, 0, 0, time.UTC)
	evening := time.Date(2024, 3, 4, 16, 40, 0, 0, time.UTC)
	ali := f.students[0].ID

	first, err := f.svc.SaveDay(ctx, f.class, morning, []attendance.Entry{{StudentID: ali, Present: true}})
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := f.svc.SaveDay(ctx, f.class, evening, []attendance.Entry{{StudentID: ali, Present: false}})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)

	again, err := f.svc.SaveDay(ctx, f.class, evening, []attendance.Entry{{StudentID: ali, Present: false}})
	require.NoError(t, err)
	assert.Equal(t, second[0].ID, again[0].ID)

	recs, err := f.repo.QueryAttendance(ctx, attendance.Filter{StudentID: ali})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Present)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), recs[0].Date)
}

func TestService_SaveDay_validation(t *testing.T) {
	f := setup(t)
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	ali, bota := f.students[0].ID, f.students[1].ID

	tests := []struct {
		name       string
		entries    []attendance.Entry
		wantFields []core.FieldError
	}{
		{
			name:    "unknown student",
			entries: []attendance.Entry{{StudentID: ali, Present: true}, {StudentID: "nope"}},
			wantFields: []core.FieldError{
				{Field: "entries[1].student_id", Error: attendance.ErrNotInClass.Error()},
			},
		},
		{
			name:    "duplicate student",
			entries: []attendance.Entry{{StudentID: bota}, {StudentID: ali}, {StudentID: bota, Present: true}},
			wantFields: []core.FieldError{
				{Field: "entries[2].student_id", Error: attendance.ErrDuplicateEntry.Error()},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SaveDay(context.Background(), f.class, day, tt.entries)
			var verr *core.ValidationError
			require.True(t, errors.As(err, &verr), "error = %v", err)
			assert.Equal(t, tt.wantFields, verr.Fields)
		})
	}

	// nothing was written
	recs, err := f.repo.QueryAttendance(context.Background(), attendance.Filter{ClassRoomID: f.class.ID})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Empty(t, f.notifier.sent)
}

func TestService_SaveDay_tardinessAndNotifications(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	saved, err := f.svc.SaveDay(ctx, f.class, day, []attendance.Entry{
		{StudentID: f.students[0].ID, Present: true, TardyMinutes: 10, TardyReason: "bus"},
		{StudentID: f.students[1].ID, Present: true, TardyReason: "ignored"},
		{StudentID: f.students[2].ID, Present: false},
	})
	require.NoError(t, err)
	require.Len(t, saved, 3)
	assert.Equal(t, 10, saved[0].TardyMinutes)
	assert.Equal(t, "bus", saved[0].TardyReason)
	assert.Empty(t, saved[1].TardyReason)

	assert.Equal(t, []absence{{student: "Dana", class: "5A"}}, f.notifier.sent)
}

func TestService_Roster(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.SaveDay(ctx, f.class, day, []attendance.Entry{
		{StudentID: f.students[1].ID, Present: false},
		{StudentID: f.students[2].ID, Present: true, TardyMinutes: 5, TardyReason: "rain"},
	})
	require.NoError(t, err)

	lines, err := f.svc.Roster(ctx, f.class.ID, day.Add(13*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []attendance.RosterLine{
		{StudentID: f.students[0].ID, Name: "Ali", Number: 1, Present: true},
		{StudentID: f.students[1].ID, Name: "Bota", Number: 2, Present: false, Recorded: true},
		{StudentID: f.students[2].ID, Name: "Dana", Number: 3, Present: true, TardyMinutes: 5, TardyReason: "rain", Recorded: true},
	}, lines)

	// another day: defaults only
	lines, err = f.svc.Roster(ctx, f.class.ID, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	for _, l := range lines {
		assert.True(t, l.Present)
		assert.False(t, l.Recorded)
	}
}

func TestService_ClassStats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	reset := attendance.SetNow(func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) })
	defer reset()

	stats, err := f.svc.ClassStats(ctx, f.class, attendance.RangeWeek)
	require.NoError(t, err)
	assert.Empty(t, stats.Students)
	assert.Zero(t, stats.Average)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), stats.Period.To)

	// Ali present on 3 of 4 days, Bota on 1 of 4, Dana never; plus an old day outside the week.
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.SaveDay(ctx, f.class, start.AddDate(0, 0, -20), []attendance.Entry{{StudentID: f.students[2].ID, Present: true}})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err = f.svc.SaveDay(ctx, f.class, start.AddDate(0, 0, i), []attendance.Entry{
			{StudentID: f.students[0].ID, Present: i < 3},
			{StudentID: f.students[1].ID, Present: i < 1},
			{StudentID: f.students[2].ID, Present: false},
		})
		require.NoError(t, err)
	}

	stats, err = f.svc.ClassStats(ctx, f.class, attendance.RangeWeek)
	require.NoError(t, err)
	assert.Equal(t, attendance.DateRange{From: start.AddDate(0, 0, -3), To: start.AddDate(0, 0, 4)}, stats.Period)
	require.Len(t, stats.Students, 3)
	assert.Equal(t, "Ali", stats.Students[0].Student.Name)
	assert.Equal(t, 75.0, stats.Students[0].Percent)
	assert.Equal(t, 25.0, stats.Students[1].Percent)
	assert.Equal(t, 0.0, stats.Students[2].Percent)
	assert.InDelta(t, 100.0/3, stats.Average, 1e-9)

	all, err := f.svc.ClassStats(ctx, f.class, attendance.RangeAll)
	require.NoError(t, err)
	require.Len(t, all.Students, 3)
	assert.Equal(t, 5, all.Students[0].TotalDays)
}

func TestService_SchoolStats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	empty, err := f.schools.CreateClass(ctx, school.ClassRoom{Name: "5B", TeacherID: f.teacher.ID, SchoolID: f.school.ID})
	require.NoError(t, err)
	_, err = f.svc.SaveDay(ctx, f.class, day, []attendance.Entry{
		{StudentID: f.students[0].ID, Present: true},
		{StudentID: f.students[1].ID, Present: false},
	})
	require.NoError(t, err)

	stats, err := f.svc.SchoolStats(ctx, f.school)
	require.NoError(t, err)
	require.Len(t, stats.Classes, 2)
	assert.Equal(t, f.class.ID, stats.Classes[0].Class.ID)
	assert.InDelta(t, 100.0/3, stats.Classes[0].Percent, 1e-9)
	assert.Equal(t, empty.ID, stats.Classes[1].Class.ID)
	assert.False(t, stats.Classes[1].Rankable())

	require.Len(t, stats.Teachers, 1)
	assert.Equal(t, "Aigerim", stats.Teachers[0].TeacherName)
	assert.Equal(t, 2, stats.Teachers[0].Classes)
	assert.InDelta(t, 100.0/3, stats.Teachers[0].Percent, 1e-9)
	assert.InDelta(t, 100.0/3, stats.Percent, 1e-9)
}

func TestService_StudentHistoryAndAbsences(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	ali := f.students[0]

	for i, present := range []bool{true, false, true} {
		_, err := f.svc.SaveDay(ctx, f.class, day.AddDate(0, 0, i), []attendance.Entry{{StudentID: ali.ID, Present: present}})
		require.NoError(t, err)
	}

	hist, err := f.svc.StudentHistory(ctx, ali)
	require.NoError(t, err)
	require.Len(t, hist.Records, 3)
	assert.Equal(t, day.AddDate(0, 0, 2), hist.Records[0].Date)
	assert.Equal(t, day, hist.Records[2].Date)
	assert.Equal(t, attendance.StudentSummary{Lessons: 3, Present: 2, Absent: 1, Percent: 200.0 / 3}, hist.Summary)

	absent, err := f.svc.AbsentOn(ctx, f.class.ID, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, absent, 1)
	assert.Equal(t, ali.ID, absent[0].StudentID)

	absent, err = f.svc.AbsentOn(ctx, f.class.ID, day)
	require.NoError(t, err)
	assert.Empty(t, absent)
}

func TestService_Day(t *testing.T) {
	loc := time.FixedZone("UTC+6", 6*3600)
	svc := attendance.NewService(nil, nil, nil, loc)

	// 20:00 UTC on the 4th is already the 5th in UTC+6
	got := svc.Day(time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), got)
}
