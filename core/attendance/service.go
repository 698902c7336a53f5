package attendance

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/school"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("attendance not found")
	ErrNotInClass     = errors.New("student is not in this class")
	ErrDuplicateEntry = errors.New("student appears more than once")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// SaveAttendance upserts every record on (student, class, date) in one transaction.
		// New records get a fresh ID; the stored records are returned in input order.
		SaveAttendance(ctx context.Context, recs ...Attendance) ([]Attendance, error)
		GetAttendance(ctx context.Context, studentID, classID string, day time.Time) (Attendance, error)
		// QueryAttendance returns the matching records sorted by date, oldest first.
		QueryAttendance(ctx context.Context, filter Filter) ([]Attendance, error)
		// LastAttendanceDay returns ErrNotFound when the class has no record.
		LastAttendanceDay(ctx context.Context, classID string) (time.Time, error)
	}

	Service struct {
		repo     Repository
		schools  school.Repository
		notifier core.Notifier
		loc      *time.Location
	}

	ClassStats struct {
		Class    school.ClassRoom `json:"class"`
		Range    RangeKind        `json:"range"`
		Period   DateRange        `json:"period"`
		Students []StudentStats   `json:"students"`
		Average  float64          `json:"average"`
	}

	SchoolStats struct {
		School   school.School `json:"school"`
		Classes  []ClassRank   `json:"classes"`
		Teachers []TeacherRank `json:"teachers"`
		Percent  float64       `json:"percent"`
	}

	StudentHistory struct {
		Student school.Student `json:"student"`
		Records []Attendance   `json:"records"`
		Summary StudentSummary `json:"summary"`
	}
)

// NewService builds the attendance service. Day boundaries are computed in loc.
func NewService(repo Repository, schools school.Repository, notifier core.Notifier, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, schools: schools, notifier: notifier, loc: loc}
}

// Day normalizes t to the start of its day in the service location.
func (svc *Service) Day(t time.Time) time.Time {
	return core.Day(t, svc.loc)
}

// Today is the current day-start.
func (svc *Service) Today() time.Time {
	return svc.Day(nowFunc())
}

// Roster returns the class students sorted by number, each with their record for the day.
// Students without a record get the defaults: present, no tardiness.
func (svc *Service) Roster(ctx context.Context, classID string, day time.Time) ([]RosterLine, error) {
	day = core.TruncateDay(day)
	students, err := svc.schools.QueryStudents(ctx, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	records, err := svc.repo.QueryAttendance(ctx, Filter{ClassRoomID: classID, From: day, To: day.AddDate(0, 0, 1)})
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	byStudent := make(map[string]Attendance, len(records))
	for _, rec := range records {
		byStudent[rec.StudentID] = rec
	}

	lines := make([]RosterLine, 0, len(students))
	for _, st := range students {
		line := RosterLine{StudentID: st.ID, Name: st.Name, Number: st.Number, Present: true}
		if rec, ok := byStudent[st.ID]; ok {
			line.Present = rec.Present
			line.TardyMinutes = rec.TardyMinutes
			line.TardyReason = rec.TardyReason
			line.Recorded = true
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// SaveDay records a class's attendance for the calendar date of `day` (in its own location).
// Every entry is upserted on (student, class, day) in a single transaction;
// absent students are notified after commit.
func (svc *Service) SaveDay(ctx context.Context, class school.ClassRoom, day time.Time, entries []Entry) ([]Attendance, error) {
	day = core.TruncateDay(day)
	students, err := svc.schools.QueryStudents(ctx, class.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	roster := make(map[string]school.Student, len(students))
	for _, st := range students {
		roster[st.ID] = st
	}

	now := nowFunc().UTC()
	seen := make(map[string]struct{}, len(entries))
	recs := make([]Attendance, 0, len(entries))
	var fldErrs []core.FieldError
	for i, e := range entries {
		field := "entries[" + strconv.Itoa(i) + "].student_id"
		if _, ok := roster[e.StudentID]; !ok {
			fldErrs = append(fldErrs, core.FieldError{Field: field, Error: ErrNotInClass.Error()})
			continue
		}
		if _, dup := seen[e.StudentID]; dup {
			fldErrs = append(fldErrs, core.FieldError{Field: field, Error: ErrDuplicateEntry.Error()})
			continue
		}
		seen[e.StudentID] = struct{}{}

		rec := Attendance{
			StudentID:   e.StudentID,
			ClassRoomID: class.ID,
			Date:        day,
			Present:     e.Present,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if e.TardyMinutes > 0 {
			rec.TardyMinutes = e.TardyMinutes
			rec.TardyReason = e.TardyReason
		}
		recs = append(recs, rec)
	}
	if len(fldErrs) > 0 {
		return nil, core.NewValidationError(nil, fldErrs...)
	}

	saved, err := svc.repo.SaveAttendance(ctx, recs...)
	if err != nil {
		return nil, errors.Wrap(err, "saving attendance")
	}

	for _, rec := range saved {
		if !rec.Present {
			svc.notifier.NotifyAbsent(ctx, roster[rec.StudentID].Name, class.Name)
		}
	}
	return saved, nil
}

// ClassStats computes the per-student statistics and the class average over a range
// ending the day after the last recorded day of the class (today when there is none).
func (svc *Service) ClassStats(ctx context.Context, class school.ClassRoom, kind RangeKind) (ClassStats, error) {
	rng := DateRange{}
	if kind != RangeAll {
		last, err := svc.repo.LastAttendanceDay(ctx, class.ID)
		if err != nil {
			if errors.Cause(err) != ErrNotFound {
				return ClassStats{}, errors.Wrap(err, "finding last attendance day")
			}
			last = svc.Today()
		}
		rng = RangeEndingAt(kind, core.TruncateDay(last))
	}

	students, err := svc.schools.QueryStudents(ctx, class.ID)
	if err != nil {
		return ClassStats{}, errors.Wrap(err, "querying students")
	}
	records, err := svc.repo.QueryAttendance(ctx, Filter{ClassRoomID: class.ID, From: rng.From, To: rng.To})
	if err != nil {
		return ClassStats{}, errors.Wrap(err, "querying attendance")
	}

	stats := PerStudentStats(students, records, rng)
	return ClassStats{
		Class:    class,
		Range:    kind,
		Period:   rng,
		Students: stats,
		Average:  ClassAverage(stats),
	}, nil
}

// SchoolStats ranks the classes and teachers of a school over every recorded day.
func (svc *Service) SchoolStats(ctx context.Context, sch school.School) (SchoolStats, error) {
	classes, err := svc.schools.QueryClasses(ctx, school.ClassFilter{SchoolID: sch.ID})
	if err != nil {
		return SchoolStats{}, errors.Wrap(err, "querying classes")
	}

	inputs := make([]ClassInput, 0, len(classes))
	for _, c := range classes {
		roster, err := svc.schools.QueryStudents(ctx, c.ID)
		if err != nil {
			return SchoolStats{}, errors.Wrap(err, "querying students")
		}
		in := ClassInput{Class: c, Roster: roster}
		if len(roster) > 0 {
			if in.Records, err = svc.repo.QueryAttendance(ctx, Filter{ClassRoomID: c.ID}); err != nil {
				return SchoolStats{}, errors.Wrap(err, "querying attendance")
			}
		}
		inputs = append(inputs, in)
	}

	ranks := ClassRanking(inputs)
	teachers := TeacherAverage(ranks)
	for i := range teachers {
		t, err := svc.schools.GetTeacher(ctx, teachers[i].TeacherID)
		if err != nil {
			if errors.Cause(err) == school.ErrTeacherNotFound {
				continue
			}
			return SchoolStats{}, errors.Wrap(err, "finding teacher")
		}
		teachers[i].TeacherName = t.Name
	}

	return SchoolStats{
		School:   sch,
		Classes:  ranks,
		Teachers: teachers,
		Percent:  SchoolPercent(ranks),
	}, nil
}

// StudentHistory lists a student's records, newest first, with a summary.
func (svc *Service) StudentHistory(ctx context.Context, st school.Student) (StudentHistory, error) {
	records, err := svc.repo.QueryAttendance(ctx, Filter{StudentID: st.ID})
	if err != nil {
		return StudentHistory{}, errors.Wrap(err, "querying attendance")
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date.After(records[j].Date) })
	return StudentHistory{
		Student: st,
		Records: records,
		Summary: Summarize(records),
	}, nil
}

// AbsentOn returns the absence records of a class on a day.
func (svc *Service) AbsentOn(ctx context.Context, classID string, day time.Time) ([]Attendance, error) {
	day = core.TruncateDay(day)
	records, err := svc.repo.QueryAttendance(ctx, Filter{ClassRoomID: classID, From: day, To: day.AddDate(0, 0, 1)})
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	absent := make([]Attendance, 0)
	for _, rec := range records {
		if !rec.Present {
			absent = append(absent, rec)
		}
	}
	return absent, nil
}
