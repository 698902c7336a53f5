package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/attendance/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) find(studentID, classID string, day time.Time) (attendance.Attendance, bool) {
	for _, a := range repo.db.attendance {
		if a.StudentID == studentID && a.ClassRoomID == classID && a.Date.Equal(day) {
			return a, true
		}
	}
	return attendance.Attendance{}, false
}

func (repo *attendanceRepository) SaveAttendance(_ context.Context, recs ...attendance.Attendance) ([]attendance.Attendance, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	saved := make([]attendance.Attendance, 0, len(recs))
	for _, rec := range recs {
		if existing, ok := repo.find(rec.StudentID, rec.ClassRoomID, rec.Date); ok {
			existing.Present = rec.Present
			existing.TardyMinutes = rec.TardyMinutes
			existing.TardyReason = rec.TardyReason
			existing.UpdatedAt = rec.UpdatedAt
			rec = existing
		} else {
			rec.ID = uuid.NewString()
		}
		repo.db.attendance[rec.ID] = rec
		saved = append(saved, rec)
	}
	return saved, nil
}

func (repo *attendanceRepository) GetAttendance(_ context.Context, studentID, classID string, day time.Time) (attendance.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if a, ok := repo.find(studentID, classID, day); ok {
		return a, nil
	}
	return attendance.Attendance{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QueryAttendance(_ context.Context, filter attendance.Filter) ([]attendance.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	recs := make([]attendance.Attendance, 0)
	for _, a := range repo.db.attendance {
		if filter.ClassRoomID != "" && a.ClassRoomID != filter.ClassRoomID {
			continue
		}
		if filter.StudentID != "" && a.StudentID != filter.StudentID {
			continue
		}
		if !filter.From.IsZero() && a.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !a.Date.Before(filter.To) {
			continue
		}
		recs = append(recs, a)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.Before(recs[j].Date)
		}
		return recs[i].ID < recs[j].ID
	})
	return recs, nil
}

func (repo *attendanceRepository) LastAttendanceDay(_ context.Context, classID string) (time.Time, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var last time.Time
	for _, a := range repo.db.attendance {
		if a.ClassRoomID == classID && a.Date.After(last) {
			last = a.Date
		}
	}
	if last.IsZero() {
		return time.Time{}, attendance.ErrNotFound
	}
	return last, nil
}
