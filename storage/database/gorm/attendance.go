package gormrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/attendance/core/attendance"
)

type attendanceRepository struct {
	db *gorm.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *gorm.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

var attendanceKey = []clause.Column{{Name: "student_id"}, {Name: "class_room_id"}, {Name: "date"}}

func (repo *attendanceRepository) SaveAttendance(ctx context.Context, recs ...attendance.Attendance) ([]attendance.Attendance, error) {
	saved := make([]attendance.Attendance, 0, len(recs))
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range recs {
			rec.ID = uuid.NewString()
			row := toAttendanceRow(rec)
			err := tx.Clauses(clause.OnConflict{
				Columns:   attendanceKey,
				DoUpdates: clause.AssignmentColumns([]string{"present", "tardy_minutes", "tardy_reason", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return errors.Wrap(err, "upserting attendance")
			}

			// the conflicting row keeps its ID; read it back
			var stored attendanceRow
			err = tx.Where("student_id = ? AND class_room_id = ? AND date = ?", row.StudentID, row.ClassRoomID, row.Date).
				First(&stored).Error
			if err != nil {
				return errors.Wrap(err, "reading attendance")
			}
			saved = append(saved, stored.toAttendance())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (repo *attendanceRepository) GetAttendance(ctx context.Context, studentID, classID string, day time.Time) (attendance.Attendance, error) {
	var row attendanceRow
	err := repo.db.WithContext(ctx).
		Where("student_id = ? AND class_room_id = ? AND date = ?", studentID, classID, day).
		First(&row).Error
	if err != nil {
		return attendance.Attendance{}, notFound(err, attendance.ErrNotFound)
	}
	return row.toAttendance(), nil
}

func (repo *attendanceRepository) QueryAttendance(ctx context.Context, filter attendance.Filter) ([]attendance.Attendance, error) {
	q := repo.db.WithContext(ctx).Order("date ASC").Order("id ASC")
	if filter.ClassRoomID != "" {
		q = q.Where("class_room_id = ?", filter.ClassRoomID)
	}
	if filter.StudentID != "" {
		q = q.Where("student_id = ?", filter.StudentID)
	}
	if !filter.From.IsZero() {
		q = q.Where("date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("date < ?", filter.To)
	}

	var rows []attendanceRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	recs := make([]attendance.Attendance, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, r.toAttendance())
	}
	return recs, nil
}

func (repo *attendanceRepository) LastAttendanceDay(ctx context.Context, classID string) (time.Time, error) {
	var row attendanceRow
	err := repo.db.WithContext(ctx).
		Where("class_room_id = ?", classID).
		Order("date DESC").
		First(&row).Error
	if err != nil {
		return time.Time{}, notFound(err, attendance.ErrNotFound)
	}
	return row.toAttendance().Date, nil
}
