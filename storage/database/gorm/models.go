package gormrepos

import (
	"time"

	"github.com/volatiletech/null/v8"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/school"
)

type schoolRow struct {
	ID     string `gorm:"primaryKey;size:64"`
	Name   string `gorm:"size:255;not null"`
	City   string `gorm:"size:128;not null;index:schools_city_region_idx"`
	Region string `gorm:"size:128;not null;index:schools_city_region_idx"`
}

func (schoolRow) TableName() string { return "schools" }

type adminRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	Name         string `gorm:"size:200;not null"`
	Email        string `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash []byte `gorm:"not null"`
	SchoolID     string `gorm:"size:64;not null;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (adminRow) TableName() string { return "school_admins" }

type teacherRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	Name         string `gorm:"size:200;not null"`
	Email        string `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash []byte `gorm:"not null"`
	City         string `gorm:"size:128;not null;default:''"`
	Region       string `gorm:"size:128;not null;default:''"`
	SchoolID     string `gorm:"size:64;not null;index"`
	Education    string `gorm:"not null;default:''"`
	Experience   int    `gorm:"not null;default:0"`
	About        string `gorm:"not null;default:''"`
	Skills       datatypes.JSONSlice[string]
	Achievements datatypes.JSONSlice[school.Achievement]
	Certificates datatypes.JSONSlice[string]
	SocialLinks  datatypes.JSONSlice[string]
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (teacherRow) TableName() string { return "teachers" }

type classRow struct {
	ID        string      `gorm:"primaryKey;size:36"`
	Name      string      `gorm:"size:100;not null"`
	TeacherID null.String `gorm:"size:36;index"`
	SchoolID  string      `gorm:"size:64;not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (classRow) TableName() string { return "class_rooms" }

type studentRow struct {
	ID          string      `gorm:"primaryKey;size:36"`
	Name        string      `gorm:"size:200;not null"`
	Number      int         `gorm:"not null"`
	ClassRoomID null.String `gorm:"size:36;index"`
	SchoolID    string      `gorm:"size:64;not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (studentRow) TableName() string { return "students" }

type attendanceRow struct {
	ID           string      `gorm:"primaryKey;size:36"`
	StudentID    string      `gorm:"size:36;not null;uniqueIndex:attendance_student_class_date_key,priority:1"`
	ClassRoomID  string      `gorm:"size:36;not null;uniqueIndex:attendance_student_class_date_key,priority:2;index:attendance_class_date_idx,priority:1"`
	Date         time.Time   `gorm:"type:date;not null;uniqueIndex:attendance_student_class_date_key,priority:3;index:attendance_class_date_idx,priority:2"`
	Present      bool        `gorm:"not null"`
	TardyMinutes null.Int    `gorm:"check:tardy_minutes >= 0"`
	TardyReason  null.String `gorm:"size:500"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (attendanceRow) TableName() string { return "attendance" }

// AutoMigrate creates the tables from the row models. Postgres databases use the goose migrations instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&schoolRow{}, &adminRow{}, &teacherRow{}, &classRow{}, &studentRow{}, &attendanceRow{})
}

// conversions

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func toSchoolRow(s school.School) schoolRow {
	return schoolRow{ID: s.ID, Name: s.Name, City: s.City, Region: s.Region}
}

func (r schoolRow) toSchool() school.School {
	return school.School{ID: r.ID, Name: r.Name, City: r.City, Region: r.Region}
}

func toAdminRow(adm school.SchoolAdmin) adminRow {
	return adminRow{
		ID:           adm.ID,
		Name:         adm.Name,
		Email:        adm.Email,
		PasswordHash: adm.PasswordHash,
		SchoolID:     adm.SchoolID,
		CreatedAt:    adm.CreatedAt,
		UpdatedAt:    adm.UpdatedAt,
	}
}

func (r adminRow) toAdmin() school.SchoolAdmin {
	return school.SchoolAdmin{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		SchoolID:     r.SchoolID,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func toTeacherRow(t school.Teacher) teacherRow {
	return teacherRow{
		ID:           t.ID,
		Name:         t.Name,
		Email:        t.Email,
		PasswordHash: t.PasswordHash,
		City:         t.City,
		Region:       t.Region,
		SchoolID:     t.SchoolID,
		Education:    t.Profile.Education,
		Experience:   t.Profile.Experience,
		About:        t.Profile.About,
		Skills:       nonNil(t.Profile.Skills),
		Achievements: nonNil(t.Profile.Achievements),
		Certificates: nonNil(t.Profile.Certificates),
		SocialLinks:  nonNil(t.Profile.SocialLinks),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func (r teacherRow) toTeacher() school.Teacher {
	return school.Teacher{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		City:         r.City,
		Region:       r.Region,
		SchoolID:     r.SchoolID,
		Profile: school.Profile{
			Education:    r.Education,
			Experience:   r.Experience,
			Skills:       nonNil(r.Skills),
			About:        r.About,
			Achievements: nonNil(r.Achievements),
			Certificates: nonNil(r.Certificates),
			SocialLinks:  nonNil(r.SocialLinks),
		},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func toClassRow(c school.ClassRoom) classRow {
	return classRow{
		ID:        c.ID,
		Name:      c.Name,
		TeacherID: nullString(c.TeacherID),
		SchoolID:  c.SchoolID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (r classRow) toClass() school.ClassRoom {
	return school.ClassRoom{
		ID:        r.ID,
		Name:      r.Name,
		TeacherID: r.TeacherID.String,
		SchoolID:  r.SchoolID,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func toStudentRow(s school.Student) studentRow {
	return studentRow{
		ID:          s.ID,
		Name:        s.Name,
		Number:      s.Number,
		ClassRoomID: nullString(s.ClassRoomID),
		SchoolID:    s.SchoolID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (r studentRow) toStudent() school.Student {
	return school.Student{
		ID:          r.ID,
		Name:        r.Name,
		Number:      r.Number,
		ClassRoomID: r.ClassRoomID.String,
		SchoolID:    r.SchoolID,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func toAttendanceRow(a attendance.Attendance) attendanceRow {
	return attendanceRow{
		ID:           a.ID,
		StudentID:    a.StudentID,
		ClassRoomID:  a.ClassRoomID,
		Date:         a.Date,
		Present:      a.Present,
		TardyMinutes: null.NewInt(a.TardyMinutes, a.TardyMinutes > 0),
		TardyReason:  nullString(a.TardyReason),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (r attendanceRow) toAttendance() attendance.Attendance {
	return attendance.Attendance{
		ID:           r.ID,
		StudentID:    r.StudentID,
		ClassRoomID:  r.ClassRoomID,
		Date:         core.TruncateDay(r.Date), // DATE columns may come back in the session location
		Present:      r.Present,
		TardyMinutes: r.TardyMinutes.Int,
		TardyReason:  r.TardyReason.String,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}
