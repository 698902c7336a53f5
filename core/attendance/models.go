package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/attendance/core"
)

// Attendance is the presence decision for one student in one class on one day.
// Date is always a day-start (see core.Day).
type Attendance struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"student_id"`
	ClassRoomID  string    `json:"class_room_id"`
	Date         time.Time `json:"date"`
	Present      bool      `json:"present"`
	TardyMinutes int       `json:"tardy_minutes"`
	TardyReason  string    `json:"tardy_reason"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// Filter selects attendance records. Zero values are ignored; the date range is [From, To).
type Filter struct {
	ClassRoomID string
	StudentID   string
	From        time.Time
	To          time.Time
}

// Entry is one student's line of a daily roster submission.
type Entry struct {
	StudentID    string `json:"student_id" validate:"required"`
	Present      bool   `json:"present"`
	TardyMinutes int    `json:"tardy_minutes" validate:"gte=0,lte=1440"`
	TardyReason  string `json:"tardy_reason" validate:"max=500"`
}

// DaySheet is a class's attendance submission for one day.
type DaySheet struct {
	Date    string  `json:"date" validate:"required,day"`
	Entries []Entry `json:"entries" validate:"required,min=1,dive"`
}

func (ds *DaySheet) Validate(validate *validator.Validate) error {
	ds.Date = core.CleanString(ds.Date)
	for i := range ds.Entries {
		ds.Entries[i].StudentID = core.CleanString(ds.Entries[i].StudentID)
		ds.Entries[i].TardyReason = core.CleanString(ds.Entries[i].TardyReason)
	}
	return validate.Struct(ds)
}

// RosterLine is a student with their attendance on a given day, or the defaults when none was recorded.
type RosterLine struct {
	StudentID    string `json:"student_id"`
	Name         string `json:"name"`
	Number       int    `json:"number"`
	Present      bool   `json:"present"`
	TardyMinutes int    `json:"tardy_minutes"`
	TardyReason  string `json:"tardy_reason"`
	Recorded     bool   `json:"recorded"`
}
