package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/school"
)

// Password satisfies the account password policy.
const Password = "Tulips&Mountains"

func CreateSchool(t *testing.T, repo school.Repository, id, name, city, region string) school.School {
	t.Helper()
	sch := school.School{ID: id, Name: name, City: city, Region: region}
	if err := repo.CreateSchools(context.Background(), sch); err != nil {
		t.Fatalf("CreateSchool() failed: %v", err)
	}
	return sch
}

func CreateTeacher(t *testing.T, repo school.Repository, name, email, schoolID string, createdAt ...time.Time) school.Teacher {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	tch := school.Teacher{
		Name:      name,
		Email:     email,
		City:      "Almaty",
		Region:    "Medeu",
		SchoolID:  schoolID,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := tch.SetPassword(Password); err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	tch, err := repo.CreateTeacher(context.Background(), tch)
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tch
}

func CreateAdmin(t *testing.T, repo school.Repository, name, email, schoolID string) school.SchoolAdmin {
	t.Helper()
	now := time.Now().UTC()
	adm := school.SchoolAdmin{Name: name, Email: email, SchoolID: schoolID, CreatedAt: now, UpdatedAt: now}
	if err := adm.SetPassword(Password); err != nil {
		t.Fatalf("CreateAdmin() failed: %v", err)
	}
	adm, err := repo.CreateAdmin(context.Background(), adm)
	if err != nil {
		t.Fatalf("CreateAdmin() failed: %v", err)
	}
	return adm
}

func CreateClass(t *testing.T, repo school.Repository, name, teacherID, schoolID string) school.ClassRoom {
	t.Helper()
	now := time.Now().UTC()
	cls, err := repo.CreateClass(context.Background(), school.ClassRoom{Name: name, TeacherID: teacherID, SchoolID: schoolID, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func CreateStudent(t *testing.T, repo school.Repository, name string, number int, classID string) school.Student {
	t.Helper()
	cls, err := repo.GetClass(context.Background(), classID)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	now := time.Now().UTC()
	st, err := repo.CreateStudent(context.Background(), school.Student{
		Name: name, Number: number, ClassRoomID: classID, SchoolID: cls.SchoolID, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}

// LogEntry is a message received by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records every message instead of printing it.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

func (l *Logger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}
