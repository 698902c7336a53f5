package dummydb

import (
	"sync"

	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/school"
)

// DB is an in-memory store used by tests and local experiments.
// A single lock guards every table so cascades stay atomic.
type DB struct {
	mu         sync.RWMutex
	schools    map[string]school.School
	admins     map[string]school.SchoolAdmin
	teachers   map[string]school.Teacher
	classes    map[string]school.ClassRoom
	students   map[string]school.Student
	attendance map[string]attendance.Attendance
}

func Open() *DB {
	return &DB{
		schools:    make(map[string]school.School),
		admins:     make(map[string]school.SchoolAdmin),
		teachers:   make(map[string]school.Teacher),
		classes:    make(map[string]school.ClassRoom),
		students:   make(map[string]school.Student),
		attendance: make(map[string]attendance.Attendance),
	}
}
