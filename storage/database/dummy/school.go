package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db}
}

// Schools

func (repo *schoolRepository) CountSchools(_ context.Context) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.db.schools), nil
}

func (repo *schoolRepository) CreateSchools(_ context.Context, schools ...school.School) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	for _, s := range schools {
		repo.db.schools[s.ID] = s
	}
	return nil
}

func (repo *schoolRepository) ReplaceSchools(_ context.Context, schools []school.School) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	repo.db.schools = make(map[string]school.School, len(schools))
	for _, s := range schools {
		repo.db.schools[s.ID] = s
	}
	return nil
}

func (repo *schoolRepository) GetSchool(_ context.Context, id string) (school.School, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if s, ok := repo.db.schools[id]; ok {
		return s, nil
	}
	return school.School{}, school.ErrSchoolNotFound
}

func (repo *schoolRepository) QuerySchools(_ context.Context, filter school.SchoolFilter) ([]school.School, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	schools := make([]school.School, 0)
	for _, s := range repo.db.schools {
		if filter.City != "" && s.City != filter.City {
			continue
		}
		if filter.Region != "" && s.Region != filter.Region {
			continue
		}
		schools = append(schools, s)
	}
	sort.Slice(schools, func(i, j int) bool { return schools[i].Name < schools[j].Name })
	return schools, nil
}

// Admins

func (repo *schoolRepository) CreateAdmin(_ context.Context, adm school.SchoolAdmin) (school.SchoolAdmin, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	adm.ID = uuid.NewString()
	repo.db.admins[adm.ID] = adm
	return adm, nil
}

func (repo *schoolRepository) GetAdmin(_ context.Context, id string) (school.SchoolAdmin, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if adm, ok := repo.db.admins[id]; ok {
		return adm, nil
	}
	return school.SchoolAdmin{}, school.ErrAdminNotFound
}

func (repo *schoolRepository) GetAdminByEmail(_ context.Context, email string) (school.SchoolAdmin, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	for _, adm := range repo.db.admins {
		if strings.EqualFold(adm.Email, email) {
			return adm, nil
		}
	}
	return school.SchoolAdmin{}, school.ErrAdminNotFound
}

func (repo *schoolRepository) QueryAdmins(_ context.Context, schoolID string) ([]school.SchoolAdmin, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	admins := make([]school.SchoolAdmin, 0)
	for _, adm := range repo.db.admins {
		if adm.SchoolID == schoolID {
			admins = append(admins, adm)
		}
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].Name < admins[j].Name })
	return admins, nil
}

func (repo *schoolRepository) UpdateAdmin(_ context.Context, adm school.SchoolAdmin) (school.SchoolAdmin, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.admins[adm.ID]; !ok {
		return school.SchoolAdmin{}, school.ErrAdminNotFound
	}
	repo.db.admins[adm.ID] = adm
	return adm, nil
}

// Teachers

func (repo *schoolRepository) CreateTeacher(_ context.Context, t school.Teacher) (school.Teacher, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	t.ID = uuid.NewString()
	repo.db.teachers[t.ID] = t
	return t, nil
}

func (repo *schoolRepository) GetTeacher(_ context.Context, id string) (school.Teacher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if t, ok := repo.db.teachers[id]; ok {
		return t, nil
	}
	return school.Teacher{}, school.ErrTeacherNotFound
}

func (repo *schoolRepository) GetTeacherByEmail(_ context.Context, email string) (school.Teacher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	for _, t := range repo.db.teachers {
		if strings.EqualFold(t.Email, email) {
			return t, nil
		}
	}
	return school.Teacher{}, school.ErrTeacherNotFound
}

func (repo *schoolRepository) QueryTeachers(_ context.Context, schoolID string, ordering []core.DBOrdering) ([]school.Teacher, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	teachers := make([]school.Teacher, 0)
	for _, t := range repo.db.teachers {
		if schoolID == "" || t.SchoolID == schoolID {
			teachers = append(teachers, t)
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.SliceStable(teachers, func(i, j int) bool {
		for _, ord := range ordering {
			var a, b string
			switch ord.Field {
			case "name":
				a, b = teachers[i].Name, teachers[j].Name
			case "email":
				a, b = teachers[i].Email, teachers[j].Email
			case "created_at":
				if !teachers[i].CreatedAt.Equal(teachers[j].CreatedAt) {
					return teachers[i].CreatedAt.Before(teachers[j].CreatedAt) == ord.Ascending
				}
				continue
			}
			if a != b {
				return (a < b) == ord.Ascending
			}
		}
		return false
	})
	return teachers, nil
}

func (repo *schoolRepository) UpdateTeacher(_ context.Context, t school.Teacher) (school.Teacher, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.teachers[t.ID]; !ok {
		return school.Teacher{}, school.ErrTeacherNotFound
	}
	repo.db.teachers[t.ID] = t
	return t, nil
}

func (repo *schoolRepository) DeleteTeacher(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.teachers[id]; !ok {
		return school.ErrTeacherNotFound
	}
	for cid, c := range repo.db.classes {
		if c.TeacherID == id {
			c.TeacherID = ""
			repo.db.classes[cid] = c
		}
	}
	delete(repo.db.teachers, id)
	return nil
}

// Classes

func (repo *schoolRepository) CreateClass(_ context.Context, c school.ClassRoom) (school.ClassRoom, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	c.ID = uuid.NewString()
	repo.db.classes[c.ID] = c
	return c, nil
}

func (repo *schoolRepository) GetClass(_ context.Context, id string) (school.ClassRoom, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if c, ok := repo.db.classes[id]; ok {
		return c, nil
	}
	return school.ClassRoom{}, school.ErrClassNotFound
}

func (repo *schoolRepository) QueryClasses(_ context.Context, filter school.ClassFilter) ([]school.ClassRoom, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	classes := make([]school.ClassRoom, 0)
	for _, c := range repo.db.classes {
		if filter.SchoolID != "" && c.SchoolID != filter.SchoolID {
			continue
		}
		if filter.TeacherID != "" && c.TeacherID != filter.TeacherID {
			continue
		}
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Name != classes[j].Name {
			return classes[i].Name < classes[j].Name
		}
		return classes[i].ID < classes[j].ID
	})
	return classes, nil
}

func (repo *schoolRepository) UpdateClass(_ context.Context, c school.ClassRoom) (school.ClassRoom, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.classes[c.ID]; !ok {
		return school.ClassRoom{}, school.ErrClassNotFound
	}
	repo.db.classes[c.ID] = c
	return c, nil
}

func (repo *schoolRepository) DeleteClass(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.classes[id]; !ok {
		return school.ErrClassNotFound
	}
	for sid, s := range repo.db.students {
		if s.ClassRoomID == id {
			s.ClassRoomID = ""
			repo.db.students[sid] = s
		}
	}
	for aid, a := range repo.db.attendance {
		if a.ClassRoomID == id {
			delete(repo.db.attendance, aid)
		}
	}
	delete(repo.db.classes, id)
	return nil
}

// Students

func (repo *schoolRepository) CreateStudent(_ context.Context, s school.Student) (school.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	s.ID = uuid.NewString()
	repo.db.students[s.ID] = s
	return s, nil
}

func (repo *schoolRepository) GetStudent(_ context.Context, id string) (school.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if s, ok := repo.db.students[id]; ok {
		return s, nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo *schoolRepository) QueryStudents(_ context.Context, classID string) ([]school.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]school.Student, 0)
	for _, s := range repo.db.students {
		if s.ClassRoomID == classID {
			students = append(students, s)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].Number != students[j].Number {
			return students[i].Number < students[j].Number
		}
		if students[i].Name != students[j].Name {
			return students[i].Name < students[j].Name
		}
		return students[i].ID < students[j].ID
	})
	return students, nil
}

func (repo *schoolRepository) UpdateStudent(_ context.Context, s school.Student) (school.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.students[s.ID]; !ok {
		return school.Student{}, school.ErrStudentNotFound
	}
	repo.db.students[s.ID] = s
	return s, nil
}

func (repo *schoolRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.students[id]; !ok {
		return school.ErrStudentNotFound
	}
	for aid, a := range repo.db.attendance {
		if a.StudentID == id {
			delete(repo.db.attendance, aid)
		}
	}
	delete(repo.db.students, id)
	return nil
}
