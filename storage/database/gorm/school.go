package gormrepos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/school"
)

type schoolRepository struct {
	db *gorm.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *gorm.DB) school.Repository {
	return &schoolRepository{db: db}
}

// notFound maps gorm's missing-record error to the domain one.
func notFound(err error, nf error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nf
	}
	return err
}

// validID reports whether id can match a UUID primary key.
// Postgres rejects malformed UUIDs instead of finding nothing.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Schools

func (repo *schoolRepository) CountSchools(ctx context.Context) (int, error) {
	var n int64
	if err := repo.db.WithContext(ctx).Model(&schoolRow{}).Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "counting schools")
	}
	return int(n), nil
}

func (repo *schoolRepository) CreateSchools(ctx context.Context, schools ...school.School) error {
	if len(schools) == 0 {
		return nil
	}
	rows := make([]schoolRow, 0, len(schools))
	for _, s := range schools {
		rows = append(rows, toSchoolRow(s))
	}
	return errors.Wrap(repo.db.WithContext(ctx).CreateInBatches(rows, 200).Error, "creating schools")
}

func (repo *schoolRepository) ReplaceSchools(ctx context.Context, schools []school.School) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&schoolRow{}).Error; err != nil {
			return errors.Wrap(err, "deleting schools")
		}
		txRepo := &schoolRepository{db: tx}
		return txRepo.CreateSchools(ctx, schools...)
	})
}

func (repo *schoolRepository) GetSchool(ctx context.Context, id string) (school.School, error) {
	var row schoolRow
	if err := repo.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return school.School{}, notFound(err, school.ErrSchoolNotFound)
	}
	return row.toSchool(), nil
}

func (repo *schoolRepository) QuerySchools(ctx context.Context, filter school.SchoolFilter) ([]school.School, error) {
	q := repo.db.WithContext(ctx).Order("name ASC")
	if filter.City != "" {
		q = q.Where("city = ?", filter.City)
	}
	if filter.Region != "" {
		q = q.Where("region = ?", filter.Region)
	}
	var rows []schoolRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	schools := make([]school.School, 0, len(rows))
	for _, r := range rows {
		schools = append(schools, r.toSchool())
	}
	return schools, nil
}

// Admins

func (repo *schoolRepository) CreateAdmin(ctx context.Context, adm school.SchoolAdmin) (school.SchoolAdmin, error) {
	adm.ID = uuid.NewString()
	row := toAdminRow(adm)
	if err := repo.db.WithContext(ctx).Create(&row).Error; err != nil {
		return school.SchoolAdmin{}, errors.Wrap(err, "creating admin")
	}
	return row.toAdmin(), nil
}

func (repo *schoolRepository) GetAdmin(ctx context.Context, id string) (school.SchoolAdmin, error) {
	if !validID(id) {
		return school.SchoolAdmin{}, school.ErrAdminNotFound
	}
	var row adminRow
	if err := repo.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return school.SchoolAdmin{}, notFound(err, school.ErrAdminNotFound)
	}
	return row.toAdmin(), nil
}

func (repo *schoolRepository) GetAdminByEmail(ctx context.Context, email string) (school.SchoolAdmin, error) {
	var row adminRow
	if err := repo.db.WithContext(ctx).First(&row, "email = ?", strings.ToLower(email)).Error; err != nil {
		return school.SchoolAdmin{}, notFound(err, school.ErrAdminNotFound)
	}
	return row.toAdmin(), nil
}

func (repo *schoolRepository) QueryAdmins(ctx context.Context, schoolID string) ([]school.SchoolAdmin, error) {
	var rows []adminRow
	if err := repo.db.WithContext(ctx).Where("school_id = ?", schoolID).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying admins")
	}
	admins := make([]school.SchoolAdmin, 0, len(rows))
	for _, r := range rows {
		admins = append(admins, r.toAdmin())
	}
	return admins, nil
}

func (repo *schoolRepository) UpdateAdmin(ctx context.Context, adm school.SchoolAdmin) (school.SchoolAdmin, error) {
	row := toAdminRow(adm)
	res := repo.db.WithContext(ctx).Model(&adminRow{ID: adm.ID}).Select("*").Omit("id", "created_at").Updates(&row)
	if res.Error != nil {
		return school.SchoolAdmin{}, errors.Wrap(res.Error, "updating admin")
	}
	if res.RowsAffected == 0 {
		return school.SchoolAdmin{}, school.ErrAdminNotFound
	}
	return adm, nil
}

// Teachers

func (repo *schoolRepository) CreateTeacher(ctx context.Context, t school.Teacher) (school.Teacher, error) {
	t.ID = uuid.NewString()
	row := toTeacherRow(t)
	if err := repo.db.WithContext(ctx).Create(&row).Error; err != nil {
		return school.Teacher{}, errors.Wrap(err, "creating teacher")
	}
	return row.toTeacher(), nil
}

func (repo *schoolRepository) GetTeacher(ctx context.Context, id string) (school.Teacher, error) {
	if !validID(id) {
		return school.Teacher{}, school.ErrTeacherNotFound
	}
	var row teacherRow
	if err := repo.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return school.Teacher{}, notFound(err, school.ErrTeacherNotFound)
	}
	return row.toTeacher(), nil
}

func (repo *schoolRepository) GetTeacherByEmail(ctx context.Context, email string) (school.Teacher, error) {
	var row teacherRow
	if err := repo.db.WithContext(ctx).First(&row, "email = ?", strings.ToLower(email)).Error; err != nil {
		return school.Teacher{}, notFound(err, school.ErrTeacherNotFound)
	}
	return row.toTeacher(), nil
}

func (repo *schoolRepository) QueryTeachers(ctx context.Context, schoolID string, ordering []core.DBOrdering) ([]school.Teacher, error) {
	q := repo.db.WithContext(ctx)
	if schoolID != "" {
		q = q.Where("school_id = ?", schoolID)
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	for _, ord := range ordering {
		q = q.Order(ord.String())
	}
	var rows []teacherRow
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	teachers := make([]school.Teacher, 0, len(rows))
	for _, r := range rows {
		teachers = append(teachers, r.toTeacher())
	}
	return teachers, nil
}

func (repo *schoolRepository) UpdateTeacher(ctx context.Context, t school.Teacher) (school.Teacher, error) {
	row := toTeacherRow(t)
	res := repo.db.WithContext(ctx).Model(&teacherRow{ID: t.ID}).Select("*").Omit("id", "created_at").Updates(&row)
	if res.Error != nil {
		return school.Teacher{}, errors.Wrap(res.Error, "updating teacher")
	}
	if res.RowsAffected == 0 {
		return school.Teacher{}, school.ErrTeacherNotFound
	}
	return row.toTeacher(), nil
}

func (repo *schoolRepository) DeleteTeacher(ctx context.Context, id string) error {
	if !validID(id) {
		return school.ErrTeacherNotFound
	}
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&classRow{}).Where("teacher_id = ?", id).Update("teacher_id", nil).Error; err != nil {
			return errors.Wrap(err, "detaching classes")
		}
		res := tx.Delete(&teacherRow{}, "id = ?", id)
		if res.Error != nil {
			return errors.Wrap(res.Error, "deleting teacher")
		}
		if res.RowsAffected == 0 {
			return school.ErrTeacherNotFound
		}
		return nil
	})
}

// Classes

func (repo *schoolRepository) CreateClass(ctx context.Context, c school.ClassRoom) (school.ClassRoom, error) {
	c.ID = uuid.NewString()
	row := toClassRow(c)
	if err := repo.db.WithContext(ctx).Create(&row).Error; err != nil {
		return school.ClassRoom{}, errors.Wrap(err, "creating class")
	}
	return row.toClass(), nil
}

func (repo *schoolRepository) GetClass(ctx context.Context, id string) (school.ClassRoom, error) {
	if !validID(id) {
		return school.ClassRoom{}, school.ErrClassNotFound
	}
	var row classRow
	if err := repo.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return school.ClassRoom{}, notFound(err, school.ErrClassNotFound)
	}
	return row.toClass(), nil
}

func (repo *schoolRepository) QueryClasses(ctx context.Context, filter school.ClassFilter) ([]school.ClassRoom, error) {
	q := repo.db.WithContext(ctx).Order("name ASC").Order("id ASC")
	if filter.SchoolID != "" {
		q = q.Where("school_id = ?", filter.SchoolID)
	}
	if filter.TeacherID != "" {
		if !validID(filter.TeacherID) {
			return []school.ClassRoom{}, nil
		}
		q = q.Where("teacher_id = ?", filter.TeacherID)
	}
	var rows []classRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]school.ClassRoom, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.toClass())
	}
	return classes, nil
}

func (repo *schoolRepository) UpdateClass(ctx context.Context, c school.ClassRoom) (school.ClassRoom, error) {
	row := toClassRow(c)
	res := repo.db.WithContext(ctx).Model(&classRow{ID: c.ID}).Select("*").Omit("id", "created_at").Updates(&row)
	if res.Error != nil {
		return school.ClassRoom{}, errors.Wrap(res.Error, "updating class")
	}
	if res.RowsAffected == 0 {
		return school.ClassRoom{}, school.ErrClassNotFound
	}
	return c, nil
}

func (repo *schoolRepository) DeleteClass(ctx context.Context, id string) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&studentRow{}).Where("class_room_id = ?", id).Update("class_room_id", nil).Error; err != nil {
			return errors.Wrap(err, "detaching students")
		}
		if err := tx.Delete(&attendanceRow{}, "class_room_id = ?", id).Error; err != nil {
			return errors.Wrap(err, "deleting attendance")
		}
		res := tx.Delete(&classRow{}, "id = ?", id)
		if res.Error != nil {
			return errors.Wrap(res.Error, "deleting class")
		}
		if res.RowsAffected == 0 {
			return school.ErrClassNotFound
		}
		return nil
	})
}

// Students

func (repo *schoolRepository) CreateStudent(ctx context.Context, s school.Student) (school.Student, error) {
	s.ID = uuid.NewString()
	row := toStudentRow(s)
	if err := repo.db.WithContext(ctx).Create(&row).Error; err != nil {
		return school.Student{}, errors.Wrap(err, "creating student")
	}
	return row.toStudent(), nil
}

func (repo *schoolRepository) GetStudent(ctx context.Context, id string) (school.Student, error) {
	if !validID(id) {
		return school.Student{}, school.ErrStudentNotFound
	}
	var row studentRow
	if err := repo.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return school.Student{}, notFound(err, school.ErrStudentNotFound)
	}
	return row.toStudent(), nil
}

func (repo *schoolRepository) QueryStudents(ctx context.Context, classID string) ([]school.Student, error) {
	var rows []studentRow
	err := repo.db.WithContext(ctx).
		Where("class_room_id = ?", classID).
		Order("number ASC").Order("name ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students, nil
}

func (repo *schoolRepository) UpdateStudent(ctx context.Context, s school.Student) (school.Student, error) {
	row := toStudentRow(s)
	res := repo.db.WithContext(ctx).Model(&studentRow{ID: s.ID}).Select("*").Omit("id", "created_at").Updates(&row)
	if res.Error != nil {
		return school.Student{}, errors.Wrap(res.Error, "updating student")
	}
	if res.RowsAffected == 0 {
		return school.Student{}, school.ErrStudentNotFound
	}
	return s, nil
}

func (repo *schoolRepository) DeleteStudent(ctx context.Context, id string) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&attendanceRow{}, "student_id = ?", id).Error; err != nil {
			return errors.Wrap(err, "deleting attendance")
		}
		res := tx.Delete(&studentRow{}, "id = ?", id)
		if res.Error != nil {
			return errors.Wrap(res.Error, "deleting student")
		}
		if res.RowsAffected == 0 {
			return school.ErrStudentNotFound
		}
		return nil
	})
}
