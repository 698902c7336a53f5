package school

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/refdata"
)

var (
	// errors
	ErrSchoolNotFound  = core.NewNotFoundError("school not found")
	ErrAdminNotFound   = core.NewNotFoundError("school admin not found")
	ErrTeacherNotFound = core.NewNotFoundError("teacher not found")
	ErrClassNotFound   = core.NewNotFoundError("class not found")
	ErrStudentNotFound = core.NewNotFoundError("student not found")

	ErrEmailExists    = errors.New("an account with this email already exists")
	ErrUnknownSchool  = errors.New("unknown school")
	ErrUnknownTeacher = errors.New("unknown teacher")
	ErrUnknownClass   = errors.New("unknown class")
)

type (
	Repository interface {
		CountSchools(ctx context.Context) (int, error)
		CreateSchools(ctx context.Context, schools ...School) error
		// ReplaceSchools deletes every school then inserts the given ones in one transaction.
		ReplaceSchools(ctx context.Context, schools []School) error
		GetSchool(ctx context.Context, id string) (School, error)
		QuerySchools(ctx context.Context, filter SchoolFilter) ([]School, error)

		CreateAdmin(ctx context.Context, adm SchoolAdmin) (SchoolAdmin, error)
		GetAdmin(ctx context.Context, id string) (SchoolAdmin, error)
		GetAdminByEmail(ctx context.Context, email string) (SchoolAdmin, error)
		QueryAdmins(ctx context.Context, schoolID string) ([]SchoolAdmin, error)
		UpdateAdmin(ctx context.Context, adm SchoolAdmin) (SchoolAdmin, error)

		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		GetTeacher(ctx context.Context, id string) (Teacher, error)
		GetTeacherByEmail(ctx context.Context, email string) (Teacher, error)
		QueryTeachers(ctx context.Context, schoolID string, ordering []core.DBOrdering) ([]Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		// DeleteTeacher detaches the teacher's classes then deletes the teacher.
		DeleteTeacher(ctx context.Context, id string) error

		CreateClass(ctx context.Context, c ClassRoom) (ClassRoom, error)
		GetClass(ctx context.Context, id string) (ClassRoom, error)
		QueryClasses(ctx context.Context, filter ClassFilter) ([]ClassRoom, error)
		UpdateClass(ctx context.Context, c ClassRoom) (ClassRoom, error)
		// DeleteClass detaches the class students, deletes its attendance then the class itself.
		DeleteClass(ctx context.Context, id string) error

		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		// QueryStudents returns the roster of a class sorted by Number then Name.
		QueryStudents(ctx context.Context, classID string) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		// DeleteStudent deletes the student's attendance then the student.
		DeleteStudent(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Schools

// ImportSchools copies the reference directory into the store.
// Without force it does nothing when schools already exist; with force every school is replaced.
// It returns the number of schools imported.
func (svc *Service) ImportSchools(ctx context.Context, dir *refdata.Provider, force bool) (int, error) {
	var schools []School
	dir.Each(func(city, region string, s refdata.School) {
		schools = append(schools, School{ID: s.ID, Name: s.Name, City: city, Region: region})
	})

	if force {
		if err := svc.repo.ReplaceSchools(ctx, schools); err != nil {
			return 0, errors.Wrap(err, "replacing schools")
		}
		return len(schools), nil
	}

	count, err := svc.repo.CountSchools(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "counting schools")
	}
	if count > 0 {
		return 0, nil
	}
	if err = svc.repo.CreateSchools(ctx, schools...); err != nil {
		return 0, errors.Wrap(err, "creating schools")
	}
	return len(schools), nil
}

func (svc *Service) GetSchool(ctx context.Context, id string) (School, error) {
	return svc.repo.GetSchool(ctx, id)
}

func (svc *Service) QuerySchools(ctx context.Context, filter SchoolFilter) ([]School, error) {
	filter.City = core.CleanString(filter.City)
	filter.Region = core.CleanString(filter.Region)
	return svc.repo.QuerySchools(ctx, filter)
}

// Accounts

func (svc *Service) checkSchool(ctx context.Context, id string) error {
	if _, err := svc.repo.GetSchool(ctx, id); err != nil {
		if errors.Cause(err) == ErrSchoolNotFound {
			return core.NewValidationError(ErrUnknownSchool, core.FieldError{Field: "school_id", Error: ErrUnknownSchool.Error()})
		}
		return errors.Wrap(err, "finding school")
	}
	return nil
}

func emailTaken() error {
	return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
}

func (svc *Service) RegisterTeacher(ctx context.Context, nt NewTeacher) (Teacher, error) {
	if err := svc.checkSchool(ctx, nt.SchoolID); err != nil {
		return Teacher{}, err
	}
	if _, err := svc.repo.GetTeacherByEmail(ctx, nt.Email); err == nil {
		return Teacher{}, emailTaken()
	} else if errors.Cause(err) != ErrTeacherNotFound {
		return Teacher{}, errors.Wrap(err, "finding teacher by email")
	}

	now := time.Now().UTC()
	t := Teacher{
		Name:      nt.Name,
		Email:     nt.Email,
		City:      nt.City,
		Region:    nt.Region,
		SchoolID:  nt.SchoolID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.SetPassword(nt.Password); err != nil {
		return Teacher{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateTeacher(ctx, t)
}

func (svc *Service) RegisterAdmin(ctx context.Context, na NewSchoolAdmin) (SchoolAdmin, error) {
	if err := svc.checkSchool(ctx, na.SchoolID); err != nil {
		return SchoolAdmin{}, err
	}
	if _, err := svc.repo.GetAdminByEmail(ctx, na.Email); err == nil {
		return SchoolAdmin{}, emailTaken()
	} else if errors.Cause(err) != ErrAdminNotFound {
		return SchoolAdmin{}, errors.Wrap(err, "finding admin by email")
	}

	now := time.Now().UTC()
	adm := SchoolAdmin{
		Name:      na.Name,
		Email:     na.Email,
		SchoolID:  na.SchoolID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := adm.SetPassword(na.Password); err != nil {
		return SchoolAdmin{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateAdmin(ctx, adm)
}

// AuthenticateTeacher reports whether email and password match a teacher.
// A mismatch is not an error; err is only set when the store fails.
func (svc *Service) AuthenticateTeacher(ctx context.Context, email, pwd string) (Teacher, bool, error) {
	t, err := svc.repo.GetTeacherByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrTeacherNotFound {
			return Teacher{}, false, nil
		}
		return Teacher{}, false, errors.Wrap(err, "finding teacher by email")
	}
	if !t.CheckPassword(pwd) {
		return Teacher{}, false, nil
	}
	return t, true, nil
}

// AuthenticateAdmin reports whether email and password match a school admin.
func (svc *Service) AuthenticateAdmin(ctx context.Context, email, pwd string) (SchoolAdmin, bool, error) {
	adm, err := svc.repo.GetAdminByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrAdminNotFound {
			return SchoolAdmin{}, false, nil
		}
		return SchoolAdmin{}, false, errors.Wrap(err, "finding admin by email")
	}
	if !adm.CheckPassword(pwd) {
		return SchoolAdmin{}, false, nil
	}
	return adm, true, nil
}

func (svc *Service) ResetTeacherPassword(ctx context.Context, email, pwd string) error {
	t, err := svc.repo.GetTeacherByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err = t.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	t.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateTeacher(ctx, t)
	return err
}

func (svc *Service) ResetAdminPassword(ctx context.Context, email, pwd string) error {
	adm, err := svc.repo.GetAdminByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err = adm.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	adm.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateAdmin(ctx, adm)
	return err
}

func (svc *Service) GetAdmin(ctx context.Context, id string) (SchoolAdmin, error) {
	return svc.repo.GetAdmin(ctx, id)
}

func (svc *Service) QueryAdmins(ctx context.Context, schoolID string) ([]SchoolAdmin, error) {
	return svc.repo.QueryAdmins(ctx, schoolID)
}

// Teachers

func (svc *Service) GetTeacher(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, id)
}

func (svc *Service) QueryTeachers(ctx context.Context, schoolID string, ordering []core.DBOrdering) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx, schoolID, core.FilterOrderings(ordering, "name", "email", "created_at"))
}

// UpdateProfile replaces a teacher's profile. Achievement photos are normalized before storage.
func (svc *Service) UpdateProfile(ctx context.Context, id string, up UpdateProfile) (Teacher, error) {
	t, err := svc.repo.GetTeacher(ctx, id)
	if err != nil {
		return Teacher{}, err
	}

	achievements := make([]Achievement, 0, len(up.Profile.Achievements))
	for i, a := range up.Profile.Achievements {
		if len(a.Photo) > 0 {
			photo, err := NormalizePhoto(a.Photo)
			if err != nil {
				if err == ErrInvalidPhoto {
					field := "achievements[" + strconv.Itoa(i) + "].photo"
					return Teacher{}, core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
				}
				return Teacher{}, err
			}
			a.Photo = photo
		}
		achievements = append(achievements, a)
	}

	t.Name = up.Name
	t.City = up.City
	t.Region = up.Region
	t.Profile = up.Profile
	t.Profile.Achievements = achievements
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, t)
}

func (svc *Service) DeleteTeacher(ctx context.Context, id string) error {
	return svc.repo.DeleteTeacher(ctx, id)
}

// Classes

func (svc *Service) checkTeacher(ctx context.Context, teacherID, schoolID string) error {
	t, err := svc.repo.GetTeacher(ctx, teacherID)
	if err != nil {
		if errors.Cause(err) == ErrTeacherNotFound {
			return core.NewValidationError(ErrUnknownTeacher, core.FieldError{Field: "teacher_id", Error: ErrUnknownTeacher.Error()})
		}
		return errors.Wrap(err, "finding teacher")
	}
	if t.SchoolID != schoolID {
		return core.NewValidationError(ErrUnknownTeacher, core.FieldError{Field: "teacher_id", Error: ErrUnknownTeacher.Error()})
	}
	return nil
}

func (svc *Service) CreateClass(ctx context.Context, schoolID string, nc NewClassRoom) (ClassRoom, error) {
	if err := svc.checkTeacher(ctx, nc.TeacherID, schoolID); err != nil {
		return ClassRoom{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateClass(ctx, ClassRoom{
		Name:      nc.Name,
		TeacherID: nc.TeacherID,
		SchoolID:  schoolID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) GetClass(ctx context.Context, id string) (ClassRoom, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) QueryClasses(ctx context.Context, filter ClassFilter) ([]ClassRoom, error) {
	return svc.repo.QueryClasses(ctx, filter)
}

func (svc *Service) UpdateClass(ctx context.Context, orig ClassRoom, uc UpdateClassRoom) (ClassRoom, error) {
	if uc.TeacherID != orig.TeacherID {
		if err := svc.checkTeacher(ctx, uc.TeacherID, orig.SchoolID); err != nil {
			return ClassRoom{}, err
		}
	}
	orig.Name = uc.Name
	orig.TeacherID = uc.TeacherID
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, orig)
}

// DeleteClass detaches the class students and deletes its attendance records.
func (svc *Service) DeleteClass(ctx context.Context, id string) error {
	return svc.repo.DeleteClass(ctx, id)
}

// Students

func (svc *Service) AddStudent(ctx context.Context, classID string, ns NewStudent) (Student, error) {
	class, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return Student{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateStudent(ctx, Student{
		Name:        ns.Name,
		Number:      ns.Number,
		ClassRoomID: classID,
		SchoolID:    class.SchoolID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

// Roster returns the students of a class sorted by number.
func (svc *Service) Roster(ctx context.Context, classID string) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, classID)
}

// UpdateStudent saves a student; a new ClassRoomID moves them to a class of their school.
func (svc *Service) UpdateStudent(ctx context.Context, orig Student, us UpdateStudent) (Student, error) {
	if us.ClassRoomID != orig.ClassRoomID {
		target, err := svc.repo.GetClass(ctx, us.ClassRoomID)
		if err != nil {
			if errors.Cause(err) == ErrClassNotFound {
				return Student{}, core.NewValidationError(ErrUnknownClass, core.FieldError{Field: "class_room_id", Error: ErrUnknownClass.Error()})
			}
			return Student{}, errors.Wrap(err, "finding class")
		}
		if orig.SchoolID != "" && orig.SchoolID != target.SchoolID {
			return Student{}, core.NewValidationError(ErrUnknownClass, core.FieldError{Field: "class_room_id", Error: ErrUnknownClass.Error()})
		}
		orig.SchoolID = target.SchoolID
	}
	orig.Name = us.Name
	orig.Number = us.Number
	orig.ClassRoomID = us.ClassRoomID
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, orig)
}

// DeleteStudent deletes a student and their attendance records.
func (svc *Service) DeleteStudent(ctx context.Context, id string) error {
	return svc.repo.DeleteStudent(ctx, id)
}
