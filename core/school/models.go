package school

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/attendance/core"
)

type School struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	City   string `json:"city"`
	Region string `json:"region"`
}

type SchoolAdmin struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	SchoolID     string    `json:"school_id"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (adm *SchoolAdmin) SetPassword(pwd string) error {
	hash, err := hashPassword(pwd)
	if err != nil {
		return err
	}
	adm.PasswordHash = hash
	return nil
}

func (adm *SchoolAdmin) CheckPassword(pwd string) bool {
	return checkPassword(adm.PasswordHash, pwd)
}

type Teacher struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	City         string    `json:"city"`
	Region       string    `json:"region"`
	SchoolID     string    `json:"school_id"`
	Profile      Profile   `json:"profile"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (t *Teacher) SetPassword(pwd string) error {
	hash, err := hashPassword(pwd)
	if err != nil {
		return err
	}
	t.PasswordHash = hash
	return nil
}

func (t *Teacher) CheckPassword(pwd string) bool {
	return checkPassword(t.PasswordHash, pwd)
}

// Profile is the resume part of a Teacher.
type Profile struct {
	Education    string        `json:"education" validate:"max=500"`
	Experience   int           `json:"experience" validate:"gte=0,lte=80"`
	Skills       []string      `json:"skills" validate:"dive,required,max=100"`
	About        string        `json:"about" validate:"max=2000"`
	Achievements []Achievement `json:"achievements" validate:"dive"`
	Certificates []string      `json:"certificates" validate:"dive,required,max=200"`
	SocialLinks  []string      `json:"social_links" validate:"dive,required,url"`
}

// Achievement is a titled entry of a teacher's profile with an optional photo.
// Photos travel as standard base64 in JSON.
type Achievement struct {
	Title string `json:"title" validate:"required,max=200"`
	Photo []byte `json:"photo,omitempty"`
}

type achievementJSON struct {
	Title string `json:"title"`
	Photo string `json:"photo,omitempty"`
}

func (a Achievement) MarshalJSON() ([]byte, error) {
	aj := achievementJSON{Title: a.Title}
	if len(a.Photo) > 0 {
		aj.Photo = base64.StdEncoding.EncodeToString(a.Photo)
	}
	return json.Marshal(aj)
}

func (a *Achievement) UnmarshalJSON(data []byte) error {
	var aj achievementJSON
	if err := json.Unmarshal(data, &aj); err != nil {
		return err
	}
	a.Title = aj.Title
	a.Photo = nil
	if aj.Photo != "" {
		photo, err := base64.StdEncoding.DecodeString(aj.Photo)
		if err != nil {
			return err
		}
		a.Photo = photo
	}
	return nil
}

type ClassRoom struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TeacherID string    `json:"teacher_id"` // empty once the teacher is deleted
	SchoolID  string    `json:"school_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Student struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Number      int       `json:"number"`
	ClassRoomID string    `json:"class_room_id"` // empty when detached
	SchoolID    string    `json:"school_id"`     // kept when detached
	CreatedAt   time.Time `json:"created_at"`    // UTC
	UpdatedAt   time.Time `json:"updated_at"`    // UTC
}

func hashPassword(pwd string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
}

func checkPassword(hash []byte, pwd string) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(pwd)) == nil
}

// NewTeacher contains information needed to register a new Teacher.
type NewTeacher struct {
	Name            string `json:"name" validate:"required,max=200"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	City            string `json:"city" validate:"required"`
	Region          string `json:"region" validate:"required"`
	SchoolID        string `json:"school_id" validate:"required"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.City = core.CleanString(nt.City)
	nt.Region = core.CleanString(nt.Region)
	nt.SchoolID = core.CleanString(nt.SchoolID)
	return validate.Struct(nt)
}

// NewSchoolAdmin contains information needed to register a new SchoolAdmin.
type NewSchoolAdmin struct {
	Name            string `json:"name" validate:"required,max=200"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	SchoolID        string `json:"school_id" validate:"required"`
}

func (na *NewSchoolAdmin) Validate(validate *validator.Validate) error {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.SchoolID = core.CleanString(na.SchoolID)
	return validate.Struct(na)
}

// UpdateProfile replaces the editable part of a Teacher.
type UpdateProfile struct {
	Name    string  `json:"name"`
	City    string  `json:"city"`
	Region  string  `json:"region"`
	Profile Profile `json:"profile"`
}

func (up *UpdateProfile) Validate(orig Teacher, validate *validator.Validate) error {
	if name := core.CleanString(up.Name); name != "" {
		up.Name = name
	} else {
		up.Name = orig.Name
	}
	if city := core.CleanString(up.City); city != "" {
		up.City = city
	} else {
		up.City = orig.City
	}
	if region := core.CleanString(up.Region); region != "" {
		up.Region = region
	} else {
		up.Region = orig.Region
	}
	up.Profile.Education = core.CleanString(up.Profile.Education)
	up.Profile.About = core.CleanString(up.Profile.About)
	up.Profile.Skills = cleanList(up.Profile.Skills)
	up.Profile.Certificates = cleanList(up.Profile.Certificates)
	up.Profile.SocialLinks = cleanList(up.Profile.SocialLinks)
	for i := range up.Profile.Achievements {
		up.Profile.Achievements[i].Title = core.CleanString(up.Profile.Achievements[i].Title)
	}
	return validate.Struct(up)
}

type NewClassRoom struct {
	Name      string `json:"name" validate:"required,max=100"`
	TeacherID string `json:"teacher_id" validate:"required"`
}

func (nc *NewClassRoom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.TeacherID = core.CleanString(nc.TeacherID)
	return validate.Struct(nc)
}

type UpdateClassRoom struct {
	Name      string `json:"name" validate:"max=100"`
	TeacherID string `json:"teacher_id"`
}

func (uc *UpdateClassRoom) Validate(orig ClassRoom, validate *validator.Validate) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if tid := core.CleanString(uc.TeacherID); tid != "" {
		uc.TeacherID = tid
	} else {
		uc.TeacherID = orig.TeacherID
	}
	return validate.Struct(uc)
}

type NewStudent struct {
	Name   string `json:"name" validate:"required,max=200"`
	Number int    `json:"number" validate:"required,gte=1"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// UpdateStudent modifies a Student. A non-empty ClassRoomID moves the student to that class.
type UpdateStudent struct {
	Name        string `json:"name" validate:"max=200"`
	Number      int    `json:"number" validate:"gte=0"`
	ClassRoomID string `json:"class_room_id"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if us.Number == 0 {
		us.Number = orig.Number
	}
	if cid := core.CleanString(us.ClassRoomID); cid != "" {
		us.ClassRoomID = cid
	} else {
		us.ClassRoomID = orig.ClassRoomID
	}
	return validate.Struct(us)
}

type SchoolFilter struct {
	City   string `query:"city"`
	Region string `query:"region"`
}

type ClassFilter struct {
	SchoolID  string
	TeacherID string
}

func cleanList(items []string) []string {
	cleaned := make([]string, 0, len(items))
	for _, it := range items {
		if it = core.CleanString(it); it != "" {
			cleaned = append(cleaned, it)
		}
	}
	return cleaned
}
