package user

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "user-crud-service/pkg/errors"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// now is the entity clock. Timestamps are kept in UTC at microsecond
// precision, which is what PostgreSQL stores.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// User represents a user entity in the system.
// Fields are only reachable through getters so that every mutation goes
// through validation.
type User struct {
	id        string
	name      string
	email     string
	city      *string
	birthDate *time.Time
	createdAt time.Time
	updatedAt time.Time
}

// Snapshot is the plain record form of a User, used for transport and
// persistence.
type Snapshot struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	City      *string    `json:"city,omitempty"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// New creates a user with a fresh identifier and creation timestamp.
func New(name, email string, city *string, birthDate *time.Time) (*User, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	email, err = validateEmail(email)
	if err != nil {
		return nil, err
	}

	ts := now()
	return &User{
		id:        uuid.NewString(),
		name:      name,
		email:     email,
		city:      normalizeCity(city),
		birthDate: normalizeDate(birthDate),
		createdAt: ts,
		updatedAt: ts,
	}, nil
}

// Restore rebuilds a user from a persisted record. The record is validated
// the same way New validates its input.
func Restore(s Snapshot) (*User, error) {
	if strings.TrimSpace(s.ID) == "" {
		return nil, apperrors.NewValidationError("id", "cannot be empty")
	}
	name, err := validateName(s.Name)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail(s.Email)
	if err != nil {
		return nil, err
	}
	if s.UpdatedAt.Before(s.CreatedAt) {
		return nil, apperrors.NewValidationError("updatedAt", "cannot be before createdAt")
	}

	return &User{
		id:        s.ID,
		name:      name,
		email:     email,
		city:      normalizeCity(s.City),
		birthDate: normalizeDate(s.BirthDate),
		createdAt: s.CreatedAt.UTC(),
		updatedAt: s.UpdatedAt.UTC(),
	}, nil
}

func (u *User) ID() string { return u.id }
func (u *User) Name() string { return u.name }
func (u *User) Email() string { return u.email }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// City returns the city and whether one is set.
func (u *User) City() (string, bool) {
	if u.city == nil {
		return "", false
	}
	return *u.city, true
}

// BirthDate returns the birth date and whether one is set.
func (u *User) BirthDate() (time.Time, bool) {
	if u.birthDate == nil {
		return time.Time{}, false
	}
	return *u.birthDate, true
}

// UpdateName replaces the name. An empty or blank name is rejected and the
// user is left unchanged.
func (u *User) UpdateName(name string) error {
	name, err := validateName(name)
	if err != nil {
		return err
	}
	u.name = name
	u.touch()
	return nil
}

// UpdateEmail replaces the email. A malformed email is rejected and the user
// is left unchanged.
func (u *User) UpdateEmail(email string) error {
	email, err := validateEmail(email)
	if err != nil {
		return err
	}
	u.email = email
	u.touch()
	return nil
}

// UpdateCity sets the city; an empty string clears it.
func (u *User) UpdateCity(city string) {
	u.city = normalizeCity(&city)
	u.touch()
}

// UpdateBirthDate sets the birth date.
func (u *User) UpdateBirthDate(birthDate time.Time) {
	u.birthDate = normalizeDate(&birthDate)
	u.touch()
}

// Age returns the age in whole years at the given instant, if the birth date
// is known.
func (u *User) Age(at time.Time) (int, bool) {
	if u.birthDate == nil {
		return 0, false
	}
	b := *u.birthDate
	at = at.UTC()
	age := at.Year() - b.Year()
	if at.Month() < b.Month() || (at.Month() == b.Month() && at.Day() < b.Day()) {
		age--
	}
	return age, true
}

// Snapshot returns the plain record form of the user.
func (u *User) Snapshot() Snapshot {
	s := Snapshot{
		ID:        u.id,
		Name:      u.name,
		Email:     u.email,
		CreatedAt: u.createdAt,
		UpdatedAt: u.updatedAt,
	}
	if u.city != nil {
		c := *u.city
		s.City = &c
	}
	if u.birthDate != nil {
		b := *u.birthDate
		s.BirthDate = &b
	}
	return s
}

// touch refreshes updatedAt. It never moves backwards, even if the wall
// clock does.
func (u *User) touch() {
	ts := now()
	if ts.Before(u.updatedAt) {
		ts = u.updatedAt
	}
	u.updatedAt = ts
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.NewValidationError("name", "user name cannot be empty")
	}
	return name, nil
}

func validateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return "", apperrors.NewValidationError("email", "invalid email format")
	}
	return email, nil
}

func normalizeCity(city *string) *string {
	if city == nil || *city == "" {
		return nil
	}
	c := *city
	return &c
}

// normalizeDate drops the time-of-day part; a birth date is a calendar date.
func normalizeDate(d *time.Time) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	y, m, day := d.Date()
	date := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return &date
}
