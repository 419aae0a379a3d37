package profile

import (
	"errors"
	"time"
)

// DateLayout is the calendar-date format used for date of birth.
const DateLayout = "2006-01-02"

var (
	ErrNotFound      = errors.New("profile not found")
	ErrAlreadyExists = errors.New("profile already exists")
)

// Profile is the authoritative record of a registered user.
type Profile struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Email       string     `json:"email"`
	School      string     `json:"school"`
	DOB         string     `json:"dob"`
	LastCheckin *time.Time `json:"lastCheckin,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type NewProfileParams struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	School    string
	DOB       string
}

// New builds a profile that has never checked in.
func New(p NewProfileParams, now time.Time) Profile {
	now = now.UTC()
	return Profile{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		School:    p.School,
		DOB:       p.DOB,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithCheckin returns a copy with last_checkin overwritten.
func (p Profile) WithCheckin(at time.Time) Profile {
	at = at.UTC()
	p.LastCheckin = &at
	p.UpdatedAt = at
	return p
}
