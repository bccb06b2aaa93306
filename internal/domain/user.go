package domain

import "time"

// User represents a registered student account.
type User struct {
	ID             string
	Email          string
	Username       string
	PasswordHash   string
	FirstName      string
	LastName       string
	University     string
	Major          string
	GraduationYear int
	Bio            string
	Avatar         string

	EmailVerified       bool
	VerificationToken   string
	VerificationExpires *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileUpdate carries the profile fields a user may change. Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName      *string
	LastName       *string
	Username       *string
	University     *string
	Major          *string
	GraduationYear *int
	Bio            *string
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Username == nil &&
		u.University == nil && u.Major == nil && u.GraduationYear == nil && u.Bio == nil
}

// Apply copies the set fields of u onto user.
func (u ProfileUpdate) Apply(user *User) {
	if u.FirstName != nil {
		user.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		user.LastName = *u.LastName
	}
	if u.Username != nil {
		user.Username = *u.Username
	}
	if u.University != nil {
		user.University = *u.University
	}
	if u.Major != nil {
		user.Major = *u.Major
	}
	if u.GraduationYear != nil {
		user.GraduationYear = *u.GraduationYear
	}
	if u.Bio != nil {
		user.Bio = *u.Bio
	}
}

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 50
)

// UserSearch is the closed set of filters accepted when listing users.
// Every field is matched as a case-insensitive substring.
type UserSearch struct {
	Query      string
	University string
	Major      string
	Limit      int
}

// Normalize clamps the limit into [1, MaxSearchLimit].
func (s UserSearch) Normalize() UserSearch {
	if s.Limit <= 0 {
		s.Limit = DefaultSearchLimit
	}
	if s.Limit > MaxSearchLimit {
		s.Limit = MaxSearchLimit
	}
	return s
}
