package repository

import "edunet-connect/internal/domain"

// ProfileColumns returns the column names and values for the fields set in u.
// Column order is fixed so generated statements are stable.
func ProfileColumns(u domain.ProfileUpdate) ([]string, []any) {
	var (
		cols []string
		args []any
	)
	add := func(col string, v any) {
		cols = append(cols, col)
		args = append(args, v)
	}
	if u.FirstName != nil {
		add("first_name", *u.FirstName)
	}
	if u.LastName != nil {
		add("last_name", *u.LastName)
	}
	if u.Username != nil {
		add("username", *u.Username)
	}
	if u.University != nil {
		add("university", *u.University)
	}
	if u.Major != nil {
		add("major", *u.Major)
	}
	if u.GraduationYear != nil {
		add("graduation_year", *u.GraduationYear)
	}
	if u.Bio != nil {
		add("bio", *u.Bio)
	}
	return cols, args
}
