package repository

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern turns a user supplied fragment into a substring pattern for LIKE ... ESCAPE '\'.
func LikePattern(fragment string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(fragment)) + "%"
}
