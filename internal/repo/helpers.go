package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a keyword into a lower-cased LIKE pattern for a substring
// match. It reports false for a blank keyword.
func likePattern(keyword string) (string, bool) {
	kw := strings.TrimSpace(keyword)
	if kw == "" {
		return "", false
	}
	return "%" + likeEscaper.Replace(strings.ToLower(kw)) + "%", true
}

// isUniqueViolation matches translated gorm errors as well as raw driver
// messages from drivers without a translator.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
