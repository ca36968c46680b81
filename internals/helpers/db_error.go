package helper

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsUniqueViolation: gorm.ErrDuplicatedKey (TranslateError) atau pesan
// mentah dari driver postgres/sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	lc := strings.ToLower(err.Error())
	return strings.Contains(lc, "duplicate key") ||
		strings.Contains(lc, "unique constraint") ||
		strings.Contains(lc, "sqlstate 23505")
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
