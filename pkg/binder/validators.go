package binder

import (
	"unicode"

	"github.com/go-playground/validator/v10"
)

const maxBookIDLength = 255

// bookIDValidator accepts the file names used as book ids: non-empty, at most
// maxBookIDLength bytes, no path separators or control characters.
func bookIDValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" || len(value) > maxBookIDLength {
		return false
	}
	for _, r := range value {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
