package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors converts a gin binding error into a field -> message map suitable
// for re-rendering the originating form. Non-validator errors (malformed JSON
// and the like) yield an empty map; callers fall back to a generic message.
func FieldErrors(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fields
	}
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			fields[name] = "this field is required"
		case "email":
			fields[name] = "must be a valid email address"
		case "min":
			fields[name] = "too short (minimum " + fe.Param() + ")"
		case "max":
			fields[name] = "too long (maximum " + fe.Param() + ")"
		default:
			fields[name] = "invalid value"
		}
	}
	return fields
}
