package dto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MsgRequired    = "This field is required."
	MsgInvalidDate = "Enter a valid date."
)

// FieldErrors turns a binding error into per-field messages keyed by form
// field name. Errors that are not validation errors land under "__all__".
func FieldErrors(err error) map[string][]string {
	out := make(map[string][]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["__all__"] = []string{err.Error()}
		return out
	}
	for _, fe := range verrs {
		name := fe.Field()
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i]
		}
		out[name] = append(out[name], message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return MsgRequired
	case "datetime":
		return MsgInvalidDate
	case "max":
		return "Ensure this value has at most " + fe.Param() + " characters."
	case "min":
		return "Ensure this value has at least " + fe.Param() + " characters."
	case "email":
		return "Enter a valid email address."
	case "uuid":
		return "Enter a valid UUID."
	case "numeric":
		return "Select a valid choice. That choice is not one of the available choices."
	case "loancode":
		return "Select a valid choice. " + fmt.Sprint(fe.Value()) + " is not one of the available choices."
	default:
		return "Enter a valid value."
	}
}
