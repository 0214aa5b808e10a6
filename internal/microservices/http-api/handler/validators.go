package handler

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"homelibrary/internal/microservices/http-api/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags on gin's validator and
// makes field errors report form field names. Safe to call more than once.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		v.RegisterTagNameFunc(fieldName)
		if err = v.RegisterValidation("notblank", notBlank); err != nil {
			return
		}
		err = v.RegisterValidation("loancode", loanCode)
	})
	return err
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"form", "json"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// notblank: a string with something other than whitespace.
func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return !field.IsZero()
	}
	return strings.TrimSpace(field.String()) != ""
}

// loancode: one of the BookInstance status codes.
func loanCode(fl validator.FieldLevel) bool {
	return models.LoanStatus(fl.Field().String()).Valid()
}
