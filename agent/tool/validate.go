package tool

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		panic("tool: unexpected binding validator engine")
	}
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(normalizePhone(fl.Field().String()))
	}); err != nil {
		panic(err)
	}
}

// normalizer is implemented by argument types that clean their values
// before the binding rules run.
type normalizer interface {
	normalize()
}

// checkArgs runs the binding rules declared on in and returns one sentence
// per failing argument.
func checkArgs(in any) error {
	err := binding.Validator.ValidateStruct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(in, fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describeFieldError(in any, fe validator.FieldError) string {
	name := argName(in, fe.StructField())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "datetime":
		if fe.Param() == timeLayout {
			return name + " must use the 24-hour HH:MM format, for example 14:30"
		}
		return name + " must use the YYYY-MM-DD format, for example 2025-01-10"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", name, strings.Join(strings.Fields(fe.Param()), ", "))
	case "phone":
		return name + " must be a phone number made of digits"
	default:
		return fmt.Sprintf("%s is invalid (%s)", name, fe.Tag())
	}
}

// argName returns the JSON name the model used for a struct field.
func argName(in any, field string) string {
	t := reflect.TypeOf(in)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if f, ok := t.FieldByName(field); ok {
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag != "" {
			return tag
		}
	}
	return strings.ToLower(field)
}
