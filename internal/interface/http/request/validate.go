package request

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidationError names a single struct field that failed validation, with
// its JSON tag name rather than the Go field name.
type ValidationError struct {
	Field   string
	Message string
}

// Validate runs v's `validate` struct tags and returns one ValidationError
// per failing field, nil when v is valid.
func Validate(v any) []ValidationError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]ValidationError, len(verrs))
		for i, fe := range verrs {
			out[i] = ValidationError{Field: fe.Field(), Message: validationMessage(fe)}
		}
		return out
	}
	return []ValidationError{{Field: "body", Message: "invalid request body"}}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
