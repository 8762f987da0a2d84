package pipes

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"

	"github.com/toyz/fastpress/pkg/fastpress"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate decodes the value (usually a JSON body) into a T and checks its
// validate tags. The pipe outputs a T. Failures are a 400 "Validation failed"
// whose data lists each failing field as {path, message}.
//
//	fastpress.Body("", pipes.Validate[LoginInput]())
func Validate[T any]() fastpress.Pipe {
	return fastpress.PipeFunc(func(value any, _ *fastpress.Context) (any, error) {
		var out T
		if value == nil {
			return nil, fastpress.ValidationFailed([]fastpress.FieldError{{Path: "", Message: "Required"}})
		}

		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "json",
			WeaklyTypedInput: true,
			Result:           &out,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToTimeHookFunc(time.RFC3339),
			),
		})
		if err != nil {
			return nil, fmt.Errorf("pipes: validate decoder: %w", err)
		}
		if err := decoder.Decode(value); err != nil {
			return nil, fastpress.ValidationFailed([]fastpress.FieldError{{Path: "", Message: err.Error()}})
		}

		if err := validate.Struct(out); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				return nil, fastpress.ValidationFailed(fieldErrors(verrs))
			}
			var invalid *validator.InvalidValidationError
			if errors.As(err, &invalid) {
				// T is not a struct; there are no tags to check.
				return out, nil
			}
			return nil, err
		}
		return out, nil
	})
}

func fieldErrors(verrs validator.ValidationErrors) []fastpress.FieldError {
	out := make([]fastpress.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		path := fieldPath(fe.Namespace())
		out = append(out, fastpress.FieldError{
			Path:    path,
			Message: label(fe.Field()) + " " + describe(fe),
		})
	}
	return out
}

// fieldPath drops the root struct name: "LoginInput.email" becomes "email".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i != -1 {
		return namespace[i+1:]
	}
	return namespace
}

func label(field string) string {
	if field == "" {
		return "Value"
	}
	r := []rune(field)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func describe(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "url":
		return "must be a valid URL"
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("must not exceed %s characters", fe.Param())
		}
		return fmt.Sprintf("must not exceed %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
		}
		return "failed " + fe.Tag()
	}
}
