// Package pipes provides the built-in parameter transforms.
package pipes

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/toyz/fastpress/pkg/fastpress"
)

// Leading integer of a string, the way browsers and JSON clients send them
// ("12px" parses as 12).
var intPrefix = regexp.MustCompile(`^\s*[+-]?\d+`)

var floatPrefix = regexp.MustCompile(`^\s*[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseInt converts the value to an int. Strings are parsed from their
// leading digits; anything else is a 400 "Validation failed: "v" is not an integer".
func ParseInt() fastpress.Pipe {
	return fastpress.PipeFunc(func(value any, _ *fastpress.Context) (any, error) {
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				return int(v), nil
			}
		case string:
			if m := intPrefix.FindString(v); m != "" {
				if n, err := strconv.Atoi(strings.TrimSpace(m)); err == nil {
					return n, nil
				}
			}
		}
		return nil, notA(value, "an integer")
	})
}

// ParseFloat converts the value to a float64.
func ParseFloat() fastpress.Pipe {
	return fastpress.PipeFunc(func(value any, _ *fastpress.Context) (any, error) {
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			if m := floatPrefix.FindString(v); m != "" {
				if f, err := strconv.ParseFloat(strings.TrimSpace(m), 64); err == nil {
					return f, nil
				}
			}
		}
		return nil, notA(value, "a number")
	})
}

// ParseBool accepts booleans and the strings accepted by strconv.ParseBool.
func ParseBool() fastpress.Pipe {
	return fastpress.PipeFunc(func(value any, _ *fastpress.Context) (any, error) {
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b, nil
			}
		}
		return nil, notA(value, "a boolean")
	})
}

// ParseUUID validates the value as a UUID and returns it as uuid.UUID.
func ParseUUID() fastpress.Pipe {
	return fastpress.PipeFunc(func(value any, _ *fastpress.Context) (any, error) {
		s, ok := value.(string)
		if !ok {
			return nil, notA(value, "a valid UUID")
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, notA(value, "a valid UUID")
		}
		return id, nil
	})
}

// DefaultValue replaces a nil or empty string value with def.
func DefaultValue(def any) fastpress.Pipe {
	return fastpress.PipeFunc(func(value any, _ *fastpress.Context) (any, error) {
		if value == nil {
			return def, nil
		}
		if s, ok := value.(string); ok && s == "" {
			return def, nil
		}
		return value, nil
	})
}

// Required rejects a nil or empty value with 400 "<name> is required".
func Required(name string) fastpress.Pipe {
	return fastpress.PipeFunc(func(value any, _ *fastpress.Context) (any, error) {
		if value == nil {
			return nil, fastpress.BadRequest(name + " is required")
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			return nil, fastpress.BadRequest(name + " is required")
		}
		return value, nil
	})
}

func notA(value any, what string) *fastpress.StandardResponse {
	return fastpress.BadRequest(`Validation failed: "` + display(value) + `" is not ` + what)
}

func display(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
