// Package validation wraps go-playground/validator with JSON field names and
// messages fit for end users.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Get returns the shared validator. Field names in errors are the JSON names.
func Get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		instance = v
	})
	return instance
}

// Struct validates s using its `validate` tags.
func Struct(s any) error {
	return Get().Struct(s)
}

// Fields maps each offending field path to a readable message.
func Fields(err error) map[string]string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"error": "invalid format"}
	}

	out := make(map[string]string, len(verrs))
	for _, e := range verrs {
		field := e.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		switch e.Tag() {
		case "required":
			out[field] = "is required"
		case "eq", "oneof":
			out[field] = fmt.Sprintf("must be %s", e.Param())
		case "gt":
			out[field] = fmt.Sprintf("must be greater than %s", e.Param())
		case "gte":
			out[field] = fmt.Sprintf("must be at least %s", e.Param())
		case "min":
			out[field] = fmt.Sprintf("must be at least %s long", e.Param())
		case "max":
			out[field] = fmt.Sprintf("must be at most %s long", e.Param())
		default:
			out[field] = "is invalid"
		}
	}
	return out
}

// Describe renders Fields as one deterministic line.
func Describe(err error) string {
	fields := Fields(err)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+fields[k])
	}
	return strings.Join(parts, "; ")
}
