package httpapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/go-playground/validator/v10"
)

// validate checks request bodies against their struct tags.
type validate struct {
	v *validator.Validate
}

func newValidate() *validate {
	return &validate{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Struct returns a common.ErrValidation naming every failed field.
func (v *validate) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(msgs, "; "))
}
