// Package validator registers the library's enum tags with validator/v10 and
// turns validation failures into client messages.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"go_library/internal/httpx"
	"go_library/internal/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// tags maps a struct tag to the parser that accepts its values
var tags = map[string]func(string) error{
	"fee_type": func(s string) error {
		_, err := model.ParseFeeType(s)
		return err
	},
	"fee_status": func(s string) error {
		_, err := model.ParseFeeStatus(s)
		return err
	},
	"role": func(s string) error {
		_, err := model.ParseRole(s)
		return err
	},
	"borrow_status": func(s string) error {
		_, err := model.ParseBorrowStatus(s)
		return err
	},
}

// Register adds the enum tags to v
func Register(v *validator.Validate) error {
	for tag, parse := range tags {
		parse := parse
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return parse(fl.Field().String()) == nil
		})
		if err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

// RegisterGin adds the enum tags to gin's default binding engine
func RegisterGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not validator/v10")
	}
	return Register(v)
}

// Message renders a binding error as "field: rule" pairs
func Message(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), rule))
	}
	return strings.Join(parts, "; ")
}

// BindError turns a binding error into a 400 response error. A request that only
// misses required fields gets CodeParamMissing. Data maps each failed field to its rule.
func BindError(err error) *httpx.AppError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return httpx.ErrParamInvalid(err.Error())
	}

	fields := make(map[string]string, len(ve))
	missingOnly := true
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
		if fe.Tag() != "required" {
			missingOnly = false
		}
	}
	if missingOnly {
		return httpx.ErrParamMissing(Message(err)).WithData(fields)
	}
	return httpx.ErrParamInvalid(Message(err)).WithData(fields)
}
