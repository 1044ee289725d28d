package address

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return ValidPhone(fl.Field().String())
		})
	})
	return validate
}

// Validate checks the required fields of a, reporting the first failure as
// an apperr validation error.
func Validate(a *models.Address) error {
	err := validatorInstance().Struct(a)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("address", err.Error())
	}

	fe := verrs[0]
	field := fe.Field()
	label := strings.ReplaceAll(field, "_", " ")
	switch fe.Tag() {
	case "required":
		return apperr.Validation(field, label+" is required")
	case "phone":
		return apperr.Validation(field, "phone number is invalid")
	case "oneof":
		return apperr.Validation(field, "address type must be shipping or billing")
	case "max":
		return apperr.Validation(field, fmt.Sprintf("%s must be at most %s characters", label, fe.Param()))
	default:
		return apperr.Validation(field, label+" is invalid")
	}
}
