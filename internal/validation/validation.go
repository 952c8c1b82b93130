// Package validation проверяет входные структуры по тегам validate.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// В сообщениях используем имена полей из JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct проверяет структуру и возвращает ValidationError с первым нарушением
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperrors.Validation(message(verrs[0]))
	}
	return apperrors.Validation(err.Error())
}

// Var проверяет одно значение по правилу
func Var(field string, value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperrors.Validation(field + ": " + describe(verrs[0]))
		}
		return apperrors.Validation(field + ": недопустимое значение")
	}
	return nil
}

func message(fe validator.FieldError) string {
	return fe.Field() + ": " + describe(fe)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "email":
		return "некорректный email"
	case "min":
		return fmt.Sprintf("минимальная длина %s", fe.Param())
	case "max":
		return fmt.Sprintf("максимальная длина %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("допустимые значения: %s", fe.Param())
	}
	return "недопустимое значение"
}
