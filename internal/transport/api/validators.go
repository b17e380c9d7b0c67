package api

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"

	"github.com/go-playground/validator/v10"
)

const (
	phoneMinDigits = 7
	phoneMaxDigits = 15
)

// validatePhone проверяет, что в поле телефонный номер: после отбрасывания
// форматирования (+, пробелы, скобки, дефисы) остаются только цифры разумной длины.
func validatePhone(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	var digits int
	for _, r := range str {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '(' || r == ')' || r == '-':
		default:
			return false
		}
	}
	return digits >= phoneMinDigits && digits <= phoneMaxDigits
}

func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("phone", validatePhone); err != nil {
		return fmt.Errorf("validator registration: %s", err.Error())
	}
	return nil
}
