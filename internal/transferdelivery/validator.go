package transferdelivery

import (
	"github.com/go-playground/validator/v10"
)

// ValidPhone validates that the field holds an E.164 style phone number:
// a leading plus followed by 8 to 15 digits.
var ValidPhone validator.Func = func(fl validator.FieldLevel) bool {
	phone, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	if len(phone) < 9 || len(phone) > 16 || phone[0] != '+' {
		return false
	}

	for _, r := range phone[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
