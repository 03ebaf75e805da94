package validator

import (
	"fmt"
	"reflect"
	"time"

	playground "github.com/go-playground/validator/v10"
)

// Tags registered by RegisterBindings
const (
	TagSeatNumbers = "seatnumbers"
	TagLKPhone     = "lkphone"
	TagClockTime   = "clocktime"
)

// RegisterBindings adds the booking request validators to v. Call it on
// gin's binding.Validator.Engine() before serving requests.
func RegisterBindings(v *playground.Validate) error {
	validators := map[string]playground.Func{
		TagSeatNumbers: validateSeatNumbers,
		TagLKPhone: func(fl playground.FieldLevel) bool {
			return IsMobilePhone(fl.Field().String())
		},
		TagClockTime: func(fl playground.FieldLevel) bool {
			return IsClockTime(fl.Field().String())
		},
	}

	for tag, fn := range validators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s validator: %w", tag, err)
		}
	}
	return nil
}

// validateSeatNumbers accepts a non-empty list of distinct positive integers
func validateSeatNumbers(fl playground.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice || field.Len() == 0 {
		return false
	}

	seen := make(map[int64]struct{}, field.Len())
	for i := 0; i < field.Len(); i++ {
		elem := field.Index(i)
		switch elem.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		default:
			return false
		}
		seat := elem.Int()
		if seat <= 0 {
			return false
		}
		if _, dup := seen[seat]; dup {
			return false
		}
		seen[seat] = struct{}{}
	}
	return true
}

// IsClockTime accepts HH:MM or HH:MM:SS on a 24 hour clock
func IsClockTime(s string) bool {
	if _, err := time.Parse("15:04", s); err == nil {
		return true
	}
	_, err := time.Parse("15:04:05", s)
	return err == nil
}
