package validator

import (
	"errors"
	"strings"
)

var (
	ErrEmptyPhone    = errors.New("phone number cannot be empty")
	ErrInvalidFormat = errors.New("phone number can only contain digits")
	ErrInvalidLength = errors.New("phone number must be exactly 10 digits")
	ErrInvalidPrefix = errors.New("phone number must start with 070, 071, 072, 074, 075, 076, 077 or 078")
)

// mobileNetworks maps Sri Lankan mobile prefixes to their operator
var mobileNetworks = map[string]string{
	"070": "Mobitel",
	"071": "Mobitel",
	"072": "Hutch",
	"074": "Dialog",
	"075": "Airtel",
	"076": "Dialog",
	"077": "Dialog",
	"078": "Hutch",
}

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// NormalizePhone returns the local 10 digit form (0771234567) of a Sri
// Lankan mobile number. Separators, a +94 or 94 country code and a missing
// trunk zero are accepted.
func NormalizePhone(phone string) (string, error) {
	s := strings.TrimSpace(phone)
	if s == "" {
		return "", ErrEmptyPhone
	}

	s = strings.TrimPrefix(phoneSeparators.Replace(s), "+")
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", ErrInvalidFormat
		}
	}

	switch {
	case len(s) == 11 && strings.HasPrefix(s, "94"):
		s = "0" + s[2:]
	case len(s) == 9 && s[0] == '7':
		s = "0" + s
	}

	if len(s) != 10 {
		return "", ErrInvalidLength
	}
	if _, ok := mobileNetworks[s[:3]]; !ok {
		return "", ErrInvalidPrefix
	}
	return s, nil
}

// IsMobilePhone reports whether NormalizePhone accepts phone
func IsMobilePhone(phone string) bool {
	_, err := NormalizePhone(phone)
	return err == nil
}

// MobileNetwork names the operator of a normalized number, or "" if unknown
func MobileNetwork(normalized string) string {
	if len(normalized) < 3 {
		return ""
	}
	return mobileNetworks[normalized[:3]]
}
