// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "ZA"

// NormalizeE164 formats a phone number to E.164. Channel ids such as WhatsApp
// wa_id arrive as bare digits including the country code, so those are tried
// as international first. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	if !strings.HasPrefix(trimmed, "+") && !strings.HasPrefix(trimmed, "0") && isDigits(trimmed) {
		if formatted, ok := format("+" + trimmed); ok {
			return formatted
		}
	}

	if formatted, ok := format(trimmed); ok {
		return formatted
	}
	return trimmed
}

// Digits returns the number without the leading plus, the form the WhatsApp
// Cloud API expects in the "to" field.
func Digits(e164 string) string {
	return strings.TrimPrefix(strings.TrimSpace(e164), "+")
}

func format(raw string) (string, bool) {
	number, err := phonenumbers.Parse(raw, defaultRegion)
	if err != nil {
		return "", false
	}
	if !phonenumbers.IsValidNumber(number) {
		return "", false
	}
	return phonenumbers.Format(number, phonenumbers.E164), true
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
