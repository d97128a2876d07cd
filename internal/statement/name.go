package statement

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	railPrefixRe   = regexp.MustCompile(`(?i)^(upi|neft|imps|rtgs|pos|atm|ach|eftpos|visa|mastercard)[-/ ]+`)
	referenceRunRe = regexp.MustCompile(`\d{6,}|[A-Z]{4}0[A-Z0-9]{6}|X{2,}\d+`)
	nameCaser      = cases.Title(language.English)
)

// FallbackName derives a display name from a raw payment reference when the
// model left transaction_name empty: scrub the rail prefix and reference
// numbers, then take the first meaningful token of what remains.
func FallbackName(reference string) string {
	s := strings.TrimSpace(reference)
	s = railPrefixRe.ReplaceAllString(s, "")
	s = referenceRunRe.ReplaceAllString(s, "")

	for _, token := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '/' || r == ' ' || r == '*' || r == '@'
	}) {
		if len(token) < 3 || !containsLetter(token) {
			continue
		}
		return nameCaser.String(strings.ToLower(token))
	}
	return "Unknown"
}

func containsLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}
