package services

import (
	"regexp"
	"strings"
)

var (
	reLetters = regexp.MustCompile(`[A-Za-z]`)
	// Only allow digits, spaces, +, -, (, )
	reAllowed = regexp.MustCompile(`^[0-9+\-\s\(\)]+$`)
	// E.164-ish: + followed by 8..15 digits (no leading 0 after +)
	reE164 = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
)

// NormPhone normalizes a Kenyan phone number to the +254 form M-Pesa expects.
// Rules: strip spaces/dashes/parens; 00.. -> +..; 254.. -> +254..; 0.. -> +254..; ensure leading +.
// Returns "" for anything that is not a plausible number.
func NormPhone(p string) string {
	s := strings.TrimSpace(p)

	if s == "" {
		return ""
	}
	if reLetters.MatchString(s) {
		return ""
	}
	if !reAllowed.MatchString(s) {
		return ""
	}

	// strip separators
	repl := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "\n", "", "\r", "")
	s = repl.Replace(s)

	// 00.. -> +..
	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	}
	// 254.. (no plus) -> +254..
	if strings.HasPrefix(s, "254") {
		s = "+" + s
	}
	// 07.. / 01.. (local) -> +2547.. / +2541..
	if strings.HasPrefix(s, "0") {
		s = "+254" + s[1:]
	}
	// bare 7xxxxxxxx
	if !strings.HasPrefix(s, "+") {
		s = "+254" + s
	}
	if !reE164.MatchString(s) {
		return ""
	}
	return s
}

// MSISDN is NormPhone without the leading plus, e.g. 254712345678.
func MSISDN(p string) string {
	return strings.TrimPrefix(NormPhone(p), "+")
}
