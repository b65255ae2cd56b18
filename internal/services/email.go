package services

import (
	"net/mail"
	"strings"
)

// NormEmail lowercases s and strips any display name ("Jane <jane@x.io>").
// Empty input is ok; an unparseable address is returned trimmed with ok=false.
func NormEmail(s string) (string, bool) {
	e := strings.TrimSpace(strings.ToLower(s))
	if e == "" {
		return "", true
	}
	addr, err := mail.ParseAddress(e)
	if err != nil {
		return e, false
	}
	return addr.Address, true
}
