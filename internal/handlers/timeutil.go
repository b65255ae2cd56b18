package handlers

import (
	"time"

	"github.com/grvc/ambassadors/internal/config"
)

// Africa/Nairobi for all display formatting
var tzNairobi = config.Nairobi()

// e.g. "Sat, 12 Apr 2025 23:59 EAT"
func fmtDeadline(t time.Time) string {
	return t.In(tzNairobi).Format("Mon, 02 Jan 2006 15:04 MST")
}

// e.g. "01 Apr 2025, 15:00"
func fmtDateTime(t time.Time) string {
	return t.In(tzNairobi).Format("02 Jan 2006, 15:04")
}
