package wizard

import (
	"fmt"
	"time"
)

// TimeLeft is the countdown shown next to the registration deadline.
type TimeLeft struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// IsZero reports whether every unit is zero.
func (t TimeLeft) IsZero() bool {
	return t == TimeLeft{}
}

func (t TimeLeft) String() string {
	return fmt.Sprintf("%d days, %d hrs, %d mins, %ds", t.Days, t.Hours, t.Minutes, t.Seconds)
}

// Remaining computes the time left until deadline as seen at now.
// Units are floored. expired is true when now is at or past the deadline,
// in which case the returned value is all zero.
func Remaining(deadline, now time.Time) (left TimeLeft, expired bool) {
	diff := deadline.Sub(now).Milliseconds()
	if diff <= 0 {
		return TimeLeft{}, true
	}
	return TimeLeft{
		Days:    int(diff / 86400000),
		Hours:   int(diff/3600000) % 24,
		Minutes: int(diff/60000) % 60,
		Seconds: int(diff/1000) % 60,
	}, false
}
