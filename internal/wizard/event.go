package wizard

import "time"

type Church struct {
	ID   string
	Name string
}

// EventConfig is the static description of the event being registered for.
// It is built once at startup and never mutated.
type EventConfig struct {
	EventName          string
	RegistrationFee    string
	Deadline           time.Time
	Churches           []Church
	Instructions       []string
	IsRegistrationOpen bool
	CardPayments       bool
	BannerPath         string
}

// ChurchName returns the display name for id, or "" when id is unknown.
func (c EventConfig) ChurchName(id string) string {
	for _, ch := range c.Churches {
		if ch.ID == id {
			return ch.Name
		}
	}
	return ""
}

func (c EventConfig) hasChurch(id string) bool {
	return id != "" && c.ChurchName(id) != ""
}
