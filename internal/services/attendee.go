package services

import (
	"github.com/grvc/ambassadors/internal/validator"
	"github.com/grvc/ambassadors/internal/wizard"
)

// StrictAttendee checks attendee email and phone formats on top of the
// wizard's presence gate. Only wired when STRICT_FIELDS=1.
type StrictAttendee struct{}

// CheckAttendee reports format problems for filled-in fields only;
// empty fields are left to the presence gate.
func (StrictAttendee) CheckAttendee(a wizard.Attendee) map[string]string {
	errs := validator.FieldErrors(a)
	filled := map[string]string{
		wizard.FieldName:  a.Name,
		wizard.FieldTitle: a.Title,
		wizard.FieldEmail: a.Email,
		wizard.FieldPhone: a.Phone,
	}
	for field := range errs {
		if filled[field] == "" {
			delete(errs, field)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
