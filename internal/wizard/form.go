package wizard

import "time"

// PaymentMethod is how the registration fee will be paid.
type PaymentMethod string

const (
	PaymentMpesa PaymentMethod = "mpesa"
	PaymentCard  PaymentMethod = "card"
)

// Form field names accepted by Set.
const (
	FieldName          = "name"
	FieldTitle         = "title"
	FieldEmail         = "email"
	FieldPhone         = "phone"
	FieldChurch        = "church"
	FieldPaymentMethod = "paymentMethod"
	FieldPhoneNumber   = "phoneNumber"
)

// Fields lists every settable field, attendee fields first.
var Fields = []string{
	FieldName, FieldTitle, FieldEmail, FieldPhone,
	FieldChurch, FieldPaymentMethod, FieldPhoneNumber,
}

// Titles offered on the attendee step.
var Titles = []string{"Mr", "Ms", "Mrs"}

type Attendee struct {
	Name  string `json:"name" msgpack:"name" validate:"required"`
	Title string `json:"title" msgpack:"title" validate:"required"`
	Email string `json:"email" msgpack:"email" validate:"required,email"`
	Phone string `json:"phone" msgpack:"phone" validate:"required,phone"`
}

// Complete reports whether all four attendee fields are non-empty.
func (a Attendee) Complete() bool {
	return a.Name != "" && a.Title != "" && a.Email != "" && a.Phone != ""
}

// DisplayName is the "title name" line of the confirmation summary.
func (a Attendee) DisplayName() string {
	return a.Title + " " + a.Name
}

// RegistrationForm is the payload assembled across the wizard steps.
type RegistrationForm struct {
	Church        string        `json:"church"`
	Attendee      Attendee      `json:"attendee"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PhoneNumber   string        `json:"phoneNumber"`
}

func newForm() RegistrationForm {
	return RegistrationForm{PaymentMethod: PaymentMpesa}
}

// set routes a field write. Unknown fields are ignored and reported as false.
func (f *RegistrationForm) set(field, value string, cardPayments bool) bool {
	switch field {
	case FieldName:
		f.Attendee.Name = value
	case FieldTitle:
		f.Attendee.Title = value
	case FieldEmail:
		f.Attendee.Email = value
	case FieldPhone:
		f.Attendee.Phone = value
	case FieldChurch:
		f.Church = value
	case FieldPhoneNumber:
		f.PhoneNumber = value
	case FieldPaymentMethod:
		switch PaymentMethod(value) {
		case PaymentMpesa:
		case PaymentCard:
			if !cardPayments {
				return false
			}
		default:
			return false
		}
		f.PaymentMethod = PaymentMethod(value)
	default:
		return false
	}
	return true
}

// Submission is the packaged payload handed to the sink on submit.
type Submission struct {
	Church        string        `json:"church"`
	ChurchName    string        `json:"churchName"`
	Attendee      Attendee      `json:"attendee"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PhoneNumber   string        `json:"phoneNumber"`
	SubmittedAt   time.Time     `json:"submittedAt"`
}

// Receipt is what a sink returns for a recorded submission.
type Receipt struct {
	ID         string
	Code       string
	Submission Submission
}

// Summary is the read-only view of the confirm step.
type Summary struct {
	ChurchName  string
	DisplayName string
	Email       string
	Phone       string
	Fee         string
}
