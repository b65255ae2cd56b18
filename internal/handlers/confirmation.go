package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/grvc/ambassadors/internal/session"
	"github.com/grvc/ambassadors/internal/store"
	"github.com/grvc/ambassadors/internal/wizard"
)

type confirmationVM struct {
	Title        string
	EventName    string
	Code         string
	ChurchName   string
	DisplayName  string
	Email        string
	Phone        string
	Payment      string
	PaymentPhone string
	Fee          string
	SubmittedAt  string
	Flash        *Flash
}

// GET /confirmation
// Shows the session's receipt, or a stored registration when ?code= is given.
func Confirmation(t *template.Template, sm *session.Manager, st store.Store, cfg wizard.EventConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vm := confirmationVM{
			Title:     cfg.EventName + " | Confirmation",
			EventName: cfg.EventName,
			Fee:       cfg.RegistrationFee,
		}

		code := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("code")))
		switch {
		case code != "" && st != nil:
			reg, err := st.ByCode(r.Context(), code)
			if errors.Is(err, store.ErrNotFound) {
				vm.Flash = MakeFlash(r, errText["code_not_found"], "")
				break
			}
			if err != nil {
				hlog.FromRequest(r).Error().Err(err).Str("code", code).Msg("find registration")
				http.Error(w, "failed to load registration", http.StatusInternalServerError)
				return
			}
			vm.Code = reg.Code
			vm.ChurchName = reg.ChurchName
			vm.DisplayName = reg.Title + " " + reg.Name
			vm.Email = reg.Email
			vm.Phone = reg.Phone
			vm.Payment = paymentLabel(wizard.PaymentMethod(reg.PaymentMethod))
			vm.PaymentPhone = reg.PaymentPhone
			vm.SubmittedAt = fmtDateTime(reg.SubmittedAt)
		default:
			rc, ok := sm.Receipt(r)
			if !ok {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			sub := rc.Submission
			vm.Code = rc.Code
			vm.ChurchName = sub.ChurchName
			vm.DisplayName = sub.Attendee.DisplayName()
			vm.Email = sub.Attendee.Email
			vm.Phone = sub.Attendee.Phone
			vm.Payment = paymentLabel(sub.PaymentMethod)
			vm.PaymentPhone = sub.PhoneNumber
			vm.SubmittedAt = fmtDateTime(sub.SubmittedAt)
		}

		if err := t.ExecuteTemplate(w, "confirmation.tmpl", vm); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("render confirmation")
			http.Error(w, "failed to render page", http.StatusInternalServerError)
		}
	}
}

func paymentLabel(m wizard.PaymentMethod) string {
	switch m {
	case wizard.PaymentMpesa:
		return "M-Pesa"
	case wizard.PaymentCard:
		return "Credit Card"
	default:
		return string(m)
	}
}
