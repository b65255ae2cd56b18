package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/grvc/ambassadors/internal/session"
	"github.com/grvc/ambassadors/internal/wizard"
)

type stateView struct {
	Step        int                     `json:"step"`
	StepName    string                  `json:"stepName"`
	TimeLeft    wizard.TimeLeft         `json:"timeLeft"`
	Countdown   string                  `json:"countdown"`
	IsClosed    bool                    `json:"isClosed"`
	Form        wizard.RegistrationForm `json:"form"`
	CanAdvance  bool                    `json:"canAdvance"`
	CanSubmit   bool                    `json:"canSubmit"`
	FieldErrors map[string]string       `json:"fieldErrors,omitempty"`
}

// GET /wizard/state
// Reading the state never creates a session; callers without one see the
// state a new registration would start from.
func State(sm *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, wiz, ok := sm.Lookup(r)
		if !ok {
			wiz = sm.Blank()
		}
		writeState(w, r, wiz)
	}
}

func writeState(w http.ResponseWriter, r *http.Request, wiz *wizard.Wizard) {
	st := wiz.Snapshot()
	v := stateView{
		Step:        int(st.Step),
		StepName:    st.Step.Name(),
		TimeLeft:    st.TimeLeft,
		Countdown:   st.TimeLeft.String(),
		IsClosed:    st.IsClosed,
		Form:        st.Form,
		CanAdvance:  st.CanAdvance,
		CanSubmit:   st.CanSubmit,
		FieldErrors: wiz.FieldErrors(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("encode state")
	}
}
