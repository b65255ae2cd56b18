package handlers

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/grvc/ambassadors/internal/session"
	"github.com/grvc/ambassadors/internal/wizard"
)

type stepItem struct {
	N       int
	Name    string
	Reached bool
}

type wizardVM struct {
	Title       string
	Event       wizard.EventConfig
	Deadline    string
	Countdown   string
	State       wizard.State
	Summary     wizard.Summary
	Steps       []stepItem
	Titles      []string
	FieldErrors map[string]string
	Flash       *Flash
}

// On reports whether the wizard is showing step n.
func (v wizardVM) On(n int) bool { return int(v.State.Step) == n }

// GET /
func Home(t *template.Template, sm *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, wiz := sm.Acquire(w, r)
		st := wiz.Snapshot()
		cfg := wiz.Config()

		steps := make([]stepItem, 0, len(wizard.Steps()))
		for _, s := range wizard.Steps() {
			steps = append(steps, stepItem{N: int(s), Name: s.Name(), Reached: st.Step >= s})
		}

		vm := wizardVM{
			Title:       cfg.EventName + " | Registration",
			Event:       cfg,
			Deadline:    fmtDeadline(cfg.Deadline),
			Countdown:   st.TimeLeft.String(),
			State:       st,
			Summary:     wiz.Summary(),
			Steps:       steps,
			Titles:      wizard.Titles,
			FieldErrors: wiz.FieldErrors(),
			Flash:       MakeFlash(r, "", ""),
		}
		if st.IsClosed && vm.Flash == nil {
			vm.Flash = &Flash{Kind: "error", Text: errText["closed"]}
		}
		if err := t.ExecuteTemplate(w, "wizard.tmpl", vm); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("render wizard")
			http.Error(w, "failed to render page", http.StatusInternalServerError)
		}
	}
}

// POST /wizard/field
// Accepts either field=<name>&value=<v> or the form's own field names.
func Field(sm *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, wiz := sm.Acquire(w, r)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if field := r.PostForm.Get("field"); field != "" {
			wiz.Set(field, r.PostForm.Get("value"))
		} else {
			applyForm(wiz, r)
		}
		if wantsJSON(r) {
			writeState(w, r, wiz)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// POST /wizard/next
func Next(sm *session.Manager) http.HandlerFunc {
	return transition(sm, (*wizard.Wizard).Next)
}

// POST /wizard/prev
func Prev(sm *session.Manager) http.HandlerFunc {
	return transition(sm, (*wizard.Wizard).Prev)
}

// transition applies any posted fields, then moves. A refused move just
// re-renders the current step.
func transition(sm *session.Manager, move func(*wizard.Wizard) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, wiz := sm.Acquire(w, r)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		applyForm(wiz, r)
		move(wiz)
		if wantsJSON(r) {
			writeState(w, r, wiz)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// redirectNav records the navigation target so the redirect is sent after
// the session has been marked complete.
type redirectNav struct {
	path string
}

func (n *redirectNav) NavigateTo(path string) { n.path = path }

// POST /wizard/submit
// A repeated submit for a session that already registered goes straight to
// its confirmation.
func Submit(sm *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := sm.Receipt(r); ok {
			http.Redirect(w, r, wizard.ConfirmationPath, http.StatusSeeOther)
			return
		}
		id, wiz := sm.Acquire(w, r)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		applyForm(wiz, r)

		nav := &redirectNav{}
		rc, err := wiz.Submit(r.Context(), nav)
		switch {
		case errors.Is(err, wizard.ErrSubmitFailed):
			hlog.FromRequest(r).Warn().Err(err).Msg("submit")
			http.Redirect(w, r, "/?error=submit_failed", http.StatusSeeOther)
			return
		case errors.Is(err, wizard.ErrSubmitted):
			http.Redirect(w, r, wizard.ConfirmationPath, http.StatusSeeOther)
			return
		case err != nil:
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		sm.Complete(id, rc)
		http.Redirect(w, r, nav.path, http.StatusSeeOther)
	}
}

// POST /wizard/restart
func Restart(sm *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sm.Restart(w, r)
		http.Redirect(w, r, "/?ok=restarted", http.StatusSeeOther)
	}
}

// applyForm writes every known field present in the posted form.
func applyForm(wiz *wizard.Wizard, r *http.Request) {
	for _, f := range wizard.Fields {
		if vals, ok := r.PostForm[f]; ok && len(vals) > 0 {
			wiz.Set(f, vals[0])
		}
	}
}

func wantsJSON(r *http.Request) bool {
	return r.Header.Get("Accept") == "application/json"
}
