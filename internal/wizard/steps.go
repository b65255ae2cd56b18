package wizard

// Step is one page of the registration wizard.
type Step int

const (
	StepInstructions Step = iota + 1
	StepChurch
	StepAttendee
	StepConfirm
	StepBilling
)

const (
	firstStep = StepInstructions
	lastStep  = StepBilling
)

type stepDef struct {
	name string
	// gate must hold before leaving the step forward (or submitting, on the last step).
	gate func(w *Wizard) bool
}

var stepTable = [...]stepDef{
	StepInstructions: {name: "Instructions", gate: func(*Wizard) bool { return true }},
	StepChurch:       {name: "Select Church", gate: (*Wizard).churchGate},
	StepAttendee:     {name: "Attendee Information", gate: (*Wizard).attendeeGate},
	StepConfirm:      {name: "Confirm Details", gate: func(*Wizard) bool { return true }},
	StepBilling:      {name: "Billing", gate: (*Wizard).billingGate},
}

// Steps returns every step in order.
func Steps() []Step {
	out := make([]Step, 0, lastStep)
	for s := firstStep; s <= lastStep; s++ {
		out = append(out, s)
	}
	return out
}

func (s Step) Valid() bool {
	return s >= firstStep && s <= lastStep
}

func (s Step) Name() string {
	if !s.Valid() {
		return ""
	}
	return stepTable[s].name
}

func (s Step) String() string { return s.Name() }

func (w *Wizard) churchGate() bool {
	return w.cfg.hasChurch(w.form.Church)
}

func (w *Wizard) attendeeGate() bool {
	if !w.form.Attendee.Complete() {
		return false
	}
	if w.checker != nil && len(w.checker.CheckAttendee(w.form.Attendee)) > 0 {
		return false
	}
	return true
}

func (w *Wizard) billingGate() bool {
	return w.form.PhoneNumber != ""
}
