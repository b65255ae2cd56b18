// Package wizard implements the five-step congress registration flow:
// the countdown to the registration deadline, the step state machine with its
// per-step gates, the form being filled in, and submission.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ConfirmationPath is where a successful submission navigates to.
const ConfirmationPath = "/confirmation"

// TickInterval is the countdown cadence.
const TickInterval = time.Second

var (
	ErrClosed       = errors.New("registration is closed")
	ErrWrongStep    = errors.New("not on the billing step")
	ErrGate         = errors.New("step is incomplete")
	ErrSubmitFailed = errors.New("submission failed")
	ErrSubmitted    = errors.New("already submitted")
)

// Navigator moves the user to another page.
type Navigator interface {
	NavigateTo(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) NavigateTo(path string) { f(path) }

// Sink records a submission before the user is navigated away.
type Sink interface {
	Record(ctx context.Context, s Submission) (Receipt, error)
}

// AttendeeChecker reports field problems beyond non-emptiness, keyed by field name.
// A nil checker means only presence is checked.
type AttendeeChecker interface {
	CheckAttendee(a Attendee) map[string]string
}

// State is a consistent copy of the wizard taken under its lock.
type State struct {
	Step       Step
	TimeLeft   TimeLeft
	IsClosed   bool
	Form       RegistrationForm
	CanAdvance bool
	CanSubmit  bool
}

// Wizard owns one registration run. All methods are safe for concurrent use;
// every mutation runs to completion under a single lock.
type Wizard struct {
	cfg     EventConfig
	clock   Clock
	sink    Sink
	checker AttendeeChecker
	log     zerolog.Logger

	// submitMu serializes Submit across the sink call; mu is not held there.
	submitMu sync.Mutex

	mu        sync.Mutex
	step      Step
	form      RegistrationForm
	left      TimeLeft
	closed    bool
	submitted bool

	started bool
	stopped bool
	quit    chan struct{}
	done    chan struct{}
}

type Option func(*Wizard)

func WithClock(c Clock) Option {
	return func(w *Wizard) { w.clock = c }
}

func WithSink(s Sink) Option {
	return func(w *Wizard) { w.sink = s }
}

func WithAttendeeChecker(c AttendeeChecker) Option {
	return func(w *Wizard) { w.checker = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(w *Wizard) { w.log = l }
}

// New builds a wizard on the instructions step with an empty form and the
// countdown already computed. A config with IsRegistrationOpen=false starts closed.
func New(cfg EventConfig, opts ...Option) *Wizard {
	w := &Wizard{
		cfg:    cfg,
		clock:  NewSystemClock(),
		log:    zerolog.Nop(),
		step:   StepInstructions,
		form:   newForm(),
		closed: !cfg.IsRegistrationOpen,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.tickLocked()
	return w
}

// Config returns the event the wizard registers for.
func (w *Wizard) Config() EventConfig { return w.cfg }

// Start computes the countdown immediately and then once per TickInterval
// until Stop. Only the first call starts the timer; calls after Stop are ignored.
func (w *Wizard) Start() {
	w.mu.Lock()
	if w.started || w.stopped {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.tickLocked()
	ticker := w.clock.NewTicker(TickInterval)
	w.mu.Unlock()

	go w.run(ticker)
}

func (w *Wizard) run(t Ticker) {
	defer close(w.done)
	defer t.Stop()
	for {
		select {
		case <-w.quit:
			return
		case <-t.C():
			w.Tick()
		}
	}
}

// Stop releases the timer. It is safe to call more than once and returns
// after the timer goroutine has exited.
func (w *Wizard) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	started := w.started
	close(w.quit)
	w.mu.Unlock()

	if started {
		<-w.done
	}
}

// Tick recomputes the countdown from the deadline and the current time.
func (w *Wizard) Tick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tickLocked()
}

func (w *Wizard) tickLocked() {
	left, expired := Remaining(w.cfg.Deadline, w.clock.Now())
	w.left = left
	if expired && !w.closed {
		w.closed = true
		w.log.Info().Time("deadline", w.cfg.Deadline).Msg("registration deadline reached")
	}
}

// Snapshot returns the current state.
func (w *Wizard) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Step:       w.step,
		TimeLeft:   w.left,
		IsClosed:   w.closed,
		Form:       w.form,
		CanAdvance: w.canAdvanceLocked(),
		CanSubmit:  w.canSubmitLocked(),
	}
}

func (w *Wizard) canAdvanceLocked() bool {
	return !w.closed && w.step < lastStep && stepTable[w.step].gate(w)
}

func (w *Wizard) canSubmitLocked() bool {
	return !w.closed && !w.submitted && w.step == StepBilling && stepTable[StepBilling].gate(w)
}

// Set writes one form field. It reports false when the wizard is closed,
// the field is unknown, or the value is not accepted for that field.
func (w *Wizard) Set(field, value string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	return w.form.set(field, value, w.cfg.CardPayments)
}

// Next advances one step if the current step's gate holds.
func (w *Wizard) Next() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.canAdvanceLocked() {
		return false
	}
	w.step++
	return true
}

// Prev goes back one step. It is a no-op on the first step or when closed.
func (w *Wizard) Prev() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.step <= firstStep {
		return false
	}
	w.step--
	return true
}

// FieldErrors returns attendee problems found by the checker, if any.
func (w *Wizard) FieldErrors() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.checker == nil {
		return nil
	}
	return w.checker.CheckAttendee(w.form.Attendee)
}

// Summary is the data shown on the confirm step.
func (w *Wizard) Summary() Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	name := "Not selected"
	if w.form.Church != "" {
		name = w.cfg.ChurchName(w.form.Church)
	}
	return Summary{
		ChurchName:  name,
		DisplayName: w.form.Attendee.DisplayName(),
		Email:       w.form.Attendee.Email,
		Phone:       w.form.Attendee.Phone,
		Fee:         w.cfg.RegistrationFee,
	}
}

// Submit packages the form, hands it to the sink (when configured) and then
// navigates to ConfirmationPath. The step and form are left untouched.
// Nothing is navigated when an error is returned. A wizard records at most
// one submission: concurrent calls wait for the one in flight, and once it
// succeeds every later call gets ErrSubmitted. A failed submission may be retried.
func (w *Wizard) Submit(ctx context.Context, nav Navigator) (Receipt, error) {
	w.submitMu.Lock()
	defer w.submitMu.Unlock()

	w.mu.Lock()
	switch {
	case w.submitted:
		w.mu.Unlock()
		return Receipt{}, ErrSubmitted
	case w.closed:
		w.mu.Unlock()
		return Receipt{}, ErrClosed
	case w.step != StepBilling:
		w.mu.Unlock()
		return Receipt{}, ErrWrongStep
	case !stepTable[StepBilling].gate(w):
		w.mu.Unlock()
		return Receipt{}, ErrGate
	}
	sub := Submission{
		Church:        w.form.Church,
		ChurchName:    w.cfg.ChurchName(w.form.Church),
		Attendee:      w.form.Attendee,
		PaymentMethod: w.form.PaymentMethod,
		PhoneNumber:   w.form.PhoneNumber,
		SubmittedAt:   w.clock.Now(),
	}
	w.mu.Unlock()

	w.log.Info().
		Str("church", sub.Church).
		Str("name", sub.Attendee.Name).
		Str("title", sub.Attendee.Title).
		Str("email", sub.Attendee.Email).
		Str("phone", sub.Attendee.Phone).
		Str("payment_method", string(sub.PaymentMethod)).
		Str("payment_phone", sub.PhoneNumber).
		Msg("form submitted")

	rc := Receipt{Submission: sub}
	if w.sink != nil {
		got, err := w.sink.Record(ctx, sub)
		if err != nil {
			w.log.Error().Err(err).Msg("record submission")
			return Receipt{}, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
		}
		rc.ID, rc.Code = got.ID, got.Code
	}

	w.mu.Lock()
	w.submitted = true
	w.mu.Unlock()

	if nav != nil {
		nav.NavigateTo(ConfirmationPath)
	}
	return rc, nil
}
