// Package session keeps one wizard per browser session.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/grvc/ambassadors/internal/wizard"
)

const CookieName = "wizard_session"

// Factory builds a fresh, not yet started wizard.
type Factory func() *wizard.Wizard

type entry struct {
	wiz      *wizard.Wizard
	receipt  *wizard.Receipt
	lastSeen time.Time
}

// Manager owns every live wizard. Wizards are started when their session is
// created and stopped when it completes, expires or is restarted.
type Manager struct {
	newWizard Factory
	idle      time.Duration
	clock     wizard.Clock
	log       zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

type Option func(*Manager)

func WithClock(c wizard.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

func NewManager(f Factory, idle time.Duration, opts ...Option) *Manager {
	m := &Manager{
		newWizard: f,
		idle:      idle,
		clock:     wizard.NewSystemClock(),
		log:       zerolog.Nop(),
		entries:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire returns the caller's wizard, creating and starting one (and setting
// the cookie) when there is none. A completed session gets a fresh wizard
// under the same id.
func (m *Manager) Acquire(w http.ResponseWriter, r *http.Request) (string, *wizard.Wizard) {
	id := cookieID(r)

	m.mu.Lock()
	if e, ok := m.entries[id]; ok && e.receipt == nil {
		e.lastSeen = m.clock.Now()
		m.mu.Unlock()
		return id, e.wiz
	}
	m.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	wiz := m.newWizard()
	wiz.Start()

	m.mu.Lock()
	old := m.entries[id]
	m.entries[id] = &entry{wiz: wiz, lastSeen: m.clock.Now()}
	m.mu.Unlock()

	if old != nil {
		old.wiz.Stop()
	}
	m.log.Debug().Str("session", id).Msg("wizard started")
	return id, wiz
}

// Lookup returns the caller's running wizard without creating one.
// Completed sessions are not returned.
func (m *Manager) Lookup(r *http.Request) (string, *wizard.Wizard, bool) {
	id := cookieID(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.receipt != nil {
		return "", nil, false
	}
	e.lastSeen = m.clock.Now()
	return id, e.wiz, true
}

// Touch marks the session as seen. It reports false once the session no
// longer runs wiz, i.e. it was completed, restarted or swept.
func (m *Manager) Touch(id string, wiz *wizard.Wizard) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.wiz != wiz || e.receipt != nil {
		return false
	}
	e.lastSeen = m.clock.Now()
	return true
}

// Blank returns a wizard that belongs to no session and is never started.
// Its countdown is computed once, when it is built.
func (m *Manager) Blank() *wizard.Wizard {
	return m.newWizard()
}

// Complete keeps rc for the confirmation page and stops the session's timer.
func (m *Manager) Complete(id string, rc wizard.Receipt) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok {
		e.receipt = &rc
		e.lastSeen = m.clock.Now()
	}
	m.mu.Unlock()
	if ok {
		e.wiz.Stop()
	}
}

// Receipt returns the receipt of the caller's completed registration.
func (m *Manager) Receipt(r *http.Request) (wizard.Receipt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[cookieID(r)]
	if !ok || e.receipt == nil {
		return wizard.Receipt{}, false
	}
	return *e.receipt, true
}

// Restart drops the caller's session and clears the cookie.
func (m *Manager) Restart(w http.ResponseWriter, r *http.Request) {
	id := cookieID(r)
	m.mu.Lock()
	e, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()
	if ok {
		e.wiz.Stop()
	}
	http.SetCookie(w, &http.Cookie{
		Name:    CookieName,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	})
}

// Sweep removes sessions idle for longer than the idle timeout and returns
// how many were removed.
func (m *Manager) Sweep(now time.Time) int {
	var stale []*wizard.Wizard
	m.mu.Lock()
	for id, e := range m.entries {
		if now.Sub(e.lastSeen) > m.idle {
			stale = append(stale, e.wiz)
			delete(m.entries, id)
		}
	}
	m.mu.Unlock()

	for _, wiz := range stale {
		wiz.Stop()
	}
	if len(stale) > 0 {
		m.log.Debug().Int("removed", len(stale)).Msg("idle sessions swept")
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, every time.Duration) {
	t := m.clock.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			m.Sweep(m.clock.Now())
		}
	}
}

// Close stops every wizard and forgets all sessions.
func (m *Manager) Close() {
	m.mu.Lock()
	entries := m.entries
	m.entries = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range entries {
		e.wiz.Stop()
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func cookieID(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}
