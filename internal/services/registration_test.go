package services

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/grvc/ambassadors/internal/events"
	"github.com/grvc/ambassadors/internal/models"
	"github.com/grvc/ambassadors/internal/store"
	"github.com/grvc/ambassadors/internal/wizard"
)

var codeRE = regexp.MustCompile(`^REG-[0-9A-F]{8}$`)

// TestGenerateRegCode_Format verifies that generated codes match the expected
// REG-XXXXXXXX format (uppercase hex, exactly 8 digits).
func TestGenerateRegCode_Format(t *testing.T) {
	code := generateRegCode()
	if !codeRE.MatchString(code) {
		t.Errorf("code %q does not match REG-[0-9A-F]{8}", code)
	}
}

func TestGenerateRegCode_Unique(t *testing.T) {
	const n = 2000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		c := generateRegCode()
		if _, dup := seen[c]; dup {
			t.Fatalf("duplicate code %q generated on iteration %d", c, i)
		}
		seen[c] = struct{}{}
	}
}

// dupStore rejects the first n saves as duplicates, then stores in memory.
type dupStore struct {
	dups  int
	saved []models.Registration
	err   error
}

func (s *dupStore) Save(_ context.Context, reg *models.Registration) error {
	if s.err != nil {
		return s.err
	}
	if s.dups > 0 {
		s.dups--
		return store.ErrDuplicateCode
	}
	s.saved = append(s.saved, *reg)
	return nil
}

func (s *dupStore) ByCode(context.Context, string) (*models.Registration, error) {
	return nil, store.ErrNotFound
}

func (s *dupStore) Close() error { return nil }

func testSubmission() wizard.Submission {
	return wizard.Submission{
		Church:        "nairobi",
		ChurchName:    "Nairobi Central",
		Attendee:      wizard.Attendee{Name: " Jane Doe ", Title: "Ms", Email: "Jane@Example.com", Phone: "0712345678"},
		PaymentMethod: wizard.PaymentMpesa,
		PhoneNumber:   "0712 345 678",
		SubmittedAt:   time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRecorderSavesAndNotifies(t *testing.T) {
	s := &dupStore{dups: 2}
	var got []events.SubmittedEvent
	n := events.NotifierFunc(func(_ context.Context, ev events.SubmittedEvent) error {
		got = append(got, ev)
		return errors.New("broker down")
	})
	cfg := wizard.EventConfig{EventName: "Congress", RegistrationFee: "KES 1,000"}
	r := NewRecorder(s, n, cfg, zerolog.Nop())

	rc, err := r.Record(context.Background(), testSubmission())
	if err != nil {
		t.Fatalf("Record: %v (notify errors must not fail the submission)", err)
	}
	if !codeRE.MatchString(rc.Code) || rc.ID == "" {
		t.Errorf("receipt = %+v", rc)
	}
	if len(s.saved) != 1 {
		t.Fatalf("saved %d registrations, want 1", len(s.saved))
	}
	reg := s.saved[0]
	if reg.Code != rc.Code || reg.Email != "jane@example.com" || reg.Name != "Jane Doe" || reg.MSISDN != "254712345678" {
		t.Errorf("stored %+v", reg)
	}
	if len(got) != 1 || got[0].Code != rc.Code || got[0].Fee != "KES 1,000" || got[0].EventName != "Congress" {
		t.Errorf("notified %+v", got)
	}
}

func TestRecorderStoreError(t *testing.T) {
	boom := errors.New("disk full")
	r := NewRecorder(&dupStore{err: boom}, nil, wizard.EventConfig{}, zerolog.Nop())
	if _, err := r.Record(context.Background(), testSubmission()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped disk full", err)
	}
}

func TestRecorderGivesUpOnDuplicates(t *testing.T) {
	r := NewRecorder(&dupStore{dups: codeAttempts}, nil, wizard.EventConfig{}, zerolog.Nop())
	if _, err := r.Record(context.Background(), testSubmission()); !errors.Is(err, ErrNoCode) {
		t.Errorf("err = %v, want ErrNoCode", err)
	}
}

func TestRecorderWithSQLite(t *testing.T) {
	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "rec.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	r := NewRecorder(s, nil, wizard.EventConfig{}, zerolog.Nop())
	rc, err := r.Record(context.Background(), testSubmission())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	reg, err := s.ByCode(context.Background(), rc.Code)
	if err != nil {
		t.Fatalf("ByCode: %v", err)
	}
	if reg.ChurchID != "nairobi" || reg.PaymentMethod != "mpesa" {
		t.Errorf("stored %+v", reg)
	}
}
