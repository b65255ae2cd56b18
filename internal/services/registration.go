package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/grvc/ambassadors/internal/events"
	"github.com/grvc/ambassadors/internal/models"
	"github.com/grvc/ambassadors/internal/store"
	"github.com/grvc/ambassadors/internal/wizard"
)

const codeAttempts = 20

var ErrNoCode = errors.New("could not allocate a registration code")

// Recorder stores submitted wizard runs and tells listeners about them.
// It implements wizard.Sink.
type Recorder struct {
	store  store.Store
	notify events.Notifier
	event  wizard.EventConfig
	log    zerolog.Logger
}

func NewRecorder(s store.Store, n events.Notifier, cfg wizard.EventConfig, log zerolog.Logger) *Recorder {
	return &Recorder{store: s, notify: n, event: cfg, log: log}
}

// Record saves the submission under a fresh REG- code. Notification failures
// are logged and do not fail the submission.
func (r *Recorder) Record(ctx context.Context, sub wizard.Submission) (wizard.Receipt, error) {
	email, _ := NormEmail(sub.Attendee.Email)
	reg := models.Registration{
		ChurchID:      sub.Church,
		ChurchName:    sub.ChurchName,
		Title:         strings.TrimSpace(sub.Attendee.Title),
		Name:          strings.TrimSpace(sub.Attendee.Name),
		Email:         email,
		Phone:         strings.TrimSpace(sub.Attendee.Phone),
		PaymentMethod: string(sub.PaymentMethod),
		PaymentPhone:  strings.TrimSpace(sub.PhoneNumber),
		MSISDN:        MSISDN(sub.PhoneNumber),
		SubmittedAt:   sub.SubmittedAt,
	}

	saved := false
	for i := 0; i < codeAttempts; i++ {
		reg.ID = uuid.NewString()
		reg.Code = generateRegCode()
		err := r.store.Save(ctx, &reg)
		if errors.Is(err, store.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return wizard.Receipt{}, fmt.Errorf("record registration: %w", err)
		}
		saved = true
		break
	}
	if !saved {
		return wizard.Receipt{}, ErrNoCode
	}

	r.log.Info().Str("code", reg.Code).Str("church", reg.ChurchID).Msg("registration recorded")

	if r.notify != nil {
		ev := events.FromRegistration(reg, r.event.EventName, r.event.RegistrationFee)
		if err := r.notify.Notify(ctx, ev); err != nil {
			r.log.Warn().Err(err).Str("code", reg.Code).Msg("notify registration")
		}
	}

	return wizard.Receipt{ID: reg.ID, Code: reg.Code, Submission: sub}, nil
}

// generateRegCode returns REG- followed by 8 uppercase hex digits.
func generateRegCode() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ""
	}
	return "REG-" + strings.ToUpper(hex.EncodeToString(b[:]))
}
