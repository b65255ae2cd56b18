// Package events carries recorded registrations to downstream listeners.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/grvc/ambassadors/internal/models"
)

// RoutingKeySubmitted is the topic a recorded registration is published under.
const RoutingKeySubmitted = "registration.submitted"

// SubmittedEvent is emitted once a registration has been stored.
type SubmittedEvent struct {
	ID            string    `json:"id" msgpack:"id"`
	Code          string    `json:"code" msgpack:"code"`
	EventName     string    `json:"eventName" msgpack:"eventName"`
	ChurchID      string    `json:"churchId" msgpack:"churchId"`
	ChurchName    string    `json:"churchName" msgpack:"churchName"`
	Title         string    `json:"title" msgpack:"title"`
	Name          string    `json:"name" msgpack:"name"`
	Email         string    `json:"email" msgpack:"email"`
	Phone         string    `json:"phone" msgpack:"phone"`
	PaymentMethod string    `json:"paymentMethod" msgpack:"paymentMethod"`
	MSISDN        string    `json:"msisdn" msgpack:"msisdn"`
	Fee           string    `json:"fee" msgpack:"fee"`
	SubmittedAt   time.Time `json:"submittedAt" msgpack:"submittedAt"`
}

// FromRegistration builds the event for a stored registration.
func FromRegistration(reg models.Registration, eventName, fee string) SubmittedEvent {
	return SubmittedEvent{
		ID:            reg.ID,
		Code:          reg.Code,
		EventName:     eventName,
		ChurchID:      reg.ChurchID,
		ChurchName:    reg.ChurchName,
		Title:         reg.Title,
		Name:          reg.Name,
		Email:         reg.Email,
		Phone:         reg.Phone,
		PaymentMethod: reg.PaymentMethod,
		MSISDN:        reg.MSISDN,
		Fee:           fee,
		SubmittedAt:   reg.SubmittedAt,
	}
}

type Notifier interface {
	Notify(ctx context.Context, ev SubmittedEvent) error
}

type NotifierFunc func(ctx context.Context, ev SubmittedEvent) error

func (f NotifierFunc) Notify(ctx context.Context, ev SubmittedEvent) error { return f(ctx, ev) }

// Fanout delivers to every notifier, even after one fails, and joins the errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, ev SubmittedEvent) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
