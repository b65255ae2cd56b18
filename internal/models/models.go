package models

import "time"

// Registration is a submitted wizard run.
type Registration struct {
	ID        string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Code string `gorm:"uniqueIndex;not null"` // e.g., REG-1A2B3C4D

	ChurchID   string `gorm:"index"`
	ChurchName string

	Title string
	Name  string
	Email string
	Phone string

	PaymentMethod string // mpesa | card
	PaymentPhone  string // as typed on the billing step
	MSISDN        string // normalized, "" when PaymentPhone is not a plausible number

	SubmittedAt time.Time `gorm:"index"`
}
