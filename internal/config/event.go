package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/grvc/ambassadors/internal/validator"
	"github.com/grvc/ambassadors/internal/wizard"
)

var ErrInvalidEventConfig = errors.New("invalid event config")

type eventFile struct {
	EventName          string       `yaml:"eventName" validate:"required"`
	RegistrationFee    string       `yaml:"registrationFee" validate:"required"`
	Deadline           string       `yaml:"deadline" validate:"required"`
	Churches           []churchFile `yaml:"churches" validate:"min=1,unique=ID,dive"`
	Instructions       []string     `yaml:"instructions"`
	IsRegistrationOpen *bool        `yaml:"isRegistrationOpen"`
	CardPayments       bool         `yaml:"cardPayments"`
	BannerPath         string       `yaml:"bannerPath"`
}

type churchFile struct {
	ID   string `yaml:"id" validate:"required,slug"`
	Name string `yaml:"name" validate:"required"`
}

// LoadEvent reads the event description at path. An empty path gives
// DefaultEvent.
func LoadEvent(path string) (wizard.EventConfig, error) {
	if path == "" {
		return DefaultEvent(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return wizard.EventConfig{}, fmt.Errorf("read event config: %w", err)
	}
	return ParseEvent(b)
}

// ParseEvent decodes and validates a YAML event description.
// isRegistrationOpen defaults to true when omitted.
func ParseEvent(b []byte) (wizard.EventConfig, error) {
	var f eventFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return wizard.EventConfig{}, fmt.Errorf("%w: %w", ErrInvalidEventConfig, err)
	}
	if err := validator.Validate(context.Background(), f); err != nil {
		return wizard.EventConfig{}, fmt.Errorf("%w: %w", ErrInvalidEventConfig, err)
	}
	deadline, err := time.Parse(time.RFC3339, f.Deadline)
	if err != nil {
		return wizard.EventConfig{}, fmt.Errorf("%w: deadline: %w", ErrInvalidEventConfig, err)
	}

	cfg := wizard.EventConfig{
		EventName:          f.EventName,
		RegistrationFee:    f.RegistrationFee,
		Deadline:           deadline,
		Instructions:       f.Instructions,
		IsRegistrationOpen: f.IsRegistrationOpen == nil || *f.IsRegistrationOpen,
		CardPayments:       f.CardPayments,
		BannerPath:         f.BannerPath,
	}
	for _, c := range f.Churches {
		cfg.Churches = append(cfg.Churches, wizard.Church{ID: c.ID, Name: c.Name})
	}
	return cfg, nil
}

// DefaultEvent is the 2025 congress, used when no EVENT_CONFIG is given.
func DefaultEvent() wizard.EventConfig {
	return wizard.EventConfig{
		EventName:       "2025 GRVC Ambassadors congress",
		RegistrationFee: "KES 1,000",
		Deadline:        time.Date(2025, 4, 12, 23, 59, 59, 0, Nairobi()),
		Churches: []wizard.Church{
			{ID: "nairobi", Name: "Nairobi Central SDA Church"},
			{ID: "mombasa", Name: "Mombasa Central SDA Church"},
			{ID: "kisumu", Name: "Kisumu Central SDA Church"},
			{ID: "eldoret", Name: "Eldoret Central SDA Church"},
		},
		Instructions: []string{
			"Under title, select Mr for male and Ms/Mrs for female.",
			"Ensure your registration is completed before the deadline.",
		},
		IsRegistrationOpen: true,
		BannerPath:         "/static/amb.jpeg",
	}
}

// Nairobi is Africa/Nairobi, or a fixed UTC+3 zone when tzdata is missing.
func Nairobi() *time.Location {
	loc, err := time.LoadLocation("Africa/Nairobi")
	if err != nil {
		return time.FixedZone("EAT", 3*60*60)
	}
	return loc
}
