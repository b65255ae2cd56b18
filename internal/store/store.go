// Package store persists submitted registrations.
package store

import (
	"context"
	"errors"

	"github.com/grvc/ambassadors/internal/models"
)

var (
	ErrNotFound      = errors.New("registration not found")
	ErrDuplicateCode = errors.New("registration code already used")
)

type Store interface {
	Save(ctx context.Context, reg *models.Registration) error
	ByCode(ctx context.Context, code string) (*models.Registration, error)
	Close() error
}
