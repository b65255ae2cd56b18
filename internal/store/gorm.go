package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/grvc/ambassadors/internal/db"
	"github.com/grvc/ambassadors/internal/models"
)

// GormStore keeps registrations in the sqlite database opened by db.Open.
type GormStore struct {
	conn *gorm.DB
}

func NewGormStore(conn *gorm.DB) *GormStore {
	return &GormStore{conn: conn}
}

// OpenSQLite opens the database file at path and wraps it in a GormStore.
func OpenSQLite(path string) (*GormStore, error) {
	conn, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	return NewGormStore(conn), nil
}

func (s *GormStore) Save(ctx context.Context, reg *models.Registration) error {
	if err := s.conn.WithContext(ctx).Create(reg).Error; err != nil {
		le := strings.ToLower(err.Error())
		if strings.Contains(le, "unique") && strings.Contains(le, "code") {
			return ErrDuplicateCode
		}
		return fmt.Errorf("save registration: %w", err)
	}
	return nil
}

func (s *GormStore) ByCode(ctx context.Context, code string) (*models.Registration, error) {
	var reg models.Registration
	err := s.conn.WithContext(ctx).Where("code = ?", code).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return &reg, nil
}

func (s *GormStore) Close() error {
	return db.Close(s.conn)
}
