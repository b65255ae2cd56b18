package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grvc/ambassadors/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS registrations (
	id             TEXT PRIMARY KEY,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	code           TEXT NOT NULL UNIQUE,
	church_id      TEXT NOT NULL,
	church_name    TEXT NOT NULL,
	title          TEXT NOT NULL,
	name           TEXT NOT NULL,
	email          TEXT NOT NULL,
	phone          TEXT NOT NULL,
	payment_method TEXT NOT NULL,
	payment_phone  TEXT NOT NULL,
	msisdn         TEXT NOT NULL,
	submitted_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reg_church_submitted ON registrations (church_id, submitted_at);
`

// PostgresStore keeps registrations in Postgres, used when DATABASE_URL is set.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgres connects to dsn, pings it and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	s := NewPostgresStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, reg *models.Registration) error {
	const stmt = `
INSERT INTO registrations (id, code, church_id, church_name, title, name, email, phone,
	payment_method, payment_phone, msisdn, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING created_at, updated_at`

	err := s.pool.QueryRow(ctx, stmt,
		reg.ID, reg.Code, reg.ChurchID, reg.ChurchName, reg.Title, reg.Name, reg.Email, reg.Phone,
		reg.PaymentMethod, reg.PaymentPhone, reg.MSISDN, reg.SubmittedAt,
	).Scan(&reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("save registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByCode(ctx context.Context, code string) (*models.Registration, error) {
	const query = `
SELECT id, created_at, updated_at, code, church_id, church_name, title, name, email, phone,
	payment_method, payment_phone, msisdn, submitted_at
FROM registrations
WHERE code = $1`

	var r models.Registration
	err := s.pool.QueryRow(ctx, query, code).Scan(
		&r.ID, &r.CreatedAt, &r.UpdatedAt, &r.Code, &r.ChurchID, &r.ChurchName, &r.Title, &r.Name,
		&r.Email, &r.Phone, &r.PaymentMethod, &r.PaymentPhone, &r.MSISDN, &r.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
