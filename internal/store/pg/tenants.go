package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/adpilot/adpilot/internal/store"
)

// TenantStore implements store.TenantStore on Postgres.
type TenantStore struct {
	db *sql.DB
}

func NewTenantStore(db *sql.DB) *TenantStore {
	return &TenantStore{db: db}
}

func (s *TenantStore) Upsert(ctx context.Context, id int64, username string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, username) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, active = TRUE`,
		id, username,
	)
	return err
}

func (s *TenantStore) Get(ctx context.Context, id int64) (*store.Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, created_at, premium_until, active FROM tenants WHERE id = $1`, id)

	var t store.Tenant
	var until sql.NullTime
	if err := row.Scan(&t.ID, &t.Username, &t.CreatedAt, &until, &t.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if until.Valid {
		t.PremiumUntil = until.Time
	}
	return &t, nil
}

func (s *TenantStore) SetPremium(ctx context.Context, id int64, until time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, premium_until) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET premium_until = EXCLUDED.premium_until`,
		id, until,
	)
	return err
}

func (s *TenantStore) PremiumActive(ctx context.Context, id int64) (bool, time.Time, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, time.Time{}, nil
		}
		return false, time.Time{}, err
	}
	return t.PremiumUntil.After(time.Now()), t.PremiumUntil, nil
}
