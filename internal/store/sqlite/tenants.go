package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/adpilot/adpilot/internal/store"
)

// TenantStore implements store.TenantStore on SQLite.
type TenantStore struct {
	db *sql.DB
}

func NewTenantStore(db *sql.DB) *TenantStore {
	return &TenantStore{db: db}
}

func (s *TenantStore) Upsert(ctx context.Context, id int64, username string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, username, created_at, premium_until, active)
		 VALUES (?, ?, ?, 0, 1)
		 ON CONFLICT(id) DO UPDATE SET username = excluded.username, active = 1`,
		id, username, time.Now().Unix(),
	)
	return err
}

func (s *TenantStore) Get(ctx context.Context, id int64) (*store.Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, created_at, premium_until, active FROM tenants WHERE id = ?`, id)

	var t store.Tenant
	var created, until int64
	if err := row.Scan(&t.ID, &t.Username, &created, &until, &t.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	t.CreatedAt = time.Unix(created, 0)
	if until > 0 {
		t.PremiumUntil = time.Unix(until, 0)
	}
	return &t, nil
}

func (s *TenantStore) SetPremium(ctx context.Context, id int64, until time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, username, created_at, premium_until, active)
		 VALUES (?, '', ?, ?, 1)
		 ON CONFLICT(id) DO UPDATE SET premium_until = excluded.premium_until`,
		id, time.Now().Unix(), until.Unix(),
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
