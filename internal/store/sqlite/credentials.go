package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/adpilot/adpilot/internal/store"
)

// CredentialStore implements store.CredentialStore on SQLite.
// Tokens are stored as-is; at-rest encryption is a deliberate non-goal.
type CredentialStore struct {
	db *sql.DB
}

func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

func (s *CredentialStore) Set(ctx context.Context, id int64, token string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (tenant_id, token, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(tenant_id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`,
		id, token, time.Now().Unix(),
	)
	return err
}

func (s *CredentialStore) Get(ctx context.Context, id int64) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		`SELECT token FROM credentials WHERE tenant_id = ?`, id).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	return token, err
}

func (s *CredentialStore) TenantIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tenant_id FROM credentials`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
