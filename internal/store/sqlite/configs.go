package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/adpilot/adpilot/internal/store"
)

// ConfigStore implements store.ConfigStore on SQLite. Allow-lists and
// templates are stored as JSON columns, matching the record shape of the
// document backend.
type ConfigStore struct {
	db *sql.DB
}

func NewConfigStore(db *sql.DB) *ConfigStore {
	return &ConfigStore{db: db}
}

func (s *ConfigStore) Get(ctx context.Context, id int64) (*store.TenantConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT allow_chats, templates FROM configs WHERE tenant_id = ?`, id)

	var allowJSON, tplJSON string
	err := row.Scan(&allowJSON, &tplJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return &store.TenantConfig{TenantID: id, Templates: store.DefaultTemplates()}, nil
	}
	if err != nil {
		return nil, err
	}

	cfg := &store.TenantConfig{TenantID: id}
	if err := json.Unmarshal([]byte(allowJSON), &cfg.AllowChats); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tplJSON), &cfg.Templates); err != nil {
		return nil, err
	}
	if len(cfg.Templates) == 0 {
		cfg.Templates = store.DefaultTemplates()
	}
	return cfg, nil
}

func (s *ConfigStore) SetAllowChats(ctx context.Context, id int64, chats []int64) error {
	if chats == nil {
		chats = []int64{}
	}
	data, err := json.Marshal(chats)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO configs (tenant_id, allow_chats, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(tenant_id) DO UPDATE SET allow_chats = excluded.allow_chats, updated_at = excluded.updated_at`,
		id, string(data), time.Now().Unix(),
	)
	return err
}

func (s *ConfigStore) SetTemplates(ctx context.Context, id int64, templates []store.Template) error {
	if templates == nil {
		templates = []store.Template{}
	}
	data, err := json.Marshal(templates)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO configs (tenant_id, templates, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(tenant_id) DO UPDATE SET templates = excluded.templates, updated_at = excluded.updated_at`,
		id, string(data), time.Now().Unix(),
	)
	return err
}
