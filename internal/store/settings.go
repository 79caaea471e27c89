package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const metaSchemaVersion = "schema_version"

type Setting struct {
	Key   string
	Value string
}

func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.queryRow(ctx, `SELECT meta_value FROM worklog_meta WHERE meta_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get meta %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get meta %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.exec(ctx, s.dialect.upsertMeta, key, value)
	return err
}

func (s *Store) AllMeta(ctx context.Context) ([]Setting, error) {
	rows, err := s.query(ctx, `SELECT meta_key, meta_value FROM worklog_meta ORDER BY meta_key`)
	if err != nil {
		return nil, fmt.Errorf("list meta: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.Key, &st.Value); err != nil {
			return nil, err
		}
		settings = append(settings, st)
	}
	return settings, rows.Err()
}
