package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/routinerec/internal/domain/model"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS user_records (
	user_id    TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore keeps user records as JSON documents in a SQLite table.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens a SQLite store at path and creates the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, id string) (model.UserData, error) {
	if err := ctx.Err(); err != nil {
		return model.UserData{}, err
	}
	if s == nil || s.sqlDB == nil {
		return model.UserData{}, ErrClosed
	}
	if err := checkID(id); err != nil {
		return model.UserData{}, err
	}

	var body string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT body FROM user_records WHERE user_id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserData{}, ErrNotFound
	}
	if err != nil {
		return model.UserData{}, fmt.Errorf("select user record: %w", err)
	}
	return decode([]byte(body))
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, id string, data model.UserData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return ErrClosed
	}
	if err := checkID(id); err != nil {
		return err
	}

	payload, err := encode(data)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO user_records (user_id, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		id, string(payload), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert user record: %w", err)
	}
	return nil
}

// IDs lists every stored user id.
func (s *SQLiteStore) IDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, ErrClosed
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT user_id FROM user_records ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list user records: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
