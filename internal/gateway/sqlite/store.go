// Package sqlite is a Gateway backed by a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/auth"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Store wraps the SQLite connection pool.
type Store struct {
	db *sql.DB
}

var (
	_ domain.Gateway       = (*Store)(nil)
	_ domain.HealthChecker = (*Store)(nil)
	_ auth.CredentialStore = (*Store)(nil)
)

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.NewTransportError("ping", err)
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		avatar_url TEXT,
		notifications_enabled INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS folders (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		parent_folder_id TEXT,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS folders_owner ON folders(owner_id);
	CREATE TABLE IF NOT EXISTS lists (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		cover_image_url TEXT,
		is_public INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS library_lists (
		user_id TEXT NOT NULL,
		list_id TEXT NOT NULL,
		folder_id TEXT,
		sort_order TEXT NOT NULL DEFAULT '',
		today INTEGER NOT NULL DEFAULT 0,
		current_item TEXT,
		notify_on_new INTEGER NOT NULL DEFAULT 0,
		notify_time TEXT,
		notify_days TEXT,
		order_index INTEGER,
		updated_at TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (user_id, list_id)
	);
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		list_id TEXT NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
		title TEXT,
		content TEXT NOT NULL DEFAULT '',
		image_urls TEXT,
		order_index INTEGER,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS items_list ON items(list_id);
	CREATE TABLE IF NOT EXISTS credentials (
		username TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// ─────────────────────────────
// Error mapping
// ─────────────────────────────

func constraintCode(err error) int {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

// isConstraint matches on the primary result code.
func isConstraint(err error) bool {
	return constraintCode(err)&0xff == sqlite3.SQLITE_CONSTRAINT
}

// writeErr classifies a failed INSERT.
func writeErr(op, entity string, err error) error {
	if !isConstraint(err) {
		return domain.NewTransportError(op, err)
	}
	if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY || strings.Contains(err.Error(), "FOREIGN KEY") {
		return &domain.ValidationError{Entity: entity, Field: "list_id", Reason: "unknown list"}
	}
	return &domain.ValidationError{Entity: entity, Field: "id", Reason: "already exists"}
}

// readErr maps sql.ErrNoRows to NotFound.
func readErr(op, entity, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(entity, id)
	}
	return domain.NewTransportError(op, err)
}

// affected turns a zero-row UPDATE or DELETE into NotFound.
func affected(op, entity, id string, res sql.Result, err error) error {
	if err != nil {
		return domain.NewTransportError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewTransportError(op, err)
	}
	if n == 0 {
		return domain.NotFound(entity, id)
	}
	return nil
}

// inTx runs fn in a transaction and commits when it returns nil.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewTransportError(op, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.NewTransportError(op, err)
	}
	return nil
}

// ─────────────────────────────
// Users
// ─────────────────────────────

func (s *Store) RetrieveUser(ctx context.Context, id string) (domain.UserRecord, error) {
	var r domain.UserRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, avatar_url, notifications_enabled, created_at, updated_at
		FROM users WHERE id = ?`, id,
	).Scan(&r.ID, &r.Username, &r.Email, &r.AvatarURL, &r.NotificationsEnabled, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return domain.UserRecord{}, readErr("retrieve user", "user", id, err)
	}
	return r, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd domain.UserUpdate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET notifications_enabled = ?, updated_at = ? WHERE id = ?`,
		upd.NotificationsEnabled, upd.UpdatedAt, id)
	return affected("update user", "user", id, res, err)
}

func (s *Store) StoreNewUser(ctx context.Context, rec domain.UserRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, avatar_url, notifications_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Username, rec.Email, rec.AvatarURL, rec.NotificationsEnabled, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return writeErr("store user", "user", err)
	}
	return nil
}

// DeleteUser removes the user row and the user's library placements.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.inTx(ctx, "delete user", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err := affected("delete user", "user", id, res, err); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM library_lists WHERE user_id = ?`, id); err != nil {
			return domain.NewTransportError("delete user", err)
		}
		return nil
	})
}

// ─────────────────────────────
// Credentials
// ─────────────────────────────

func (s *Store) SaveCredential(ctx context.Context, c auth.Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (username, user_id, password_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		c.Username, c.UserID, c.PasswordHash, c.CreatedAt)
	if err != nil {
		if isConstraint(err) {
			return auth.ErrUsernameTaken
		}
		return domain.NewTransportError("save credential", err)
	}
	return nil
}

func (s *Store) GetCredential(ctx context.Context, username string) (auth.Credential, error) {
	var c auth.Credential
	err := s.db.QueryRowContext(ctx,
		`SELECT username, user_id, password_hash, created_at FROM credentials WHERE username = ?`, username,
	).Scan(&c.Username, &c.UserID, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		return auth.Credential{}, readErr("get credential", "credential", username, err)
	}
	return c, nil
}
