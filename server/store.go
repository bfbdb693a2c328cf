package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sonnes/qachat/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a session, file or user session is unknown.
var ErrNotFound = errors.New("not found")

// Store persists sessions, messages, uploads and user sessions in SQLite.
type Store struct {
	db *sql.DB
}

// File is the metadata of an uploaded file.
type File struct {
	ID          string
	Filename    string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	database.SetMaxOpenConns(1)
	database.SetConnMaxLifetime(0)

	store := &Store{db: database}
	if err := store.migrate(context.Background()); err != nil {
		database.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  thread_id TEXT NOT NULL,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL,
  role TEXT NOT NULL,
  content TEXT NOT NULL,
  created_at DATETIME NOT NULL,
  FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_messages_session_created ON messages(session_id, created_at, id);

CREATE TABLE IF NOT EXISTS files (
  id TEXT PRIMARY KEY,
  filename TEXT NOT NULL,
  content_type TEXT NOT NULL,
  size INTEGER NOT NULL,
  created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS user_sessions (
  token TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  picture TEXT NOT NULL,
  created_at DATETIME NOT NULL
);
`
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return nil
}

// CreateSession inserts an empty session.
func (s *Store) CreateSession(ctx context.Context, id, threadID string, now time.Time) (core.Session, error) {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (id, thread_id, created_at, updated_at)
VALUES (?, ?, ?, ?)`, id, threadID, now, now)
	if err != nil {
		return core.Session{}, fmt.Errorf("create session: %w", err)
	}
	return core.Session{ID: id, ThreadID: threadID, CreatedAt: now, UpdatedAt: &now, Messages: []core.Message{}}, nil
}

// GetSession returns a session with its messages.
func (s *Store) GetSession(ctx context.Context, id string) (core.Session, error) {
	var sess core.Session
	var updated time.Time
	err := s.db.QueryRowContext(ctx, `
SELECT id, thread_id, created_at, updated_at
FROM sessions
WHERE id = ?`, id).Scan(&sess.ID, &sess.ThreadID, &sess.CreatedAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, ErrNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", err)
	}
	sess.UpdatedAt = &updated

	msgs, err := s.ListMessages(ctx, id)
	if err != nil {
		return core.Session{}, err
	}
	sess.Messages = msgs
	return sess, nil
}

// ListSessions returns every session, most recently updated first.
func (s *Store) ListSessions(ctx context.Context) ([]core.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, thread_id, created_at, updated_at
FROM sessions
ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var sessions []core.Session
	for rows.Next() {
		var sess core.Session
		var updated time.Time
		if err := rows.Scan(&sess.ID, &sess.ThreadID, &sess.CreatedAt, &updated); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.UpdatedAt = &updated
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	rows.Close()

	for i := range sessions {
		msgs, err := s.ListMessages(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
		sessions[i].Messages = msgs
	}
	return sessions, nil
}

// DeleteSession removes a session and its messages.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddMessage appends a message to a session and bumps its updated_at.
func (s *Store) AddMessage(ctx context.Context, sessionID string, msg core.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
UPDATE sessions
SET updated_at = ?
WHERE id = ?`, msg.CreatedAt, sessionID)
	if err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO messages (session_id, role, content, created_at)
VALUES (?, ?, ?, ?)`, sessionID, string(msg.Role), msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	return tx.Commit()
}

// ListMessages returns the messages of a session in insertion order.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]core.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, role, content, created_at
FROM messages
WHERE session_id = ?
ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := []core.Message{}
	for rows.Next() {
		var msg core.Message
		var id int64
		var role string
		if err := rows.Scan(&id, &role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.ID = fmt.Sprintf("%d", id)
		msg.Role = core.Role(role)
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// SaveFile records an upload.
func (s *Store) SaveFile(ctx context.Context, f File) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO files (id, filename, content_type, size, created_at)
VALUES (?, ?, ?, ?, ?)`, f.ID, f.Filename, f.ContentType, f.Size, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("save file: %w", err)
	}
	return nil
}

// GetFile returns the metadata of an upload.
func (s *Store) GetFile(ctx context.Context, id string) (File, error) {
	var f File
	err := s.db.QueryRowContext(ctx, `
SELECT id, filename, content_type, size, created_at
FROM files
WHERE id = ?`, id).Scan(&f.ID, &f.Filename, &f.ContentType, &f.Size, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return File{}, ErrNotFound
	}
	if err != nil {
		return File{}, fmt.Errorf("get file: %w", err)
	}
	return f, nil
}

// CreateUserSession stores a signed-in user under token.
func (s *Store) CreateUserSession(ctx context.Context, token string, u core.User, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO user_sessions (token, user_id, name, email, picture, created_at)
VALUES (?, ?, ?, ?, ?, ?)`, token, u.ID, u.Name, u.Email, u.Image, now)
	if err != nil {
		return fmt.Errorf("create user session: %w", err)
	}
	return nil
}

// UserBySession resolves a session token.
func (s *Store) UserBySession(ctx context.Context, token string) (core.User, error) {
	var u core.User
	err := s.db.QueryRowContext(ctx, `
SELECT user_id, name, email, picture
FROM user_sessions
WHERE token = ?`, token).Scan(&u.ID, &u.Name, &u.Email, &u.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user session: %w", err)
	}
	return u, nil
}

// DeleteUserSession signs the token out.
func (s *Store) DeleteUserSession(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete user session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}
