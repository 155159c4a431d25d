// Package sqlite implements the durable history store on SQLite using
// the pure Go modernc.org driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"

	"github.com/aanya-ai/aanya/core"
)

// Store implements memory.HistoryStore on a single SQLite file.
type Store struct {
	db *sql.DB
}

// New opens or creates the database and applies the schema. Migration
// is idempotent; reopening an existing file is safe.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, goerr.Wrap(err, "failed to create db dir", goerr.V("dir", dir))
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open db", goerr.V("path", dbPath))
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to migrate schema")
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		timestamp  TEXT NOT NULL,
		session_id TEXT,
		mood       TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);

	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reflections (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		day        TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reflections_day ON reflections(day);

	CREATE TABLE IF NOT EXISTS profile (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		data       TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AppendMessage inserts one message row. The row id becomes msg.ID.
func (s *Store) AppendMessage(ctx context.Context, msg *core.Message) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (role, content, timestamp, session_id, mood) VALUES (?, ?, ?, ?, ?)`,
		string(msg.Role), msg.Content, msg.Timestamp.Format(time.RFC3339Nano), msg.SessionID, msg.Mood,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to insert message")
	}
	if id, err := res.LastInsertId(); err == nil {
		msg.ID = id
	}
	return nil
}

// RecentMessages returns the last limit messages oldest-first.
func (s *Store) RecentMessages(ctx context.Context, limit int) ([]core.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, timestamp, COALESCE(session_id, ''), COALESCE(mood, '')
		 FROM messages ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query recent messages")
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	// Query order is newest-first; callers expect chronological.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// SessionMessages returns all messages of a session in insertion order.
func (s *Store) SessionMessages(ctx context.Context, sessionID string) ([]core.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, timestamp, COALESCE(session_id, ''), COALESCE(mood, '')
		 FROM messages WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query session messages", goerr.V("session", sessionID))
	}
	defer rows.Close()
	return scanMessages(rows)
}

// MessageCount returns the total number of messages.
func (s *Store) MessageCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, goerr.Wrap(err, "failed to count messages")
	}
	return n, nil
}

// EnsureSession records a session row if it does not already exist.
func (s *Store) EnsureSession(ctx context.Context, sess core.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, started_at) VALUES (?, ?)`,
		sess.ID, sess.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return goerr.Wrap(err, "failed to insert session", goerr.V("id", sess.ID))
	}
	return nil
}

// AppendReflection inserts one diary entry, grouped by calendar day.
func (s *Store) AppendReflection(ctx context.Context, r *core.Reflection) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reflections (day, content, created_at) VALUES (?, ?, ?)`,
		r.Timestamp.Format("2006-01-02"), r.Content, r.Timestamp.Format(time.RFC3339Nano))
	if err != nil {
		return goerr.Wrap(err, "failed to insert reflection")
	}
	if id, err := res.LastInsertId(); err == nil {
		r.ID = id
	}
	return nil
}

// RecentReflections returns the limit most recent entries, newest first.
func (s *Store) RecentReflections(ctx context.Context, limit int) ([]core.Reflection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, created_at FROM reflections ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query reflections")
	}
	defer rows.Close()

	var rs []core.Reflection
	for rows.Next() {
		var r core.Reflection
		var ts string
		if err := rows.Scan(&r.ID, &r.Content, &ts); err != nil {
			return nil, goerr.Wrap(err, "failed to scan reflection")
		}
		r.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		rs = append(rs, r)
	}
	return rs, rows.Err()
}

// ReflectionCount returns the total number of reflections.
func (s *Store) ReflectionCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reflections`).Scan(&n); err != nil {
		return 0, goerr.Wrap(err, "failed to count reflections")
	}
	return n, nil
}

// LoadProfile reads the single profile row, or (nil, nil) if absent.
func (s *Store) LoadProfile(ctx context.Context) (*core.UserProfile, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM profile WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load profile")
	}

	var p core.UserProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, goerr.Wrap(err, "failed to decode profile")
	}
	return &p, nil
}

// SaveProfile upserts the single profile row.
func (s *Store) SaveProfile(ctx context.Context, p *core.UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return goerr.Wrap(err, "failed to encode profile")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profile (id, data, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data), time.Now().Format(time.RFC3339Nano))
	if err != nil {
		return goerr.Wrap(err, "failed to save profile")
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanMessages(rows *sql.Rows) ([]core.Message, error) {
	var msgs []core.Message
	for rows.Next() {
		var m core.Message
		var role, ts string
		if err := rows.Scan(&m.ID, &role, &m.Content, &ts, &m.SessionID, &m.Mood); err != nil {
			return nil, goerr.Wrap(err, "failed to scan message")
		}
		m.Role = core.Role(role)
		m.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
