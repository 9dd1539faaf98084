package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS mutations (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		conversationId TEXT NOT NULL DEFAULT '',
		utteranceId TEXT NOT NULL DEFAULT '',
		speakerId TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		createdAt REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS mutations_createdAt ON mutations(createdAt);

	CREATE TABLE IF NOT EXISTS orphan_speakers (
		id TEXT PRIMARY KEY,
		speakerId TEXT NOT NULL,
		name TEXT NOT NULL,
		conversationId TEXT NOT NULL DEFAULT '',
		utteranceId TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		createdAt REAL NOT NULL
	);
`

// Store writes the journal.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default journal path.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "speakerid", "journal.sqlite")
}

// Open opens or creates the journal at path with WAL. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends a mutation. ID and CreatedAt are filled in when empty.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mutations (id, kind, conversationId, utteranceId, speakerId, detail, error, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Kind, e.ConversationID, e.UtteranceID, e.SpeakerID, e.Detail, e.Error, unixFromTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert mutation: %w", err)
	}
	return nil
}

// RecordOrphan remembers a speaker that was created but never assigned.
func (s *Store) RecordOrphan(ctx context.Context, o Orphan) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orphan_speakers (id, speakerId, name, conversationId, utteranceId, reason, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.SpeakerID, o.Name, o.ConversationID, o.UtteranceID, o.Reason, unixFromTime(o.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert orphan speaker: %w", err)
	}
	return nil
}

// Recent returns up to limit mutations, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, conversationId, utteranceId, speakerId, detail, error, createdAt
		FROM mutations
		ORDER BY createdAt DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt float64
		if err := rows.Scan(&e.ID, &e.Kind, &e.ConversationID, &e.UtteranceID,
			&e.SpeakerID, &e.Detail, &e.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		e.CreatedAt = timeFromUnix(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Orphans returns every recorded orphan speaker, newest first.
func (s *Store) Orphans(ctx context.Context) ([]Orphan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, speakerId, name, conversationId, utteranceId, reason, createdAt
		FROM orphan_speakers
		ORDER BY createdAt DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query orphan speakers: %w", err)
	}
	defer rows.Close()

	var orphans []Orphan
	for rows.Next() {
		var o Orphan
		var createdAt float64
		if err := rows.Scan(&o.ID, &o.SpeakerID, &o.Name, &o.ConversationID,
			&o.UtteranceID, &o.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan orphan speaker: %w", err)
		}
		o.CreatedAt = timeFromUnix(createdAt)
		orphans = append(orphans, o)
	}
	return orphans, rows.Err()
}

// ForgetOrphan drops the orphan row for a speaker once it has been
// deleted or put to use.
func (s *Store) ForgetOrphan(ctx context.Context, speakerID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM orphan_speakers WHERE speakerId = ?`, speakerID); err != nil {
		return fmt.Errorf("delete orphan speaker: %w", err)
	}
	return nil
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
