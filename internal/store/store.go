// Package store keeps the dialog and message cache the Bot API cannot serve
// from history: every update the gateway sees is recorded here, and the
// listing tools read from it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tgbridge/internal/domain"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed cache of observed dialogs and messages.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS dialogs (
		id         INTEGER PRIMARY KEY,
		name       TEXT,
		kind       TEXT,
		pinned     INTEGER DEFAULT 0,
		archived   INTEGER DEFAULT 0,
		first_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_seen  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		dialog_id  INTEGER NOT NULL REFERENCES dialogs(id) ON DELETE CASCADE,
		sender_id  INTEGER,
		text       TEXT,
		media_kind TEXT,
		media_ref  TEXT,
		mime_type  TEXT,
		name       TEXT,
		size_bytes INTEGER DEFAULT -1,
		duration   INTEGER DEFAULT -1,
		width      INTEGER DEFAULT -1,
		height     INTEGER DEFAULT -1,
		title      TEXT,
		performer  TEXT,
		thumb_ref  TEXT,
		read       INTEGER DEFAULT 0,
		sent_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_messages_dialog ON messages(dialog_id, sent_at);
	CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(dialog_id, read);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Dialog is one conversation as tracked by the cache.
type Dialog struct {
	ID       int64
	Name     string
	Kind     string // private | group | supergroup | channel
	Pinned   bool
	Archived bool
	Unread   int
	LastSeen time.Time
}

// Message is one recorded inbound message, text and/or media.
type Message struct {
	ID       int64
	DialogID int64
	SenderID int64
	Text     string
	Media    *domain.Media // nil for text-only messages
	Read     bool
	SentAt   time.Time
}

// RecordDialog upserts the dialog row, refreshing name, kind and last_seen.
func (s *Store) RecordDialog(ctx context.Context, d Dialog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dialogs (id, name, kind, last_seen) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, kind=excluded.kind, last_seen=excluded.last_seen`,
		d.ID, d.Name, d.Kind, time.Now(),
	)
	return err
}

// RecordMessage appends a message to its dialog.
func (s *Store) RecordMessage(ctx context.Context, m Message) error {
	if m.SentAt.IsZero() {
		m.SentAt = time.Now()
	}
	var (
		kind, ref, mime, name, title, performer, thumb string
		size                                           int64 = domain.SizeUnknown
		duration, width, height                        int   = domain.SizeUnknown, domain.SizeUnknown, domain.SizeUnknown
	)
	if m.Media != nil {
		kind = string(m.Media.Kind)
		ref = m.Media.Ref
		mime = m.Media.MimeType
		name = m.Media.Name
		size = m.Media.SizeBytes
		duration = m.Media.Duration
		width = m.Media.Width
		height = m.Media.Height
		title = m.Media.Title
		performer = m.Media.Performer
		thumb = m.Media.ThumbRef
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (dialog_id, sender_id, text, media_kind, media_ref, mime_type, name,
		                       size_bytes, duration, width, height, title, performer, thumb_ref, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.DialogID, m.SenderID, m.Text, kind, ref, mime, name,
		size, duration, width, height, title, performer, thumb, m.SentAt,
	)
	return err
}

// DialogFilter narrows ListDialogs output.
type DialogFilter struct {
	UnreadOnly   bool
	Archived     bool
	IgnorePinned bool
}

// ListDialogs returns tracked dialogs with unread counts, most recent first.
func (s *Store) ListDialogs(ctx context.Context, f DialogFilter) ([]Dialog, error) {
	var conds []string
	args := []any{}
	conds = append(conds, "d.archived = ?")
	if f.Archived {
		args = append(args, 1)
	} else {
		args = append(args, 0)
	}
	if f.IgnorePinned {
		conds = append(conds, "d.pinned = 0")
	}

	query := fmt.Sprintf(
		`SELECT d.id, d.name, d.kind, d.pinned, d.archived, d.last_seen,
		        COALESCE(SUM(CASE WHEN m.read = 0 AND m.id IS NOT NULL THEN 1 ELSE 0 END), 0) AS unread
		 FROM dialogs d LEFT JOIN messages m ON m.dialog_id = d.id
		 WHERE %s
		 GROUP BY d.id
		 ORDER BY d.last_seen DESC`, strings.Join(conds, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dialogs []Dialog
	for rows.Next() {
		var d Dialog
		var pinned, archived int
		if err := rows.Scan(&d.ID, &d.Name, &d.Kind, &pinned, &archived, &d.LastSeen, &d.Unread); err != nil {
			return nil, err
		}
		d.Pinned = pinned != 0
		d.Archived = archived != 0
		if f.UnreadOnly && d.Unread == 0 {
			continue
		}
		dialogs = append(dialogs, d)
	}
	return dialogs, rows.Err()
}

// DialogExists reports whether the dialog has ever been seen.
func (s *Store) DialogExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM dialogs WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListMessages returns the last messages of a dialog, newest first, and marks
// the returned rows read. With unreadOnly set, already-read messages are
// skipped, so a message is listed at most once in that mode.
func (s *Store) ListMessages(ctx context.Context, dialogID int64, limit int, unreadOnly bool) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, dialog_id, sender_id, text, media_kind, media_ref, mime_type, name,
	                 size_bytes, duration, width, height, title, performer, thumb_ref, read, sent_at
	          FROM messages WHERE dialog_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY sent_at DESC, id DESC LIMIT ?`

	msgs, err := s.queryMessages(ctx, query, dialogID, limit)
	if err != nil {
		return nil, err
	}
	if err := s.markRead(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListMediaMessages returns the last messages of a dialog that carry media,
// newest first.
func (s *Store) ListMediaMessages(ctx context.Context, dialogID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, dialog_id, sender_id, text, media_kind, media_ref, mime_type, name,
	                 size_bytes, duration, width, height, title, performer, thumb_ref, read, sent_at
	          FROM messages WHERE dialog_id = ? AND media_kind != ''
	          ORDER BY sent_at DESC, id DESC LIMIT ?`
	return s.queryMessages(ctx, query, dialogID, limit)
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var (
			m                                              Message
			kind, ref, mime, name, title, performer, thumb sql.NullString
			size                                           sql.NullInt64
			duration, width, height                        sql.NullInt64
			read                                           int
		)
		if err := rows.Scan(&m.ID, &m.DialogID, &m.SenderID, &m.Text, &kind, &ref, &mime, &name,
			&size, &duration, &width, &height, &title, &performer, &thumb, &read, &m.SentAt); err != nil {
			return nil, err
		}
		m.Read = read != 0
		if kind.String != "" {
			m.Media = &domain.Media{
				Kind:      domain.MediaKind(kind.String),
				Ref:       ref.String,
				MimeType:  mime.String,
				Name:      name.String,
				SizeBytes: size.Int64,
				Duration:  int(duration.Int64),
				Width:     int(width.Int64),
				Height:    int(height.Int64),
				Title:     title.String,
				Performer: performer.String,
				ThumbRef:  thumb.String,
			}
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *Store) markRead(ctx context.Context, msgs []Message) error {
	for _, m := range msgs {
		if m.Read {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE messages SET read = 1 WHERE id = ?`, m.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
