// Package history persists chat transcripts in SQLite. One row per message,
// sessions are implicit groupings by session ID.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/examaid/examaid/engine/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// previewLen caps session previews for listing.
const previewLen = 100

// timeLayout is RFC 3339 with a fixed nine-digit fraction. RFC3339Nano drops
// trailing zeros, which breaks lexicographic ordering of created_at; a
// fixed-width fraction keeps string order equal to time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps a SQLite database holding chat messages.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the chat database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("history: creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "history.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: pinging database: %w", err)
	}

	// Single connection avoids "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: setting journal mode: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies embedded SQL migrations that haven't run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// SaveMessage appends one message to a session and returns the stored record.
func (s *Store) SaveMessage(ctx context.Context, sessionID, role, content string) (domain.Message, error) {
	if err := domain.ValidateRole(role); err != nil {
		return domain.Message{}, err
	}
	if strings.TrimSpace(sessionID) == "" {
		return domain.Message{}, fmt.Errorf("history: empty session id: %w", domain.ErrPersistenceFailure)
	}

	msg := domain.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, msg.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return domain.Message{}, fmt.Errorf("history: insert message: %w: %w", domain.ErrPersistenceFailure, err)
	}
	return msg, nil
}

// History returns a session's messages in chronological order. An unknown
// session yields an empty slice.
func (s *Store) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, created_at
		FROM messages WHERE session_id = ?
		ORDER BY created_at ASC, rowid ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("history: query session %s: %w: %w", sessionID, domain.ErrPersistenceFailure, err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("history: scan message: %w: %w", domain.ErrPersistenceFailure, err)
		}
		if m.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("history: parsing created_at: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate messages: %w: %w", domain.ErrPersistenceFailure, err)
	}
	return messages, nil
}

// ClearSession deletes a session's messages and reports how many were removed.
// Clearing an unknown session is not an error.
func (s *Store) ClearSession(ctx context.Context, sessionID string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID)
	if err != nil {
		return 0, fmt.Errorf("history: clear session %s: %w: %w", sessionID, domain.ErrPersistenceFailure, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: clear session %s: %w: %w", sessionID, domain.ErrPersistenceFailure, err)
	}
	return int(n), nil
}

// Sessions lists all sessions, most recently active first. The preview is the
// session's first message, truncated.
func (s *Store) Sessions(ctx context.Context) ([]domain.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.session_id,
		       (SELECT content FROM messages
		        WHERE session_id = m.session_id
		        ORDER BY created_at ASC, rowid ASC LIMIT 1),
		       MIN(m.created_at), MAX(m.created_at), COUNT(*)
		FROM messages m
		GROUP BY m.session_id
		ORDER BY MAX(m.created_at) DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("history: list sessions: %w: %w", domain.ErrPersistenceFailure, err)
	}
	defer rows.Close()

	summaries := []domain.SessionSummary{}
	for rows.Next() {
		var sum domain.SessionSummary
		var preview, createdAt, lastAt string
		if err := rows.Scan(&sum.SessionID, &preview, &createdAt, &lastAt, &sum.MessageCount); err != nil {
			return nil, fmt.Errorf("history: scan session: %w: %w", domain.ErrPersistenceFailure, err)
		}
		sum.Preview = truncatePreview(preview)
		if sum.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("history: parsing created_at: %w", err)
		}
		if sum.LastMessageAt, err = time.Parse(timeLayout, lastAt); err != nil {
			return nil, fmt.Errorf("history: parsing last_message_at: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate sessions: %w: %w", domain.ErrPersistenceFailure, err)
	}
	return summaries, nil
}

func truncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLen {
		return content
	}
	return string(runes[:previewLen]) + "..."
}
