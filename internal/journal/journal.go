// Package journal provides a WAL-mode SQLite-backed append log of a debug
// session's lifecycle: every breakpoint hit, step, and thread event the
// debugger core records through debugger.JournalSink.
//
// # WAL mode
//
// The database is opened with PRAGMA journal_mode = WAL so that a process
// inspecting the journal live (sqlite3 session.journal.db, or a second
// session reusing internal/httpapi's /healthz check) can read without
// blocking the debugger's own writes.
//
// # Best-effort recording
//
// Record implements debugger.JournalSink and returns nothing: the debugger
// core must never fail or stall an operation because the journal could not
// be written. A write error is logged once via the configured *slog.Logger
// and otherwise swallowed.
package journal

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register "sqlite" driver with database/sql
)

// SQLiteJournal is a WAL-mode SQLite-backed append-only session journal. It
// is safe for concurrent use.
type SQLiteJournal struct {
	db        *sql.DB
	logger    *slog.Logger
	sessionID uuid.UUID
	entries   atomic.Int64
}

// Open opens (or creates) the SQLite database at path, enables WAL journal
// mode, and applies the schema. If path is ":memory:", an in-memory database
// is used; this is suitable for tests but loses all data when closed. Each
// Open call mints a fresh session id that every row written through this
// handle is stamped with, so a journal file reused across runs (or inspected
// externally) can still tell one session's entries from another's.
func Open(path string, logger *slog.Logger) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %q: %w", path, err)
	}

	// SQLite allows only one writer at a time; a single pooled connection
	// serialises every Record call through it rather than racing on locks.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: set WAL mode: %w", err)
	}

	// NORMAL synchronous: durable across application crashes; not OS crashes.
	if _, err := db.Exec(`PRAGMA synchronous = NORMAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: set synchronous = NORMAL: %w", err)
	}

	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	j := &SQLiteJournal{db: db, logger: logger, sessionID: uuid.New()}

	var count int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM session_journal`).Scan(&count); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: count rows: %w", err)
	}
	j.entries.Store(count)

	return j, nil
}

// ddl is the schema DDL, kept here to keep the package self-contained.
const ddl = `
CREATE TABLE IF NOT EXISTS session_journal (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT    NOT NULL,
    kind       TEXT    NOT NULL,
    tid        INTEGER NOT NULL,
    addr       INTEGER NOT NULL,
    detail     TEXT    NOT NULL DEFAULT '',
    recorded   TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_session_journal_kind
    ON session_journal (kind, id);
CREATE INDEX IF NOT EXISTS idx_session_journal_session
    ON session_journal (session_id, id);
`

// Record appends one lifecycle event to the journal, stamped with this
// handle's session id. It implements debugger.JournalSink: errors are
// logged, never returned or propagated.
func (j *SQLiteJournal) Record(kind string, tid int32, addr uint64, detail string) {
	_, err := j.db.Exec(
		`INSERT INTO session_journal (session_id, kind, tid, addr, detail) VALUES (?, ?, ?, ?, ?)`,
		j.sessionID.String(), kind, tid, addr, detail,
	)
	if err != nil {
		j.logger.Warn("journal: record failed", slog.String("kind", kind), slog.Any("error", err))
		return
	}
	j.entries.Add(1)
}

// SessionID returns the session id this handle stamps every recorded entry
// with.
func (j *SQLiteJournal) SessionID() uuid.UUID {
	return j.sessionID
}

// Entry is one recorded lifecycle event, as returned by Tail.
type Entry struct {
	ID        int64
	SessionID string
	Kind      string
	TID       int32
	Addr      uint64
	Detail    string
	Recorded  time.Time
}

// Tail returns the most recent n journal entries across every session ever
// recorded to this database, newest first. It powers internal/httpapi's
// journal introspection endpoint.
func (j *SQLiteJournal) Tail(n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := j.db.Query(
		`SELECT id, session_id, kind, tid, addr, detail, recorded
		 FROM   session_journal
		 ORDER  BY id DESC
		 LIMIT  ?`, n)
	if err != nil {
		return nil, fmt.Errorf("journal: tail query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			recorded string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.TID, &e.Addr, &e.Detail, &recorded); err != nil {
			return nil, fmt.Errorf("journal: tail scan: %w", err)
		}
		e.Recorded, err = time.Parse(time.RFC3339Nano, recorded)
		if err != nil {
			e.Recorded, _ = time.Parse(time.RFC3339, recorded)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: tail rows: %w", err)
	}
	return out, nil
}

// Len returns the number of entries recorded so far. It reads from an
// atomic counter updated by Record, so it never blocks on the database.
func (j *SQLiteJournal) Len() int {
	return int(j.entries.Load())
}

// Close closes the underlying database connection. Subsequent calls to any
// method are undefined; callers must not use the journal after Close
// returns.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
