package journal_test

import (
	"path/filepath"
	"testing"

	"github.com/greyforge/core/internal/debugger"
	"github.com/greyforge/core/internal/journal"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// openMemJournal opens an in-memory SQLiteJournal and registers t.Cleanup to
// close it, ensuring the database is closed even when tests fail.
func openMemJournal(t *testing.T) *journal.SQLiteJournal {
	t.Helper()
	j, err := journal.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("journal.Open(:memory:): %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestOpen_InMemory_EmptyLen(t *testing.T) {
	j := openMemJournal(t)
	if n := j.Len(); n != 0 {
		t.Errorf("Len = %d after open, want 0", n)
	}
}

func TestOpen_FileDB_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.db")

	j, err := journal.Open(path, nil)
	if err != nil {
		t.Fatalf("journal.Open(%q): %v", path, err)
	}
	_ = j.Close()
}

// ---------------------------------------------------------------------------
// Record
// ---------------------------------------------------------------------------

func TestRecord_IncreasesLen(t *testing.T) {
	j := openMemJournal(t)
	j.Record("breakpoint_hit", 100, 0x401000, "bp=1")

	if n := j.Len(); n != 1 {
		t.Errorf("Len = %d after one Record, want 1", n)
	}
}

func TestRecord_MultipleEntries_LenAccumulates(t *testing.T) {
	j := openMemJournal(t)
	for i := 0; i < 5; i++ {
		j.Record("step", int32(100+i), uint64(0x400000+i), "")
	}

	if n := j.Len(); n != 5 {
		t.Errorf("Len = %d after 5 records, want 5", n)
	}
}

// ---------------------------------------------------------------------------
// Tail
// ---------------------------------------------------------------------------

func TestTail_ReturnsNewestFirst(t *testing.T) {
	j := openMemJournal(t)
	j.Record("launch", 100, 0, "")
	j.Record("breakpoint_hit", 100, 0x401000, "bp=1")
	j.Record("exit", 100, 0, "status=0")

	entries, err := j.Tail(10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Tail returned %d entries, want 3", len(entries))
	}
	if entries[0].Kind != "exit" || entries[2].Kind != "launch" {
		t.Errorf("Tail order = %v, want exit,breakpoint_hit,launch", entries)
	}
}

func TestTail_RespectsLimit(t *testing.T) {
	j := openMemJournal(t)
	for i := 0; i < 10; i++ {
		j.Record("step", 100, uint64(i), "")
	}

	entries, err := j.Tail(4)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("Tail returned %d entries, want 4", len(entries))
	}
}

func TestTail_ZeroLimit_ReturnsNil(t *testing.T) {
	j := openMemJournal(t)
	j.Record("step", 100, 0, "")

	entries, err := j.Tail(0)
	if err != nil {
		t.Fatalf("Tail(0): %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Tail(0) returned %d entries, want 0", len(entries))
	}
}

func TestTail_PreservesAddrAndDetail(t *testing.T) {
	j := openMemJournal(t)
	j.Record("breakpoint_hit", 42, 0x7fff0000, `{"id":3}`)

	entries, err := j.Tail(1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Tail: err=%v, got %d entries", err, len(entries))
	}
	e := entries[0]
	if e.TID != 42 || e.Addr != 0x7fff0000 || e.Detail != `{"id":3}` {
		t.Errorf("entry = %+v", e)
	}
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

func TestReopen_EntriesSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "session.db")

	func() {
		j, err := journal.Open(dbPath, nil)
		if err != nil {
			t.Fatalf("open 1: %v", err)
		}
		defer j.Close()
		j.Record("launch", 100, 0, "")
		j.Record("exit", 100, 0, "status=0")
	}()

	j2, err := journal.Open(dbPath, nil)
	if err != nil {
		t.Fatalf("open 2: %v", err)
	}
	defer j2.Close()

	if n := j2.Len(); n != 2 {
		t.Errorf("after restart Len = %d, want 2", n)
	}
}

// ---------------------------------------------------------------------------
// Session stamping
// ---------------------------------------------------------------------------

func TestSessionID_StampsRecordedEntries(t *testing.T) {
	j := openMemJournal(t)
	j.Record("launch", 100, 0, "")

	entries, err := j.Tail(1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Tail: err=%v, got %d entries", err, len(entries))
	}
	if entries[0].SessionID != j.SessionID().String() {
		t.Errorf("entry SessionID = %q, want %q", entries[0].SessionID, j.SessionID())
	}
}

func TestSessionID_DiffersAcrossOpens(t *testing.T) {
	a := openMemJournal(t)
	b := openMemJournal(t)
	if a.SessionID() == b.SessionID() {
		t.Errorf("two Open calls minted the same session id: %s", a.SessionID())
	}
}

// ---------------------------------------------------------------------------
// Interface compliance
// ---------------------------------------------------------------------------

// TestSQLiteJournal_ImplementsJournalSink verifies at compile time that
// *SQLiteJournal satisfies debugger.JournalSink.
func TestSQLiteJournal_ImplementsJournalSink(t *testing.T) {
	var _ debugger.JournalSink = (*journal.SQLiteJournal)(nil)
}
