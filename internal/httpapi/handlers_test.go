package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/greyforge/core/internal/debugger"
	"github.com/greyforge/core/internal/journal"
	"github.com/greyforge/core/internal/memview"
	"github.com/greyforge/core/internal/sleigh"
)

// mockDebugger is a test double for the debugger.Debugger interface.
type mockDebugger struct {
	threads     []debugger.ThreadInfo
	breakpoints []debugger.BreakpointEntry
	insn        *sleigh.DisasmDispInstruction
	insnErr     error
}

func (m *mockDebugger) Launch(ctx context.Context, path string, args []string) error { return nil }
func (m *mockDebugger) Close() error                                                 { return nil }
func (m *mockDebugger) Flags() debugger.DebuggerFlags                                { return 0 }
func (m *mockDebugger) SetFlags(debugger.DebuggerFlags)                              {}
func (m *mockDebugger) WaitNextEvent(noBlock bool) (debugger.DebuggerEvent, error) {
	return debugger.DebuggerEvent{}, nil
}
func (m *mockDebugger) AddEventFD(fd int) (uint32, error) { return 0, nil }
func (m *mockDebugger) RemoveEventFD(id uint32) error     { return nil }
func (m *mockDebugger) ListThreads() []debugger.ThreadInfo { return m.threads }
func (m *mockDebugger) CurrentThread() (debugger.ThreadInfo, bool) {
	if len(m.threads) == 0 {
		return debugger.ThreadInfo{}, false
	}
	return m.threads[0], true
}
func (m *mockDebugger) Step(ti debugger.ThreadIndex) error    { return nil }
func (m *mockDebugger) ContOne(ti debugger.ThreadIndex) error { return nil }
func (m *mockDebugger) ContAll() error                        { return nil }
func (m *mockDebugger) ReadRegisterByName(ti debugger.ThreadIndex, name string) ([]byte, error) {
	return nil, nil
}
func (m *mockDebugger) WriteRegisterByName(ti debugger.ThreadIndex, name string, value []byte) error {
	return nil
}
func (m *mockDebugger) RegisterInfos() []debugger.RegisterInfo { return nil }
func (m *mockDebugger) DisassembleOne(ti debugger.ThreadIndex) (*sleigh.DisasmDispInstruction, error) {
	return m.insn, m.insnErr
}
func (m *mockDebugger) ReadBytes(addr uint64, dst []byte) error  { return nil }
func (m *mockDebugger) WriteBytes(addr uint64, src []byte) error { return nil }
func (m *mockDebugger) AddBreakpoint(addr uint64) (uint32, error) { return 0, nil }
func (m *mockDebugger) RemoveBreakpoint(id uint32) error          { return nil }
func (m *mockDebugger) ListBreakpoints() []debugger.BreakpointEntry { return m.breakpoints }
func (m *mockDebugger) MemoryView() memview.View                   { return nil }

var _ debugger.Debugger = (*mockDebugger)(nil)

// newTestServer creates a Server backed by the mock debugger and returns its
// HTTP handler. A nil journal is fine: it exercises the "no journal
// configured" branch of /journal.
func newTestServer(dbg *mockDebugger) http.Handler {
	srv := NewServer(dbg, nil)
	return NewRouter(srv)
}

// ---- /healthz ---------------------------------------------------------------

func TestHandleHealthz_Returns200(t *testing.T) {
	h := newTestServer(&mockDebugger{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", body["status"])
	}
}

// ---- GET /threads ------------------------------------------------------------

func TestHandleThreads_Returns200WithArray(t *testing.T) {
	dbg := &mockDebugger{threads: []debugger.ThreadInfo{
		{TID: 100, Pause: debugger.Running},
		{TID: 101, Pause: debugger.SwBreakpointHit},
	}}
	h := newTestServer(dbg)
	req := httptest.NewRequest(http.MethodGet, "/threads", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var threads []threadDTO
	if err := json.NewDecoder(rec.Body).Decode(&threads); err != nil {
		t.Fatalf("cannot decode response: %v", err)
	}
	if len(threads) != 2 {
		t.Fatalf("expected 2 threads, got %d", len(threads))
	}
	if threads[1].Pause != debugger.SwBreakpointHit.String() {
		t.Errorf("threads[1].Pause = %q, want %q", threads[1].Pause, debugger.SwBreakpointHit.String())
	}
}

func TestHandleThreads_EmptyResult_ReturnsEmptyArray(t *testing.T) {
	h := newTestServer(&mockDebugger{})
	req := httptest.NewRequest(http.MethodGet, "/threads", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var threads []threadDTO
	if err := json.NewDecoder(rec.Body).Decode(&threads); err != nil {
		t.Fatalf("cannot decode response: %v", err)
	}
	if len(threads) != 0 {
		t.Errorf("expected empty array, got %v", threads)
	}
}

// ---- GET /breakpoints ---------------------------------------------------------

func TestHandleBreakpoints_Returns200WithArray(t *testing.T) {
	dbg := &mockDebugger{breakpoints: []debugger.BreakpointEntry{
		{ID: 1, Addr: 0x401000, OrigByte: 0x55, TrapByte: 0xcc},
	}}
	h := newTestServer(dbg)
	req := httptest.NewRequest(http.MethodGet, "/breakpoints", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var bps []debugger.BreakpointEntry
	if err := json.NewDecoder(rec.Body).Decode(&bps); err != nil {
		t.Fatalf("cannot decode response: %v", err)
	}
	if len(bps) != 1 || bps[0].Addr != 0x401000 {
		t.Errorf("breakpoints = %+v", bps)
	}
}

// ---- GET /disasm ---------------------------------------------------------------

func TestHandleDisasm_DefaultsToCurrentThread(t *testing.T) {
	dbg := &mockDebugger{insn: &sleigh.DisasmDispInstruction{Text: "MOV RAX, RBX", Length: 3}}
	h := newTestServer(dbg)
	req := httptest.NewRequest(http.MethodGet, "/disasm", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", rec.Code, rec.Body)
	}
	var insn sleigh.DisasmDispInstruction
	if err := json.NewDecoder(rec.Body).Decode(&insn); err != nil {
		t.Fatalf("cannot decode response: %v", err)
	}
	if insn.Text != "MOV RAX, RBX" {
		t.Errorf("Text = %q", insn.Text)
	}
}

func TestHandleDisasm_InvalidTid_Returns400(t *testing.T) {
	h := newTestServer(&mockDebugger{})
	req := httptest.NewRequest(http.MethodGet, "/disasm?tid=notanumber", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleDisasm_DebuggerError_Returns500(t *testing.T) {
	dbg := &mockDebugger{insnErr: debugger.NewError(debugger.NotStopped, "target is running")}
	h := newTestServer(dbg)
	req := httptest.NewRequest(http.MethodGet, "/disasm?tid=100", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

// ---- GET /journal ---------------------------------------------------------------

func TestHandleJournal_NoJournalConfigured_Returns501(t *testing.T) {
	h := newTestServer(&mockDebugger{})
	req := httptest.NewRequest(http.MethodGet, "/journal", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rec.Code)
	}
}

func TestHandleJournal_InvalidLimit_Returns400(t *testing.T) {
	j, err := journal.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	defer j.Close()

	srv := NewServer(&mockDebugger{}, j)
	h := NewRouter(srv)
	req := httptest.NewRequest(http.MethodGet, "/journal?limit=abc", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleJournal_ReturnsRecordedEntries(t *testing.T) {
	j, err := journal.Open(":memory:", nil)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	defer j.Close()
	j.Record("breakpoint_hit", 100, 0x401000, "bp=1")

	srv := NewServer(&mockDebugger{}, j)
	h := NewRouter(srv)
	req := httptest.NewRequest(http.MethodGet, "/journal", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", rec.Code, rec.Body)
	}
	var entries []journal.Entry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("cannot decode response: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != "breakpoint_hit" {
		t.Errorf("entries = %+v", entries)
	}
}
