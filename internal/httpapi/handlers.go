package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/greyforge/core/internal/debugger"
	"github.com/greyforge/core/internal/journal"
)

// writeError writes a JSON error response with the given HTTP status code.
// The response body is {"error": "<message>"}.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

// Server holds the dependencies needed by the introspection handlers. The
// session journal is optional: a session started without a journal
// path leaves it nil and /journal reports so.
type Server struct {
	dbg     debugger.Debugger
	journal *journal.SQLiteJournal
}

// NewServer creates a new Server bound to a running debugger session. j may
// be nil if the session was not configured with a journal.
func NewServer(dbg debugger.Debugger, j *journal.SQLiteJournal) *Server {
	return &Server{dbg: dbg, journal: j}
}

// handleHealthz responds to GET /healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// threadDTO is the JSON projection of debugger.ThreadInfo, spelling out
// Pause as its string name rather than the bare integer.
type threadDTO struct {
	TID   int32  `json:"tid"`
	Pause string `json:"pause"`
}

// handleThreads responds to GET /threads with every traced thread and its
// current pause state.
func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	threads := s.dbg.ListThreads()
	out := make([]threadDTO, len(threads))
	for i, th := range threads {
		out[i] = threadDTO{TID: th.TID, Pause: th.Pause.String()}
	}
	writeJSON(w, out)
}

// handleBreakpoints responds to GET /breakpoints with every installed
// breakpoint, ascending by address.
func (s *Server) handleBreakpoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.dbg.ListBreakpoints())
}

// parseThreadIndex resolves the optional ?tid= query parameter to a
// debugger.ThreadIndex, defaulting to the current thread.
func parseThreadIndex(r *http.Request) (debugger.ThreadIndex, error) {
	tidStr := r.URL.Query().Get("tid")
	if tidStr == "" {
		return debugger.CurrentThreadIndex(), nil
	}
	tid, err := strconv.ParseInt(tidStr, 10, 32)
	if err != nil {
		return debugger.ThreadIndex{}, err
	}
	return debugger.SpecificThreadIndex(int32(tid)), nil
}

// handleDisasm responds to GET /disasm?tid=<n>, decoding the single
// instruction at the selected thread's current program counter.
func (s *Server) handleDisasm(w http.ResponseWriter, r *http.Request) {
	ti, err := parseThreadIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "'tid' must be an integer")
		return
	}

	insn, err := s.dbg.DisassembleOne(ti)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, insn)
}

// handleJournal responds to GET /journal?limit=<n>, tailing the session
// journal. Supported query parameters:
//
//	limit – maximum number of entries to return (default 100, max 1000)
//
// Returns HTTP 501 if the session was not configured with a journal.
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotImplemented, "this session has no journal configured")
		return
	}

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "'limit' must be a positive integer")
			return
		}
		if n > 1000 {
			n = 1000
		}
		limit = n
	}

	entries, err := s.journal.Tail(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to tail journal")
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, entries)
}
