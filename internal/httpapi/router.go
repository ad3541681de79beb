// Package httpapi provides a local, unauthenticated HTTP introspection API
// over a running debug session: thread state, installed breakpoints, and
// on-demand disassembly at a thread's current program counter.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter returns a configured chi.Router for the session introspection
// API.
//
// Route layout:
//
//	GET /healthz                 – liveness probe
//	GET /threads                 – list every traced thread and its pause state
//	GET /breakpoints             – list every installed breakpoint
//	GET /disasm?tid=<n>          – disassemble the instruction at tid's PC
//	                                (omit tid to use the current thread)
//	GET /journal?limit=<n>       – tail the session journal (if configured)
//
// There is no authentication: this API is meant to be bound to a loopback
// address for a single local operator, the same way a debugger's own
// command socket would be, so no bearer-token layer is wired in.
func NewRouter(srv *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", srv.handleHealthz)
	r.Get("/threads", srv.handleThreads)
	r.Get("/breakpoints", srv.handleBreakpoints)
	r.Get("/disasm", srv.handleDisasm)
	r.Get("/journal", srv.handleJournal)

	return r
}
