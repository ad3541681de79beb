// Command server launches a target binary under the ptrace debugger core,
// loads its SLEIGH disassembler from a .sla/.pspec pair, arms any
// configured breakpoints, and exposes the session over an HTTP
// introspection API until the target exits or SIGTERM/SIGINT arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/greyforge/core/internal/config"
	"github.com/greyforge/core/internal/debugger"
	"github.com/greyforge/core/internal/httpapi"
	"github.com/greyforge/core/internal/journal"
	"github.com/greyforge/core/internal/sleigh"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to the session YAML config file (required)")
	flag.Parse()

	if configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: server -config <session.yaml>")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("debug session starting",
		slog.String("target", cfg.Target),
		slog.String("http_addr", cfg.HTTPAddr),
	)

	jrnl, err := journal.Open(cfg.JournalPath, logger)
	if err != nil {
		logger.Error("failed to open session journal", slog.Any("error", err))
		os.Exit(1)
	}
	defer jrnl.Close()

	dbg, err := buildDebugger(cfg, logger, jrnl)
	if err != nil {
		logger.Error("failed to build debugger", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	argv := append([]string{filepath.Base(cfg.Target)}, cfg.Args...)
	if err := dbg.Launch(ctx, cfg.Target, argv); err != nil {
		logger.Error("failed to launch target", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbg.Close()

	for _, bpStr := range cfg.Breakpoints {
		addr, err := strconv.ParseUint(bpStr, 0, 64)
		if err != nil {
			logger.Error("invalid breakpoint address", slog.String("addr", bpStr), slog.Any("error", err))
			os.Exit(1)
		}
		id, err := dbg.AddBreakpoint(addr)
		if err != nil {
			logger.Error("failed to arm breakpoint", slog.String("addr", bpStr), slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("breakpoint armed", slog.Uint64("id", uint64(id)), slog.String("addr", bpStr))
	}

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(httpapi.NewServer(dbg, jrnl)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	httpErrCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP introspection API listening", slog.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErrCh <- fmt.Errorf("HTTP server: %w", err)
		}
		close(httpErrCh)
	}()

	eventsDone := make(chan struct{})
	go watchEvents(dbg, jrnl, logger, eventsDone)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case err := <-httpErrCh:
		if err != nil {
			logger.Error("HTTP server error", slog.Any("error", err))
		}
	case <-eventsDone:
		logger.Info("target exited")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", slog.Any("error", err))
	}

	logger.Info("debug session exited cleanly")
}

// buildDebugger loads the target's SLEIGH language and processor spec, and
// constructs the register table and ptrace debugger core that run against
// it.
func buildDebugger(cfg *config.SessionConfig, logger *slog.Logger, jrnl debugger.JournalSink) (debugger.Debugger, error) {
	slaData, err := os.ReadFile(cfg.SlaPath)
	if err != nil {
		return nil, fmt.Errorf("reading sla file: %w", err)
	}
	sl, err := sleigh.New(slaData)
	if err != nil {
		return nil, fmt.Errorf("loading sla file: %w", err)
	}

	pspecData, err := os.ReadFile(cfg.PspecPath)
	if err != nil {
		return nil, fmt.Errorf("reading pspec file: %w", err)
	}
	ps, err := sleigh.ParsePspec(pspecData)
	if err != nil {
		return nil, fmt.Errorf("parsing pspec file: %w", err)
	}

	initialCtx, err := ps.GetInitialCtx(sl)
	if err != nil {
		return nil, fmt.Errorf("resolving initial context: %w", err)
	}
	disasm := sleigh.NewDisasm(sl, initialCtx)

	regs, err := debugger.BuildRegisterTable(sl, ps, debugger.HostRegisters())
	if err != nil {
		return nil, fmt.Errorf("building register table: %w", err)
	}

	return debugger.NewPtraceDebugger(logger, disasm, regs, jrnl), nil
}

// watchEvents drains the debugger's event stream, recording every event to
// the journal until the target exits, then closes done.
func watchEvents(dbg debugger.Debugger, jrnl *journal.SQLiteJournal, logger *slog.Logger, done chan<- struct{}) {
	defer close(done)
	for {
		ev, err := dbg.WaitNextEvent(false)
		if err != nil {
			logger.Warn("WaitNextEvent failed", slog.Any("error", err))
			return
		}
		jrnl.Record(ev.Kind.String(), ev.Pid, 0, fmt.Sprintf("code=%d", ev.Code))
		if ev.Kind == debugger.ThreadKilled || ev.Kind == debugger.Failed {
			return
		}
	}
}

// newLogger constructs a *slog.Logger that writes JSON-structured log
// records to stderr at the requested minimum level.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
