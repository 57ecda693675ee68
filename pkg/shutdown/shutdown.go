// Package shutdown handles fatal exits. A key server dying silently is
// worse than one dying loudly: Abort writes a crash dump with goroutine
// stacks next to the database before exiting so operators can reconstruct
// what the process was doing.
package shutdown

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"chatkeys/pkg/logger"
)

// Abort logs the fatal condition, writes a crash dump and exits with
// status 2. dbPath anchors the dump location; empty falls back to ./crash.
func Abort(contextMsg string, err error, dbPath string) {
	logger.Error("fatal", "msg", contextMsg, "err", err)
	dumpPath, derr := writeCrashDump(dbPath, contextMsg, err)
	if derr != nil {
		fmt.Fprintf(os.Stderr, "failed to write crash dump: %v\n", derr)
	} else {
		logger.Error("crash_dump_written", "path", dumpPath)
		fmt.Fprintf(os.Stderr, "crash dump written: %s\n", dumpPath)
	}
	os.Exit(2)
}

func writeCrashDump(dbPath, reason string, err error) (string, error) {
	dir := "./crash"
	if dbPath != "" {
		dir = filepath.Join(dbPath, "state", "crash")
	}
	if e := os.MkdirAll(dir, 0o700); e != nil {
		return "", fmt.Errorf("failed to create crash dir: %w", e)
	}
	dumpPath := filepath.Join(dir, fmt.Sprintf("crash-%d.log", time.Now().UnixNano()))

	// write to a temp file first so a partial dump never lands at dumpPath
	f, ferr := os.CreateTemp(dir, ".crash-*.tmp")
	if ferr != nil {
		return "", fmt.Errorf("failed to create temp crash file: %w", ferr)
	}
	tmpName := f.Name()
	defer func() { _ = os.Remove(tmpName) }()

	fmt.Fprintf(f, "time: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(f, "reason: %s\n", reason)
	fmt.Fprintf(f, "error: %v\n", err)
	fmt.Fprintf(f, "\n--- goroutine stacks ---\n")
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	_, _ = f.Write(buf[:n])
	_ = f.Sync()
	_ = f.Close()

	if e := os.Rename(tmpName, dumpPath); e != nil {
		return "", fmt.Errorf("failed to move crash dump into place: %w", e)
	}
	_ = os.Chmod(dumpPath, 0o600)
	return dumpPath, nil
}
