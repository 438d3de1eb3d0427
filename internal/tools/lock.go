package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	lockPollInterval = 100 * time.Millisecond
	// staleLockAge is older than any single acquisition should take.
	staleLockAge = 30 * time.Minute
	maxLockWait  = 10 * time.Minute
)

// acquireLock serialises acquisition of one tool across concurrent runs
// sharing the same install root. The lock file holds the owner's PID; a lock
// whose owner is gone, or which is older than staleLockAge, is broken. The
// returned func releases the lock.
func acquireLock(ctx context.Context, root, tool string, logger *log.Logger) (func(), error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("prepare install root: %w", err)
	}
	if logger == nil {
		logger = discardLogger()
	}

	name := strings.ToLower(strings.ReplaceAll(tool, " ", "-"))
	lockPath := filepath.Join(root, name+".lock")
	ctx, cancel := context.WithTimeout(ctx, maxLockWait)
	defer cancel()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	waiting := false
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				_ = os.Remove(lockPath)
				return nil, fmt.Errorf("write lock: %w", werr)
			}
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if reason := staleLock(lockPath); reason != "" {
			logger.Warn("removing stale lock", "tool", tool, "path", lockPath, "reason", reason)
			if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("remove stale lock: %w", err)
			}
			continue
		}
		if !waiting {
			logger.Info("waiting for another kidep run to finish", "tool", tool, "lock", lockPath)
			waiting = true
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("timed out waiting for %s: %w", lockPath, ctx.Err())
			}
			return nil, fmt.Errorf("acquire lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// staleLock reports why the lock at path can be broken, or "" while its
// owner may still be working.
func staleLock(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	if age := time.Since(info.ModTime()); age > staleLockAge {
		return fmt.Sprintf("held for %s", age.Round(time.Second))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		// Freshly created and not yet written, or written by something else.
		return ""
	}
	if !processAlive(pid) {
		return fmt.Sprintf("owner %d exited", pid)
	}
	return ""
}
