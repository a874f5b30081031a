package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// FileLock keeps a second server from appending to the same history directory.
type FileLock struct {
	flock      *flock.Flock
	path       string
	acquiredAt time.Time
	mu         sync.Mutex
}

type FileLockConfig struct {
	LockTimeout  time.Duration
	LockRetry    time.Duration
	LockMaxRetry int
}

func AcquireFileLock(dir string, cfg FileLockConfig) (*FileLock, error) {
	if cfg.LockMaxRetry <= 0 {
		cfg.LockMaxRetry = 1
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = time.Second
	}

	path := LockPath(dir)
	fl := &FileLock{flock: flock.New(path), path: path}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LockTimeout)
	defer cancel()

	for attempt := 0; attempt < cfg.LockMaxRetry; attempt++ {
		locked, err := fl.flock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("attempt lock %s: %w", path, err)
		}
		if locked {
			fl.acquiredAt = time.Now()
			slog.Debug("History lock acquired", "path", path)
			return fl, nil
		}
		if attempt == cfg.LockMaxRetry-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("history dir %s is locked by another instance: %w", dir, ctx.Err())
		case <-time.After(cfg.LockRetry):
		}
	}

	return nil, fmt.Errorf("history dir %s is locked by another instance (after %d attempts)", dir, cfg.LockMaxRetry)
}

func (fl *FileLock) Unlock() {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.flock == nil {
		return
	}
	if err := fl.flock.Unlock(); err != nil {
		slog.Error("Failed to release history lock", "path", fl.path, "error", err)
	} else {
		slog.Debug("History lock released", "path", fl.path, "held_ms", time.Since(fl.acquiredAt).Milliseconds())
	}
	fl.flock = nil
}

func (fl *FileLock) IsLocked() bool {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.flock != nil
}
