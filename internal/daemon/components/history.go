package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/thinx/internal/config"
	"github.com/harunnryd/thinx/internal/daemon"
	"github.com/harunnryd/thinx/internal/store"
)

const HistoryStoreName = "HistoryStore"

// HistoryStoreComponent owns the history directory for the lifetime of the
// process. Init takes the directory lock, so a second server on the same
// directory fails before it binds a port.
type HistoryStoreComponent struct {
	dir      string
	storeCfg *config.StoreConfig
	worker   *store.Worker
	history  *store.History
	started  bool
	mu       sync.RWMutex
}

func NewHistoryStoreComponent(dir string, storeCfg *config.StoreConfig) *HistoryStoreComponent {
	return &HistoryStoreComponent{dir: dir, storeCfg: storeCfg}
}

func (s *HistoryStoreComponent) Name() string {
	return HistoryStoreName
}

func (s *HistoryStoreComponent) Dependencies() []string {
	return []string{}
}

func (s *HistoryStoreComponent) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%s init cancelled: %w", s.Name(), ctx.Err())
	default:
	}

	runtimeCfg, err := runtimeConfig(s.storeCfg)
	if err != nil {
		return err
	}

	worker, err := store.NewWorker(s.dir, runtimeCfg)
	if err != nil {
		return fmt.Errorf("failed to init history store: %w", err)
	}

	s.worker = worker
	s.history = store.NewHistory(worker)
	slog.Info("HistoryStore initialized", "component", s.Name(), "dir", s.dir)
	return nil
}

func runtimeConfig(cfg *config.StoreConfig) (store.RuntimeConfig, error) {
	if cfg == nil {
		return store.RuntimeConfig{}, nil
	}
	lockTimeout, err := config.DurationOrDefault(cfg.LockTimeout, config.DefaultStoreLockTimeout)
	if err != nil {
		return store.RuntimeConfig{}, fmt.Errorf("parse store lock timeout: %w", err)
	}
	lockRetry, err := config.DurationOrDefault(cfg.LockRetry, config.DefaultStoreLockRetry)
	if err != nil {
		return store.RuntimeConfig{}, fmt.Errorf("parse store lock retry: %w", err)
	}
	return store.RuntimeConfig{
		LockTimeout:  lockTimeout,
		LockRetry:    lockRetry,
		LockMaxRetry: cfg.LockMaxRetry,
		InboxSize:    cfg.InboxSize,
	}, nil
}

func (s *HistoryStoreComponent) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.worker == nil {
		return fmt.Errorf("%s not initialized", s.Name())
	}
	s.worker.Start()
	s.started = true
	return nil
}

// Stop drains pending writes and releases the lock. It is safe to call
// after a failed Start or more than once.
func (s *HistoryStoreComponent) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.worker == nil {
		return nil
	}
	s.worker.Stop()
	s.started = false
	return nil
}

func (s *HistoryStoreComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var problem error
	switch {
	case s.worker == nil:
		problem = fmt.Errorf("not initialized")
	case !s.started || !s.worker.IsRunning():
		problem = fmt.Errorf("loop not running")
	}
	return daemon.HealthOf(s.Name(), problem), nil
}

// History is nil until Init succeeds.
func (s *HistoryStoreComponent) History() *store.History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history
}
