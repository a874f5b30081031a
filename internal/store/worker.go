package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	stdatomic "sync/atomic"
	"time"

	"github.com/harunnryd/thinx/internal/concurrency"
	"github.com/harunnryd/thinx/internal/config"
	"github.com/harunnryd/thinx/internal/errors"

	"github.com/natefinch/atomic"
)

type Operation int

const (
	OpAppend Operation = iota
	OpReadRecent
	OpListIdentities
)

type Request struct {
	Op       Operation
	Identity string
	Entries  []Entry
	Limit    int
	Reply    chan Reply
}

type Reply struct {
	Entries    []Entry
	Identities []IdentityMeta
	Err        error
}

// Worker owns every write to the history directory. Requests are served one
// at a time from the inbox, so appends to the same identity never interleave.
type Worker struct {
	dir      string
	inbox    chan Request
	fileLock *FileLock
	index    *IdentityIndex
	quit     chan struct{}
	done     <-chan struct{}
	running  stdatomic.Bool
	stopOnce sync.Once
	now      func() time.Time
}

type RuntimeConfig struct {
	LockTimeout  time.Duration
	LockRetry    time.Duration
	LockMaxRetry int
	InboxSize    int
}

func (c *RuntimeConfig) applyDefaults() error {
	if c.LockTimeout <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultStoreLockTimeout)
		if err != nil {
			return fmt.Errorf("parse default store lock timeout: %w", err)
		}
		c.LockTimeout = d
	}
	if c.LockRetry <= 0 {
		d, err := config.DurationOrDefault("", config.DefaultStoreLockRetry)
		if err != nil {
			return fmt.Errorf("parse default store lock retry: %w", err)
		}
		c.LockRetry = d
	}
	if c.LockMaxRetry <= 0 {
		c.LockMaxRetry = config.DefaultStoreLockMaxRetry
	}
	if c.InboxSize <= 0 {
		c.InboxSize = config.DefaultStoreInboxSize
	}
	return nil
}

func NewWorker(dir string, runtimeCfg RuntimeConfig) (*Worker, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.Config("history dir is empty")
	}
	if err := runtimeCfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history dir %s: %w", dir, err)
	}

	fileLock, err := AcquireFileLock(dir, FileLockConfig{
		LockTimeout:  runtimeCfg.LockTimeout,
		LockRetry:    runtimeCfg.LockRetry,
		LockMaxRetry: runtimeCfg.LockMaxRetry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	index, err := loadIndex(dir)
	if err != nil {
		slog.Warn("History index unreadable, rebuilding from logs", "dir", dir, "error", err)
		index = rebuildIndex(dir)
	}

	return &Worker{
		dir:      dir,
		inbox:    make(chan Request, runtimeCfg.InboxSize),
		fileLock: fileLock,
		index:    index,
		quit:     make(chan struct{}),
		now:      time.Now,
	}, nil
}

func (w *Worker) Dir() string {
	return w.dir
}

func (w *Worker) Start() {
	w.done = concurrency.Spawn("history-store", w.loop)
	w.running.Store(true)
}

// Stop drains queued requests, stops the loop and releases the directory lock.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.running.Store(false)
		close(w.quit)
		if w.done != nil {
			<-w.done
		}
		w.fileLock.Unlock()
		slog.Info("History store stopped", "dir", w.dir)
	})
}

func (w *Worker) IsRunning() bool {
	return w.running.Load()
}

func (w *Worker) loop() {
	slog.Info("History store started", "dir", w.dir)
	for {
		select {
		case req := <-w.inbox:
			w.serve(req)
		case <-w.quit:
			for {
				select {
				case req := <-w.inbox:
					w.serve(req)
				default:
					return
				}
			}
		}
	}
}

func (w *Worker) serve(req Request) {
	reply := w.handle(req)
	if req.Reply != nil {
		req.Reply <- reply
	}
}

func (w *Worker) handle(req Request) Reply {
	switch req.Op {
	case OpAppend:
		return Reply{Err: w.append(req.Identity, req.Entries)}
	case OpReadRecent:
		path, err := LogPath(w.dir, req.Identity)
		if err != nil {
			return Reply{Err: err}
		}
		entries, err := ReadLog(path, req.Limit)
		return Reply{Entries: entries, Err: err}
	case OpListIdentities:
		return Reply{Identities: w.identities()}
	default:
		return Reply{Err: fmt.Errorf("unknown operation: %d", req.Op)}
	}
}

func (w *Worker) submit(ctx context.Context, req Request) (Reply, error) {
	if !w.IsRunning() {
		return Reply{}, errors.ErrStoreClosed
	}
	req.Reply = make(chan Reply, 1)

	select {
	case w.inbox <- req:
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	case <-w.quit:
		return Reply{}, errors.ErrStoreClosed
	}

	select {
	case reply := <-req.Reply:
		return reply, reply.Err
	case <-w.done:
		select {
		case reply := <-req.Reply:
			return reply, reply.Err
		default:
			return Reply{}, errors.ErrStoreClosed
		}
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Append writes entries to identity's log in one append.
func (w *Worker) Append(ctx context.Context, identity string, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := ValidateIdentity(identity); err != nil {
		return err
	}
	_, err := w.submit(ctx, Request{Op: OpAppend, Identity: identity, Entries: entries})
	return err
}

func (w *Worker) ReadRecent(ctx context.Context, identity string, limit int) ([]Entry, error) {
	reply, err := w.submit(ctx, Request{Op: OpReadRecent, Identity: identity, Limit: limit})
	if err != nil {
		return nil, err
	}
	return reply.Entries, nil
}

func (w *Worker) Identities(ctx context.Context) ([]IdentityMeta, error) {
	reply, err := w.submit(ctx, Request{Op: OpListIdentities})
	if err != nil {
		return nil, err
	}
	return reply.Identities, nil
}

func (w *Worker) append(identity string, entries []Entry) error {
	path, err := LogPath(w.dir, identity)
	if err != nil {
		return err
	}
	if err := appendEntries(path, entries); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}

	now := w.now()
	meta, ok := w.index.Identities[identity]
	if !ok {
		meta = IdentityMeta{Identity: identity, CreatedAt: now}
	}
	meta.Entries += len(entries)
	meta.UpdatedAt = now
	w.index.Identities[identity] = meta

	if err := saveIndex(w.dir, w.index); err != nil {
		slog.Warn("Failed to save history index", "dir", w.dir, "error", err)
	}
	return nil
}

func (w *Worker) identities() []IdentityMeta {
	out := make([]IdentityMeta, 0, len(w.index.Identities))
	for _, meta := range w.index.Identities {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

func LoadIndex(dir string) (*IdentityIndex, error) {
	return loadIndex(dir)
}

func loadIndex(dir string) (*IdentityIndex, error) {
	index := &IdentityIndex{Identities: make(map[string]IdentityMeta)}
	data, err := os.ReadFile(IndexPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return rebuildIndex(dir), nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, index); err != nil {
		return nil, err
	}
	if index.Identities == nil {
		index.Identities = make(map[string]IdentityMeta)
	}
	return index, nil
}

// rebuildIndex counts the entries of every log in dir.
func rebuildIndex(dir string) *IdentityIndex {
	index := &IdentityIndex{Identities: make(map[string]IdentityMeta)}
	matches, err := filepath.Glob(filepath.Join(dir, "*"+LogExt))
	if err != nil {
		return index
	}
	for _, path := range matches {
		identity := strings.TrimSuffix(filepath.Base(path), LogExt)
		if ValidateIdentity(identity) != nil {
			continue
		}
		entries, err := ReadLog(path, 0)
		if err != nil {
			slog.Warn("Skipping unreadable history log", "path", path, "error", err)
			continue
		}
		meta := IdentityMeta{Identity: identity, Entries: len(entries)}
		if info, err := os.Stat(path); err == nil {
			meta.CreatedAt = info.ModTime()
			meta.UpdatedAt = info.ModTime()
		}
		index.Identities[identity] = meta
	}
	return index
}

func saveIndex(dir string, index *IdentityIndex) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(IndexPath(dir), bytes.NewReader(data))
}
