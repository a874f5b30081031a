package relay

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/harunnryd/thinx/internal/errors"
)

var keepalivePing = []byte(": keepalive\n\n")

type flusher interface {
	Flush() error
}

// Session is the per-request stream state shared by the relay and its
// keep-alive task. All writes go through it so frames never interleave.
type Session struct {
	w       http.ResponseWriter
	flusher flusher

	mu        sync.Mutex
	lastWrite time.Time
	closed    bool
	err       error
	now       func() time.Time
}

func NewSession(w http.ResponseWriter) *Session {
	return &Session{
		w:         w,
		flusher:   http.NewResponseController(w),
		lastWrite: time.Now(),
		now:       time.Now,
	}
}

// WriteFrame writes one "data:" record and flushes it.
func (s *Session) WriteFrame(payload []byte) error {
	record := make([]byte, 0, len(payload)+8)
	record = append(record, "data: "...)
	record = append(record, payload...)
	record = append(record, '\n', '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(record)
}

// PingIfIdle sends a keep-alive comment when nothing was written for at
// least threshold. It reports whether a ping went out.
func (s *Session) PingIfIdle(threshold time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, s.err
	}
	if s.now().Sub(s.lastWrite) < threshold {
		return false, nil
	}
	if err := s.writeLocked(keepalivePing); err != nil {
		return false, err
	}
	return true, nil
}

// Flush pushes buffered headers or data to the client.
func (s *Session) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(nil)
}

func (s *Session) writeLocked(data []byte) error {
	if s.closed {
		return s.err
	}
	if len(data) > 0 {
		if _, err := s.w.Write(data); err != nil {
			return s.failLocked(err)
		}
	}
	if err := s.flusher.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return s.failLocked(err)
	}
	s.lastWrite = s.now()
	return nil
}

// failLocked closes the session; later writes return the same error.
func (s *Session) failLocked(err error) error {
	s.closed = true
	if errors.IsClientDisconnect(err) {
		s.err = fmt.Errorf("%v: %w", err, errors.ErrClientGone)
	} else {
		s.err = err
	}
	return s.err
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
