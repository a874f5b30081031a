package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLockSingleInstance(t *testing.T) {
	dir := t.TempDir()
	cfg := FileLockConfig{LockTimeout: 100 * time.Millisecond, LockRetry: 10 * time.Millisecond, LockMaxRetry: 3}

	first, err := AcquireFileLock(dir, cfg)
	require.NoError(t, err)
	assert.True(t, first.IsLocked())

	_, err = AcquireFileLock(dir, cfg)
	assert.Error(t, err, "second lock on the same dir must fail")

	first.Unlock()
	first.Unlock()
	assert.False(t, first.IsLocked())

	second, err := AcquireFileLock(dir, cfg)
	require.NoError(t, err)
	second.Unlock()
}

func TestSecondWorkerOnSameDirFails(t *testing.T) {
	dir := t.TempDir()
	w := newTestWorker(t, dir)
	require.True(t, w.IsRunning())

	_, err := NewWorker(dir, RuntimeConfig{LockTimeout: 50 * time.Millisecond, LockRetry: 10 * time.Millisecond, LockMaxRetry: 2})
	assert.Error(t, err)
}
