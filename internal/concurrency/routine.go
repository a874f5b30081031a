package concurrency

import (
	"log/slog"
	"runtime/debug"
)

// SafeGo runs a function in a goroutine with panic recovery.
func SafeGo(fn func(), onPanic func(interface{})) {
	go func() {
		defer recoverPanic(onPanic)
		fn()
	}()
}

// Spawn is SafeGo with a completion signal: the returned channel is closed
// once fn has returned or panicked, so callers can await the goroutine.
func Spawn(name string, fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer recoverPanic(func(r interface{}) {
			slog.Error("Background task crashed", "task", name, "panic", r)
		})
		fn()
	}()
	return done
}

func recoverPanic(onPanic func(interface{})) {
	if r := recover(); r != nil {
		slog.Error("Panic recovered", "panic", r, "stack", string(debug.Stack()))
		if onPanic != nil {
			onPanic(r)
		}
	}
}
