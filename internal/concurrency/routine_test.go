package concurrency

import (
	"testing"
	"time"
)

func TestSpawnClosesDoneAfterPanic(t *testing.T) {
	done := Spawn("panicky", func() {
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("done channel not closed after panic")
	}
}

func TestSafeGoCallsOnPanic(t *testing.T) {
	got := make(chan interface{}, 1)
	SafeGo(func() { panic("bad") }, func(r interface{}) { got <- r })

	select {
	case r := <-got:
		if r != "bad" {
			t.Fatalf("unexpected panic value %v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onPanic not invoked")
	}
}
