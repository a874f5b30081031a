package relay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/thinx/internal/concurrency"
)

// keepAlive pings an idle session on a fixed interval until stopped. Stop
// waits for the task to exit, so no ping can follow it.
type keepAlive struct {
	stop     chan struct{}
	done     <-chan struct{}
	stopOnce sync.Once
	pings    int
}

func startKeepAlive(sess *Session, interval, threshold time.Duration, log *slog.Logger) *keepAlive {
	ka := &keepAlive{stop: make(chan struct{})}
	if interval <= 0 {
		closed := make(chan struct{})
		close(closed)
		ka.done = closed
		return ka
	}

	ka.done = concurrency.Spawn("sse-keepalive", func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ka.stop:
				return
			case <-ticker.C:
				sent, err := sess.PingIfIdle(threshold)
				if err != nil {
					log.Debug("Keep-alive stopped", "error", err)
					return
				}
				if sent {
					ka.pings++
				}
			}
		}
	})
	return ka
}

func (ka *keepAlive) Stop() {
	ka.stopOnce.Do(func() { close(ka.stop) })
	<-ka.done
}

// Pings is only meaningful after Stop.
func (ka *keepAlive) Pings() int {
	return ka.pings
}
