package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/harunnryd/thinx/internal/concurrency"
	"github.com/harunnryd/thinx/internal/config"
	"github.com/harunnryd/thinx/internal/daemon"
)

const HTTPServerName = "HTTPServer"

// HandlerFactory builds the root handler once the components it depends on
// are initialized.
type HandlerFactory func() (http.Handler, error)

type HTTPServerComponent struct {
	cfg          *config.ServerConfig
	dependencies []string
	build        HandlerFactory
	server       *http.Server
	listener     net.Listener
	shutdownTTL  time.Duration
	serveDone    <-chan struct{}
	mu           sync.RWMutex
}

func NewHTTPServerComponent(cfg *config.ServerConfig, build HandlerFactory, dependencies ...string) *HTTPServerComponent {
	return &HTTPServerComponent{
		cfg:          cfg,
		build:        build,
		dependencies: append([]string(nil), dependencies...),
	}
}

func (h *HTTPServerComponent) Name() string {
	return HTTPServerName
}

func (h *HTTPServerComponent) Dependencies() []string {
	return append([]string(nil), h.dependencies...)
}

func (h *HTTPServerComponent) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.build == nil {
		return fmt.Errorf("%s has no handler factory", h.Name())
	}
	handler, err := h.build()
	if err != nil {
		return fmt.Errorf("build http handler: %w", err)
	}

	var readTimeout, writeTimeout, idleTimeout, shutdownTimeout time.Duration
	if err := config.ParseDurations(
		config.DurationField{Name: "server.read_timeout", Value: h.cfg.ReadTimeout, Default: config.DefaultServerReadTimeout, Into: &readTimeout},
		config.DurationField{Name: "server.write_timeout", Value: h.cfg.WriteTimeout, Default: config.DefaultServerWriteTimeout, Into: &writeTimeout},
		config.DurationField{Name: "server.idle_timeout", Value: h.cfg.IdleTimeout, Default: config.DefaultServerIdleTimeout, Into: &idleTimeout},
		config.DurationField{Name: "server.shutdown_timeout", Value: h.cfg.ShutdownTimeout, Default: config.DefaultServerShutdownTimeout, Into: &shutdownTimeout},
	); err != nil {
		return err
	}

	// Streaming handlers clear the write deadline per request.
	h.server = &http.Server{
		Addr:              net.JoinHostPort(h.cfg.Host, fmt.Sprintf("%d", h.cfg.Port)),
		Handler:           handler,
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	h.shutdownTTL = shutdownTimeout

	slog.Info("HTTPServer initialized", "component", h.Name(), "addr", h.server.Addr)
	return nil
}

// Start binds synchronously so a busy port fails startup instead of a
// background goroutine.
func (h *HTTPServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.server == nil {
		return fmt.Errorf("%s not initialized", h.Name())
	}

	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", h.server.Addr, err)
	}
	h.listener = ln

	server := h.server
	h.serveDone = concurrency.Spawn("http-server", func() {
		slog.Info("HTTP server listening", "component", h.Name(), "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "component", h.Name(), "error", err)
		}
	})
	return nil
}

func (h *HTTPServerComponent) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.listener == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, h.shutdownTTL)
	defer cancel()

	err := h.server.Shutdown(shutdownCtx)
	<-h.serveDone
	h.listener = nil
	if err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func (h *HTTPServerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var problem error
	switch {
	case h.server == nil:
		problem = fmt.Errorf("not initialized")
	case h.listener == nil:
		problem = fmt.Errorf("not started")
	}
	return daemon.HealthOf(h.Name(), problem), nil
}

// Addr is the bound listener address, or "" before Start.
func (h *HTTPServerComponent) Addr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}
