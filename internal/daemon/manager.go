package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harunnryd/thinx/internal/concurrency"
	"github.com/harunnryd/thinx/internal/config"
)

type Daemon struct {
	cfg         *config.Config
	components  []Component
	order       []string
	health      HealthStatus
	uptimeStart time.Time
	mu          sync.RWMutex
	monitorDone chan struct{}
	signals     []os.Signal
}

func NewDaemon(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return &Daemon{
		cfg:         cfg,
		components:  make([]Component, 0),
		health:      StatusStarting,
		uptimeStart: time.Now(),
		monitorDone: make(chan struct{}),
		signals:     []os.Signal{os.Interrupt, syscall.SIGTERM},
	}, nil
}

func (d *Daemon) AddComponent(comp Component) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.components = append(d.components, comp)
	slog.Info("Component registered", "component", comp.Name(), "total_components", len(d.components))
}

// Start runs every component until ctx is cancelled or the process receives
// SIGINT or SIGTERM, then shuts them down in reverse order.
func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("Thinx daemon starting...", "service", d.cfg.Chat.ServiceName)

	ctx, stop := signal.NotifyContext(ctx, d.signals...)
	defer stop()

	if err := d.validateConfig(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	initialized, err := d.initializeComponents(ctx)
	if err != nil {
		d.rollback(context.Background(), initialized)
		return fmt.Errorf("component initialization failed: %w", err)
	}

	shutdownTimeout, err := config.DurationOrDefault(d.cfg.Daemon.ShutdownTimeout, config.DefaultDaemonShutdownTimeout)
	if err != nil {
		d.rollback(context.Background(), initialized)
		return fmt.Errorf("parse daemon shutdown timeout: %w", err)
	}

	if err := d.startComponents(ctx); err != nil {
		d.gracefulShutdown(context.Background(), shutdownTimeout)
		return fmt.Errorf("component startup failed: %w", err)
	}

	d.setHealth(StatusRunning)
	slog.Info("Thinx daemon is running", "components", len(d.components))

	concurrency.SafeGo(func() { d.startHealthMonitor(ctx) }, func(r interface{}) {
		slog.Error("Health monitor panicked", "panic", r)
	})

	<-ctx.Done()

	slog.Info("Context cancelled, initiating graceful shutdown", "reason", ctx.Err())
	d.setHealth(StatusStopping)
	close(d.monitorDone)

	if err := d.gracefulShutdown(context.Background(), shutdownTimeout); err != nil {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ctx.Err()
	}
	return nil
}

func (d *Daemon) Health() HealthStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.health
}

func (d *Daemon) Uptime() time.Duration {
	return time.Since(d.uptimeStart)
}

func (d *Daemon) ComponentHealth() map[string]*ComponentHealth {
	d.mu.RLock()
	components := make([]Component, len(d.components))
	copy(components, d.components)
	d.mu.RUnlock()

	result := make(map[string]*ComponentHealth)
	for _, comp := range components {
		health, err := comp.Health(context.Background())
		if health == nil {
			health = &ComponentHealth{Name: comp.Name()}
		}
		if err != nil {
			health.Healthy = false
			health.Error = err
		}
		result[comp.Name()] = health
	}
	return result
}

func (d *Daemon) setHealth(status HealthStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.health = status
}

func (d *Daemon) validateConfig() error {
	slog.Info("Validating configuration...")

	if d.cfg.Server.Port < 1 || d.cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", d.cfg.Server.Port)
	}

	for _, dir := range []string{d.cfg.Paths.History, d.cfg.Paths.Downloads} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	slog.Info("Configuration validated", "port", d.cfg.Server.Port, "history", d.cfg.Paths.History)
	return nil
}

// initializeComponents returns the names it managed to initialize so a
// failure can be rolled back precisely.
func (d *Daemon) initializeComponents(ctx context.Context) ([]string, error) {
	slog.Info("Initializing components...")

	if err := d.validateDependencies(); err != nil {
		return nil, fmt.Errorf("dependency validation failed: %w", err)
	}

	order, err := d.resolveInitOrder()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve init order: %w", err)
	}

	d.mu.Lock()
	d.order = order
	d.mu.Unlock()

	initialized := make([]string, 0, len(order))
	for _, name := range order {
		comp := d.getComponentByName(name)
		slog.Info("Initializing component...", "component", name)
		if err := comp.Init(ctx); err != nil {
			slog.Error("Component initialization failed", "component", name, "error", err)
			return initialized, fmt.Errorf("component %s init failed: %w", name, err)
		}
		initialized = append(initialized, name)
		slog.Info("Component initialized", "component", name)
	}

	slog.Info("All components initialized", "count", len(initialized))
	return initialized, nil
}

func (d *Daemon) startComponents(ctx context.Context) error {
	slog.Info("Starting components...")

	for _, name := range d.order {
		comp := d.getComponentByName(name)
		slog.Info("Starting component...", "component", name)
		if err := comp.Start(ctx); err != nil {
			slog.Error("Component startup failed", "component", name, "error", err)
			return fmt.Errorf("component %s startup failed: %w", name, err)
		}
		slog.Info("Component started", "component", name)
	}

	slog.Info("All components started", "count", len(d.order))
	return nil
}

func (d *Daemon) gracefulShutdown(ctx context.Context, timeout time.Duration) error {
	slog.Info("Graceful shutdown initiated", "timeout", timeout)

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct{})
	concurrency.SafeGo(func() {
		defer close(done)
		d.stopInReverse(shutdownCtx, d.order)
	}, func(r interface{}) {
		slog.Error("Shutdown panicked", "panic", r)
	})

	select {
	case <-done:
		d.setHealth(StatusStopped)
		slog.Info("Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("shutdown cancelled: %w", ctx.Err())
		}
		slog.Error("Shutdown timeout exceeded", "timeout", timeout)
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

func (d *Daemon) rollback(ctx context.Context, initialized []string) {
	if len(initialized) == 0 {
		d.setHealth(StatusStopped)
		return
	}
	slog.Warn("Rolling back initialized components...", "count", len(initialized))
	d.stopInReverse(ctx, initialized)
	d.setHealth(StatusStopped)
}

func (d *Daemon) stopInReverse(ctx context.Context, names []string) {
	for i := len(names) - 1; i >= 0; i-- {
		comp := d.getComponentByName(names[i])
		if comp == nil {
			continue
		}
		slog.Info("Stopping component...", "component", names[i])
		if err := comp.Stop(ctx); err != nil {
			slog.Error("Component stop failed", "component", names[i], "error", err)
		} else {
			slog.Info("Component stopped", "component", names[i])
		}
	}
}

func (d *Daemon) getComponentByName(name string) Component {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, comp := range d.components {
		if comp.Name() == name {
			return comp
		}
	}
	return nil
}

func (d *Daemon) Component(name string) Component {
	return d.getComponentByName(name)
}

func (d *Daemon) startHealthMonitor(ctx context.Context) {
	interval, err := config.DurationOrDefault(d.cfg.Daemon.HealthCheckInterval, config.DefaultDaemonHealthCheckInterval)
	if err != nil {
		slog.Error("Failed to parse daemon health check interval", "error", err)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.monitorDone:
			return
		case <-ticker.C:
			d.checkComponentHealth()
		}
	}
}

func (d *Daemon) checkComponentHealth() {
	healths := d.ComponentHealth()
	unhealthy := 0
	for name, health := range healths {
		if !health.Healthy {
			unhealthy++
			slog.Warn("Component unhealthy", "component", name, "error", health.Error)
		}
	}

	if unhealthy > 0 {
		slog.Warn("Daemon has unhealthy components", "count", unhealthy, "total", len(healths))
	} else {
		slog.Debug("All components healthy", "count", len(healths))
	}
}

func (d *Daemon) validateDependencies() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	registered := make(map[string]bool, len(d.components))
	for _, comp := range d.components {
		if registered[comp.Name()] {
			return fmt.Errorf("component %s registered twice", comp.Name())
		}
		registered[comp.Name()] = true
	}

	for _, comp := range d.components {
		for _, dep := range comp.Dependencies() {
			if !registered[dep] {
				return fmt.Errorf("component %s depends on %s which is not registered", comp.Name(), dep)
			}
		}
	}
	return nil
}

// resolveInitOrder is a depth-first topological sort. Registration order
// breaks ties.
func (d *Daemon) resolveInitOrder() ([]string, error) {
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	order := []string{}

	var visit func(name string) error
	visit = func(name string) error {
		if visiting[name] {
			return fmt.Errorf("circular dependency detected involving %s", name)
		}
		if visited[name] {
			return nil
		}

		comp := d.getComponentByName(name)
		if comp == nil {
			return fmt.Errorf("component %s not found", name)
		}

		visiting[name] = true
		for _, dep := range comp.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}

	d.mu.RLock()
	names := make([]string, len(d.components))
	for i, comp := range d.components {
		names[i] = comp.Name()
	}
	d.mu.RUnlock()

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	slog.Info("Initialization order resolved", "order", order)
	return order, nil
}
