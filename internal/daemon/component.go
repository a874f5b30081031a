package daemon

import (
	"context"
)

// HealthStatus is the lifecycle phase of the whole server.
type HealthStatus string

const (
	StatusStarting HealthStatus = "starting"
	StatusRunning  HealthStatus = "running"
	StatusStopping HealthStatus = "stopping"
	StatusStopped  HealthStatus = "stopped"
)

// ComponentHealth is one component's answer to a health probe.
type ComponentHealth struct {
	Name    string
	Healthy bool
	Error   error
}

// HealthOf reports name as healthy exactly when problem is nil.
func HealthOf(name string, problem error) *ComponentHealth {
	return &ComponentHealth{Name: name, Healthy: problem == nil, Error: problem}
}

// Component is a unit of the server lifecycle: the history store, the HTTP
// listener, the report scheduler. Init runs in dependency order, Start in the
// same order and Stop in reverse.
type Component interface {
	Name() string
	Dependencies() []string
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) (*ComponentHealth, error)
}
