package components

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/harunnryd/thinx/internal/config"
	"github.com/harunnryd/thinx/internal/daemon"
	"github.com/harunnryd/thinx/internal/mail"

	"github.com/robfig/cron/v3"
)

const ReportsName = "Reports"

type healthMailer interface {
	SendHealthReport(ctx context.Context, to string, report mail.Report) mail.Result
}

type reportCollector interface {
	Collect(ctx context.Context) mail.Report
}

// ReportsComponent mails the system health report on a cron schedule. With
// no schedule configured it is registered but idle.
type ReportsComponent struct {
	cfg       config.HealthConfig
	mailer    healthMailer
	collector reportCollector
	cron      *cron.Cron
	entry     cron.EntryID
	running   bool
	mu        sync.RWMutex
}

func NewReportsComponent(cfg config.HealthConfig, sender *mail.Sender, prober *mail.Prober) *ReportsComponent {
	return &ReportsComponent{cfg: cfg, mailer: sender, collector: prober}
}

func (r *ReportsComponent) Name() string {
	return ReportsName
}

func (r *ReportsComponent) Dependencies() []string {
	return []string{}
}

func (r *ReportsComponent) Enabled() bool {
	return strings.TrimSpace(r.cfg.Schedule) != ""
}

func (r *ReportsComponent) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.Enabled() {
		slog.Info("Health reports disabled", "component", r.Name())
		return nil
	}
	if strings.TrimSpace(r.cfg.To) == "" {
		return fmt.Errorf("mail.health.to is required when mail.health.schedule is set")
	}

	c := cron.New()
	id, err := c.AddFunc(r.cfg.Schedule, r.runOnce)
	if err != nil {
		return fmt.Errorf("invalid health report schedule %q: %w", r.cfg.Schedule, err)
	}
	r.cron = c
	r.entry = id
	slog.Info("Health reports scheduled", "component", r.Name(), "schedule", r.cfg.Schedule, "to", r.cfg.To)
	return nil
}

func (r *ReportsComponent) runOnce() {
	ctx := context.Background()
	report := r.collector.Collect(ctx)
	res := r.mailer.SendHealthReport(ctx, r.cfg.To, report)
	if !res.Success {
		slog.Warn("Health report not sent", "to", r.cfg.To, "message", res.Message)
		return
	}
	slog.Info("Health report sent", "to", r.cfg.To, "host", report.Host)
}

func (r *ReportsComponent) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron == nil {
		return nil
	}
	r.cron.Start()
	r.running = true
	return nil
}

// Stop waits for a report in flight, bounded by ctx.
func (r *ReportsComponent) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}
	r.running = false
	select {
	case <-r.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("health report still running: %w", ctx.Err())
	}
}

func (r *ReportsComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var problem error
	if r.Enabled() && !r.running {
		problem = fmt.Errorf("scheduler not running")
	}
	return daemon.HealthOf(r.Name(), problem), nil
}

// Next returns the scheduled entry; ok is false when reports are disabled.
func (r *ReportsComponent) Next() (next cron.Entry, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cron == nil {
		return cron.Entry{}, false
	}
	return r.cron.Entry(r.entry), true
}
