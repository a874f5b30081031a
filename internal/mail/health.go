package mail

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/harunnryd/thinx/internal/config"

	"github.com/google/shlex"
)

const unavailable = "unavailable"

// Report is a snapshot of host health gathered from probe commands.
type Report struct {
	GeneratedAt time.Time
	Host        string
	Uptime      string
	Disk        string
	Memory      string
	Load        string
	Extra       map[string]string
}

func (r Report) Subject() string {
	return fmt.Sprintf("[ThinxAI] Health Status - %s", r.Host)
}

func (r Report) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ThinxAI System Health Report\nGenerated: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Host: %s\nUptime: %s\nDisk Usage: %s\nMemory: %s\nLoad Average: %s\n", r.Host, r.Uptime, r.Disk, r.Memory, r.Load)

	names := make([]string, 0, len(r.Extra))
	for name := range r.Extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\n", name, r.Extra[name])
	}

	b.WriteString("\n---\nSent from ThinxAI Web\n")
	return b.String()
}

type runFunc func(ctx context.Context, argv []string) (string, error)

// Prober runs the configured probe commands. Commands are split like a shell
// would but never run through one.
type Prober struct {
	probes  map[string]string
	timeout time.Duration
	run     runFunc
	now     func() time.Time
}

func NewProber(cfg config.HealthConfig) *Prober {
	timeout, err := config.DurationOrDefault(cfg.ProbeTimeout, config.DefaultMailProbeTimeout)
	if err != nil {
		timeout, _ = config.DurationOrDefault("", config.DefaultMailProbeTimeout)
	}
	probes := cfg.Probes
	if len(probes) == 0 {
		probes = config.DefaultHealthProbes
	}
	return &Prober{probes: probes, timeout: timeout, run: runCommand, now: time.Now}
}

func (p *Prober) Collect(ctx context.Context) Report {
	report := Report{GeneratedAt: p.now(), Extra: map[string]string{}}
	fields := map[string]*string{
		"hostname": &report.Host,
		"uptime":   &report.Uptime,
		"disk":     &report.Disk,
		"memory":   &report.Memory,
		"load":     &report.Load,
	}
	for _, field := range fields {
		*field = unavailable
	}

	for name, command := range p.probes {
		out := p.probe(ctx, name, command)
		if field, ok := fields[name]; ok {
			*field = summarize(name, out)
		} else {
			report.Extra[name] = out
		}
	}
	return report
}

func (p *Prober) probe(ctx context.Context, name, command string) string {
	argv, err := shlex.Split(command)
	if err != nil || len(argv) == 0 {
		slog.Warn("Invalid health probe", "probe", name, "command", command, "error", err)
		return unavailable
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.run(ctx, argv)
	if err != nil {
		slog.Warn("Health probe failed", "probe", name, "error", err)
		return unavailable
	}
	return strings.TrimSpace(out)
}

// summarize reduces raw command output to the figure the report shows.
func summarize(name, out string) string {
	if out == unavailable || out == "" {
		return unavailable
	}
	switch name {
	case "disk":
		lines := strings.Split(out, "\n")
		if fields := strings.Fields(lines[len(lines)-1]); len(fields) >= 5 {
			return fields[4] + " used"
		}
	case "memory":
		for _, line := range strings.Split(out, "\n") {
			if fields := strings.Fields(line); len(fields) >= 3 && fields[0] == "Mem:" {
				return fields[2] + "/" + fields[1]
			}
		}
	case "load":
		if fields := strings.Fields(out); len(fields) >= 3 {
			return strings.Join(fields[:3], " ")
		}
	}
	return out
}

func runCommand(ctx context.Context, argv []string) (string, error) {
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
	return string(out), err
}

func (s *Sender) SendHealthReport(ctx context.Context, to string, report Report) Result {
	return s.Send(ctx, to, report.Subject(), report.Body(), false)
}
