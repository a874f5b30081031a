package assistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/harunnryd/thinx/internal/config"
	"github.com/harunnryd/thinx/internal/logger"

	"github.com/google/shlex"
)

// SkipPermissionsFlag lets the assistant act without interactive approval.
const SkipPermissionsFlag = "--dangerously-skip-permissions"

// Result is the outcome of one assistant run. ExitCode is -1 when the
// process could not be started or its status is unknown.
type Result struct {
	Text     string
	ExitCode int
	Stderr   string
}

func (r Result) OK() bool {
	return r.ExitCode == 0 && r.Text != ""
}

// EmitFunc receives every decoded event, in stream order, before the next
// line is read.
type EmitFunc func(Event)

type Runner struct {
	Command         string
	Args            []string
	SkipPermissions bool
	WorkDir         string
	Env             []string
	ChunkSize       int
}

func NewRunner(cfg config.AssistantConfig) (*Runner, error) {
	parts, err := shlex.Split(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse assistant command %q: %w", cfg.Command, err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("assistant command is empty")
	}
	return &Runner{
		Command:         parts[0],
		Args:            parts[1:],
		SkipPermissions: cfg.SkipPermissions,
		WorkDir:         cfg.WorkDir,
		ChunkSize:       cfg.ReadChunkSize,
	}, nil
}

// CommandLine returns the argv used for prompt.
func (r *Runner) CommandLine(prompt string) []string {
	argv := make([]string, 0, len(r.Args)+4)
	argv = append(argv, r.Command)
	argv = append(argv, r.Args...)
	argv = append(argv, "-p", prompt)
	if r.SkipPermissions {
		argv = append(argv, SkipPermissionsFlag)
	}
	return argv
}

// Run executes the assistant for prompt and blocks until it exits. It never
// returns an error: failures surface through ExitCode and Stderr. No run
// timeout is applied beyond ctx.
func (r *Runner) Run(ctx context.Context, prompt string, emit EmitFunc) Result {
	log := logger.FromContext(ctx)
	argv := r.CommandLine(prompt)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.WorkDir
	if len(r.Env) > 0 {
		cmd.Env = r.Env
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1, Stderr: err.Error()}
	}
	if err := cmd.Start(); err != nil {
		log.Error("Failed to start assistant", "command", argv[0], "error", err)
		return Result{ExitCode: -1, Stderr: err.Error()}
	}

	collector := &textCollector{}
	handle := func(line []byte) {
		ev, err := Decode(line)
		if err != nil {
			return
		}
		collector.observe(ev)
		if emit != nil {
			emit(ev)
		}
	}

	if err := r.pump(stdout, handle); err != nil {
		log.Error("Assistant stream read failed", "error", err)
		_ = cmd.Process.Kill()
	}

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
			if stderr.Len() == 0 {
				stderr.WriteString(err.Error())
			}
		}
	}

	res := Result{
		Text:     collector.text(),
		ExitCode: exitCode,
		Stderr:   strings.TrimRight(stderr.String(), "\r\n"),
	}
	log.Debug("Assistant finished", "exit_code", res.ExitCode, "text_len", len(res.Text), "stderr_len", len(res.Stderr))
	return res
}

// pump reads src in fixed-size chunks and hands each complete line to handle.
// The residual buffer gets one final parse at EOF.
func (r *Runner) pump(src io.Reader, handle func([]byte)) error {
	size := r.ChunkSize
	if size <= 0 {
		size = config.DefaultAssistantReadChunkSize
	}
	chunk := make([]byte, size)
	var splitter LineSplitter

	for {
		n, err := src.Read(chunk)
		if n > 0 {
			for _, line := range splitter.Feed(chunk[:n]) {
				handle(line)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	if rest := splitter.Flush(); rest != nil {
		handle(rest)
	}
	return nil
}

// textCollector prefers streamed deltas; a result payload only counts when
// no delta text arrived.
type textCollector struct {
	deltas strings.Builder
	result string
}

func (c *textCollector) observe(ev Event) {
	if text := ev.TextDelta(); text != "" {
		c.deltas.WriteString(text)
	}
	if ev.Kind == KindResult && ev.Result != "" {
		c.result = ev.Result
	}
}

func (c *textCollector) text() string {
	if c.deltas.Len() > 0 {
		return c.deltas.String()
	}
	return c.result
}
