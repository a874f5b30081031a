package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harunnryd/thinx/internal/assistant"
	"github.com/harunnryd/thinx/internal/config"
	"github.com/harunnryd/thinx/internal/errors"
	"github.com/harunnryd/thinx/internal/logger"
	"github.com/harunnryd/thinx/internal/prompt"
)

const maxRequestBody = 1 << 20

type Assistant interface {
	Run(ctx context.Context, prompt string, emit assistant.EmitFunc) assistant.Result
}

type PromptBuilder interface {
	Build(ctx context.Context, v prompt.Variant, message string) string
}

type Recorder interface {
	AppendTurn(ctx context.Context, identity, userContent, assistantContent string)
}

type Options struct {
	KeepaliveInterval  time.Duration
	KeepaliveThreshold time.Duration
	Limits             Limits
}

func OptionsFromConfig(cfg config.RelayConfig) (Options, error) {
	interval, err := config.DurationOrDefault(cfg.KeepaliveInterval, config.DefaultRelayKeepaliveInterval)
	if err != nil {
		return Options{}, fmt.Errorf("relay keepalive interval: %w", err)
	}
	threshold, err := config.DurationOrDefault(cfg.KeepaliveThreshold, config.DefaultRelayKeepaliveThreshold)
	if err != nil {
		return Options{}, fmt.Errorf("relay keepalive threshold: %w", err)
	}
	return Options{
		KeepaliveInterval:  interval,
		KeepaliveThreshold: threshold,
		Limits: Limits{
			MaxEventSize:  cfg.MaxEventSize,
			MaxChunkSize:  cfg.MaxChunkSize,
			SummaryPrefix: cfg.SummaryPrefix,
			ErrorPrefix:   cfg.ErrorPrefix,
		},
	}, nil
}

// Route binds a prompt variant to the way its progress is rendered.
type Route struct {
	Variant prompt.Variant
	Style   Style
}

type Relay struct {
	assistant Assistant
	prompts   PromptBuilder
	history   Recorder
	opts      Options
}

func New(a Assistant, prompts PromptBuilder, history Recorder, opts Options) *Relay {
	return &Relay{assistant: a, prompts: prompts, history: history, opts: opts}
}

func (r *Relay) Handler(route Route) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r.Stream(w, req, route)
	}
}

type messageRequest struct {
	Message string `json:"message"`
}

// Stream serves one chat turn as server-sent events. Headers are flushed
// before the body is read; the keep-alive task is stopped and awaited on
// every return path.
func (r *Relay) Stream(w http.ResponseWriter, req *http.Request, route Route) {
	ctx := logger.WithIdentity(req.Context(), route.Variant.Identity)
	log := logger.FromContext(ctx).With("variant", route.Variant.Name)

	// Without full duplex an HTTP/1 server discards the unread request body
	// as soon as the headers below are flushed.
	rc := http.NewResponseController(w)
	if err := rc.EnableFullDuplex(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Warn("Could not enable full duplex", "error", err)
	}
	if err := rc.SetReadDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Debug("Could not clear read deadline", "error", err)
	}
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Debug("Could not clear write deadline", "error", err)
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sess := NewSession(w)
	if err := sess.Flush(); err != nil {
		log.Debug("Client disconnected before stream start", "error", err)
		return
	}

	ka := startKeepAlive(sess, r.opts.KeepaliveInterval, r.opts.KeepaliveThreshold, log)
	defer ka.Stop()

	err := r.converse(ctx, sess, route, req.Body)
	switch {
	case err == nil:
	case errors.IsClientDisconnect(err) || sess.Closed():
		log.Debug("Client disconnected during stream", "error", err)
	default:
		log.Error("Stream failed", "error", err)
		_ = r.send(sess, r.opts.Limits.errorFrame(err.Error()))
	}
}

func (r *Relay) converse(ctx context.Context, sess *Session, route Route, body io.Reader) error {
	log := logger.FromContext(ctx)

	var in messageRequest
	if err := json.NewDecoder(io.LimitReader(body, maxRequestBody)).Decode(&in); err != nil && err != io.EOF {
		return errors.InvalidInput(fmt.Sprintf("decode request: %v", err))
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return r.send(sess, Frame{Type: FrameError, Message: "No message provided"})
	}
	log.Info("Message received", "preview", prefix(message, 50))

	text := r.prompts.Build(ctx, route.Variant, message)

	// The run outlives a disconnect: output is drained and the turn is kept.
	runCtx := context.WithoutCancel(ctx)
	res := r.assistant.Run(runCtx, text, func(ev assistant.Event) {
		for _, f := range route.Style.Frames(ev) {
			_ = r.sendProgress(sess, f)
		}
	})

	if !res.OK() {
		detail := res.Stderr
		if strings.TrimSpace(detail) == "" {
			detail = "No response"
		}
		log.Warn("Assistant returned no answer", "exit_code", res.ExitCode, "error", errors.ErrProcessFailed)
		return r.send(sess, r.opts.Limits.errorFrame(detail))
	}

	answer := StripDirectives(res.Text)
	r.history.AppendTurn(runCtx, route.Variant.Identity, message, answer)

	for _, f := range r.opts.Limits.responseFrames(answer) {
		if err := r.send(sess, f); err != nil {
			return err
		}
	}
	return r.send(sess, Frame{Type: FrameDone})
}

func (r *Relay) send(sess *Session, f Frame) error {
	data, err := encodeFrame(f)
	if err != nil {
		return err
	}
	return sess.WriteFrame(data)
}

func (r *Relay) sendProgress(sess *Session, f Frame) error {
	data, err := r.opts.Limits.progressPayload(f)
	if err != nil {
		return err
	}
	return sess.WriteFrame(data)
}
