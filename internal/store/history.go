package store

import (
	"context"
	"time"

	"github.com/harunnryd/thinx/internal/logger"
)

// History is the conversation log API used by the web relay. Failures are
// logged and swallowed: a broken disk must never break a chat reply.
type History struct {
	worker *Worker
	now    func() time.Time
}

func NewHistory(worker *Worker) *History {
	return &History{worker: worker, now: time.Now}
}

func (h *History) Append(ctx context.Context, identity string, role Role, content string) {
	h.write(ctx, identity, NewEntry(role, content, h.now()))
}

// AppendTurn records one exchange; both lines land adjacent in the log.
func (h *History) AppendTurn(ctx context.Context, identity, userContent, assistantContent string) {
	now := h.now()
	h.write(ctx, identity,
		NewEntry(RoleUser, userContent, now),
		NewEntry(RoleAssistant, assistantContent, now),
	)
}

func (h *History) write(ctx context.Context, identity string, entries ...Entry) {
	if err := h.worker.Append(ctx, identity, entries...); err != nil {
		logger.FromContext(ctx).Error("Failed to save history", "identity", identity, "error", err)
	}
}

// ReadRecent returns at most limit entries, oldest first. Errors yield an empty slice.
func (h *History) ReadRecent(ctx context.Context, identity string, limit int) []Entry {
	entries, err := h.worker.ReadRecent(ctx, identity, limit)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to load history", "identity", identity, "error", err)
		return []Entry{}
	}
	return entries
}

func (h *History) Identities(ctx context.Context) []IdentityMeta {
	metas, err := h.worker.Identities(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to list history identities", "error", err)
		return []IdentityMeta{}
	}
	return metas
}
