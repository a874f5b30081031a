package prompt

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/harunnryd/thinx/internal/logger"
	"github.com/harunnryd/thinx/internal/store"
)

// Block is one context section. Static blocks carry Text verbatim; a block
// with Path is read on every build and wrapped in <Tag>...</Tag>.
type Block struct {
	Tag  string
	Text string
	Path string
}

// Variant fixes everything that differs between assistant personas: the
// leading blocks, the identity whose log feeds the transcript, and the
// history window (HistoryLoad entries read, last HistoryWindow rendered).
type Variant struct {
	Name          string
	Identity      string
	Blocks        []Block
	HistoryLoad   int
	HistoryWindow int
}

type HistoryReader interface {
	ReadRecent(ctx context.Context, identity string, limit int) []store.Entry
}

type Assembler struct {
	history  HistoryReader
	readFile func(string) ([]byte, error)
}

func NewAssembler(history HistoryReader) *Assembler {
	return &Assembler{history: history, readFile: os.ReadFile}
}

// Build renders the prompt: variant blocks, then the transcript, then the
// user message, separated by blank lines. Empty sections are left out.
func (a *Assembler) Build(ctx context.Context, v Variant, message string) string {
	parts := make([]string, 0, len(v.Blocks)+2)

	for _, block := range v.Blocks {
		if text := a.render(ctx, v, block); text != "" {
			parts = append(parts, text)
		}
	}

	if transcript := a.transcript(ctx, v); transcript != "" {
		parts = append(parts, transcript)
	}

	parts = append(parts, "User message: "+message)
	return strings.Join(parts, "\n\n")
}

func (a *Assembler) render(ctx context.Context, v Variant, block Block) string {
	if block.Path == "" {
		return block.Text
	}

	data, err := a.readFile(block.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.FromContext(ctx).Warn("Could not read prompt context file",
				"variant", v.Name, "tag", block.Tag, "path", block.Path, "error", err)
		}
		return ""
	}
	if strings.TrimSpace(string(data)) == "" {
		return ""
	}
	return wrap(block.Tag, string(data))
}

func (a *Assembler) transcript(ctx context.Context, v Variant) string {
	if a.history == nil || v.HistoryLoad <= 0 || v.HistoryWindow <= 0 {
		return ""
	}

	entries := a.history.ReadRecent(ctx, v.Identity, v.HistoryLoad)
	if len(entries) == 0 {
		return ""
	}

	window := v.HistoryWindow
	if window > v.HistoryLoad {
		window = v.HistoryLoad
	}
	if len(entries) > window {
		entries = entries[len(entries)-window:]
	}

	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = fmt.Sprintf("%s: %s", entry.Role, entry.Content)
	}
	return wrap("conversation_history", strings.Join(lines, "\n"))
}

func wrap(tag, body string) string {
	return "<" + tag + ">\n" + body + "\n</" + tag + ">"
}
