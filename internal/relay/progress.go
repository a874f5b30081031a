package relay

import (
	"fmt"
	"strings"

	"github.com/harunnryd/thinx/internal/assistant"
)

const (
	toolResultBrief   = 100
	toolResultMessage = 150
	genericToolResult = "Got result"
	unnamedTool       = "tool"
)

// Style decides how assistant events read in the browser.
type Style struct {
	InitMessage     string
	ToolFormat      string
	DetailedResults bool
}

var (
	ChatStyle    = Style{InitMessage: "Initializing...", ToolFormat: "Using %s...", DetailedResults: true}
	DrawBotStyle = Style{InitMessage: "Initializing Draw Bot...", ToolFormat: "%s"}
)

// Frames maps one assistant event to zero or more progress frames.
func (s Style) Frames(ev assistant.Event) []Frame {
	switch {
	case ev.IsInit():
		return []Frame{{Type: FrameStatus, Message: s.InitMessage}}
	case ev.Kind == assistant.KindAssistant:
		var frames []Frame
		for _, use := range ev.ToolUses() {
			name := use.Name
			if name == "" {
				name = unnamedTool
			}
			frames = append(frames, Frame{
				Type:    FrameTool,
				Name:    name,
				Message: fmt.Sprintf(s.ToolFormat, name),
			})
		}
		return frames
	case ev.Kind == assistant.KindUser:
		var frames []Frame
		for _, result := range ev.ToolResults() {
			frames = append(frames, Frame{Type: FrameToolResult, Message: s.preview(result)})
		}
		return frames
	}
	return nil
}

func (s Style) preview(block assistant.Block) string {
	if !s.DetailedResults {
		return genericToolResult
	}
	content, ok := block.ContentString()
	if !ok {
		return genericToolResult
	}

	var brief string
	if runes := []rune(content); len(runes) > toolResultBrief {
		brief = flatten(string(runes[:toolResultBrief])) + "..."
	} else {
		brief = flatten(content)
	}
	return prefix(brief, toolResultMessage)
}

func flatten(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
