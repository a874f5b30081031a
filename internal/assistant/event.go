package assistant

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/harunnryd/thinx/internal/errors"
)

type Kind string

const (
	KindSystem            Kind = "system"
	KindAssistant         Kind = "assistant"
	KindUser              Kind = "user"
	KindResult            Kind = "result"
	KindContentBlockDelta Kind = "content_block_delta"
	KindStreamEvent       Kind = "stream_event"
	KindUnknown           Kind = "unknown"
)

const (
	BlockText       = "text"
	BlockTextDelta  = "text_delta"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Event is one decoded line of the assistant's stream-json output. Tags the
// decoder does not model come back as KindUnknown with Type preserved.
type Event struct {
	Kind    Kind
	Type    string
	Subtype string
	Blocks  []Block
	Delta   *Delta
	Result  string
	Inner   *Event
	Raw     json.RawMessage
}

type Block struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
	Delta   *Delta          `json:"delta,omitempty"`
}

type Delta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wireEvent struct {
	Type    string          `json:"type"`
	Subtype string          `json:"subtype"`
	Message *wireMessage    `json:"message"`
	Delta   *Delta          `json:"delta"`
	Result  json.RawMessage `json:"result"`
	Event   json.RawMessage `json:"event"`
}

type wireMessage struct {
	Content json.RawMessage `json:"content"`
}

// Decode parses a single stream-json line.
func Decode(line []byte) (Event, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Event{}, fmt.Errorf("line is not a JSON object: %w", errors.ErrProtocol)
	}

	var wire wireEvent
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return Event{}, fmt.Errorf("decode event: %v: %w", err, errors.ErrProtocol)
	}

	ev := Event{
		Kind:    kindOf(wire.Type),
		Type:    wire.Type,
		Subtype: wire.Subtype,
		Delta:   wire.Delta,
		Raw:     json.RawMessage(append([]byte(nil), trimmed...)),
	}

	if wire.Message != nil {
		ev.Blocks = decodeBlocks(wire.Message.Content)
	}

	if len(wire.Result) > 0 {
		var text string
		if err := json.Unmarshal(wire.Result, &text); err == nil {
			ev.Result = text
		}
	}

	if ev.Kind == KindStreamEvent && len(wire.Event) > 0 {
		if inner, err := Decode(wire.Event); err == nil {
			ev.Inner = &inner
		}
	}

	return ev, nil
}

func kindOf(tag string) Kind {
	switch Kind(tag) {
	case KindSystem, KindAssistant, KindUser, KindResult, KindContentBlockDelta, KindStreamEvent:
		return Kind(tag)
	default:
		return KindUnknown
	}
}

// decodeBlocks accepts the array form of message.content; a plain string
// content carries no blocks.
func decodeBlocks(raw json.RawMessage) []Block {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}
	var blocks []Block
	if err := json.Unmarshal(trimmed, &blocks); err != nil {
		return nil
	}
	return blocks
}

// TextDelta returns the incremental answer text carried by the event, if any.
func (e Event) TextDelta() string {
	switch e.Kind {
	case KindContentBlockDelta:
		if e.Delta != nil && e.Delta.Type == BlockTextDelta {
			return e.Delta.Text
		}
	case KindStreamEvent:
		if e.Inner != nil {
			return e.Inner.TextDelta()
		}
	case KindAssistant:
		var out string
		for _, block := range e.Blocks {
			switch {
			case block.Delta != nil && block.Delta.Type == BlockTextDelta:
				out += block.Delta.Text
			case block.Type == BlockTextDelta:
				out += block.Text
			}
		}
		return out
	}
	return ""
}

func (e Event) IsInit() bool {
	return e.Kind == KindSystem && e.Subtype == "init"
}

// ToolUses returns the tool_use blocks of an assistant message.
func (e Event) ToolUses() []Block {
	if e.Kind != KindAssistant {
		return nil
	}
	return blocksOfType(e.Blocks, BlockToolUse)
}

// ToolResults returns the tool_result blocks of a user message.
func (e Event) ToolResults() []Block {
	if e.Kind != KindUser {
		return nil
	}
	return blocksOfType(e.Blocks, BlockToolResult)
}

func blocksOfType(blocks []Block, typ string) []Block {
	var out []Block
	for _, block := range blocks {
		if block.Type == typ {
			out = append(out, block)
		}
	}
	return out
}

// ContentString returns the block content when it is a JSON string.
func (b Block) ContentString() (string, bool) {
	trimmed := bytes.TrimSpace(b.Content)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", false
	}
	return s, true
}
