package relay

import (
	"bytes"
	"encoding/json"
)

const (
	FrameStatus        = "status"
	FrameTool          = "tool"
	FrameToolResult    = "tool_result"
	FrameResponse      = "response"
	FrameResponseChunk = "response_chunk"
	FrameError         = "error"
	FrameDone          = "done"
)

type Frame struct {
	Type      string  `json:"type"`
	Name      string  `json:"name,omitempty"`
	Message   string  `json:"message,omitempty"`
	Content   *string `json:"content,omitempty"`
	Partial   *bool   `json:"partial,omitempty"`
	Truncated bool    `json:"truncated,omitempty"`
}

// Limits bounds what a single frame may carry. Sizes count runes for text
// and bytes for encoded frames.
type Limits struct {
	MaxEventSize  int
	MaxChunkSize  int
	SummaryPrefix int
	ErrorPrefix   int
}

func encodeFrame(f Frame) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(f); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// progressPayload encodes f, replacing it with a short summary when the
// encoding exceeds MaxEventSize.
func (l Limits) progressPayload(f Frame) ([]byte, error) {
	data, err := encodeFrame(f)
	if err != nil {
		return nil, err
	}
	if l.MaxEventSize <= 0 || len(data) <= l.MaxEventSize {
		return data, nil
	}

	typ := f.Type
	if typ == "" {
		typ = FrameStatus
	}
	message := f.Message
	if message == "" {
		message = "Processing..."
	}
	return encodeFrame(Frame{
		Type:      typ,
		Message:   prefix(message, l.SummaryPrefix) + "...",
		Truncated: true,
	})
}

// responseFrames splits the final answer. Text of at most MaxChunkSize runes
// is one response frame; longer text becomes partial response_chunk frames
// closed by a response frame with partial=false.
func (l Limits) responseFrames(text string) []Frame {
	runes := []rune(text)
	if l.MaxChunkSize <= 0 || len(runes) <= l.MaxChunkSize {
		return []Frame{{Type: FrameResponse, Content: &text}}
	}

	var frames []Frame
	for start := 0; start < len(runes); start += l.MaxChunkSize {
		end := start + l.MaxChunkSize
		last := end >= len(runes)
		if last {
			end = len(runes)
		}
		chunk := string(runes[start:end])
		partial := !last
		typ := FrameResponseChunk
		if last {
			typ = FrameResponse
		}
		frames = append(frames, Frame{Type: typ, Content: &chunk, Partial: &partial})
	}
	return frames
}

func (l Limits) errorFrame(detail string) Frame {
	return Frame{Type: FrameError, Message: prefix(detail, l.ErrorPrefix)}
}

func prefix(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
