package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// ReadLog returns up to limit of the newest well-formed entries in path, oldest
// first. limit <= 0 returns every entry. A missing file is an empty log.
// Lines that fail to decode are skipped one by one.
func ReadLog(path string, limit int) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	defer f.Close()

	return decodeEntries(f, path, limit)
}

func decodeEntries(r io.Reader, source string, limit int) ([]Entry, error) {
	reader := bufio.NewReader(r)
	entries := make([]Entry, 0)
	lineNo := 0

	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			if entry, ok := decodeLine(line, source, lineNo); ok {
				entries = append(entries, entry)
				if limit > 0 && len(entries) > limit*2 {
					entries = append(entries[:0], entries[len(entries)-limit:]...)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func decodeLine(line []byte, source string, lineNo int) (Entry, bool) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(trimmed, &entry); err != nil {
		slog.Warn("Skipping corrupt history line", "path", source, "line", lineNo, "error", err)
		return Entry{}, false
	}
	return entry, true
}

// appendEntries writes every entry with a single write on an O_APPEND
// descriptor, then syncs. Entries of one call are adjacent in the log. A torn
// final line left by a crash is terminated first so it cannot swallow the
// next entry.
func appendEntries(path string, entries []Entry) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("encode entry: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	torn, err := endsWithoutNewline(f)
	if err != nil {
		return err
	}
	data := buf.Bytes()
	if torn {
		data = append([]byte{'\n'}, data...)
	}

	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func endsWithoutNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}
