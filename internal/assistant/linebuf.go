package assistant

import "bytes"

// LineSplitter reassembles newline-delimited records from arbitrarily sized
// chunks. Feeding the same bytes in any split yields the same lines.
type LineSplitter struct {
	buf     []byte
	scanned int
}

// Feed appends chunk and returns every complete non-blank line, without the
// trailing newline. Returned slices do not alias the internal buffer.
func (s *LineSplitter) Feed(chunk []byte) [][]byte {
	s.buf = append(s.buf, chunk...)

	var lines [][]byte
	start := 0
	for {
		idx := bytes.IndexByte(s.buf[s.scanned:], '\n')
		if idx < 0 {
			break
		}
		end := s.scanned + idx
		if line := bytes.TrimSpace(s.buf[start:end]); len(line) > 0 {
			lines = append(lines, append([]byte(nil), line...))
		}
		start = end + 1
		s.scanned = start
	}

	if start > 0 {
		remaining := copy(s.buf, s.buf[start:])
		s.buf = s.buf[:remaining]
	}
	s.scanned = len(s.buf)
	return lines
}

// Flush returns the unterminated remainder, or nil when it is blank.
func (s *LineSplitter) Flush() []byte {
	rest := bytes.TrimSpace(s.buf)
	s.buf = s.buf[:0]
	s.scanned = 0
	if len(rest) == 0 {
		return nil
	}
	return append([]byte(nil), rest...)
}

func (s *LineSplitter) Buffered() int {
	return len(s.buf)
}
