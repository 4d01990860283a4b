package langgraph

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// sseEvent is one decoded server-sent event: the event name and its raw data
// payload. Multi-line data is joined with newlines per the SSE framing rules.
type sseEvent struct {
	name string
	data []byte
}

// sseScanner incrementally decodes server-sent events from a byte stream. An
// event is dispatched on its terminating blank line; a partial event cut off
// by stream end is discarded. Comment lines (leading colon) are ignored.
type sseScanner struct {
	scanner *bufio.Scanner
	name    string
	data    [][]byte
}

func newSSEScanner(r io.Reader) *sseScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	return &sseScanner{scanner: sc}
}

// Next returns the next complete event. It returns io.EOF at regular stream
// end and the underlying read error otherwise.
func (s *sseScanner) Next() (sseEvent, error) {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		switch {
		case line == "":
			if len(s.data) == 0 {
				s.name = ""
				continue
			}
			ev := sseEvent{name: s.name, data: bytes.Join(s.data, []byte("\n"))}
			s.name = ""
			s.data = nil
			return ev, nil
		case strings.HasPrefix(line, ":"):
			// Comment, typically a keep-alive.
		case strings.HasPrefix(line, "event:"):
			s.name = trimFieldValue(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			s.data = append(s.data, []byte(trimFieldValue(line[len("data:"):])))
		default:
			// Unknown field, ignored per the SSE processing model.
		}
	}
	if err := s.scanner.Err(); err != nil {
		return sseEvent{}, err
	}
	return sseEvent{}, io.EOF
}

// trimFieldValue strips the single optional space after the field colon.
func trimFieldValue(v string) string {
	return strings.TrimPrefix(v, " ")
}
