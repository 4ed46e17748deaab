package agent

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// maxEventSize bounds one SSE event; generated images travel inline as
// base64 so events can be large.
const maxEventSize = 64 << 20

// StreamReader consumes the producer's SSE action stream. Each event is
// one JSON-encoded envelope delivered as "data: <json>" lines.
type StreamReader struct {
	scanner *bufio.Scanner
}

func NewStreamReader(r io.Reader) *StreamReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxEventSize)
	return &StreamReader{scanner: scanner}
}

// Next returns the next decoded envelope payload. It reports io.EOF
// when the stream ends and ErrMalformedEvent for an undecodable event.
func (r *StreamReader) Next() (map[string]any, error) {
	var dataLines []string
	for r.scanner.Scan() {
		line := r.scanner.Text()

		// A blank line terminates the current event.
		if line == "" {
			if len(dataLines) == 0 {
				continue
			}
			return decodeEvent(strings.Join(dataLines, "\n"))
		}

		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
		// event:, id:, retry: and comment lines are ignored.
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if len(dataLines) > 0 {
		return decodeEvent(strings.Join(dataLines, "\n"))
	}
	return nil, io.EOF
}

// ErrMalformedEvent wraps a JSON decoding failure so callers can treat
// it as a droppable protocol error rather than a transport failure.
type ErrMalformedEvent struct {
	Data string
	Err  error
}

func (e *ErrMalformedEvent) Error() string {
	return fmt.Sprintf("malformed stream event: %v", e.Err)
}

func (e *ErrMalformedEvent) Unwrap() error { return e.Err }

func decodeEvent(data string) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, &ErrMalformedEvent{Data: data, Err: err}
	}
	return payload, nil
}
