// Package sse decodes text/event-stream bodies returned by streaming
// completion providers.
package sse

import (
	"bufio"
	"io"
	"strings"
)

// Event is a single server-sent event.
type Event struct {
	Type string
	ID   string
	Data string
}

// Done reports whether the event is the OpenAI-style end-of-stream marker.
func (e *Event) Done() bool {
	return e != nil && strings.TrimSpace(e.Data) == "[DONE]"
}

// Reader parses SSE events from a source io.Reader.
type Reader struct {
	scanner *bufio.Scanner

	// current accumulates fields for the event being built in the current scan.
	current *Event
	data    []string
	hasData bool
}

// NewReader returns a Reader that parses SSE events from src.
func NewReader(src io.Reader) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &Reader{
		scanner: scanner,
		current: &Event{},
	}
}

// Next returns the next parsed event. It blocks until a complete event is
// available (terminated by a blank line). Next returns nil, nil when the
// source is exhausted.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		raw := strings.TrimSuffix(r.scanner.Text(), "\r")

		// A blank line signals the end of the current event.
		if raw == "" {
			if r.hasData {
				return r.flush(), nil
			}
			// Leading blank lines or keep-alive newlines.
			continue
		}

		// Lines starting with ':' are comments.
		if strings.HasPrefix(raw, ":") {
			continue
		}

		r.parseLine(raw)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// Stream ended without a trailing blank line.
	if r.hasData {
		return r.flush(), nil
	}

	return nil, nil
}

// parseLine accumulates a "field:value" line into the current event. A single
// leading space after the colon is stripped.
func (r *Reader) parseLine(line string) {
	field, value, ok := strings.Cut(line, ":")
	if !ok {
		field, value = line, ""
	}
	value = strings.TrimPrefix(value, " ")

	switch field {
	case "data":
		r.data = append(r.data, value)
		r.hasData = true
	case "event":
		r.current.Type = value
		r.hasData = true
	case "id":
		r.current.ID = value
		r.hasData = true
	}
}

func (r *Reader) flush() *Event {
	ev := r.current
	ev.Data = strings.Join(r.data, "\n")
	r.current = &Event{}
	r.data = nil
	r.hasData = false
	return ev
}
