// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// MaxEventSize is the maximum allowed size for a single SSE event (64KB).
const MaxEventSize = 64 * 1024

// DoneSentinel terminates OpenAI-compatible event streams.
const DoneSentinel = "[DONE]"

// =============================================================================
// SSE READER
// =============================================================================

// Event is one Server-Sent Event.
type Event struct {
	Type string
	Data []byte
}

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadEvent reads the next SSE event from the stream.
// Multi-line data fields are joined with newlines. Comments and the id and
// retry fields are ignored. Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (Event, error) {
	var ev Event
	var dataLines [][]byte
	size := 0

	flush := func() Event {
		ev.Data = bytes.Join(dataLines, []byte("\n"))
		return ev
	}

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return Event{}, err
		}
		eof := err == io.EOF

		size += len(line)
		if size > MaxEventSize {
			return Event{}, fmt.Errorf("sse event too large: more than %d bytes", MaxEventSize)
		}

		line = bytes.TrimRight(line, "\r\n")

		switch {
		case len(line) == 0:
			// Blank line ends the event
			if len(dataLines) > 0 {
				return flush(), nil
			}
			ev.Type = ""
			size = 0
		case line[0] == ':':
		case bytes.HasPrefix(line, []byte("event:")):
			ev.Type = string(bytes.TrimSpace(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			data := line[len("data:"):]
			if len(data) > 0 && data[0] == ' ' {
				data = data[1:]
			}
			dataLines = append(dataLines, append([]byte(nil), data...))
		}

		if eof {
			if len(dataLines) > 0 {
				return flush(), nil
			}
			return Event{}, io.EOF
		}
	}
}

// IsDone reports whether the event is the [DONE] terminator.
func (e Event) IsDone() bool {
	return string(bytes.TrimSpace(e.Data)) == DoneSentinel
}
