package agent

import (
	"io"
	"strings"
	"sync"
)

// TerminalWidth is the wrap column used by the terminal sink.
const TerminalWidth = 180

// Sink receives the agent's output lines. Flush returns whatever the sink
// holds for the caller and empties it.
type Sink interface {
	Emit(line string)
	Flush() string
}

// Listener observes every emitted line, e.g. to forward it over a websocket.
type Listener func(line string)

// StreamSink prints each line as it is produced.
type StreamSink struct {
	mu    sync.Mutex
	w     io.Writer
	width int
}

var _ Sink = &StreamSink{}

// NewStreamSink wraps lines at width columns; width <= 0 disables wrapping.
func NewStreamSink(w io.Writer, width int) *StreamSink {
	return &StreamSink{w: w, width: width}
}

func (s *StreamSink) Emit(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, "\n"+Wrap(line, s.width)+"\n")
}

func (s *StreamSink) Flush() string {
	return ""
}

// BufferSink accumulates lines into one string.
type BufferSink struct {
	mu  sync.Mutex
	buf strings.Builder
}

var _ Sink = &BufferSink{}

func NewBufferSink() *BufferSink {
	return &BufferSink{}
}

func (s *BufferSink) Emit(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.WriteString("\n")
	s.buf.WriteString(line)
}

func (s *BufferSink) Flush() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.buf.String()
	s.buf.Reset()
	return out
}

// Wrap breaks text on spaces so no line exceeds width runes, keeping existing
// line breaks. Words longer than width are left whole.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var out strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out.WriteString("\n")
		}
		col := 0
		for _, word := range strings.Fields(line) {
			n := len([]rune(word))
			switch {
			case col == 0:
			case col+1+n > width:
				out.WriteString("\n")
				col = 0
			default:
				out.WriteString(" ")
				col++
			}
			out.WriteString(word)
			col += n
		}
	}
	return out.String()
}
