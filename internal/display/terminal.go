package display

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/ui"
)

// TerminalSink draws frames as a bordered panel on a terminal.
// On a TTY each frame replaces the previous one in place; otherwise frames
// are appended so they stay readable in a log.
type TerminalSink struct {
	w       io.Writer
	inPlace bool
	lines   int
	now     func() time.Time
}

// NewTerminalSink creates a sink writing to stdout.
func NewTerminalSink() *TerminalSink {
	return &TerminalSink{
		w:       os.Stdout,
		inPlace: ui.IsTerminal(os.Stdout),
		now:     time.Now,
	}
}

// NewWriterSink creates a sink that appends frames to w.
func NewWriterSink(w io.Writer) *TerminalSink {
	return &TerminalSink{w: w, now: time.Now}
}

// Render implements Sink.
func (t *TerminalSink) Render(frame Frame) error {
	out := ui.RenderPanel(frame[:], Columns, t.now().Format("15:04:05"))

	if t.inPlace && t.lines > 0 {
		// Move the cursor back up over the previous panel.
		if _, err := fmt.Fprintf(t.w, "\x1b[%dA\x1b[J", t.lines); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(t.w, out); err != nil {
		return err
	}
	t.lines = countLines(out)
	return nil
}

// Close implements Sink.
func (t *TerminalSink) Close() error {
	return nil
}

func countLines(s string) int {
	n := 1
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}
	return n
}
