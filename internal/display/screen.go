package display

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/logging"
)

// Frame is the full contents of the display, one string per row.
type Frame [Rows]string

// Sink receives complete frames from a Screen.
type Sink interface {
	Render(frame Frame) error
	Close() error
}

// Screen is a framebuffer-backed Reporter.
type Screen struct {
	mu    sync.Mutex
	sink  Sink
	frame Frame
	dirty bool
}

// NewScreen creates a blank screen that renders to sink.
func NewScreen(sink Sink) *Screen {
	return &Screen{sink: sink}
}

// Show implements Reporter.
func (s *Screen) Show(text string, row int, clearScreen, flush bool) {
	if row < 0 || row >= Rows {
		logging.Debug("Display row out of range", zap.Int("row", row), zap.String("text", text))
		return
	}

	s.mu.Lock()
	if clearScreen {
		s.frame = Frame{}
	}
	s.frame[row] = Fit(text)
	s.dirty = true
	s.mu.Unlock()

	if flush {
		s.Flush()
	}
}

// ClearRow implements Reporter.
func (s *Screen) ClearRow(row int) {
	if row < 0 || row >= Rows {
		return
	}
	s.mu.Lock()
	s.frame[row] = ""
	s.dirty = true
	s.mu.Unlock()
}

// Flush implements Reporter. Render errors are logged, never returned.
func (s *Screen) Flush() {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	frame := s.frame
	s.dirty = false
	s.mu.Unlock()

	if err := s.sink.Render(frame); err != nil {
		logging.Warn("Display update failed", zap.Error(err))
	}
}

// Frame returns a copy of the current framebuffer.
func (s *Screen) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Close releases the sink.
func (s *Screen) Close() error {
	return s.sink.Close()
}

// Fit truncates text to the display width, replacing control characters
// with spaces.
func Fit(text string) string {
	text = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, text)

	r := []rune(text)
	if len(r) > Columns {
		r = r[:Columns]
	}
	return string(r)
}

// nopSink is the sink behind a Screen when output is disabled.
type nopSink struct{}

func (nopSink) Render(Frame) error { return nil }
func (nopSink) Close() error       { return nil }

// NewHeadless returns a Screen that keeps a framebuffer but renders nowhere.
func NewHeadless() *Screen {
	return NewScreen(nopSink{})
}
