package display

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	serial "go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/logging"
)

// Serial line protocol: a form feed clears the display and homes the cursor,
// then each row follows as exactly Columns characters terminated by CRLF.
const (
	serialClear = '\x0c'
	serialEOL   = "\r\n"
)

// SerialSink drives a character display attached to a serial port.
type SerialSink struct {
	mu   sync.Mutex
	dev  string
	baud int
	port io.WriteCloser
	open func(dev string, baud int) (io.WriteCloser, error)
}

// NewSerialSink opens dev at baud.
func NewSerialSink(dev string, baud int) (*SerialSink, error) {
	s := &SerialSink{dev: dev, baud: baud, open: openSerial}
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	return s, nil
}

func openSerial(dev string, baud int) (io.WriteCloser, error) {
	p, err := serial.Open(dev, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial %s: %w", dev, err)
	}
	return p, nil
}

func (s *SerialSink) ensureOpen() error {
	if s.port != nil {
		return nil
	}
	p, err := s.open(s.dev, s.baud)
	if err != nil {
		return err
	}
	s.port = p
	return nil
}

// Render implements Sink. A write failure closes the port so the next frame
// reopens it.
func (s *SerialSink) Render(frame Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpen(); err != nil {
		return err
	}

	if _, err := s.port.Write(encodeFrame(frame)); err != nil {
		logging.Debug("Serial display write failed, will reopen", zap.String("device", s.dev), zap.Error(err))
		s.port.Close()
		s.port = nil
		return fmt.Errorf("serial write %s: %w", s.dev, err)
	}
	return nil
}

// Close implements Sink.
func (s *SerialSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

func encodeFrame(frame Frame) []byte {
	var buf bytes.Buffer
	buf.WriteByte(serialClear)
	for _, row := range frame {
		line := ASCII(row)
		if len(line) > Columns {
			line = line[:Columns]
		}
		buf.WriteString(line)
		buf.WriteString(strings.Repeat(" ", Columns-len(line)))
		buf.WriteString(serialEOL)
	}
	return buf.Bytes()
}
