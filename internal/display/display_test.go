package display

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

type recordingSink struct {
	frames []Frame
	err    error
}

func (r *recordingSink) Render(f Frame) error {
	r.frames = append(r.frames, f)
	return r.err
}

func (r *recordingSink) Close() error { return nil }

func TestScreenShow(t *testing.T) {
	sink := &recordingSink{}
	s := NewScreen(sink)

	s.Show("WiFi Baglaniliyor", 0, true, false)
	s.Show("Home", 1, false, false)
	if len(sink.frames) != 0 {
		t.Fatalf("deferred Show() rendered %d frames, want 0", len(sink.frames))
	}

	s.Flush()
	if len(sink.frames) != 1 {
		t.Fatalf("Flush() rendered %d frames, want 1", len(sink.frames))
	}
	got := sink.frames[0]
	if got[0] != "WiFi Baglaniliyo" {
		t.Errorf("row 0 = %q, want truncated to %d columns", got[0], Columns)
	}
	if got[1] != "Home" {
		t.Errorf("row 1 = %q, want Home", got[1])
	}

	// Flushing a clean screen renders nothing.
	s.Flush()
	if len(sink.frames) != 1 {
		t.Errorf("second Flush() rendered again")
	}
}

func TestScreenClearSemantics(t *testing.T) {
	s := NewHeadless()

	s.Show("a", 0, false, false)
	s.Show("b", 1, false, false)
	s.Show("replaced", 1, false, false)
	if f := s.Frame(); f[0] != "a" || f[1] != "replaced" {
		t.Errorf("row rewrite = %q, want [a replaced]", f[:2])
	}

	s.Show("fresh", 3, true, false)
	f := s.Frame()
	for i, row := range f {
		want := ""
		if i == 3 {
			want = "fresh"
		}
		if row != want {
			t.Errorf("after clearScreen row %d = %q, want %q", i, row, want)
		}
	}

	s.ClearRow(3)
	if f := s.Frame(); f[3] != "" {
		t.Errorf("ClearRow(3) left %q", f[3])
	}
}

func TestScreenIgnoresOutOfRangeRows(t *testing.T) {
	sink := &recordingSink{}
	s := NewScreen(sink)
	s.Show("x", -1, false, true)
	s.Show("x", Rows, true, true)
	s.ClearRow(99)
	if len(sink.frames) != 0 {
		t.Errorf("out-of-range rows rendered %d frames", len(sink.frames))
	}
}

func TestScreenSinkErrorIsSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("i2c nack")}
	s := NewScreen(sink)
	s.Show("ok", 0, false, true)
	if len(sink.frames) != 1 {
		t.Errorf("frames = %d, want 1", len(sink.frames))
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", "short"},
		{"exactly16chars!!", "exactly16chars!!"},
		{"seventeen chars!!", "seventeen chars!"},
		{"tab\there", "tab here"},
		{"Güneş 06:12 ışık", "Güneş 06:12 ışık"},
	}
	for _, tt := range tests {
		if got := Fit(tt.in); got != tt.want {
			t.Errorf("Fit(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestASCII(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Güneş", "Gunes"},
		{"Öğle", "Ogle"},
		{"İkindi", "Ikindi"},
		{"Akşam ışığı", "Aksam isigi"},
		{"plain", "plain"},
		{"€5", "?5"},
	}
	for _, tt := range tests {
		if got := ASCII(tt.in); got != tt.want {
			t.Errorf("ASCII(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type bufCloser struct {
	bytes.Buffer
	closed bool
	fail   bool
}

func (b *bufCloser) Write(p []byte) (int, error) {
	if b.fail {
		return 0, errors.New("port gone")
	}
	return b.Buffer.Write(p)
}

func (b *bufCloser) Close() error {
	b.closed = true
	return nil
}

func TestSerialSinkProtocol(t *testing.T) {
	port := &bufCloser{}
	sink := &SerialSink{dev: "/dev/null", open: func(string, int) (io.WriteCloser, error) { return port, nil }}

	var f Frame
	f[0] = "S:Öğle K:01:23"
	f[7] = "x"
	if err := sink.Render(f); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	out := port.String()
	if out[0] != serialClear {
		t.Errorf("frame does not start with clear byte: %q", out[:1])
	}
	lines := strings.Split(strings.TrimSuffix(out[1:], serialEOL), serialEOL)
	if len(lines) != Rows {
		t.Fatalf("got %d rows, want %d", len(lines), Rows)
	}
	for i, line := range lines {
		if len(line) != Columns {
			t.Errorf("row %d length = %d, want %d", i, len(line), Columns)
		}
	}
	if lines[0] != "S:Ogle K:01:23  " {
		t.Errorf("row 0 = %q", lines[0])
	}
}

func TestSerialSinkReopensAfterWriteFailure(t *testing.T) {
	broken := &bufCloser{fail: true}
	healthy := &bufCloser{}
	opens := 0
	sink := &SerialSink{dev: "/dev/ttyUSB0", open: func(string, int) (io.WriteCloser, error) {
		opens++
		if opens == 1 {
			return broken, nil
		}
		return healthy, nil
	}}

	if err := sink.Render(Frame{}); err == nil {
		t.Fatal("Render() on broken port succeeded, want error")
	}
	if !broken.closed {
		t.Error("broken port not closed")
	}
	if err := sink.Render(Frame{}); err != nil {
		t.Fatalf("Render() after reopen error = %v", err)
	}
	if opens != 2 {
		t.Errorf("opens = %d, want 2", opens)
	}
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewScreen(NewWriterSink(&buf))
	s.Show("Kurulum Modu!", 0, true, true)
	if !strings.Contains(buf.String(), "Kurulum Modu!") {
		t.Errorf("terminal output missing text:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "\x1b[J") {
		t.Error("writer sink should not rewrite in place")
	}
}
