// Package display drives the status reporter: a small character display
// showing short status lines keyed by row.
//
// Components talk to the Reporter interface. Screen implements it on top of a
// 16x8 framebuffer and forwards whole frames to a Sink (a terminal panel, a
// serial-attached character display, or nothing).
package display

// Display geometry of a 128x64 panel with an 8x8 font.
const (
	Columns = 16
	Rows    = 8
)

// Reporter shows short text lines on the status display.
type Reporter interface {
	// Show writes text on row, truncated to Columns. When clearScreen is set
	// the whole surface is blanked first, otherwise only row is. When flush
	// is false the update is deferred until the next Flush.
	Show(text string, row int, clearScreen, flush bool)
	// ClearRow blanks one row without flushing.
	ClearRow(row int)
	// Flush pushes pending updates to the physical display.
	Flush()
}

// Nop discards everything. Used when no display is available.
type Nop struct{}

func (Nop) Show(string, int, bool, bool) {}
func (Nop) ClearRow(int)                 {}
func (Nop) Flush()                       {}

var _ Reporter = Nop{}
