// Package ui renders styled terminal output for the vakitd CLI and the
// terminal display sink.
//
// Output is "render once and print": nothing here reads from the terminal.
//
//   - Header: banner naming the command and its parameters
//   - Result: success/failure/warning box with ordered details
//   - Panel: bordered character-display frame used by display.TerminalSink
//
// All widths adapt to the current terminal via GetTerminalWidth.
package ui
