// Package termhook implements the terminal-raw-mode hook referenced by
// section 1 ("terminal I/O... The core must expose well-defined hooks
// for each of these without being coupled to their implementations").
// A line-buffered, echoing terminal cannot deliver single-keystroke
// input (needed for, say, a Nial-level line editor or break-key
// detection) without first being switched to raw mode; this package
// owns exactly that switch and its restoration, nothing else — reading
// from the descriptor, deciding when to switch, and wiring the result
// into an interactive loop remain the hosting program's job.
//
// Grounded on cmd/retro/term.go's setRawIO, built on
// github.com/pkg/term/termios the same way.
package termhook

// Restore undoes a prior raw-mode switch, returning the terminal to its
// original settings. Calling Restore more than once is harmless; the
// second call is a no-op.
type Restore func()

// RawMode switches fd to raw mode (no canonical line buffering, no
// echo, one byte at a time) and returns a Restore to undo it. On
// platforms with no raw-mode support it returns an error.
func RawMode(fd int) (Restore, error) {
	return rawMode(fd)
}
