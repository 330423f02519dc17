//go:build !windows

package termhook

import (
	"syscall"

	"github.com/pkg/errors"
	"github.com/pkg/term/termios"
)

func rawMode(fd int) (Restore, error) {
	var saved syscall.Termios
	if err := termios.Tcgetattr(uintptr(fd), &saved); err != nil {
		return nil, errors.Wrap(err, "Tcgetattr failed")
	}
	raw := saved
	raw.Iflag &^= syscall.IGNBRK | syscall.ISTRIP | syscall.IXON | syscall.IXOFF
	raw.Iflag |= syscall.BRKINT | syscall.IGNPAR
	raw.Lflag &^= syscall.ICANON | syscall.IEXTEN | syscall.ECHO
	raw.Cc[syscall.VMIN] = 1
	raw.Cc[syscall.VTIME] = 0
	if err := termios.Tcsetattr(uintptr(fd), termios.TCSANOW, &raw); err != nil {
		termios.Tcsetattr(uintptr(fd), termios.TCSANOW, &saved)
		return nil, errors.Wrap(err, "Tcsetattr failed")
	}
	return func() {
		termios.Tcsetattr(uintptr(fd), termios.TCSANOW, &saved)
	}, nil
}
