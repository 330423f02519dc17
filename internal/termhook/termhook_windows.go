//go:build windows

package termhook

import "github.com/pkg/errors"

func rawMode(fd int) (Restore, error) {
	return nil, errors.New("raw IO not supported")
}
