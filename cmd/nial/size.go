package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// sizeValue implements flag.Value for `-size N[K|M|G]`, grounded on
// cmd/retro/main.go's cellSizeBits: a small custom Value type that
// parses and validates its own textual form instead of relying on the
// stock flag.Int.
type sizeValue int

func (s *sizeValue) String() string { return strconv.Itoa(int(*s)) }

func (s *sizeValue) Set(arg string) error {
	n, err := parseSizeSuffix(arg)
	if err != nil {
		return err
	}
	*s = sizeValue(n)
	return nil
}

func (s *sizeValue) Get() interface{} { return int(*s) }

// parseSizeSuffix parses an integer optionally followed by a single
// K/M/G (case-insensitive) multiplier suffix, as required by section 6
// for both `-size` and `+size`.
func parseSizeSuffix(arg string) (int, error) {
	if arg == "" {
		return 0, errors.New("empty size")
	}
	mult := 1
	numPart := arg
	switch strings.ToUpper(arg[len(arg)-1:]) {
	case "K":
		mult = 1 << 10
		numPart = arg[:len(arg)-1]
	case "M":
		mult = 1 << 20
		numPart = arg[:len(arg)-1]
	case "G":
		mult = 1 << 30
		numPart = arg[:len(arg)-1]
	}
	n, err := strconv.Atoi(numPart)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", arg)
	}
	if n < 0 {
		return 0, errors.Errorf("invalid size %q: negative", arg)
	}
	return n * mult, nil
}
