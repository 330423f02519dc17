package parse

import (
	"fmt"
	"strings"

	"github.com/arrlang/nial/internal/scan"
)

// Error is a parse-error fault (section 7): non-triggering, carrying a
// message plus +/-N tokens of context around the failure point, the way
// the original parser's error reporting does.
type Error struct {
	Message  string
	Position int
	Context  []scan.Token
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parse error at %d: %s", e.Position, e.Message)
	if len(e.Context) > 0 {
		b.WriteString(" near: ")
		for i, t := range e.Context {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

const contextRadius = 3

// newError builds an Error with up to contextRadius tokens of context on
// either side of pos within toks.
func newError(toks []scan.Token, pos int, format string, args ...interface{}) *Error {
	lo := pos - contextRadius
	if lo < 0 {
		lo = 0
	}
	hi := pos + contextRadius + 1
	if hi > len(toks) {
		hi = len(toks)
	}
	ctx := append([]scan.Token(nil), toks[lo:hi]...)
	position := 0
	if pos >= 0 && pos < len(toks) {
		position = toks[pos].Position
	}
	return &Error{
		Message:  fmt.Sprintf(format, args...),
		Position: position,
		Context:  ctx,
	}
}
