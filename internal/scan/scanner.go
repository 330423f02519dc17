package scan

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Scanner turns source text into a Token stream. It is not safe for
// concurrent use; callers that need that should wrap it externally — the
// language core itself is single-threaded (section 5).
type Scanner struct {
	r       *bufio.Reader
	pos     int
	pending rune
	hasPend bool
	indent  []int // stack of indentation levels, for Indent/Exdent tokens
}

// New creates a Scanner reading from r.
func New(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r), indent: []int{0}}
}

// ScanAll runs the scanner to completion and returns the full token
// stream, or the first scan error encountered (section 4.C: "a scan
// error produces a fault with a specific message and halts the scan").
func ScanAll(r io.Reader) ([]Token, error) {
	s := New(r)
	var out []Token
	for {
		tok, err := s.Next()
		if err != nil {
			if errors.Cause(err) == io.EOF {
				return out, nil
			}
			return out, err
		}
		out = append(out, tok)
	}
}

func (s *Scanner) readRune() (rune, error) {
	if s.hasPend {
		s.hasPend = false
		s.pos++
		return s.pending, nil
	}
	r, _, err := s.r.ReadRune()
	if err != nil {
		return 0, err
	}
	s.pos++
	return r, nil
}

func (s *Scanner) unread(r rune) {
	s.pending = r
	s.hasPend = true
	s.pos--
}

func (s *Scanner) peek() (rune, error) {
	r, err := s.readRune()
	if err != nil {
		return 0, err
	}
	s.unread(r)
	return r, nil
}

// Next scans and returns the next token, or io.EOF (wrapped) when the
// input is exhausted.
func (s *Scanner) Next() (Token, error) {
	for {
		start := s.pos
		r, err := s.readRune()
		if err != nil {
			return Token{}, errors.Wrap(io.EOF, "scan")
		}
		switch classify(r) {
		case classNewline:
			return Token{Property: EOL, Text: "\n", Position: start}, nil
		case classSpace:
			continue
		case classLetter:
			return s.scanIdent(r, start)
		case classDigit:
			return s.scanNumber(r, start)
		case classSingleQuote:
			return s.scanQuoted(start)
		case classDoubleQuote:
			return s.scanFault(start)
		case classQuestion:
			// '?' alone is a symbol; '?name' (no space) is handled by
			// scanFault above when source uses the '"'-quoted spelling.
			// The bare-leading-? fault spelling is handled here.
			return s.scanBareFault(start)
		case classSymbol:
			if r == '(' {
				if nxt, perr := s.peek(); perr == nil && nxt == '*' {
					if err := s.skipComment(); err != nil {
						return Token{}, err
					}
					continue
				}
			}
			return Token{Property: Delim, Text: string(r), Position: start}, nil
		default:
			return Token{}, errors.Errorf("scan: unexpected character %q at %d", r, start)
		}
	}
}

func (s *Scanner) scanIdent(first rune, start int) (Token, error) {
	var b strings.Builder
	b.WriteRune(first)
	for {
		r, err := s.readRune()
		if err != nil {
			break
		}
		c := classify(r)
		if c != classLetter && c != classDigit {
			s.unread(r)
			break
		}
		b.WriteRune(r)
	}
	return Token{Property: Identifier, Text: strings.ToUpper(b.String()), Position: start}, nil
}

func (s *Scanner) scanNumber(first rune, start int) (Token, error) {
	var b strings.Builder
	b.WriteRune(first)
	sub := IntLit
	for {
		r, err := s.readRune()
		if err != nil {
			break
		}
		switch {
		case classify(r) == classDigit:
			b.WriteRune(r)
		case r == '.' && sub == IntLit:
			sub = RealLit
			b.WriteRune(r)
		case (r == 'e' || r == 'E') && (sub == IntLit || sub == RealLit):
			sub = RealLit
			b.WriteRune(r)
			if n, err2 := s.peek(); err2 == nil && (n == '+' || n == '-') {
				rn, _ := s.readRune()
				b.WriteRune(rn)
			}
		case r == 'i' || r == 'I':
			sub = ImaginaryLit
			b.WriteRune(r)
			goto done
		default:
			s.unread(r)
			goto done
		}
	}
done:
	return Token{Property: ConstSubKind, Sub: sub, Text: b.String(), Position: start}, nil
}

// scanQuoted handles the single-quote-leading literals: a phrase when
// there is no matching closing quote before a delimiter/space, a string
// (with doubled '' as an escaped quote) when a closing quote is found.
func (s *Scanner) scanQuoted(start int) (Token, error) {
	var b strings.Builder
	for {
		r, err := s.readRune()
		if err != nil {
			// unterminated: treat what we have as a phrase (legacy
			// 'name leading-quote spelling never requires a closer).
			return Token{Property: ConstSubKind, Sub: PhraseLit, Text: b.String(), Position: start}, nil
		}
		if r == '\'' {
			nxt, perr := s.peek()
			if perr == nil && nxt == '\'' {
				// doubled quote: literal quote character, string continues
				s.readRune()
				b.WriteRune('\'')
				continue
			}
			// matching close: this was a string literal
			return Token{Property: ConstSubKind, Sub: StringLit, Text: b.String(), Position: start}, nil
		}
		if classify(r) == classSpace || classify(r) == classNewline || classify(r) == classSymbol {
			// no closing quote reached before a break: it's a phrase,
			// and the breaking rune is pushed back for the next token.
			s.unread(r)
			return Token{Property: ConstSubKind, Sub: PhraseLit, Text: b.String(), Position: start}, nil
		}
		b.WriteRune(r)
	}
}

// scanFault handles the double-quoted fault-message spelling used when a
// fault literal's text needs embedded spaces; the common bare spelling
// (?name) is handled by scanBareFault.
func (s *Scanner) scanFault(start int) (Token, error) {
	var b strings.Builder
	b.WriteByte('?')
	for {
		r, err := s.readRune()
		if err != nil {
			return Token{}, errors.Errorf("scan: unterminated fault literal at %d", start)
		}
		if r == '"' {
			return Token{Property: ConstSubKind, Sub: FaultLit, Text: b.String(), Position: start}, nil
		}
		b.WriteRune(r)
	}
}

func (s *Scanner) scanBareFault(start int) (Token, error) {
	var b strings.Builder
	b.WriteByte('?')
	for {
		r, err := s.readRune()
		if err != nil {
			break
		}
		c := classify(r)
		if c != classLetter && c != classDigit {
			s.unread(r)
			break
		}
		b.WriteRune(r)
	}
	return Token{Property: ConstSubKind, Sub: FaultLit, Text: b.String(), Position: start}, nil
}

func (s *Scanner) skipComment() error {
	// consume the '*' after '('
	s.readRune()
	depth := 1
	for depth > 0 {
		r, err := s.readRune()
		if err != nil {
			return errors.New("scan: unterminated comment")
		}
		if r == '(' {
			if n, perr := s.peek(); perr == nil && n == '*' {
				s.readRune()
				depth++
			}
		} else if r == '*' {
			if n, perr := s.peek(); perr == nil && n == ')' {
				s.readRune()
				depth--
			}
		}
	}
	return nil
}
