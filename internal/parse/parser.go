package parse

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/arrlang/nial/internal/array"
	"github.com/arrlang/nial/internal/scan"
	"github.com/arrlang/nial/internal/symtab"
)

// Parser drives both the recursive-descent top level and the
// shift-reduce core of section 4.D over a fixed token slice (the output
// of internal/scan). It installs and restores namespaces on current_env
// as it enters and leaves opform/block/trform bodies (section 4.D
// "Scope installation").
type Parser struct {
	h      *array.Heap
	global *symtab.Namespace
	env    symtab.Env

	toks []scan.Token
	pos  int

	// deferred holds an "undefined identifier" error recorded while
	// speculatively parsing an expression, per section 4.D's deferred
	// error discipline: surfaced only if every production the caller
	// tries afterward also fails.
	deferred *Error
}

// New creates a Parser over toks (with EOL/Indent/Exdent/Comment tokens
// already filtered out by the caller if a layout-insensitive grammar is
// desired; this parser treats EOL as an ordinary statement separator).
func New(h *array.Heap, global *symtab.Namespace, env symtab.Env, toks []scan.Token) *Parser {
	filtered := make([]scan.Token, 0, len(toks))
	for _, t := range toks {
		if t.Property == scan.Comment {
			continue
		}
		filtered = append(filtered, t)
	}
	return &Parser{h: h, global: global, env: env, toks: filtered}
}

// mark returns the current token position, to be passed to reset on
// backup (section 4.D "Backup discipline").
func (p *Parser) mark() int { return p.pos }

// reset rewinds the token cursor to a previously marked position and
// discards any deferred error recorded since, since that error belongs
// to an attempt the caller is abandoning.
func (p *Parser) reset(pos int) {
	p.pos = pos
	p.deferred = nil
}

func (p *Parser) atEOF() bool { return p.pos >= len(p.toks) }

func (p *Parser) peek() (scan.Token, bool) {
	for p.pos < len(p.toks) && p.toks[p.pos].Property == scan.EOL {
		p.pos++
	}
	if p.pos >= len(p.toks) {
		return scan.Token{}, false
	}
	return p.toks[p.pos], true
}

func (p *Parser) advance() (scan.Token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

// atKeyword reports whether the next token is the identifier kw
// (already upper-cased by the scanner).
func (p *Parser) atKeyword(kw string) bool {
	t, ok := p.peek()
	return ok && t.Property == scan.Identifier && t.Text == kw
}

func (p *Parser) atDelim(s string) bool {
	t, ok := p.peek()
	return ok && t.Property == scan.Delim && t.Text == s
}

// atOp reports whether the operator spelling s (which may be multiple
// symbol characters, e.g. ":=" or "@@") starts at the current position,
// since the scanner emits one Delim token per symbol rune (section 4.C)
// and never glues operator spellings itself.
func (p *Parser) atOp(s string) bool {
	p.skipLeadingEOL()
	need := len(s)
	if p.pos+need > len(p.toks) {
		return false
	}
	prevEnd := -2
	for i := 0; i < need; i++ {
		t := p.toks[p.pos+i]
		if t.Property != scan.Delim || t.Text != string(s[i]) {
			return false
		}
		if i > 0 && t.Position != prevEnd+1 {
			return false
		}
		prevEnd = t.Position
	}
	return true
}

// consumeOp consumes the operator spelling s if it matches at the
// current position, reporting whether it did.
func (p *Parser) consumeOp(s string) bool {
	if !p.atOp(s) {
		return false
	}
	p.pos += len(s)
	return true
}

// skipLeadingEOL advances past formatting EOL tokens, mirroring peek's
// behavior, so atOp can inspect raw token positions starting from a
// significant token.
func (p *Parser) skipLeadingEOL() {
	for p.pos < len(p.toks) && p.toks[p.pos].Property == scan.EOL {
		p.pos++
	}
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return newError(p.toks, p.pos, "expected %s", kw)
	}
	p.advance()
	return nil
}

func (p *Parser) expectDelim(s string) error {
	if !p.atDelim(s) {
		return newError(p.toks, p.pos, "expected %q", s)
	}
	p.advance()
	return nil
}

// deferUndefined records (rather than returns) an undefined-identifier
// error, per section 4.D: the parser may still succeed via a different
// production (e.g. the identifier turns out to be an assignment target).
func (p *Parser) deferUndefined(name string, pos int) {
	if p.deferred == nil {
		p.deferred = newError(p.toks, pos, "undefined identifier %s", name)
	}
}

// ParseAction parses a top-level action: a definition sequence optionally
// followed by a trailing expression sequence (section 4.D). Per the
// Open Question in spec.md section 9, this keeps the original's
// "combinedaction" mechanism rather than introducing a dedicated node:
// definitions are themselves expressions that evaluate to no-expr
// (section 4.E "block"), so folding them into one TagExprseq already
// gives the documented observable behavior without adding a tag outside
// the fixed set in section 3.
func (p *Parser) ParseAction() (*array.Array, error) {
	var items []*array.Array
	for {
		if p.atEOF() {
			break
		}
		if def, ok, err := p.tryParseDefinition(); err != nil {
			return nil, err
		} else if ok {
			items = append(items, def)
			continue
		}
		break
	}
	for !p.atEOF() {
		expr, err := p.ParseStatementExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, expr)
	}
	return NewNode(p.h, TagExprseq, items...)
}

// tryParseDefinition attempts `NAME IS <role-specific-rhs>`. Because the
// right-hand side could be an expression, an operation, or a
// transformer, it tries each role in turn, resetting the token stream on
// failure, exactly as section 4.D's backup discipline specifies.
func (p *Parser) tryParseDefinition() (*array.Array, bool, error) {
	start := p.mark()
	t, ok := p.peek()
	if !ok || t.Property != scan.Identifier || symtab.IsReserved(p.global, t.Text) {
		return nil, false, nil
	}
	name := t.Text
	afterName := start + 1
	save := p.pos
	p.pos = afterName
	if !p.atKeyword("IS") {
		p.reset(save)
		return nil, false, nil
	}
	p.advance() // consume IS

	entry := p.currentNamespace().Intern(name)

	namePhrase, err := p.h.NewPhrase(name)
	if err != nil {
		return nil, false, err
	}

	// Try operation, then transformer, then expression, resetting
	// between attempts.
	tryPos := p.mark()
	if body, err := p.parseOpformBody(); err == nil {
		entry.Rebind(symtab.Operation, body)
		def, derr := NewNode(p.h, TagDefinition, namePhrase, body)
		return def, true, derr
	}
	p.reset(tryPos)

	if body, err := p.parseTrformBody(); err == nil {
		entry.Rebind(symtab.Transformer, body)
		def, derr := NewNode(p.h, TagDefinition, namePhrase, body)
		return def, true, derr
	}
	p.reset(tryPos)

	expr, err := p.ParseExpr()
	if err != nil {
		if p.deferred != nil {
			d := p.deferred
			p.deferred = nil
			return nil, false, d
		}
		return nil, false, errors.Wrap(err, "definition right-hand side")
	}
	entry.Rebind(symtab.Variable, nil)
	def, err := NewNode(p.h, TagDefinition, namePhrase, expr)
	return def, true, err
}

func (p *Parser) currentNamespace() *symtab.Namespace {
	if len(p.env) == 0 {
		return p.global
	}
	return p.env[0]
}

// ParseExpr parses a single expression via the shift-reduce core.
func (p *Parser) ParseExpr() (*array.Array, error) {
	return p.parseShiftReduce()
}

// ParseStatementExpr parses one statement: an assignment, a control
// structure, or a plain expression (section 4.D).
func (p *Parser) ParseStatementExpr() (*array.Array, error) {
	switch {
	case p.atKeyword("IF"):
		return p.parseIf()
	case p.atKeyword("WHILE"):
		return p.parseWhile()
	case p.atKeyword("REPEAT"):
		return p.parseRepeat()
	case p.atKeyword("FOR"):
		return p.parseFor()
	case p.atKeyword("CASE"):
		return p.parseCase()
	case p.atKeyword("EXIT"):
		return p.parseExit()
	}

	start := p.mark()
	if idlist, err := p.tryParseIdList(); err == nil && p.consumeOp(":=") {
		rhs, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		return NewNode(p.h, TagAssignexpr, idlist, rhs)
	}
	p.reset(start)

	// An indexed target (`A@I := v`, `A@@P := v`, `A#I := v`, `A|I :=
	// v`) is not an idlist, so it gets its own attempt: parse a plain
	// expression and, only if it turns out to be one of the four
	// indexing forms and is immediately followed by `:=`, treat it as
	// an update target (section 4.F) rather than backing out.
	if target, err := p.ParseExpr(); err == nil && isIndexForm(target) && p.consumeOp(":=") {
		rhs, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		return NewNode(p.h, TagIndexedassign, target, rhs)
	}
	p.reset(start)

	return p.ParseExpr()
}

func isIndexForm(n *array.Array) bool {
	switch TagOf(n) {
	case TagPickplace, TagReachput, TagChoose, TagSlice:
		return true
	default:
		return false
	}
}

// tryParseIdList parses a single identifier or a parenthesized id list,
// used both for assignment targets and transformer parameter lists.
func (p *Parser) tryParseIdList() (*array.Array, error) {
	if p.atDelim("(") {
		start := p.mark()
		p.advance()
		var ids []*array.Array
		for {
			t, ok := p.peek()
			if !ok || t.Property != scan.Identifier {
				p.reset(start)
				return nil, errors.New("not an id list")
			}
			p.advance()
			id, err := p.identifierNode(t)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
			if p.atDelim(",") {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectDelim(")"); err != nil {
			p.reset(start)
			return nil, err
		}
		return NewNode(p.h, TagIdlist, ids...)
	}
	t, ok := p.peek()
	if !ok || t.Property != scan.Identifier {
		return nil, errors.New("not an identifier")
	}
	p.advance()
	return p.identifierNode(t)
}

// identifierNode resolves t to a TagVariable node when it is already
// bound, or interns a fresh entry and returns a TagIdentifier node
// otherwise. Both layouts carry (namespace index, local offset, name
// phrase): entry-ref in section 6's table is a raw pointer into a
// symbol table entry in the original representation, which has no
// direct Go analogue; a namespace index resolved once at parse time
// plus the static local offset is the idiomatic equivalent; -1 in the
// offset field means "not a local, resolve by name in that namespace".
func (p *Parser) identifierNode(t scan.Token) (*array.Array, error) {
	ns := p.currentNamespace()
	phr, err := p.h.NewPhrase(t.Text)
	if err != nil {
		return nil, err
	}
	res := symtab.Lookup(p.env, p.global, t.Text, symtab.Active)
	if res.OK {
		offset := int64(-1)
		if res.Entry.IsLocal {
			offset = int64(res.Entry.LocalOffset)
		}
		return NewNode(p.h, TagVariable, p.h.IntScalar(int64(nsIndex(p.env, res.NS))), p.h.IntScalar(offset), phr)
	}
	ns.Intern(t.Text).Rebind(symtab.Variable, nil)
	return NewNode(p.h, TagIdentifier, p.h.IntScalar(int64(nsIndex(p.env, ns))), p.h.IntScalar(-1), phr)
}

func nsIndex(env symtab.Env, ns *symtab.Namespace) int {
	for i, e := range env {
		if e == ns {
			return i
		}
	}
	return -1 // global
}

// parseOpformBody and parseTrformBody, called by tryParseDefinition,
// are defined in scope.go; the split keeps each file focused on one
// concern.

// parseConstant recognizes a single literal token and builds a
// TagConstant node (section 4.D / 4.E).
func (p *Parser) parseConstant(t scan.Token) (*array.Array, error) {
	var val *array.Array
	var err error
	switch t.Sub {
	case scan.IntLit:
		n, perr := strconv.ParseInt(t.Text, 10, 64)
		if perr != nil {
			// overflow: widen to real, per section 4.C.
			f, ferr := strconv.ParseFloat(t.Text, 64)
			if ferr != nil {
				return nil, newError(p.toks, p.pos, "invalid integer literal %q", t.Text)
			}
			val = p.h.RealScalar(f)
		} else {
			val = p.h.IntScalar(n)
		}
	case scan.RealLit, scan.ImaginaryLit:
		f, ferr := strconv.ParseFloat(strings.TrimRight(t.Text, "iI"), 64)
		if ferr != nil {
			return nil, newError(p.toks, p.pos, "invalid real literal %q", t.Text)
		}
		val = p.h.RealScalar(f)
	case scan.CharLit:
		r := []rune(t.Text)
		if len(r) == 0 {
			return nil, newError(p.toks, p.pos, "empty char literal")
		}
		val = p.h.CharScalar(r[0])
	case scan.StringLit:
		val, err = stringArray(p.h, t.Text)
		if err != nil {
			return nil, err
		}
	case scan.PhraseLit:
		val, err = p.h.NewPhrase(strings.ToUpper(t.Text))
		if err != nil {
			return nil, err
		}
	case scan.FaultLit:
		f, _, ferr := p.h.NewFault(strings.ToUpper(t.Text))
		if ferr != nil {
			return nil, ferr
		}
		val = f
	default:
		return nil, newError(p.toks, p.pos, "not a constant: %q", t.Text)
	}
	tok, err := stringArray(p.h, t.Text)
	if err != nil {
		return nil, err
	}
	return NewNode(p.h, TagConstant, val, tok)
}

func stringArray(h *array.Heap, s string) (*array.Array, error) {
	rs := []rune(s)
	a, err := h.NewChar([]int{len(rs)})
	if err != nil {
		return nil, err
	}
	for i, r := range rs {
		a.SetChar(i, r)
	}
	return a, nil
}
