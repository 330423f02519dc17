// Package deparse implements the inverse of internal/scan+internal/parse
// (section 4.H): walking a parse tree to a token stream, then rendering
// that stream to canonical, line-wrapped source text. It is grounded on
// asm's token emission (asm/parser.go), run in reverse: instead of
// consuming text.Scanner tokens into an instruction stream, it produces
// a token stream from a parse tree and writes it back out.
package deparse

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/arrlang/nial/internal/array"
	"github.com/arrlang/nial/internal/parse"
)

// tokKind classifies a deparse token for the descanner's line-wrapping
// and spacing decisions.
type tokKind int

const (
	tokWord tokKind = iota
	tokOp
	tokDelim
	tokEOL
	tokIndent
	tokExdent
)

type tok struct {
	kind tokKind
	text string
}

// Deparser walks parse trees produced by internal/parse, rendering them
// back to source text.
type Deparser struct {
	H         *array.Heap
	MaxWidth  int // descanner line-wrap width; 0 means "do not wrap"
	IndentStr string
}

// New creates a Deparser sharing h with the parser/evaluator that
// produced the trees it renders. A zero MaxWidth renders everything on
// one logical line per statement, which is always valid input.
func New(h *array.Heap) *Deparser {
	return &Deparser{H: h, MaxWidth: 0, IndentStr: "  "}
}

// Deparse renders node to canonical source text.
func (d *Deparser) Deparse(node *array.Array) (string, error) {
	toks, err := d.emit(node)
	if err != nil {
		return "", err
	}
	return d.descan(toks), nil
}

func (d *Deparser) charText(a *array.Array) string {
	rs := make([]rune, a.Tally())
	for i := range rs {
		rs[i] = a.Char(i)
	}
	return string(rs)
}

func words(ss ...string) []tok {
	out := make([]tok, len(ss))
	for i, s := range ss {
		out[i] = tok{kind: tokWord, text: s}
	}
	return out
}

func (d *Deparser) join(nodes []*array.Array, sep string) ([]tok, error) {
	var out []tok
	for i, n := range nodes {
		if i > 0 {
			out = append(out, tok{kind: tokDelim, text: sep})
		}
		ts, err := d.emit(n)
		if err != nil {
			return nil, err
		}
		out = append(out, ts...)
	}
	return out, nil
}

func fields(node *array.Array) []*array.Array {
	n := parse.NumFields(node)
	out := make([]*array.Array, n)
	for i := range out {
		out[i] = parse.Field(node, i)
	}
	return out
}

// emit builds the token stream for one parse-tree node, dispatching on
// its tag the same way internal/eval.Eval and internal/parse's parse*
// functions do, but in reverse.
func (d *Deparser) emit(node *array.Array) ([]tok, error) {
	switch parse.TagOf(node) {
	case parse.TagConstant:
		return words(d.charText(parse.Field(node, 1))), nil

	case parse.TagVariable, parse.TagIdentifier:
		name := d.H.PhraseText(parse.Field(node, 2))
		return words(capitalize(name)), nil

	case parse.TagBasic:
		idx := parse.Field(node, 0).Int(0)
		name, ok := parse.BasicName(idx)
		if !ok {
			return nil, errors.Errorf("deparse: unknown basic index %d", idx)
		}
		role := parse.Field(node, 1).Int(0)
		if role == 1 {
			return words(strings.ToUpper(name)), nil
		}
		return words(name), nil

	case parse.TagIdlist:
		fs := fields(node)
		if len(fs) == 1 {
			return d.emit(fs[0])
		}
		inner, err := d.join(fs, ",")
		if err != nil {
			return nil, err
		}
		return wrap("(", inner, ")"), nil

	case parse.TagStrand:
		return d.join(fields(node), " ")

	case parse.TagList:
		inner, err := d.join(fields(node), ",")
		if err != nil {
			return nil, err
		}
		return wrap("[", inner, "]"), nil

	case parse.TagAtlas:
		inner, err := d.join(fields(node), ",")
		if err != nil {
			return nil, err
		}
		return wrap("[", inner, "]"), nil

	case parse.TagOpform:
		return d.emitOpOrTrform("OPERATION", "ENDOPERATION", parse.Field(node, 3), parse.Field(node, 4))
	case parse.TagTrform:
		return d.emitOpOrTrform("TRANSFORMER", "ENDTRANSFORMER", parse.Field(node, 2), parse.Field(node, 3))

	case parse.TagBlockbody:
		return d.emitBlockbody(node)

	case parse.TagOpcall:
		left, err := d.emit(parse.Field(node, 0))
		if err != nil {
			return nil, err
		}
		right, err := d.emit(parse.Field(node, 1))
		if err != nil {
			return nil, err
		}
		return concat(left, right), nil

	case parse.TagBasicBinopcall:
		left, err := d.emit(parse.Field(node, 1))
		if err != nil {
			return nil, err
		}
		op, err := d.emit(parse.Field(node, 0))
		if err != nil {
			return nil, err
		}
		right, err := d.emit(parse.Field(node, 2))
		if err != nil {
			return nil, err
		}
		return concat(left, op, right), nil

	case parse.TagCurried:
		left, err := d.emit(parse.Field(node, 1))
		if err != nil {
			return nil, err
		}
		op, err := d.emit(parse.Field(node, 0))
		if err != nil {
			return nil, err
		}
		return concat(left, op), nil

	case parse.TagComposition, parse.TagTransform:
		left, err := d.emit(parse.Field(node, 0))
		if err != nil {
			return nil, err
		}
		right, err := d.emit(parse.Field(node, 1))
		if err != nil {
			return nil, err
		}
		return concat(left, right), nil

	case parse.TagClosure:
		return d.emit(parse.Field(node, 0))

	case parse.TagParendobj:
		inner, err := d.emit(parse.Field(node, 0))
		if err != nil {
			return nil, err
		}
		return wrap("(", inner, ")"), nil

	case parse.TagDottedobj:
		inner, err := d.emit(parse.Field(node, 0))
		if err != nil {
			return nil, err
		}
		return concat(words("."), inner), nil

	case parse.TagPickplace:
		return d.emitIndex(node, "@")
	case parse.TagReachput:
		return d.emitIndex(node, "@@")
	case parse.TagChoose:
		return d.emitIndex(node, "#")
	case parse.TagSlice:
		return d.emitIndex(node, "|")

	case parse.TagExprseq:
		return d.joinStatements(fields(node))

	case parse.TagDefnseq:
		return d.joinStatements(fields(node))

	case parse.TagDefinition:
		name := d.H.PhraseText(parse.Field(node, 0))
		rhs, err := d.emit(parse.Field(node, 1))
		if err != nil {
			return nil, err
		}
		return concat(words(capitalize(name), "IS"), rhs), nil

	case parse.TagAssignexpr:
		target, err := d.emit(parse.Field(node, 0))
		if err != nil {
			return nil, err
		}
		rhs, err := d.emit(parse.Field(node, 1))
		if err != nil {
			return nil, err
		}
		return concat(target, words(":="), rhs), nil

	case parse.TagIndexedassign:
		target, err := d.emit(parse.Field(node, 0))
		if err != nil {
			return nil, err
		}
		rhs, err := d.emit(parse.Field(node, 1))
		if err != nil {
			return nil, err
		}
		return concat(target, words(":="), rhs), nil

	case parse.TagIfexpr:
		return d.emitIf(node)
	case parse.TagWhileexpr:
		test, err := d.emit(parse.Field(node, 0))
		if err != nil {
			return nil, err
		}
		body, err := d.emit(parse.Field(node, 1))
		if err != nil {
			return nil, err
		}
		return concat(words("WHILE"), test, words("DO"), indented(body), words("ENDWHILE")), nil
	case parse.TagRepeatexpr:
		body, err := d.emit(parse.Field(node, 0))
		if err != nil {
			return nil, err
		}
		test, err := d.emit(parse.Field(node, 1))
		if err != nil {
			return nil, err
		}
		return concat(words("REPEAT"), indented(body), words("UNTIL"), test, words("ENDREPEAT")), nil
	case parse.TagForexpr:
		idlist, err := d.emit(parse.Field(node, 0))
		if err != nil {
			return nil, err
		}
		iter, err := d.emit(parse.Field(node, 1))
		if err != nil {
			return nil, err
		}
		body, err := d.emit(parse.Field(node, 2))
		if err != nil {
			return nil, err
		}
		return concat(words("FOR"), idlist, words("WITH"), iter, words("DO"), indented(body), words("ENDFOR")), nil
	case parse.TagCaseexpr:
		return d.emitCase(node)
	case parse.TagExitexpr:
		val, err := d.emit(parse.Field(node, 0))
		if err != nil {
			return nil, err
		}
		return concat(words("EXIT"), val), nil

	case parse.TagNulltree:
		return nil, nil

	default:
		return nil, errors.Errorf("deparse: unsupported tag %v", parse.TagOf(node))
	}
}

func (d *Deparser) emitOpOrTrform(open, close string, arglist, body *array.Array) ([]tok, error) {
	args, err := d.emit(arglist)
	if err != nil {
		return nil, err
	}
	b, err := d.emit(body)
	if err != nil {
		return nil, err
	}
	return concat(words(open), args, []tok{{kind: tokEOL}}, indented(b), words(close)), nil
}

func (d *Deparser) emitBlockbody(node *array.Array) ([]tok, error) {
	var out []tok
	locals := fields(parse.Field(node, 0))
	if len(locals) > 0 {
		ns, err := d.join(locals, ",")
		if err != nil {
			return nil, err
		}
		out = concat(out, words("LOCAL"), ns, words(";"), []tok{{kind: tokEOL}})
	}
	nonlocals := fields(parse.Field(node, 1))
	if len(nonlocals) > 0 {
		ns, err := d.join(nonlocals, ",")
		if err != nil {
			return nil, err
		}
		out = concat(out, words("NONLOCAL"), ns, words(";"), []tok{{kind: tokEOL}})
	}
	defs, err := d.emit(parse.Field(node, 2))
	if err != nil {
		return nil, err
	}
	out = concat(out, defs)
	seq, err := d.emit(parse.Field(node, 3))
	if err != nil {
		return nil, err
	}
	return concat(out, seq), nil
}

func (d *Deparser) emitIndex(node *array.Array, sym string) ([]tok, error) {
	base, err := d.emit(parse.Field(node, 0))
	if err != nil {
		return nil, err
	}
	addr, err := d.emit(parse.Field(node, 1))
	if err != nil {
		return nil, err
	}
	return concat(base, []tok{{kind: tokOp, text: sym}}, addr), nil
}

func (d *Deparser) joinStatements(items []*array.Array) ([]tok, error) {
	var out []tok
	for i, it := range items {
		ts, err := d.emit(it)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			out = append(out, tok{kind: tokEOL})
		}
		out = append(out, ts...)
	}
	return out, nil
}

func (d *Deparser) emitIf(node *array.Array) ([]tok, error) {
	n := parse.NumFields(node)
	pairs := n / 2
	hasElse := n%2 == 1
	out := words("IF")
	for i := 0; i < pairs; i++ {
		if i > 0 {
			out = concat(out, words("ELSEIF"))
		}
		test, err := d.emit(parse.Field(node, 2*i))
		if err != nil {
			return nil, err
		}
		body, err := d.emit(parse.Field(node, 2*i+1))
		if err != nil {
			return nil, err
		}
		out = concat(out, test, words("THEN"), indented(body))
	}
	if hasElse {
		eb, err := d.emit(parse.Field(node, n-1))
		if err != nil {
			return nil, err
		}
		out = concat(out, words("ELSE"), indented(eb))
	}
	return concat(out, words("ENDIF")), nil
}

func (d *Deparser) emitCase(node *array.Array) ([]tok, error) {
	selector, err := d.emit(parse.Field(node, 0))
	if err != nil {
		return nil, err
	}
	values := fields(parse.Field(node, 1))
	bodies := fields(parse.Field(node, 3))
	out := concat(words("CASE"), selector)
	for i, v := range values {
		vt, err := d.emit(v)
		if err != nil {
			return nil, err
		}
		bt, err := d.emit(bodies[i])
		if err != nil {
			return nil, err
		}
		out = concat(out, words("FROM"), vt, words(":"), indented(bt))
	}
	if elseBody := bodies[len(bodies)-1]; parse.TagOf(elseBody) != parse.TagNulltree {
		eb, err := d.emit(elseBody)
		if err != nil {
			return nil, err
		}
		out = concat(out, words("ELSE"), indented(eb))
	}
	return concat(out, words("ENDCASE")), nil
}

func wrap(open string, inner []tok, close string) []tok {
	return concat([]tok{{kind: tokDelim, text: open}}, inner, []tok{{kind: tokDelim, text: close}})
}

func indented(inner []tok) []tok {
	return concat([]tok{{kind: tokIndent}}, inner, []tok{{kind: tokExdent}})
}

func concat(groups ...[]tok) []tok {
	var out []tok
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func capitalize(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}

// descan renders a token stream to lines, honoring indent/exdent nesting
// and wrapping a line once it would exceed MaxWidth (0 disables
// wrapping), exactly mirroring the scanner+parser's own "token stream
// then structure" split, run backward.
func (d *Deparser) descan(toks []tok) string {
	var sb strings.Builder
	depth := 0
	lineLen := 0
	atLineStart := true
	newline := func() {
		sb.WriteByte('\n')
		sb.WriteString(strings.Repeat(d.IndentStr, depth))
		lineLen = depth * len(d.IndentStr)
		atLineStart = true
	}
	for _, t := range toks {
		switch t.kind {
		case tokEOL:
			newline()
			continue
		case tokIndent:
			depth++
			continue
		case tokExdent:
			depth--
			if depth < 0 {
				depth = 0
			}
			continue
		}
		sep := " "
		if atLineStart || t.kind == tokDelim && (t.text == ")" || t.text == "]" || t.text == "," || t.text == ";" || t.text == ":") {
			sep = ""
		}
		if d.MaxWidth > 0 && lineLen+len(sep)+len(t.text) > d.MaxWidth && !atLineStart {
			newline()
			sep = ""
		}
		sb.WriteString(sep)
		sb.WriteString(t.text)
		lineLen += len(sep) + len(t.text)
		atLineStart = false
	}
	return sb.String()
}
