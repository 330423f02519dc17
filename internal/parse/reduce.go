package parse

import (
	"github.com/arrlang/nial/internal/array"
	"github.com/arrlang/nial/internal/scan"
	"github.com/arrlang/nial/internal/symtab"
)

// srState is one of the state symbols the shift/reduce core of section
// 4.D keys its reduction table on: primary(P), strand(S), array(A),
// operation(O), operation-composition(OC), transformer(T). The spec
// also names transformer-composition(TC) and the marker states
// left/right/null(LE,RE,N); this implementation folds TC into T (no
// construct here produces a transformer-of-transformers) and never
// needs explicit marker states because parenthesized/bracketed groups
// are parsed by direct recursion rather than being pushed onto the
// same stack as ordinary units.
type srState int

const (
	srP srState = iota
	srS
	srA
	srO
	srOC
	srT
)

type srItem struct {
	state srState
	node  *array.Array
}

// parseShiftReduce parses one expression by repeatedly shifting an
// atomic unit and reducing the top of the stack, per section 4.D. The
// reduction table never makes a non-deterministic choice: a miss always
// shifts, and an expression with no reducible unit left to shift that
// still has more than one stack entry is a context-sensitive error.
func (p *Parser) parseShiftReduce() (*array.Array, error) {
	node, _, err := p.parseShiftReduceState()
	return node, err
}

func (p *Parser) parseShiftReduceState() (*array.Array, srState, error) {
	var stack []srItem
	for {
		if len(stack) > 0 && p.atLineBreak() {
			break // EOL ends the expression
		}
		unit, ok, err := p.tryParseValueUnit()
		if err != nil {
			if len(stack) == 0 {
				return nil, 0, err
			}
			break
		}
		if !ok {
			break
		}
		stack = append(stack, unit)
		stack = reduceStack(p.h, stack)
	}
	if len(stack) == 0 {
		if p.deferred != nil {
			d := p.deferred
			p.deferred = nil
			return nil, 0, d
		}
		return nil, 0, newError(p.toks, p.pos, "expected expression")
	}
	if len(stack) > 1 {
		return nil, 0, newError(p.toks, p.pos, "incomplete expression (unreduced %v before %v)", stack[len(stack)-2].state, stack[len(stack)-1].state)
	}
	// A successful reduction means every identifier involved resolved
	// (or stood for itself speculatively, e.g. an assignment target):
	// any undefined-identifier error recorded along the way belongs to
	// an attempt this success supersedes (section 4.D "deferred error
	// discipline").
	p.deferred = nil
	top := stack[0]
	return top.node, top.state, nil
}

// reduceStack applies the reduction table to the top of stack until no
// further reduction applies, per section 4.D's reduction table.
func reduceStack(h *array.Heap, stack []srItem) []srItem {
	for len(stack) >= 2 {
		a := stack[len(stack)-2]
		b := stack[len(stack)-1]
		reduced, node, ok := reduceTop(h, a, b)
		if !ok {
			return stack
		}
		stack = stack[:len(stack)-2]
		stack = append(stack, srItem{state: reduced, node: node})
	}
	return stack
}

func reduceTop(h *array.Heap, a, b srItem) (srState, *array.Array, bool) {
	switch {
	case (a.state == srP || a.state == srS || a.state == srA) && b.state == srO:
		// curried construction, AO -> O: the array stands as the left
		// (unevaluated) operand of the following operation.
		n, err := NewNode(h, TagCurried, b.node, a.node)
		return srO, mustNode(n, err), err == nil

	case (a.state == srO || a.state == srOC) && (b.state == srP || b.state == srS || b.state == srA):
		// op-application, OA -> A, with the basic-binop fast path when
		// a is a curried basic primitive flagged binary/pervasive
		// (section 4.D "Node construction").
		if op, left, ok := asBasicCurried(a.node); ok {
			n, err := NewNode(h, TagBasicBinopcall, op, left, b.node)
			return srA, mustNode(n, err), err == nil
		}
		n, err := NewNode(h, TagOpcall, a.node, b.node)
		return srA, mustNode(n, err), err == nil

	case (a.state == srO || a.state == srOC) && (b.state == srO || b.state == srOC):
		n, err := NewNode(h, TagComposition, a.node, b.node)
		return srOC, mustNode(n, err), err == nil

	case a.state == srT && (b.state == srO || b.state == srOC):
		n, err := NewNode(h, TagTransform, a.node, b.node)
		return srO, mustNode(n, err), err == nil
	}
	return 0, nil, false
}

// asBasicCurried reports whether node is a TagCurried node whose op
// field is a TagBasic primitive flagged binary/pervasive (bin-index >=
// 0), returning that basic node and the curried left operand.
func asBasicCurried(node *array.Array) (*array.Array, *array.Array, bool) {
	if TagOf(node) != TagCurried {
		return nil, nil, false
	}
	op := Field(node, 0)
	if TagOf(op) != TagBasic {
		return nil, nil, false
	}
	binIndex := Field(op, 3)
	if binIndex == nil || binIndex.Kind() != array.Integer || binIndex.Int(0) < 0 {
		return nil, nil, false
	}
	return op, Field(node, 1), true
}

// atLineBreak reports whether an EOL token separates the last consumed
// token from the next one (peek and atOp may already have skipped it).
func (p *Parser) atLineBreak() bool {
	return (p.pos < len(p.toks) && p.toks[p.pos].Property == scan.EOL) ||
		(p.pos > 0 && p.toks[p.pos-1].Property == scan.EOL)
}

func mustNode(n *array.Array, err error) *array.Array {
	if err != nil {
		return nil
	}
	return n
}

// tryParseValueUnit shifts one unit for the top-level shift/reduce
// stack: a maximal run of juxtaposed primaries combined into a strand
// (or a single primary), or a lone operation/transformer unit. Strands
// are built eagerly at this level, ahead of op-application, so that
// `op P P P` reduces to "apply op to the strand (P P P)" and not to
// "apply op to P, then strand the rest" (section 4.D's PP->S and SP->S
// strand-extension rules taking priority over OA application).
func (p *Parser) tryParseValueUnit() (srItem, bool, error) {
	first, ok, err := p.tryParseUnit()
	if err != nil || !ok || first.state != srP {
		return first, ok, err
	}
	items := []*array.Array{first.node}
	for {
		if p.atLineBreak() {
			break
		}
		mark := p.mark()
		next, ok, err := p.tryParseUnit()
		if err != nil || !ok || next.state != srP {
			p.reset(mark)
			break
		}
		items = append(items, next.node)
	}
	if len(items) == 1 {
		return first, true, nil
	}
	n, err := NewNode(p.h, TagStrand, items...)
	if err != nil {
		return srItem{}, false, err
	}
	return srItem{state: srS, node: n}, true, nil
}

// tryParseUnit shifts one atomic unit: a constant, an identifier
// (classified by role into array/operation/transformer state), a
// parenthesized group, a bracketed list/atlas literal, or an
// OPERATION/TRANSFORMER form. It reports ok=false, with no error, when
// the next token cannot start a unit (end of this expression).
func (p *Parser) tryParseUnit() (srItem, bool, error) {
	t, ok := p.peek()
	if !ok {
		return srItem{}, false, nil
	}

	if t.Property == scan.Delim {
		switch t.Text {
		case "(":
			return p.parseParenUnit()
		case "[":
			return p.parseBracketUnit()
		case ")", "]", ",", ";", ":", "=":
			return srItem{}, false, nil
		}
		if b, isBasic := lookupBasic(t.Text); isBasic {
			p.advance()
			node, err := b.node(p.h)
			if err != nil {
				return srItem{}, false, err
			}
			state := srO
			if b.isTransformer {
				state = srT
			}
			return srItem{state: state, node: node}, true, nil
		}
		return srItem{}, false, nil
	}

	if t.Property == scan.Identifier {
		if symtab.IsReserved(p.global, t.Text) {
			switch t.Text {
			case "OPERATION":
				body, err := p.parseOpformBody()
				if err != nil {
					return srItem{}, false, err
				}
				return srItem{state: srO, node: body}, true, nil
			case "TRANSFORMER":
				body, err := p.parseTrformBody()
				if err != nil {
					return srItem{}, false, err
				}
				return srItem{state: srT, node: body}, true, nil
			default:
				return srItem{}, false, nil
			}
		}
		p.advance()
		return p.classifyIdentifierUnit(t)
	}

	if t.Property == scan.ConstSubKind {
		p.advance()
		node, err := p.parseConstant(t)
		if err != nil {
			return srItem{}, false, err
		}
		return p.applyPostfixIndex(srItem{state: srP, node: node})
	}

	return srItem{}, false, nil
}

// classifyIdentifierUnit resolves t via the active-lookup policy and
// classifies the result into array(P), operation(O), or
// transformer(T) state according to the entry's role, building a
// basic node in place of a variable reference when the entry names a
// registered primitive (basics.go).
func (p *Parser) classifyIdentifierUnit(t scan.Token) (srItem, bool, error) {
	if b, isBasic := lookupBasic(t.Text); isBasic {
		node, err := b.node(p.h)
		if err != nil {
			return srItem{}, false, err
		}
		state := srO
		if b.isTransformer {
			state = srT
		}
		return srItem{state: state, node: node}, true, nil
	}

	ns := p.currentNamespace()
	phr, err := p.h.NewPhrase(t.Text)
	if err != nil {
		return srItem{}, false, err
	}

	res := symtab.Lookup(p.env, p.global, t.Text, symtab.Active)
	if !res.OK {
		p.deferUndefined(t.Text, p.pos-1)
		ns.Intern(t.Text).Rebind(symtab.Variable, nil)
		node, err := NewNode(p.h, TagIdentifier, p.h.IntScalar(int64(nsIndex(p.env, ns))), p.h.IntScalar(-1), phr)
		if err != nil {
			return srItem{}, false, err
		}
		return p.applyPostfixIndex(srItem{state: srP, node: node})
	}

	offset := int64(-1)
	if res.Entry.IsLocal {
		offset = int64(res.Entry.LocalOffset)
	}
	varNode, err := NewNode(p.h, TagVariable, p.h.IntScalar(int64(nsIndex(p.env, res.NS))), p.h.IntScalar(offset), phr)
	if err != nil {
		return srItem{}, false, err
	}

	switch res.Entry.Role {
	case symtab.Operation:
		return srItem{state: srO, node: varNode}, true, nil
	case symtab.Transformer:
		return srItem{state: srT, node: varNode}, true, nil
	default:
		return p.applyPostfixIndex(srItem{state: srP, node: varNode})
	}
}

// parseParenUnit parses `( expr )`, promoting the contained expression
// to a primary (TagParendobj is transparent at evaluation, section
// 4.E) and carrying through the inner expression's own state so that,
// e.g., `(+) 1 2` keeps `+` operation-valued across the parens.
func (p *Parser) parseParenUnit() (srItem, bool, error) {
	start := p.mark()
	p.advance() // "("
	inner, state, err := p.parseShiftReduceState()
	if err != nil {
		p.reset(start)
		return srItem{}, false, err
	}
	if err := p.expectDelim(")"); err != nil {
		p.reset(start)
		return srItem{}, false, err
	}
	n, err := NewNode(p.h, TagParendobj, inner)
	if err != nil {
		return srItem{}, false, err
	}
	item := srItem{state: state, node: n}
	if state == srP || state == srS || state == srA {
		return p.applyPostfixIndex(item)
	}
	return item, true, nil
}

// parseBracketUnit parses `[ item (, item)* ]`. When every item reduced
// to operation/transformer state it is an atlas (section 4.E "atlas");
// otherwise it is an ordinary list literal, state array.
func (p *Parser) parseBracketUnit() (srItem, bool, error) {
	start := p.mark()
	p.advance() // "["
	var items []*array.Array
	allOps := true
	if !p.atDelim("]") {
		for {
			item, state, err := p.parseShiftReduceState()
			if err != nil {
				p.reset(start)
				return srItem{}, false, err
			}
			if state != srO && state != srOC && state != srT {
				allOps = false
			}
			items = append(items, item)
			if p.atDelim(",") {
				p.advance()
				continue
			}
			break
		}
	}
	if err := p.expectDelim("]"); err != nil {
		p.reset(start)
		return srItem{}, false, err
	}
	if allOps && len(items) > 0 {
		n, err := NewNode(p.h, TagAtlas, items...)
		if err != nil {
			return srItem{}, false, err
		}
		return srItem{state: srO, node: n}, true, nil
	}
	n, err := NewNode(p.h, TagList, items...)
	if err != nil {
		return srItem{}, false, err
	}
	return p.applyPostfixIndex(srItem{state: srP, node: n})
}

// applyPostfixIndex recognizes a trailing indexing notation (section
// 4.F: `@`, `@@`, `#`, `|`) immediately following a primary and wraps
// it, repeating for chained indexing (`a@i@j`). The four forms double
// as both selection (when the result is evaluated) and update targets
// (when it appears to the left of `:=`; see ParseStatementExpr).
func (p *Parser) applyPostfixIndex(item srItem) (srItem, bool, error) {
	for {
		var tag Tag
		switch {
		case p.consumeOp("@@"):
			tag = TagReachput
		case p.consumeOp("@"):
			tag = TagPickplace
		case p.consumeOp("#"):
			tag = TagChoose
		case p.consumeOp("|"):
			tag = TagSlice
		default:
			return item, true, nil
		}
		addr, err := p.parseShiftReduce()
		if err != nil {
			return srItem{}, false, err
		}
		n, err := NewNode(p.h, tag, item.node, addr)
		if err != nil {
			return srItem{}, false, err
		}
		item = srItem{state: srP, node: n}
	}
}
