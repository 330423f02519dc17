package parse

import (
	"github.com/pkg/errors"

	"github.com/arrlang/nial/internal/array"
	"github.com/arrlang/nial/internal/scan"
	"github.com/arrlang/nial/internal/symtab"
)

// nodeNamespace lets internal/eval recover the *symtab.Namespace a
// scope-introducing node (opform/trform/blockbody) was built against.
// A parse-tree node's layout is a fixed array of *array.Array fields
// (section 3), which has no slot for a raw Go pointer; since nodes are
// never reallocated once built, a side table keyed by node identity is
// the idiomatic way to carry this without inventing an extra field
// outside the documented layouts.
var nodeNamespace = map[*array.Array]*symtab.Namespace{}

// NamespaceOf returns the namespace registered for node by
// RegisterNamespace, or nil if none was (e.g. node isn't scope-owning).
func NamespaceOf(node *array.Array) *symtab.Namespace { return nodeNamespace[node] }

// RegisterNamespace records that node owns ns, for later lookup by
// internal/eval via NamespaceOf.
func RegisterNamespace(node *array.Array, ns *symtab.Namespace) { nodeNamespace[node] = ns }

// enterScope allocates a new namespace with the given property and
// owner name, links it onto current_env, and returns a function that
// restores the previous environment — used on both normal exit and
// error exit (section 4.D "Scope installation").
func (p *Parser) enterScope(prop symtab.Property, name string) (*symtab.Namespace, func()) {
	ns := symtab.NewNamespace(prop, name)
	saved := p.env
	p.env = append(symtab.Env{ns}, p.env...)
	return ns, func() { p.env = saved }
}

// parseOpformBody parses `OPERATION params body ENDOPERATION` into the
// section 6 TagOpform layout [tag, sym, env, nvars, arglist, body]. The
// opform's namespace is always Open (section 4.B).
func (p *Parser) parseOpformBody() (*array.Array, error) {
	if err := p.expectKeyword("OPERATION"); err != nil {
		return nil, err
	}

	ns, restore := p.enterScope(symtab.Open, "OPERATION")
	defer restore()

	arglist, err := p.parseParamList(ns)
	if err != nil {
		return nil, errors.Wrap(err, "opform parameter list")
	}

	body, err := p.parseBlockBody("ENDOPERATION")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("ENDOPERATION"); err != nil {
		return nil, err
	}
	envNode, err := p.envSnapshot()
	if err != nil {
		return nil, err
	}
	n, err := NewNode(p.h, TagOpform, p.h.IntScalar(0), envNode, p.h.IntScalar(int64(ns.NVars())), arglist, body)
	if err != nil {
		return nil, err
	}
	RegisterNamespace(n, ns)
	return n, nil
}

// parseTrformBody parses `TRANSFORMER (opargs) body ENDTRANSFORMER` into
// the section 6 TagTrform layout [tag, sym, env, opargs, body]. A
// trform's namespace has property Parameter (section 4.B).
func (p *Parser) parseTrformBody() (*array.Array, error) {
	if err := p.expectKeyword("TRANSFORMER"); err != nil {
		return nil, err
	}

	ns, restore := p.enterScope(symtab.Parameter, "TRANSFORMER")
	defer restore()

	opargs, err := p.parseParamList(ns)
	if err != nil {
		return nil, errors.Wrap(err, "trform operand list")
	}

	body, err := p.parseBlockBody("ENDTRANSFORMER")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("ENDTRANSFORMER"); err != nil {
		return nil, err
	}
	envNode, err := p.envSnapshot()
	if err != nil {
		return nil, err
	}
	n, err := NewNode(p.h, TagTrform, p.h.IntScalar(0), envNode, opargs, body)
	if err != nil {
		return nil, err
	}
	RegisterNamespace(n, ns)
	return n, nil
}

// parseBlockBody parses `[LOCAL ids;] [NONLOCAL ids;] defs; exprseq`
// into a TagBlockbody node [tag, locals, nonlocals, defs, seq], stopping
// before terminator. The block uses the current namespace, the one its
// enclosing opform (Open) or trform (Parameter) installed.
func (p *Parser) parseBlockBody(terminator string) (*array.Array, error) {
	ns := p.currentNamespace()
	var locals, nonlocals []*array.Array

	for p.atKeyword("LOCAL") {
		p.advance()
		names, err := p.parseNameList()
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			nm := p.h.PhraseText(n)
			if ns.Referred[nm] {
				return nil, newError(p.toks, p.pos, "reference before assignment: %s", nm)
			}
			ns.DeclareLocal(nm, symtab.Variable)
		}
		locals = append(locals, names...)
	}
	for p.atKeyword("NONLOCAL") {
		p.advance()
		names, err := p.parseNameList()
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			ns.NonLocals[p.h.PhraseText(n)] = true
		}
		nonlocals = append(nonlocals, names...)
	}

	var defs []*array.Array
	for {
		def, ok, err := p.tryParseDefinition()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		defs = append(defs, def)
	}

	seq, err := p.parseExprSeqUntil(terminator)
	if err != nil {
		return nil, err
	}

	localsNode, err := NewNode(p.h, TagIdlist, locals...)
	if err != nil {
		return nil, err
	}
	nonlocalsNode, err := NewNode(p.h, TagIdlist, nonlocals...)
	if err != nil {
		return nil, err
	}
	defsNode, err := NewNode(p.h, TagDefnseq, defs...)
	if err != nil {
		return nil, err
	}
	return NewNode(p.h, TagBlockbody, localsNode, nonlocalsNode, defsNode, seq)
}

// parseNameList parses a comma-separated, semicolon-terminated list of
// identifiers for LOCAL/NONLOCAL declarations.
func (p *Parser) parseNameList() ([]*array.Array, error) {
	var out []*array.Array
	for {
		t, ok := p.peek()
		if !ok || t.Property != scan.Identifier {
			return nil, newError(p.toks, p.pos, "expected identifier in declaration")
		}
		p.advance()
		phr, err := p.h.NewPhrase(t.Text)
		if err != nil {
			return nil, err
		}
		out = append(out, phr)
		if p.atDelim(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectDelim(";"); err != nil {
		return nil, err
	}
	return out, nil
}

// parseParamList parses a single identifier or a parenthesized,
// comma-separated identifier list naming the parameters of an opform or
// trform whose namespace ns has *already* been pushed onto current_env
// (parseOpformBody/parseTrformBody enter scope before calling this, so
// each name both resolves and is declared against the new namespace
// rather than the enclosing one). Each name is declared a local of ns
// with the next sequential activation-record offset (section 3's static
// addressing scheme) and built into a TagVariable node referencing that
// namespace and offset directly — unlike tryParseIdList's fallback,
// which only interns an as-yet-unassigned identifier, a parameter is
// always immediately a bound local.
func (p *Parser) parseParamList(ns *symtab.Namespace) (*array.Array, error) {
	if p.atDelim("(") {
		start := p.mark()
		p.advance()
		var ids []*array.Array
		for {
			t, ok := p.peek()
			if !ok || t.Property != scan.Identifier {
				p.reset(start)
				return nil, errors.New("not a parameter list")
			}
			p.advance()
			id, err := p.declareParam(ns, t)
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
		return nil, errors.New("not a parameter")
	}
	p.advance()
	return p.declareParam(ns, t)
}

// declareParam declares t.Text as a local of ns and returns its
// TagVariable reference node.
func (p *Parser) declareParam(ns *symtab.Namespace, t scan.Token) (*array.Array, error) {
	phr, err := p.h.NewPhrase(t.Text)
	if err != nil {
		return nil, err
	}
	e := ns.DeclareLocal(t.Text, symtab.Variable)
	return NewNode(p.h, TagVariable, p.h.IntScalar(int64(nsIndex(p.env, ns))), p.h.IntScalar(int64(e.LocalOffset)), phr)
}

// envSnapshot captures current_env as a TagList of namespace markers.
// Namespaces are not themselves arrays; the snapshot records each
// namespace's position (by owner name, interned as a phrase) so the
// evaluator's closure machinery (internal/eval) can look the live
// *symtab.Namespace back up through the interpreter's namespace
// registry at apply time. See DESIGN.md for why env is carried this way
// rather than embedding Go pointers in the parse tree.
func (p *Parser) envSnapshot() (*array.Array, error) {
	var names []*array.Array
	for _, ns := range p.env {
		phr, err := p.h.NewPhrase(ns.Name)
		if err != nil {
			return nil, err
		}
		names = append(names, phr)
	}
	return NewNode(p.h, TagList, names...)
}
