// Package eval walks the parse trees internal/parse produces and
// performs the evaluation, application, and closure-construction rules
// of section 4.E/4.G. Where internal/parse resolves names to
// (namespace index, static offset) pairs once at parse time, this
// package supplies the other half: a runtime activation chain addressed
// by those same coordinates, mirroring the original's activation-stack
// discipline without requiring a single growable Go slice shared across
// goroutines (there are none here; the language is single-threaded,
// section 4.I).
package eval

import (
	"github.com/pkg/errors"

	"github.com/arrlang/nial/internal/array"
	"github.com/arrlang/nial/internal/parse"
	"github.com/arrlang/nial/internal/symtab"
)

// Frame is one live activation record: the namespace it instantiates
// (shared, parse-time-allocated) plus the per-call slots addressed by
// each local's static offset (section 3's "cur_sp + static_offset").
type Frame struct {
	NS    *symtab.Namespace
	Slots []*array.Array
}

// Env is a runtime activation chain, innermost first, exactly mirroring
// the shape of the symtab.Env chain current_env had when the
// corresponding parse-tree node was built — so a node's nsIndex field
// indexes directly into an Env of this shape (section 4.G).
type Env []*Frame

// Interp bundles everything eval needs to run: the heap, the global
// namespace, and (during a call) the active runtime environment chain.
// Bundling state into one struct rather than package globals is the
// same design this module's host type (Interpreter, in the top-level
// package) follows for the scanner and parser.
type Interp struct {
	H      *array.Heap
	Global *symtab.Namespace

	// CurEnv is the runtime chain for whatever call is presently
	// executing; nil at the top level (global scope, nsIndex -1).
	CurEnv Env

	// callDepth backs the call-stack depth recorded by a recovery
	// record (section 4.I); applyOpform and applyTrform increment and
	// decrement it.
	callDepth int
}

// New creates an Interp sharing h and global with the scanner/parser
// that produced the trees it will evaluate.
func New(h *array.Heap, global *symtab.Namespace) *Interp {
	return &Interp{H: h, Global: global}
}

// exitSignal implements the EXIT non-local transfer (section 4.E): it
// unwinds Go's call stack back to the nearest enclosing loop, which
// must catch it and stop iterating.
type exitSignal struct{ value *array.Array }

func (e *exitSignal) Error() string { return "exit" }

// FaultSignal implements the fault-triggering non-local transfer
// (section 4.E/4.I): creating a triggered fault unwinds to the nearest
// catch (or to the top level, represented by the caller of Eval).
type FaultSignal struct{ Fault *array.Array }

func (f *FaultSignal) Error() string { return "fault triggered" }

// Eval evaluates one parse-tree node, dispatching on its tag (section
// 4.E's operand-stack discipline is modeled by ordinary Go recursion:
// every case below both "pops its operands" — by evaluating its
// sub-nodes — and "pushes its result" — by returning it).
func (in *Interp) Eval(node *array.Array) (*array.Array, error) {
	if node == nil {
		return nil, errors.New("eval: nil node")
	}
	if node.Kind() != array.Mixed {
		// Data flowing through, not a parse-tree node (e.g. an already
		// evaluated argument being re-evaluated defensively).
		return node, nil
	}
	switch parse.TagOf(node) {
	case parse.TagConstant:
		return in.evalConstant(node)
	case parse.TagVariable:
		return in.evalVariable(node)
	case parse.TagIdentifier:
		return in.evalVariable(node)
	case parse.TagBasic:
		return node, nil // operation/transformer value, applied by the caller
	case parse.TagOpform, parse.TagTrform:
		return in.makeClosure(node)
	case parse.TagClosure:
		return node, nil
	case parse.TagCurried, parse.TagVcurried, parse.TagComposition:
		return node, nil // operation values; Apply resolves their components lazily
	case parse.TagAtlas:
		return node, nil // an atlas is itself an operation value
	case parse.TagOpcall:
		return in.evalOpcall(node)
	case parse.TagBasicBinopcall:
		return in.evalBasicBinopcall(node)
	case parse.TagTransform:
		return in.evalTransform(node)
	case parse.TagParendobj:
		return in.evalParendobj(node)
	case parse.TagDottedobj:
		return in.Eval(parse.Field(node, 0))
	case parse.TagStrand:
		return in.evalStrand(node)
	case parse.TagList:
		return in.evalList(node)
	case parse.TagExprseq:
		return in.evalExprseq(node)
	case parse.TagDefnseq:
		return in.evalDefnseq(node)
	case parse.TagDefinition:
		return in.evalDefinition(node)
	case parse.TagAssignexpr:
		return in.evalAssign(node)
	case parse.TagIndexedassign:
		return in.evalIndexedAssign(node)
	case parse.TagIfexpr:
		return in.evalIf(node)
	case parse.TagWhileexpr:
		return in.evalWhile(node)
	case parse.TagRepeatexpr:
		return in.evalRepeat(node)
	case parse.TagForexpr:
		return in.evalFor(node)
	case parse.TagCaseexpr:
		return in.evalCase(node)
	case parse.TagExitexpr:
		return in.evalExit(node)
	case parse.TagPickplace, parse.TagReachput, parse.TagChoose, parse.TagSlice:
		return in.evalIndexNode(node)
	case parse.TagBlockbody:
		return in.evalBlockbody(node)
	case parse.TagNulltree:
		return in.noExpr()
	default:
		return nil, errors.Errorf("eval: unhandled tag %v", parse.TagOf(node))
	}
}

// noExpr is the value of an action with no result (section 4.E), the
// non-triggering sentinel fault ?noexpr.
func (in *Interp) noExpr() (*array.Array, error) {
	f, _, err := in.H.NewFault("noexpr")
	return f, err
}

func (in *Interp) evalConstant(node *array.Array) (*array.Array, error) {
	v := parse.Field(node, 0)
	if v.Kind() == array.Fault && in.H.Triggering() {
		// A fault literal written directly in source triggers while
		// fault triggering is enabled, per the "constant" evaluation
		// rule (section 4.E), unless it is wrapped in a parendobj
		// (evalParendobj suppresses this).
		return nil, &FaultSignal{Fault: v}
	}
	return v, nil
}

// evalVariable resolves a TagVariable/TagIdentifier node's (nsIndex,
// offset, name) coordinates against the runtime chain: nsIndex == -1
// means global, offset >= 0 means a positional activation slot, offset
// == -1 means "not a local — resolve by name in that namespace's
// entry", covering the identifiers internal/parse interned without a
// declared local slot (e.g. implicit assignment targets in scopes that
// never declared them LOCAL; see DESIGN.md).
func (in *Interp) evalVariable(node *array.Array) (*array.Array, error) {
	nsIndex := parse.Field(node, 0).Int(0)
	offset := parse.Field(node, 1).Int(0)
	namePhrase := parse.Field(node, 2)
	name := in.H.PhraseText(namePhrase)

	if nsIndex < 0 {
		e := in.Global.Find(name)
		if e == nil || e.Value == nil {
			f, _, err := in.H.NewFault("undefined")
			if err != nil {
				return nil, err
			}
			return f, nil
		}
		return e.Value.(*array.Array), nil
	}

	if int(nsIndex) >= len(in.CurEnv) {
		return nil, errors.Errorf("eval: namespace index %d out of range (env depth %d)", nsIndex, len(in.CurEnv))
	}
	frame := in.CurEnv[nsIndex]
	if offset >= 0 {
		if int(offset) >= len(frame.Slots) || frame.Slots[offset] == nil {
			f, _, err := in.H.NewFault("undefined")
			return f, err
		}
		return frame.Slots[offset], nil
	}
	e := frame.NS.Find(name)
	if e == nil || e.Value == nil {
		f, _, err := in.H.NewFault("undefined")
		return f, err
	}
	return e.Value.(*array.Array), nil
}

// bindVariable stores val into the slot/entry a TagVariable/TagIdentifier
// node addresses, retaining val and releasing whatever was there before
// (section 3's container ownership rule applies equally to activation
// slots and global entries).
func (in *Interp) bindVariable(node *array.Array, val *array.Array) error {
	nsIndex := parse.Field(node, 0).Int(0)
	offset := parse.Field(node, 1).Int(0)
	namePhrase := parse.Field(node, 2)
	name := in.H.PhraseText(namePhrase)

	in.H.Retain(val)

	if nsIndex < 0 {
		e := in.Global.Intern(name)
		if old, ok := e.Value.(*array.Array); ok && old != nil {
			in.H.Release(old)
		}
		e.Role = symtab.Variable
		e.Value = val
		return nil
	}
	if int(nsIndex) >= len(in.CurEnv) {
		return errors.Errorf("eval: namespace index %d out of range (env depth %d)", nsIndex, len(in.CurEnv))
	}
	frame := in.CurEnv[nsIndex]
	if offset >= 0 {
		for int(offset) >= len(frame.Slots) {
			frame.Slots = append(frame.Slots, nil)
		}
		if frame.Slots[offset] != nil {
			in.H.Release(frame.Slots[offset])
		}
		frame.Slots[offset] = val
		return nil
	}
	e := frame.NS.Intern(name)
	if old, ok := e.Value.(*array.Array); ok && old != nil {
		in.H.Release(old)
	}
	e.Role = symtab.Variable
	e.Value = val
	return nil
}

func (in *Interp) evalParendobj(node *array.Array) (*array.Array, error) {
	inner := parse.Field(node, 0)
	// A parenthesized constant fault does not trigger (section 9's
	// documented, preserved divergence): unwrap the suppression here
	// rather than going through evalConstant's triggering path.
	if parse.TagOf(inner) == parse.TagConstant {
		v := parse.Field(inner, 0)
		return v, nil
	}
	return in.Eval(inner)
}

func (in *Interp) evalStrand(node *array.Array) (*array.Array, error) {
	n := parse.NumFields(node)
	items := make([]*array.Array, n)
	for i := 0; i < n; i++ {
		v, err := in.Eval(parse.Field(node, i))
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return in.implodeList(items)
}

func (in *Interp) evalList(node *array.Array) (*array.Array, error) {
	n := parse.NumFields(node)
	items := make([]*array.Array, n)
	for i := 0; i < n; i++ {
		v, err := in.Eval(parse.Field(node, i))
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return in.implodeList(items)
}

// implodeList builds a Mixed array of items and, per section 3's
// canonicalization invariant, packs it down to a homogeneous array when
// every item is an atom of the same kind.
func (in *Interp) implodeList(items []*array.Array) (*array.Array, error) {
	a, err := in.H.NewMixed([]int{len(items)})
	if err != nil {
		return nil, err
	}
	for i, it := range items {
		a.SetItem(in.H, i, it)
	}
	return array.Implode(in.H, a)
}

func (in *Interp) evalExprseq(node *array.Array) (*array.Array, error) {
	n := parse.NumFields(node)
	if n == 0 {
		return in.noExpr()
	}
	var last *array.Array
	var err error
	for i := 0; i < n; i++ {
		last, err = in.Eval(parse.Field(node, i))
		if err != nil {
			return nil, err
		}
	}
	return last, nil
}

func (in *Interp) evalDefnseq(node *array.Array) (*array.Array, error) {
	for i := 0; i < parse.NumFields(node); i++ {
		if _, err := in.Eval(parse.Field(node, i)); err != nil {
			return nil, err
		}
	}
	return in.noExpr()
}

// evalDefinition binds name's value: for a Variable-role definition,
// evaluating the right-hand side; for an Operation/Transformer-role
// definition, constructing its closure so later application sees a
// value rather than the bare static opform/trform node.
func (in *Interp) evalDefinition(node *array.Array) (*array.Array, error) {
	namePhrase := parse.Field(node, 0)
	rhs := parse.Field(node, 1)
	name := in.H.PhraseText(namePhrase)
	val, err := in.Eval(rhs)
	if err != nil {
		return nil, err
	}
	e := in.Global.Intern(name)
	in.H.Retain(val)
	if old, ok := e.Value.(*array.Array); ok && old != nil {
		in.H.Release(old)
	}
	switch parse.TagOf(rhs) {
	case parse.TagOpform:
		e.Role = symtab.Operation
	case parse.TagTrform:
		e.Role = symtab.Transformer
	default:
		e.Role = symtab.Variable
	}
	e.Value = val
	return in.noExpr()
}

func (in *Interp) evalBlockbody(node *array.Array) (*array.Array, error) {
	defs := parse.Field(node, 2)
	if _, err := in.evalDefnseq(defs); err != nil {
		return nil, err
	}
	return in.Eval(parse.Field(node, 3))
}
