package eval

import (
	"github.com/pkg/errors"

	"github.com/arrlang/nial/internal/array"
	"github.com/arrlang/nial/internal/parse"
)

// Basic indices mirror internal/parse/basics.go's fixed table; the two
// packages share no Go type for it (the parser only needs to recognize
// a basic by name and expose its index to the tree, section 6 "basic"
// layout `[tag, index, role, prop, bin-index]"), so eval re-states the
// same small closed index space here as named constants.
const (
	basicAdd = iota
	basicSub
	basicMul
	basicDiv
	basicFirst
	basicRest
	basicLink
	basicReverse
	basicTally
	basicShape
	basicEach
	basicFold
	basicCatch
	basicThrow
)

func (in *Interp) evalOpcall(node *array.Array) (*array.Array, error) {
	opVal, err := in.Eval(parse.Field(node, 0))
	if err != nil {
		return nil, err
	}
	argVal, err := in.Eval(parse.Field(node, 1))
	if err != nil {
		return nil, err
	}
	return in.Apply(opVal, argVal)
}

func (in *Interp) evalBasicBinopcall(node *array.Array) (*array.Array, error) {
	op := parse.Field(node, 0)
	left, err := in.Eval(parse.Field(node, 1))
	if err != nil {
		return nil, err
	}
	right, err := in.Eval(parse.Field(node, 2))
	if err != nil {
		return nil, err
	}
	return in.applyBasicBinary(int(parse.Field(op, 0).Int(0)), left, right)
}

// evalTransform materializes a TO->O transform node into a value: both
// the transformer and its operand are resolved/closed eagerly so that a
// later application only needs to supply the data argument.
func (in *Interp) evalTransform(node *array.Array) (*array.Array, error) {
	trVal, err := in.Eval(parse.Field(node, 0))
	if err != nil {
		return nil, err
	}
	opArgRaw, err := in.Eval(parse.Field(node, 1))
	if err != nil {
		return nil, err
	}
	opArgVal, err := in.prepareOperand(opArgRaw)
	if err != nil {
		return nil, err
	}
	return parse.NewNode(in.H, parse.TagTransform, trVal, opArgVal)
}

// applyBasic dispatches a unary (opcall-style) application of a basic
// primitive. The binary pervasive primitives (+ - * /) are reached here
// too when used prefix/curried rather than through the basic-binopcall
// fast path (e.g. `+ [1,2]`): their argument is expected to already be
// a 2-item array.
func (in *Interp) applyBasic(basic, arg *array.Array) (*array.Array, error) {
	idx := int(parse.Field(basic, 0).Int(0))
	switch idx {
	case basicAdd, basicSub, basicMul, basicDiv:
		if arg.Kind() != array.Mixed || arg.Tally() != 2 {
			return in.faultFor("args")
		}
		return in.applyBasicBinary(idx, arg.Item(0), arg.Item(1))
	case basicFirst:
		return in.basicFirst(arg)
	case basicRest:
		return in.basicRest(arg)
	case basicLink:
		if arg.Kind() != array.Mixed || arg.Tally() != 2 {
			return in.faultFor("args")
		}
		return in.basicLink(arg.Item(0), arg.Item(1))
	case basicReverse:
		return in.basicReverse(arg)
	case basicTally:
		return in.H.IntScalar(int64(arg.Tally())), nil
	case basicShape:
		return in.basicShape(arg)
	case basicCatch:
		return in.basicCatch(arg)
	case basicThrow:
		return in.basicThrow(arg)
	case basicEach, basicFold:
		return nil, errors.New("apply: EACH/FOLD are transformers, not operations")
	default:
		return nil, errors.Errorf("apply: unknown basic index %d", idx)
	}
}

// applyBasicTransform dispatches EACH/FOLD, the only basic transformers
// (basics.go), to their data argument.
func (in *Interp) applyBasicTransform(basic, opArgVal, dataArg *array.Array) (*array.Array, error) {
	idx := int(parse.Field(basic, 0).Int(0))
	switch idx {
	case basicEach:
		return in.basicEach(opArgVal, dataArg)
	case basicFold:
		return in.basicFold(opArgVal, dataArg)
	default:
		return nil, errors.Errorf("apply-transform: basic index %d is not a transformer", idx)
	}
}

func (in *Interp) basicEach(opArgVal, dataArg *array.Array) (*array.Array, error) {
	if dataArg.Kind() != array.Mixed {
		return in.Apply(opArgVal, dataArg)
	}
	out := make([]*array.Array, dataArg.Tally())
	for i := range out {
		r, err := in.Apply(opArgVal, dataArg.Item(i))
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return in.implodeList(out)
}

func (in *Interp) basicFold(opArgVal, dataArg *array.Array) (*array.Array, error) {
	if dataArg.Tally() == 0 {
		return in.faultFor("emptyfold")
	}
	items, err := in.itemsOf(dataArg)
	if err != nil {
		return nil, err
	}
	acc := items[0]
	for _, it := range items[1:] {
		pair, err := in.implodeList([]*array.Array{acc, it})
		if err != nil {
			return nil, err
		}
		acc, err = in.Apply(opArgVal, pair)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// itemsOf returns dataArg's items as a slice, whether it is Mixed (its
// own item refs) or a homogeneous array (each item promoted to its own
// atom), mirroring how a pervasive operation iterates an array.
func (in *Interp) itemsOf(a *array.Array) ([]*array.Array, error) {
	n := a.Tally()
	out := make([]*array.Array, n)
	if a.Kind() == array.Mixed {
		for i := 0; i < n; i++ {
			out[i] = a.Item(i)
		}
		return out, nil
	}
	for i := 0; i < n; i++ {
		v, err := in.scalarAt(a, i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (in *Interp) scalarAt(a *array.Array, i int) (*array.Array, error) {
	switch a.Kind() {
	case array.Boolean:
		return in.H.BoolScalar(a.Bool(i)), nil
	case array.Integer:
		return in.H.IntScalar(a.Int(i)), nil
	case array.Real:
		return in.H.RealScalar(a.Real(i)), nil
	case array.Char:
		return in.H.CharScalar(a.Char(i)), nil
	default:
		return nil, errors.Errorf("scalarAt: unsupported kind %v", a.Kind())
	}
}

func (in *Interp) faultFor(name string) (*array.Array, error) {
	f, triggered, err := in.H.NewFault(name)
	if err != nil {
		return nil, err
	}
	if triggered {
		return nil, &FaultSignal{Fault: f}
	}
	return f, nil
}

func (in *Interp) basicCatch(arg *array.Array) (*array.Array, error) {
	noval, err := in.noExpr()
	if err != nil {
		return nil, err
	}
	r, err := in.Apply(arg, noval)
	if err == nil {
		return r, nil
	}
	if fs, ok := errors.Cause(err).(*FaultSignal); ok {
		return fs.Fault, nil
	}
	if fs, ok := err.(*FaultSignal); ok {
		return fs.Fault, nil
	}
	return nil, err
}

// basicThrow builds a fault from arg's text (a char array or phrase)
// and unconditionally performs the non-local exit, regardless of the
// ambient trigger flag — "throw" always transfers, unlike an ordinary
// fault constant which only transfers when triggering is enabled.
func (in *Interp) basicThrow(arg *array.Array) (*array.Array, error) {
	name, err := faultNameOf(in.H, arg)
	if err != nil {
		return nil, err
	}
	f, _, err := in.H.NewFault(name)
	if err != nil {
		return nil, err
	}
	return nil, &FaultSignal{Fault: f}
}

func faultNameOf(h *array.Heap, a *array.Array) (string, error) {
	switch a.Kind() {
	case array.Phrase:
		return h.PhraseText(a), nil
	case array.Char:
		rs := make([]rune, a.Tally())
		for i := range rs {
			rs[i] = a.Char(i)
		}
		return string(rs), nil
	default:
		return "", errors.New("throw: argument must be a string or phrase")
	}
}
