package eval

import (
	"github.com/pkg/errors"

	"github.com/arrlang/nial/internal/array"
)

// applyBasicBinary implements the pervasive arithmetic primitives
// (+ - * /, basics.go indices 0-3): applied item-by-item across two
// conformant operands, with the usual scalar-extension rule (an atom
// operand is paired with every item of the other), and with a fault
// operand propagating itself rather than being combined (section 4.E:
// only a *newly created* fault triggers; one already flowing through as
// a value does not).
func (in *Interp) applyBasicBinary(idx int, left, right *array.Array) (*array.Array, error) {
	if left.Kind() == array.Fault && left.IsAtom() {
		return left, nil
	}
	if right.Kind() == array.Fault && right.IsAtom() {
		return right, nil
	}

	leftAtom := left.IsAtom()
	rightAtom := right.IsAtom()

	if leftAtom && rightAtom {
		return in.combineAtoms(idx, left, right)
	}

	switch {
	case leftAtom && !rightAtom:
		return in.broadcast(idx, left, right, false)
	case rightAtom && !leftAtom:
		return in.broadcast(idx, right, left, true)
	default:
		if left.Tally() != right.Tally() {
			return in.faultFor("conform")
		}
		leftItems, err := in.itemsOf(left)
		if err != nil {
			return nil, err
		}
		rightItems, err := in.itemsOf(right)
		if err != nil {
			return nil, err
		}
		out := make([]*array.Array, len(leftItems))
		for i := range out {
			r, err := in.combineAtoms(idx, leftItems[i], rightItems[i])
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return in.implodeList(out)
	}
}

// broadcast pairs atom with every item of other. swapped records whether
// atom was originally the right-hand operand, so the combine keeps the
// caller's left/right order.
func (in *Interp) broadcast(idx int, atom, other *array.Array, swapped bool) (*array.Array, error) {
	items, err := in.itemsOf(other)
	if err != nil {
		return nil, err
	}
	out := make([]*array.Array, len(items))
	for i, it := range items {
		var r *array.Array
		var err error
		if swapped {
			r, err = in.combineAtoms(idx, it, atom)
		} else {
			r, err = in.combineAtoms(idx, atom, it)
		}
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return in.implodeList(out)
}

func (in *Interp) combineAtoms(idx int, left, right *array.Array) (*array.Array, error) {
	if left.Kind() == array.Fault {
		return left, nil
	}
	if right.Kind() == array.Fault {
		return right, nil
	}
	lf, lr, lok := numAtom(left)
	rf, rr, rok := numAtom(right)
	if !lok || !rok {
		return in.faultFor("type")
	}
	useReal := lr || rr
	switch idx {
	case basicAdd:
		if useReal {
			return in.H.RealScalar(lf + rf), nil
		}
		return in.H.IntScalar(int64(lf) + int64(rf)), nil
	case basicSub:
		if useReal {
			return in.H.RealScalar(lf - rf), nil
		}
		return in.H.IntScalar(int64(lf) - int64(rf)), nil
	case basicMul:
		if useReal {
			return in.H.RealScalar(lf * rf), nil
		}
		return in.H.IntScalar(int64(lf) * int64(rf)), nil
	case basicDiv:
		if rf == 0 {
			return in.faultFor("zerodivide")
		}
		return in.H.RealScalar(lf / rf), nil
	default:
		return nil, errors.Errorf("applyBasicBinary: index %d is not pervasive", idx)
	}
}

// numAtom extracts an atom's numeric value, reporting whether it is a
// real (so callers can decide result kind) and whether extraction
// succeeded at all (booleans count as 0/1 integers per the usual
// array-language convention).
func numAtom(a *array.Array) (v float64, isReal, ok bool) {
	switch a.Kind() {
	case array.Integer:
		return float64(a.Int(0)), false, true
	case array.Real:
		return a.Real(0), true, true
	case array.Boolean:
		if a.Bool(0) {
			return 1, false, true
		}
		return 0, false, true
	default:
		return 0, false, false
	}
}

func (in *Interp) basicFirst(arg *array.Array) (*array.Array, error) {
	if arg.Tally() == 0 {
		return in.faultFor("empty")
	}
	if arg.Kind() == array.Mixed {
		return arg.Item(0), nil
	}
	return in.scalarAt(arg, 0)
}

func (in *Interp) basicRest(arg *array.Array) (*array.Array, error) {
	if arg.Tally() == 0 {
		return in.faultFor("empty")
	}
	items, err := in.itemsOf(arg)
	if err != nil {
		return nil, err
	}
	return in.implodeList(items[1:])
}

func (in *Interp) basicLink(left, right *array.Array) (*array.Array, error) {
	leftItems, err := in.itemsOf(left)
	if err != nil {
		return nil, err
	}
	rightItems, err := in.itemsOf(right)
	if err != nil {
		return nil, err
	}
	out := make([]*array.Array, 0, len(leftItems)+len(rightItems))
	out = append(out, leftItems...)
	out = append(out, rightItems...)
	return in.implodeList(out)
}

func (in *Interp) basicReverse(arg *array.Array) (*array.Array, error) {
	items, err := in.itemsOf(arg)
	if err != nil {
		return nil, err
	}
	out := make([]*array.Array, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it
	}
	return in.implodeList(out)
}

func (in *Interp) basicShape(arg *array.Array) (*array.Array, error) {
	shape := arg.Shape()
	out, err := in.H.NewInteger([]int{len(shape)})
	if err != nil {
		return nil, err
	}
	for i, s := range shape {
		out.SetInt(i, int64(s))
	}
	return out, nil
}
