package eval

import (
	"github.com/pkg/errors"

	"github.com/arrlang/nial/internal/array"
	"github.com/arrlang/nial/internal/index"
	"github.com/arrlang/nial/internal/parse"
)

// evalIndexNode evaluates a pick/reach/choose/slice node in read
// position (section 4.F): evaluate the base and address sub-
// expressions, then delegate the selection itself to internal/index.
func (in *Interp) evalIndexNode(node *array.Array) (*array.Array, error) {
	base, err := in.Eval(parse.Field(node, 0))
	if err != nil {
		return nil, err
	}
	addr, err := in.Eval(parse.Field(node, 1))
	if err != nil {
		return nil, err
	}
	switch parse.TagOf(node) {
	case parse.TagPickplace:
		v, err := index.Pick(in.H, base, addr)
		if err != nil {
			return in.faultFor("address")
		}
		return v, nil
	case parse.TagReachput:
		v, err := index.Reach(in.H, base, addr)
		if err != nil {
			return in.faultFor("path")
		}
		return v, nil
	case parse.TagChoose:
		v, err := index.Choose(in.H, base, addr)
		if err != nil {
			return in.faultFor("addresses")
		}
		return v, nil
	case parse.TagSlice:
		v, err := index.Slice(in.H, base, addr)
		if err != nil {
			return in.faultFor("slice")
		}
		return v, nil
	default:
		return nil, errors.Errorf("eval: %v is not an index form", parse.TagOf(node))
	}
}

// evalIndexedAssign implements an in-place update through one of the
// four indexing notations (section 4.F "Update semantics"): the target
// sub-tree is walked down to its root variable, the new container is
// built bottom-up via internal/index's place functions with copy-on-
// write, and the root variable's slot is rebound only if its top-level
// identity actually changed (section 4.F's `changed` flag).
func (in *Interp) evalIndexedAssign(node *array.Array) (*array.Array, error) {
	target := parse.Field(node, 0)
	rhs := parse.Field(node, 1)
	val, err := in.Eval(rhs)
	if err != nil {
		return nil, err
	}
	if err := in.placeInto(target, val); err != nil {
		return nil, err
	}
	return val, nil
}

// placeInto stores val at the address node addresses, recursing toward
// the root variable: each level re-places the level below's new
// container into its own base, exactly mirroring deepplace's
// copy-on-write-only-on-the-path discipline one index level at a time.
func (in *Interp) placeInto(node, val *array.Array) error {
	switch parse.TagOf(node) {
	case parse.TagVariable, parse.TagIdentifier:
		return in.bindVariable(node, val)
	case parse.TagPickplace, parse.TagReachput, parse.TagChoose, parse.TagSlice:
		baseNode := parse.Field(node, 0)
		addrNode := parse.Field(node, 1)
		base, err := in.Eval(baseNode)
		if err != nil {
			return err
		}
		addr, err := in.Eval(addrNode)
		if err != nil {
			return err
		}
		var out *array.Array
		var changed bool
		switch parse.TagOf(node) {
		case parse.TagPickplace:
			out, changed, err = index.Place(in.H, base, addr, val)
		case parse.TagReachput:
			out, changed, err = index.ReachPlace(in.H, base, addr, val)
		case parse.TagChoose:
			out, changed, err = index.ChoosePlace(in.H, base, addr, val)
		case parse.TagSlice:
			out, changed, err = index.SlicePlace(in.H, base, addr, val)
		}
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return in.placeInto(baseNode, out)
	default:
		return errors.Errorf("eval: %v is not a valid assignment target", parse.TagOf(node))
	}
}
