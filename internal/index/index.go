// Package index implements the indexed selection/insertion engine of
// section 4.F: pick, reach, choose, slice and their place/placeall/
// deepplace update counterparts, with copy-on-write via
// array.EnsureUnshared. A general path is used throughout; the spec
// notes that any row/column fast path "must be indistinguishable from
// the general path in observable effect" (section 4.F), so this core
// implements only the general path.
package index

import (
	"github.com/pkg/errors"

	"github.com/arrlang/nial/internal/array"
)

// addrInts extracts an address as a slice of axis indices: a lone
// integer atom addresses a rank-1 target by its single index: "A
// one-element integer address against a list uses the single index"
// (section 4.F); an integer array addresses a target of matching
// valence, one index per axis.
func addrInts(addr *array.Array) ([]int, error) {
	switch addr.Kind() {
	case array.Integer:
		if addr.IsAtom() {
			return []int{int(addr.Int(0))}, nil
		}
		out := make([]int, addr.Tally())
		for i := range out {
			out[i] = int(addr.Int(i))
		}
		return out, nil
	case array.Mixed:
		out := make([]int, addr.Tally())
		for i := range out {
			item := addr.Item(i)
			if item.Kind() != array.Integer || !item.IsAtom() {
				return nil, errors.New("index: address item is not an integer")
			}
			out[i] = int(item.Int(0))
		}
		return out, nil
	default:
		return nil, errors.New("index: address must be an integer or a list of integers")
	}
}

// linearIndex collapses an n-axis address to a linear offset by Horner
// evaluation over shape (section 4.F "Pick semantics"), failing if any
// axis is out of range or the address's own valence doesn't match the
// target's.
func linearIndex(shape, addr []int) (int, error) {
	if len(addr) != len(shape) {
		return 0, errors.New("index: address valence does not match target valence")
	}
	off := 0
	for axis, s := range shape {
		i := addr[axis]
		if i < 0 || i >= s {
			return 0, errors.Errorf("index: address out of range on axis %d", axis)
		}
		off = off*s + i
	}
	return off, nil
}

// itemAt returns a's item at linear offset off as a value, whether a is
// Mixed (its own item reference) or homogeneous (a freshly built atom).
func itemAt(h *array.Heap, a *array.Array, off int) (*array.Array, error) {
	switch a.Kind() {
	case array.Mixed:
		return a.Item(off), nil
	case array.Boolean:
		return h.BoolScalar(a.Bool(off)), nil
	case array.Integer:
		return h.IntScalar(a.Int(off)), nil
	case array.Real:
		return h.RealScalar(a.Real(off)), nil
	case array.Char:
		return h.CharScalar(a.Char(off)), nil
	default:
		return nil, errors.Errorf("index: unsupported kind %v", a.Kind())
	}
}

// explode rebuilds a's items into a freshly allocated Mixed array of the
// same shape, boxing each homogeneous atom as its own value (section 4.F
// "Update semantics": a homogeneous target whose item kind differs from
// the assigned value is exploded into a mixed array before the store).
func explode(h *array.Heap, a *array.Array) (*array.Array, error) {
	mixed, err := h.NewMixed(a.Shape())
	if err != nil {
		return nil, err
	}
	for i := 0; i < a.Tally(); i++ {
		item, err := itemAt(h, a, i)
		if err != nil {
			return nil, err
		}
		mixed.SetItem(h, i, item)
	}
	return mixed, nil
}

// setAt stores val at linear offset off of a, which must already be
// EnsureUnshared'd by the caller, and returns the container the store
// actually landed in. A homogeneous target whose kind doesn't match val
// is exploded into a Mixed array first (section 4.F "Update semantics"),
// and the result of a Mixed store is re-tested for implosion so a store
// that happens to restore homogeneity packs back down.
func setAt(h *array.Heap, a *array.Array, off int, val *array.Array) (*array.Array, error) {
	if a.Kind() != array.Mixed && val.Kind() != a.Kind() {
		mixed, err := explode(h, a)
		if err != nil {
			return nil, err
		}
		a = mixed
	}
	switch a.Kind() {
	case array.Mixed:
		a.SetItem(h, off, val)
		return array.Implode(h, a)
	case array.Boolean:
		a.SetBool(off, val.Bool(0))
	case array.Integer:
		a.SetInt(off, val.Int(0))
	case array.Real:
		a.SetReal(off, val.Real(0))
	case array.Char:
		a.SetChar(off, val.Char(0))
	default:
		return nil, errors.Errorf("index: unsupported kind %v", a.Kind())
	}
	return a, nil
}

// Pick returns the single item of a addressed by addr (`A @ I`).
func Pick(h *array.Heap, a, addr *array.Array) (*array.Array, error) {
	idx, err := addrInts(addr)
	if err != nil {
		return nil, err
	}
	off, err := linearIndex(a.Shape(), idx)
	if err != nil {
		return nil, err
	}
	return itemAt(h, a, off)
}

// Place stores val at the address addr picks out of a, copying a first
// if it is shared (section 4.F "Update semantics"). changed reports
// whether the top-level container identity changed, so the caller can
// decide whether a bound variable's slot needs rebinding.
func Place(h *array.Heap, a, addr, val *array.Array) (out *array.Array, changed bool, err error) {
	idx, err := addrInts(addr)
	if err != nil {
		return nil, false, err
	}
	off, err := linearIndex(a.Shape(), idx)
	if err != nil {
		return nil, false, err
	}
	out, err = array.EnsureUnshared(h, a)
	if err != nil {
		return nil, false, err
	}
	out, err = setAt(h, out, off, val)
	if err != nil {
		return nil, false, err
	}
	return out, out != a, nil
}

// pathAddrs splits a reach/deepplace path (`A @@ P`) into one address
// per step: P is "a sequence of addresses" (section 4.F), represented
// as a Mixed array whose items are themselves addresses (an integer
// atom or an integer list).
func pathAddrs(path *array.Array) ([]*array.Array, error) {
	if path.Kind() != array.Mixed {
		return []*array.Array{path}, nil
	}
	out := make([]*array.Array, path.Tally())
	for i := range out {
		out[i] = path.Item(i)
	}
	return out, nil
}

// Reach walks a's nested structure one address per path step and
// returns the value found at the end of the path.
func Reach(h *array.Heap, a, path *array.Array) (*array.Array, error) {
	steps, err := pathAddrs(path)
	if err != nil {
		return nil, err
	}
	cur := a
	for _, addr := range steps {
		cur, err = Pick(h, cur, addr)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// ReachPlace performs a deepplace: only the containers actually on the
// path are copied when shared; containers off the path are untouched,
// and containers on an already-unshared subtree are updated in place
// (section 4.F "deepplace walks the path, copying only those containers
// on the path that are shared").
func ReachPlace(h *array.Heap, a, path, val *array.Array) (out *array.Array, changed bool, err error) {
	steps, err := pathAddrs(path)
	if err != nil {
		return nil, false, err
	}
	if len(steps) == 0 {
		return val, true, nil
	}
	return reachPlaceStep(h, a, steps, val)
}

func reachPlaceStep(h *array.Heap, a *array.Array, steps []*array.Array, val *array.Array) (*array.Array, bool, error) {
	idx, err := addrInts(steps[0])
	if err != nil {
		return nil, false, err
	}
	off, err := linearIndex(a.Shape(), idx)
	if err != nil {
		return nil, false, err
	}
	out, err := array.EnsureUnshared(h, a)
	if err != nil {
		return nil, false, err
	}
	if len(steps) == 1 {
		out, err = setAt(h, out, off, val)
		if err != nil {
			return nil, false, err
		}
		return out, out != a, nil
	}
	child, err := itemAt(h, out, off)
	if err != nil {
		return nil, false, err
	}
	newChild, _, err := reachPlaceStep(h, child, steps[1:], val)
	if err != nil {
		return nil, false, err
	}
	out, err = setAt(h, out, off, newChild)
	if err != nil {
		return nil, false, err
	}
	return out, out != a, nil
}

// Choose returns the array of items a addresses picks out, one pick per
// address in addrs, in addrs' own shape (section 4.F "array of
// addresses same shape as I"; testable property "choose equals
// each-left-pick").
func Choose(h *array.Heap, a, addrs *array.Array) (*array.Array, error) {
	if addrs.Kind() != array.Mixed {
		return nil, errors.New("index: choose address array must be a mixed array of addresses")
	}
	out, err := h.NewMixed(addrs.Shape())
	if err != nil {
		return nil, err
	}
	for i := 0; i < addrs.Tally(); i++ {
		v, err := Pick(h, a, addrs.Item(i))
		if err != nil {
			return nil, err
		}
		out.SetItem(h, i, v)
	}
	return array.Implode(h, out)
}

// ChoosePlace implements placeall: addrs and vals must have the same
// tally, and assignments proceed in addrs' iteration order so a later
// write to a repeated address overwrites an earlier one (section 4.F
// "Ordering guarantee"). An invalid address aborts the whole update
// before committing anything, leaving a's prior identity untouched.
func ChoosePlace(h *array.Heap, a, addrs, vals *array.Array) (out *array.Array, changed bool, err error) {
	if addrs.Kind() != array.Mixed {
		return nil, false, errors.New("index: choose address array must be a mixed array of addresses")
	}
	if addrs.Tally() != vals.Tally() {
		return nil, false, errors.New("index: placeall value count does not match address count")
	}
	offs := make([]int, addrs.Tally())
	for i := range offs {
		idx, err := addrInts(addrs.Item(i))
		if err != nil {
			return nil, false, err
		}
		off, err := linearIndex(a.Shape(), idx)
		if err != nil {
			return nil, false, err
		}
		offs[i] = off
	}
	out, err = array.EnsureUnshared(h, a)
	if err != nil {
		return nil, false, err
	}
	for i, off := range offs {
		v, err := itemAt(h, vals, i)
		if err != nil {
			return nil, false, err
		}
		out, err = setAt(h, out, off, v)
		if err != nil {
			return nil, false, err
		}
	}
	return out, out != a, nil
}

// sliceSpecItem is one axis of a slice specification: either a fixed
// index (that axis is dropped from the result) or "whole axis" (kept).
type sliceSpecItem struct {
	fixed bool
	index int
}

func parseSliceSpec(spec *array.Array) ([]sliceSpecItem, error) {
	if spec.Kind() != array.Mixed {
		idx, err := addrInts(spec)
		if err != nil {
			return nil, err
		}
		out := make([]sliceSpecItem, len(idx))
		for i, v := range idx {
			out[i] = sliceSpecItem{fixed: true, index: v}
		}
		return out, nil
	}
	out := make([]sliceSpecItem, spec.Tally())
	for i := range out {
		item := spec.Item(i)
		if item.Kind() == array.Integer && item.IsAtom() {
			out[i] = sliceSpecItem{fixed: true, index: int(item.Int(0))}
			continue
		}
		// A non-integer placeholder (the nulltree/`?slice`-marked
		// entry a bare "*" parses to) keeps this axis whole.
		out[i] = sliceSpecItem{fixed: false}
	}
	return out, nil
}

// Slice selects the per-axis sub-array spec addresses (`A | I`): a
// fixed axis is dropped, a placeholder axis is kept whole.
func Slice(h *array.Heap, a, spec *array.Array) (*array.Array, error) {
	items, err := parseSliceSpec(spec)
	if err != nil {
		return nil, err
	}
	shape := a.Shape()
	if len(items) > len(shape) {
		return nil, errors.New("index: slice spec has more axes than target")
	}
	var outShape []int
	for axis, s := range shape {
		if axis < len(items) && items[axis].fixed {
			continue
		}
		outShape = append(outShape, s)
	}
	outTally := product(outShape)
	out, err := h.NewMixed([]int{outTally})
	if err != nil {
		return nil, err
	}
	coord := make([]int, len(shape))
	varyAxes := make([]int, 0, len(outShape))
	for axis := range shape {
		if axis >= len(items) || !items[axis].fixed {
			varyAxes = append(varyAxes, axis)
		} else {
			coord[axis] = items[axis].index
		}
	}
	pos := 0
	var walk func(depth int) error
	walk = func(depth int) error {
		if depth == len(varyAxes) {
			off, err := linearIndex(shape, coord)
			if err != nil {
				return err
			}
			v, err := itemAt(h, a, off)
			if err != nil {
				return err
			}
			out.SetItem(h, pos, v)
			pos++
			return nil
		}
		axis := varyAxes[depth]
		for i := 0; i < shape[axis]; i++ {
			coord[axis] = i
			if err := walk(depth + 1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0); err != nil {
		return nil, err
	}
	result, err := array.Implode(h, out)
	if err != nil {
		return nil, err
	}
	result = reshapeFlat(result, outShape)
	return result, nil
}

// reshapeFlat relabels a flat array's shape without touching its
// contents, used to give a slice result the rank its placeholder axes
// imply rather than leaving it rank-1.
func reshapeFlat(a *array.Array, shape []int) *array.Array {
	if len(shape) == 1 {
		return a
	}
	return array.Reshape(a, shape)
}

func product(shape []int) int {
	p := 1
	for _, s := range shape {
		p *= s
	}
	return p
}

// SlicePlace writes val across the hyper-slice spec addresses,
// replicating a rank-0 val across every addressed cell (section 4.F
// "Slice inserts may replicate a rank-0 value across the addressed
// hyper-slice").
func SlicePlace(h *array.Heap, a, spec, val *array.Array) (out *array.Array, changed bool, err error) {
	items, err := parseSliceSpec(spec)
	if err != nil {
		return nil, false, err
	}
	shape := a.Shape()
	out, err = array.EnsureUnshared(h, a)
	if err != nil {
		return nil, false, err
	}
	coord := make([]int, len(shape))
	var varyAxes []int
	for axis := range shape {
		if axis >= len(items) || !items[axis].fixed {
			varyAxes = append(varyAxes, axis)
		} else {
			coord[axis] = items[axis].index
		}
	}
	replicate := val.IsAtom() || val.IsSingle()
	pos := 0
	var vals []*array.Array
	if !replicate {
		vals, err = flatten(h, val)
		if err != nil {
			return nil, false, err
		}
	}
	var walk func(depth int) error
	walk = func(depth int) error {
		if depth == len(varyAxes) {
			off, lerr := linearIndex(shape, coord)
			if lerr != nil {
				return lerr
			}
			v := val
			if !replicate {
				if pos >= len(vals) {
					return errors.New("index: slice value count does not match addressed hyper-slice")
				}
				v = vals[pos]
			}
			pos++
			out, err = setAt(h, out, off, v)
			return err
		}
		axis := varyAxes[depth]
		for i := 0; i < shape[axis]; i++ {
			coord[axis] = i
			if err := walk(depth + 1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0); err != nil {
		return nil, false, err
	}
	return out, out != a, nil
}

func flatten(h *array.Heap, a *array.Array) ([]*array.Array, error) {
	out := make([]*array.Array, a.Tally())
	for i := range out {
		v, err := itemAt(h, a, i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
