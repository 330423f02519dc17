package array

import (
	"github.com/pkg/errors"
)

// Array is the single data representation of the language: every value,
// and every parse-tree node, is an Array. See section 3 of the
// specification for the invariants this type must uphold.
type Array struct {
	kind  Kind
	shape []int
	tally int
	refs  int32
	block Block // backing allocator block, for accounting/coalescing

	bools  []bool
	ints   []int64
	reals  []float64
	chars  []rune
	atoms  []int32  // interned phrase/fault identities, parallel to tally
	mixed  []*Array // references, for Mixed
}

// Kind returns the array's kind.
func (a *Array) Kind() Kind { return a.kind }

// Shape returns the array's shape. Callers must not mutate the returned
// slice.
func (a *Array) Shape() []int { return a.shape }

// Valence is the array's rank: len(Shape()).
func (a *Array) Valence() int { return len(a.shape) }

// Tally is the total item count; Tally() == product(Shape()).
func (a *Array) Tally() int { return a.tally }

// Refs returns the current reference count. 0 means an unowned temporary
// on the operand stack; >=1 means bound somewhere durable.
func (a *Array) Refs() int32 { return a.refs }

// IsAtom reports whether a is a rank-0 homogeneous scalar.
func (a *Array) IsAtom() bool { return a.kind != Mixed && len(a.shape) == 0 }

// IsSingle reports whether a is a rank-0 container holding one item.
func (a *Array) IsSingle() bool { return len(a.shape) == 0 && a.tally == 1 }

func product(shape []int) int {
	p := 1
	for _, s := range shape {
		p *= s
	}
	return p
}

// Heap is the allocator-backed factory and refcounting authority for
// arrays. All array creation and release go through a Heap so that the
// free-list bookkeeping (section 4.A) stays consistent.
type Heap struct {
	alloc  *Allocator
	intern *InternTables
}

// HeapOption configures a Heap at construction time, mirroring the
// functional-options idiom used for constructing stateful instances
// elsewhere in this module.
type HeapOption func(*Heap)

// WithCapacity sets the initial size, growth increment, and hard cap (in
// words) of the heap's backing region.
func WithCapacity(initial, increment, hardCap int) HeapOption {
	return func(h *Heap) { h.alloc = NewAllocator(initial, increment, hardCap) }
}

// NewHeap creates a Heap with sensible defaults, overridable by opts.
func NewHeap(opts ...HeapOption) *Heap {
	h := &Heap{
		alloc:  NewAllocator(1<<16, 1<<16, 1<<30),
		intern: newInternTables(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Allocator exposes the heap's backing allocator, primarily for tests
// and diagnostics.
func (h *Heap) Allocator() *Allocator { return h.alloc }

func (h *Heap) reserve(tally int) (Block, error) {
	n := tally
	if n == 0 {
		n = 1
	}
	return h.alloc.Alloc(n)
}

func newArray(kind Kind, shape []int, block Block) *Array {
	return &Array{kind: kind, shape: shape, tally: product(shape), block: block}
}

// NewBoolean allocates a boolean array of the given shape, zero-filled.
func (h *Heap) NewBoolean(shape []int) (*Array, error) {
	blk, err := h.reserve(product(shape))
	if err != nil {
		return nil, errors.Wrap(err, "NewBoolean")
	}
	a := newArray(Boolean, shape, blk)
	a.bools = make([]bool, a.tally)
	return a, nil
}

// NewInteger allocates an integer array of the given shape, zero-filled.
func (h *Heap) NewInteger(shape []int) (*Array, error) {
	blk, err := h.reserve(product(shape))
	if err != nil {
		return nil, errors.Wrap(err, "NewInteger")
	}
	a := newArray(Integer, shape, blk)
	a.ints = make([]int64, a.tally)
	return a, nil
}

// NewReal allocates a real array of the given shape, zero-filled.
func (h *Heap) NewReal(shape []int) (*Array, error) {
	blk, err := h.reserve(product(shape))
	if err != nil {
		return nil, errors.Wrap(err, "NewReal")
	}
	a := newArray(Real, shape, blk)
	a.reals = make([]float64, a.tally)
	return a, nil
}

// NewChar allocates a char array of the given shape, zero-filled.
func (h *Heap) NewChar(shape []int) (*Array, error) {
	blk, err := h.reserve(product(shape))
	if err != nil {
		return nil, errors.Wrap(err, "NewChar")
	}
	a := newArray(Char, shape, blk)
	a.chars = make([]rune, a.tally)
	return a, nil
}

// NewMixed allocates a mixed array of the given shape; items are
// reference slots, initially nil.
func (h *Heap) NewMixed(shape []int) (*Array, error) {
	blk, err := h.reserve(product(shape))
	if err != nil {
		return nil, errors.Wrap(err, "NewMixed")
	}
	a := newArray(Mixed, shape, blk)
	a.mixed = make([]*Array, a.tally)
	return a, nil
}

// BoolScalar creates an atomic boolean value.
func (h *Heap) BoolScalar(v bool) *Array {
	a, _ := h.NewBoolean(nil)
	a.bools[0] = v
	return a
}

// IntScalar creates an atomic integer value.
func (h *Heap) IntScalar(v int64) *Array {
	a, _ := h.NewInteger(nil)
	a.ints[0] = v
	return a
}

// RealScalar creates an atomic real value.
func (h *Heap) RealScalar(v float64) *Array {
	a, _ := h.NewReal(nil)
	a.reals[0] = v
	return a
}

// CharScalar creates an atomic char value.
func (h *Heap) CharScalar(v rune) *Array {
	a, _ := h.NewChar(nil)
	a.chars[0] = v
	return a
}

// Retain bumps a's reference count. Call this whenever a is bound
// durably: into a symbol table value cell, an activation slot, or a
// mixed container item.
func (h *Heap) Retain(a *Array) {
	if a == nil {
		return
	}
	a.refs++
}

// Release drops a's reference count and, if it reaches zero, recursively
// releases its items (for Mixed) and frees its backing block.
func (h *Heap) Release(a *Array) {
	if a == nil {
		return
	}
	a.refs--
	if a.refs > 0 {
		return
	}
	if a.refs < 0 {
		a.refs = 0
	}
	if a.kind == Mixed {
		for _, item := range a.mixed {
			if item != nil {
				h.Release(item)
			}
		}
	}
	h.alloc.Free(a.block)
}

// Bool returns the i'th item of a boolean array.
func (a *Array) Bool(i int) bool { return a.bools[i] }

// Int returns the i'th item of an integer array.
func (a *Array) Int(i int) int64 { return a.ints[i] }

// Real returns the i'th item of a real array.
func (a *Array) Real(i int) float64 { return a.reals[i] }

// Char returns the i'th item of a char array.
func (a *Array) Char(i int) rune { return a.chars[i] }

// Item returns the i'th item reference of a mixed array.
func (a *Array) Item(i int) *Array { return a.mixed[i] }

// SetBool sets the i'th item of a boolean array.
func (a *Array) SetBool(i int, v bool) { a.bools[i] = v }

// SetInt sets the i'th item of an integer array.
func (a *Array) SetInt(i int, v int64) { a.ints[i] = v }

// SetReal sets the i'th item of a real array.
func (a *Array) SetReal(i int, v float64) { a.reals[i] = v }

// SetChar sets the i'th item of a char array.
func (a *Array) SetChar(i int, v rune) { a.chars[i] = v }

// SetItem stores ref at index i of a mixed array, retaining the new
// occupant and releasing whatever was there before, per the ownership
// rule in section 3 ("store into a container increments the stored
// item's refcount; overwrite decrements the previous occupant").
func (a *Array) SetItem(h *Heap, i int, ref *Array) {
	prev := a.mixed[i]
	h.Retain(ref)
	a.mixed[i] = ref
	if prev != nil {
		h.Release(prev)
	}
}

// atomKind reports the homogeneous kind shared by every item of a, or
// (Mixed, false) if a is empty or heterogeneous. Used by Implode to
// decide whether a mixed array must be re-encoded.
func (a *Array) atomKind() (Kind, bool) {
	if a.kind != Mixed || a.tally == 0 {
		return Mixed, false
	}
	k, ok := Kind(0), false
	for _, it := range a.mixed {
		if it == nil || !it.IsAtom() {
			return Mixed, false
		}
		if !ok {
			k, ok = it.kind, true
			continue
		}
		if it.kind != k {
			return Mixed, false
		}
	}
	return k, ok
}

// Implode re-encodes a mixed array whose items are all atoms of one
// homogeneous kind into a packed array of that kind, per the
// representation canonicalization invariant in section 3: "no mixed
// array exists that could be homogeneous". It returns a unchanged if no
// implosion applies.
func Implode(h *Heap, a *Array) (*Array, error) {
	k, ok := a.atomKind()
	if !ok {
		return a, nil
	}
	shape := a.shape
	var out *Array
	var err error
	switch k {
	case Boolean:
		out, err = h.NewBoolean(shape)
		if err == nil {
			for i, it := range a.mixed {
				out.bools[i] = it.bools[0]
			}
		}
	case Integer:
		out, err = h.NewInteger(shape)
		if err == nil {
			for i, it := range a.mixed {
				out.ints[i] = it.ints[0]
			}
		}
	case Real:
		out, err = h.NewReal(shape)
		if err == nil {
			for i, it := range a.mixed {
				out.reals[i] = it.reals[0]
			}
		}
	case Char:
		out, err = h.NewChar(shape)
		if err == nil {
			for i, it := range a.mixed {
				out.chars[i] = it.chars[0]
			}
		}
	case Phrase, Fault:
		out = newArray(k, shape, Block{})
		blk, aerr := h.reserve(out.tally)
		if aerr != nil {
			return nil, errors.Wrap(aerr, "Implode")
		}
		out.block = blk
		out.atoms = make([]int32, out.tally)
		for i, it := range a.mixed {
			out.atoms[i] = it.atoms[0]
		}
	default:
		return a, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "Implode")
	}
	h.Release(a)
	return out, nil
}

// Reshape relabels a's shape in place and returns a. The caller is
// responsible for ensuring product(shape) == a.Tally(); used by
// internal/index to give a flat-built slice result the rank its
// placeholder axes imply.
func Reshape(a *Array, shape []int) *Array {
	a.shape = shape
	return a
}

// EnsureUnshared implements the copy-on-write helper of section 4.A:
// returns a unchanged when it has at most one owner, otherwise a fresh,
// unshared copy with the same items. refcount(a) <= 1 is the "unshared"
// threshold per the spec: 0 means an unowned stack temporary, 1 means a
// single durable binding, either of which may be mutated in place.
func EnsureUnshared(h *Heap, a *Array) (*Array, error) {
	if a.refs <= 1 {
		return a, nil
	}
	out, err := cloneShape(h, a)
	if err != nil {
		return nil, errors.Wrap(err, "EnsureUnshared")
	}
	switch a.kind {
	case Boolean:
		copy(out.bools, a.bools)
	case Integer:
		copy(out.ints, a.ints)
	case Real:
		copy(out.reals, a.reals)
	case Char:
		copy(out.chars, a.chars)
	case Phrase, Fault:
		copy(out.atoms, a.atoms)
	case Mixed:
		for i, it := range a.mixed {
			out.SetItem(h, i, it)
		}
	}
	return out, nil
}

func cloneShape(h *Heap, a *Array) (*Array, error) {
	switch a.kind {
	case Boolean:
		return h.NewBoolean(a.shape)
	case Integer:
		return h.NewInteger(a.shape)
	case Real:
		return h.NewReal(a.shape)
	case Char:
		return h.NewChar(a.shape)
	case Mixed:
		return h.NewMixed(a.shape)
	case Phrase, Fault:
		out := newArray(a.kind, a.shape, Block{})
		blk, err := h.reserve(out.tally)
		if err != nil {
			return nil, err
		}
		out.block = blk
		out.atoms = make([]int32, out.tally)
		return out, nil
	default:
		return nil, errors.Errorf("cloneShape: unknown kind %v", a.kind)
	}
}
