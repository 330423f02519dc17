package index_test

import (
	"testing"

	"github.com/arrlang/nial/internal/array"
	"github.com/arrlang/nial/internal/index"
)

func intVector(t *testing.T, h *array.Heap, vals ...int64) *array.Array {
	t.Helper()
	a, err := h.NewInteger([]int{len(vals)})
	if err != nil {
		t.Fatalf("NewInteger: %v", err)
	}
	for i, v := range vals {
		a.SetInt(i, v)
	}
	return a
}

func intMatrix(t *testing.T, h *array.Heap, rows, cols int, vals ...int64) *array.Array {
	t.Helper()
	a, err := h.NewInteger([]int{rows, cols})
	if err != nil {
		t.Fatalf("NewInteger: %v", err)
	}
	for i, v := range vals {
		a.SetInt(i, v)
	}
	return a
}

func TestPickAddressesByLinearOffset(t *testing.T) {
	h := array.NewHeap()
	v := intVector(t, h, 10, 20, 30)
	got, err := index.Pick(h, v, h.IntScalar(1))
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if got.Kind() != array.Integer || got.Int(0) != 20 {
		t.Fatalf("result = %+v, want Integer 20", got)
	}
}

func TestPickTwoAxisAddress(t *testing.T) {
	h := array.NewHeap()
	m := intMatrix(t, h, 2, 3, 1, 2, 3, 4, 5, 6)
	addr := intVector(t, h, 1, 2)
	got, err := index.Pick(h, m, addr)
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if got.Int(0) != 6 {
		t.Fatalf("result = %+v, want Integer 6", got)
	}
}

func TestPickOutOfRangeIsError(t *testing.T) {
	h := array.NewHeap()
	v := intVector(t, h, 1, 2, 3)
	if _, err := index.Pick(h, v, h.IntScalar(5)); err == nil {
		t.Fatalf("expected an out-of-range error")
	}
}

func TestPlaceReturnsAnUnsharedCopyWhenTargetIsShared(t *testing.T) {
	h := array.NewHeap()
	v := intVector(t, h, 1, 2, 3)
	h.Retain(v) // the first binding
	h.Retain(v) // simulate a second binding sharing this array
	out, changed, err := index.Place(h, v, h.IntScalar(1), h.IntScalar(99))
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if !changed {
		t.Fatalf("expected a copy since the target was shared")
	}
	if v.Int(1) != 2 {
		t.Fatalf("original array was mutated: %+v", v)
	}
	if out.Int(1) != 99 {
		t.Fatalf("result = %+v, want [1 99 3]", out)
	}
}

func TestPlaceMutatesInPlaceWhenUnshared(t *testing.T) {
	h := array.NewHeap()
	v := intVector(t, h, 1, 2, 3)
	out, changed, err := index.Place(h, v, h.IntScalar(0), h.IntScalar(42))
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if changed {
		t.Fatalf("expected in-place update, no identity change")
	}
	if out.Int(0) != 42 {
		t.Fatalf("result = %+v, want [42 2 3]", out)
	}
}

func TestPlaceExplodesToMixedOnKindMismatch(t *testing.T) {
	h := array.NewHeap()
	v := intVector(t, h, 1, 2, 3)
	out, changed, err := index.Place(h, v, h.IntScalar(0), h.CharScalar('x'))
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if !changed {
		t.Fatalf("expected exploding to Mixed to change the container identity")
	}
	if out.Kind() != array.Mixed {
		t.Fatalf("result kind = %v, want Mixed", out.Kind())
	}
	item0 := out.Item(0)
	if item0.Kind() != array.Char || item0.Char(0) != 'x' {
		t.Fatalf("item 0 = %+v, want Char 'x' unchanged", item0)
	}
	item1 := out.Item(1)
	if item1.Kind() != array.Integer || item1.Int(0) != 2 {
		t.Fatalf("item 1 = %+v, want Integer 2 preserved", item1)
	}
	item2 := out.Item(2)
	if item2.Kind() != array.Integer || item2.Int(0) != 3 {
		t.Fatalf("item 2 = %+v, want Integer 3 preserved", item2)
	}
}

func TestReachWalksNestedAddresses(t *testing.T) {
	h := array.NewHeap()
	inner := intVector(t, h, 7, 8, 9)
	outer, err := h.NewMixed([]int{2})
	if err != nil {
		t.Fatalf("NewMixed: %v", err)
	}
	outer.SetItem(h, 0, h.IntScalar(100))
	outer.SetItem(h, 1, inner)

	path, err := h.NewMixed([]int{2})
	if err != nil {
		t.Fatalf("NewMixed: %v", err)
	}
	path.SetItem(h, 0, h.IntScalar(1))
	path.SetItem(h, 1, h.IntScalar(2))

	got, err := index.Reach(h, outer, path)
	if err != nil {
		t.Fatalf("Reach: %v", err)
	}
	if got.Int(0) != 9 {
		t.Fatalf("result = %+v, want Integer 9", got)
	}
}

func TestChoosePicksOneAddressPerItem(t *testing.T) {
	h := array.NewHeap()
	v := intVector(t, h, 10, 20, 30, 40)
	addrs, err := h.NewMixed([]int{2})
	if err != nil {
		t.Fatalf("NewMixed: %v", err)
	}
	addrs.SetItem(h, 0, h.IntScalar(3))
	addrs.SetItem(h, 1, h.IntScalar(0))

	got, err := index.Choose(h, v, addrs)
	if err != nil {
		t.Fatalf("Choose: %v", err)
	}
	if got.Tally() != 2 || got.Int(0) != 40 || got.Int(1) != 10 {
		t.Fatalf("result = %+v, want [40 10]", got)
	}
}

func TestChoosePlaceOrdersLaterWritesLast(t *testing.T) {
	h := array.NewHeap()
	v := intVector(t, h, 1, 2, 3)
	addrs, err := h.NewMixed([]int{2})
	if err != nil {
		t.Fatalf("NewMixed: %v", err)
	}
	addrs.SetItem(h, 0, h.IntScalar(0))
	addrs.SetItem(h, 1, h.IntScalar(0))
	vals := intVector(t, h, 10, 20)

	out, _, err := index.ChoosePlace(h, v, addrs, vals)
	if err != nil {
		t.Fatalf("ChoosePlace: %v", err)
	}
	if out.Int(0) != 20 {
		t.Fatalf("result = %+v, want the later write (20) to win", out)
	}
}

func TestSliceDropsFixedAxisKeepsWhole(t *testing.T) {
	h := array.NewHeap()
	m := intMatrix(t, h, 2, 3, 1, 2, 3, 4, 5, 6)
	spec, err := h.NewMixed([]int{2})
	if err != nil {
		t.Fatalf("NewMixed: %v", err)
	}
	spec.SetItem(h, 0, h.IntScalar(1))    // fix row 1
	spec.SetItem(h, 1, h.CharScalar('*')) // keep the column axis whole

	got, err := index.Slice(h, m, spec)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if got.Tally() != 3 || got.Int(0) != 4 || got.Int(1) != 5 || got.Int(2) != 6 {
		t.Fatalf("result = %+v, want row 1 = [4 5 6]", got)
	}
}

func TestSlicePlaceReplicatesScalarAcrossHyperSlice(t *testing.T) {
	h := array.NewHeap()
	m := intMatrix(t, h, 2, 3, 1, 2, 3, 4, 5, 6)
	spec, err := h.NewMixed([]int{2})
	if err != nil {
		t.Fatalf("NewMixed: %v", err)
	}
	spec.SetItem(h, 0, h.IntScalar(0))
	spec.SetItem(h, 1, h.CharScalar('*'))

	out, _, err := index.SlicePlace(h, m, spec, h.IntScalar(0))
	if err != nil {
		t.Fatalf("SlicePlace: %v", err)
	}
	for c := 0; c < 3; c++ {
		addr := intVector(t, h, 0, int64(c))
		v, err := index.Pick(h, out, addr)
		if err != nil {
			t.Fatalf("Pick: %v", err)
		}
		if v.Int(0) != 0 {
			t.Fatalf("row 0 col %d = %d, want 0 (replicated)", c, v.Int(0))
		}
	}
	addr := intVector(t, h, 1, 0)
	v, err := index.Pick(h, out, addr)
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if v.Int(0) != 4 {
		t.Fatalf("row 1 untouched = %+v, want Integer 4", v)
	}
}
