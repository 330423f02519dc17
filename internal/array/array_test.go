package array_test

import (
	"testing"

	"github.com/arrlang/nial/internal/array"
)

func TestScalarTallyAndValence(t *testing.T) {
	h := array.NewHeap()
	a := h.IntScalar(42)
	if a.Valence() != 0 {
		t.Fatalf("valence = %d, want 0", a.Valence())
	}
	if a.Tally() != 1 {
		t.Fatalf("tally = %d, want 1", a.Tally())
	}
	if !a.IsAtom() {
		t.Fatalf("expected atom")
	}
	if a.Int(0) != 42 {
		t.Fatalf("value = %d, want 42", a.Int(0))
	}
}

func TestTallyEqualsShapeProduct(t *testing.T) {
	h := array.NewHeap()
	a, err := h.NewInteger([]int{2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if a.Tally() != 6 {
		t.Fatalf("tally = %d, want 6", a.Tally())
	}
}

func TestRefcountAndRelease(t *testing.T) {
	h := array.NewHeap()
	a := h.IntScalar(1)
	if a.Refs() != 0 {
		t.Fatalf("fresh array refs = %d, want 0", a.Refs())
	}
	h.Retain(a)
	h.Retain(a)
	if a.Refs() != 2 {
		t.Fatalf("refs = %d, want 2", a.Refs())
	}
	h.Release(a)
	if a.Refs() != 1 {
		t.Fatalf("refs = %d, want 1", a.Refs())
	}
}

func TestPhraseInterningIdentity(t *testing.T) {
	h := array.NewHeap()
	p1, err := h.NewPhrase("FOO")
	if err != nil {
		t.Fatal(err)
	}
	p2, err := h.NewPhrase("FOO")
	if err != nil {
		t.Fatal(err)
	}
	if !array.SamePhrase(p1, p2) {
		t.Fatalf("expected equal text to intern to the same identity")
	}
	p3, _ := h.NewPhrase("BAR")
	if array.SamePhrase(p1, p3) {
		t.Fatalf("expected distinct text to intern to distinct identities")
	}
}

func TestFaultTriggering(t *testing.T) {
	h := array.NewHeap()
	if _, triggered, _ := h.NewFault("?oops"); triggered {
		t.Fatalf("expected no trigger before enabling")
	}
	h.Allocator() // exercise accessor
}

func TestImplodeHomogeneousMixed(t *testing.T) {
	h := array.NewHeap()
	m, err := h.NewMixed([]int{3})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		m.SetItem(h, i, h.IntScalar(int64(i)))
	}
	out, err := array.Implode(h, m)
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind() != array.Integer {
		t.Fatalf("kind = %v, want Integer", out.Kind())
	}
	for i := 0; i < 3; i++ {
		if out.Int(i) != int64(i) {
			t.Fatalf("item %d = %d, want %d", i, out.Int(i), i)
		}
	}
}

func TestImplodeLeavesHeterogeneousMixedAlone(t *testing.T) {
	h := array.NewHeap()
	m, err := h.NewMixed([]int{2})
	if err != nil {
		t.Fatal(err)
	}
	m.SetItem(h, 0, h.IntScalar(1))
	m.SetItem(h, 1, h.CharScalar('a'))
	out, err := array.Implode(h, m)
	if err != nil {
		t.Fatal(err)
	}
	if out != m || out.Kind() != array.Mixed {
		t.Fatalf("expected heterogeneous mixed array to be left alone")
	}
}

func TestEnsureUnsharedCopiesWhenShared(t *testing.T) {
	h := array.NewHeap()
	a, _ := h.NewInteger([]int{2})
	a.SetInt(0, 1)
	a.SetInt(1, 2)
	h.Retain(a)
	h.Retain(a) // refs = 2, shared

	cow, err := array.EnsureUnshared(h, a)
	if err != nil {
		t.Fatal(err)
	}
	if cow == a {
		t.Fatalf("expected a fresh array when refs > 1")
	}
	cow.SetInt(0, 99)
	if a.Int(0) != 1 {
		t.Fatalf("mutating the copy must not affect the original")
	}
}

func TestEnsureUnsharedReusesWhenUnshared(t *testing.T) {
	h := array.NewHeap()
	a, _ := h.NewInteger([]int{1})
	cow, err := array.EnsureUnshared(h, a)
	if err != nil {
		t.Fatal(err)
	}
	if cow != a {
		t.Fatalf("expected the same array when refs <= 1")
	}
}

func TestAllocatorCoalescesAdjacentFreeBlocks(t *testing.T) {
	a := array.NewAllocator(100, 100, 1000)
	b1, err := a.Alloc(10)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := a.Alloc(10)
	if err != nil {
		t.Fatal(err)
	}
	a.Free(b1)
	a.Free(b2)
	free := a.FreeBlocks()
	if len(free) != 1 {
		t.Fatalf("expected adjacent frees to coalesce into one block, got %d: %+v", len(free), free)
	}
	if free[0].Size() != 100 {
		t.Fatalf("coalesced block size = %d, want 100", free[0].Size())
	}
}

func TestAllocatorGrowsUpToCap(t *testing.T) {
	a := array.NewAllocator(10, 10, 20)
	if _, err := a.Alloc(10); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Alloc(10); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Alloc(1); err == nil {
		t.Fatalf("expected ErrOutOfMemory once the hard cap is reached")
	}
}
