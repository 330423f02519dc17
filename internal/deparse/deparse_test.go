package deparse_test

import (
	"strings"
	"testing"

	"github.com/arrlang/nial/internal/array"
	"github.com/arrlang/nial/internal/deparse"
	"github.com/arrlang/nial/internal/eval"
	"github.com/arrlang/nial/internal/parse"
	"github.com/arrlang/nial/internal/scan"
	"github.com/arrlang/nial/internal/symtab"
)

func parseOne(t *testing.T, h *array.Heap, g *symtab.Namespace, src string) *array.Array {
	t.Helper()
	toks, err := scan.ScanAll(strings.NewReader(src))
	if err != nil {
		t.Fatalf("scan(%q): %v", src, err)
	}
	p := parse.New(h, g, nil, toks)
	tree, err := p.ParseAction()
	if err != nil {
		t.Fatalf("ParseAction(%q): %v", src, err)
	}
	return parse.Field(tree, 0)
}

// roundTrip deparses src's single top-level expression, then re-scans,
// re-parses, and re-evaluates the rendered text, returning both the
// original and round-tripped evaluated values for comparison.
func roundTrip(t *testing.T, src string) (orig, again *array.Array) {
	t.Helper()
	h := array.NewHeap()
	g := symtab.NewGlobal()
	node := parseOne(t, h, g, src)

	in := eval.New(h, g)
	orig, err := in.Eval(node)
	if err != nil {
		t.Fatalf("Eval(%q): %v", src, err)
	}

	d := deparse.New(h)
	text, err := d.Deparse(node)
	if err != nil {
		t.Fatalf("Deparse(%q): %v", src, err)
	}

	h2 := array.NewHeap()
	g2 := symtab.NewGlobal()
	node2 := parseOne(t, h2, g2, text)
	in2 := eval.New(h2, g2)
	again, err = in2.Eval(node2)
	if err != nil {
		t.Fatalf("re-Eval(%q) (deparsed from %q): %v", text, src, err)
	}
	return orig, again
}

func sameScalar(a, b *array.Array) bool {
	if a.Kind() != b.Kind() || !a.IsAtom() || !b.IsAtom() {
		return false
	}
	switch a.Kind() {
	case array.Integer:
		return a.Int(0) == b.Int(0)
	case array.Boolean:
		return a.Bool(0) == b.Bool(0)
	default:
		return false
	}
}

func TestDeparseArithmeticRoundTrips(t *testing.T) {
	orig, again := roundTrip(t, "1 + 2 * 3")
	if !sameScalar(orig, again) {
		t.Fatalf("round trip mismatch: orig=%+v again=%+v", orig, again)
	}
}

func TestDeparsePrefixApplicationRoundTrips(t *testing.T) {
	orig, again := roundTrip(t, "FIRST 1 2 3")
	if !sameScalar(orig, again) {
		t.Fatalf("round trip mismatch: orig=%+v again=%+v", orig, again)
	}
}

func TestDeparseListLiteralRoundTrips(t *testing.T) {
	h := array.NewHeap()
	g := symtab.NewGlobal()
	node := parseOne(t, h, g, "[1, 2, 3]")
	d := deparse.New(h)
	text, err := d.Deparse(node)
	if err != nil {
		t.Fatalf("Deparse: %v", err)
	}
	if !strings.Contains(text, ",") {
		t.Fatalf("rendered list %q should be comma-separated", text)
	}
}

func TestDeparseIdentifierIsCapitalized(t *testing.T) {
	h := array.NewHeap()
	g := symtab.NewGlobal()
	node := parseOne(t, h, g, "myvar")
	d := deparse.New(h)
	text, err := d.Deparse(node)
	if err != nil {
		t.Fatalf("Deparse: %v", err)
	}
	if text != "Myvar" {
		t.Fatalf("rendered = %q, want %q (variables are rendered capitalized)", text, "Myvar")
	}
}

func TestDeparseConstantPreservesOriginalSpelling(t *testing.T) {
	h := array.NewHeap()
	g := symtab.NewGlobal()
	node := parseOne(t, h, g, "007")
	d := deparse.New(h)
	text, err := d.Deparse(node)
	if err != nil {
		t.Fatalf("Deparse: %v", err)
	}
	if text != "007" {
		t.Fatalf("rendered = %q, want the original source spelling %q", text, "007")
	}
}

func TestDeparseOpformRoundTrips(t *testing.T) {
	orig, again := roundTrip(t, "(OPERATION N N * N ENDOPERATION) 6")
	if !sameScalar(orig, again) {
		t.Fatalf("round trip mismatch: orig=%+v again=%+v", orig, again)
	}
}
