package eval_test

import (
	"strings"
	"testing"

	"github.com/arrlang/nial/internal/array"
	"github.com/arrlang/nial/internal/eval"
	"github.com/arrlang/nial/internal/parse"
	"github.com/arrlang/nial/internal/scan"
	"github.com/arrlang/nial/internal/symtab"
)

// run scans, parses, and evaluates src against a fresh interpreter,
// returning the value of its last expression.
func run(t *testing.T, src string) (*array.Array, *eval.Interp) {
	t.Helper()
	v, _, in := runWithBools(t, src)
	return v, in
}

// runWithBools scans, parses, and evaluates src against an interpreter
// whose global namespace already binds YES and NO to the two boolean
// atoms: comparison operators are explicitly outside this core's fixed
// primitive set (section 1), so tests that need a condition seed one
// directly rather than computing it from a relational operator that
// does not exist here.
func runWithBools(t *testing.T, src string) (*array.Array, *array.Heap, *eval.Interp) {
	t.Helper()
	h := array.NewHeap()
	g := symtab.NewGlobal()
	g.Intern("YES").Rebind(symtab.Variable, h.BoolScalar(true))
	g.Intern("NO").Rebind(symtab.Variable, h.BoolScalar(false))

	toks, err := scan.ScanAll(strings.NewReader(src))
	if err != nil {
		t.Fatalf("scan(%q): %v", src, err)
	}
	p := parse.New(h, g, nil, toks)
	tree, err := p.ParseAction()
	if err != nil {
		t.Fatalf("ParseAction(%q): %v", src, err)
	}
	in := eval.New(h, g)
	v, err := in.Eval(tree)
	if err != nil {
		t.Fatalf("Eval(%q): %v", src, err)
	}
	return v, h, in
}

func TestEvalBasicArithmeticPrecedence(t *testing.T) {
	v, _ := run(t, "2 + 3 * 4")
	if v.Kind() != array.Integer || v.Int(0) != 20 {
		t.Fatalf("result = %+v, want Integer 20 (no operator precedence: (2 + 3) * 4)", v)
	}
}

func TestEvalIfTakesFirstTrueBranch(t *testing.T) {
	v, _ := run(t, "IF NO THEN 10 ELSEIF YES THEN 20 ELSE 30 ENDIF")
	if v.Kind() != array.Integer || v.Int(0) != 20 {
		t.Fatalf("result = %+v, want Integer 20", v)
	}
}

func TestEvalIfNoElseYieldsNoExpr(t *testing.T) {
	v, _ := run(t, "IF NO THEN 10 ENDIF")
	if v.Kind() != array.Fault {
		t.Fatalf("result kind = %v, want Fault (noexpr)", v.Kind())
	}
}

func TestEvalWhileStopsWhenConditionTurnsFalse(t *testing.T) {
	v, _ := run(t, "COUNT IS 0\nCOND IS YES\nWHILE COND DO\nCOUNT := COUNT + 1\nCOND := NO\nENDWHILE\nCOUNT")
	if v.Kind() != array.Integer || v.Int(0) != 1 {
		t.Fatalf("result = %+v, want Integer 1 (one iteration before COND turns false)", v)
	}
}

func TestEvalRepeatRunsBodyAtLeastOnce(t *testing.T) {
	v, _ := run(t, "COUNT IS 0\nREPEAT\nCOUNT := COUNT + 1\nUNTIL YES\nENDREPEAT\nCOUNT")
	if v.Kind() != array.Integer || v.Int(0) != 1 {
		t.Fatalf("result = %+v, want Integer 1", v)
	}
}

func TestEvalExitUnwindsToEnclosingLoop(t *testing.T) {
	v, _ := run(t, "WHILE YES DO EXIT 7 ENDWHILE")
	if v.Kind() != array.Integer || v.Int(0) != 7 {
		t.Fatalf("result = %+v, want Integer 7", v)
	}
}

func TestEvalForIteratesOverStrand(t *testing.T) {
	v, _ := run(t, "TOTAL IS 0\nFOR X WITH 1 2 3 DO TOTAL := TOTAL + X ENDFOR\nTOTAL")
	if v.Kind() != array.Integer || v.Int(0) != 6 {
		t.Fatalf("result = %+v, want Integer 6", v)
	}
}

func TestEvalCaseSelectsMatchingValue(t *testing.T) {
	v, _ := run(t, "CASE 2 FROM 1 : 10 FROM 2 : 20 FROM 3 : 30 ENDCASE")
	if v.Kind() != array.Integer || v.Int(0) != 20 {
		t.Fatalf("result = %+v, want Integer 20", v)
	}
}

func TestEvalCaseFallsThroughToElse(t *testing.T) {
	v, _ := run(t, "CASE 9 FROM 1 : 10 FROM 2 : 20 ELSE 99 ENDCASE")
	if v.Kind() != array.Integer || v.Int(0) != 99 {
		t.Fatalf("result = %+v, want Integer 99", v)
	}
}

func TestEvalOpformClosureCall(t *testing.T) {
	v, _ := run(t, "DOUBLE IS OPERATION N N + N ENDOPERATION\nDOUBLE 21")
	if v.Kind() != array.Integer || v.Int(0) != 42 {
		t.Fatalf("result = %+v, want Integer 42", v)
	}
}

func TestEvalCatchRecoversThrownFault(t *testing.T) {
	v, _ := run(t, `CATCH OPERATION N THROW "boom" ENDOPERATION`)
	if v.Kind() != array.Fault {
		t.Fatalf("result kind = %v, want Fault", v.Kind())
	}
}

func TestEvalEachAppliesOperationToEveryItem(t *testing.T) {
	// [1, 2, 3] canonicalizes to a homogeneous Integer array (section 3),
	// and SQ's own N * N is already pervasive across it, so EACH's single-
	// apply fallback for non-Mixed data (apply.go's basicEach) gives the
	// same per-item result a Mixed-array iteration would.
	v, _ := run(t, "SQ IS OPERATION N N * N ENDOPERATION\nEACH SQ [1, 2, 3]")
	if v.Kind() != array.Integer || v.Tally() != 3 {
		t.Fatalf("result = %+v, want a 3-item Integer array", v)
	}
	for i, want := range []int64{1, 4, 9} {
		if got := v.Int(i); got != want {
			t.Fatalf("item %d = %d, want %d", i, got, want)
		}
	}
}

func TestEvalFoldReducesAccumulating(t *testing.T) {
	v, _ := run(t, "SUM IS OPERATION PAIR (FIRST PAIR) + (FIRST REST PAIR) ENDOPERATION\nFOLD SUM [1, 2, 3, 4]")
	if v.Kind() != array.Integer || v.Int(0) != 10 {
		t.Fatalf("result = %+v, want Integer 10", v)
	}
}

func TestEvalUndefinedVariableIsFault(t *testing.T) {
	v, _ := run(t, "NOSUCHNAME")
	if v.Kind() != array.Fault {
		t.Fatalf("result kind = %v, want Fault (undefined)", v.Kind())
	}
}

func TestEvalIndexedAssignMutatesInPlace(t *testing.T) {
	v, _ := run(t, "A := 1 2 3\nA @ 0 := 99\nA")
	if v.Kind() != array.Integer || v.Tally() != 3 || v.Int(0) != 99 {
		t.Fatalf("result = %+v, want [99 2 3]", v)
	}
}
