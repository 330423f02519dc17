package nial_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arrlang/nial"
	"github.com/arrlang/nial/internal/array"
)

func TestRunArithmetic(t *testing.T) {
	in := nial.New()
	v, err := in.Run("1 + 2 * 3")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Kind() != array.Integer || v.Int(0) != 9 {
		t.Fatalf("result = %+v, want Integer 9 (left to right: (1 + 2) * 3)", v)
	}
}

func TestRunDefinitionThenExpression(t *testing.T) {
	in := nial.New()
	v, err := in.Run("X IS 10\nX + 1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Kind() != array.Integer || v.Int(0) != 11 {
		t.Fatalf("result = %+v, want Integer 11", v)
	}
}

func TestRunOpformCall(t *testing.T) {
	in := nial.New()
	if _, err := in.Run("SQ IS OPERATION N N * N ENDOPERATION"); err != nil {
		t.Fatalf("Run (define): %v", err)
	}
	v, err := in.Run("SQ 6")
	if err != nil {
		t.Fatalf("Run (call): %v", err)
	}
	if v.Kind() != array.Integer || v.Int(0) != 36 {
		t.Fatalf("result = %+v, want Integer 36", v)
	}
}

func TestRunDivideByZeroSurfacesAsFault(t *testing.T) {
	in := nial.New()
	v, err := in.Run("1 / 0")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Kind() != array.Fault {
		t.Fatalf("result kind = %v, want Fault", v.Kind())
	}
	if got := in.Heap.FaultText(v); got != "zerodivide" {
		t.Fatalf("fault text = %q, want %q", got, "zerodivide")
	}
}

func TestWorkspaceSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.nws")

	saver := nial.New()
	if _, err := saver.Run("X IS 41 + 1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := saver.SaveWorkspace(path); err != nil {
		t.Fatalf("SaveWorkspace: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected snapshot file to exist: %v", err)
	}

	loader := nial.New()
	if err := loader.LoadWorkspace(path); err != nil {
		t.Fatalf("LoadWorkspace: %v", err)
	}
	v, err := loader.Run("X")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Kind() != array.Integer || v.Int(0) != 42 {
		t.Fatalf("result = %+v, want Integer 42", v)
	}
}

func TestInterpreterRecoversAfterFault(t *testing.T) {
	in := nial.New()
	if _, err := in.Run("1 / 0"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// A fault surfacing at the top level must leave the interpreter fit
	// for the next statement (section 7's "recovery record reset at
	// each prompt").
	v, err := in.Run("2 + 2")
	if err != nil {
		t.Fatalf("Run after fault: %v", err)
	}
	if v.Kind() != array.Integer || v.Int(0) != 4 {
		t.Fatalf("result = %+v, want Integer 4", v)
	}
}
